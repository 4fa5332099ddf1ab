package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// triggerKeywords make a chat message ask for the progress report
var triggerKeywords = []string{"销量", "战报"}

// ReportFunc produces the current report text
type ReportFunc func(ctx context.Context) string

// Replier sends a text reply to a chat message
type Replier interface {
	ReplyText(ctx context.Context, messageID, text string) error
}

// feishuEvent is the subset of the Feishu event callback the server reads
type feishuEvent struct {
	Challenge string `json:"challenge"`
	Event     struct {
		Message struct {
			MessageID   string `json:"message_id"`
			MessageType string `json:"message_type"`
			Content     string `json:"content"`
		} `json:"message"`
	} `json:"event"`
}

// Server exposes the health check and the Feishu event callback
type Server struct {
	engine  *gin.Engine
	report  ReportFunc
	replier Replier
	timeout time.Duration

	mu   sync.Mutex
	http *http.Server
}

// NewServer builds the router. replier may be nil, in which case chat triggers are only logged.
func NewServer(report ReportFunc, replier Replier) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:  engine,
		report:  report,
		replier: replier,
		timeout: 60 * time.Second,
	}

	engine.GET("/", s.handleHealth)
	engine.POST("/feishu/webhook", s.handleFeishuWebhook)

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = server
	s.mu.Unlock()

	log.WithField("addr", addr).Info("Webhook server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.http
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"message": "Fund tracker is running",
	})
}

func (s *Server) handleFeishuWebhook(c *gin.Context) {
	var payload feishuEvent
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	// URL verification handshake
	if payload.Challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": payload.Challenge})
		return
	}

	message := payload.Event.Message
	if message.MessageType != "text" {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	var content struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(message.Content), &content); err != nil {
		log.WithFields(log.Fields{
			"messageID": message.MessageID,
			"error":     err,
		}).Warn("Failed to parse Feishu message content")
		c.JSON(http.StatusOK, gin.H{"status": "error parsing content"})
		return
	}

	if !IsReportRequest(content.Text) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	log.WithField("messageID", message.MessageID).Info("Report requested from Feishu")

	// Feishu expects an answer within seconds; the report is sent as a separate reply
	go s.replyWithReport(message.MessageID)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) replyWithReport(messageID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	text := s.report(ctx)
	if s.replier == nil {
		log.WithField("messageID", messageID).Warn("Feishu credentials not configured, report not sent")
		return
	}

	if err := s.replier.ReplyText(ctx, messageID, text); err != nil {
		log.WithFields(log.Fields{
			"messageID": messageID,
			"error":     err,
		}).Error("Failed to send Feishu reply")
		return
	}
	log.WithField("messageID", messageID).Info("Feishu reply sent")
}

// IsReportRequest reports whether a chat message asks for the progress report
func IsReportRequest(text string) bool {
	for _, keyword := range triggerKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
