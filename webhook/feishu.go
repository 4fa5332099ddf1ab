package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultFeishuBaseURL is the public Feishu open platform endpoint
const DefaultFeishuBaseURL = "https://open.feishu.cn"

// ErrNoToken is returned when Feishu does not hand out a tenant token
var ErrNoToken = errors.New("feishu returned no tenant access token")

// FeishuClient replies to chat messages through the Feishu open API
type FeishuClient struct {
	baseURL   string
	appID     string
	appSecret string
	http      *http.Client
}

// NewFeishuClient creates a client for the app credentials. An empty baseURL uses DefaultFeishuBaseURL.
func NewFeishuClient(baseURL, appID, appSecret string) *FeishuClient {
	if baseURL == "" {
		baseURL = DefaultFeishuBaseURL
	}
	return &FeishuClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appID:     appID,
		appSecret: appSecret,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

type tenantTokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
}

// TenantAccessToken exchanges the app credentials for a tenant token
func (c *FeishuClient) TenantAccessToken(ctx context.Context) (string, error) {
	body := map[string]string{"app_id": c.appID, "app_secret": c.appSecret}

	var resp tenantTokenResponse
	if err := c.postJSON(ctx, "/open-apis/auth/v3/tenant_access_token/internal", "", body, &resp); err != nil {
		return "", fmt.Errorf("failed to get tenant access token: %w", err)
	}
	if resp.TenantAccessToken == "" {
		return "", fmt.Errorf("%w (code %d: %s)", ErrNoToken, resp.Code, resp.Msg)
	}
	return resp.TenantAccessToken, nil
}

type replyRequest struct {
	Content string `json:"content"`
	MsgType string `json:"msg_type"`
}

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// ReplyText posts text as a reply to messageID
func (c *FeishuClient) ReplyText(ctx context.Context, messageID, text string) error {
	token, err := c.TenantAccessToken(ctx)
	if err != nil {
		return err
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode reply content: %w", err)
	}

	var resp apiResponse
	path := "/open-apis/im/v1/messages/" + messageID + "/reply"
	if err := c.postJSON(ctx, path, token, replyRequest{Content: string(content), MsgType: "text"}, &resp); err != nil {
		return fmt.Errorf("failed to reply to message %s: %w", messageID, err)
	}
	if resp.Code != 0 {
		return fmt.Errorf("feishu rejected reply to %s: code %d: %s", messageID, resp.Code, resp.Msg)
	}
	return nil
}

func (c *FeishuClient) postJSON(ctx context.Context, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
