package goals

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"fundtracker/models"

	log "github.com/sirupsen/logrus"
)

// Columns expected in the header row, in any order
var requiredColumns = []string{
	"date",
	"goal_daily_amount",
	"goal_daily_quantity",
	"goal_total_amount",
	"goal_total_quantity",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVProvider serves goals from a CSV schedule on disk. The file is re-read on
// every lookup so edits take effect without a restart.
type CSVProvider struct {
	path string
	loc  *time.Location
}

// NewCSVProvider creates a provider for the schedule at path
func NewCSVProvider(path string, loc *time.Location) *CSVProvider {
	if loc == nil {
		loc = time.UTC
	}
	return &CSVProvider{path: path, loc: loc}
}

// GoalForDate returns the first row matching the date's calendar day.
// A missing file means no goals are defined.
func (p *CSVProvider) GoalForDate(ctx context.Context, date time.Time) (*models.DailyGoal, error) {
	goals, err := LoadCSV(p.path, p.loc)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", p.path).Debug("Goal schedule not found, using zero goals")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	key := models.DateKey(date)
	for _, goal := range goals {
		if models.DateKey(goal.Date) == key {
			return goal, nil
		}
	}
	return nil, nil
}

// LoadCSV reads a goal schedule file
func LoadCSV(path string, loc *time.Location) ([]*models.DailyGoal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open goal schedule: %w", err)
	}
	defer f.Close()

	return ParseCSV(f, loc)
}

// ParseCSV parses a goal schedule. Rows with an unparseable date or goal value
// are skipped; a header missing a required column is an error.
func ParseCSV(r io.Reader, loc *time.Location) ([]*models.DailyGoal, error) {
	if loc == nil {
		loc = time.UTC
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read goal schedule: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read goal schedule header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("goal schedule is missing column %q", name)
		}
	}

	var goals []*models.DailyGoal
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			log.WithFields(log.Fields{"line": line, "error": err}).Debug("Skipping unreadable goal row")
			continue
		}

		goal, err := parseRow(record, index, loc)
		if err != nil {
			log.WithFields(log.Fields{"line": line, "error": err}).Debug("Skipping malformed goal row")
			continue
		}
		goals = append(goals, goal)
	}

	return goals, nil
}

func parseRow(record []string, index map[string]int, loc *time.Location) (*models.DailyGoal, error) {
	field := func(name string) (string, error) {
		i := index[name]
		if i >= len(record) {
			return "", fmt.Errorf("missing %s", name)
		}
		return strings.TrimSpace(record[i]), nil
	}

	raw, err := field("date")
	if err != nil {
		return nil, err
	}
	date, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", raw)
	}

	values := make([]int64, 0, 4)
	for _, name := range requiredColumns[1:] {
		raw, err := field(name)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", name, raw)
		}
		if v < 0 {
			return nil, fmt.Errorf("negative %s", name)
		}
		values = append(values, v)
	}

	return &models.DailyGoal{
		Date:              date,
		GoalDailyAmount:   values[0],
		GoalDailyQuantity: values[1],
		GoalTotalAmount:   values[2],
		GoalTotalQuantity: values[3],
	}, nil
}
