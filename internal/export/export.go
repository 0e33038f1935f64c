// Package export produces admin-facing data exports in CSV and JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/models"
)

// Format selects the output encoding of an export
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format string, defaulting to CSV
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ContentType returns the MIME type for HTTP responses
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Report is a tabular export: a header row plus data rows, with the
// raw records kept for JSON output
type Report struct {
	Name    string          `json:"name"`
	Header  []string        `json:"-"`
	Rows    [][]string      `json:"-"`
	Records json.RawMessage `json:"records"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Write encodes the report to w in the requested format
func (r *Report) Write(w io.Writer, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// UserBehavior exports analytics events for a college since a cutoff.
// An empty college exports all colleges.
func UserBehavior(college string, since time.Time) (*Report, error) {
	query := database.DB.Model(&models.AnalyticsEvent{}).Where("created_at >= ?", since)
	if college != "" {
		query = query.Where("college_name = ?", college)
	}

	var events []models.AnalyticsEvent
	if err := query.Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load analytics events: %w", err)
	}

	report := &Report{
		Name:        "user-behavior",
		Header:      []string{"event_id", "user_id", "action", "target_type", "target_id", "college", "created_at"},
		GeneratedAt: time.Now().UTC(),
	}
	for _, e := range events {
		userID := ""
		if e.UserID != nil {
			userID = *e.UserID
		}
		report.Rows = append(report.Rows, []string{
			e.ID, userID, e.Action, e.TargetType, e.TargetID, e.CollegeName,
			e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	raw, err := json.Marshal(events)
	if err != nil {
		return nil, err
	}
	report.Records = raw
	return report, nil
}

// contentRow is the JSON shape of one content-performance record
type contentRow struct {
	ConfessionID string    `json:"confession_id"`
	College      string    `json:"college"`
	Likes        int       `json:"likes"`
	Dislikes     int       `json:"dislikes"`
	CommentCount int64     `json:"comment_count"`
	Reported     bool      `json:"reported"`
	Hidden       bool      `json:"hidden"`
	CreatedAt    time.Time `json:"created_at"`
}

// ContentPerformance exports per-confession engagement for a college
func ContentPerformance(college string, since time.Time) (*Report, error) {
	query := database.DB.Model(&models.Confession{}).Where("created_at >= ?", since)
	if college != "" {
		query = query.Where("college_name = ?", college)
	}

	var confessions []models.Confession
	if err := query.Order("likes DESC").Find(&confessions).Error; err != nil {
		return nil, fmt.Errorf("failed to load confessions: %w", err)
	}

	rows := make([]contentRow, 0, len(confessions))
	for _, c := range confessions {
		var commentCount int64
		if err := database.DB.Model(&models.Comment{}).
			Where("confession_id = ?", c.ID).Count(&commentCount).Error; err != nil {
			return nil, err
		}
		rows = append(rows, contentRow{
			ConfessionID: c.ID,
			College:      c.CollegeName,
			Likes:        c.Likes,
			Dislikes:     c.Dislikes,
			CommentCount: commentCount,
			Reported:     c.IsReported,
			Hidden:       c.IsHidden,
			CreatedAt:    c.CreatedAt,
		})
	}

	report := &Report{
		Name:        "content-performance",
		Header:      []string{"confession_id", "college", "likes", "dislikes", "comments", "reported", "hidden", "created_at"},
		GeneratedAt: time.Now().UTC(),
	}
	for _, r := range rows {
		report.Rows = append(report.Rows, []string{
			r.ConfessionID, r.College,
			strconv.Itoa(r.Likes), strconv.Itoa(r.Dislikes),
			strconv.FormatInt(r.CommentCount, 10),
			strconv.FormatBool(r.Reported), strconv.FormatBool(r.Hidden),
			r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	report.Records = raw
	return report, nil
}

// systemRow is the JSON shape of the system-performance summary
type systemRow struct {
	Metric string `json:"metric"`
	Value  int64  `json:"value"`
}

// SystemPerformance exports platform-wide aggregate counts
func SystemPerformance() (*Report, error) {
	metrics := []struct {
		name  string
		model interface{}
		where []interface{}
	}{
		{"total_users", &models.User{}, nil},
		{"blocked_users", &models.User{}, []interface{}{"is_blocked = ?", true}},
		{"total_confessions", &models.Confession{}, nil},
		{"hidden_confessions", &models.Confession{}, []interface{}{"is_hidden = ?", true}},
		{"total_comments", &models.Comment{}, nil},
		{"total_likes", &models.Like{}, nil},
		{"pending_reports", &models.ReportedConfession{}, []interface{}{"status = ?", models.ReportStatusPending}},
		{"total_notifications", &models.Notification{}, nil},
	}

	rows := make([]systemRow, 0, len(metrics))
	for _, m := range metrics {
		query := database.DB.Model(m.model)
		if m.where != nil {
			query = query.Where(m.where[0], m.where[1:]...)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", m.name, err)
		}
		rows = append(rows, systemRow{Metric: m.name, Value: count})
	}

	report := &Report{
		Name:        "system-performance",
		Header:      []string{"metric", "value"},
		GeneratedAt: time.Now().UTC(),
	}
	for _, r := range rows {
		report.Rows = append(report.Rows, []string{r.Metric, strconv.FormatInt(r.Value, 10)})
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	report.Records = raw
	return report, nil
}
