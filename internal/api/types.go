package api

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the lifecycle state of a report.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further progress is expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Timestamp accepts RFC 3339 as well as the naive ISO form
// ("2006-01-02T15:04:05.999999") the backend emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// MarshalYAML keeps yaml output readable.
func (t Timestamp) MarshalYAML() (any, error) {
	if t.IsZero() {
		return "", nil
	}
	return t.Format(time.RFC3339), nil
}

type Section struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
}

type Outline struct {
	Title    string    `json:"title" yaml:"title"`
	Summary  string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Sections []Section `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// Report is owned by the backend; the console only displays it.
type Report struct {
	ID              string    `json:"report_id" yaml:"report_id"`
	SimulationID    string    `json:"simulation_id,omitempty" yaml:"simulation_id,omitempty"`
	Status          Status    `json:"status" yaml:"status"`
	Outline         *Outline  `json:"outline,omitempty" yaml:"outline,omitempty"`
	MarkdownContent string    `json:"markdown_content,omitempty" yaml:"markdown_content,omitempty"`
	CreatedAt       Timestamp `json:"created_at" yaml:"created_at"`
	CompletedAt     Timestamp `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error           string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Title returns the outline title or the id.
func (r Report) Title() string {
	if r.Outline != nil && r.Outline.Title != "" {
		return r.Outline.Title
	}
	return r.ID
}

// User is the account returned by /api/auth/user.
type User struct {
	Username string `json:"username" yaml:"username"`
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is returned on successful login and username change.
type LoginResult struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UsernameChange struct {
	NewUsername string `json:"new_username"`
	Password    string `json:"password"`
}

type GenerateRequest struct {
	SimulationID    string `json:"simulation_id"`
	ForceRegenerate bool   `json:"force_regenerate,omitempty"`
}

type GenerateResult struct {
	ReportID         string `json:"report_id" yaml:"report_id"`
	TaskID           string `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Status           Status `json:"status" yaml:"status"`
	Message          string `json:"message,omitempty" yaml:"message,omitempty"`
	AlreadyGenerated bool   `json:"already_generated,omitempty" yaml:"already_generated,omitempty"`
}

// StatusQuery selects a generation task by task id or simulation id.
type StatusQuery struct {
	TaskID       string
	SimulationID string
}

type TaskStatus struct {
	TaskID   string `json:"task_id" yaml:"task_id"`
	ReportID string `json:"report_id,omitempty" yaml:"report_id,omitempty"`
	Status   Status `json:"status" yaml:"status"`
	Progress int    `json:"progress" yaml:"progress"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

type AgentLogEntry struct {
	Timestamp    string         `json:"timestamp" yaml:"timestamp"`
	Action       string         `json:"action" yaml:"action"`
	Stage        string         `json:"stage,omitempty" yaml:"stage,omitempty"`
	SectionTitle string         `json:"section_title,omitempty" yaml:"section_title,omitempty"`
	Details      map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// LogPage is one window of a report log, starting at FromLine.
type LogPage[T any] struct {
	Logs       []T  `json:"logs" yaml:"logs"`
	TotalLines int  `json:"total_lines" yaml:"total_lines"`
	FromLine   int  `json:"from_line" yaml:"from_line"`
	HasMore    bool `json:"has_more" yaml:"has_more"`
}

// Next is the from_line of the following page.
func (p LogPage[T]) Next() int { return p.FromLine + len(p.Logs) }

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	SimulationID string        `json:"simulation_id,omitempty"`
	ReportID     string        `json:"report_id,omitempty"`
	Message      string        `json:"message"`
	ChatHistory  []ChatMessage `json:"chat_history,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response" yaml:"response"`
}

type ResumeResult struct {
	ReportID string `json:"report_id" yaml:"report_id"`
	TaskID   string `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Status   Status `json:"status" yaml:"status"`
}

type ListOptions struct {
	SimulationID string
	Limit        int
}

// Download describes a fetched report file.
type Download struct {
	Filename    string
	ContentType string
	Bytes       int64
}
