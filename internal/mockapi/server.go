// Package mockapi is an in-memory double of the report backend's REST
// surface, used for local development and end-to-end tests of the console.
//
// It implements the auth endpoints with the backend's real rules (PBKDF2
// credentials, token derived from the username, X-Auth-Token checks) and
// simulates report generation with a small worker pool. The first
// Options.FailFirst generate/chat requests answer 503 to mimic a cold start.
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ccastromar/mirofish-console/internal/api"
	"github.com/ccastromar/mirofish-console/internal/health"
	"github.com/ccastromar/mirofish-console/internal/logx"
	"github.com/ccastromar/mirofish-console/internal/metrics"
)

const (
	minPasswordLen = 6
	minUsernameLen = 3
	maxQueuedJobs  = 64
)

type Options struct {
	DemoUsername    string
	DemoPassword    string
	CredentialsFile string

	FailFirst int
	StepDelay time.Duration
	Workers   int
}

type Server struct {
	opts    Options
	creds   *CredentialStore
	reports *reportStore
	logs    *logbook
	jobs    chan job

	failures atomic.Int64
	ready    atomic.Bool
}

func New(opts Options) (*Server, error) {
	if opts.DemoUsername == "" {
		opts.DemoUsername = "admin"
	}
	if opts.DemoPassword == "" {
		opts.DemoPassword = "admin123"
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	creds, err := NewCredentialStore(opts.CredentialsFile, opts.DemoUsername, opts.DemoPassword)
	if err != nil {
		return nil, err
	}
	s := &Server{
		opts:    opts,
		creds:   creds,
		reports: newReportStore(),
		logs:    newLogbook(),
		jobs:    make(chan job, maxQueuedJobs),
	}
	s.failures.Store(int64(opts.FailFirst))
	return s, nil
}

// Ready reports whether the generation workers are running.
func (s *Server) Ready() error {
	if !s.ready.Load() {
		return errors.New("generation workers not running")
	}
	return nil
}

var _ health.Checker = (*Server)(nil)

// Handler returns the full HTTP surface, middleware included.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("GET /api/auth/user", s.requireLogin(s.handleUser))
	mux.Handle("PUT /api/auth/password", s.requireLogin(s.handleChangePassword))
	mux.Handle("PUT /api/auth/username", s.requireLogin(s.handleChangeUsername))

	mux.Handle("POST /api/report/generate", s.requireLogin(s.handleGenerate))
	mux.Handle("GET /api/report/generate/status", s.requireLogin(s.handleGenerateStatus))
	mux.Handle("GET /api/report/list", s.requireLogin(s.handleList))
	mux.Handle("POST /api/report/chat", s.requireLogin(s.handleChat))
	mux.Handle("GET /api/report/{id}", s.requireLogin(s.handleGet))
	mux.Handle("DELETE /api/report/{id}", s.requireLogin(s.handleDelete))
	mux.Handle("GET /api/report/{id}/agent-log", s.requireLogin(s.handleAgentLog))
	mux.Handle("GET /api/report/{id}/console-log", s.requireLogin(s.handleConsoleLog))
	mux.Handle("POST /api/report/{id}/resume", s.requireLogin(s.handleResume))
	mux.Handle("GET /api/report/{id}/download", s.requireLogin(s.handleDownload))

	mux.HandleFunc("GET /health/live", health.LiveHandler)
	mux.HandleFunc("GET /health/ready", health.ReadyHandler(s))
	mux.Handle("GET /metrics", metrics.Handler())

	return secureMiddleware(metricsMiddleware(mux))
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any, message string) {
	body := map[string]any{"success": true}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// --- auth ---

func (s *Server) requireLogin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(api.TokenHeader)
		if token == "" {
			if c, err := r.Cookie("auth_token"); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		if token != s.creds.Token() {
			writeError(w, http.StatusUnauthorized, "login expired")
			return
		}
		next(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.Credentials
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if !s.creds.Verify(username, req.Password) {
		logx.Warn("Mock", "login failed for %q", username)
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	logx.Info("Mock", "user %s logged in", username)
	writeOK(w, api.LoginResult{Username: username, Token: TokenFor(username)}, "")
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	writeOK(w, api.User{Username: s.creds.Username()}, "")
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req api.PasswordChange
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "old and new password are required")
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("new password must be at least %d characters", minPasswordLen))
		return
	}
	if !s.creds.CheckPassword(req.OldPassword) {
		writeError(w, http.StatusBadRequest, "old password is incorrect")
		return
	}
	if err := s.creds.SetPassword(req.NewPassword); err != nil {
		logx.Error("Mock", "change password: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logx.Info("Mock", "user %s changed password", s.creds.Username())
	writeOK(w, nil, "password changed")
}

func (s *Server) handleChangeUsername(w http.ResponseWriter, r *http.Request) {
	var req api.UsernameChange
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	newName := strings.TrimSpace(req.NewUsername)
	if newName == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "new username and current password are required")
		return
	}
	if len(newName) < minUsernameLen {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("username must be at least %d characters", minUsernameLen))
		return
	}
	if !s.creds.CheckPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "password is incorrect")
		return
	}
	old := s.creds.Username()
	if err := s.creds.SetUsername(newName); err != nil {
		logx.Error("Mock", "change username: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logx.Info("Mock", "username changed: %s -> %s", old, newName)
	writeOK(w, api.LoginResult{Username: newName, Token: TokenFor(newName)}, "username changed")
}

// --- reports ---

// takeFailure consumes one injected failure, if any are left.
func (s *Server) takeFailure() bool {
	for {
		n := s.failures.Load()
		if n <= 0 {
			return false
		}
		if s.failures.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (s *Server) enqueue(id string) bool {
	select {
	case s.jobs <- job{reportID: id}:
		return true
	default:
		return false
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.takeFailure() {
		writeError(w, http.StatusServiceUnavailable, "backend is starting, retry later")
		return
	}
	var req api.GenerateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SimulationID) == "" {
		writeError(w, http.StatusBadRequest, "simulation_id is required")
		return
	}

	if !req.ForceRegenerate {
		if existing, ok := s.reports.latest(req.SimulationID, true); ok {
			writeOK(w, api.GenerateResult{
				ReportID:         existing.report.ID,
				TaskID:           existing.taskID,
				Status:           existing.report.Status,
				AlreadyGenerated: true,
				Message:          "report already generated",
			}, "")
			return
		}
	}

	rec := s.reports.create(req.SimulationID)
	if !s.enqueue(rec.report.ID) {
		s.reports.delete(rec.report.ID)
		writeError(w, http.StatusServiceUnavailable, "generation queue is full")
		return
	}
	s.logs.Console(rec.report.ID, "report %s queued", rec.report.ID)
	writeOK(w, api.GenerateResult{
		ReportID: rec.report.ID,
		TaskID:   rec.taskID,
		Status:   rec.report.Status,
		Message:  "report generation started",
	}, "")
}

func (s *Server) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		rec reportRecord
		ok  bool
	)
	switch {
	case q.Get("task_id") != "":
		rec, ok = s.reports.byTask(q.Get("task_id"))
	case q.Get("simulation_id") != "":
		rec, ok = s.reports.latest(q.Get("simulation_id"), false)
	default:
		writeError(w, http.StatusBadRequest, "task_id or simulation_id is required")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeOK(w, rec.task(), "")
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	writeOK(w, s.reports.list(r.URL.Query().Get("simulation_id"), limit), "")
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.reports.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeOK(w, rec.report, "")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.reports.delete(id) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	s.logs.drop(id)
	logx.Info("Mock", "report %s deleted", id)
	writeOK(w, nil, "report deleted")
}

func fromLine(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("from_line"))
	return n
}

func (s *Server) handleAgentLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.reports.get(id); !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeOK(w, s.logs.agentPage(id, fromLine(r)), "")
}

func (s *Server) handleConsoleLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.reports.get(id); !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeOK(w, s.logs.consolePage(id, fromLine(r)), "")
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, found, restarted := s.reports.restart(id)
	if !found {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if !restarted {
		switch rec.report.Status {
		case api.StatusCompleted:
			writeError(w, http.StatusBadRequest, "report is already completed")
		case api.StatusPending:
			writeError(w, http.StatusConflict, "report is already queued")
		default:
			writeError(w, http.StatusConflict, "report is already being generated")
		}
		return
	}
	if !s.enqueue(id) {
		// back to failed so it can be resumed again
		s.reports.update(id, func(r *reportRecord) {
			r.report.Status = api.StatusFailed
			r.report.Error = "generation queue is full"
			r.message = r.report.Error
		})
		writeError(w, http.StatusServiceUnavailable, "generation queue is full")
		return
	}
	s.logs.AddEvent(id, "report_resume", "pending", "", nil)
	writeOK(w, api.ResumeResult{ReportID: id, TaskID: rec.taskID, Status: rec.report.Status}, "report generation resumed")
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.reports.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if rec.report.Status != api.StatusCompleted {
		writeError(w, http.StatusBadRequest, "report is not completed")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.md"`, rec.report.ID))
	_, _ = w.Write([]byte(rec.report.MarkdownContent))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.takeFailure() {
		writeError(w, http.StatusServiceUnavailable, "backend is starting, retry later")
		return
	}
	var req api.ChatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	var (
		rec reportRecord
		ok  bool
	)
	if req.ReportID != "" {
		rec, ok = s.reports.get(req.ReportID)
	} else if req.SimulationID != "" {
		rec, ok = s.reports.latest(req.SimulationID, true)
	}
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if rec.report.Status != api.StatusCompleted {
		writeError(w, http.StatusBadRequest, "report is not completed")
		return
	}
	writeOK(w, api.ChatResponse{Response: answer(rec.report, req)}, "")
}

// answer is a canned reply that quotes the most relevant section.
func answer(rep api.Report, req api.ChatRequest) string {
	q := strings.ToLower(req.Message)
	best := api.Section{}
	if rep.Outline != nil && len(rep.Outline.Sections) > 0 {
		best = rep.Outline.Sections[0]
		for _, s := range rep.Outline.Sections {
			if strings.Contains(q, strings.ToLower(s.Title)) {
				best = s
				break
			}
		}
	}
	return fmt.Sprintf("Regarding %q (turn %d): according to section %q of %s, %s",
		req.Message, len(req.ChatHistory)+1, best.Title, rep.Title(), best.Content)
}
