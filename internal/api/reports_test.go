package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateReport_RetriesTransientFailures(t *testing.T) {
	calls := 0
	c, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/report/generate", r.URL.Path)
		calls++
		if calls < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "backend starting"})
			return
		}
		var body GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "sim_1", body.SimulationID)
		writeJSON(w, 200, map[string]any{"success": true, "data": map[string]any{
			"report_id": "report_1", "task_id": "task_1", "status": "generating",
		}})
	})

	res, err := c.GenerateReport(authed(), GenerateRequest{SimulationID: "sim_1"})
	require.NoError(t, err)
	require.Equal(t, "report_1", res.ReportID)
	require.Equal(t, StatusGenerating, res.Status)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, time.Second}, *delays)
}

func TestChat_ExhaustedRetriesSurfaceLastFailure(t *testing.T) {
	calls := 0
	c, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "attempt " + string(rune('0'+calls))})
	})

	_, err := c.Chat(authed(), ChatRequest{ReportID: "r1", Message: "why?"})
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.Len(t, *delays, 2)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "attempt 3", apiErr.Message)
}

func TestChat_SingleAttemptBudget(t *testing.T) {
	calls := 0
	c, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "down"})
	})
	c.Retry.Attempts = 1

	_, err := c.Chat(authed(), ChatRequest{Message: "hi"})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, *delays)
}

func TestDirectCallsAreNotRetried(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "down"})
	})

	_, err := c.ListReports(authed(), ListOptions{})
	require.Error(t, err)
	_, err = c.DeleteReport(authed(), "r1")
	require.Error(t, err)
	_, err = c.ResumeReport(authed(), "r1")
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestEndpoints_MethodsAndPaths(t *testing.T) {
	type seen struct {
		method, path, query string
	}
	var got []seen

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, seen{r.Method, r.URL.Path, r.URL.RawQuery})
		var data any
		switch r.URL.Path {
		case "/api/report/list":
			data = []map[string]any{{"report_id": "r1", "status": "completed", "outline": map[string]any{"title": "Q3"}}}
		case "/api/report/r1/agent-log":
			data = map[string]any{"logs": []map[string]any{{"timestamp": "t", "action": "section_start", "stage": "generating"}}, "total_lines": 5, "from_line": 4, "has_more": false}
		case "/api/report/r1/console-log":
			data = map[string]any{"logs": []string{"a", "b"}, "total_lines": 2, "from_line": 0}
		case "/api/report/generate/status":
			data = map[string]any{"task_id": "t1", "status": "generating", "progress": 40}
		case "/api/report/r1/resume":
			data = map[string]any{"report_id": "r1", "status": "generating"}
		case "/api/auth/username":
			data = map[string]any{"username": "root", "token": "new"}
		default:
			data = map[string]any{"report_id": "r1", "status": "completed"}
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": data, "message": "ok"})
	})
	ctx := authed()

	reports, err := c.ListReports(ctx, ListOptions{SimulationID: "sim_1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "Q3", reports[0].Title())

	rep, err := c.GetReport(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, rep.Status)

	agent, err := c.AgentLog(ctx, "r1", 4)
	require.NoError(t, err)
	require.Equal(t, "section_start", agent.Logs[0].Action)
	require.Equal(t, 5, agent.Next())

	console, err := c.ConsoleLog(ctx, "r1", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, console.Logs)

	st, err := c.GenerateStatus(ctx, StatusQuery{TaskID: "t1"})
	require.NoError(t, err)
	require.Equal(t, 40, st.Progress)

	res, err := c.ResumeReport(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, StatusGenerating, res.Status)

	msg, err := c.DeleteReport(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "ok", msg)

	msg, err = c.ChangePassword(ctx, PasswordChange{OldPassword: "a", NewPassword: "bbbbbb"})
	require.NoError(t, err)
	require.Equal(t, "ok", msg)

	lr, err := c.ChangeUsername(ctx, UsernameChange{NewUsername: "root", Password: "a"})
	require.NoError(t, err)
	require.Equal(t, LoginResult{Username: "root", Token: "new"}, lr)

	require.Equal(t, []seen{
		{"GET", "/api/report/list", "limit=10&simulation_id=sim_1"},
		{"GET", "/api/report/r1", ""},
		{"GET", "/api/report/r1/agent-log", "from_line=4"},
		{"GET", "/api/report/r1/console-log", ""},
		{"GET", "/api/report/generate/status", "task_id=t1"},
		{"POST", "/api/report/r1/resume", ""},
		{"DELETE", "/api/report/r1", ""},
		{"PUT", "/api/auth/password", ""},
		{"PUT", "/api/auth/username", ""},
	}, got)
}

func TestListReports_EmptyData(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"success": true, "data": nil})
	})
	reports, err := c.ListReports(authed(), ListOptions{})
	require.NoError(t, err)
	require.NotNil(t, reports)
	require.Empty(t, reports)
}

func TestDownloadReport(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/report/r1/download", r.URL.Path)
		require.Equal(t, "tok-123", r.Header.Get(TokenHeader))
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="report_r1.md"`)
		_, _ = w.Write([]byte("# Report\n"))
	})

	var buf bytes.Buffer
	d, err := c.DownloadReport(authed(), "r1", &buf)
	require.NoError(t, err)
	require.Equal(t, "report_r1.md", d.Filename)
	require.Equal(t, int64(9), d.Bytes)
	require.Equal(t, "# Report\n", buf.String())
}

func TestDownloadReport_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "report not found"})
	})

	var buf bytes.Buffer
	_, err := c.DownloadReport(authed(), "missing", &buf)
	require.True(t, IsNotFound(err))
	require.Zero(t, buf.Len())
}

func TestFilenameFallback(t *testing.T) {
	require.Equal(t, "abc.md", filenameFrom("", "abc"))
	require.Equal(t, "x.md", filenameFrom(`attachment; filename="x.md"`, "abc"))
}
