package api

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ccastromar/mirofish-console/internal/metrics"
	"github.com/ccastromar/mirofish-console/internal/retry"
)

// GenerateReport starts report generation. It is retried by c.Retry, so a
// cold or briefly unavailable backend is tolerated.
func (c *Client) GenerateReport(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	return retry.Do(ctx, c.Retry, func(ctx context.Context) (GenerateResult, error) {
		var out GenerateResult
		_, err := c.call(ctx, "generate report", http.MethodPost, "/api/report/generate", nil, req, &out)
		return out, err
	})
}

// GenerateStatus polls a generation task.
func (c *Client) GenerateStatus(ctx context.Context, q StatusQuery) (TaskStatus, error) {
	query := url.Values{}
	if q.TaskID != "" {
		query.Set("task_id", q.TaskID)
	}
	if q.SimulationID != "" {
		query.Set("simulation_id", q.SimulationID)
	}
	return get[TaskStatus](ctx, c, "generate status", "/api/report/generate/status", query)
}

// AgentLog returns structured agent log entries from fromLine on.
func (c *Client) AgentLog(ctx context.Context, reportID string, fromLine int) (LogPage[AgentLogEntry], error) {
	return get[LogPage[AgentLogEntry]](ctx, c, "agent log", reportPath(reportID, "agent-log"), fromLineQuery(fromLine))
}

// ConsoleLog returns raw console lines from fromLine on.
func (c *Client) ConsoleLog(ctx context.Context, reportID string, fromLine int) (LogPage[string], error) {
	return get[LogPage[string]](ctx, c, "console log", reportPath(reportID, "console-log"), fromLineQuery(fromLine))
}

func fromLineQuery(n int) url.Values {
	if n <= 0 {
		return nil
	}
	return url.Values{"from_line": {strconv.Itoa(n)}}
}

func (c *Client) GetReport(ctx context.Context, id string) (Report, error) {
	return get[Report](ctx, c, "get report", reportPath(id), nil)
}

// Chat asks the report agent a question. Retried like GenerateReport.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return retry.Do(ctx, c.Retry, func(ctx context.Context) (ChatResponse, error) {
		var out ChatResponse
		_, err := c.call(ctx, "chat", http.MethodPost, "/api/report/chat", nil, req, &out)
		return out, err
	})
}

// ResumeReport restarts an interrupted or failed generation.
func (c *Client) ResumeReport(ctx context.Context, id string) (ResumeResult, error) {
	var out ResumeResult
	_, err := c.call(ctx, "resume report", http.MethodPost, reportPath(id, "resume"), nil, nil, &out)
	return out, err
}

func (c *Client) ListReports(ctx context.Context, opts ListOptions) ([]Report, error) {
	query := url.Values{}
	if opts.SimulationID != "" {
		query.Set("simulation_id", opts.SimulationID)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	reports, err := get[[]Report](ctx, c, "list reports", "/api/report/list", query)
	if reports == nil && err == nil {
		reports = []Report{}
	}
	return reports, err
}

// DeleteReport returns the backend's confirmation message.
func (c *Client) DeleteReport(ctx context.Context, id string) (string, error) {
	return c.call(ctx, "delete report", http.MethodDelete, reportPath(id), nil, nil, nil)
}

// DownloadReport streams the report file into w.
func (c *Client) DownloadReport(ctx context.Context, id string, w io.Writer) (d Download, err error) {
	const op = "download report"
	start := time.Now()
	defer func() {
		outcome := metrics.Outcome(err)
		metrics.APICalls.WithLabelValues(op, outcome).Inc()
		metrics.APICallDur.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.send(ctx, op, http.MethodGet, reportPath(id, "download"), nil, nil)
	if err != nil {
		return Download{}, err
	}
	defer resp.Body.Close()

	d = Download{
		Filename:    filenameFrom(resp.Header.Get("Content-Disposition"), id),
		ContentType: resp.Header.Get("Content-Type"),
	}
	n, err := io.Copy(w, resp.Body)
	d.Bytes = n
	if err != nil {
		return d, &Error{Op: op, StatusCode: resp.StatusCode, Message: "reading body: " + err.Error(), Err: err}
	}
	return d, nil
}

func filenameFrom(disposition, id string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	return id + ".md"
}
