// Package api is the console's REST client for the report backend.
//
// Every method returns (T, error) and every failure is an *Error. The auth
// token is taken from the session carried by the request context and sent
// as X-Auth-Token. GenerateReport and Chat go through the retry dispatcher;
// all other calls are made once.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ccastromar/mirofish-console/internal/logx"
	"github.com/ccastromar/mirofish-console/internal/metrics"
	"github.com/ccastromar/mirofish-console/internal/retry"
	"github.com/ccastromar/mirofish-console/internal/session"
)

const (
	// TokenHeader carries the opaque session token.
	TokenHeader = "X-Auth-Token"
	// RequestIDHeader correlates console and backend logs.
	RequestIDHeader = "X-Request-ID"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration
	Retry   retry.Dispatcher
}

// NewClient returns a client with a 30s timeout and the default dispatcher.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		Timeout: 30 * time.Second,
		Retry:   retry.Default(),
	}
}

// envelope is the JSON shape of every backend response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	to := c.Timeout
	if to <= 0 {
		to = 30 * time.Second
	}
	return &http.Client{Timeout: to}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if tok := session.FromContext(ctx).Token; tok != "" {
		req.Header.Set(TokenHeader, tok)
	}
	return req, nil
}

// send performs the request and returns the response when the status is
// 2xx. Any other outcome becomes an *Error.
func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, body any) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error(), Err: err}
	}
	logx.Debug("Api", "%s %s id=%s", method, req.URL.Path, req.Header.Get(RequestIDHeader))

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &Error{Op: op, Message: "request failed: " + err.Error(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, errorFromResponse(op, resp)
	}
	return resp, nil
}

func errorFromResponse(op string, resp *http.Response) *Error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &Error{Op: op, StatusCode: resp.StatusCode}

	var env envelope
	if json.Unmarshal(b, &env) == nil && env.Error != "" {
		e.Message = env.Error
		return e
	}
	e.Message = fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if body := strings.TrimSpace(string(b)); body != "" && len(body) <= 512 {
		e.Message += ": " + body
	}
	return e
}

// call sends a JSON request and decodes the envelope's data into out
// (out may be nil). It returns the envelope's message.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out any) (msg string, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.Outcome(err)
		metrics.APICalls.WithLabelValues(op, outcome).Inc()
		metrics.APICallDur.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
		if err != nil {
			logx.Debug("Api", "%s failed after %v: %v", op, time.Since(start), err)
		}
	}()

	resp, err := c.send(ctx, op, method, path, query, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", &Error{Op: op, StatusCode: resp.StatusCode, Message: "invalid response: " + err.Error(), Err: err}
	}
	if !env.Success {
		m := env.Error
		if m == "" {
			m = "request failed"
		}
		return "", &Error{Op: op, StatusCode: resp.StatusCode, Message: m}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", &Error{Op: op, StatusCode: resp.StatusCode, Message: "invalid response data: " + err.Error(), Err: err}
		}
	}
	return env.Message, nil
}

// get is call for GET requests decoding into a fresh T.
func get[T any](ctx context.Context, c *Client, op, path string, query url.Values) (T, error) {
	var out T
	_, err := c.call(ctx, op, http.MethodGet, path, query, nil, &out)
	return out, err
}

func reportPath(id string, suffix ...string) string {
	p := "/api/report/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}
