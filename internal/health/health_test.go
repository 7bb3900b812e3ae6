package health

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLiveHandler_OK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	w := httptest.NewRecorder()

	LiveHandler(w, req)

	res := w.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if string(body) == "" {
		t.Fatalf("expected non-empty body")
	}
}

func TestReadyHandler_WorkersDown(t *testing.T) {
	h := ReadyHandler(CheckerFunc(func() error { return errors.New("workers not running") }))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	h(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestReadyHandler_StopsAtFirstFailure(t *testing.T) {
	called := false
	h := ReadyHandler(
		CheckerFunc(func() error { return errors.New("down") }),
		CheckerFunc(func() error { called = true; return nil }),
	)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if called {
		t.Fatalf("second check should not run")
	}
}

func TestReadyHandler_OK(t *testing.T) {
	h := ReadyHandler(CheckerFunc(func() error { return nil }))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	h(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if string(body) == "" {
		t.Fatalf("expected non-empty body")
	}
}
