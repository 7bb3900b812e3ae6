package health

import (
	"net/http"
)

// Checker reports whether a dependency is ready to serve traffic.
type Checker interface {
	Ready() error
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func() error

func (f CheckerFunc) Ready() error { return f() }

func ReadyHandler(checks ...Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range checks {
			if err := c.Ready(); err != nil {
				http.Error(w, "not ready: "+err.Error(), 503)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
