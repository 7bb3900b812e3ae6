// Package session holds the console's login state.
//
// A Session is a plain value. It travels through context.Context and is
// persisted by a Store between runs. The authenticated flag is trusted as is
// until logout; the backend remains the only judge of token validity.
package session

import "context"

// Session is the cached login triple.
type Session struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username"`
	Token         string `json:"token"`
}

// New returns an authenticated session.
func New(username, token string) Session {
	return Session{Authenticated: true, Username: username, Token: token}
}

// Anonymous is the logged-out session.
func Anonymous() Session { return Session{} }

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session in ctx, or the anonymous session.
func FromContext(ctx context.Context) Session {
	if ctx == nil {
		return Anonymous()
	}
	s, _ := ctx.Value(ctxKey{}).(Session)
	return s
}
