package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ccastromar/mirofish-console/internal/api"
	"github.com/ccastromar/mirofish-console/internal/logx"
	"github.com/ccastromar/mirofish-console/internal/session"
)

const (
	MinPasswordLen = 6
	MinUsernameLen = 3
)

// ValidationError is a form check that failed before any request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type LoginForm struct {
	Username string
	Password string
}

func (f LoginForm) Validate() error {
	if strings.TrimSpace(f.Username) == "" {
		return invalid("username", "is required")
	}
	if f.Password == "" {
		return invalid("password", "is required")
	}
	return nil
}

type PasswordForm struct {
	Old     string
	New     string
	Confirm string // optional; checked when set
}

func (f PasswordForm) Validate() error {
	switch {
	case f.Old == "":
		return invalid("old_password", "is required")
	case f.New == "":
		return invalid("new_password", "is required")
	case len(f.New) < MinPasswordLen:
		return invalid("new_password", "must be at least %d characters", MinPasswordLen)
	case f.New == f.Old:
		return invalid("new_password", "must differ from the current password")
	case f.Confirm != "" && f.Confirm != f.New:
		return invalid("confirm_password", "does not match")
	}
	return nil
}

type UsernameForm struct {
	NewUsername string
	Password    string
}

func (f UsernameForm) Validate() error {
	name := strings.TrimSpace(f.NewUsername)
	switch {
	case name == "":
		return invalid("new_username", "is required")
	case len(name) < MinUsernameLen:
		return invalid("new_username", "must be at least %d characters", MinUsernameLen)
	case f.Password == "":
		return invalid("password", "is required")
	}
	return nil
}

// Login verifies the credentials with the backend and stores the session.
func (a *App) Login(ctx context.Context, f LoginForm) (session.Session, error) {
	if err := f.Validate(); err != nil {
		return session.Anonymous(), err
	}
	res, err := a.Client.Login(ctx, api.Credentials{Username: strings.TrimSpace(f.Username), Password: f.Password})
	if err != nil {
		return session.Anonymous(), err
	}
	s := session.New(res.Username, res.Token)
	if err := a.Store.Save(s); err != nil {
		return session.Anonymous(), fmt.Errorf("saving session: %w", err)
	}
	logx.Info("Session", "logged in as %s", s.Username)
	return s, nil
}

// Logout clears the stored session. The backend keeps no server-side state.
func (a *App) Logout(ctx context.Context) error {
	if err := a.Store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	logx.Info("Session", "logged out")
	return nil
}

// ChangePassword returns the backend confirmation message.
func (a *App) ChangePassword(ctx context.Context, f PasswordForm) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	return a.Client.ChangePassword(ctx, api.PasswordChange{OldPassword: f.Old, NewPassword: f.New})
}

// ChangeUsername renames the account and rewrites the stored session with
// the new username and token.
func (a *App) ChangeUsername(ctx context.Context, f UsernameForm) (session.Session, error) {
	if err := f.Validate(); err != nil {
		return session.Anonymous(), err
	}
	res, err := a.Client.ChangeUsername(ctx, api.UsernameChange{
		NewUsername: strings.TrimSpace(f.NewUsername),
		Password:    f.Password,
	})
	if err != nil {
		return session.Anonymous(), err
	}
	s := session.New(res.Username, res.Token)
	if err := a.Store.Save(s); err != nil {
		return s, fmt.Errorf("saving session: %w", err)
	}
	logx.Info("Session", "username changed to %s", s.Username)
	return s, nil
}
