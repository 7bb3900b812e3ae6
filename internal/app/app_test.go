package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ccastromar/mirofish-console/internal/api"
	"github.com/ccastromar/mirofish-console/internal/config"
	"github.com/ccastromar/mirofish-console/internal/guard"
	"github.com/ccastromar/mirofish-console/internal/mockapi"
	"github.com/ccastromar/mirofish-console/internal/session"
)

// newTestApp runs a mock backend and returns an App talking to it.
func newTestApp(t *testing.T, opts mockapi.Options) (*App, *session.MemoryStore) {
	t.Helper()
	srv, err := mockapi.New(opts)
	require.NoError(t, err)
	stop := srv.Start(context.Background())
	t.Cleanup(stop)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	store := session.NewMemoryStore(session.Anonymous())
	a := NewWithStore(config.EnvVars{
		APIBaseURL:    ts.URL,
		HTTPTimeout:   5 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, store)
	return a, store
}

func loggedIn(t *testing.T, a *App) context.Context {
	t.Helper()
	_, err := a.Login(context.Background(), LoginForm{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	ctx, s, err := a.Session(context.Background())
	require.NoError(t, err)
	require.True(t, s.Authenticated)
	return ctx
}

func TestNew_ClampsRetry(t *testing.T) {
	a := NewWithStore(config.EnvVars{APIBaseURL: "http://x", RetryAttempts: 0, RetryDelay: -1}, session.NewMemoryStore(session.Anonymous()))
	require.Equal(t, 1, a.Client.Retry.Attempts)
	require.Equal(t, time.Duration(0), a.Client.Retry.Delay)
}

func TestLogin_SavesSession(t *testing.T) {
	a, store := newTestApp(t, mockapi.Options{})

	s, err := a.Login(context.Background(), LoginForm{Username: " admin ", Password: "admin123"})
	require.NoError(t, err)
	require.Equal(t, session.New("admin", mockapi.TokenFor("admin")), s)

	stored, _ := store.Load()
	require.Equal(t, s, stored)
}

func TestLogin_RejectedLeavesSessionAnonymous(t *testing.T) {
	a, store := newTestApp(t, mockapi.Options{})

	_, err := a.Login(context.Background(), LoginForm{Username: "admin", Password: "wrong"})
	require.True(t, api.IsUnauthorized(err))

	stored, _ := store.Load()
	require.False(t, stored.Authenticated)
}

func TestLogin_ValidationSendsNothing(t *testing.T) {
	a := NewWithStore(config.EnvVars{APIBaseURL: "http://127.0.0.1:1"}, session.NewMemoryStore(session.Anonymous()))

	_, err := a.Login(context.Background(), LoginForm{Username: "", Password: "x"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "username", ve.Field)
}

func TestLogout(t *testing.T) {
	a, store := newTestApp(t, mockapi.Options{})
	loggedIn(t, a)

	require.NoError(t, a.Logout(context.Background()))
	s, _ := store.Load()
	require.Equal(t, session.Anonymous(), s)
}

func TestPasswordForm(t *testing.T) {
	tests := []struct {
		name  string
		form  PasswordForm
		field string
	}{
		{"missing old", PasswordForm{New: "abcdef"}, "old_password"},
		{"missing new", PasswordForm{Old: "abcdef"}, "new_password"},
		{"too short", PasswordForm{Old: "abcdef", New: "abc"}, "new_password"},
		{"same as old", PasswordForm{Old: "abcdef", New: "abcdef"}, "new_password"},
		{"mismatch", PasswordForm{Old: "abcdef", New: "ghijkl", Confirm: "ghijkx"}, "confirm_password"},
		{"ok", PasswordForm{Old: "abcdef", New: "ghijkl", Confirm: "ghijkl"}, ""},
		{"ok without confirm", PasswordForm{Old: "abcdef", New: "ghijkl"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestUsernameForm(t *testing.T) {
	require.Error(t, UsernameForm{NewUsername: "", Password: "x"}.Validate())
	require.Error(t, UsernameForm{NewUsername: "ab", Password: "x"}.Validate())
	require.Error(t, UsernameForm{NewUsername: "abc"}.Validate())
	require.NoError(t, UsernameForm{NewUsername: "abc", Password: "x"}.Validate())
}

func TestChangePassword(t *testing.T) {
	a, _ := newTestApp(t, mockapi.Options{})
	ctx := loggedIn(t, a)

	msg, err := a.ChangePassword(ctx, PasswordForm{Old: "admin123", New: "s3cret!", Confirm: "s3cret!"})
	require.NoError(t, err)
	require.NotEmpty(t, msg)

	require.NoError(t, a.Logout(ctx))
	_, err = a.Login(context.Background(), LoginForm{Username: "admin", Password: "s3cret!"})
	require.NoError(t, err)
}

func TestChangeUsername_RewritesSession(t *testing.T) {
	a, store := newTestApp(t, mockapi.Options{})
	ctx := loggedIn(t, a)

	s, err := a.ChangeUsername(ctx, UsernameForm{NewUsername: "operator", Password: "admin123"})
	require.NoError(t, err)
	require.Equal(t, "operator", s.Username)

	stored, _ := store.Load()
	require.Equal(t, s, stored)

	ctx, _, err = a.Session(context.Background())
	require.NoError(t, err)
	u, err := a.Client.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "operator", u.Username)
}

func TestNavigate(t *testing.T) {
	a := NewWithStore(config.EnvVars{APIBaseURL: "http://x"}, session.NewMemoryStore(session.Anonymous()))
	anon := session.NewContext(context.Background(), session.Anonymous())
	authed := session.NewContext(context.Background(), session.New("admin", "t"))

	err := a.Navigate(anon, "report", "/report/r1")
	require.ErrorIs(t, err, guard.ErrLoginRequired)
	var re *guard.RedirectError
	require.True(t, errors.As(err, &re))
	require.Equal(t, "/login?redirect=%2Freport%2Fr1", re.Redirect)

	require.NoError(t, a.Navigate(anon, "login", ""))
	require.ErrorIs(t, a.Navigate(authed, "login", ""), guard.ErrAlreadyLoggedIn)
	require.NoError(t, a.Navigate(authed, "settings", ""))
	require.Error(t, a.Navigate(authed, "nowhere", ""))
}

func TestGenerateWaitAndDownload(t *testing.T) {
	a, _ := newTestApp(t, mockapi.Options{FailFirst: 2})
	ctx := loggedIn(t, a)

	gen, err := a.Client.GenerateReport(ctx, api.GenerateRequest{SimulationID: "sim_app"})
	require.NoError(t, err)

	var polls int
	st, err := a.WaitForTask(ctx, gen.TaskID, 5*time.Millisecond, func(api.TaskStatus) { polls++ })
	require.NoError(t, err)
	require.Equal(t, api.StatusCompleted, st.Status)
	require.Positive(t, polls)

	var lines []string
	require.NoError(t, a.FollowConsole(ctx, gen.ReportID, 5*time.Millisecond, func(l string) { lines = append(lines, l) }))
	require.NotEmpty(t, lines)

	dir := t.TempDir()
	results, err := a.DownloadAll(ctx, dir, []string{gen.ReportID, "missing"}, 2)
	require.Error(t, err)
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.True(t, api.IsNotFound(results[1].Err))

	body, err := os.ReadFile(filepath.Join(dir, gen.ReportID+".md"))
	require.NoError(t, err)
	require.Contains(t, string(body), "sim_app")

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".download-*"))
	require.Empty(t, leftovers)
}
