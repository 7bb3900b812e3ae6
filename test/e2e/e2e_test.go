package e2e

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ccastromar/mirofish-console/internal/api"
	"github.com/ccastromar/mirofish-console/internal/app"
	"github.com/ccastromar/mirofish-console/internal/config"
	"github.com/ccastromar/mirofish-console/internal/guard"
	"github.com/ccastromar/mirofish-console/internal/mockapi"
	"github.com/ccastromar/mirofish-console/internal/session"
)

// startBackend serves a mock backend on a random local port until the test ends.
func startBackend(t *testing.T, opts mockapi.Options) string {
	t.Helper()
	srv, err := mockapi.New(opts)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health/ready")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)
	return base
}

// TestE2E_ReportRoundTrip logs in, generates a report through two injected
// 503s, waits for it, then lists, downloads and deletes it.
func TestE2E_ReportRoundTrip(t *testing.T) {
	base := startBackend(t, mockapi.Options{
		CredentialsFile: filepath.Join(t.TempDir(), "credentials.json"),
		FailFirst:       2,
		StepDelay:       5 * time.Millisecond,
	})

	a := app.New(config.EnvVars{
		APIBaseURL:    base,
		HTTPTimeout:   5 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    10 * time.Millisecond,
		SessionFile:   filepath.Join(t.TempDir(), "session.json"),
	})

	ctx, s, err := a.Session(context.Background())
	require.NoError(t, err)
	require.False(t, s.Authenticated)
	require.ErrorIs(t, a.Navigate(ctx, "history", ""), guard.ErrLoginRequired)

	_, err = a.Login(ctx, app.LoginForm{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	ctx, s, err = a.Session(context.Background())
	require.NoError(t, err)
	require.True(t, s.Authenticated)
	require.NoError(t, a.Navigate(ctx, "history", ""))

	gen, err := a.Client.GenerateReport(ctx, api.GenerateRequest{SimulationID: "sim_e2e"})
	require.NoError(t, err)

	st, err := a.WaitForTask(ctx, gen.TaskID, 10*time.Millisecond, nil)
	require.NoError(t, err)
	require.Equal(t, api.StatusCompleted, st.Status)

	list, err := a.Client.ListReports(ctx, api.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, gen.ReportID, list[0].ID)

	dir := t.TempDir()
	results, err := a.DownloadAll(ctx, dir, []string{gen.ReportID}, 1)
	require.NoError(t, err)
	body, err := os.ReadFile(results[0].Path)
	require.NoError(t, err)
	require.Contains(t, string(body), "Key Findings")

	_, err = a.Client.DeleteReport(ctx, gen.ReportID)
	require.NoError(t, err)
	list, err = a.Client.ListReports(ctx, api.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, a.Logout(ctx))
	_, s, err = a.Session(context.Background())
	require.NoError(t, err)
	require.Equal(t, session.Anonymous(), s)
}
