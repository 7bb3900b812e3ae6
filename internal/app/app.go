package app

import (
	"context"
	"fmt"

	"github.com/ccastromar/mirofish-console/internal/api"
	"github.com/ccastromar/mirofish-console/internal/config"
	"github.com/ccastromar/mirofish-console/internal/guard"
	"github.com/ccastromar/mirofish-console/internal/logx"
	"github.com/ccastromar/mirofish-console/internal/retry"
	"github.com/ccastromar/mirofish-console/internal/session"
)

// App is the console: configuration, the persisted session and the backend
// client, wired together.
type App struct {
	Env    config.EnvVars
	Client *api.Client
	Store  session.Store
}

// New builds an App from env, persisting the session in env.SessionFile.
func New(env config.EnvVars) *App {
	return NewWithStore(env, session.NewFileStore(env.SessionFile))
}

// NewWithStore is New with an explicit session store.
func NewWithStore(env config.EnvVars, store session.Store) *App {
	c := api.NewClient(env.APIBaseURL)
	if env.HTTPTimeout > 0 {
		c.Timeout = env.HTTPTimeout
		c.HTTP.Timeout = env.HTTPTimeout
	}
	c.Retry = retry.New(env.RetryAttempts, env.RetryDelay)
	return &App{Env: env, Client: c, Store: store}
}

// Session loads the stored session and returns ctx carrying it.
func (a *App) Session(ctx context.Context) (context.Context, session.Session, error) {
	s, err := a.Store.Load()
	if err != nil {
		return ctx, session.Anonymous(), fmt.Errorf("loading session: %w", err)
	}
	return session.NewContext(ctx, s), s, nil
}

// Navigate checks whether the session in ctx may open the route named name.
// path is the concrete location kept as the post-login redirect.
func (a *App) Navigate(ctx context.Context, name, path string) error {
	r, ok := guard.ByName(name)
	if !ok {
		return fmt.Errorf("unknown route %q", name)
	}
	if path == "" {
		path = r.Path
	}
	err := guard.Check(r, path, session.FromContext(ctx))
	if err != nil {
		logx.Debug("Console", "navigation to %s refused: %v", path, err)
	}
	return err
}
