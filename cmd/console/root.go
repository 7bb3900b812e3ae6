package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccastromar/mirofish-console/internal/api"
	"github.com/ccastromar/mirofish-console/internal/app"
	"github.com/ccastromar/mirofish-console/internal/config"
	"github.com/ccastromar/mirofish-console/internal/guard"
	"github.com/ccastromar/mirofish-console/internal/logx"
)

// routeAnnotation names the guard route a command opens.
const routeAnnotation = "route"

const metricsFileFlag = "metrics-file"

// cli is the state shared by every command of one invocation.
type cli struct {
	app    *app.App
	output string
}

// newRootCmd creates the root command.
func newRootCmd() *cobra.Command {
	c := &cli{}
	var (
		profile string
		envFile string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Terminal client for the report backend",
		Long: `console drives the report backend over its REST API.

Log in once with 'console login'; the session is kept in the user state
directory until 'console logout'. Report generation and chat requests are
retried on failure (CONSOLE_RETRY_ATTEMPTS, CONSOLE_RETRY_DELAY).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			env, err := config.LoadEnv(files...)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logx.SetEnv(env.AppEnv)
			logx.SetLevel(logx.ParseLevel(env.LogLevel))
			if verbose {
				logx.SetLevel(logx.LevelDebug)
			}

			profiles, err := config.LoadProfiles(env.ProfilesFile)
			if err != nil {
				return err
			}
			resolved, err := config.Resolve(*env, profiles, profile)
			if err != nil {
				return err
			}
			logx.Debug("Config", "backend %s (timeout %s, %d attempts every %s)",
				resolved.APIBaseURL, resolved.HTTPTimeout, resolved.RetryAttempts, resolved.RetryDelay)

			c.app = appCtor(resolved)
			ctx, _, err := c.app.Session(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)

			if route := cmd.Annotations[routeAnnotation]; route != "" {
				return c.app.Navigate(ctx, route, routePath(route, args))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&profile, "profile", "", "Backend profile from the profiles file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Extra .env file to load")
	cmd.PersistentFlags().StringVarP(&c.output, "output", "o", formatTable, "Output format: table, json or yaml")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().String(metricsFileFlag, "", "Write backend call metrics to this file (Prometheus text format)")

	cmd.AddCommand(newLoginCmd(c))
	cmd.AddCommand(newLogoutCmd(c))
	cmd.AddCommand(newWhoamiCmd(c))
	cmd.AddCommand(newSettingsCmd(c))
	cmd.AddCommand(newReportsCmd(c))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// routePath is the concrete location a command opens, used as the
// post-login redirect.
func routePath(route string, args []string) string {
	r, ok := guard.ByName(route)
	if !ok {
		return ""
	}
	if strings.Contains(r.Path, ":id") && len(args) > 0 {
		return strings.Replace(r.Path, ":id", args[0], 1)
	}
	return r.Path
}

func withRoute(cmd *cobra.Command, route string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[routeAnnotation] = route
	return cmd
}

// describe turns an error into the one line shown to the user.
func describe(err error) string {
	var (
		redirect *guard.RedirectError
		apiErr   *api.Error
		invalid  *app.ValidationError
	)
	switch {
	case errors.As(err, &redirect) && errors.Is(err, guard.ErrLoginRequired):
		return fmt.Sprintf("not logged in: run 'console login' first (then open %s)", redirectTarget(redirect.Redirect))
	case errors.As(err, &redirect):
		if redirect.Username == "" {
			return "already logged in; run 'console logout' first"
		}
		return fmt.Sprintf("already logged in as %s; run 'console logout' first", redirect.Username)
	case errors.As(err, &apiErr) && api.IsUnauthorized(err):
		return "session rejected by the backend (" + apiErr.Message + "); run 'console login' again"
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.As(err, &invalid):
		return "invalid input: " + invalid.Error()
	}
	return err.Error()
}

func redirectTarget(loginURL string) string {
	_, q, ok := strings.Cut(loginURL, "?redirect=")
	if !ok {
		return guard.HomePath
	}
	if t, err := url.QueryUnescape(q); err == nil {
		return t
	}
	return q
}
