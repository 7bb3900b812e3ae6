package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ccastromar/mirofish-console/internal/app"
	"github.com/ccastromar/mirofish-console/internal/session"
)

// readLine reads one line of r, trimming the line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCmd(c *cli) *cobra.Command {
	var form app.LoginForm
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the backend",
		Long: `Log in with a username and password. The credentials are checked by the
backend; on success the session is stored until 'console logout'.

Examples:
  console login -u admin -p admin123
  echo "$PASSWORD" | console login -u admin --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				form.Password = pw
			}
			s, err := c.app.Login(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s logged in as %s\n", okColor.Sprint("✓"), s.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "Password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return withRoute(cmd, "login")
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := session.FromContext(cmd.Context())
			name := s.Username
			if remote {
				u, err := c.app.Client.CurrentUser(cmd.Context())
				if err != nil {
					return err
				}
				name = u.Username
			}
			out := map[string]any{"username": name, "backend": c.app.Env.APIBaseURL}
			return c.render(cmd.OutOrStdout(), out, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "USER\t%s\n", name)
				fmt.Fprintf(tw, "BACKEND\t%s\n", c.app.Env.APIBaseURL)
			})
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the backend instead of the stored session")
	return withRoute(cmd, "home")
}

func newSettingsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Change account settings",
	}
	cmd.AddCommand(newPasswordCmd(c), newUsernameCmd(c))
	return cmd
}

func newPasswordCmd(c *cli) *cobra.Command {
	var form app.PasswordForm
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := c.app.ChangePassword(cmd.Context(), form)
			if err != nil {
				return err
			}
			if msg == "" {
				msg = "password changed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okColor.Sprint("✓"), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Old, "old", "", "Current password")
	cmd.Flags().StringVar(&form.New, "new", "", fmt.Sprintf("New password (at least %d characters)", app.MinPasswordLen))
	cmd.Flags().StringVar(&form.Confirm, "confirm", "", "Repeat the new password")
	return withRoute(cmd, "settings")
}

func newUsernameCmd(c *cli) *cobra.Command {
	var form app.UsernameForm
	cmd := &cobra.Command{
		Use:   "username",
		Short: "Change the account username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.app.ChangeUsername(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s username changed to %s\n", okColor.Sprint("✓"), s.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.NewUsername, "new", "", fmt.Sprintf("New username (at least %d characters)", app.MinUsernameLen))
	cmd.Flags().StringVar(&form.Password, "password", "", "Current password")
	return withRoute(cmd, "settings")
}
