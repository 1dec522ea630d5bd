package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ClinicFlow2/frontend/internal/app"
	"github.com/ClinicFlow2/frontend/internal/clinic"
	"github.com/ClinicFlow2/frontend/internal/prefs"
)

// credentialPrompt asks for whatever part of the credentials is missing.
type credentialPrompt func(ctx context.Context, username string) (string, string, error)

// huhPrompt is the interactive sign-in form.
func huhPrompt(ctx context.Context, username string) (string, string, error) {
	var password string
	required := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", field)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(required("password")),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", "", errors.New("sign-in cancelled")
		}
		return "", "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(username), password, nil
}

func newLoginCommand(g *globalFlags, prompt credentialPrompt) *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in to the backend. The access and refresh tokens are stored
in the configured credential store and reused by later commands and the
dashboard.

Examples:
  clinicflow login
  clinicflow login --username dr.house
  echo "$PASSWORD" | clinicflow login --username dr.house --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withEnv(func(env *app.Env) error {
				user := strings.TrimSpace(username)
				if user == "" {
					user = env.Prefs.Username
				}

				var password string
				if passwordStdin {
					if user == "" {
						return errors.New("--username is required with --password-stdin")
					}
					secret, err := readPassword(cmd.InOrStdin())
					if err != nil {
						return err
					}
					password = secret
				} else {
					u, p, err := prompt(cmd.Context(), user)
					if err != nil {
						return err
					}
					user, password = u, p
				}

				if _, err := env.Client.Login(cmd.Context(), user, password); err != nil {
					env.Log.Info().Err(err).Str("username", user).Msg("sign in rejected")
					return err
				}
				env.Log.Info().Str("username", user).Msg("signed in")

				if env.Prefs.Username != user {
					p := env.Prefs
					p.Username = user
					if err := prefs.Save(g.prefsPath, p); err != nil {
						env.Log.Warn().Err(err).Msg("save preferences failed")
					}
				}

				printf(cmd.OutOrStdout(), "Signed in as %s.\n", user)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username (defaults to the last one used)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}

func newLogoutCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Long: `Remove the stored access and refresh tokens for the configured
backend. No request is sent to the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withEnv(func(env *app.Env) error {
				if err := env.Client.Logout(); err != nil {
					return err
				}
				env.Log.Info().Msg("signed out")
				printf(cmd.OutOrStdout(), "Signed out.\n")
				return nil
			})
		},
	}
}

func newStatusCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Long: `Show whether a session is stored and what the access token says
about it. The token is decoded locally and not verified; an expired access
token is renewed on the next request as long as the refresh token is valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withEnv(func(env *app.Env) error {
				out := cmd.OutOrStdout()
				printf(out, "Backend:  %s\n", env.Client.BaseURL())
				if !env.Client.IsAuthenticated() {
					printf(out, "Not signed in.\nUse 'clinicflow login' to authenticate.\n")
					return nil
				}
				printf(out, "Signed in\n")

				id, err := env.Client.Claims()
				if err != nil {
					printf(out, "Token:    unreadable (%v)\n", err)
					return nil
				}
				if id.Username != "" {
					printf(out, "Username: %s\n", id.Username)
				}
				if id.UserID != "" {
					printf(out, "User ID:  %s\n", id.UserID)
				}
				printf(out, "Access:   %s\n", describeExpiry(id, time.Now()))
				return nil
			})
		},
	}
}

func describeExpiry(id clinic.Identity, now time.Time) string {
	switch {
	case id.ExpiresAt.IsZero():
		return "no expiry"
	case id.Expired(now):
		return fmt.Sprintf("expired %s (renews on next request)", id.ExpiresAt.Local().Format(time.RFC3339))
	default:
		return fmt.Sprintf("valid until %s", id.ExpiresAt.Local().Format(time.RFC3339))
	}
}
