package command

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/adamavenir/agora/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token for the backend",
		Long: `Store the bearer token issued by the platform.

The user id is read from the token's subject claim unless --user-id is given.
Without --token the token is read from stdin.

Examples:
  agora login --token eyJhbGciOi...
  pbpaste | agora login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			token, _ := cmd.Flags().GetString("token")
			userID, _ := cmd.Flags().GetString("user-id")
			name, _ := cmd.Flags().GetString("name")

			if strings.TrimSpace(token) == "" {
				token, err = readToken(cmd)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}

			creds := session.Credentials{Token: token, UserID: userID, Name: name}
			sess, err := session.New(creds)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			creds.UserID = sess.UserID()
			if err := session.Save(cfg.CredentialsPath, creds); err != nil {
				return writeCommandError(cmd, err)
			}

			if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
				return writeJSON(cmd, map[string]any{
					"user_id":     sess.UserID(),
					"credentials": cfg.CredentialsPath,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (credentials in %s)\n", sess.UserID(), cfg.CredentialsPath)
			return nil
		},
	}

	cmd.Flags().String("token", "", "bearer token")
	cmd.Flags().String("user-id", "", "user id, when the token has no subject claim")
	cmd.Flags().String("name", "", "display name used for optimistic messages")

	return cmd
}

func readToken(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and unread total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			m := ctx.Messenger
			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{
					"user_id":       ctx.Session.UserID(),
					"name":          ctx.Session.Name(),
					"base_url":      ctx.Config.BaseURL,
					"conversations": len(m.Conversations()),
					"unread":        m.UnreadTotal(),
				})
			}

			out := cmd.OutOrStdout()
			name := ctx.Session.Name()
			if name == "" {
				name = ctx.Session.UserID()
			}
			fmt.Fprintf(out, "%s (%s) @ %s\n", name, ctx.Session.UserID(), ctx.Config.BaseURL)
			fmt.Fprintf(out, "%d conversations, %d unread\n", len(m.Conversations()), m.UnreadTotal())
			return nil
		},
	}
	return cmd
}
