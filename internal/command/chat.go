package command

import (
	"fmt"
	"path/filepath"

	"github.com/adamavenir/agora/internal/chat"
	"github.com/spf13/cobra"
)

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [conversation]",
		Short: "Interactive chat mode",
		Long: `Open the interactive client.

Logs go to a file while the UI owns the terminal (log.file in the config,
or agora.log next to the credentials file).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
				return writeCommandError(cmd, fmt.Errorf("--json not supported for interactive chat"))
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if cfg.Log.File == "" {
				cfg.Log.File = filepath.Join(filepath.Dir(cfg.CredentialsPath), "agora.log")
			}
			ctx, err := newContext(cmd, cfg)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			open := ""
			if len(args) > 0 {
				open = args[0]
			}
			return chat.Run(chat.Options{
				Messenger:       ctx.Messenger,
				Session:         ctx.Session,
				Logger:          ctx.Logger.Named("chat"),
				RefreshInterval: cfg.RefreshInterval,
				CodeStyle:       cfg.CodeStyle,
				Open:            open,
			})
		},
	}

	return cmd
}
