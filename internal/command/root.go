package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "agora"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Agora - campus messaging from the terminal",
		Long:          "Agora is a terminal client for the campus platform's direct and group messages.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "config file (default ~/.config/agora/config.yaml)")
	cmd.PersistentFlags().String("base-url", "", "backend URL (overrides config)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "disable colour output")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "log requests at debug level")

	cmd.AddCommand(
		NewLoginCmd(),
		NewWhoamiCmd(),
		NewContactsCmd(),
		NewFollowingCmd(),
		NewSearchCmd(),
		NewFollowCmd(),
		NewUnfollowCmd(),
		NewStartCmd(),
		NewConversationsCmd(),
		NewThreadCmd(),
		NewSendCmd(),
		NewEditCmd(),
		NewRmCmd(),
		NewReactCmd(),
		NewPinCmd(),
		NewUnpinCmd(),
		NewMuteCmd(),
		NewUnmuteCmd(),
		NewChatCmd(),
		NewDevServerCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
