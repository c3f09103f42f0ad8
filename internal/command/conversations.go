package command

import (
	"fmt"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/render"
	"github.com/adamavenir/agora/internal/types"
	"github.com/spf13/cobra"
)

type conversationJSON struct {
	types.Conversation
	DisplayName string `json:"displayName"`
}

// NewConversationsCmd creates the conversations command.
func NewConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Long: `List conversations, pinned first and then by most recent message.

Examples:
  agora ls
  agora ls --priority
  agora ls --match 'algo*'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			m := ctx.Messenger
			priority, _ := cmd.Flags().GetBool("priority")
			match, _ := cmd.Flags().GetString("match")

			var list []types.Conversation
			switch {
			case match != "":
				list, err = m.FilterConversations(match)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			case priority:
				list = m.ConversationsByPriority()
			default:
				list = m.Conversations()
			}

			if ctx.JSONMode {
				out := make([]conversationJSON, 0, len(list))
				for _, conv := range list {
					out = append(out, conversationJSON{Conversation: conv, DisplayName: core.DisplayName(conv, m.Self())})
				}
				return writeJSON(cmd, map[string]any{"conversations": out, "unread": m.UnreadTotal()})
			}

			w := cmd.OutOrStdout()
			if len(list) == 0 {
				if match != "" {
					fmt.Fprintf(w, "No conversations match %q.\n", match)
				} else {
					fmt.Fprintln(w, "No conversations yet. Start one with: agora start <user-id>")
				}
				return nil
			}
			opts := ctx.renderOptions(cmd)
			for _, conv := range list {
				fmt.Fprintln(w, render.ConversationLine(conv, opts))
			}
			if total := m.UnreadTotal(); total > 0 {
				fmt.Fprintf(w, "\n%d unread\n", total)
			}
			return nil
		},
	}

	cmd.Flags().Bool("priority", false, "unread conversations first")
	cmd.Flags().String("match", "", "filter by name (glob or substring)")

	return cmd
}

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <user-id...>",
		Short: "Start or reopen a conversation",
		Long: `Start a conversation with one or more users.

One user gives a direct conversation; an existing one is reused.
Several users give a group conversation with a stable id.

Examples:
  agora start u-grace
  agora start u-alan u-edsger --name "Study group"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			name, _ := cmd.Flags().GetString("name")
			conv, err := ctx.Messenger.StartConversation(commandContext(cmd), args, name)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return writeJSON(cmd, conversationJSON{Conversation: conv, DisplayName: core.DisplayName(conv, ctx.Messenger.Self())})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s (%s)\n", core.DisplayName(conv, ctx.Messenger.Self()), conv.ID)
			return nil
		},
	}

	cmd.Flags().String("name", "", "group name")

	return cmd
}

// NewPinCmd creates the pin command.
func NewPinCmd() *cobra.Command {
	return flagCmd("pin", "Pin a conversation to the top of the list", "pinned", true, pinConversation)
}

// NewUnpinCmd creates the unpin command.
func NewUnpinCmd() *cobra.Command {
	return flagCmd("unpin", "Unpin a conversation", "unpinned", false, pinConversation)
}

// NewMuteCmd creates the mute command.
func NewMuteCmd() *cobra.Command {
	return flagCmd("mute", "Mute a conversation", "muted", true, muteConversation)
}

// NewUnmuteCmd creates the unmute command.
func NewUnmuteCmd() *cobra.Command {
	return flagCmd("unmute", "Unmute a conversation", "unmuted", false, muteConversation)
}

type flagSetter func(cmd *cobra.Command, ctx *CommandContext, id string, value bool) error

func pinConversation(cmd *cobra.Command, ctx *CommandContext, id string, value bool) error {
	return ctx.Messenger.Pin(commandContext(cmd), id, value)
}

func muteConversation(cmd *cobra.Command, ctx *CommandContext, id string, value bool) error {
	return ctx.Messenger.Mute(commandContext(cmd), id, value)
}

func flagCmd(use, short, past string, value bool, set flagSetter) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <conversation>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			conv, err := ctx.Messenger.Resolve(args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := set(cmd, ctx, conv.ID, value); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{"conversation": conv.ID, "action": use})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", core.DisplayName(conv, ctx.Messenger.Self()), past)
			return nil
		},
	}
}
