package command

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/render"
	"github.com/adamavenir/agora/internal/thread"
	"github.com/adamavenir/agora/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewThreadCmd creates the thread command.
func NewThreadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread <conversation>",
		Short: "Show a conversation's messages",
		Long: `Open a conversation, mark it read and print its history.

The conversation may be given by id, id prefix, or name.

Examples:
  agora thread dm-3f2a
  agora thread "Algorithms study group" --last 20
  agora thread dm-3f2a --follow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := ctx.openConversation(cmd, args[0]); err != nil {
				return writeCommandError(cmd, err)
			}
			conv, _ := ctx.Messenger.Active()
			follow, _ := cmd.Flags().GetBool("follow")
			plan := ctx.Messenger.Plan()
			if last, _ := cmd.Flags().GetInt("last"); last > 0 && len(plan) > last {
				plan = plan[len(plan)-last:]
			}

			if ctx.JSONMode {
				messages := make([]types.Message, 0, len(plan))
				for _, entry := range plan {
					messages = append(messages, entry.Message)
				}
				return writeJSON(cmd, map[string]any{"conversation": conv, "messages": messages})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", core.DisplayName(conv, ctx.Messenger.Self()))
			if len(plan) == 0 && !follow {
				fmt.Fprintln(w, "No messages yet. Say hello with: agora send "+conv.ID+" <text>")
				return nil
			}
			for _, line := range render.ThreadLines(conv, plan, ctx.renderOptions(cmd)) {
				fmt.Fprintln(w, line)
			}
			if follow {
				return followThread(cmd, ctx, conv)
			}
			return nil
		},
	}

	cmd.Flags().Int("last", 0, "show only the newest N messages")
	cmd.Flags().Bool("follow", false, "keep printing new messages until interrupted")

	return cmd
}

// followThread polls the open conversation every refresh interval and prints
// messages as they arrive, until interrupted.
func followThread(cmd *cobra.Command, c *CommandContext, conv types.Conversation) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ticker := time.NewTicker(c.Config.RefreshInterval)
	defer ticker.Stop()

	w := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		fresh, err := c.Messenger.CatchUp(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.Logger.Warn("thread poll failed", zap.String("conversation", conv.ID), zap.Error(err))
			continue
		}
		if len(fresh) == 0 {
			continue
		}
		for _, line := range render.ThreadLines(conv, newEntries(c.Messenger.Plan(), fresh), c.renderOptions(cmd)) {
			fmt.Fprintln(w, line)
		}
	}
}

// newEntries picks the plan entries for the given messages.
func newEntries(plan []thread.Entry, fresh []types.Message) []thread.Entry {
	ids := make(map[string]struct{}, len(fresh))
	for _, msg := range fresh {
		ids[msg.ID] = struct{}{}
	}
	var out []thread.Entry
	for _, entry := range plan {
		if _, ok := ids[entry.Message.ID]; ok {
			out = append(out, entry)
		}
	}
	return out
}

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <conversation> <text...>",
		Short: "Send a message",
		Long: `Send a message to a conversation.

Examples:
  agora send dm-3f2a "see you at 5"
  agora send dm-3f2a --reply msg-12 "yes, recursion is fine"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := ctx.openConversation(cmd, args[0]); err != nil {
				return writeCommandError(cmd, err)
			}
			content := strings.Join(args[1:], " ")

			var sent types.Message
			if reply, _ := cmd.Flags().GetString("reply"); reply != "" {
				target, err := ctx.resolveMessageRef(reply)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				sent, err = ctx.Messenger.Reply(commandContext(cmd), target, content)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			} else {
				sent, err = ctx.Messenger.Send(commandContext(cmd), content)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}

			if ctx.JSONMode {
				return writeJSON(cmd, sent)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent #%s\n", sent.ID)
			return nil
		},
	}

	cmd.Flags().String("reply", "", "message id to reply to")

	return cmd
}

// NewEditCmd creates the edit command.
func NewEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <conversation> <message> <text...>",
		Short: "Edit one of your messages",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			msgID, err := ctx.openMessage(cmd, args[0], args[1])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := ctx.Messenger.Edit(commandContext(cmd), msgID, strings.Join(args[2:], " ")); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{"id": msgID, "edited": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Edited #%s\n", msgID)
			return nil
		},
	}
}

// NewRmCmd creates the rm command.
func NewRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <conversation> <message>",
		Short: "Delete one of your messages",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			msgID, err := ctx.openMessage(cmd, args[0], args[1])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := ctx.Messenger.Delete(commandContext(cmd), msgID); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{"id": msgID, "deleted": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%s\n", msgID)
			return nil
		},
	}
}

// NewReactCmd creates the react command.
func NewReactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "react <conversation> <message> <emoji>",
		Short: "Toggle a reaction on a message",
		Long: `Toggle a reaction. Reacting again with the same emoji removes it.

Examples:
  agora react dm-3f2a msg-12 👍`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			msgID, err := ctx.openMessage(cmd, args[0], args[1])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := ctx.Messenger.React(commandContext(cmd), msgID, args[2]); err != nil {
				return writeCommandError(cmd, err)
			}

			var reactions types.Reactions
			for _, msg := range ctx.Messenger.Messages() {
				if msg.ID == msgID {
					reactions = msg.Reactions
				}
			}
			emoji, _ := core.NormalizeReaction(args[2])
			on := reactions.Has(emoji, ctx.Messenger.Self())

			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{"id": msgID, "emoji": emoji, "reacted": on, "reactions": reactions})
			}
			verb := "Reacted"
			if !on {
				verb = "Removed reaction"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s on #%s\n", verb, emoji, msgID)
			return nil
		},
	}
}

func (c *CommandContext) openMessage(cmd *cobra.Command, convRef, msgRef string) (string, error) {
	if err := c.openConversation(cmd, convRef); err != nil {
		return "", err
	}
	return c.resolveMessageRef(msgRef)
}
