package command

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/directory"
	"github.com/adamavenir/agora/internal/types"
	"github.com/spf13/cobra"
)

// NewContactsCmd creates the contacts command.
func NewContactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List people you share conversations with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			view := ctx.Messenger.Directory().LoadContacts(commandContext(cmd))
			return writeView(cmd, ctx, view, "No contacts yet. Find people with: agora search <name>")
		},
	}
}

// NewFollowingCmd creates the following command.
func NewFollowingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "following",
		Short: "List people you follow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			view := ctx.Messenger.Directory().LoadFollowing(commandContext(cmd))
			return writeView(cmd, ctx, view, "You are not following anyone.")
		},
	}
}

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search for people by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			query := strings.Join(args, " ")
			view := ctx.Messenger.Directory().Search(commandContext(cmd), query)
			return writeView(cmd, ctx, view, fmt.Sprintf("Nobody matches %q.", query))
		},
	}
}

// NewFollowCmd creates the follow command.
func NewFollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Follow a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollow(cmd, args[0], true)
		},
	}
}

// NewUnfollowCmd creates the unfollow command.
func NewUnfollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <user-id>",
		Short: "Stop following a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollow(cmd, args[0], false)
		},
	}
}

func runFollow(cmd *cobra.Command, userID string, on bool) error {
	ctx, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	defer ctx.Close()

	if on {
		err = ctx.Messenger.Follow(commandContext(cmd), userID)
	} else {
		err = ctx.Messenger.Unfollow(commandContext(cmd), userID)
	}
	if err != nil {
		return writeCommandError(cmd, err)
	}

	if ctx.JSONMode {
		return writeJSON(cmd, map[string]any{"user_id": userID, "following": on})
	}
	verb := "Following"
	if !on {
		verb = "Unfollowed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, userID)
	return nil
}

func writeView(cmd *cobra.Command, ctx *CommandContext, view directory.View, emptyText string) error {
	if ctx.JSONMode {
		return writeJSON(cmd, map[string]any{
			"state": view.State.String(),
			"items": view.Items,
		})
	}
	out := cmd.OutOrStdout()
	if view.State == types.LoadFailed {
		fmt.Fprintf(out, "Could not load this list (%v). Showing nothing; try again.\n", view.Err)
		return nil
	}
	if view.Empty() {
		fmt.Fprintln(out, emptyText)
		return nil
	}
	writeContacts(out, view.Items, time.Now())
	return nil
}

func writeContacts(out io.Writer, contacts []types.Contact, now time.Time) {
	for _, c := range contacts {
		status := "offline"
		if c.Online {
			status = "online"
		} else if rel := core.RelativeTime(c.LastActiveAt, now); rel != "" {
			status = "active " + rel
		}
		var flags []string
		if c.IsFollowing {
			flags = append(flags, "following")
		}
		if c.IsFollower {
			flags = append(flags, "follows you")
		}
		if c.MutualConnectionCount > 0 {
			flags = append(flags, fmt.Sprintf("%d mutual", c.MutualConnectionCount))
		}
		line := fmt.Sprintf("%-20s %-24s %-10s %s", c.ID, c.Name, c.Role, status)
		if len(flags) > 0 {
			line += "  [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintln(out, line)
		if c.Bio != nil {
			fmt.Fprintf(out, "%20s %s\n", "", core.Truncate(*c.Bio, 60))
		}
	}
}
