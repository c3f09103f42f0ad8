package command

import (
	"encoding/json"
	"os"
	"time"

	"github.com/adamavenir/agora/internal/render"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultWidth = 80

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// colorEnabled reports whether output goes to a terminal that wants colour.
func colorEnabled(cmd *cobra.Command) bool {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if cmd.OutOrStdout() != os.Stdout {
		return false
	}
	return term.IsTerminal(stdoutFd())
}

func terminalWidth(cmd *cobra.Command) int {
	if cmd.OutOrStdout() != os.Stdout || !term.IsTerminal(stdoutFd()) {
		return defaultWidth
	}
	width, _, err := term.GetSize(stdoutFd())
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

func (c *CommandContext) renderOptions(cmd *cobra.Command) render.Options {
	return render.Options{
		Width:     terminalWidth(cmd),
		Color:     colorEnabled(cmd),
		Now:       time.Now(),
		Self:      c.Session.UserID(),
		ShowIDs:   true,
		CodeStyle: c.Config.CodeStyle,
	}
}
