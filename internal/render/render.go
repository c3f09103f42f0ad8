// Package render turns conversations and thread display plans into terminal
// text for the CLI and the TUI.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/thread"
	"github.com/adamavenir/agora/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	gutterWidth    = 5
	previewLength  = 48
	dividerRuneLen = 3
)

var (
	accentColor  = lipgloss.Color("111")
	ownColor     = lipgloss.Color("157")
	metaColor    = lipgloss.Color("242")
	unreadColor  = lipgloss.Color("216")
	dividerColor = lipgloss.Color("240")
	replyColor   = lipgloss.Color("183")

	nameStyle    = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	ownStyle     = lipgloss.NewStyle().Foreground(ownColor).Bold(true)
	metaStyle    = lipgloss.NewStyle().Foreground(metaColor)
	badgeStyle   = lipgloss.NewStyle().Foreground(unreadColor).Bold(true)
	dividerStyle = lipgloss.NewStyle().Foreground(dividerColor)
	replyStyle   = lipgloss.NewStyle().Foreground(replyColor).Italic(true)
	mineStyle    = lipgloss.NewStyle().Foreground(ownColor)
)

// Options control terminal output.
type Options struct {
	Width int
	Color bool
	Now   time.Time
	Self  string
	// ShowIDs appends message ids so they can be passed back to commands.
	ShowIDs bool
	// CodeStyle names the chroma style for fenced code; empty means
	// DefaultCodeStyle.
	CodeStyle string
}

func (o Options) paint(style lipgloss.Style, text string) string {
	if !o.Color || text == "" {
		return text
	}
	return style.Render(text)
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// ConversationLine renders one row of the conversation list.
func ConversationLine(conv types.Conversation, opts Options) string {
	var b strings.Builder
	switch {
	case conv.IsPinned:
		b.WriteString("^ ")
	default:
		b.WriteString("  ")
	}
	b.WriteString(opts.paint(nameStyle, core.DisplayName(conv, opts.Self)))
	if conv.UnreadCount > 0 {
		badge := fmt.Sprintf(" (%d)", conv.UnreadCount)
		if conv.IsMuted {
			b.WriteString(opts.paint(metaStyle, badge))
		} else {
			b.WriteString(opts.paint(badgeStyle, badge))
		}
	}
	if conv.IsMuted {
		b.WriteString(opts.paint(metaStyle, " [muted]"))
	}
	if preview := Preview(conv, opts.Self); preview != "" {
		b.WriteString("  ")
		b.WriteString(preview)
	}
	if rel := core.RelativeTime(conv.LastMessage.Timestamp, opts.now()); rel != "" {
		b.WriteString(opts.paint(metaStyle, "  "+rel))
	}
	if opts.ShowIDs {
		b.WriteString(opts.paint(metaStyle, "  "+conv.ID))
	}
	line := b.String()
	if opts.Width > 0 && ansi.StringWidth(line) > opts.Width {
		line = ansi.Truncate(line, opts.Width, "…")
	}
	return line
}

// Preview is the single-line summary of a conversation's last message.
func Preview(conv types.Conversation, self string) string {
	content := strings.Join(strings.Fields(conv.LastMessage.Content), " ")
	if content == "" {
		return ""
	}
	if conv.LastMessage.SenderID == self {
		content = "You: " + content
	} else if conv.Type == types.ConversationGroup && conv.LastMessage.SenderID != "" {
		content = firstName(core.SenderName(conv, conv.LastMessage.SenderID)) + ": " + content
	}
	return core.Truncate(content, previewLength)
}

// ContactLine renders one row of the people picker: a check box, the name,
// presence and whether the user is followed.
func ContactLine(c types.Contact, checked bool, opts Options) string {
	box := "[ ] "
	if checked {
		box = "[x] "
	}
	name := c.Name
	if name == "" {
		name = c.ID
	}
	var meta []string
	if c.Online {
		meta = append(meta, "online")
	} else if rel := core.RelativeTime(c.LastActiveAt, opts.now()); rel != "" {
		meta = append(meta, rel)
	}
	if c.IsFollowing {
		meta = append(meta, "following")
	}
	line := box + opts.paint(nameStyle, name)
	if len(meta) > 0 {
		line += "  " + opts.paint(metaStyle, strings.Join(meta, " · "))
	}
	if opts.Width > 0 {
		line = ansi.Truncate(line, opts.Width, "…")
	}
	return line
}

// ThreadLines renders a display plan. Avatar suppression keeps the gutter so
// merged runs stay aligned.
func ThreadLines(conv types.Conversation, plan []thread.Entry, opts Options) []string {
	var lines []string
	bodyWidth := opts.Width - gutterWidth
	for _, entry := range plan {
		if entry.ShowTimestamp {
			lines = append(lines, opts.divider(core.DividerLabel(entry.Message.Timestamp, opts.now())))
		}

		gutter := strings.Repeat(" ", gutterWidth)
		if entry.ShowAvatar && !entry.IsOwn {
			gutter = padRight(opts.paint(nameStyle, "["+Initials(entry.SenderName)+"]"), gutterWidth)
		}
		blank := strings.Repeat(" ", gutterWidth)

		if entry.ShowSenderLabel {
			label := opts.paint(nameStyle, entry.SenderName)
			if entry.IsOwn {
				label = opts.paint(ownStyle, "You")
			}
			lines = append(lines, gutter+label)
			gutter = blank
		}

		if entry.Reply != nil {
			lines = append(lines, gutter+opts.paint(replyStyle, replyLine(entry.Reply)))
			gutter = blank
		}

		body := opts.body(entry.Message.Content, bodyWidth)
		if entry.IsOwn && opts.Color {
			body = mineStyle.Render(body)
		}
		bodyLines := strings.Split(body, "\n")
		last := len(bodyLines) - 1
		var suffix []string
		if entry.Message.Edited {
			suffix = append(suffix, "(edited)")
		}
		if opts.ShowIDs {
			suffix = append(suffix, "#"+entry.Message.ID)
		}
		if len(suffix) > 0 {
			bodyLines[last] += opts.paint(metaStyle, "  "+strings.Join(suffix, " "))
		}
		for i, line := range bodyLines {
			if i == 0 {
				lines = append(lines, gutter+line)
				continue
			}
			lines = append(lines, blank+line)
		}

		if len(entry.Reactions) > 0 {
			lines = append(lines, blank+opts.paint(metaStyle, ReactionLine(entry.Reactions)))
		}
	}
	return lines
}

// body highlights code fences when colour is on and wraps to width.
func (o Options) body(content string, width int) string {
	if o.Color {
		content = newHighlighter(o.CodeStyle).Highlight(content)
	}
	if width > 0 {
		content = ansi.Wrap(content, width, "")
	}
	return content
}

// ReactionLine renders reaction groups; the current user's reactions are
// starred.
func ReactionLine(groups []thread.ReactionGroup) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		part := fmt.Sprintf("%s %d", g.Emoji, g.Count)
		if g.Includes {
			part += "*"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "  ")
}

func replyLine(reply *thread.ReplyView) string {
	if !reply.Resolved {
		return fmt.Sprintf("↳ %s: %s (original removed)", reply.SenderName, reply.Content)
	}
	return fmt.Sprintf("↳ %s: %s", reply.SenderName, reply.Content)
}

// Initials returns up to two upper-case initials for a name.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

func (o Options) divider(label string) string {
	rule := strings.Repeat("─", dividerRuneLen)
	text := rule + " " + label + " "
	if o.Width > 0 {
		if pad := o.Width - ansi.StringWidth(text); pad > 0 {
			text += strings.Repeat("─", pad)
		}
	}
	return o.paint(dividerStyle, text)
}

func padRight(s string, width int) string {
	if pad := width - ansi.StringWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}
