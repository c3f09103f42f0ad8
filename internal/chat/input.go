package chat

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/lipgloss"
)

func newInputModel() textarea.Model {
	input := textarea.New()
	input.Placeholder = placeholderFor(modeCompose)
	input.Prompt = "› "
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(1)
	input.KeyMap.InsertNewline.SetEnabled(false)
	applyInputStyles(&input, textColor, blurText)
	return input
}

func applyInputStyles(input *textarea.Model, focused, blurred lipgloss.Color) {
	input.FocusedStyle.Text = lipgloss.NewStyle().Foreground(focused)
	input.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(accentColor)
	input.FocusedStyle.CursorLine = lipgloss.NewStyle()
	input.BlurredStyle.Text = lipgloss.NewStyle().Foreground(blurred)
	input.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(blurred)
}
