package chat

import "github.com/charmbracelet/lipgloss"

var (
	textColor    = lipgloss.Color("252")
	blurText     = lipgloss.Color("245")
	accentColor  = lipgloss.Color("111")
	statusColor  = lipgloss.Color("241")
	errorColor   = lipgloss.Color("203")
	selectColor  = lipgloss.Color("236")
	reactColor   = lipgloss.Color("216")
	borderColor  = lipgloss.Color("238")
	focusedColor = lipgloss.Color("111")
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(statusColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)
	selectedStyle = lipgloss.NewStyle().Background(selectColor)
	modeStyle     = lipgloss.NewStyle().Foreground(reactColor).Bold(true)
)
