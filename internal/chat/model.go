// Package chat is the interactive terminal client.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/adamavenir/agora/internal/logging"
	"github.com/adamavenir/agora/internal/messenger"
	"github.com/adamavenir/agora/internal/session"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"go.uber.org/zap"
)

// Options configure chat.
type Options struct {
	Messenger       *messenger.Messenger
	Session         *session.Session
	Logger          *zap.Logger
	RefreshInterval time.Duration
	// CodeStyle is the chroma style for fenced code in messages.
	CodeStyle string
	// Open is a conversation to open at start.
	Open string
}

// Run starts the chat UI and blocks until it exits.
func Run(opts Options) error {
	model := NewModel(opts)
	defer model.Close()

	fmt.Printf("\033]0;%s\007", "agora")

	if opts.Session != nil {
		go func() {
			if err := opts.Session.Watch(model.ctx, model.logger.Named("session")); err != nil && model.ctx.Err() == nil {
				model.logger.Warn("credentials watch stopped", zap.Error(err))
			}
		}()
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	return err
}

type focusArea int

const (
	focusList focusArea = iota
	focusThread
	focusInput
)

type inputMode int

const (
	modeCompose inputMode = iota
	modeReply
	modeEdit
	modeReact
	modeStart
	modeFilter
	modeSearch
	modeGroupName
)

// Model implements the chat UI.
type Model struct {
	ctx             context.Context
	cancel          context.CancelFunc
	messenger       *messenger.Messenger
	logger          *zap.Logger
	refreshInterval time.Duration
	codeStyle       string
	openRef         string
	zoneManager     *zone.Manager

	viewport viewport.Model
	input    textarea.Model
	width    int
	height   int

	focus     focusArea
	mode      inputMode
	listIndex int
	filter    string
	// selected indexes the open thread; -1 means no message is selected.
	selected int
	// targetID is the message an edit, reply or reaction applies to.
	targetID string
	status   string
	pending  int
	// entryLines maps each thread entry to its first viewport line.
	entryLines []int
	lineCount  int

	// people swaps the conversation list for the people picker.
	people      bool
	peopleTab   peopleTab
	peopleIndex int
}

// NewModel creates a chat model. Nothing is fetched until Init.
func NewModel(opts Options) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 15 * time.Second
	}
	return &Model{
		ctx:             ctx,
		cancel:          cancel,
		messenger:       opts.Messenger,
		logger:          logging.OrNop(opts.Logger),
		refreshInterval: opts.RefreshInterval,
		codeStyle:       opts.CodeStyle,
		openRef:         opts.Open,
		zoneManager:     zone.New(),
		viewport:        viewport.New(0, 0),
		input:           newInputModel(),
		focus:           focusList,
		selected:        -1,
	}
}

// Init loads the conversation list and starts the refresh clock.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.fetchConversations(), m.tick())
}

// Close cancels in-flight requests and background watchers.
func (m *Model) Close() {
	m.cancel()
	m.zoneManager.Close()
}
