package tui

import (
	"context"
	"time"

	"compliance-tracker-api/internal/dto"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Approver is the part of the API client the queue needs.
type Approver interface {
	PendingApprovals(ctx context.Context) ([]dto.TaskResponse, error)
	Approve(ctx context.Context, id uint, comments string) (dto.TaskResponse, error)
	Reject(ctx context.Context, id uint, comments string) (dto.TaskResponse, error)
}

// mode is what the keyboard currently drives.
type mode int

const (
	modeList   mode = iota // browsing the queue
	modeReject             // typing a rejection comment
)

const requestTimeout = 15 * time.Second

// Model is the approval queue: tasks waiting on the logged in user.
type Model struct {
	api    Approver
	width  int
	height int

	mode   mode
	tasks  []dto.TaskResponse
	cursor int

	// Rejection comment.
	commentInput textinput.Model

	// busy is set while a decision is awaiting its response.
	busy bool

	statusMsg string
	statusErr bool

	quitting bool
}

// New creates a queue model over api.
func New(api Approver) Model {
	ci := textinput.New()
	ci.Placeholder = "Reason for rejection..."
	ci.CharLimit = 500
	ci.Width = 50

	return Model{
		api:          api,
		mode:         modeList,
		commentInput: ci,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadQueue()
}

type queueLoadedMsg struct {
	tasks []dto.TaskResponse
	err   error
}

type decidedMsg struct {
	task   dto.TaskResponse
	action string
	err    error
}

func (m Model) loadQueue() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tasks, err := m.api.PendingApprovals(ctx)
		return queueLoadedMsg{tasks: tasks, err: err}
	}
}

func (m Model) approve(id uint) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		task, err := m.api.Approve(ctx, id, "")
		return decidedMsg{task: task, action: "approved", err: err}
	}
}

func (m Model) reject(id uint, comments string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		task, err := m.api.Reject(ctx, id, comments)
		return decidedMsg{task: task, action: "rejected", err: err}
	}
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (dto.TaskResponse, bool) {
	if m.cursor < len(m.tasks) {
		return m.tasks[m.cursor], true
	}
	return dto.TaskResponse{}, false
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
}
