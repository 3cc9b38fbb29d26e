package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/ghactl/internal/domain"
)

const (
	tabRuns = iota
	tabHistory
	tabCount
)

// DefaultInterval is the refresh period when ModelConfig leaves it unset
const DefaultInterval = 10 * time.Second

// RunFetcher loads the newest workflow runs
type RunFetcher func(ctx context.Context) ([]domain.WorkflowRun, error)

// HistoryFetcher loads recorded operations
type HistoryFetcher func(ctx context.Context) ([]domain.Operation, error)

// Model is the TUI application model
type Model struct {
	// Data
	runs    []domain.WorkflowRun
	history []domain.Operation
	err     error

	// Sources
	ctx          context.Context
	fetchRuns    RunFetcher
	fetchHistory HistoryFetcher
	workflow     string
	interval     time.Duration
	now          func() time.Time

	// UI state
	width       int
	height      int
	activeTab   int
	selectedRow int
	refreshing  bool

	// Refresh
	lastRefresh time.Time
}

// ModelConfig holds the data sources for the TUI model
type ModelConfig struct {
	Context      context.Context // passed to the fetchers, defaults to Background
	Workflow     string
	Interval     time.Duration
	FetchRuns    RunFetcher
	FetchHistory HistoryFetcher // optional
	Now          func() time.Time
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	return Model{
		ctx:          cfg.Context,
		fetchRuns:    cfg.FetchRuns,
		fetchHistory: cfg.FetchHistory,
		workflow:     cfg.Workflow,
		interval:     cfg.Interval,
		now:          cfg.Now,
		activeTab:    tabRuns,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshCmd(),
		tickCmd(m.interval),
	)
}

// TickMsg triggers a refresh
type TickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// RunsMsg carries the result of a run listing
type RunsMsg struct {
	Runs []domain.WorkflowRun
	Err  error
}

// HistoryMsg carries the result of a history query
type HistoryMsg struct {
	Operations []domain.Operation
	Err        error
}

func (m Model) refreshCmd() tea.Cmd {
	cmds := []tea.Cmd{func() tea.Msg {
		if m.fetchRuns == nil {
			return RunsMsg{}
		}
		runs, err := m.fetchRuns(m.ctx)
		return RunsMsg{Runs: runs, Err: err}
	}}
	if m.fetchHistory != nil {
		cmds = append(cmds, func() tea.Msg {
			ops, err := m.fetchHistory(m.ctx)
			return HistoryMsg{Operations: ops, Err: err}
		})
	}
	return tea.Batch(cmds...)
}

// Runs returns the currently displayed runs
func (m Model) Runs() []domain.WorkflowRun {
	return m.runs
}
