// Package model is the sightline TUI. The Bubble Tea program is the dispatch
// sink for the open-timeline flow: store actions arrive as messages and are
// reduced into the App's state on the event loop.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/sightline/pkg/core"
	"github.com/modoterra/sightline/pkg/opentimeline"
	"github.com/modoterra/sightline/pkg/query"
	"github.com/modoterra/sightline/pkg/store"
	"github.com/modoterra/sightline/pkg/transport/uds"
)

// OpenTimelineClassName labels the pane that shows the opened timeline.
const OpenTimelineClassName = "open-timeline"

// Pane identifies which TUI pane is focused.
type Pane int

const (
	PaneList Pane = iota
	PaneSummary
)

// Mode identifies the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModePrompt
)

// EventSource delivers daemon-pushed events.
type EventSource interface {
	OnEvent(h uds.EventHandler)
}

// Options configures the App.
type Options struct {
	Client    query.Client // nil leaves timelines loading forever
	Events    EventSource  // optional; refreshes the list on timelines.changed
	OpenID    string       // opened on start when set
	Duplicate bool
	Logger    *slog.Logger
}

// App is the root Bubble Tea model.
type App struct {
	client query.Client
	logger *slog.Logger

	// Store
	state   store.State
	actions chan store.Action
	changed chan struct{}

	// Saved timelines
	timelines   []core.OpenTimelineResult
	selectedIdx int

	// UI
	activePane Pane
	mode       Mode
	prompt     textinput.Model
	spinner    spinner.Model
	duplicate  bool
	openID     string
	width      int
	height     int

	statusMsg string
}

// New creates a new TUI app model.
func New(opts Options) App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "timeline id"
	ti.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	a := App{
		client:     opts.Client,
		logger:     logger,
		state:      store.NewState(),
		actions:    make(chan store.Action, 64),
		changed:    make(chan struct{}, 1),
		prompt:     ti,
		spinner:    sp,
		duplicate:  opts.Duplicate,
		openID:     opts.OpenID,
		activePane: PaneList,
		mode:       ModeNormal,
	}
	if opts.Events != nil {
		changed := a.changed
		opts.Events.OnEvent(func(m uds.Message) {
			if m.Method != uds.EventTimelinesChanged {
				return
			}
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}
	return a
}

// Init starts the spinner, the action and event subscriptions, and the
// initial list fetch.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.SetWindowTitle("Sightline"),
		a.spinner.Tick,
		waitForAction(a.actions),
		waitForChange(a.changed),
		fetchListCmd(a.client, query.CacheFirst),
	}
	if a.openID != "" {
		cmds = append(cmds, openCmd(a.client, a.sink(), a.openID, a.duplicate))
	}
	return tea.Batch(cmds...)
}

// State returns the reduced store state.
func (a App) State() store.State {
	return a.state
}

// actionMsg carries one dispatched store action into the event loop.
type actionMsg struct{ action store.Action }

// openedMsg reports the end of an open.
type openedMsg struct {
	id        string
	duplicate bool
	err       error
}

// listMsg carries the saved timeline summaries.
type listMsg struct{ timelines []core.OpenTimelineResult }

// changedMsg reports that the daemon's timeline count moved.
type changedMsg struct{}

// errorMsg carries an error to display.
type errorMsg struct{ err error }

// actionSink forwards dispatched actions to the event loop.
type actionSink chan<- store.Action

func (s actionSink) Dispatch(a store.Action) { s <- a }

func (a App) sink() store.Dispatcher {
	return actionSink(a.actions)
}

func waitForAction(ch <-chan store.Action) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{<-ch}
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func openCmd(client query.Client, d store.Dispatcher, id string, duplicate bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := opentimeline.Open(ctx, client, d, id, duplicate)
		return openedMsg{id: id, duplicate: duplicate, err: err}
	}
}

// fetchListCmd lists saved timelines. The first list on start may come from
// the response cache; explicit and event-driven refreshes use NetworkOnly.
func fetchListCmd(client query.Client, policy query.FetchPolicy) tea.Cmd {
	if client == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		resp, err := client.Query(ctx, query.ListTimelines(), query.Options{FetchPolicy: policy})
		if err != nil {
			return errorMsg{err}
		}

		var timelines []core.OpenTimelineResult
		if err := json.Unmarshal(resp.Data, &timelines); err != nil {
			return errorMsg{fmt.Errorf("decode timelines: %w", err)}
		}

		sort.SliceStable(timelines, func(i, j int) bool {
			return updatedAt(timelines[i]) > updatedAt(timelines[j])
		})
		return listMsg{timelines}
	}
}

func updatedAt(r core.OpenTimelineResult) int64 {
	if r.Updated == nil {
		return 0
	}
	return *r.Updated
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case actionMsg:
		a.state = store.Reduce(a.state, msg.action)
		a.logger.Debug("action reduced", "type", store.TypeOf(msg.action))
		return a, waitForAction(a.actions)

	case openedMsg:
		if msg.err != nil {
			a.statusMsg = "error: " + msg.err.Error()
			return a, nil
		}
		if a.client == nil {
			a.statusMsg = "not connected"
			return a, nil
		}
		verb := "opened "
		if msg.duplicate {
			verb = "duplicated "
		}
		a.statusMsg = verb + msg.id
		return a, nil

	case listMsg:
		a.timelines = msg.timelines
		if a.selectedIdx >= len(a.timelines) {
			a.selectedIdx = max(0, len(a.timelines)-1)
		}
		return a, nil

	case changedMsg:
		return a, tea.Batch(waitForChange(a.changed), fetchListCmd(a.client, query.NetworkOnly))

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case errorMsg:
		a.statusMsg = "error: " + msg.err.Error()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

// Loading reports whether the working timeline slot is loading.
func (a App) Loading() bool {
	return a.state.Loading[core.WorkingTimelineID]
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.mode == ModePrompt {
		return a.handlePromptKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "j", "down":
		if a.activePane == PaneList && len(a.timelines) > 0 {
			a.selectedIdx = min(a.selectedIdx+1, len(a.timelines)-1)
		}
	case "k", "up":
		if a.activePane == PaneList && a.selectedIdx > 0 {
			a.selectedIdx--
		}

	case "tab":
		a.activePane = (a.activePane + 1) % 2

	case "ctrl+d":
		a.duplicate = !a.duplicate

	case "o", "/":
		a.mode = ModePrompt
		a.prompt.SetValue("")
		a.prompt.Focus()
		return a, textinput.Blink

	case "enter":
		if tl := a.selectedTimeline(); tl != nil && tl.SavedObjectID != "" {
			return a.open(tl.SavedObjectID)
		}

	case "r":
		return a, fetchListCmd(a.client, query.NetworkOnly)
	}

	return a, nil
}

func (a App) selectedTimeline() *core.OpenTimelineResult {
	if a.selectedIdx < len(a.timelines) {
		return &a.timelines[a.selectedIdx]
	}
	return nil
}

func (a App) open(id string) (tea.Model, tea.Cmd) {
	a.activePane = PaneSummary
	a.statusMsg = "opening " + id + "..."
	return a, openCmd(a.client, a.sink(), id, a.duplicate)
}

func (a App) trimmedPrompt() string {
	return strings.TrimSpace(a.prompt.Value())
}
