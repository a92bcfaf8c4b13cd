// Package tui provides a terminal user interface for staffdesk.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/listview"
	"github.com/staffdesk/staffdesk/internal/remote"
	"github.com/staffdesk/staffdesk/internal/textutil"
)

// viewLevel represents what the main area shows.
type viewLevel int

const (
	levelList viewLevel = iota
	levelDetail
)

// modalType represents the active modal overlay.
type modalType int

const (
	modalNone modalType = iota
	modalDeleteConfirm
	modalQuitConfirm
	modalHelp
)

// Options configuration for TUI.
type Options struct {
	Client   *remote.Client
	Identity auth.Identity
	Config   *config.Config
	// Start names the tab opened first; empty means the first tab.
	Start   string
	Version string
	Logger  *slog.Logger
	// RequestTimeout bounds each load and delete (0: the client's own timeout).
	RequestTimeout time.Duration
	// Context parents every request; quitting cancels it. Defaults to
	// context.Background().
	Context context.Context
}

// screen is one list: a tab root or a drilled-down child collection.
type screen struct {
	res    catalog.Resource
	coll   *remote.Collection
	ctrl   *listview.Controller[catalog.Record]
	notes  *listview.Recorder
	label  string // breadcrumb label
	cursor int    // index into the current page slice

	started bool // a load has been issued
	pending int  // loads issued but not yet reported back
}

// pendingDelete is the record waiting on the confirm modal.
type pendingDelete struct {
	id    string
	label string
}

// Model is the main TUI model.
type Model struct {
	client   *remote.Client
	identity auth.Identity
	cfg      *config.Config
	version  string
	logger   *slog.Logger
	timeout  time.Duration

	// ctx parents all requests; cancel aborts those in flight on quit.
	ctx    context.Context
	cancel context.CancelFunc

	tabs   []*screen
	active int
	trail  []*screen // drill-down stack of the active tab

	level        viewLevel
	detail       catalog.Record
	detailScroll int

	modal         modalType
	pendingDelete *pendingDelete
	deleting      bool
	helpScroll    int

	searchInput    textinput.Model
	searchActive   bool
	searchPending  bool
	searchDebounce uint64

	spinnerFrame  int
	spinnerActive bool

	flashMessage   string
	flashLevel     listview.Level
	flashExpiresAt time.Time

	width    int
	height   int
	quitting bool
}

// New creates a model with one tab per top-level resource.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	ti := textinput.New()
	ti.Placeholder = "filter this list"
	ti.CharLimit = 200
	ti.Width = 50

	m := Model{
		client:      opts.Client,
		identity:    opts.Identity,
		cfg:         cfg,
		version:     opts.Version,
		logger:      logger,
		timeout:     opts.RequestTimeout,
		ctx:         ctx,
		cancel:      cancel,
		searchInput: ti,
	}
	for i, res := range catalog.TopLevel() {
		m.tabs = append(m.tabs, m.newScreen(res, "", res.Title))
		if res.Name == opts.Start {
			m.active = i
		}
	}
	m.tabs[m.active].started = true
	m.tabs[m.active].pending = 1
	m.spinnerActive = true
	return m
}

func (m Model) newScreen(res catalog.Resource, parentID, label string) *screen {
	notes := &listview.Recorder{}
	coll := remote.NewCollection(m.client, res, m.identity, parentID)
	return &screen{
		res:   res,
		coll:  coll,
		ctrl:  coll.NewController(m.cfg.PageSize(res.Name), notes, m.logger.With("resource", res.Name)),
		notes: notes,
		label: label,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadScreen(m.tabs[m.active]), spinnerTick())
}

// current returns the screen on display.
func (m Model) current() *screen {
	if n := len(m.trail); n > 0 {
		return m.trail[n-1]
	}
	return m.tabs[m.active]
}

// loadedMsg reports that a screen's controller finished a load.
type loadedMsg struct {
	screen *screen
	err    error // set only when the load panicked
}

// deletedMsg reports the outcome of a confirmed delete.
type deletedMsg struct {
	screen *screen
	id     string
	err    error
}

// flashClearMsg is sent when the flash should be cleared.
type flashClearMsg struct{}

// spinnerTickMsg advances the loading spinner.
type spinnerTickMsg struct{}

// searchDebounceMsg applies a typed search term once typing pauses.
type searchDebounceMsg struct {
	term       string
	debounceID uint64
}

// searchDebounceDelay is how long typing must pause before filtering.
const searchDebounceDelay = 150 * time.Millisecond

// spinnerFrames are the Braille dot animation frames for the loading spinner.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is how fast the spinner animates.
const spinnerInterval = 80 * time.Millisecond

// flashDuration is how long flash messages are displayed.
const flashDuration = 4 * time.Second

func (m Model) requestContext() (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(m.ctx, m.timeout)
	}
	return context.WithCancel(m.ctx)
}

// quit cancels in-flight requests and stops the program.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

// loadScreen fetches a screen's collection. The controller discards
// results of loads superseded by a newer one.
func (m Model) loadScreen(s *screen) tea.Cmd {
	ctx, cancel := m.requestContext()
	return func() (msg tea.Msg) {
		defer cancel()
		// Recover from panics to prevent TUI from becoming unresponsive
		defer func() {
			if r := recover(); r != nil {
				msg = loadedMsg{screen: s, err: fmt.Errorf("load panic: %v", r)}
			}
		}()
		s.ctrl.Load(ctx)
		return loadedMsg{screen: s}
	}
}

func (m Model) deleteRecord(s *screen, id string) tea.Cmd {
	ctx, cancel := m.requestContext()
	return func() (msg tea.Msg) {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				msg = deletedMsg{screen: s, id: id, err: fmt.Errorf("delete panic: %v", r)}
			}
		}()
		return deletedMsg{screen: s, id: id, err: s.ctrl.DeleteRecord(ctx, id)}
	}
}

// reload issues a load of s and starts the spinner.
func (m *Model) reload(s *screen) tea.Cmd {
	s.started = true
	s.pending++
	return tea.Batch(m.loadScreen(s), m.startSpinner())
}

// ensureLoaded loads s the first time it is shown.
func (m *Model) ensureLoaded(s *screen) tea.Cmd {
	if s.started {
		return nil
	}
	return m.reload(s)
}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already active,
// and marks it as active. Call this when loading begins.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// busy reports whether anything on the current screen is in flight.
func (m Model) busy() bool {
	s := m.current()
	return s.pending > 0 || m.deleting || m.searchPending || s.ctrl.State().Loading
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		m.clampDetailScroll()
		return m, nil

	case loadedMsg:
		if msg.screen.pending > 0 {
			msg.screen.pending--
		}
		if msg.err != nil {
			m.logger.Error("load failed", "resource", msg.screen.res.Name, "error", msg.err)
			return m.showFlash(listview.Notification{Level: listview.LevelError, Message: msg.err.Error()})
		}
		msg.screen.clampCursor()
		return m.drainNotes(msg.screen)

	case deletedMsg:
		m.deleting = false
		msg.screen.clampCursor()
		if msg.err != nil {
			m.logger.Warn("delete failed", "resource", msg.screen.res.Name, "id", msg.id, "error", msg.err)
		}
		return m.drainNotes(msg.screen)

	case searchDebounceMsg:
		// Ignore stale debounce timers (user typed more since timer started)
		if msg.debounceID != m.searchDebounce {
			return m, nil
		}
		m.searchPending = false
		m.applySearch(msg.term)
		return m, nil

	case flashClearMsg:
		// Clear flash message if it hasn't been updated since the timer started
		if time.Now().After(m.flashExpiresAt) || m.flashExpiresAt.IsZero() {
			m.flashMessage = ""
		}
		return m, nil

	case spinnerTickMsg:
		if m.busy() {
			m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
			return m, spinnerTick()
		}
		m.spinnerActive = false
		return m, nil
	}

	return m, nil
}

// applySearch filters the current screen and returns the cursor to the top.
func (m *Model) applySearch(term string) {
	s := m.current()
	s.ctrl.SetSearchTerm(term)
	s.cursor = 0
}

// drainNotes moves the controller's notifications into the flash line.
// Notifications from screens that are no longer shown are dropped.
func (m Model) drainNotes(s *screen) (tea.Model, tea.Cmd) {
	notes := s.notes.Drain()
	if len(notes) == 0 || s != m.current() {
		return m, nil
	}
	return m.showFlash(notes[len(notes)-1])
}

func (m Model) showFlash(n listview.Notification) (tea.Model, tea.Cmd) {
	m.flashMessage = textutil.FirstLine(n.Message)
	m.flashLevel = n.Level
	m.flashExpiresAt = time.Now().Add(flashDuration)
	return m, tea.Tick(flashDuration, func(t time.Time) tea.Msg {
		return flashClearMsg{}
	})
}

// clampCursor keeps the cursor on the current page slice.
func (s *screen) clampCursor() {
	n := len(s.ctrl.State().PageSlice)
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// selected returns the record under the cursor.
func (s *screen) selected() (catalog.Record, bool) {
	slice := s.ctrl.State().PageSlice
	if s.cursor < 0 || s.cursor >= len(slice) {
		return catalog.Record{}, false
	}
	return slice[s.cursor], true
}

// detailLines returns the wrapped detail body.
func (m Model) detailLines() []string {
	return wrapText(m.detail.Pretty(), max(m.width-2, 20))
}

// detailPageSize is the number of detail lines that fit on screen.
func (m Model) detailPageSize() int {
	// title, tabs, breadcrumb, info line and footer
	return max(m.height-5, 1)
}

func (m *Model) clampDetailScroll() {
	if m.level != levelDetail {
		return
	}
	maxScroll := max(len(m.detailLines())-m.detailPageSize(), 0)
	m.detailScroll = min(max(m.detailScroll, 0), maxScroll)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	if m.level == levelDetail {
		body = m.detailView()
	} else {
		body = m.listView()
	}
	view := fmt.Sprintf("%s\n%s\n%s", m.headerView(), body, m.footerView())
	if m.modal != modalNone {
		return m.overlayModal(view)
	}
	return view
}
