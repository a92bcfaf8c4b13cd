package tui

import (
	"regexp"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/staffdesk/staffdesk/internal/api"
	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/testutil"
)

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output. It acquires colorProfileMu to prevent data races with
// parallel tests and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

var devIdentity = testutil.DevIdentity

// testHarness bundles a fixture API server with the options pointing at it.
type testHarness struct {
	opts  Options
	store *api.Store
}

// newHarness serves f (DefaultFixtures when nil) over plain HTTP.
func newHarness(t *testing.T, f *api.Fixtures) *testHarness {
	t.Helper()
	fixture := testutil.NewFixtureAPI(t, f)
	return &testHarness{
		store: fixture.Store,
		opts: Options{
			Client:         fixture.Client(t),
			Identity:       devIdentity,
			Config:         config.NewDefaultConfig(),
			Version:        "1.2.3",
			RequestTimeout: 5 * time.Second,
		},
	}
}

// model builds a sized model and completes its initial load.
func (h *testHarness) model(t *testing.T) Model {
	t.Helper()
	m := New(h.opts)
	m = resize(m, 120, 30)
	return loadCurrent(t, m)
}

// newTestModel is the common case: default fixtures, signed in, first tab.
func newTestModel(t *testing.T) Model {
	t.Helper()
	return newHarness(t, nil).model(t)
}

func resize(m Model, w, h int) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return next.(Model)
}

// loadCurrent runs the current screen's load synchronously and feeds the
// result back, as the bubbletea runtime would.
func loadCurrent(t *testing.T, m Model) Model {
	t.Helper()
	s := m.current()
	msg := m.loadScreen(s)()
	next, _ := m.Update(msg)
	m = next.(Model)
	if st := s.ctrl.State(); st.Loading {
		t.Fatalf("%s still loading after load", s.res.Name)
	}
	return m
}

// keyMsg builds the key message bubbletea would deliver for key.
func keyMsg(key string) tea.KeyMsg {
	special := map[string]tea.KeyType{
		"enter":     tea.KeyEnter,
		"esc":       tea.KeyEsc,
		"tab":       tea.KeyTab,
		"shift+tab": tea.KeyShiftTab,
		"up":        tea.KeyUp,
		"down":      tea.KeyDown,
		"left":      tea.KeyLeft,
		"right":     tea.KeyRight,
		"home":      tea.KeyHome,
		"end":       tea.KeyEnd,
		"pgup":      tea.KeyPgUp,
		"pgdown":    tea.KeyPgDown,
		"backspace": tea.KeyBackspace,
		"ctrl+c":    tea.KeyCtrlC,
	}
	if kt, ok := special[key]; ok {
		return tea.KeyMsg{Type: kt}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// press sends keys in order. Returned commands are dropped: tests run
// loads and deletes explicitly instead of waiting on timers.
func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

// pressCmd sends one key and returns the resulting command.
func pressCmd(m Model, key string) (Model, tea.Cmd) {
	next, cmd := m.Update(keyMsg(key))
	return next.(Model), cmd
}
