package tui

import (
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/listview"
)

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}
	if m.modal != modalNone {
		return m.handleModalKeys(msg)
	}
	if m.searchActive {
		return m.handleInlineSearchKeys(msg)
	}
	if m.level == levelDetail {
		return m.handleDetailKeys(msg)
	}
	return m.handleListKeys(msg)
}

// handleGlobalKeys handles keys shared by every level. The bool reports
// whether the key was consumed.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		m.modal = modalQuitConfirm
		return m, nil, true
	case "?":
		m.modal = modalHelp
		m.helpScroll = 0
		return m, nil, true
	}
	return m, nil, false
}

// handleInlineSearchKeys handles keys when inline search bar is active.
func (m Model) handleInlineSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		// Apply immediately and drop any pending debounce.
		m.searchActive = false
		m.searchPending = false
		m.searchDebounce++
		m.searchInput.Blur()
		m.applySearch(m.searchInput.Value())
		return m, nil

	case "esc":
		m.searchActive = false
		m.searchPending = false
		m.searchDebounce++
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.applySearch("")
		return m, nil

	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)

		term := m.searchInput.Value()
		m.searchDebounce++
		debounceID := m.searchDebounce
		m.searchPending = true
		spinCmd := m.startSpinner()

		debounceCmd := tea.Tick(searchDebounceDelay, func(t time.Time) tea.Msg {
			return searchDebounceMsg{term: term, debounceID: debounceID}
		})
		return m, tea.Batch(cmd, spinCmd, debounceCmd)
	}
}

// handleListKeys handles keys in the table view.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if next, cmd, ok := m.handleGlobalKeys(msg); ok {
		return next, cmd
	}
	s := m.current()

	switch key := msg.String(); key {
	case "tab":
		return m.switchTab(1)
	case "shift+tab":
		return m.switchTab(-1)

	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.ctrl.State().PageSlice)-1 {
			s.cursor++
		}

	case "left", "h", "pgup":
		movePage(s, s.ctrl.PreviousPage)
	case "right", "l", "pgdown":
		movePage(s, s.ctrl.NextPage)
	case "home", "g":
		movePage(s, s.ctrl.FirstPage)
	case "end", "G":
		movePage(s, s.ctrl.LastPage)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n, _ := strconv.Atoi(key)
		movePage(s, func() bool { return s.ctrl.GoToPage(n) })

	case "/":
		m.searchActive = true
		m.searchInput.SetValue(s.ctrl.State().SearchTerm)
		m.searchInput.CursorEnd()
		m.searchInput.Focus()
		return m, nil

	case "r":
		cmd := m.reload(s)
		return m, cmd

	case "d":
		return m.confirmDelete(s)

	case "enter":
		return m.open(s)

	case "esc", "backspace":
		if key == "esc" && s.ctrl.State().SearchTerm != "" {
			m.searchInput.SetValue("")
			m.applySearch("")
			return m, nil
		}
		return m.goBack()
	}
	return m, nil
}

// movePage runs a page move and resets the cursor when the page changed.
func movePage(s *screen, move func() bool) {
	if move() {
		s.cursor = 0
	}
}

// switchTab moves to the neighbouring tab, leaving any drill-down.
func (m Model) switchTab(delta int) (tea.Model, tea.Cmd) {
	n := len(m.tabs)
	m.active = ((m.active+delta)%n + n) % n
	m.trail = nil
	m.level = levelList
	cmd := m.ensureLoaded(m.tabs[m.active])
	return m, cmd
}

// open drills into the child collection of the selected record, or shows
// the record itself when the resource has no children.
func (m Model) open(s *screen) (tea.Model, tea.Cmd) {
	rec, ok := s.selected()
	if !ok {
		return m, nil
	}
	if s.res.Child == "" {
		m.level = levelDetail
		m.detail = rec
		m.detailScroll = 0
		return m, nil
	}
	child, ok := catalog.Lookup(s.res.Child)
	if !ok {
		return m, nil
	}
	cs := m.newScreen(child, s.res.ID(rec), s.res.Describe(rec))
	m.trail = append(m.trail, cs)
	cmd := m.reload(cs)
	return m, cmd
}

// goBack pops one level of drill-down.
func (m Model) goBack() (tea.Model, tea.Cmd) {
	if len(m.trail) == 0 {
		return m, nil
	}
	m.trail = m.trail[:len(m.trail)-1]
	return m, nil
}

func (m Model) confirmDelete(s *screen) (tea.Model, tea.Cmd) {
	if !s.res.Deletable {
		return m.showFlash(listview.Notification{
			Level:   listview.LevelInfo,
			Message: s.res.Title + " cannot be deleted here",
		})
	}
	rec, ok := s.selected()
	if !ok || m.deleting {
		return m, nil
	}
	m.pendingDelete = &pendingDelete{id: s.res.ID(rec), label: s.res.Describe(rec)}
	m.modal = modalDeleteConfirm
	return m, nil
}

// handleDetailKeys handles keys in the record detail view.
func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if next, cmd, ok := m.handleGlobalKeys(msg); ok {
		return next, cmd
	}
	switch msg.String() {
	case "esc", "backspace", "enter":
		m.level = levelList
		m.detailScroll = 0
	case "up", "k":
		m.detailScroll--
	case "down", "j":
		m.detailScroll++
	case "pgup":
		m.detailScroll -= m.detailPageSize()
	case "pgdown", " ":
		m.detailScroll += m.detailPageSize()
	case "home", "g":
		m.detailScroll = 0
	case "end", "G":
		m.detailScroll = len(m.detailLines())
	}
	m.clampDetailScroll()
	return m, nil
}

// handleModalKeys handles keys while a modal is open.
func (m Model) handleModalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalDeleteConfirm:
		switch msg.String() {
		case "y", "Y":
			pd := m.pendingDelete
			m.modal = modalNone
			m.pendingDelete = nil
			if pd == nil {
				return m, nil
			}
			m.deleting = true
			cmd := tea.Batch(m.deleteRecord(m.current(), pd.id), m.startSpinner())
			return m, cmd
		case "n", "N", "esc":
			m.modal = modalNone
			m.pendingDelete = nil
		}

	case modalQuitConfirm:
		switch msg.String() {
		case "y", "Y", "enter":
			return m.quit()
		case "n", "N", "esc", "q":
			m.modal = modalNone
		}

	case modalHelp:
		switch msg.String() {
		case "up", "k":
			if m.helpScroll > 0 {
				m.helpScroll--
			}
		case "down", "j":
			if m.helpScroll < len(rawHelpLines)-m.helpMaxVisible() {
				m.helpScroll++
			}
		default:
			m.modal = modalNone
			m.helpScroll = 0
		}
	}
	return m, nil
}
