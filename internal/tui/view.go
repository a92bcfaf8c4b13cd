package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/listview"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	// Background colors - adaptive for light/dark terminals
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgAlt    = lipgloss.AdaptiveColor{Light: "#f0f0f0", Dark: "#181818"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	// Title bar style - bold with visible background
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Background(bgCursor).
			Padding(0, 1)

	// Spinner style - NOT faint so it's visible
	spinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	// Separator line style for under headers
	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	// Cursor row: subtle lighter background
	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	// Normal rows need background to clear old content
	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	// Alternating rows: very subtle gray background
	altRowStyle = lipgloss.NewStyle().
			Background(bgAlt)

	currentPageStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgCursor)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Background(bgBase)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Background(bgBase)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true)

	flashStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}). // Amber for visibility
			Background(bgBase)

	flashErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#aa0000", Dark: "#ff5f5f"}).
			Background(bgBase)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#000000"}).
			Background(lipgloss.AdaptiveColor{Light: "#e8d44d", Dark: "#e8d44d"}).
			Bold(true)
)

// chromeLines counts the fixed lines around the table rows: title, tabs,
// breadcrumb, table header, separator, pagination, info line and footer.
const chromeLines = 8

// indicatorWidth is the cursor column in front of each row.
const indicatorWidth = 2

func (m Model) buildTitleBar() string {
	titleText := "staffdesk"
	if m.version != "" && m.version != "dev" && m.version != "unknown" {
		titleText = fmt.Sprintf("staffdesk [%s]", m.version)
	}

	who := "not signed in"
	if m.identity.HasUser() {
		who = "staff #" + m.identity.UserID
	} else if m.identity.HasToken() {
		who = "signed in"
	}
	line := fmt.Sprintf("%s - %s", titleText, who)

	if m.client != nil {
		host := m.client.BaseURL()
		gap := m.width - 2 - lipgloss.Width(line) - lipgloss.Width(host)
		if gap > 1 {
			line += strings.Repeat(" ", gap) + host
		}
	}
	return titleBarStyle.Render(padRight(line, m.width-2)) // -2 for padding
}

// buildTabs renders one label per top-level resource.
func (m Model) buildTabs() string {
	var sb strings.Builder
	for i, t := range m.tabs {
		if i == m.active {
			sb.WriteString(activeTabStyle.Render(t.res.Title))
		} else {
			sb.WriteString(tabStyle.Render(t.res.Title))
		}
	}
	return normalRowStyle.Render(padRight(sb.String(), m.width))
}

// buildBreadcrumb joins the tab, drilled-down records and detail record.
func (m Model) buildBreadcrumb() string {
	parts := []string{m.tabs[m.active].label}
	for _, s := range m.trail {
		parts = append(parts, s.label, s.res.Title)
	}
	if m.level == levelDetail {
		parts = append(parts, m.current().res.Describe(m.detail))
	}
	return strings.Join(parts, " › ")
}

// buildStatsString summarizes the current collection.
func (m Model) buildStatsString() string {
	st := m.current().ctrl.State()
	if !st.Loaded || st.Err != nil {
		return ""
	}
	if st.SearchTerm != "" {
		return fmt.Sprintf("%d of %d match", len(st.Filtered), len(st.Records))
	}
	if len(st.Records) == 1 {
		return "1 record"
	}
	return fmt.Sprintf("%d records", len(st.Records))
}

func (m Model) headerView() string {
	line1 := m.buildTitleBar()
	line2 := m.buildTabs()

	breadcrumbStyled := statsStyle.Render(truncateRunes(m.buildBreadcrumb(), max(m.width-24, 10)))
	statsStyled := statsStyle.Render(m.buildStatsString())
	gap := max(m.width-lipgloss.Width(breadcrumbStyled)-lipgloss.Width(statsStyled), 0)
	line3 := breadcrumbStyled + normalRowStyle.Render(strings.Repeat(" ", gap)) + statsStyled

	return line1 + "\n" + line2 + "\n" + line3
}

// tableRows is the number of row lines available to the table.
func (m Model) tableRows() int {
	return max(m.height-chromeLines, 1)
}

// listView renders the table, pagination bar and info line.
func (m Model) listView() string {
	s := m.current()
	st := s.ctrl.State()

	var lines []string
	lines = append(lines, m.tableHeader(s.res), separatorStyle.Render(strings.Repeat("─", max(m.width, 0))))

	switch {
	case st.Err != nil && errors.Is(st.Err, auth.ErrMissing):
		lines = append(lines, m.blockingLines(
			"Not signed in",
			st.Message,
			"Sign in to the platform, then press r to retry.",
		)...)
	case st.Err != nil:
		lines = append(lines, m.blockingLines(
			"Could not load "+strings.ToLower(s.res.Title),
			st.Message,
			"Press r to retry.",
		)...)
	case !st.Loaded:
		lines = append(lines, loadingStyle.Render(padRight(" Loading "+strings.ToLower(s.res.Title)+"...", m.width)))
	case st.Empty() && st.SearchTerm != "":
		lines = append(lines, normalRowStyle.Render(padRight(
			fmt.Sprintf(" No %s match %q", strings.ToLower(s.res.Title), st.SearchTerm), m.width)))
	case st.Empty():
		lines = append(lines, normalRowStyle.Render(padRight(" No "+strings.ToLower(s.res.Title)+" yet", m.width)))
	default:
		lines = append(lines, m.rowLines(s, st)...)
	}

	lines = m.padLines(lines, 2+m.tableRows())
	lines = append(lines, m.paginationBar(s, st), m.infoLine())
	return strings.Join(lines, "\n")
}

// blockingLines renders a message that replaces the table.
func (m Model) blockingLines(title, detail, hint string) []string {
	out := []string{
		normalRowStyle.Render(strings.Repeat(" ", max(m.width, 0))),
		errorStyle.Render(padRight(" "+title, m.width)),
	}
	for _, l := range wrapText(detail, max(m.width-2, 20)) {
		out = append(out, normalRowStyle.Render(padRight(" "+l, m.width)))
	}
	return append(out, normalRowStyle.Render(padRight(" "+hint, m.width)))
}

// padLines fills lines with blank rows up to n, or cuts it to n.
func (m Model) padLines(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	blank := normalRowStyle.Render(strings.Repeat(" ", max(m.width, 0)))
	for len(lines) < n {
		lines = append(lines, blank)
	}
	return lines
}

func (m Model) tableHeader(res catalog.Resource) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", indicatorWidth))
	for _, c := range res.Columns {
		sb.WriteString(padRight(c.Title, c.Width))
		sb.WriteString(" ")
	}
	return tableHeaderStyle.Render(padRight(sb.String(), m.width))
}

// rowLines renders the current page slice, scrolled so the cursor stays
// visible when the terminal is shorter than a page.
func (m Model) rowLines(s *screen, st listview.State[catalog.Record]) []string {
	visible := m.tableRows()
	start := 0
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}
	end := min(start+visible, len(st.PageSlice))

	var lines []string
	for i := start; i < end; i++ {
		rec := st.PageSlice[i]
		var sb strings.Builder
		if i == s.cursor {
			sb.WriteString("▶ ")
		} else {
			sb.WriteString("  ")
		}
		for ci, val := range s.res.Row(rec) {
			w := s.res.Columns[ci].Width
			sb.WriteString(padRight(highlightTerm(truncateRunes(val, w), st.SearchTerm), w))
			sb.WriteString(" ")
		}
		line := padRight(sb.String(), m.width)
		switch {
		case i == s.cursor:
			lines = append(lines, cursorRowStyle.Render(line))
		case i%2 == 1:
			lines = append(lines, altRowStyle.Render(line))
		default:
			lines = append(lines, normalRowStyle.Render(line))
		}
	}
	return lines
}

// paginationBar renders prev/next, the page buttons and the visible range.
func (m Model) paginationBar(s *screen, st listview.State[catalog.Record]) string {
	if st.TotalPages == 0 {
		return normalRowStyle.Render(strings.Repeat(" ", max(m.width, 0)))
	}

	var sb strings.Builder
	if st.HasPrevious() {
		sb.WriteString(" ‹ prev ")
	} else {
		sb.WriteString("        ")
	}
	for _, b := range s.ctrl.Buttons() {
		switch {
		case b.Kind == listview.ButtonEllipsis:
			sb.WriteString(" … ")
		case b.Current:
			sb.WriteString(currentPageStyle.Render(fmt.Sprintf("[%d]", b.Page)))
		default:
			sb.WriteString(fmt.Sprintf(" %d ", b.Page))
		}
	}
	if st.HasNext() {
		sb.WriteString(" next › ")
	}

	from, to := listview.PageBounds(st.Page, st.PageSize, len(st.Filtered))
	showing := fmt.Sprintf("showing %d-%d of %d ", from+1, to, len(st.Filtered))
	left := sb.String()
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(showing), 1)
	return normalRowStyle.Render(padRight(left+strings.Repeat(" ", gap)+showing, m.width))
}

// infoLine shows the search input, a flash, or the active filter, with the
// spinner right-aligned while anything is in flight.
func (m Model) infoLine() string {
	var content string
	switch {
	case m.searchActive:
		content = "/" + m.searchInput.View()
	case m.flashMessage != "":
		if m.flashLevel == listview.LevelError {
			content = flashErrorStyle.Render(m.flashMessage)
		} else {
			content = flashStyle.Render(m.flashMessage)
		}
	default:
		if term := m.current().ctrl.State().SearchTerm; term != "" {
			content = fmt.Sprintf("filter: %s (Esc clears)", term)
		}
	}
	return m.renderInfoLine(content, m.busy())
}

// spinnerIndicator returns the current spinner frame string.
func (m Model) spinnerIndicator() string {
	if m.spinnerFrame < len(spinnerFrames) {
		return spinnerFrames[m.spinnerFrame]
	}
	return spinnerFrames[0]
}

// renderInfoLine renders the info/notification line with optional right-aligned loading spinner.
func (m Model) renderInfoLine(content string, loading bool) string {
	// statsStyle has Padding(0, 1) which adds 2 characters, so content should be m.width-2
	contentWidth := max(m.width-2, 1)

	if content == "" && !loading {
		return statsStyle.Render(strings.Repeat(" ", contentWidth))
	}
	if loading {
		indicator := m.spinnerIndicator()
		gap := max(contentWidth-lipgloss.Width(content)-lipgloss.Width(indicator), 1)
		content += strings.Repeat(" ", gap) + spinnerStyle.Render(indicator)
	}
	return statsStyle.Render(padRight(content, contentWidth))
}

// detailView renders the selected record as indented JSON.
func (m Model) detailView() string {
	all := m.detailLines()
	pageSize := m.detailPageSize()
	start := min(m.detailScroll, len(all))
	end := min(start+pageSize, len(all))

	lines := make([]string, 0, pageSize+1)
	for _, l := range all[start:end] {
		lines = append(lines, normalRowStyle.Render(padRight(" "+l, m.width)))
	}
	lines = m.padLines(lines, pageSize)
	lines = append(lines, m.infoLine())
	return strings.Join(lines, "\n")
}

func (m Model) footerView() string {
	var keys []string
	var posStr string
	s := m.current()

	switch {
	case m.searchActive:
		keys = []string{"Enter apply", "Esc clear"}
	case m.level == levelDetail:
		keys = []string{"↑/↓ scroll", "Esc back", "q quit"}
		if total := len(m.detailLines()); total > 0 {
			posStr = fmt.Sprintf(" line %d/%d ", m.detailScroll+1, total)
		}
	default:
		keys = []string{"↑/k", "↓/j", "←/→ page", "Tab"}
		if s.res.Child != "" {
			keys = append(keys, "Enter "+strings.ToLower(childTitle(s.res)))
		} else {
			keys = append(keys, "Enter view")
		}
		if len(m.trail) > 0 {
			keys = append(keys, "Esc back")
		}
		keys = append(keys, "/ search", "r reload")
		if s.res.Deletable {
			keys = append(keys, "d del")
		}
		keys = append(keys, "? help")
		st := s.ctrl.State()
		if n := len(st.PageSlice); n > 0 {
			posStr = fmt.Sprintf(" %d/%d · page %d/%d ", s.cursor+1, n, st.Page, st.TotalPages)
		}
	}

	keysStr := strings.Join(keys, " │ ")
	gap := max(m.width-lipgloss.Width(keysStr)-lipgloss.Width(posStr)-2, 0)
	return footerStyle.Render(truncateToWidth(keysStr+strings.Repeat(" ", gap)+posStr, max(m.width-2, 0)))
}

func childTitle(res catalog.Resource) string {
	if child, ok := catalog.Lookup(res.Child); ok {
		return child.Title
	}
	return res.Child
}

// rawHelpLines is the full help text; the first line is the title.
var rawHelpLines = []string{
	"Keyboard Shortcuts",
	"",
	"Navigation",
	"  ↑/k, ↓/j       Move cursor",
	"  ←/h, →/l       Previous / next page",
	"  PgUp, PgDn     Previous / next page",
	"  Home/g, End/G  First / last page",
	"  1-9            Jump to page",
	"  Tab, Shift+Tab Switch collection",
	"  Enter          Open related records or details",
	"  Esc            Clear filter, then go back",
	"",
	"Actions",
	"  /              Filter this list",
	"  r              Reload from the server",
	"  d              Delete the selected record",
	"",
	"  ?              This help",
	"  q              Quit",
	"",
	"Press any key to close",
}

// helpMaxVisible returns the number of help lines that fit in the modal.
func (m Model) helpMaxVisible() int {
	return min(max(m.height-6, 1), len(rawHelpLines))
}

// renderDeleteConfirmModal renders the deletion confirmation modal content.
func (m Model) renderDeleteConfirmModal() string {
	if m.pendingDelete == nil {
		return ""
	}
	res := m.current().res
	var sb strings.Builder
	sb.WriteString(modalTitleStyle.Render("Confirm Deletion"))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Delete %s %q?\n\n", res.Noun, truncateRunes(m.pendingDelete.label, 40)))
	sb.WriteString("This cannot be undone.\n\n")
	sb.WriteString("[Y] Yes, delete    [N] Cancel")
	return sb.String()
}

// renderQuitConfirmModal renders the quit confirmation modal content.
func (m Model) renderQuitConfirmModal() string {
	return modalTitleStyle.Render("Quit?") + "\n\n" +
		"Are you sure you want to quit?\n\n" +
		"[Y] Yes    [N] No"
}

func (m Model) renderHelpModal() string {
	maxVisible := m.helpMaxVisible()
	scroll := min(m.helpScroll, len(rawHelpLines)-maxVisible)

	visible := rawHelpLines[scroll : scroll+maxVisible]
	rendered := make([]string, len(visible))
	for i, line := range visible {
		if scroll+i == 0 {
			rendered[i] = modalTitleStyle.Render(line)
		} else {
			rendered[i] = line
		}
	}
	return strings.Join(rendered, "\n")
}

// overlayModal renders the active modal centered over background.
func (m Model) overlayModal(background string) string {
	var modalContent string

	switch m.modal {
	case modalDeleteConfirm:
		modalContent = m.renderDeleteConfirmModal()
	case modalQuitConfirm:
		modalContent = m.renderQuitConfirmModal()
	case modalHelp:
		modalContent = m.renderHelpModal()
	}

	if modalContent == "" {
		return background
	}

	modal := modalStyle.Render(modalContent)

	bgLines := strings.Split(background, "\n")
	modalLines := strings.Split(modal, "\n")

	startLine := max((len(bgLines)-len(modalLines))/2, 0)
	modalWidth := lipgloss.Width(modal)
	leftPadding := max((m.width-modalWidth)/2, 0)

	// Overlay modal onto background, preserving background where modal doesn't cover
	for i, modalLine := range modalLines {
		lineIdx := startLine + i
		if lineIdx >= len(bgLines) {
			break
		}
		bgLine := bgLines[lineIdx]
		bgWidth := lipgloss.Width(bgLine)

		var composite strings.Builder
		if leftPadding > 0 {
			leftBg := truncateToWidth(bgLine, leftPadding)
			composite.WriteString(leftBg)
			if w := lipgloss.Width(leftBg); w < leftPadding {
				composite.WriteString(strings.Repeat(" ", leftPadding-w))
			}
		}
		composite.WriteString(modalLine)
		if rightStart := leftPadding + modalWidth; rightStart < bgWidth {
			composite.WriteString(skipToWidth(bgLine, rightStart))
		}
		bgLines[lineIdx] = composite.String()
	}

	return strings.Join(bgLines, "\n")
}
