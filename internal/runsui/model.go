// Package runsui provides the Bubble Tea browser over stored gate runs.
package runsui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/penpipe/internal/gate"
	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/stats"
)

const (
	tabRuns = iota
	tabChecks
	tabArtifact
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
)

// RunSource is the run store surface the browser reads from.
type RunSource interface {
	stats.RunReader
	GetArtifact(ctx context.Context, runID string) (gate.Artifact, error)
}

// Model implements the Bubble Tea runs browser.
type Model struct {
	source RunSource
	filter model.RunFilter
	window int

	report   stats.Report
	newest   []model.RunSummary
	artifact *gate.Artifact
	errMsg   string

	tabs      []string
	activeTab int
	runTable  table.Model
	viewports []viewport.Model

	filterMode  bool
	filterInput textinput.Model

	width  int
	height int
}

// NewModel constructs a runs browser. window is the number of recent runs
// used for check rankings and the pass-rate moving average.
func NewModel(source RunSource, filter model.RunFilter, window int) *Model {
	m := &Model{
		source: source,
		filter: filter,
		window: max(1, window),
		tabs:   []string{"Runs", "Checks", "Artifact"},
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.filterInput = textinput.New()
	m.filterInput.Prompt = "Source: "
	m.filterInput.Placeholder = "capture file name"
	m.filterInput.Cursor.SetMode(cursor.CursorBlink)
	m.runTable = table.New(table.WithColumns(runColumns()), table.WithFocused(true))
	m.runTable.SetStyles(tableStyles())
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, nil
		case "right", "l":
			m.moveTab(1)
			return m, nil
		case "r":
			m.refresh()
			return m, nil
		case "=":
			m.window = nextWindow(m.window)
			m.refresh()
			return m, nil
		case "-":
			m.window = prevWindow(m.window)
			m.refresh()
			return m, nil
		case "/":
			m.filterMode = true
			m.filterInput.SetValue(m.filter.Source)
			return m, m.filterInput.Focus()
		case "enter":
			if m.activeTab == tabRuns {
				m.openSelected()
			}
			return m, nil
		}
		if m.activeTab == tabRuns {
			var cmd tea.Cmd
			m.runTable, cmd = m.runTable.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight := m.layoutHeights()
	header := fitLines(m.renderTabs()+"\n"+m.renderSettings(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	return header + "\n" + body + "\n" + fitLines(m.renderFooter(), m.width, 1)
}

// SelectedRunID returns the run under the table cursor.
func (m *Model) SelectedRunID() string {
	idx := m.runTable.Cursor()
	if idx < 0 || idx >= len(m.newest) {
		return ""
	}
	return m.newest[idx].RunID
}

func (m *Model) refresh() {
	report, err := stats.BuildReport(context.Background(), m.source, stats.ReportConfig{Filter: m.filter, Window: m.window})
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.report = report
	m.newest = make([]model.RunSummary, len(report.Runs))
	for i, r := range report.Runs {
		m.newest[len(report.Runs)-1-i] = r
	}
	m.runTable.SetRows(runRows(m.newest))
	m.renderContents()
}

func (m *Model) openSelected() {
	id := m.SelectedRunID()
	if id == "" {
		return
	}
	a, err := m.source.GetArtifact(context.Background(), id)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.artifact = &a
	m.activeTab = tabArtifact
	m.viewports[tabArtifact].SetContent(renderArtifact(a))
	m.viewports[tabArtifact].GotoTop()
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.filterMode = false
		m.filterInput.Blur()
		m.filter.Source = strings.TrimSpace(m.filterInput.Value())
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabRuns {
		m.runTable.Focus()
	} else {
		m.runTable.Blur()
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X"))) + 1
	bodyHeight = max(1, m.height-headerHeight-1)
	return headerHeight, bodyHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.runTable.SetWidth(m.width)
	m.runTable.SetHeight(max(1, bodyHeight-1))
	m.filterInput.Width = max(10, m.width-lipgloss.Width(m.filterInput.Prompt)-2)
}

func (m *Model) renderContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	var buf bytes.Buffer
	if err := m.report.Render(&buf, width); err != nil {
		m.viewports[tabChecks].SetContent(fmt.Sprintf("Failed to render report: %v", err))
	} else {
		m.viewports[tabChecks].SetContent(strings.TrimRight(buf.String(), "\n"))
	}
	if m.artifact == nil {
		m.viewports[tabArtifact].SetContent("Select a run and press enter.")
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderSettings() string {
	source := m.filter.Source
	if source == "" {
		source = "any"
	}
	line := fmt.Sprintf("Settings: source=%s  window=%d  runs=%d  pass rate=%.0f%%",
		source, m.window, len(m.report.Runs), stats.PassRate(m.report.Runs)*100)
	return headerStyle.Render(truncateLine(line, m.width))
}

func (m *Model) renderBody() string {
	if m.filterMode {
		return "Filter runs (enter to apply, esc to cancel)\n" + m.filterInput.View()
	}
	if m.activeTab == tabRuns {
		if len(m.newest) == 0 {
			return "No gate runs found."
		}
		return m.runTable.View()
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderFooter() string {
	if m.errMsg != "" {
		return errorStyle.Render(truncateLine(m.errMsg, m.width))
	}
	help := "Nav: left/right  Open: enter  Window: -/=  Filter: /  Reload: r  Quit: q"
	return headerStyle.Render(truncateLine(help, m.width))
}

func renderArtifact(a gate.Artifact) string {
	lines := []string{
		fmt.Sprintf("Run %s at %s", a.RunMeta.ID, a.RunMeta.Timestamp),
		fmt.Sprintf("Input %s  baseline=%s  thresholds=%s", shortHash(a.InputHash), a.BaselineVersion, a.ThresholdVersion),
		"",
		fmt.Sprintf("Overall  %s", verdictText(a.Overall)),
		fmt.Sprintf("Stage    %s", verdictText(a.StageGate)),
		fmt.Sprintf("Final    %s", verdictText(a.FinalGate)),
		fmt.Sprintf("Fast     %s  (%d windows, p95 %.2f)", verdictText(a.FastGate), a.FastWindowsMetrics.FastWindowCount, a.FastWindowsMetrics.P95Speed01),
		"",
		"Semantic checks",
	}
	for _, name := range gate.CheckNames() {
		if v, ok := a.SemanticChecks[name]; ok {
			lines = append(lines, fmt.Sprintf("  %s %s", verdictText(v), name))
		}
	}
	for _, name := range []gate.Name{gate.StageGate, gate.FinalGate, gate.FastGate} {
		reasons, ok := a.Summary.GateReasons[string(name)]
		if !ok {
			continue
		}
		lines = append(lines, "", string(name))
		for _, r := range reasons {
			lines = append(lines, "  - "+r)
		}
	}
	lines = append(lines, "", fmt.Sprintf("Cases %d/%d", a.Summary.CasesPassed, a.Summary.CaseCount))
	for _, r := range a.CaseResults {
		lines = append(lines, fmt.Sprintf("  %s %s", verdictText(r.Overall), r.Name))
	}
	lines = append(lines, "", fmt.Sprintf("Presets %d/%d", a.Summary.PresetsPassed, a.Summary.PresetCount))
	for _, r := range a.PresetResults {
		lines = append(lines, fmt.Sprintf("  %s %s", verdictText(r.Overall), r.Name))
	}
	return strings.Join(lines, "\n")
}

func verdictText(v gate.Verdict) string {
	if v == gate.Pass {
		return passStyle.Render("PASS")
	}
	return failStyle.Render("FAIL")
}

func runColumns() []table.Column {
	return []table.Column{
		{Title: "Run", Width: 10},
		{Title: "When", Width: 16},
		{Title: "Source", Width: 20},
		{Title: "Overall", Width: 7},
		{Title: "Stage", Width: 5},
		{Title: "Final", Width: 5},
		{Title: "Fast", Width: 5},
		{Title: "Cases", Width: 5},
		{Title: "Presets", Width: 7},
	}
}

func runRows(runs []model.RunSummary) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, table.Row{
			shortHash(r.RunID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Source,
			r.Overall,
			r.StageGate,
			r.FinalGate,
			r.FastGate,
			fmt.Sprintf("%d/%d", r.CasesPassed, r.CaseCount),
			fmt.Sprintf("%d/%d", r.PresetsPassed, r.PresetCount),
		})
	}
	return rows
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		PaddingLeft(0)
	styles.Cell = styles.Cell.PaddingLeft(0)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func nextWindow(n int) int {
	for _, w := range []int{5, 10, 20, 50, 100} {
		if w > n {
			return w
		}
	}
	return n
}

func prevWindow(n int) int {
	prev := 1
	for _, w := range []int{5, 10, 20, 50, 100} {
		if w >= n {
			break
		}
		prev = w
	}
	return prev
}

func shortHash(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		if gap := width - lipgloss.Width(line); gap > 0 {
			lines[i] = line + strings.Repeat(" ", gap)
		}
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
