package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"

	"github.com/white6md/taskboard/internal/app"
	"github.com/white6md/taskboard/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	LoadBoard(context.Context) (domain.BoardLayout, error)
	NewController(domain.BoardLayout, app.Dependencies) (*app.Controller, error)
	RecordResolution(context.Context, app.Resolution, *domain.BoardLayout) error
}

// loadedMsg carries a freshly loaded board layout.
type loadedMsg struct {
	layout domain.BoardLayout
	err    error
}

// moveResolvedMsg carries one persistence outcome back to the update loop.
type moveResolvedMsg struct {
	result app.MoveResult
}

// moveRecordedMsg reports whether the journal write for a resolution succeeded.
type moveRecordedMsg struct {
	err error
}

// noticeExpiredMsg dismisses the notification with the matching sequence.
type noticeExpiredMsg struct {
	seq int
}

// notice is one transient notification.
type notice struct {
	category domain.NotificationCategory
	message  string
}

// boardSurface receives controller output. It is shared by every copy of the model.
type boardSurface struct {
	snapshot domain.BoardSnapshot
	queued   []notice
	editing  *domain.EditDataset
}

// RenderStats implements app.StatsRenderer.
func (s *boardSurface) RenderStats(snap domain.BoardSnapshot) {
	s.snapshot = snap
}

// Notify implements app.Notifier.
func (s *boardSurface) Notify(category domain.NotificationCategory, message string) {
	s.queued = append(s.queued, notice{category: category, message: message})
}

// OpenTaskEditor implements app.TaskEditor.
func (s *boardSurface) OpenTaskEditor(ds domain.EditDataset) {
	s.editing = &ds
}

// dragState tracks an in-progress mouse drag.
type dragState struct {
	active bool
	taskID string
	over   domain.Status
}

// Model represents model data used by this package.
type Model struct {
	svc     Service
	ctrl    *app.Controller
	surface *boardSurface

	ready  bool
	width  int
	height int
	err    error

	title  string
	status string
	help   help.Model
	keys   keyMap

	selectedColumn int
	selectedTask   int
	drag           dragState

	notice        notice
	noticeSeq     int
	notifyDismiss time.Duration

	copyText func(string) error
	markdown *descriptionRenderer
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:           svc,
		surface:       &boardSurface{},
		title:         "taskboard",
		status:        "loading...",
		help:          h,
		keys:          newKeyMap(),
		notifyDismiss: 4 * time.Second,
		copyText:      clipboard.WriteAll,
		markdown:      newDescriptionRenderer("dark"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// loadData loads the board layout.
func (m Model) loadData() tea.Msg {
	layout, err := m.svc.LoadBoard(context.Background())
	return loadedMsg{layout: layout, err: err}
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		focusID := m.selectedTaskID()
		m.surface.editing = nil
		ctrl, err := m.svc.NewController(msg.layout, app.Dependencies{
			Stats:    m.surface,
			Notifier: m.surface,
			Editor:   m.surface,
		})
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.ctrl = ctrl
		m.drag = dragState{}
		if focusID != "" {
			m.focusTask(focusID)
		}
		m.clampSelections()
		m.status = "ready"
		return m, nil

	case moveResolvedMsg:
		if m.ctrl == nil {
			return m, nil
		}
		focusID := m.selectedTaskID()
		res, err := m.ctrl.Resolve(msg.result)
		if err != nil {
			m.status = "resolve failed: " + err.Error()
			return m, nil
		}
		m.status = m.resolutionStatus(res)
		if focusID != "" {
			m.focusTask(focusID)
		}
		m.clampSelections()
		// A card under the pointer may sit in a lane its status does not match yet.
		var settled *domain.BoardLayout
		if _, dragging := m.ctrl.Dragging(); !dragging && !m.ctrl.HasPending() {
			layout := m.ctrl.Layout()
			settled = &layout
		}
		noticeCmd := m.takeNotices()
		return m, tea.Batch(m.recordCmd(res, settled), noticeCmd)

	case moveRecordedMsg:
		if msg.err != nil {
			m.status = "journal error: " + msg.err.Error()
		}
		return m, nil

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = notice{}
		}
		return m, nil

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey routes one key press.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.surface.editing != nil {
		if key.Matches(msg, m.keys.closeOverlay) || key.Matches(msg, m.keys.editTask) || key.Matches(msg, m.keys.quit) {
			m.surface.editing = nil
			m.status = "ready"
		}
		return m, nil
	}
	if m.help.ShowAll {
		if key.Matches(msg, m.keys.toggleHelp) || key.Matches(msg, m.keys.closeOverlay) {
			m.help.ShowAll = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.reload):
		if m.ctrl != nil && m.ctrl.HasPending() {
			m.status = "moves pending, reload after they settle"
			return m, nil
		}
		m.status = "reloading..."
		return m, m.loadData
	}
	if m.ctrl == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveLeft):
		m.selectedColumn--
		m.selectedTask = 0
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.selectedColumn++
		m.selectedTask = 0
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selectedTask--
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectedTask++
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveTaskLeft):
		return m.moveSelectedTask(-1)
	case key.Matches(msg, m.keys.moveTaskRight):
		return m.moveSelectedTask(1)
	case key.Matches(msg, m.keys.moveTaskUp):
		return m.reorderSelectedTask(-1)
	case key.Matches(msg, m.keys.moveTaskDown):
		return m.reorderSelectedTask(1)
	case key.Matches(msg, m.keys.editTask):
		taskID := m.selectedTaskID()
		if taskID == "" {
			m.status = "no task selected"
			return m, nil
		}
		if err := m.ctrl.OpenEditor(taskID); err != nil {
			m.status = "edit failed: " + err.Error()
			return m, nil
		}
		m.status = "editing #" + taskID
		return m, nil
	case key.Matches(msg, m.keys.copyTask):
		taskID := m.selectedTaskID()
		if taskID == "" {
			m.status = "no task selected"
			return m, nil
		}
		if err := m.copyText(taskID); err != nil {
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied #" + taskID
		return m, nil
	}
	return m, nil
}

// moveSelectedTask drops the selected card on the adjacent lane.
func (m Model) moveSelectedTask(delta int) (tea.Model, tea.Cmd) {
	if m.drag.active {
		m.status = "finish the drag first"
		return m, nil
	}
	taskID := m.selectedTaskID()
	if taskID == "" {
		m.status = "no task selected"
		return m, nil
	}
	cols := m.ctrl.Columns()
	target := m.selectedColumn + delta
	if target < 0 || target >= len(cols) {
		return m, nil
	}
	attempt, changed, err := m.ctrl.DropOn(taskID, cols[target].Status)
	if err != nil {
		m.status = "move failed: " + err.Error()
		return m, nil
	}
	m.focusTask(taskID)
	if !changed {
		return m, nil
	}
	m.status = fmt.Sprintf("moving #%s to %s...", taskID, cols[target].Name)
	return m, m.persistCmd(attempt)
}

// reorderSelectedTask shifts the selected card one slot within its lane.
func (m Model) reorderSelectedTask(delta int) (tea.Model, tea.Cmd) {
	if m.drag.active {
		m.status = "finish the drag first"
		return m, nil
	}
	card, col, idx, ok := m.selectedCard()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	target := idx + delta
	if target < 0 || target >= col.Len() {
		return m, nil
	}
	cards := col.Cards()
	// Unit rows: card i spans [3i, 3i+2). The pointer sits on the title row of the reference card.
	geo := app.GeometryFunc(func(taskID string) (app.Bounds, bool) {
		for i, c := range cards {
			if c.TaskID == taskID {
				return app.Bounds{Top: float64(3 * i), Height: 2}, true
			}
		}
		return app.Bounds{}, false
	})
	pointer := float64(3 * target)
	if delta > 0 {
		pointer = float64(3 * (target + 1))
	}
	if err := m.ctrl.DragStart(card.TaskID); err != nil {
		m.status = "reorder failed: " + err.Error()
		return m, nil
	}
	if _, err := m.ctrl.DragOver(col.Status, pointer, geo); err != nil {
		m.ctrl.DragEnd()
		m.status = "reorder failed: " + err.Error()
		return m, nil
	}
	_, _, err := m.ctrl.Drop(col.Status)
	m.ctrl.DragEnd()
	if err != nil {
		m.status = "reorder failed: " + err.Error()
		return m, nil
	}
	m.focusTask(card.TaskID)
	return m, nil
}

// handleMouseClick selects the card under the pointer and starts dragging it.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil || m.help.ShowAll || m.surface.editing != nil {
		return m, nil
	}
	if msg.Button != tea.MouseLeft {
		return m, nil
	}
	_, geo := m.renderBoard()
	colIdx, inLane := geo.columnAt(msg.X)
	taskID := ""
	if inLane {
		taskID, _ = geo.columns[colIdx].cardAt(msg.Y)
	}
	if m.drag.active {
		// The release of the previous drag was lost.
		m.drag = dragState{}
		m.ctrl.DragEnd()
	}
	if !inLane {
		m.clampSelections()
		return m, nil
	}
	m.selectedColumn = colIdx
	if taskID == "" {
		m.clampSelections()
		return m, nil
	}
	m.focusTask(taskID)
	if err := m.ctrl.DragStart(taskID); err != nil {
		m.status = "drag failed: " + err.Error()
		return m, nil
	}
	m.drag = dragState{active: true, taskID: taskID}
	m.status = "dragging #" + taskID
	return m, nil
}

// handleMouseMotion reorders the dragging card under the pointer.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil || !m.drag.active {
		return m, nil
	}
	_, geo := m.renderBoard()
	colIdx, ok := geo.columnAt(msg.X)
	if !ok || msg.Y < m.boardTop() {
		if m.drag.over != "" {
			m.ctrl.DragLeave(m.drag.over)
			m.drag.over = ""
		}
		return m, nil
	}
	status := geo.columns[colIdx].status
	if m.drag.over != "" && m.drag.over != status {
		m.ctrl.DragLeave(m.drag.over)
	}
	m.drag.over = status
	if _, err := m.ctrl.DragOver(status, float64(msg.Y), geo.bounds()); err != nil {
		m.status = "drag failed: " + err.Error()
		return m, nil
	}
	m.focusTask(m.drag.taskID)
	return m, nil
}

// handleMouseRelease drops the dragging card on the lane under the pointer, if any.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil || !m.drag.active {
		return m, nil
	}
	taskID := m.drag.taskID
	m.drag = dragState{}
	_, geo := m.renderBoard()
	colIdx, ok := geo.columnAt(msg.X)
	if !ok || msg.Y < m.boardTop() {
		if m.ctrl.DragEnd() {
			m.status = "drag cancelled"
		} else {
			m.status = "ready"
		}
		m.focusTask(taskID)
		return m, nil
	}
	attempt, changed, err := m.ctrl.Drop(geo.columns[colIdx].status)
	m.ctrl.DragEnd()
	m.focusTask(taskID)
	if err != nil {
		m.status = "drop failed: " + err.Error()
		return m, nil
	}
	if !changed {
		m.status = "ready"
		return m, nil
	}
	m.status = fmt.Sprintf("moving #%s...", taskID)
	return m, m.persistCmd(attempt)
}

// handleMouseWheel moves the task selection.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil || m.help.ShowAll || m.surface.editing != nil {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		m.selectedTask--
	case tea.MouseWheelDown:
		m.selectedTask++
	}
	m.clampSelections()
	return m, nil
}

// persistCmd issues the move call off the update loop.
func (m Model) persistCmd(attempt app.MoveAttempt) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return moveResolvedMsg{result: ctrl.Persist(context.Background(), attempt)}
	}
}

// recordCmd journals one resolution and caches the settled board.
func (m Model) recordCmd(res app.Resolution, settled *domain.BoardLayout) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return moveRecordedMsg{err: svc.RecordResolution(context.Background(), res, settled)}
	}
}

// takeNotices shows the newest queued notification and schedules its dismissal.
func (m *Model) takeNotices() tea.Cmd {
	if len(m.surface.queued) == 0 {
		return nil
	}
	m.notice = m.surface.queued[len(m.surface.queued)-1]
	m.surface.queued = nil
	m.noticeSeq++
	if m.notifyDismiss <= 0 {
		return nil
	}
	seq := m.noticeSeq
	return tea.Tick(m.notifyDismiss, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

// resolutionStatus returns the status line for a resolution.
func (m Model) resolutionStatus(res app.Resolution) string {
	taskID := res.Attempt.TaskID
	switch res.Outcome {
	case domain.MoveOutcomeSettled:
		return fmt.Sprintf("moved #%s to %s", taskID, m.columnName(res.Status))
	case domain.MoveOutcomeReconciled:
		return fmt.Sprintf("#%s reconciled to %s", taskID, m.columnName(res.Status))
	case domain.MoveOutcomeRolledBack:
		if errors.Is(res.Err, app.ErrServerRejection) {
			return fmt.Sprintf("move of #%s rejected, restored to %s", taskID, m.columnName(res.Status))
		}
		return fmt.Sprintf("move of #%s failed, restored to %s", taskID, m.columnName(res.Status))
	default:
		return "ready"
	}
}

// columnName returns the lane name for a status.
func (m Model) columnName(status domain.Status) string {
	if m.ctrl != nil {
		for _, col := range m.ctrl.Columns() {
			if col.Status == status {
				return col.Name
			}
		}
	}
	return string(status)
}

// selectedCard returns the selected card and its lane.
func (m Model) selectedCard() (*domain.Card, *domain.Column, int, bool) {
	if m.ctrl == nil {
		return nil, nil, 0, false
	}
	cols := m.ctrl.Columns()
	if m.selectedColumn < 0 || m.selectedColumn >= len(cols) {
		return nil, nil, 0, false
	}
	col := cols[m.selectedColumn]
	cards := col.Cards()
	if m.selectedTask < 0 || m.selectedTask >= len(cards) {
		return nil, nil, 0, false
	}
	return cards[m.selectedTask], col, m.selectedTask, true
}

// selectedTaskID returns the selected card id, or empty.
func (m Model) selectedTaskID() string {
	card, _, _, ok := m.selectedCard()
	if !ok {
		return ""
	}
	return card.TaskID
}

// focusTask moves the selection to wherever a card currently sits.
func (m *Model) focusTask(taskID string) {
	if m.ctrl == nil {
		return
	}
	_, col, idx, ok := m.ctrl.Locate(taskID)
	if !ok {
		return
	}
	for i, c := range m.ctrl.Columns() {
		if c == col {
			m.selectedColumn = i
			m.selectedTask = idx
			return
		}
	}
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	if m.ctrl == nil {
		m.selectedColumn = 0
		m.selectedTask = 0
		return
	}
	cols := m.ctrl.Columns()
	if len(cols) == 0 {
		m.selectedColumn = 0
		m.selectedTask = 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(cols)-1)
	m.selectedTask = clamp(m.selectedTask, 0, cols[m.selectedColumn].Len()-1)
}

// View renders the board.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// render returns the full screen content.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready || m.ctrl == nil {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render(m.title) + "  project " + m.ctrl.ProjectID()
	if m.drag.active {
		header += statusStyle.Render("  [dragging #" + m.drag.taskID + "]")
	}
	if m.ctrl.HasPending() {
		header += statusStyle.Render("  [saving]")
	}
	stats := m.renderStats(m.surface.snapshot)
	board, _ := m.renderBoard()

	footer := statusStyle.Render(m.status)
	if m.notice.message != "" {
		footer = noticeStyle(m.notice.category).Render(m.notice.message)
	}
	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	content := strings.Join([]string{header, stats, "", board}, "\n")
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)-1))
	}
	full := content + "\n" + footer + "\n" + helpLine

	overlay := ""
	switch {
	case m.surface.editing != nil:
		overlay = m.renderEditOverlay(*m.surface.editing, accent, muted, dim, m.width-8)
	case m.help.ShowAll:
		overlay = m.renderHelpOverlay(accent, muted, dim, m.width-8)
	}
	if overlay != "" {
		height := lipgloss.Height(full)
		if m.height > 0 {
			height = m.height
		}
		full = overlayOnContent(full, overlay, max(1, m.width), max(1, height))
	}
	return full
}

// renderStats renders the stats line and status chip.
func (m Model) renderStats(snap domain.BoardSnapshot) string {
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	bar := progressBar(snap.Percent, 20)
	chip := chipStyle(snap.Chip.Tone).Render(" " + snap.Chip.Text + " ")
	counts := muted.Render(fmt.Sprintf("Total %d  Done %d  Active %d", snap.Total, snap.Done, snap.Active))
	return fmt.Sprintf("%s  %s %d%%  %s", counts, bar, snap.Percent, chip)
}

// progressBar renders a fixed-width completion bar.
func progressBar(percent, width int) string {
	percent = clamp(percent, 0, 100)
	filled := percent * width / 100
	done := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render(strings.Repeat("█", filled))
	rest := lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(strings.Repeat("░", width-filled))
	return done + rest
}

// chipStyle returns the status chip style for one tone.
func chipStyle(tone domain.ChipTone) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	switch tone {
	case domain.ChipToneSuccess:
		return style.Background(lipgloss.Color("28"))
	case domain.ChipToneWarning:
		return style.Background(lipgloss.Color("130"))
	default:
		return style.Background(lipgloss.Color("240"))
	}
}

// noticeStyle returns the notification style for one category.
func noticeStyle(category domain.NotificationCategory) lipgloss.Style {
	if category == domain.NotificationFailure {
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
}

// cardSpot is the first rendered row of one visible card.
type cardSpot struct {
	taskID string
	row    int
}

// columnSpot is the horizontal extent of one rendered lane.
type columnSpot struct {
	status domain.Status
	x0, x1 int
	cards  []cardSpot
}

// cardAt returns the card rendered at row y.
func (c columnSpot) cardAt(y int) (string, bool) {
	for _, spot := range c.cards {
		if y >= spot.row && y < spot.row+cardRows {
			return spot.taskID, true
		}
	}
	return "", false
}

// boardGeometry maps screen cells to lanes and cards for the last render.
type boardGeometry struct {
	columns []columnSpot
}

// columnAt returns the lane index rendered at column x.
func (g boardGeometry) columnAt(x int) (int, bool) {
	for idx, col := range g.columns {
		if x >= col.x0 && x <= col.x1 {
			return idx, true
		}
	}
	return 0, false
}

// bounds exposes rendered card rows as drag geometry.
func (g boardGeometry) bounds() app.Geometry {
	rows := map[string]int{}
	for _, col := range g.columns {
		for _, spot := range col.cards {
			rows[spot.taskID] = spot.row
		}
	}
	return app.GeometryFunc(func(taskID string) (app.Bounds, bool) {
		row, ok := rows[taskID]
		if !ok {
			return app.Bounds{}, false
		}
		return app.Bounds{Top: float64(row), Height: cardRows}, true
	})
}

const (
	// cardRows is the rendered height of one card.
	cardRows = 2
	// columnInset is the border plus top padding above lane content.
	columnInset = 2
)

// renderBoard renders the lanes and records where each card landed.
func (m Model) renderBoard() (string, boardGeometry) {
	cols := m.ctrl.Columns()
	geo := boardGeometry{columns: make([]columnSpot, 0, len(cols))}
	if len(cols) == 0 {
		return "", geo
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	colWidth := m.columnWidthFor(m.width, len(cols))
	contentHeight := m.columnHeight()
	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 2).
		MarginRight(1).
		Width(colWidth)
	selColStyle := baseColStyle.BorderForeground(accent)
	dropColStyle := baseColStyle.BorderForeground(lipgloss.Color("42"))
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	selectedTaskStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	draggingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	itemSubStyle := lipgloss.NewStyle().Foreground(muted)

	dragging := ""
	if card, ok := m.ctrl.Dragging(); ok {
		dragging = card.TaskID
	}

	views := make([]string, 0, len(cols))
	x := 0
	for colIdx, col := range cols {
		spot := columnSpot{status: col.Status}
		lines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", col.Name, col.Count)), ""}
		cards := col.Cards()
		if len(cards) == 0 {
			lines = append(lines, emptyStyle.Render("(empty)"))
		}
		start := 0
		if colIdx == m.selectedColumn {
			start = scrollStart(m.selectedTask, contentHeight)
		}
		for i := start; i < len(cards); i++ {
			if len(lines)+cardRows > contentHeight {
				lines[len(lines)-1] = emptyStyle.Render("…")
				break
			}
			card := cards[i]
			selected := colIdx == m.selectedColumn && i == m.selectedTask
			prefix := "  "
			if selected {
				prefix = "│ "
			}
			title := prefix + truncate(card.Title(), max(1, colWidth-10))
			switch {
			case card.TaskID == dragging:
				title = draggingStyle.Render(title)
			case selected:
				title = selectedTaskStyle.Render(title)
			}
			spot.cards = append(spot.cards, cardSpot{taskID: card.TaskID, row: m.boardTop() + columnInset + len(lines)})
			lines = append(lines, title, prefix+itemSubStyle.Render(truncate(m.cardMeta(card), max(1, colWidth-10))))
			if i < len(cards)-1 {
				lines = append(lines, "")
			}
		}

		style := baseColStyle
		switch {
		case m.ctrl.DropReady(col.Status):
			style = dropColStyle
		case colIdx == m.selectedColumn:
			style = selColStyle
		}
		view := style.Render(fitLines(strings.Join(lines, "\n"), contentHeight))
		width := lipgloss.Width(view)
		spot.x0 = x
		spot.x1 = x + width - 2
		x += width
		views = append(views, view)
		geo.columns = append(geo.columns, spot)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...), geo
}

// cardMeta returns the secondary card line: status tag, due date, assignee, sync state.
func (m Model) cardMeta(card *domain.Card) string {
	parts := []string{"[" + card.Label + "]"}
	if card.Edit.Due != "" {
		parts = append(parts, "due "+card.Edit.Due)
	}
	if card.Edit.Assignee != "" {
		parts = append(parts, "@"+card.Edit.Assignee)
	}
	if m.ctrl.CardState(card.TaskID) == app.CardPending {
		parts = append(parts, "saving…")
	}
	return strings.Join(parts, " ")
}

// scrollStart returns the first visible card index so the selected card stays on screen.
func scrollStart(selected, contentHeight int) int {
	visible := max(1, (contentHeight-1)/(cardRows+1))
	if selected < visible {
		return 0
	}
	return selected - visible + 1
}

// columnWidthFor returns column width for.
func (m Model) columnWidthFor(boardWidth, columns int) int {
	if columns == 0 {
		return 24
	}
	w := 28
	if boardWidth > 0 {
		// Per-column overhead: left/right border (2), horizontal padding (4), margin-right (1)
		const colOverhead = 7
		usable := boardWidth - columns*colOverhead
		candidate := usable / columns
		if candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, 24, 42)
}

// columnHeight returns the number of content rows inside each lane.
func (m Model) columnHeight() int {
	// header, stats, spacer, footer, help (2), lane border and padding (4)
	h := m.height - 10
	if h < 8 {
		return 8
	}
	return h
}

// boardTop returns the first screen row of the lanes: header, stats, spacer.
func (m Model) boardTop() int {
	return 3
}

// renderEditOverlay renders the task edit modal.
func (m Model) renderEditOverlay(ds domain.EditDataset, accent, muted, dim color.Color, maxWidth int) string {
	width := clamp(maxWidth, 40, 90)
	label := lipgloss.NewStyle().Foreground(muted)
	title := ds.Title
	if title == "" {
		title = "(untitled)"
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Edit task #" + ds.ID),
		"",
		label.Render("title    ") + title,
		label.Render("status   ") + m.columnName(ds.Status),
		label.Render("due      ") + valueOrDash(ds.Due),
		label.Render("assignee ") + valueOrDash(ds.Assignee),
		"",
	}
	if body := m.markdown.render(ds.ID, ds.Description, width-4); body != "" {
		lines = append(lines, body)
	} else {
		lines = append(lines, label.Render("no description"))
	}
	lines = append(lines, "", label.Render("press e or esc to close"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// renderHelpOverlay renders the help modal.
func (m Model) renderHelpOverlay(accent, muted, dim color.Color, maxWidth int) string {
	width := clamp(maxWidth, 56, 100)
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)

	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Help")
	workflow := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Workflows"),
		"1. drag a card with the mouse and release it over a lane to move it",
		"2. [ ] move the selected task across lanes  •  K J reorder within a lane",
		"3. e/enter view the task editor  •  y copy the task id",
		"4. failed moves return the card to where it was",
	}
	lines := []string{
		title,
		"",
		hb.View(m.keys),
		"",
		lipgloss.NewStyle().Foreground(muted).Render(strings.Join(workflow, "\n")),
		lipgloss.NewStyle().Foreground(muted).Render("press ? or esc to close"),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// valueOrDash returns v, or a dash when v is empty.
func valueOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
