package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/gabmichels/chloe-engine/internal/calendar"
	"github.com/gabmichels/chloe-engine/internal/engine"
	"github.com/gabmichels/chloe-engine/internal/rhythm"
	"github.com/gabmichels/chloe-engine/internal/scoring"
	"github.com/gabmichels/chloe-engine/internal/store"
)

// View represents the current view
type View int

const (
	ViewTasks View = iota
	ViewPriorities
	ViewSchedule
	ViewLog
	ViewAdd
	ViewDetail
)

var tabNames = []string{"Tasks", "Priorities", "Schedule", "Log"}

// KeyMap defines keybindings
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Tab      key.Binding
	Add      key.Binding
	Complete key.Binding
	Block    key.Binding
	Decide   key.Binding
	Enter    key.Binding
	Back     key.Binding
	Quit     key.Binding
	Help     key.Binding
}

var keys = KeyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
	Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
	Block:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "block/unblock")),
	Decide:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dry-run decision")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Add, k.Complete, k.Decide, k.Enter, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Tab, k.Add, k.Complete},
		{k.Block, k.Decide, k.Quit},
	}
}

// Model is the main TUI model
type Model struct {
	store    *store.Store
	calendar *calendar.Scheduler
	engine   *engine.Engine

	// View state
	currentView View
	activeTab   View
	width       int
	height      int

	// Data
	tasks      []*store.Task
	priorities []scoring.ScoredTask
	schedule   []calendar.Entry
	logEntries []*store.LogEntry

	// Tables per tab
	taskTable     table.Model
	priorityTable table.Model
	logTable      table.Model

	// Detail view
	detailTitle string
	viewport    viewport.Model
	mdRenderer  *glamour.TermRenderer

	// Add form
	formInputs     []textinput.Model
	descInput      textarea.Model
	formFocus      int
	formValidation map[int]string

	// Decision run
	spinner         spinner.Model
	decisionRunning bool

	// Help
	help     help.Model
	showHelp bool

	// Status
	statusMsg   string
	statusErr   bool
	statusTimer int
}

// Form field indices
const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldDeadline
	fieldCount
)

// Layout constants
const (
	headerHeight   = 4
	footerHeight   = 4
	minTableHeight = 5
	maxTableWidth  = 140
)

func taskColumns(width int) []table.Column {
	available := width - 4
	if available < 60 {
		available = 60
	}
	if available > maxTableWidth {
		available = maxTableWidth
	}
	titleWidth := available - 6 - 12 - 10 - 12 - 10
	if titleWidth < 16 {
		titleWidth = 16
	}
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Title", Width: titleWidth},
		{Title: "Status", Width: 12},
		{Title: "Priority", Width: 10},
		{Title: "Deadline", Width: 12},
	}
}

func priorityColumns(width int) []table.Column {
	available := width - 4
	if available < 60 {
		available = 60
	}
	if available > maxTableWidth {
		available = maxTableWidth
	}
	titleWidth := available - 6 - 8 - 12 - 10
	if titleWidth < 16 {
		titleWidth = 16
	}
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Score", Width: 8},
		{Title: "Title", Width: titleWidth},
		{Title: "Status", Width: 12},
		{Title: "Priority", Width: 10},
	}
}

func logColumns(width int) []table.Column {
	available := width - 4
	if available < 60 {
		available = 60
	}
	if available > maxTableWidth {
		available = maxTableWidth
	}
	nameWidth := available - 18 - 12 - 6
	if nameWidth < 16 {
		nameWidth = 16
	}
	return []table.Column{
		{Title: "When", Width: 18},
		{Title: "Action", Width: 12},
		{Title: "What", Width: nameWidth},
		{Title: "Sim", Width: 6},
	}
}

// NewModel creates a new TUI model
func NewModel(st *store.Store, cal *calendar.Scheduler, eng *engine.Engine) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(warningColor)

	h := help.New()
	h.Styles.ShortKey = helpKeyStyle
	h.Styles.ShortDesc = helpDescStyle

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	m := Model{
		store:          st,
		calendar:       cal,
		engine:         eng,
		taskTable:      newTable(taskColumns(100)),
		priorityTable:  newTable(priorityColumns(100)),
		logTable:       newTable(logColumns(100)),
		spinner:        s,
		help:           h,
		viewport:       viewport.New(80, 20),
		mdRenderer:     renderer,
		formValidation: make(map[int]string),
	}
	m.initFormInputs()
	return m
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimTextColor).
		BorderBottom(true).
		Bold(true).
		Foreground(accentColor)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(primaryColor).
		Bold(true)
	t.SetStyles(ts)
	return t
}

func (m *Model) initFormInputs() {
	m.formInputs = make([]textinput.Model, fieldCount)

	m.formInputs[fieldTitle] = textinput.New()
	m.formInputs[fieldTitle].Placeholder = "Draft the market research summary"
	m.formInputs[fieldTitle].CharLimit = 200
	m.formInputs[fieldTitle].Width = 50

	m.descInput = textarea.New()
	m.descInput.Placeholder = "What does done look like?"
	m.descInput.CharLimit = 2000
	m.descInput.SetWidth(52)
	m.descInput.SetHeight(5)
	m.descInput.ShowLineNumbers = false

	m.formInputs[fieldPriority] = textinput.New()
	m.formInputs[fieldPriority].Placeholder = "medium (high/medium/low)"
	m.formInputs[fieldPriority].CharLimit = 10
	m.formInputs[fieldPriority].Width = 50

	m.formInputs[fieldDeadline] = textinput.New()
	m.formInputs[fieldDeadline].Placeholder = "2026-09-15 (optional)"
	m.formInputs[fieldDeadline].CharLimit = 10
	m.formInputs[fieldDeadline].Width = 50
}

func (m *Model) resetForm() {
	m.initFormInputs()
	m.formFocus = 0
	m.formValidation = make(map[int]string)
	m.formInputs[fieldTitle].Focus()
}

func (m *Model) focusFormField(field int) {
	for i := range m.formInputs {
		m.formInputs[i].Blur()
	}
	m.descInput.Blur()

	m.formFocus = field
	if field == fieldDescription {
		m.descInput.Focus()
	} else {
		m.formInputs[field].Focus()
	}
}

func (m *Model) validateForm() bool {
	m.formValidation = make(map[int]string)
	valid := true

	if strings.TrimSpace(m.formInputs[fieldTitle].Value()) == "" {
		m.formValidation[fieldTitle] = "Title is required"
		valid = false
	}

	priority := strings.TrimSpace(m.formInputs[fieldPriority].Value())
	if priority != "" && !store.TaskPriority(priority).Valid() {
		m.formValidation[fieldPriority] = "Use high, medium, or low"
		valid = false
	}

	deadline := strings.TrimSpace(m.formInputs[fieldDeadline].Value())
	if deadline != "" {
		if _, err := time.Parse("2006-01-02", deadline); err != nil {
			m.formValidation[fieldDeadline] = "Use YYYY-MM-DD"
			valid = false
		}
	}

	return valid
}

func (m *Model) updateTaskTable() {
	rows := make([]table.Row, len(m.tasks))
	for i, task := range m.tasks {
		deadline := "-"
		if task.Deadline != "" {
			deadline = task.Deadline
		}
		rows[i] = table.Row{
			fmt.Sprintf("%d", task.ID),
			truncate(task.Title, 60),
			string(task.Status),
			string(task.Priority),
			deadline,
		}
	}
	m.taskTable.SetRows(rows)
}

func (m *Model) updatePriorityTable() {
	rows := make([]table.Row, len(m.priorities))
	for i, st := range m.priorities {
		rows[i] = table.Row{
			fmt.Sprintf("%d", st.Task.ID),
			fmt.Sprintf("%.2f", st.Score),
			truncate(st.Task.Title, 60),
			string(st.Task.Status),
			string(st.Task.Priority),
		}
	}
	m.priorityTable.SetRows(rows)
}

func (m *Model) updateLogTable() {
	rows := make([]table.Row, len(m.logEntries))
	for i, entry := range m.logEntries {
		sim := ""
		if entry.Simulated {
			sim = "yes"
		}
		rows[i] = table.Row{
			entry.CreatedAt.Format("Jan 02 15:04:05"),
			string(entry.ActionType),
			truncate(entry.ActionName, 50),
			sim,
		}
	}
	m.logTable.SetRows(rows)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// Messages
type tasksLoadedMsg struct{ tasks []*store.Task }
type prioritiesLoadedMsg struct{ scored []scoring.ScoredTask }
type scheduleLoadedMsg struct{ entries []calendar.Entry }
type logLoadedMsg struct{ entries []*store.LogEntry }
type taskCreatedMsg struct{ task *store.Task }
type statusChangedMsg struct {
	id     int64
	status store.TaskStatus
}
type decisionDoneMsg struct{ result *engine.Result }
type errMsg struct{ err error }
type tickMsg time.Time

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadTasks(),
		m.loadPriorities(),
		m.loadSchedule(),
		m.loadLog(),
		m.spinner.Tick,
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.store.ListActiveTasks()
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{tasks}
	}
}

func (m *Model) loadPriorities() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.store.ListActiveTasks()
		if err != nil {
			return errMsg{err}
		}
		now := time.Now()
		return prioritiesLoadedMsg{scoring.Prioritize(tasks, rhythm.Today(now), 0, now)}
	}
}

func (m *Model) loadSchedule() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.calendar.TodaysSchedule()
		if err != nil {
			return errMsg{err}
		}
		return scheduleLoadedMsg{entries}
	}
}

func (m *Model) loadLog() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.store.ListLog(50)
		if err != nil {
			return errMsg{err}
		}
		return logLoadedMsg{entries}
	}
}

func (m *Model) runDecision() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		// The TUI only dry-runs; real dispatches belong to the daemon.
		return decisionDoneMsg{m.engine.Run(ctx, engine.ModeSimulation)}
	}
}

func (m *Model) saveTask() tea.Cmd {
	return func() tea.Msg {
		priority := store.TaskPriority(strings.TrimSpace(m.formInputs[fieldPriority].Value()))
		if priority == "" {
			priority = store.PriorityMedium
		}
		task := &store.Task{
			Title:       strings.TrimSpace(m.formInputs[fieldTitle].Value()),
			Description: strings.TrimSpace(m.descInput.Value()),
			Priority:    priority,
			Deadline:    strings.TrimSpace(m.formInputs[fieldDeadline].Value()),
		}
		if err := m.store.CreateTask(task); err != nil {
			return errMsg{err}
		}
		return taskCreatedMsg{task}
	}
}

func (m *Model) changeStatus(id int64, status store.TaskStatus, note string) tea.Cmd {
	return func() tea.Msg {
		updated, err := m.store.UpdateTaskStatus(id, status, note)
		if err != nil {
			return errMsg{err}
		}
		if !updated {
			return errMsg{fmt.Errorf("task %d not found", id)}
		}
		return statusChangedMsg{id: id, status: status}
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
	m.statusTimer = 5
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.currentView {
		case ViewAdd:
			return m.updateForm(msg)
		case ViewDetail:
			return m.updateDetail(msg)
		default:
			return m.updateMain(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.taskTable.SetColumns(taskColumns(msg.Width))
		m.priorityTable.SetColumns(priorityColumns(msg.Width))
		m.logTable.SetColumns(logColumns(msg.Width))

		tableHeight := msg.Height - headerHeight - footerHeight - 2
		if tableHeight < minTableHeight {
			tableHeight = minTableHeight
		}
		m.taskTable.SetHeight(tableHeight)
		m.priorityTable.SetHeight(tableHeight)
		m.logTable.SetHeight(tableHeight)

		m.viewport.Width = msg.Width - 6
		m.viewport.Height = tableHeight
		m.help.Width = msg.Width

		if renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-10),
		); err == nil {
			m.mdRenderer = renderer
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		if m.statusTimer > 0 {
			m.statusTimer--
			if m.statusTimer == 0 {
				m.statusMsg = ""
			}
		}
		cmds = append(cmds, tickCmd(), m.loadTasks(), m.loadPriorities(), m.loadSchedule(), m.loadLog())

	case tasksLoadedMsg:
		m.tasks = msg.tasks
		m.updateTaskTable()

	case prioritiesLoadedMsg:
		m.priorities = msg.scored
		m.updatePriorityTable()

	case scheduleLoadedMsg:
		m.schedule = msg.entries

	case logLoadedMsg:
		m.logEntries = msg.entries
		m.updateLogTable()

	case taskCreatedMsg:
		m.setStatus("Task saved: "+msg.task.Title, false)
		m.currentView = m.activeTab
		cmds = append(cmds, m.loadTasks(), m.loadPriorities())

	case statusChangedMsg:
		m.setStatus(fmt.Sprintf("Task %d → %s", msg.id, msg.status), false)
		cmds = append(cmds, m.loadTasks(), m.loadPriorities(), m.loadSchedule())

	case decisionDoneMsg:
		m.decisionRunning = false
		r := msg.result
		switch r.Action {
		case engine.ActionTask:
			m.setStatus(fmt.Sprintf("Would work on #%d %q (score %.2f)", r.TaskID, r.TaskTitle, r.Score), false)
		case engine.ActionIdle:
			m.setStatus(fmt.Sprintf("Would run idle activity %q", r.Activity.Name), false)
		case engine.ActionEscalation:
			m.setStatus("Would escalate: "+r.Reason, false)
		default:
			m.setStatus("Nothing to do: "+r.Reason, false)
		}
		cmds = append(cmds, m.loadLog())

	case errMsg:
		m.setStatus("Error: "+msg.err.Error(), true)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	case "tab":
		m.activeTab = (m.activeTab + 1) % View(len(tabNames))
		m.currentView = m.activeTab
		return m, nil
	case "a":
		m.currentView = ViewAdd
		m.resetForm()
		return m, textinput.Blink
	case "d":
		if m.decisionRunning {
			return m, nil
		}
		m.decisionRunning = true
		return m, m.runDecision()
	case "c":
		if m.currentView == ViewTasks {
			if task := m.selectedTask(); task != nil {
				return m, m.changeStatus(task.ID, store.StatusCompleted, "Completed from dashboard")
			}
		}
	case "b":
		if m.currentView == ViewTasks {
			if task := m.selectedTask(); task != nil {
				next := store.StatusBlocked
				if task.Status == store.StatusBlocked {
					next = store.StatusPending
				}
				return m, m.changeStatus(task.ID, next, "")
			}
		}
	case "enter":
		switch m.currentView {
		case ViewTasks:
			if task := m.selectedTask(); task != nil {
				m.openTaskDetail(task)
				return m, nil
			}
		case ViewLog:
			if entry := m.selectedLogEntry(); entry != nil {
				m.openLogDetail(entry)
				return m, nil
			}
		}
	}

	switch m.currentView {
	case ViewTasks:
		m.taskTable, cmd = m.taskTable.Update(msg)
	case ViewPriorities:
		m.priorityTable, cmd = m.priorityTable.Update(msg)
	case ViewLog:
		m.logTable, cmd = m.logTable.Update(msg)
	}
	return m, cmd
}

func (m *Model) selectedTask() *store.Task {
	idx := m.taskTable.Cursor()
	if idx < 0 || idx >= len(m.tasks) {
		return nil
	}
	return m.tasks[idx]
}

func (m *Model) selectedLogEntry() *store.LogEntry {
	idx := m.logTable.Cursor()
	if idx < 0 || idx >= len(m.logEntries) {
		return nil
	}
	return m.logEntries[idx]
}

func (m *Model) openTaskDetail(task *store.Task) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", task.Title)
	fmt.Fprintf(&b, "**Status:** %s  **Priority:** %s\n\n", task.Status, task.Priority)
	if task.Deadline != "" {
		fmt.Fprintf(&b, "**Deadline:** %s\n\n", task.Deadline)
	}
	if task.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", task.Description)
	}
	if len(task.Dependencies) > 0 {
		b.WriteString("## Depends on\n\n")
		for _, id := range task.Dependencies {
			fmt.Fprintf(&b, "- task %d\n", id)
		}
		b.WriteString("\n")
	}
	if len(task.Notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, note := range task.Notes {
			fmt.Fprintf(&b, "- _%s_: %s\n", note.CreatedAt.Format("Jan 02 15:04"), note.Content)
		}
	}

	m.detailTitle = fmt.Sprintf("Task #%d", task.ID)
	m.setViewportMarkdown(b.String())
	m.currentView = ViewDetail
}

func (m *Model) openLogDetail(entry *store.LogEntry) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", entry.ActionType, entry.ActionName)
	fmt.Fprintf(&b, "**When:** %s  **Invocation:** %s\n\n",
		entry.CreatedAt.Format("2006-01-02 15:04:05"), entry.InvocationID)
	if entry.Simulated {
		b.WriteString("_Simulated run, no side effects._\n\n")
	}
	if entry.Details != "" {
		b.WriteString("```json\n")
		b.WriteString(entry.Details)
		b.WriteString("\n```\n")
	}

	m.detailTitle = "Log entry"
	m.setViewportMarkdown(b.String())
	m.currentView = ViewDetail
}

func (m *Model) setViewportMarkdown(md string) {
	content := md
	if m.mdRenderer != nil {
		if rendered, err := m.mdRenderer.Render(md); err == nil {
			content = rendered
		}
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func (m *Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.String() {
	case "esc", "q":
		m.currentView = m.activeTab
		return m, nil
	}
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		m.currentView = m.activeTab
		return m, nil
	case "tab":
		m.focusFormField((m.formFocus + 1) % fieldCount)
		m.validateForm()
		return m, textinput.Blink
	case "shift+tab":
		prev := m.formFocus - 1
		if prev < 0 {
			prev = fieldCount - 1
		}
		m.focusFormField(prev)
		m.validateForm()
		return m, textinput.Blink
	case "ctrl+s":
		if m.validateForm() {
			return m, m.saveTask()
		}
		return m, nil
	case "enter":
		if m.formFocus == fieldDescription {
			m.descInput, cmd = m.descInput.Update(msg)
			return m, cmd
		}
		if m.formFocus == fieldCount-1 {
			if m.validateForm() {
				return m, m.saveTask()
			}
			return m, nil
		}
		m.focusFormField(m.formFocus + 1)
		m.validateForm()
		return m, textinput.Blink
	}

	if m.formFocus == fieldDescription {
		m.descInput, cmd = m.descInput.Update(msg)
	} else {
		m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
	}
	m.validateForm()
	return m, cmd
}

func (m Model) View() string {
	var content string
	switch m.currentView {
	case ViewTasks, ViewPriorities, ViewSchedule, ViewLog:
		content = m.renderMain()
	case ViewAdd:
		content = m.renderForm()
	case ViewDetail:
		content = m.renderDetail()
	}
	return appStyle.Render(content)
}

func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(logoIcon + " " + logoStyle.Render("Chloe"))
	if m.decisionRunning {
		b.WriteString("  ")
		b.WriteString(m.spinner.View())
		b.WriteString(statusRunning.Render(" deciding..."))
	}
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.currentView {
	case ViewTasks:
		if len(m.tasks) == 0 {
			b.WriteString(emptyBoxStyle.Render("No tasks yet\n\nPress 'a' to add your first task"))
		} else {
			b.WriteString(m.taskTable.View())
		}
	case ViewPriorities:
		if len(m.priorities) == 0 {
			b.WriteString(emptyBoxStyle.Render("Nothing to prioritize"))
		} else {
			b.WriteString(m.priorityTable.View())
		}
	case ViewSchedule:
		b.WriteString(m.renderSchedule())
	case ViewLog:
		if len(m.logEntries) == 0 {
			b.WriteString(emptyBoxStyle.Render("No decisions recorded yet\n\nPress 'd' for a dry run"))
		} else {
			b.WriteString(m.logTable.View())
		}
	}

	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorMsgStyle.Render("✗ " + m.statusMsg))
		} else {
			b.WriteString(successMsgStyle.Render("✓ " + m.statusMsg))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.showHelp {
		b.WriteString(m.help.FullHelpView(keys.FullHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(keys.ShortHelp()))
	}
	return b.String()
}

func (m Model) renderTabs() string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		if View(i) == m.activeTab {
			parts[i] = activeTabStyle.Render(name)
		} else {
			parts[i] = inactiveTabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderSchedule() string {
	if len(m.schedule) == 0 {
		return emptyBoxStyle.Render("No blocks scheduled today")
	}

	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Today, " + time.Now().Format("Monday Jan 02")))
	b.WriteString("\n\n")
	for _, entry := range m.schedule {
		window := fmt.Sprintf("%s – %s",
			entry.Block.StartTime.Format("15:04"),
			entry.Block.EndTime.Format("15:04"))
		if entry.Block.TaskID == nil {
			b.WriteString(statusPending.Render(window + "  (open)"))
		} else {
			title := entry.TaskTitle
			if title == "" {
				title = fmt.Sprintf("task %d", *entry.Block.TaskID)
			}
			var style lipgloss.Style
			switch entry.TaskStatus {
			case store.StatusInProgress:
				style = statusRunning
			case store.StatusBlocked:
				style = statusFail
			default:
				style = statusOK
			}
			b.WriteString(window + "  " + style.Render(title))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", 40)))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Today's rhythm: " + behaviorSummary()))
	return b.String()
}

func behaviorSummary() string {
	behaviors := rhythm.Today(time.Now())
	if len(behaviors) == 0 {
		return "free day"
	}
	names := make([]string, len(behaviors))
	for i, b := range behaviors {
		names[i] = b.Name
	}
	return strings.Join(names, ", ")
}

func (m Model) renderForm() string {
	var b strings.Builder

	b.WriteString(logoIcon + " " + logoStyle.Render("Add Task"))
	b.WriteString("\n\n")

	labels := []string{"Title", "Description", "Priority", "Deadline"}
	for i, label := range labels {
		b.WriteString(inputLabelStyle.Render(label))
		if errText, hasErr := m.formValidation[i]; hasErr {
			b.WriteString("  ")
			b.WriteString(errorMsgStyle.Render("✗ " + errText))
		}
		b.WriteString("\n")

		if i == fieldDescription {
			if i == m.formFocus {
				b.WriteString(focusedInputStyle.Render(m.descInput.View()))
			} else {
				b.WriteString(blurredInputStyle.Render(m.descInput.View()))
			}
		} else {
			if i == m.formFocus {
				b.WriteString(focusedInputStyle.Render(m.formInputs[i].View()))
			} else {
				b.WriteString(blurredInputStyle.Render(m.formInputs[i].View()))
			}
		}
		b.WriteString("\n\n")
	}

	if m.statusMsg != "" && m.statusErr {
		b.WriteString(errorMsgStyle.Render("✗ " + m.statusMsg))
		b.WriteString("\n")
	}

	helpText := helpKeyStyle.Render("tab") + helpDescStyle.Render(" next • ") +
		helpKeyStyle.Render("ctrl+s") + helpDescStyle.Render(" save • ") +
		helpKeyStyle.Render("esc") + helpDescStyle.Render(" cancel")
	b.WriteString("\n")
	b.WriteString(helpText)
	return b.String()
}

func (m Model) renderDetail() string {
	var b strings.Builder

	b.WriteString(logoIcon + " " + logoStyle.Render(m.detailTitle))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")

	helpText := helpKeyStyle.Render("↑/↓") + helpDescStyle.Render(" scroll • ") +
		helpKeyStyle.Render("esc") + helpDescStyle.Render(" back")
	b.WriteString(helpText)
	return b.String()
}

// Run starts the TUI application
func Run(st *store.Store, cal *calendar.Scheduler, eng *engine.Engine) error {
	m := NewModel(st, cal, eng)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
