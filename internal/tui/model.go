// Package tui is a terminal front-end over the wellness screens.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"example.com/wellness/internal/domain"
	"example.com/wellness/internal/form"
	"example.com/wellness/internal/screen"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirm
)

const (
	defaultWidth = 72
	fieldGap     = 2
)

type pendingDelete struct {
	prompt    screen.Prompt
	onConfirm func()
}

// Model is the bubbletea model. Tabs are the record screens followed by the tips tab.
type Model struct {
	ctx      context.Context
	screens  []screen.Screen
	reporter *Reporter

	tab     int
	cursors []int
	tipTab  int
	width   int
	mode    mode
	inputs  []textinput.Model
	names   []string
	focus   int
	pending *pendingDelete
	status  string
	warning string
}

// New builds a Model over screens. reporter must be the one the screens were built with,
// or nil.
func New(ctx context.Context, screens []screen.Screen, reporter *Reporter) Model {
	m := Model{
		ctx:      ctx,
		screens:  screens,
		reporter: reporter,
		cursors:  make([]int, len(screens)),
		width:    defaultWidth,
		status:   "a adicionar • e editar • d excluir • r restaurar • ←/→ trocar aba • q sair",
	}
	for _, sc := range screens {
		if err := sc.Activate(ctx); err != nil {
			m.warning = err.Error()
		}
	}
	return m
}

// Run starts the program and blocks until the user quits. Pending writes are flushed
// before returning.
func Run(ctx context.Context, screens []screen.Screen, reporter *Reporter) error {
	m := New(ctx, screens, reporter)
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	for _, sc := range screens {
		sc.Flush()
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return m.reporter.listen()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case warningMsg:
		m.warning = msg.title + ": " + msg.message
		return m, m.reporter.listen()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg.String())
		default:
			return m.updateList(msg.String())
		}
	}
	return m, nil
}

func (m Model) current() (screen.Screen, bool) {
	if m.tab < len(m.screens) {
		return m.screens[m.tab], true
	}
	return nil, false
}

func (m Model) selectedID() (int64, bool) {
	sc, ok := m.current()
	if !ok {
		return 0, false
	}
	rows := sc.View().Rows
	if len(rows) == 0 {
		return 0, false
	}
	return rows[clampCursor(m.cursors[m.tab], len(rows))].ID, true
}

func (m Model) updateList(key string) (tea.Model, tea.Cmd) {
	tabs := len(m.screens) + 1
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "right", "l", "tab":
		m.tab = (m.tab + 1) % tabs
	case "left", "h", "shift+tab":
		m.tab = (m.tab + tabs - 1) % tabs
	case "down", "j":
		if sc, ok := m.current(); ok {
			m.cursors[m.tab] = clampCursor(m.cursors[m.tab]+1, len(sc.View().Rows))
		}
	case "up", "k":
		if _, ok := m.current(); ok && m.cursors[m.tab] > 0 {
			m.cursors[m.tab]--
		}
	case "f":
		if _, ok := m.current(); !ok {
			m.tipTab = (m.tipTab + 1) % len(domain.Tabs)
		}
	case "a":
		if sc, ok := m.current(); ok {
			sc.OpenAdd()
			return m.openForm(sc, "Novo registro")
		}
	case "e", "enter":
		sc, ok := m.current()
		id, selected := m.selectedID()
		if !ok || !selected {
			return m, nil
		}
		if err := sc.OpenEdit(id); err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m.openForm(sc, "Editando registro")
	case "d":
		sc, ok := m.current()
		id, selected := m.selectedID()
		if !ok || !selected {
			return m, nil
		}
		err := sc.RequestDelete(m.ctx, id, screen.ConfirmerFunc(func(p screen.Prompt, onConfirm func()) {
			m.pending = &pendingDelete{prompt: p, onConfirm: onConfirm}
		}))
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.mode = modeConfirm
	case "r":
		if sc, ok := m.current(); ok {
			if err := sc.Reset(m.ctx); err != nil {
				m.status = "Falha ao restaurar"
			} else {
				m.cursors[m.tab] = 0
				m.status = "Dados de exemplo restaurados"
			}
		}
	}
	return m, nil
}

func (m Model) openForm(sc screen.Screen, status string) (tea.Model, tea.Cmd) {
	engine := sc.Form()
	fields := sc.Layout().Fields()
	m.inputs = make([]textinput.Model, len(fields))
	m.names = make([]string, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = "› "
		ti.Placeholder = f.Placeholder
		ti.CharLimit = 128
		ti.SetValue(engine.Value(f.Name))
		m.inputs[i] = ti
		m.names[i] = f.Name
	}
	m.mode = modeForm
	m.status = status
	return m.setFocus(0)
}

func (m Model) setFocus(i int) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	m.focus = (i + len(m.inputs)) % len(m.inputs)
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == m.focus {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sc, ok := m.current()
	if !ok {
		m.mode = modeList
		return m, nil
	}
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		sc.Close()
		m.mode = modeList
		m.status = "Edição cancelada"
		return m, nil
	case "tab", "down":
		return m.setFocus(m.focus + 1)
	case "shift+tab", "up":
		return m.setFocus(m.focus - 1)
	case "enter":
		id, _, err := sc.Submit(m.ctx)
		if err != nil {
			var verr *form.ValidationError
			if errors.As(err, &verr) {
				m.status = "Corrija os campos destacados"
			} else {
				m.status = err.Error()
				m.mode = modeList
			}
			return m, nil
		}
		m.mode = modeList
		m.status = fmt.Sprintf("Registro %d salvo", id)
		m.cursors[m.tab] = rowIndex(sc.View().Rows, id)
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if err := sc.ChangeField(m.names[m.focus], m.inputs[m.focus].Value()); err != nil {
		m.status = err.Error()
	}
	return m, cmd
}

func (m Model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y", "enter":
		if m.pending != nil {
			m.pending.onConfirm()
		}
		m.status = "Registro excluído"
		if sc, ok := m.current(); ok {
			m.cursors[m.tab] = clampCursor(m.cursors[m.tab], len(sc.View().Rows))
		}
	case "n", "N", "esc":
		m.status = "Exclusão cancelada"
	default:
		return m, nil
	}
	m.pending = nil
	m.mode = modeList
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	sc, ok := m.current()
	if !ok {
		b.WriteString(m.renderTips())
	} else {
		view := sc.View()
		b.WriteString(headerStyle.Render(view.Title))
		b.WriteString("\n")
		b.WriteString(renderSummary(view.Aggregate))
		b.WriteString("\n\n")
		switch m.mode {
		case modeForm:
			b.WriteString(m.renderForm(sc.Form()))
		default:
			b.WriteString(m.renderRows(view.Rows))
		}
		if m.mode == modeConfirm && m.pending != nil {
			b.WriteString("\n")
			b.WriteString(promptStyle.Render(fmt.Sprintf("%s\n%s\n[y] %s  [n] %s",
				m.pending.prompt.Title, m.pending.prompt.Message,
				m.pending.prompt.ConfirmLabel, m.pending.prompt.CancelLabel)))
		}
	}

	b.WriteString("\n\n")
	if m.warning != "" {
		b.WriteString(warningStyle.Render(m.warning))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) renderTabs() string {
	parts := make([]string, 0, len(m.screens)+1)
	for i, sc := range m.screens {
		parts = append(parts, tabLabel(sc.Title(), i == m.tab))
	}
	parts = append(parts, tabLabel("Qualidade de Vida", m.tab == len(m.screens)))
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func tabLabel(title string, active bool) string {
	if active {
		return activeTabStyle.Render(title)
	}
	return tabStyle.Render(title)
}

func (m Model) renderRows(rows []screen.Row) string {
	if len(rows) == 0 {
		return "Nenhum registro. Pressione 'a' para adicionar."
	}
	cursor := clampCursor(m.cursors[m.tab], len(rows))
	var b strings.Builder
	for i, row := range rows {
		marker := "  "
		title := row.Title
		if i == cursor {
			marker = cursorStyle.Render("> ")
			title = cursorStyle.Render(title)
		}
		fmt.Fprintf(&b, "%s%s %s\n", marker, title, badgeStyle.Render(row.Badge))
		if row.Detail != "" {
			fmt.Fprintf(&b, "    %s\n", row.Detail)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderForm draws the inputs positioned by the layout's arrangement for the terminal width.
func (m Model) renderForm(engine *form.Engine) string {
	errs := engine.Errors()
	index := make(map[string]int, len(m.names))
	for i, name := range m.names {
		index[name] = i
	}

	var b strings.Builder
	for _, line := range engine.Layout().Arrange(m.width-4, fieldGap) {
		cells := make([]string, 0, len(line.Cells))
		for _, cell := range line.Cells {
			ti := m.inputs[index[cell.Field.Name]]
			ti.Width = max(cell.Width-lipgloss.Width(ti.Prompt)-1, 1)

			label := cell.Field.Label
			if cell.Field.Required {
				label += " *"
			}
			content := labelStyle.Render(label) + "\n" + ti.View()
			if kind, bad := errs[cell.Field.Name]; bad {
				content += "\n" + errorStyle.Render(kind.Message())
			}
			style := lipgloss.NewStyle().Width(cell.Width).MarginRight(cell.GapAfter)
			cells = append(cells, style.Render(content))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderTips() string {
	active := domain.Tabs[m.tipTab]
	var b strings.Builder

	idx := domain.Wellbeing()
	b.WriteString(headerStyle.Render(fmt.Sprintf("Seu Índice de Bem-estar: %d", idx.Overall)))
	b.WriteString("\n")
	for _, cat := range domain.Tabs[1:] {
		fmt.Fprintf(&b, "%s %d  ", cat, idx.Categories[cat])
	}
	b.WriteString("\n\n")

	filters := make([]string, 0, len(domain.Tabs))
	for _, tab := range domain.Tabs {
		filters = append(filters, tabLabel(tab, tab == active))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, filters...))
	b.WriteString("\n\n")

	for _, tip := range domain.FilterTips(active) {
		fmt.Fprintf(&b, "%s %s\n  %s\n", headerStyle.Render(tip.Title), badgeStyle.Render(tip.Difficulty+" • "+tip.Time), tip.Description)
	}
	if active == domain.TabAll {
		c := idx.Challenge
		fmt.Fprintf(&b, "\n%s\n%s\n%s %d/%d dias", headerStyle.Render("Desafio da Semana"), c.Title,
			progressStyle.Render(progressBar(c.Completed, c.Total, 20)), c.Completed, c.Total)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSummary(aggregate any) string {
	switch s := aggregate.(type) {
	case domain.WorkoutSummary:
		return fmt.Sprintf("%d min esta semana • %d cal queimadas • %d treinos", s.WeeklyMinutes, s.CaloriesBurned, s.Sessions)
	case domain.MealSummary:
		return fmt.Sprintf("%d / %d kcal • %dg proteína\n%s",
			s.Calories, s.Goal, s.Protein, progressStyle.Render(progressBar(int(s.Progress), 100, 30)))
	case domain.SleepSummary:
		return fmt.Sprintf("Última noite: %.1fh (%s) • média semanal %.1fh • qualidade média %d%% • consistência %d%%",
			s.LastNight.Duration, s.LastNightBand, s.WeeklyAverage, s.AverageQuality, s.Consistency)
	default:
		return ""
	}
}

func (m Model) help() string {
	switch m.mode {
	case modeForm:
		return "tab/shift+tab campo • enter salvar • esc cancelar"
	case modeConfirm:
		return "y confirmar • n cancelar"
	}
	if _, ok := m.current(); !ok {
		return "f filtrar • ←/→ aba • q sair"
	}
	return "↑/↓ mover • a adicionar • e editar • d excluir • r restaurar • ←/→ aba • q sair"
}

func progressBar(done, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := min(done*width/total, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func rowIndex(rows []screen.Row, id int64) int {
	for i, row := range rows {
		if row.ID == id {
			return i
		}
	}
	return 0
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
