package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/geobridge/geometry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type tab int

const (
	tabAverage tab = iota
	tabDistance
	tabLength
)

var tabNames = []string{"Average", "Distance", "Length"}

var tabFields = [][]string{
	tabAverage:  {"a", "b"},
	tabDistance: {"x1", "y1", "x2", "y2"},
	tabLength:   {"points"},
}

type interactiveModel struct {
	err      error
	session  *session
	result   string
	inputs   [][]textinput.Model
	tab      tab
	focusIdx int
}

func newInteractiveModel(s *session) *interactiveModel {
	m := &interactiveModel{session: s}
	m.inputs = make([][]textinput.Model, len(tabFields))
	for t, fields := range tabFields {
		for _, name := range fields {
			ti := textinput.New()
			ti.Prompt = name + ": "
			ti.Width = 40
			if name == "points" {
				ti.Placeholder = "0,0 1,0 1,1 0,0"
				ti.Width = 60
			} else {
				ti.Placeholder = "0"
			}
			m.inputs[t] = append(m.inputs[t], ti)
		}
	}
	m.inputs[m.tab][0].Focus()
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) switchTab(delta int) {
	m.inputs[m.tab][m.focusIdx].Blur()
	m.tab = tab((int(m.tab) + delta + len(tabNames)) % len(tabNames))
	m.focusIdx = 0
	m.inputs[m.tab][0].Focus()
	m.result = ""
	m.err = nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "ctrl+n":
			m.switchTab(1)
			return m, nil

		case "ctrl+p":
			m.switchTab(-1)
			return m, nil

		case "tab":
			fields := m.inputs[m.tab]
			if len(fields) > 1 {
				fields[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(fields)
				fields[m.focusIdx].Focus()
			}
			return m, nil

		case "enter":
			m.result, m.err = m.compute()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.tab][m.focusIdx], cmd = m.inputs[m.tab][m.focusIdx].Update(msg)
	return m, cmd
}

func (m *interactiveModel) values() ([]float64, error) {
	fields := m.inputs[m.tab]
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := parseFloat(f.Value())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tabFields[m.tab][i], err)
		}
		out[i] = v
	}
	return out, nil
}

func (m *interactiveModel) compute() (string, error) {
	switch m.tab {
	case tabAverage:
		v, err := m.values()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("average = %g", geometry.Average(v[0], v[1])), nil

	case tabDistance:
		v, err := m.values()
		if err != nil {
			return "", err
		}
		d := geometry.Distance(geometry.Coordinate{X: v[0], Y: v[1]}, geometry.Coordinate{X: v[2], Y: v[3]})
		return fmt.Sprintf("distance = %g", d), nil

	default:
		points, err := parsePoints(m.inputs[tabLength][0].Value())
		if err != nil {
			return "", err
		}
		res, err := m.session.measure(points)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "length = %g\n", res.length)
		for i, p := range res.points {
			fmt.Fprintf(&b, "  %d: (%g, %g)\n", i, p.X, p.Y)
		}
		b.WriteString(res.description)
		return b.String(), nil
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("geobridge"))
	b.WriteString(" ")
	for i, name := range tabNames {
		if tab(i) == m.tab {
			b.WriteString(selectedStyle.Render(name))
		} else {
			b.WriteString(tabStyle.Render(name))
		}
	}
	b.WriteString("\n\n")

	for _, input := range m.inputs[m.tab] {
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	} else if m.result != "" {
		b.WriteString(resultStyle.Render(m.result))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("ctrl+n/ctrl+p switch tab • tab next field • enter compute • esc quit"))
	return b.String()
}

func runInteractive() error {
	s, err := newSession(zap.NewNop())
	if err != nil {
		return err
	}
	p := tea.NewProgram(newInteractiveModel(s), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return s.close()
}
