// Package picker shows an interactive list of content candidates and returns
// the operator's choice.
package picker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mark3labs/commitloop/internal/content"
)

var (
	styleTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#cba6f7")).Bold(true)
	styleDir      = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8"))
	styleSelected = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cba6f7")).
			Background(lipgloss.Color("#313244")).
			Bold(true)
	styleHintKey  = lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4")).Bold(true)
	styleHintDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
)

// Picker implements content.Prompter with a Bubbletea list.
type Picker struct {
	Title string
}

// New returns a Picker with the given title.
func New(title string) *Picker {
	return &Picker{Title: title}
}

// Prompt runs the picker until the operator selects a candidate or dismisses it.
func (p *Picker) Prompt(ctx context.Context, candidates []content.Handle) (content.Handle, bool, error) {
	m := newModel(p.Title, candidates)

	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return "", false, fmt.Errorf("picker failed: %w", err)
	}

	fm, ok := final.(*model)
	if !ok {
		return "", false, fmt.Errorf("unexpected model type")
	}
	if fm.cancelled || fm.chosen == "" {
		return "", false, nil
	}
	return fm.chosen, true, nil
}

type model struct {
	title       string
	items       []content.Handle
	selectedIdx int
	height      int
	chosen      content.Handle
	cancelled   bool
}

func newModel(title string, items []content.Handle) *model {
	return &model{title: title, items: items, height: 15}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 3)

	case tea.KeyPressMsg:
		switch msg.String() {
		case "up", "k":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "down", "j":
			if m.selectedIdx < len(m.items)-1 {
				m.selectedIdx++
			}
		case "home", "g":
			m.selectedIdx = 0
		case "end", "G":
			m.selectedIdx = max(len(m.items)-1, 0)
		case "enter":
			if len(m.items) > 0 {
				m.chosen = m.items[m.selectedIdx]
				return m, tea.Quit
			}
		case "esc", "q", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *model) View() tea.View {
	var view tea.View
	view.Content = lipgloss.NewLayer(m.render())
	return view
}

func (m *model) render() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render(m.title))
	b.WriteString("\n")
	if len(m.items) > 0 {
		b.WriteString(styleDir.Render(filepath.Dir(string(m.items[0]))))
	}
	b.WriteString("\n\n")

	// Keep the selection inside the visible window
	start := 0
	if m.selectedIdx >= m.height {
		start = m.selectedIdx - m.height + 1
	}
	end := min(start+m.height, len(m.items))

	for i := start; i < end; i++ {
		name := m.items[i].Name()
		if i == m.selectedIdx {
			b.WriteString(styleSelected.Render("▸ " + name))
		} else {
			b.WriteString("  " + name)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderHintBar("↑↓/j/k", "navigate", "enter", "select", "esc", "cancel"))
	return b.String()
}

// renderHintBar renders key/description pairs.
func renderHintBar(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, styleHintKey.Render(pairs[i])+" "+styleHintDesc.Render(pairs[i+1]))
	}
	return strings.Join(parts, styleHintDesc.Render(" • "))
}
