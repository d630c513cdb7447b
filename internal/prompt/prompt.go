// Package prompt asks the user yes/no questions on the terminal.
package prompt

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel is a bubbletea model for a single yes/no question.
type confirmModel struct {
	question string
	input    textinput.Model
	done     bool
}

func newConfirmModel(question string) confirmModel {
	ti := textinput.New()
	ti.Placeholder = "y/N"
	ti.CharLimit = 3
	ti.Focus()
	return confirmModel{question: question, input: ti}
}

func (m confirmModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.question, m.input.View())
}

// confirmed reports whether the answer was yes. A cancelled prompt is a no.
func (m confirmModel) confirmed() bool {
	if !m.done {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(m.input.Value())) {
	case "y", "yes":
		return true
	}
	return false
}

// Confirm asks question on out and reads the answer from in.
func Confirm(question string, in io.Reader, out io.Writer) (bool, error) {
	p := tea.NewProgram(newConfirmModel(question), tea.WithInput(in), tea.WithOutput(out))
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	final, ok := result.(confirmModel)
	if !ok {
		return false, fmt.Errorf("prompt: unexpected model %T", result)
	}
	return final.confirmed(), nil
}
