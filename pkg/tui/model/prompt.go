package model

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// SavePrompt asks for the export destination.
type SavePrompt struct {
	input textinput.Model
}

// NewSavePrompt creates a prompt pre-filled with dest.
func NewSavePrompt(dest string) *SavePrompt {
	ti := textinput.New()
	ti.Placeholder = "path to save wallet keys"
	ti.CharLimit = 4096
	ti.SetValue(dest)
	ti.CursorEnd()
	return &SavePrompt{input: ti}
}

// Focus focuses the input and starts the cursor blink.
func (p *SavePrompt) Focus() tea.Cmd {
	return p.input.Focus()
}

// Value returns the current destination text.
func (p *SavePrompt) Value() string { return p.input.Value() }

// HandleKey processes key events in prompt mode.
func (p *SavePrompt) HandleKey(a App, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = ModeNormal
		a.prompt = nil
		a.statusMsg = "save cancelled"
		return a, nil

	case "enter":
		dest := p.input.Value()
		a.mode = ModeNormal
		a.prompt = nil
		return a.startExport(dest)

	default:
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return a, cmd
	}
}

// View renders the prompt.
func (p *SavePrompt) View(width int) string {
	p.input.Width = max(width-4, 10)
	s := titleStyle.Render(" Save Wallet Keys ") + "\n\n"
	s += "  " + p.input.View() + "\n\n"
	s += helpStyle.Render("  enter:save  esc:cancel")
	return s
}
