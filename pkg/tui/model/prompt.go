package model

import tea "github.com/charmbracelet/bubbletea"

// handlePromptKey processes key events while the open prompt is focused.
func (a App) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = ModeNormal
		a.prompt.Blur()
		a.statusMsg = "open cancelled"
		return a, nil

	case "enter":
		id := a.trimmedPrompt()
		if id == "" {
			a.statusMsg = "timeline id is required"
			return a, nil
		}
		a.mode = ModeNormal
		a.prompt.Blur()
		return a.open(id)

	case "ctrl+d":
		a.duplicate = !a.duplicate
		return a, nil

	case "ctrl+c":
		return a, tea.Quit

	default:
		var cmd tea.Cmd
		a.prompt, cmd = a.prompt.Update(msg)
		return a, cmd
	}
}

// promptView renders the open prompt line.
func (a App) promptView() string {
	label := "open: "
	if a.duplicate {
		label = "duplicate: "
	}
	return titleStyle.Render(label) + a.prompt.View()
}
