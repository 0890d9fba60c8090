package model

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/modoterra/nockkeygen/pkg/core"
	"github.com/modoterra/nockkeygen/pkg/dispatch"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	noticeStyle = paneStyle.
			BorderForeground(lipgloss.Color("205")).
			Padding(1, 2)

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	headerH    = 3
	statusBarH = 1
)

// View renders the TUI.
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "loading..."
	}

	switch {
	case a.mode == ModeHelp:
		return a.overlay(renderHelp(min(a.width-8, 80)))
	case a.mode == ModePrompt && a.prompt != nil:
		return a.overlay(a.prompt.View(min(a.width-8, 72)))
	case a.mode == ModeConfirmQuit:
		return a.overlay(titleStyle.Render(" Quit? ") + "\n\n" +
			"An operation is still running.\nStop the wallet tool and quit? (y/n)")
	case len(a.notices) > 0:
		return a.overlay(renderNotice(a.notices[0]))
	}

	header := a.renderHeader()
	logW, logH := a.logSize()
	logPane := paneStyle.Width(logW).Height(logH).Render(a.logContent())
	return lipgloss.JoinVertical(lipgloss.Left, header, logPane, a.renderStatusBar())
}

func (a App) logSize() (int, int) {
	return max(a.width-4, 10), max(a.height-headerH-statusBarH-2, 3)
}

func (a App) logContent() string {
	if len(a.entries) == 0 {
		return dimStyle.Render("Press g to generate keys or e to save wallet keys.")
	}
	return a.logs.View()
}

func (a App) renderHeader() string {
	title := titleStyle.Render("Nockchain Key Generator")
	tool := dimStyle.Render(a.disp.Tool())
	states := []string{
		a.actionState(core.ActionGenerate, "Generate Keys"),
		a.actionState(core.ActionExport, "Save Wallet Keys"),
	}
	return title + "  " + tool + "\n" + strings.Join(states, "   ") + "\n"
}

func (a App) actionState(action core.Action, label string) string {
	if a.disp.State(action) == dispatch.StateRunning {
		return a.spinner.View() + " " + runningStyle.Render(label)
	}
	if a.quitting {
		return dimStyle.Render("○ " + label)
	}
	return idleStyle.Render("●") + " " + label
}

func (a App) renderStatusBar() string {
	left := a.statusMsg
	if a.lastSaved != "" && left == "" {
		left = "saved: " + a.lastSaved
	}
	right := "g:generate e:save c:copy path ?:help q:quit"

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return helpStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func (a App) overlay(content string) string {
	box := noticeStyle.Render(content)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

func renderNotice(n dispatch.Notice) string {
	style := titleStyle
	switch n.Kind {
	case dispatch.NoticeError, dispatch.NoticePersistError:
		style = errorStyle.Bold(true)
	case dispatch.NoticeSuccess:
		style = idleStyle.Bold(true)
	case dispatch.NoticeInfo:
		style = infoStyle.Bold(true)
	}
	return style.Render(" "+n.Title+" ") + "\n\n" + n.Body + "\n\n" + helpStyle.Render("enter:ok")
}

func renderEntries(entries []dispatch.Entry, width int) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		style := lipgloss.NewStyle()
		switch e.Level {
		case dispatch.LevelInfo:
			style = infoStyle
		case dispatch.LevelError:
			style = errorStyle
		}
		// Wrap, never truncate: key material must be shown whole.
		if width > 0 {
			style = style.Width(width)
		}
		b.WriteString(style.Render(e.Text))
	}
	return b.String()
}
