package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/modoterra/sightline/pkg/core"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	favoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	loadingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	activePaneStyle = paneStyle.
			BorderForeground(lipgloss.Color("205"))

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	untitledTimeline = "Untitled timeline"
	timeLayout       = "2006-01-02 15:04:05"
	maxNotesShown    = 5
)

// View renders the TUI.
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "loading..."
	}

	statusBarH := 2
	mainH := a.height - statusBarH - 2
	listW := a.width*2/5 - 2
	summaryW := a.width - listW - 4

	list := a.renderList(listW, mainH)
	listPane := a.paneBox(PaneList, " Timelines ", list, listW, mainH)

	summary := a.renderSummary(summaryW)
	summaryPane := a.paneBox(PaneSummary, a.summaryTitle(), summary, summaryW, mainH)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, listPane, summaryPane)
	return lipgloss.JoinVertical(lipgloss.Left, topRow, a.renderStatusBar())
}

func (a App) paneBox(pane Pane, title, content string, w, h int) string {
	style := paneStyle
	if a.activePane == pane {
		style = activePaneStyle
	}
	return style.Width(w).Height(h).Render(
		titleStyle.Render(title) + "\n" + content,
	)
}

func (a App) summaryTitle() string {
	title := " " + OpenTimelineClassName + " "
	if a.Loading() {
		title += a.spinner.View() + " "
	}
	return title
}

func (a App) renderList(w, h int) string {
	var b strings.Builder
	if a.mode == ModePrompt {
		b.WriteString(a.promptView() + "\n\n")
		h -= 2
	}

	if len(a.timelines) == 0 {
		b.WriteString(dimStyle.Render("no saved timelines"))
		return b.String()
	}

	maxVisible := h - 2
	start := 0
	if a.selectedIdx >= maxVisible {
		start = a.selectedIdx - maxVisible + 1
	}

	for i := start; i < len(a.timelines) && i-start < maxVisible; i++ {
		tl := a.timelines[i]
		mark := " "
		if tl.Favorite {
			mark = favoriteStyle.Render("★")
		}
		counts := fmt.Sprintf("%dp %dn", core.PinnedEventCount(tl), core.NoteCount(tl))
		nameWidth := w - len(counts) - 5
		name := truncate(displayTitle(tl), nameWidth)
		if pad := nameWidth - ansi.StringWidth(name); pad > 0 {
			name += strings.Repeat(" ", pad)
		}
		line := fmt.Sprintf(" %s %s %s", mark, name, counts)

		if i == a.selectedIdx {
			line = selectedStyle.Width(w).Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (a App) renderSummary(w int) string {
	tl, ok := a.state.Timelines[core.WorkingTimelineID]
	if !ok {
		if a.Loading() {
			return dimStyle.Render("loading timeline...")
		}
		return dimStyle.Render("open a timeline with o or enter")
	}
	r := summarize(tl)

	var b strings.Builder
	fmt.Fprintf(&b, "Title:    %s\n", displayTitle(r))
	if tl.Description != "" {
		fmt.Fprintf(&b, "About:    %s\n", truncate(tl.Description, w-10))
	}
	fmt.Fprintf(&b, "ID:       %s\n", orDim(tl.ID, "new"))
	fmt.Fprintf(&b, "Saved:    %s\n", orDim(deref(tl.SavedObjectID), "not saved"))
	fmt.Fprintf(&b, "Version:  %s\n", orDim(deref(tl.Version), "none"))
	fmt.Fprintf(&b, "Range:    %s → %s\n",
		core.MillisToTime(a.state.Range.From).Format(timeLayout),
		core.MillisToTime(a.state.Range.To).Format(timeLayout))
	if tl.IsFavorite {
		fmt.Fprintf(&b, "Favorite: %s\n", favoriteStyle.Render("★"))
	}
	fmt.Fprintf(&b, "Pinned:   %d\n", core.PinnedEventCount(r))
	fmt.Fprintf(&b, "Notes:    %d\n", core.NoteCount(r))
	if fq := tl.KqlQuery.FilterQuery; fq != nil && fq.Kuery != nil && fq.Kuery.Expression != nil {
		fmt.Fprintf(&b, "Query:    %s\n", truncate(*fq.Kuery.Expression, w-10))
	}

	ids := make([]string, 0, len(tl.Columns))
	for _, c := range tl.Columns {
		ids = append(ids, c.ID)
	}
	fmt.Fprintf(&b, "Columns:  %s\n", truncate(strings.Join(ids, ", "), w-10))

	if len(a.state.Notes) > 0 {
		b.WriteString("\n" + titleStyle.Render("Notes") + "\n")
		for i, n := range a.state.Notes {
			if i == maxNotesShown {
				fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("+%d more", len(a.state.Notes)-i)))
				break
			}
			b.WriteString(dimStyle.Render(n.User+": ") + truncate(n.Note, w-len(n.User)-2) + "\n")
		}
	}
	return b.String()
}

func (a App) renderStatusBar() string {
	left := a.statusMsg
	if a.duplicate {
		left = "[duplicate] " + left
	}
	right := "j/k:nav tab:pane enter:open o:open id ctrl+d:duplicate r:refresh q:quit"
	if a.mode == ModePrompt {
		right = "enter:open ctrl+d:duplicate esc:cancel"
	}

	gap := a.width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return helpStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// summarize projects a store timeline onto the listing summary so the
// counting helpers apply to both.
func summarize(m core.Model) core.OpenTimelineResult {
	title := m.Title
	r := core.OpenTimelineResult{
		Version:          m.Version,
		Title:            &title,
		EventIDToNoteIDs: m.EventIDToNoteIDs,
		NoteIDs:          m.NoteIDs,
		PinnedEventIDs:   m.PinnedEventIDs,
		Favorite:         m.IsFavorite,
	}
	if m.SavedObjectID != nil {
		r.SavedObjectID = *m.SavedObjectID
	}
	return r
}

func displayTitle(r core.OpenTimelineResult) string {
	if core.IsUntitled(r) {
		return untitledTimeline
	}
	return *r.Title
}

func orDim(s, fallback string) string {
	if s == "" {
		return dimStyle.Render(fallback)
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// truncate cuts s to at most maxLen terminal cells, ending in "..." when
// there is room for it. Multi-byte and wide runes are never split.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen <= 3 {
		return ansi.Truncate(s, maxLen, "")
	}
	return ansi.Truncate(s, maxLen, "...")
}
