package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/pagecast/internal/core/render"
	"github.com/neilberkman/pagecast/internal/core/status"
)

func (m Model) View() string {
	v := m.view()

	var b strings.Builder
	b.WriteString(titleStyle.Render("pagecast"))
	if m.state.ServerURL != "" {
		b.WriteString("  " + metaStyle.Render(m.state.ServerURL))
	}
	b.WriteString("\n\n")

	switch m.mode {
	case fileView:
		b.WriteString(m.viewFile(v))
	case pagesView:
		b.WriteString(m.viewPages(v))
	case summaryView:
		b.WriteString(m.viewSummary(v))
	}

	b.WriteString("\n" + m.statusLine(v) + "\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) viewFile(v render.View) string {
	var b strings.Builder
	b.WriteString(m.input.View() + "\n")
	if v.FileStatus != "" {
		b.WriteString(metaStyle.Render(v.FileStatus) + "\n")
	}
	if m.ready() {
		b.WriteString(metaStyle.Render(fmt.Sprintf("esc: back to %s", m.state.Session.Source.Name)) + "\n")
	}
	return b.String()
}

func (m Model) viewPages(v render.View) string {
	var b strings.Builder
	s := m.state.Session
	b.WriteString(fmt.Sprintf("%s %s\n", v.FileName, metaStyle.Render(fmt.Sprintf("(%d pages)", s.TotalPages))))
	b.WriteString(m.pages.View() + "\n")

	if v.ShowAudio {
		b.WriteString(fmt.Sprintf("Audio (page %d): %s\n", s.Audio.Page, v.AudioURL))
	}
	if v.ShowSummaryAudio {
		b.WriteString(fmt.Sprintf("Summary audio: %s\n", v.SummaryAudioURL))
	}
	if v.ShowSummary && !v.SummaryLoading {
		b.WriteString(metaStyle.Render("Summary ready: tab to read it") + "\n")
	}
	return b.String()
}

func (m Model) viewSummary(v render.View) string {
	var b strings.Builder
	page := m.state.Session.Summary.Page
	b.WriteString(summaryHeaderStyle.Render(fmt.Sprintf("Summary of Page %d:", page)) + "\n")

	if v.SummaryLoading {
		b.WriteString(m.spinner.View() + " " + v.Summarize.Label + "\n")
	} else {
		b.WriteString(m.summary.View() + "\n")
	}

	switch {
	case v.SummaryAudio.Busy:
		b.WriteString(m.spinner.View() + " Generating summary audio...\n")
	case v.ShowSummaryAudio:
		b.WriteString(fmt.Sprintf("Summary audio: %s\n", v.SummaryAudioURL))
	case v.ShowSummaryAudioSection:
		b.WriteString(metaStyle.Render("a: generate summary audio") + "\n")
	}
	return b.String()
}

// summaryContent is the wrapped text shown in the summary viewport
func (m Model) summaryContent(v render.View) string {
	switch {
	case v.SummaryError != "":
		return errorStyle.Render("Error: " + v.SummaryError)
	case v.SummaryText != "":
		return wordwrap.String(v.SummaryText, max(m.width-2, 20))
	}
	return ""
}

func (m Model) statusLine(v render.View) string {
	var line string
	if m.busy(v) {
		line = m.spinner.View() + " "
	}
	if v.StatusVisible {
		line += severityStyle(v.Status.Severity).Render(v.Status.Message)
	}
	if m.notice != "" {
		if line != "" {
			line += "  "
		}
		line += metaStyle.Render(m.notice)
	}
	return ansi.Truncate(line, max(m.width, 10), "…")
}

func severityStyle(sev status.Severity) lipgloss.Style {
	switch sev {
	case status.Success:
		return successStyle
	case status.Error:
		return errorStyle
	}
	return infoStyle
}
