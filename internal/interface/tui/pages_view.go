package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/pagecast/internal/core/render"
)

type pageItem struct {
	opt  render.PageOption
	busy bool // Conversion of this page is in flight
}

func (i pageItem) FilterValue() string {
	return i.opt.Label
}

// pageDelegate draws one line per page with a check mark on converted pages
type pageDelegate struct{}

func (d pageDelegate) Height() int                             { return 1 }
func (d pageDelegate) Spacing() int                            { return 0 }
func (d pageDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d pageDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(pageItem)
	if !ok {
		return
	}

	title := p.opt.Label
	if index == m.Index() {
		title = selectedItemStyle.Render("> " + title)
	} else {
		title = itemStyle.Render(title)
	}

	var mark string
	switch {
	case p.busy:
		mark = busyStyle.Render(" … processing")
	case p.opt.Converted:
		mark = convertedStyle.Render(" ✓")
	}

	_, _ = fmt.Fprint(w, title+mark)
}

func createPageList(width, height int) list.Model {
	l := list.New(nil, pageDelegate{}, width, height)
	l.Title = ""                 // No title
	l.SetShowStatusBar(false)    // No status bar
	l.SetShowHelp(false)         // Help comes from our own keymap
	l.SetShowTitle(false)        // No title rendering
	l.SetFilteringEnabled(false) // Pages are already in order
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.KeyMap.ShowFullHelp.SetEnabled(false)
	l.KeyMap.CloseFullHelp.SetEnabled(false)
	return l
}

// pageItems converts the page selector into list items, skipping the
// "Select a page..." placeholder.
func pageItems(v render.View, convertingPage int) []list.Item {
	var items []list.Item
	for _, opt := range v.Pages {
		if opt.Value == 0 {
			continue
		}
		items = append(items, pageItem{
			opt:  opt,
			busy: v.Convert.Busy && opt.Value == convertingPage,
		})
	}
	return items
}

// cursorPage returns the page under the list cursor, or 0 if none
func (m Model) cursorPage() int {
	if p, ok := m.pages.SelectedItem().(pageItem); ok {
		return p.opt.Value
	}
	return 0
}
