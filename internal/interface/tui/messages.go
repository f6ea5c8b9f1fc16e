package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// stateChangedMsg tells the model to take a fresh controller snapshot
type stateChangedMsg struct{}

// flowDoneMsg reports the end of a blocking controller call. The controller
// has already put any user-facing message on the status line.
type flowDoneMsg struct {
	op  string
	err error
}

// statusExpiredMsg forces a redraw once a success line times out
type statusExpiredMsg struct{}

type playMsg struct {
	what string
	err  error
}

type clipboardMsg struct {
	text string
	err  error
}

// waitForChange blocks until the controller publishes a change
func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func expireAfter(d time.Duration) tea.Cmd {
	if d <= 0 {
		d = time.Millisecond
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusExpiredMsg{}
	})
}

// runFlow wraps a blocking controller call so it runs off the UI loop
func runFlow(ctx context.Context, op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return flowDoneMsg{op: op, err: fn(ctx)}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		// Use cross-platform clipboard library
		return clipboardMsg{text: text, err: clipboard.WriteAll(text)}
	}
}

func playAudio(p Player, url, what string) tea.Cmd {
	return func() tea.Msg {
		return playMsg{what: what, err: p.Play(url)}
	}
}
