package tui

import "github.com/charmbracelet/bubbles/key"

type keymap struct {
	Up,
	Down,
	Convert,
	Summary,
	SummaryAudio,
	Download,
	DownloadSummary,
	Copy,
	Play,
	ToggleSummary,
	NewFile,
	Back,
	Help,
	Quit key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.Convert, k.Summary, k.Download, k.NewFile, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Convert, k.Summary},
		{k.SummaryAudio, k.Download, k.DownloadSummary, k.Copy, k.Play},
		{k.ToggleSummary, k.NewFile, k.Back, k.Help, k.Quit},
	}
}

func defaultKeymap() keymap {
	return keymap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Convert: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "convert"),
		),
		Summary: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "summary"),
		),
		SummaryAudio: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "summary audio"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download"),
		),
		DownloadSummary: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "download summary audio"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy audio URL"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "play"),
		),
		ToggleSummary: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "pages/summary"),
		),
		NewFile: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new file"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
