package cli

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/pagecast/internal/core/logging"
	"github.com/neilberkman/pagecast/internal/core/player"
	"github.com/neilberkman/pagecast/internal/core/render"
	"github.com/neilberkman/pagecast/internal/interface/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [file.pdf]",
	Short: "Launch the interactive TUI",
	Long:  "Launch an interactive terminal UI for uploading a PDF, converting pages and reading summaries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the TUI, so logs go to a file
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(os.TempDir(), "pagecast.log")
	}
	fileLogger, closer, err := logging.File(logFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	a, err := openApp(fileLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	opts := tui.Options{
		Render: render.Options{
			SuccessTTL:           cfg.SuccessTTL,
			SummaryTemplate:      cfg.SummaryTemplate,
			SummaryErrorTemplate: cfg.SummaryErrorTemplate,
		},
		DownloadDir: cfg.DownloadDir,
		Player:      player.New(cfg.PlayerCommand),
	}
	if len(args) == 1 {
		opts.File = args[0]
	}

	model := tui.New(ctx, a.ctrl, opts)
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
