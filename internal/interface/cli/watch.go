package cli

import (
	"fmt"
	"time"

	"github.com/neilberkman/pagecast/internal/core/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Convert every PDF dropped into a directory",
	Long: `Watch a directory and treat each new PDF as a fresh upload.

A new drop replaces the current document: any conversion still waiting for
the previous file is cancelled. The configured page of each drop is converted
and, with --output, saved next to the other downloads.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchPage   int
	watchOut    string
	watchSettle time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVarP(&watchPage, "page", "p", 1, "Page to convert for every drop")
	watchCmd.Flags().StringVarP(&watchOut, "output", "o", "", "Directory to save audio into")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 500*time.Millisecond, "Wait this long after the last write before uploading")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := watcher.New(args[0], a.ctrl, watcher.Options{
		Page:        watchPage,
		DownloadDir: watchOut,
		Settle:      watchSettle,
		Logger:      &logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", args[0])
	if err := w.Start(ctx); err != nil {
		return err
	}

	stats := w.Stats()
	fmt.Printf("\nFiles: %d  Converted: %d  Superseded: %d  Errors: %d  Uptime: %s\n",
		stats.Files, stats.Converted, stats.Superseded, stats.Errors,
		time.Since(stats.StartTime).Round(time.Second))
	return nil
}
