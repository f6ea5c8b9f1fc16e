package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/pagecast/internal/core/db"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history statistics",
	Long: `Display statistics about the local history database.

Shows upload counts, conversion outcomes, downloads, date ranges, and storage info.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	// Open database
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	stats, err := database.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}

	fmt.Println("Database Statistics")
	fmt.Println("===================")
	fmt.Println()

	fmt.Printf("Total Uploads:     %d\n", stats.TotalDocuments)
	fmt.Printf("Total Pages:       %s\n", humanize.Comma(int64(stats.TotalPages)))
	fmt.Printf("Conversions:       %d\n", stats.TotalConversions)
	fmt.Printf("  Converted:       %d\n", stats.Resolved)
	fmt.Printf("  Already there:   %d\n", stats.Cached)
	fmt.Printf("  Timed out:       %d\n", stats.TimedOut)
	fmt.Printf("  Failed:          %d\n", stats.Failed)
	fmt.Printf("  Summary audio:   %d\n", stats.SummaryAudio)
	if stats.AverageWait > 0 {
		fmt.Printf("Average Wait:      %s\n", stats.AverageWait.Round(100*time.Millisecond))
	}
	fmt.Printf("Downloads:         %d (%s)\n", stats.TotalDownloads, humanize.IBytes(uint64(stats.DownloadedBytes)))

	fmt.Println()

	// Date range (only if we have uploads)
	if stats.TotalDocuments > 0 {
		if !stats.OldestUpload.IsZero() {
			fmt.Printf("Oldest Upload:     %s\n", stats.OldestUpload.Local().Format("Jan 2, 2006 3:04 PM"))
		}
		if !stats.NewestUpload.IsZero() {
			fmt.Printf("Newest Upload:     %s (%s)\n", stats.NewestUpload.Local().Format("Jan 2, 2006 3:04 PM"), humanize.Time(stats.NewestUpload))
		}
		fmt.Println()

		if stats.BusiestDocument != "" {
			fmt.Printf("Most Converted Document:\n")
			fmt.Printf("  File:     %s\n", stats.BusiestDocument)
			fmt.Printf("  Requests: %d\n", stats.BusiestCount)
			fmt.Println()
		}
	}

	// Database file size
	fileInfo, err := os.Stat(dbPath)
	if err != nil {
		return fmt.Errorf("failed to stat database file: %w", err)
	}

	fmt.Printf("Database Location: %s\n", dbPath)
	fmt.Printf("Database Size:     %s\n", humanize.IBytes(uint64(fileInfo.Size())))

	return nil
}
