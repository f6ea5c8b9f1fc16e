package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/pagecast/internal/core/db"
	"github.com/spf13/cobra"
)

var (
	historySince  string
	historyLimit  int
	historyDelete bool
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show past uploads and conversions",
	Long: `List uploaded PDFs newest first, or show every request made for one upload.

Examples:
  pagecast history
  pagecast history --since "last week"
  pagecast history 6f1c...            Show conversions of one upload
  pagecast history 6f1c... --delete   Forget one upload`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historySince, "since", "", `Only uploads after this date ("yesterday", "2026-01-02")`)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of uploads to display")
	historyCmd.Flags().BoolVar(&historyDelete, "delete", false, "Delete the given upload from history")
}

func runHistory(cmd *cobra.Command, args []string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	if len(args) == 1 {
		if historyDelete {
			if err := database.DeleteDocument(args[0]); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("no upload with id %s", args[0])
				}
				return fmt.Errorf("failed to delete: %w", err)
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		}
		return showConversions(database, args[0])
	}
	if historyDelete {
		return errors.New("--delete needs a session id")
	}

	since, err := parseSince(historySince, time.Now())
	if err != nil {
		return err
	}
	docs, err := database.ListDocuments(since, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No uploads found. Run 'pagecast convert <file.pdf>' to get started.")
		return nil
	}

	fmt.Printf("Showing %d upload(s)\n\n", len(docs))
	for i, d := range docs {
		fmt.Printf("[%d] %s\n", i+1, d.SessionID)
		fmt.Printf("    File:        %s (%s, %d pages)\n", d.Name, humanize.IBytes(uint64(d.Size)), d.TotalPages)
		fmt.Printf("    Uploaded:    %s\n", humanize.Time(d.UploadedAt))
		fmt.Printf("    Conversions: %d\n", d.Conversions)
		if pages, err := database.ConvertedPages(d.TempFilename); err == nil && len(pages) > 0 {
			fmt.Printf("    Audio pages: %s\n", joinPages(pages))
		}
		fmt.Printf("    Downloads:   %d\n", d.Downloads)
		if d.ServerURL != "" {
			fmt.Printf("    Server:      %s\n", d.ServerURL)
		}
		fmt.Println()
	}
	return nil
}

func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}

func showConversions(database *db.DB, sessionID string) error {
	convs, err := database.ListConversions(sessionID)
	if err != nil {
		return fmt.Errorf("failed to list conversions: %w", err)
	}
	if len(convs) == 0 {
		fmt.Printf("No conversions recorded for %s\n", sessionID)
		return nil
	}

	for _, c := range convs {
		line := fmt.Sprintf("%s  %-7s page %-3d %-9s", c.CreatedAt.Local().Format("Jan 2 15:04:05"), c.Kind, c.Page, c.Outcome)
		if c.Elapsed > 0 {
			line += fmt.Sprintf(" %6s", c.Elapsed.Round(100*time.Millisecond))
		}
		if c.Artifact != "" {
			line += "  " + c.Artifact
		}
		if c.Error != "" {
			line += "  (" + c.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}
