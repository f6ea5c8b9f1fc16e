package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <file.pdf>",
	Short: "Upload a PDF and print its page count",
	Args:  cobra.ExactArgs(1),
	RunE:  runPages,
}

func init() {
	rootCmd.AddCommand(pagesCmd)
}

func runPages(cmd *cobra.Command, args []string) error {
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if err := a.ctrl.SelectFile(ctx, args[0]); err != nil {
		return err
	}

	s := a.ctrl.State().Session
	fmt.Printf("File:        %s\n", s.Source.Name)
	fmt.Printf("Size:        %s\n", humanize.IBytes(uint64(s.Source.Size)))
	fmt.Printf("Pages:       %d\n", s.TotalPages)
	fmt.Printf("Server file: %s\n", s.TempFilename)
	return nil
}
