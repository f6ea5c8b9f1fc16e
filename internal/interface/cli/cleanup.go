package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete uploads and generated audio on the server",
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if err := a.ctrl.Cleanup(ctx); err != nil {
		return err
	}
	fmt.Printf("Cleaned up %s\n", a.ctrl.Client().BaseURL())
	return nil
}
