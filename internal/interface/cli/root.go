package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/neilberkman/pagecast/internal/core/config"
	"github.com/neilberkman/pagecast/internal/core/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	dbPath      string
	serverURL   string
	configDir   string
	verbose     bool
	versionInfo string

	cfg    *config.Config
	logger zerolog.Logger
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pagecast",
	Short: "Turn PDF pages into audio",
	Long: `pagecast - upload a PDF, convert pages to audio, and summarize them

Talks to a PDF-to-audio server (default http://localhost:5000). Uploads,
conversions and downloads are kept in a local history database.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	// Global flags
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	defaultDB := filepath.Join(home, ".config", "pagecast", "history.db")

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Database path")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL (overrides config and "+config.ServerURLEnv+")")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Config directory (default ~/.config/pagecast)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// loadConfig resolves configuration once per invocation. Precedence is
// flags, then the environment (including .env), then config.toml.
func loadConfig(cmd *cobra.Command, args []string) error {
	// A missing .env is normal
	_ = godotenv.Load()

	var err error
	if configDir != "" {
		cfg, err = config.LoadDir(configDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	logger = logging.Console(os.Stderr, cfg.LogLevel)
	return nil
}
