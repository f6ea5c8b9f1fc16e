package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neilberkman/pagecast/internal/core/controller"
	"github.com/neilberkman/pagecast/internal/core/db"
	"github.com/neilberkman/pagecast/pkg/pdfaudio"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app bundles what a command needs to drive one session
type app struct {
	db   *db.DB
	ctrl *controller.Controller
}

func openApp(log zerolog.Logger) (*app, error) {
	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	client, err := pdfaudio.New(cfg.ServerURL, pdfaudio.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	ctrl := controller.New(client, controller.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Poll:           cfg.Poll,
		Logger:         &log,
		Recorder:       database,
	})
	return &app{db: database, ctrl: ctrl}, nil
}

func (a *app) Close() {
	a.ctrl.Close()
	_ = a.db.Close()
}

// signalContext is cancelled on Ctrl-C so in-flight polls stop cleanly
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// upload validates and uploads path, printing the page count
func (a *app) upload(ctx context.Context, path string) error {
	if err := a.ctrl.SelectFile(ctx, path); err != nil {
		return err
	}
	st := a.ctrl.State()
	fmt.Fprintf(os.Stderr, "%s: %d pages\n", st.Session.Source.Name, st.Session.TotalPages)
	return nil
}
