package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/neilberkman/pagecast/internal/core/batch"
	"github.com/neilberkman/pagecast/internal/core/controller"
	"github.com/neilberkman/pagecast/internal/core/models"
	"github.com/neilberkman/pagecast/internal/core/player"
	"github.com/neilberkman/pagecast/internal/core/session"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Convert PDF pages to audio",
	Long: `Upload a PDF and convert one or more pages to audio.

Examples:
  pagecast convert report.pdf -p 3            Convert page 3
  pagecast convert report.pdf -p 1-3,7 -o .   Convert pages 1, 2, 3 and 7 and save them here
  pagecast convert report.pdf --all -o audio  Convert every page into ./audio`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var (
	convertPages string
	convertOut   string
	convertAll   bool
	convertPlay  bool
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertPages, "pages", "p", "1", "Pages to convert (e.g. 2 or 1-3,5)")
	convertCmd.Flags().StringVarP(&convertOut, "output", "o", "", "Directory to save audio into (default: print URLs)")
	convertCmd.Flags().BoolVar(&convertAll, "all", false, "Convert every page")
	convertCmd.Flags().BoolVar(&convertPlay, "play", false, "Play the audio when a single page is done")
}

func runConvert(cmd *cobra.Command, args []string) error {
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	spin := session.NewSpinner("Uploading PDF...")
	unsubscribe := a.ctrl.Subscribe(func(st controller.State) {
		if !st.Status.Hidden && st.Status.Message != "" {
			spin.SetMessage(st.Status.Message)
		}
	})
	defer unsubscribe()

	spin.Start()
	err = a.ctrl.SelectFile(ctx, args[0])
	spin.Stop()
	if err != nil {
		return err
	}

	sel := convertPages
	if convertAll {
		sel = "all"
	}
	pages, err := batch.ParsePages(sel, a.ctrl.State().Session.TotalPages)
	if err != nil {
		return err
	}

	if len(pages) == 1 {
		return convertOne(ctx, a, pages[0], spin)
	}

	unsubscribe()
	results, err := batch.Run(ctx, a.ctrl, batch.Options{
		Pages:       pages,
		DownloadDir: convertOut,
		Progress:    batch.NewProgressReporter(os.Stderr, len(pages)),
	})
	printResults(a, results)
	if err != nil {
		return err
	}
	if n := batch.Failed(results); n > 0 {
		return fmt.Errorf("%d of %d pages failed", n, len(results))
	}
	return nil
}

func convertOne(ctx context.Context, a *app, page int, spin *session.Spinner) error {
	spin.Start()
	art, err := a.ctrl.Convert(ctx, page)
	target := ""
	if err == nil {
		target = a.ctrl.Client().AudioURL(art.Name, art.Stamp)
		if convertOut != "" {
			target, err = a.ctrl.Download(ctx, models.PageAudio, convertOut)
		}
	}
	spin.Stop()
	if err != nil {
		return err
	}

	fmt.Println(target)
	if convertPlay {
		return player.New(cfg.PlayerCommand).Play(target)
	}
	return nil
}

func printResults(a *app, results []batch.Result) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("Page %d: %v\n", r.Page, r.Err)
		case r.Path != "":
			fmt.Printf("Page %d: %s\n", r.Page, r.Path)
		default:
			fmt.Printf("Page %d: %s\n", r.Page, a.ctrl.Client().AudioURL(r.Artifact.Name, r.Artifact.Stamp))
		}
	}
}
