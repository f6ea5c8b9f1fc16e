package cli

import (
	"context"
	"fmt"

	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/pagecast/internal/core/controller"
	"github.com/neilberkman/pagecast/internal/core/models"
	"github.com/neilberkman/pagecast/internal/core/render"
	"github.com/neilberkman/pagecast/internal/core/session"
	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file.pdf>",
	Short: "Summarize a PDF page",
	Long: `Upload a PDF, extract the text of one page and ask the server for a summary.

Examples:
  pagecast summarize report.pdf -p 2                 Print the summary of page 2
  pagecast summarize report.pdf -p 2 --html          Print it as an HTML fragment
  pagecast summarize report.pdf -p 2 --audio -o .    Also save the summary as audio`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

var (
	summarizePage  int
	summarizeAudio bool
	summarizeHTML  bool
	summarizeOut   string
	summarizeWidth int
)

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().IntVarP(&summarizePage, "page", "p", 1, "Page to summarize")
	summarizeCmd.Flags().BoolVar(&summarizeAudio, "audio", false, "Generate audio of the summary")
	summarizeCmd.Flags().BoolVar(&summarizeHTML, "html", false, "Print the summary as sanitized HTML")
	summarizeCmd.Flags().StringVarP(&summarizeOut, "output", "o", "", "Directory to save summary audio into (default: print URL)")
	summarizeCmd.Flags().IntVar(&summarizeWidth, "width", 80, "Wrap plain text at this width (0 disables)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
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
	text, err := summarize(ctx, a, args[0], summarizePage)
	spin.Stop()
	if err != nil {
		return err
	}

	switch {
	case summarizeHTML:
		fmt.Println(render.SummaryHTML(cfg.SummaryTemplate, summarizePage, text))
	case summarizeWidth > 0:
		fmt.Println(wordwrap.String(text, summarizeWidth))
	default:
		fmt.Println(text)
	}

	if !summarizeAudio {
		return nil
	}

	spin.Start()
	art, err := a.ctrl.GenerateSummaryAudio(ctx)
	if err == nil && summarizeOut != "" {
		var path string
		path, err = a.ctrl.Download(ctx, models.SummaryAudio, summarizeOut)
		spin.Stop()
		if err == nil {
			fmt.Println(path)
		}
		return err
	}
	spin.Stop()
	if err != nil {
		return err
	}
	fmt.Println(a.ctrl.Client().AudioURL(art.Name, art.Stamp))
	return nil
}

func summarize(ctx context.Context, a *app, path string, page int) (string, error) {
	if err := a.ctrl.SelectFile(ctx, path); err != nil {
		return "", err
	}
	if err := a.ctrl.SelectPage(page); err != nil {
		return "", err
	}
	return a.ctrl.Summarize(ctx, page)
}
