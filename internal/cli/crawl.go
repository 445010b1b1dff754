package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/kilupskalvis/mosgal/internal/core"
	"github.com/kilupskalvis/mosgal/internal/pipeline"
	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Update the catalog without writing the site",
	Long: `Find every picture under the gallery root, compute the attributes and
thumbnails of new or changed pictures, and save the catalog.`,
	Args: cobra.NoArgs,
	Run:  runCrawl,
}

func runCrawl(cmd *cobra.Command, args []string) {
	c := initContext()

	ctx, stop := signalContext()
	defer stop()

	report, err := core.Crawl(ctx, core.Options{Config: c.Config, Logger: c.Logger})
	if err != nil {
		exitError("%v", err)
	}
	printReport(report)
}

// signalContext is cancelled by Ctrl-C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printReport(report *pipeline.RunReport) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	cyan.Printf("run %s\n", shortID(report.RunID))
	green.Printf("%d pictures", report.Files)
	fmt.Printf(" in %s\n", report.Finished.Sub(report.Started).Round(time.Millisecond))

	names := make([]string, 0, len(report.Collections))
	for name := range report.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-12s %d\n", name, report.Collections[name])
	}

	if len(report.Skipped) > 0 {
		yellow.Printf("%d pictures skipped:\n", len(report.Skipped))
		for _, err := range report.Skipped {
			yellow.Printf("  %v\n", err)
		}
	}
}
