package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/kilupskalvis/mosgal/internal/config"
	"github.com/kilupskalvis/mosgal/internal/core"
	"github.com/kilupskalvis/mosgal/internal/watch"
	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [target-dir]",
	Short: "Rebuild the site whenever pictures change",
	Long: `Build the site, then watch the gallery root and rebuild once changes have
settled. Press Ctrl-C to stop.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before a rebuild")
}

func runWatch(cmd *cobra.Command, args []string) {
	c := initContext()

	var target string
	if len(args) == 1 {
		target = args[0]
	}
	dest, err := core.Destination(c.Config, target)
	if err != nil {
		exitError("%v", err)
	}

	ctx, stop := signalContext()
	defer stop()

	w := &watch.Watcher{
		Root:        c.Config.Root(),
		ExcludeDirs: append([]string{config.GalleryDir}, c.Config.Crawl.ExcludedDirs...),
		Exclude:     core.ExcludedOutputs(c.Config.Root(), dest),
		Debounce:    watchDebounce,
		Logger:      c.Logger,
		Run: func(ctx context.Context) error {
			report, err := core.Update(ctx, core.Options{Config: c.Config, Logger: c.Logger}, dest)
			if err != nil {
				color.New(color.FgRed).Printf("update failed: %v\n", err)
				return err
			}
			printReport(report)
			return nil
		},
	}

	color.New(color.FgCyan).Printf("Watching %s, writing to %s\n", w.Root, dest)
	if err := w.Watch(ctx); err != nil {
		exitError("%v", err)
	}
	fmt.Println("\nStopped.")
}
