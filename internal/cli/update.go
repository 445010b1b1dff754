package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/mosgal/internal/core"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update [target-dir]",
	Short: "Build the site",
	Long: `Crawl the gallery and write the static site into target-dir, or into
site.destination when no directory is given. The previous site is replaced
only once the new one has been written completely.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) {
	c := initContext()

	var target string
	if len(args) == 1 {
		target = args[0]
	}

	ctx, stop := signalContext()
	defer stop()

	report, err := core.Update(ctx, core.Options{Config: c.Config, Logger: c.Logger}, target)
	if err != nil {
		exitError("%v", err)
	}
	printReport(report)

	dest, _ := core.Destination(c.Config, target)
	color.New(color.FgGreen).Printf("\nSite written to %s\n", dest)
	fmt.Printf("Open %s/index.html in a browser.\n", dest)
}
