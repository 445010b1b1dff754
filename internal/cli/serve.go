package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/mosgal/internal/core"
	"github.com/kilupskalvis/mosgal/internal/serve"
	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve [site-dir]",
	Short: "Preview the built site over HTTP",
	Long: `Serve the site written by 'mosgal update' on a local address.
The directory defaults to site.destination. Press Ctrl-C to stop.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: serve.listen from the configuration)")
}

func runServe(cmd *cobra.Command, args []string) {
	c := initContext()

	var target string
	if len(args) == 1 {
		target = args[0]
	}
	dir, err := core.Destination(c.Config, target)
	if err != nil {
		exitError("%v", err)
	}

	listen := serveListen
	if listen == "" {
		listen = c.Config.Serve.Listen
	}

	ctx, stop := signalContext()
	defer stop()

	s := &serve.Server{
		Addr:   listen,
		Dir:    dir,
		Logger: c.Logger,
		Ready: func(addr string) {
			color.New(color.FgCyan).Printf("Serving %s at http://%s/\n", dir, addr)
		},
	}
	if err := s.Run(ctx); err != nil {
		exitError("%v", err)
	}
	fmt.Println("\nStopped.")
}
