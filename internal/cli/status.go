package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/mosgal/internal/core"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the catalog status",
	Long:  `Show how many pictures the catalog holds, their size and when the last run happened.`,
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, args []string) {
	c := initContext()

	status, err := core.Status(c.Config)
	if err != nil {
		exitError("failed to read catalog: %v", err)
	}

	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	fmt.Printf("Gallery %s\n", status.Root)
	fmt.Printf("Catalog %s\n", status.Backend)

	if status.Pictures == 0 {
		yellow.Println("\nNo pictures catalogued yet (run 'mosgal crawl')")
		return
	}

	fmt.Printf("\n%d pictures, %s\n", status.Pictures, status.Size())
	if status.LastRunID != "" {
		fmt.Printf("Last run %s, %s\n", shortID(status.LastRunID), status.LastRun())
	}

	fmt.Println("\nAlbums:")
	for _, a := range status.Albums {
		cyan.Printf("  %-24s", a.Name)
		fmt.Printf(" %d\n", a.Count)
	}
}
