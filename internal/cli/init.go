package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/mosgal/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a gallery",
	Long: `Initialize a gallery in the given directory (default: the current one).
This creates a .gallery directory holding the configuration, the catalog,
the thumbnail cache, extra pages and template overrides.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	} else if rootDir != "" {
		dir = rootDir
	}

	// Check if already initialized
	if root, err := config.FindRoot(dir); err == nil {
		exitError("gallery already exists in %s", root)
	}

	cfg, err := config.Initialize(dir)
	if err != nil {
		exitError("failed to initialize gallery: %v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Initialized empty gallery in %s\n", cfg.GalleryPath())
	fmt.Printf("Configuration: %s\n", cfg.ConfigPath())
	fmt.Printf("Extra pages:   %s\n", cfg.PagesPath())
	fmt.Printf("Templates:     %s\n", cfg.TemplatesPath())
	fmt.Printf("\nRun 'mosgal update <target-dir>' to build the site.\n")
}
