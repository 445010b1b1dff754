// Command mosgal builds static photo galleries.
package main

import (
	"os"

	"github.com/kilupskalvis/mosgal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
