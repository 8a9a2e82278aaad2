// Package main is the entry point of the glbkeeper command line.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"

	"github.com/atinyakov/glbkeeper/internal/cli"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	v := fmt.Sprintf("%s (built %s)", cmp.Or(version, "dev"), cmp.Or(buildDate, "N/A"))
	if err := cli.Execute(context.Background(), v); err != nil {
		os.Exit(1)
	}
}
