// Package main is the entrypoint for the miklabel CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/miklabel/cmd"
	"github.com/huangsam/miklabel/internal/iocache"
)

func main() {
	defer iocache.CloseStores()
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warn failed to stop profiling: %v\n", stopErr)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		iocache.CloseStores()
		os.Exit(1)
	}
}
