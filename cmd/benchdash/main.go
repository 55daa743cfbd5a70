package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mlbench/benchdash/internal/cache"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Command completed
	ExitUnavailable = 1 // No benchmark data could be produced
	ExitError       = 2 // Configuration or runtime error
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, cache.ErrUnavailable):
		return ExitUnavailable
	default:
		return ExitError
	}
}
