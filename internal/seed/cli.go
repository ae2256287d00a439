package seed

import (
	"fmt"
	"io"

	"github.com/okian/eatery/pkg/logger"
)

// SetupLogging initialises the global logger; verbose enables debug output.
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the seed tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Eatery Seed Tool
================

Fills a running eatery service with generated restaurants and users, then
checks the nearby and cuisine queries against the stored data.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -restaurants int
        Number of restaurants to generate (default 200)
  -users int
        Number of users to generate (default 50)
  -batch int
        Documents per bulk insert request (default 50)
  -workers int
        Concurrent bulk insert requests (default 4)
  -lng float, -lat float
        Centre of the generated restaurants (default Midtown Manhattan)
  -spread float
        Maximum distance from the centre in metres (default 3000)
  -reset
        Delete every user and restaurant before seeding
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  go run ./cmd/seed -reset
  go run ./cmd/seed -restaurants 5000 -users 1000 -workers 8 -url http://localhost:8080
`)
}
