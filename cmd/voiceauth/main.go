// ABOUTME: Main entry point for the voiceauth CLI
// ABOUTME: Sets up the Cobra root command and maps malformed invocations to exit 1
package main

import (
	"os"

	"github.com/harper/voiceauth/cmd/voiceauth/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	// Execute has already printed a JSON record describing the problem
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
