// Package main provides the hotseat terminal client.
//
// Usage:
//
//	hotseat [flags] <command> [args]
//
// Commands:
//
//	interview - Run a live mock interview against Gemini Live
//	report    - Generate a coaching report from a saved recording
//	verify    - Check that a saved recording replays to its transcript
package main

import (
	"fmt"
	"os"

	"hotseat/cmd/hotseat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
