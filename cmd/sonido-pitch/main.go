// Package main is the entry point for the sonido-pitch CLI.
//
// Usage:
//
//	sonido-pitch [flags] <command> [args]
//
// Commands:
//
//	analyze  - Track the pitch of a recorded file offline
//	live     - Track PCM from stdin and draw it in the terminal
//	serve    - Track PCM from stdin and publish snapshots over WebSocket
//	config   - Print the resolved configuration
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/sonido-pitch/cmd/sonido-pitch/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
