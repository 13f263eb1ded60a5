// Package main implements the bplusviz command line.
//
// EDUCATIONAL NOTES:
// ------------------
// This is the entry point for the B+ tree visualizer. It provides:
// 1. A REPL (Read-Eval-Print Loop) for driving one tree interactively
// 2. A terminal player that animates a script step by step
// 3. The web server with the JSON API and the replay websocket
//
// The REPL pattern is common in interactive tools:
// - Read: Get input from user
// - Eval: Parse and run the statements
// - Print: Display the result and the redrawn tree
// - Loop: Repeat until user exits

package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
