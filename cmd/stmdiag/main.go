// Package main implements the stmdiag CLI tool.
//
// stmdiag is a small diagnostic companion to the stm library: it reports
// build/version information, sanity-checks a module's go.mod against the
// dependencies this library expects, and can run a short in-process stress
// workload against the STM runtime to sanity-check that commits make
// forward progress under contention.
//
// Usage:
//
//	stmdiag version              # print stm's version info
//	stmdiag checkmod [go.mod]    # verify a go.mod requires this module's deps
//	stmdiag stress [duration]    # run a concurrent counter workload
//
// This is the CLI entry point for the standalone stmdiag tool.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version", "--version", "-v":
		versionCommand(os.Args[2:])
	case "checkmod":
		checkmodCommand(os.Args[2:])
	case "stress":
		stressCommand(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`stmdiag - software transactional memory diagnostics

USAGE:
    stmdiag <command> [arguments]

COMMANDS:
    version    Print stm's version and protocol information
    checkmod   Verify a go.mod file requires stm's expected dependencies
    stress     Run a short concurrent stress workload against the runtime
    help       Show this help message

EXAMPLES:
    stmdiag version
    stmdiag checkmod go.mod
    stmdiag stress 2s

`)
}

// versionCommand is implemented in version.go
// checkmodCommand is implemented in checkmod.go
// stressCommand is implemented in stress.go
