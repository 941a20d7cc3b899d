package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

var version = "dev" // Set by -ldflags during build

// Available subcommands
var subcommands = []struct {
	name        string
	description string
}{
	{"run", "Run visual regression scenarios on a simulator"},
	{"compare", "Compare two PNG images"},
	{"stitch", "Stack full-page segments into one image"},
	{"results", "Inspect recorded runs and baselines"},
	{"config", "Manage configuration"},
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("simsnap version %s\n", version)
		os.Exit(0)
	}

	if len(os.Args) == 1 || os.Args[1] == "--help" || os.Args[1] == "-h" {
		printHelp()
		os.Exit(0)
	}

	subcommand := os.Args[1]

	validSubcommand := false
	for _, sc := range subcommands {
		if sc.name == subcommand {
			validSubcommand = true
			break
		}
	}

	if !validSubcommand {
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}

	cmdName := "simsnap-" + subcommand

	cmdPath, err := exec.LookPath(cmdName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: command '%s' not found in PATH\n", cmdName)
		fmt.Fprintf(os.Stderr, "Make sure it is installed (try: go install ./cmd/...)\n")
		os.Exit(1)
	}

	args := []string{filepath.Base(cmdPath)}
	if len(os.Args) > 2 {
		args = append(args, os.Args[2:]...)
	}

	// execve hands signals straight to the subcommand
	if err := syscall.Exec(cmdPath, args, os.Environ()); err != nil {
		cmd := exec.Command(cmdPath, args[1:]...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				os.Exit(exitErr.ExitCode())
			}
			fmt.Fprintf(os.Stderr, "Error executing %s: %v\n", cmdName, err)
			os.Exit(1)
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: simsnap <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Available commands:\n")
	for _, sc := range subcommands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", sc.name, sc.description)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'simsnap <command> --help' for more information on a command.\n")
}

func printHelp() {
	fmt.Printf("simsnap - Visual regression snapshots for iOS simulators\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Drives a simulator through scripted scenarios, captures screens and\n")
	fmt.Printf("  scrollable pages, and compares them with stored baselines.\n")
	fmt.Printf("  This command dispatches to the individual simsnap-* tools.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  simsnap <command> [options]\n\n")

	fmt.Printf("AVAILABLE COMMANDS:\n")
	for _, sc := range subcommands {
		fmt.Printf("  %-10s %s\n", sc.name, sc.description)
	}

	fmt.Printf("\nGLOBAL OPTIONS:\n")
	fmt.Printf("  -h, --help       Show this help message\n")
	fmt.Printf("  -V, --version    Show version\n\n")

	fmt.Printf("GETTING STARTED:\n")
	fmt.Printf("  1. Create a configuration:\n")
	fmt.Printf("       simsnap config init\n\n")

	fmt.Printf("  2. Record baselines:\n")
	fmt.Printf("       simsnap run --update scenarios/\n\n")

	fmt.Printf("  3. Compare later builds against them:\n")
	fmt.Printf("       simsnap run scenarios/\n\n")

	fmt.Printf("  4. Inspect what happened:\n")
	fmt.Printf("       simsnap results list\n\n")

	fmt.Printf("For detailed help on any command:\n")
	fmt.Printf("  simsnap <command> --help\n\n")
}
