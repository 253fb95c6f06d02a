package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/livefir/htmlizer/cmd/htmlizer/commands"
)

// Version information (can be overridden at build time with -ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error

	switch command {
	case "render":
		err = commands.Render(args)
	case "serve":
		err = commands.Serve(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("htmlizer version %s\n", version)

	if info, ok := debug.ReadBuildInfo(); ok {
		if commit != "unknown" {
			fmt.Printf("commit: %s\n", commit)
		} else {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
					fmt.Printf("commit: %s\n", setting.Value[:12])
				}
			}
		}
		fmt.Printf("go: %s\n", info.GoVersion)
	}
}

func printUsage() {
	fmt.Println("htmlizer - declarative HTML templates with live data binding")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  htmlizer render -t <template> [-d <data.yaml>] [-c <config.yaml>] [--minify]")
	fmt.Println("                                     Render a template and print the markup")
	fmt.Println("  htmlizer serve -t <template> [-d <data.yaml>] [-addr :8080] [-poll 1s]")
	fmt.Println("                                     Serve a live page, pushing data file changes")
	fmt.Println("  htmlizer version                   Show version information")
	fmt.Println("  htmlizer help                      Show this help message")
}
