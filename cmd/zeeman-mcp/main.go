package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ironsheep/zeeman-rings-mcp/internal/config"
	"github.com/ironsheep/zeeman-rings-mcp/internal/readout"
	"github.com/ironsheep/zeeman-rings-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("zeeman-mcp - MCP server for Zeeman effect ring photo analysis")
	fmt.Println()
	fmt.Println("Usage: zeeman-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <file>  Load detection and optics tuning from a JSON file")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  ZEEMAN_MCP_CONFIG=<file>      Tuning file, if --config is not given")
	fmt.Println("  ZEEMAN_MCP_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	configPath := os.Getenv("ZEEMAN_MCP_CONFIG")

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--version" || arg == "-v" || arg == "version":
			fmt.Printf("zeeman-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			info := readout.BackendInfo()
			fmt.Printf("  OCR backend: %s\n", info.Backend)
			return
		case arg == "--help" || arg == "-h" || arg == "help":
			usage()
			return
		case arg == "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a file argument")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			fmt.Fprintf(os.Stderr, "unknown option: %s\n\n", arg)
			usage()
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	debug := os.Getenv("ZEEMAN_MCP_LOG_LEVEL") == "debug"
	if debug {
		log.Printf("Zeeman MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	tuning := config.EmptyTuningConfig()
	if configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		if debug {
			log.Printf("Loaded tuning config from %s", configPath)
		}
	}

	srv := server.New(
		server.WithTuning(tuning),
		server.WithVersion(Version),
		server.WithDebug(debug),
	)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
