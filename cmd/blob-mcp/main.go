package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/blob-tools-mcp/internal/config"
	"github.com/ironsheep/blob-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("blob-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("blob-tools-mcp - MCP server for DoG blob detection")
			fmt.Println()
			fmt.Println("Usage: blob-tools-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  BLOB_MCP_LOG_LEVEL=debug     Enable debug logging")
			fmt.Println("  BLOB_MCP_CONFIG=<file.json>  Detector defaults (see config/detector.defaults.json)")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	debug := os.Getenv("BLOB_MCP_LOG_LEVEL") == "debug"
	if debug {
		log.Printf("Blob MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	cfg := config.DefaultDetectorConfig()
	if path := os.Getenv("BLOB_MCP_CONFIG"); path != "" {
		loaded, err := config.LoadDetectorConfig(path)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		cfg = loaded
		if debug {
			log.Printf("Loaded detector config from %s", path)
		}
	}

	server.Version = Version
	srv := server.NewWithOptions(server.Options{Config: cfg, Debug: debug})
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
