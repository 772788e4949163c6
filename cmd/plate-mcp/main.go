package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/plate-tools-mcp/internal/config"
	"github.com/ironsheep/plate-tools-mcp/internal/server"
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
			fmt.Printf("plate-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("plate-tools-mcp - MCP server for plate rectification and character segmentation")
			fmt.Println()
			fmt.Println("Usage: plate-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  PLATE_MCP_CONFIG=<file>       YAML file with pipeline defaults")
			fmt.Println("  PLATE_MCP_LOG_LEVEL=debug     Enable debug logging")
			fmt.Println("  PLATE_MCP_THRESHOLD=otsu      Default threshold mode (adaptive, otsu)")
			fmt.Println("  PLATE_MCP_OUTPUT_DIR=<dir>    Where plate_save writes (default extracted_plates)")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.Debug() {
		log.Printf("Plate MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("Frame %dx%d, threshold %s, output %s", cfg.Width, cfg.Height, cfg.Threshold, cfg.OutputDir)
	}

	srv, err := server.NewWithConfig(cfg)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
