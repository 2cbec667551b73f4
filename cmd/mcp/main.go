// Command mcp serves the forensic_audit tool over MCP stdio.
//
// It reads the same environment variables as cmd/serve. Logs go to stderr
// so they do not interfere with the protocol on stdout.
//
// Configuration for an MCP client:
//
//	{
//	    "mcpServers": {
//	        "parmira-forensic": {
//	            "command": "go",
//	            "args": ["run", "./cmd/mcp"],
//	            "cwd": "/path/to/forensic",
//	            "env": {"GOOGLE_API_KEY": "..."}
//	        }
//	    }
//	}
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/parmira/forensic/client"
	"github.com/parmira/forensic/internal/config"
	"github.com/parmira/forensic/mcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	gw, err := client.New(context.Background(), cfg.Client(nil))
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	err = mcp.ServeStdio(gw,
		mcp.WithName("parmira-forensic"),
		mcp.WithVersion("1.0.0"),
		mcp.WithLogger(logger),
	)
	if cerr := gw.Close(); cerr != nil {
		logger.Error("failed to close providers", "error", cerr)
	}
	if err != nil {
		log.Fatal(err)
	}
}
