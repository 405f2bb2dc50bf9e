// Command tilde-mcp runs an MCP server over stdio that lets agents discover
// machine-payable HTTP APIs and call them, settling x402 micropayments
// transparently.
package main

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Gordian-Labs/tilde-mcp/config"
	"github.com/Gordian-Labs/tilde-mcp/logger"
	"github.com/Gordian-Labs/tilde-mcp/tools"
)

func main() {
	cfg, errs := config.Load()
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "configuration error:", err)
		}
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	srv, err := tools.NewServer(cfg, log)
	if err != nil {
		log.Error("failed to start server", zap.Error(err))
		os.Exit(1)
	}

	log.Info("server starting",
		zap.String("name", tools.ServerName),
		zap.String("version", tools.ServerVersion),
		zap.Strings("networks", cfg.Networks),
		zap.String("searchURL", cfg.SearchURL),
	)

	if err := mcpserver.ServeStdio(srv); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
