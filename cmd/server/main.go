// ABOUTME: Main entry point for the voiceauth MCP server with stdio transport
// ABOUTME: Loads configuration, builds the service, and registers the speaker tools
package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/core"
	"github.com/harper/voiceauth/internal/mcp"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found", "err", err)
	}

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	svc, err := core.NewService(cfg)
	if err != nil {
		log.Fatal("failed to initialize service", "err", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn("failed to close service", "err", err)
		}
	}()

	server := mcpserver.NewMCPServer("voiceauth", version)
	mcp.RegisterTools(server, svc)

	log.Info("voiceauth MCP server starting on stdio",
		"store", cfg.Store.Backend, "provider", cfg.Provider.Kind)
	if err := mcpserver.ServeStdio(server); err != nil {
		log.Error("server error", "err", err)
		_ = svc.Close()
		os.Exit(1)
	}
}
