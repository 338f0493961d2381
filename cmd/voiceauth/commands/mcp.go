// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Lets LLM agents enroll and verify speakers over stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/voiceauth/internal/core"
	"github.com/harper/voiceauth/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs voiceauth as an MCP (Model Context Protocol) server over stdio,
exposing enroll_speaker, verify_speaker, check_enrollment,
delete_enrollment, and list_speakers to LLM agents like Claude.

Each tool returns the same JSON record as the matching CLI command.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  voiceauth mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "voiceauth": {
  #       "command": "voiceauth",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	svc, err := core.NewService(cfg)
	if err != nil {
		return &setupError{err}
	}

	server := mcpserver.NewMCPServer(
		"voiceauth",
		versionInfo.Version,
	)
	mcp.RegisterTools(server, svc)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("voiceauth MCP server starting on stdio",
		"store", cfg.Store.Backend, "provider", cfg.Provider.Kind)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, closing")
		closeService(svc)
		log.Info("shutdown complete")

	case err := <-serverErr:
		closeService(svc)
		if err != nil {
			return &setupError{fmt.Errorf("server error: %w", err)}
		}
	}

	return nil
}
