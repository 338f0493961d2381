// ABOUTME: MCP tool definitions and registration for the voiceauth server
// ABOUTME: Exposes enroll, verify, check, delete, and list as five MCP tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/voiceauth/internal/core"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, svc *core.Service) *Handlers {
	handlers := &Handlers{svc: svc}

	speakerID := map[string]interface{}{
		"type":        "string",
		"description": "Speaker identifier (default: the configured default speaker, usually \"owner\")",
	}

	// 1. enroll_speaker - Build and store a voiceprint
	server.AddTool(mcp.Tool{
		Name:        "enroll_speaker",
		Description: "Enroll a speaker from one or more WAV files. Replaces any existing voiceprint for that speaker. Three or more samples of at least one second are recommended.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"samples": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Paths to WAV files, each at least 1 second long",
				},
				"speaker_id": speakerID,
			},
			Required: []string{"samples"},
		},
	}, handlers.EnrollSpeaker)

	// 2. verify_speaker - Compare a sample with an enrolled voiceprint
	server.AddTool(mcp.Tool{
		Name:        "verify_speaker",
		Description: "Check whether a WAV file was spoken by an enrolled speaker. Returns the cosine similarity and the decision.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sample": map[string]interface{}{
					"type":        "string",
					"description": "Path to a WAV file at least 0.5 seconds long",
				},
				"speaker_id": speakerID,
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Similarity threshold within [-1, 1] (default: configured, 0.75)",
				},
			},
			Required: []string{"sample"},
		},
	}, handlers.VerifySpeaker)

	// 3. check_enrollment - Report enrollment state
	server.AddTool(mcp.Tool{
		Name:        "check_enrollment",
		Description: "Report whether a speaker has an enrolled voiceprint and where it is stored.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"speaker_id": speakerID,
			},
		},
	}, handlers.CheckEnrollment)

	// 4. delete_enrollment - Remove a voiceprint
	server.AddTool(mcp.Tool{
		Name:        "delete_enrollment",
		Description: "Delete a speaker's voiceprint. Fails if the speaker is not enrolled.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"speaker_id": speakerID,
			},
		},
	}, handlers.DeleteEnrollment)

	// 5. list_speakers - Enumerate enrolled speakers
	server.AddTool(mcp.Tool{
		Name:        "list_speakers",
		Description: "List every enrolled speaker id.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListSpeakers)

	return handlers
}
