// ABOUTME: MCP tool handler implementations for the voiceauth server
// ABOUTME: Each handler returns the same JSON record the CLI prints
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/voiceauth/internal/core"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	svc *core.Service
}

// EnrollSpeaker handles the enroll_speaker tool
func (h *Handlers) EnrollSpeaker(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	samples, err := stringSlice(request, "samples")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := h.svc.Enroll(ctx, request.GetString("speaker_id", ""), samples)
	return record(resp, resp.Success)
}

// VerifySpeaker handles the verify_speaker tool
func (h *Handlers) VerifySpeaker(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sample, err := request.RequireString("sample")
	if err != nil {
		return mcp.NewToolResultError("sample argument is required and must be a string"), nil
	}

	var threshold *float64
	if raw, ok := request.GetArguments()["threshold"]; ok && raw != nil {
		t, ok := raw.(float64)
		if !ok {
			return mcp.NewToolResultError("threshold must be a number"), nil
		}
		threshold = &t
	}

	resp := h.svc.Verify(ctx, request.GetString("speaker_id", ""), sample, threshold)
	return record(resp, resp.Success)
}

// CheckEnrollment handles the check_enrollment tool
func (h *Handlers) CheckEnrollment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp := h.svc.Check(request.GetString("speaker_id", ""))
	return record(resp, resp.Success)
}

// DeleteEnrollment handles the delete_enrollment tool
func (h *Handlers) DeleteEnrollment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp := h.svc.Delete(request.GetString("speaker_id", ""))
	return record(resp, resp.Success)
}

// ListSpeakers handles the list_speakers tool
func (h *Handlers) ListSpeakers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp := h.svc.List()
	return record(resp, resp.Success)
}

// record renders v as the tool's text content. Domain failures are
// flagged as tool errors but still carry the full record.
func record(v interface{}, success bool) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	result := mcp.NewToolResultText(string(data))
	result.IsError = !success
	return result, nil
}

// stringSlice reads a required array-of-strings argument
func stringSlice(request mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s argument is required", key)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", key, i)
		}
		out = append(out, s)
	}
	return out, nil
}
