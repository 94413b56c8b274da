// Package bridge exposes the session and review operations as MCP tools
// served over stdio.
package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/clinebridge/clinebridge/internal/review"
	"github.com/clinebridge/clinebridge/internal/session"
)

// Bridge adapts the registry, quick runner, and reviewer to MCP tool calls.
// Tool handlers never return protocol errors; every failure is reported as a
// success:false JSON payload so MCP clients see a uniform result shape.
type Bridge struct {
	registry *session.Registry
	quick    *session.QuickRunner
	reviewer *review.Runner
}

// NewServer creates an MCP server with the full tool surface registered.
func NewServer(version string, registry *session.Registry, quick *session.QuickRunner, reviewer *review.Runner) *server.MCPServer {
	b := &Bridge{registry: registry, quick: quick, reviewer: reviewer}

	s := server.NewMCPServer(
		"clinebridge",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(mcp.NewTool("create_cline_session",
		mcp.WithDescription("Start a persistent Cline session for a workspace"),
		mcp.WithString("workspace_path",
			mcp.Description("Workspace directory for the session; defaults to the configured workspace"),
		),
	), b.createSession)

	s.AddTool(mcp.NewTool("list_cline_sessions",
		mcp.WithDescription("List all active Cline sessions"),
	), b.listSessions)

	s.AddTool(mcp.NewTool("get_cline_session",
		mcp.WithDescription("Get the status of a Cline session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	), b.getSession)

	s.AddTool(mcp.NewTool("send_message_to_cline",
		mcp.WithDescription("Send a message to a Cline session and wait for the reply"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Message text to send"),
		),
	), b.sendMessage)

	s.AddTool(mcp.NewTool("get_cline_session_messages",
		mcp.WithDescription("Get the message history of a Cline session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Return only the most recent N messages"),
		),
	), b.getMessages)

	s.AddTool(mcp.NewTool("stop_cline_session",
		mcp.WithDescription("Stop a Cline session and release its resources"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	), b.stopSession)

	s.AddTool(mcp.NewTool("quick_message_to_cline",
		mcp.WithDescription("Send a one-shot message without keeping a session"),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Message text to send"),
		),
		mcp.WithString("workspace_path",
			mcp.Description("Workspace directory for the run"),
		),
	), b.quickMessage)

	s.AddTool(mcp.NewTool("review_workspace",
		mcp.WithDescription("Run an automated review of a workspace and return the comments"),
		mcp.WithString("workspace_path",
			mcp.Required(),
			mcp.Description("Workspace directory to review"),
		),
		mcp.WithNumber("timeout_minutes",
			mcp.Description("Review timeout in minutes"),
		),
	), b.reviewWorkspace)

	s.AddTool(mcp.NewTool("health_check",
		mcp.WithDescription("Report service health and the active session count"),
	), b.healthCheck)

	return s
}

// ServeStdio runs the MCP server on stdin/stdout until EOF.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (b *Bridge) createSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspace := request.GetString("workspace_path", "")

	sess, err := b.registry.Create(ctx, workspace)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"session": sess.Descriptor(),
	}), nil
}

func (b *Bridge) listSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := b.registry.List(ctx)
	return success(map[string]any{
		"sessions":    sessions,
		"total_count": len(sessions),
	}), nil
}

func (b *Bridge) getSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return failure(err), nil
	}

	sess, err := b.registry.Get(ctx, sessionID)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"session": sess.Descriptor(),
	}), nil
}

func (b *Bridge) sendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return failure(err), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return failure(err), nil
	}

	record, err := b.registry.Send(ctx, sessionID, message)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"session_id": sessionID,
		"message_id": record.ID,
		"response":   record.Content,
	}), nil
}

func (b *Bridge) getMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return failure(err), nil
	}
	limit := request.GetInt("limit", 0)

	msgs, err := b.registry.Messages(ctx, sessionID, limit)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"session_id":  sessionID,
		"messages":    msgs,
		"total_count": len(msgs),
	}), nil
}

func (b *Bridge) stopSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return failure(err), nil
	}

	if !b.registry.Stop(ctx, sessionID) {
		return failure(session.ErrNotFound), nil
	}
	return success(map[string]any{
		"session_id": sessionID,
		"status":     "stopped",
	}), nil
}

func (b *Bridge) quickMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return failure(err), nil
	}
	workspace := request.GetString("workspace_path", "")

	out, err := b.quick.Run(ctx, message, workspace)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"response": out,
	}), nil
}

func (b *Bridge) reviewWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspace, err := request.RequireString("workspace_path")
	if err != nil {
		return failure(err), nil
	}
	timeout := time.Duration(request.GetInt("timeout_minutes", 0)) * time.Minute

	result, err := b.reviewer.Run(ctx, workspace, timeout)
	if err != nil {
		return failure(err), nil
	}
	return success(map[string]any{
		"comments":      result.Comments,
		"comment_count": result.CommentCount,
		"duration":      result.DurationSeconds,
		"message":       result.Message,
	}), nil
}

func (b *Bridge) healthCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return success(map[string]any{
		"status":          "healthy",
		"service":         "clinebridge",
		"active_sessions": b.registry.Count(),
	}), nil
}

// success wraps a payload in a success envelope as tool result text.
func success(payload map[string]any) *mcp.CallToolResult {
	payload["success"] = true
	return resultJSON(payload)
}

// failure reports an error as a payload instead of a protocol error.
func failure(err error) *mcp.CallToolResult {
	return resultJSON(map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

func resultJSON(payload map[string]any) *mcp.CallToolResult {
	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultText(`{"success":false,"error":"failed to encode result"}`)
	}
	return mcp.NewToolResultText(string(data))
}
