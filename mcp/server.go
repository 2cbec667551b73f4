// Package mcp exposes forensic audits as an MCP tool and consumes them from
// remote MCP servers.
package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/parmira/forensic"
	"github.com/parmira/forensic/session"
)

// ToolName is the name of the audit tool.
const ToolName = "forensic_audit"

// Tool argument names.
const (
	argTelemetry      = "telemetry"
	argRenderEvidence = "render_evidence"
)

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name    string
	version string
	log     *slog.Logger
}

// WithName sets the server name reported to MCP clients.
func WithName(name string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.version = version
	}
}

// WithLogger sets the logger used for audit sessions.
func WithLogger(l *slog.Logger) ServerOption {
	return func(c *serverConfig) {
		c.log = l
	}
}

// NewServer creates an MCP server exposing the forensic_audit tool backed by gw.
// Each call runs in its own session, so concurrent calls do not block each other.
//
// Example:
//
//	gw, _ := client.New(ctx, cfg)
//	s := mcp.NewServer(gw, mcp.WithName("parmira-forensics"))
//	server.ServeStdio(s)
func NewServer(gw *forensic.Gateway, opts ...ServerOption) *server.MCPServer {
	cfg := &serverConfig{
		name:    "parmira-forensic",
		version: "1.0.0",
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := server.NewMCPServer(
		cfg.name,
		cfg.version,
		server.WithToolCapabilities(true),
	)
	s.AddTool(auditTool(), auditHandler(gw, cfg.log))
	return s
}

func auditTool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Run a Parmira forensic audit over drone blackbox telemetry. "+
			"Returns the forensic report as JSON, followed by the diagnostic plot and "+
			"evidence reconstruction images when available."),
		mcp.WithString(argTelemetry,
			mcp.Required(),
			mcp.Description("Telemetry records as text, typically a JSON array of {index, pos, sensed_g, voltage, gain, vel}"),
		),
		mcp.WithBoolean(argRenderEvidence,
			mcp.Description("Render the evidence reconstruction image (default true)"),
		),
	)
}

func auditHandler(gw *forensic.Gateway, log *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		telemetry := req.GetString(argTelemetry, "")
		if forensic.Blank(telemetry) {
			return mcp.NewToolResultError("telemetry is required"), nil
		}

		runGW := gw
		if !req.GetBool(argRenderEvidence, true) {
			runGW = &forensic.Gateway{Auditor: gw.Auditor}
		}

		snap, err := session.New(runGW, session.WithLogger(log)).Run(ctx, telemetry)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResult(snap)
	}
}

// toolResult renders a completed snapshot as report JSON plus image content.
func toolResult(snap session.Snapshot) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(snap.Report(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
	}
	for _, img := range []*forensic.Image{snap.Plot(), snap.Reconstruction()} {
		if img == nil || len(img.Data) == 0 {
			continue
		}
		result.Content = append(result.Content,
			mcp.NewImageContent(base64.StdEncoding.EncodeToString(img.Data), img.MIMEType))
	}
	return result, nil
}

// ServeStdio starts an MCP server that communicates over stdin/stdout.
// This is the standard transport for MCP servers invoked as subprocesses.
func ServeStdio(gw *forensic.Gateway, opts ...ServerOption) error {
	return server.ServeStdio(NewServer(gw, opts...))
}
