package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/parmira/forensic"
)

// ErrToolNotFound is returned when a remote server does not offer forensic_audit.
var ErrToolNotFound = errors.New("remote server does not provide " + ToolName)

// RemoteAuditor implements [forensic.Auditor] by calling the forensic_audit
// tool on another MCP server. Evidence rendering is left to the caller, so
// remote calls always disable it.
type RemoteAuditor struct {
	client *client.Client
}

// NewRemoteAuditor starts command as a stdio MCP server and connects to it.
//
// Example:
//
//	auditor, err := mcp.NewRemoteAuditor(ctx, "./forensic-mcp", os.Environ())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer auditor.Close()
func NewRemoteAuditor(ctx context.Context, command string, env []string, args ...string) (*RemoteAuditor, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}
	return NewRemoteAuditorFromClient(ctx, c)
}

// NewRemoteAuditorFromClient initializes c and checks that it offers the
// audit tool.
func NewRemoteAuditorFromClient(ctx context.Context, c *client.Client) (*RemoteAuditor, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "parmira-forensic-client",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	for _, t := range tools.Tools {
		if t.Name == ToolName {
			return &RemoteAuditor{client: c}, nil
		}
	}
	c.Close()
	return nil, ErrToolNotFound
}

// Close closes the connection to the MCP server.
func (r *RemoteAuditor) Close() error {
	return r.client.Close()
}

// Audit runs the remote audit tool and decodes its result.
func (r *RemoteAuditor) Audit(ctx context.Context, telemetry string, _ ...forensic.Option) (*forensic.AuditResult, error) {
	if forensic.Blank(telemetry) {
		return nil, forensic.ErrEmptyInput
	}

	result, err := r.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: ToolName,
			Arguments: map[string]any{
				argTelemetry:      telemetry,
				argRenderEvidence: false,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("remote audit call failed: %w", err)
	}

	payload, text := toPayload(result)
	if result.IsError {
		return nil, fmt.Errorf("remote audit failed: %s", text)
	}
	return forensic.Decode(payload)
}

// toPayload converts tool result content into a decode payload. It also
// returns the joined text for error reporting.
func toPayload(result *mcp.CallToolResult) (forensic.Payload, string) {
	var parts []forensic.Part
	var texts []string

	for _, c := range result.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			parts = append(parts, forensic.Part{Text: content.Text})
			texts = append(texts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, forensic.Part{Text: content.Text})
			texts = append(texts, content.Text)
		case mcp.ImageContent:
			if img := decodeImage(content.Data, content.MIMEType); img != nil {
				parts = append(parts, forensic.Part{InlineData: img})
			}
		case *mcp.ImageContent:
			if img := decodeImage(content.Data, content.MIMEType); img != nil {
				parts = append(parts, forensic.Part{InlineData: img})
			}
		}
	}

	return forensic.Payload{Candidates: []forensic.Candidate{{Parts: parts}}}, strings.Join(texts, "\n")
}

func decodeImage(data, mimeType string) *forensic.Image {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(raw) == 0 {
		return nil
	}
	return &forensic.Image{MIMEType: mimeType, Data: raw}
}

var _ forensic.Auditor = (*RemoteAuditor)(nil)
