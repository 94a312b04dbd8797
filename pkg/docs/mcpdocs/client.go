// Package mcpdocs implements docs.Provider on top of an MCP server exposing
// a documentation tool. The transport is described by a spec string so hosts
// can point the lookup at a local stdio process or a remote HTTP endpoint
// without code changes.
package mcpdocs

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cexll/diagramchat-go/pkg/docs"
)

const defaultToolName = "get_docs"

// transportBuilder is overridden in tests to stub the transport factory.
var transportBuilder = buildTransport

// Client connects lazily to an MCP server and resolves topics through one of
// its tools.
type Client struct {
	implClient    *mcpsdk.Client
	session       *mcpsdk.ClientSession
	transportSpec string
	toolName      string
	once          sync.Once
	connectErr    error
}

// Ensure Client satisfies the provider boundary at compile time.
var _ docs.Provider = (*Client)(nil)

// New constructs a Client for the given transport spec. toolName may be
// empty, in which case the conventional get_docs tool is called.
func New(spec, toolName string) *Client {
	impl := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "diagramchat-go", Version: "dev"}, nil)
	name := strings.TrimSpace(toolName)
	if name == "" {
		name = defaultToolName
	}
	return &Client{implClient: impl, transportSpec: spec, toolName: name}
}

// Lookup calls the docs tool with the topic keyword and flattens the result
// into a single document. Text content blocks are concatenated in order.
func (c *Client) Lookup(ctx context.Context, topic string) (docs.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.ensureConnected(ctx); err != nil {
		return docs.Document{}, err
	}

	params := &mcpsdk.CallToolParams{
		Name:      c.toolName,
		Arguments: map[string]any{"topic": topic},
	}
	result, err := c.session.CallTool(ctx, params)
	if err != nil {
		return docs.Document{}, fmt.Errorf("mcpdocs: call %s: %w", c.toolName, err)
	}
	if result.IsError {
		return docs.Document{}, fmt.Errorf("mcpdocs: tool %s reported an error for topic %q", c.toolName, topic)
	}

	var body strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			if body.Len() > 0 {
				body.WriteByte('\n')
			}
			body.WriteString(text.Text)
		}
	}

	return docs.Document{
		Content: body.String(),
		Source:  fmt.Sprintf("mcp:%s#%s", c.transportSpec, c.toolName),
	}, nil
}

// Close shuts down the underlying session, if any.
func (c *Client) Close() error {
	if c == nil || c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.once.Do(func() {
		if c.implClient == nil {
			c.connectErr = fmt.Errorf("mcpdocs: nil client implementation")
			return
		}
		transport, err := transportBuilder(ctx, c.transportSpec)
		if err != nil {
			c.connectErr = fmt.Errorf("build transport: %w", err)
			return
		}
		session, err := c.implClient.Connect(ctx, transport, nil)
		if err != nil {
			c.connectErr = err
			return
		}
		c.session = session
	})
	return c.connectErr
}

const (
	stdioSchemePrefix = "stdio://"
	sseSchemePrefix   = "sse://"
)

func buildTransport(ctx context.Context, spec string) (mcpsdk.Transport, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("mcpdocs: transport spec is empty")
	}

	lowered := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lowered, stdioSchemePrefix):
		return buildStdioTransport(ctx, spec[len(stdioSchemePrefix):])
	case strings.HasPrefix(lowered, sseSchemePrefix):
		return buildSSETransport(spec[len(sseSchemePrefix):])
	case strings.HasPrefix(lowered, "http://"), strings.HasPrefix(lowered, "https://"):
		return buildHTTPTransport(spec)
	}
	return buildStdioTransport(ctx, spec)
}

func buildStdioTransport(ctx context.Context, cmdSpec string) (mcpsdk.Transport, error) {
	parts := strings.Fields(strings.TrimSpace(cmdSpec))
	if len(parts) == 0 {
		return nil, fmt.Errorf("mcpdocs: stdio command is empty")
	}
	// #nosec G204 -- cmdSpec originates from host configuration, not user input
	command := exec.CommandContext(nonNilContext(ctx), parts[0], parts[1:]...)
	return &mcpsdk.CommandTransport{Command: command}, nil
}

func buildSSETransport(endpoint string) (mcpsdk.Transport, error) {
	normalized, err := normalizeHTTPURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("mcpdocs: invalid SSE endpoint: %w", err)
	}
	return &mcpsdk.SSEClientTransport{Endpoint: normalized}, nil
}

func buildHTTPTransport(endpoint string) (mcpsdk.Transport, error) {
	normalized, err := normalizeHTTPURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("mcpdocs: invalid HTTP endpoint: %w", err)
	}
	return &mcpsdk.StreamableClientTransport{Endpoint: normalized}, nil
}

func normalizeHTTPURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	parsed.Scheme = scheme
	return parsed.String(), nil
}

func nonNilContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
