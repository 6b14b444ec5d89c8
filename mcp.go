package mcp

import (
	"context"
	"errors"
	"iter"
)

// Lookup failures surfaced by ToolServer and ResourceServer implementations.
// The protocol layer maps these to "not found" responses, distinct from
// malformed-input errors.
var (
	// ErrToolNotFound is returned by CallTool when no tool matches the
	// requested name.
	ErrToolNotFound = errors.New("tool not found")

	// ErrResourceNotFound is returned by ReadResource when no resource
	// matches the requested URI.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrInvalidArguments is returned by CallTool when the tool exists but
	// the supplied arguments do not satisfy its input schema.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// ServerTransport provides the server-side communication layer in the MCP protocol.
type ServerTransport interface {
	// Sessions returns an iterator that yields new client sessions as they are
	// initiated. Each yielded Session represents a unique client connection and
	// provides methods for bidirectional communication. The implementation must
	// guarantee that each session ID is unique across all active connections.
	//
	// The implementation should exit the iteration when the Shutdown method is called.
	Sessions() iter.Seq[Session]

	// Shutdown gracefully shuts down the ServerTransport to clean up resources.
	// The implementation should not close the Sessions it produced, the caller
	// already does that. The caller is guaranteed to call this method only once.
	Shutdown(ctx context.Context) error
}

// Session represents a bidirectional communication channel between server and client.
type Session interface {
	// ID returns the unique identifier for this session. The implementation must
	// guarantee that session IDs are unique across all active sessions managed.
	ID() string

	// Send transmits a message to the client.
	Send(ctx context.Context, msg JSONRPCMessage) error

	// Messages returns an iterator that yields messages received from the other
	// party. The implementation should exit the iteration when the session is closed.
	Messages() iter.Seq[JSONRPCMessage]

	// Stop stops the session. The caller is guaranteed to call this method once.
	Stop()
}

// ToolServer defines the interface for serving tools in the MCP protocol.
type ToolServer interface {
	// ListTools returns the list of available tools.
	// Returns error if the operation fails or the context is cancelled.
	ListTools(context.Context, ListToolsParams) (ListToolsResult, error)

	// CallTool executes a specific tool with the given arguments. Returns
	// ErrToolNotFound when the tool doesn't exist and ErrInvalidArguments when
	// the arguments don't satisfy the tool's input schema, so the protocol
	// layer can tell the two apart.
	CallTool(context.Context, CallToolParams) (CallToolResult, error)
}

// ResourceServer defines the interface for serving resources in the MCP protocol.
type ResourceServer interface {
	// ListResources returns the list of available resources.
	ListResources(context.Context, ListResourcesParams) (ListResourcesResult, error)

	// ReadResource retrieves a specific resource by its URI. Returns
	// ErrResourceNotFound when no resource matches.
	ReadResource(context.Context, ReadResourceParams) (ReadResourceResult, error)

	// ListResourceTemplates returns all available resource templates.
	ListResourceTemplates(context.Context, ListResourceTemplatesParams) (ListResourceTemplatesResult, error)
}
