package mcp

import (
	"encoding/json"
	"fmt"
)

// MustString is a type that enforces string representation for fields that can be
// either string or integer in the protocol specification, such as request IDs.
// It handles automatic conversion during JSON marshaling/unmarshaling.
type MustString string

// JSONRPCMessage represents a JSON-RPC 2.0 message used for communication in the MCP
// protocol. It can represent either a request, response, or notification depending on
// which fields are populated:
//   - Request: JSONRPC, ID, Method, and Params are set
//   - Response: JSONRPC, ID, and either Result or Error are set
//   - Notification: JSONRPC and Method are set (no ID)
type JSONRPCMessage struct {
	// JSONRPC must always be "2.0" per the JSON-RPC specification
	JSONRPC string `json:"jsonrpc"`
	// ID uniquely identifies request-response pairs and must be a string or number
	ID MustString `json:"id,omitempty"`
	// Method contains the RPC method name for requests and notifications
	Method string `json:"method,omitempty"`
	// Params contains the parameters for the method call as a raw JSON message
	Params json.RawMessage `json:"params,omitempty"`
	// Result contains the successful response data as a raw JSON message
	Result json.RawMessage `json:"result,omitempty"`
	// Error contains error details if the request failed
	Error *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents an error response in the JSON-RPC 2.0 protocol,
// following the standard error object format.
type JSONRPCError struct {
	// Code indicates the error type that occurred.
	Code int `json:"code"`

	// Message provides a short description of the error.
	Message string `json:"message"`

	// Data contains additional information about the error. The value is
	// unstructured and may be omitted.
	Data map[string]any `json:"data,omitempty"`
}

// Meta is the opaque map of presentation hints attached to tool and resource
// descriptors and to tool results. The server does not interpret its contents;
// the client-side renderer does.
type Meta map[string]any

// Info contains metadata about a server or client instance.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerCapabilities represents server capabilities.
type ServerCapabilities struct {
	Resources *ResourcesCapability `json:"resources,omitempty"`
	Tools     *ToolsCapability     `json:"tools,omitempty"`
}

// ClientCapabilities represents client capabilities.
type ClientCapabilities struct {
	Roots    json.RawMessage `json:"roots,omitempty"`
	Sampling json.RawMessage `json:"sampling,omitempty"`
}

// ResourcesCapability represents resources-specific capabilities.
type ResourcesCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ToolsCapability represents tools-specific capabilities.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// Tool defines a callable tool with its input schema. InputSchema defines the
// expected format of arguments for CallTool.
type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema json.RawMessage  `json:"inputSchema,omitempty"`
	Title       string           `json:"title,omitempty"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
	Meta        Meta             `json:"_meta,omitempty"`
}

// ToolAnnotations carries behavioral hints about a tool. They are advisory
// only; clients use them to decide how to present and gate the tool.
type ToolAnnotations struct {
	DestructiveHint bool `json:"destructiveHint"`
	OpenWorldHint   bool `json:"openWorldHint"`
	ReadOnlyHint    bool `json:"readOnlyHint"`
}

// Resource represents a readable artifact addressable by URI with associated
// display metadata.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Meta        Meta   `json:"_meta,omitempty"`
}

// ResourceTemplate defines a template for generating resource URIs, returned by
// ListResourceTemplates.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Meta        Meta   `json:"_meta,omitempty"`
}

// ResourceContents represents the body of a resource returned by ReadResource.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Meta     Meta   `json:"_meta,omitempty"`
}

// Content represents a message content block with its type.
type Content struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// ContentType represents the type of content in messages.
type ContentType string

// ListToolsParams contains parameters for listing available tools.
type ListToolsParams struct {
	// Cursor is a pagination cursor from a previous ListTools call.
	// Empty string requests the first page.
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult represents the list of tools returned by ListTools.
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolParams contains parameters for executing a specific tool.
type CallToolParams struct {
	// Name is the unique identifier of the tool to execute
	Name string `json:"name"`

	// Arguments is a JSON object of argument name-value pairs. Must satisfy
	// the tool's InputSchema.
	Arguments json.RawMessage `json:"arguments"`
}

// CallToolResult represents the outcome of a tool invocation via CallTool.
// Content carries the human-readable summary, StructuredContent the payload
// for the bound widget, and Meta the UI-binding hints of the invoked tool.
type CallToolResult struct {
	Content           []Content `json:"content"`
	StructuredContent any       `json:"structuredContent,omitempty"`
	Meta              Meta      `json:"_meta,omitempty"`
	IsError           bool      `json:"isError,omitempty"`
}

// ListResourcesParams contains parameters for listing available resources.
type ListResourcesParams struct {
	// Cursor is a pagination cursor from a previous ListResources call.
	Cursor string `json:"cursor,omitempty"`
}

// ListResourcesResult represents the list of resources returned by ListResources.
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ReadResourceParams contains parameters for retrieving a specific resource.
type ReadResourceParams struct {
	// URI is the unique identifier of the resource to retrieve.
	URI string `json:"uri"`
}

// ReadResourceResult represents the result of a read resource request.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}

// ListResourceTemplatesParams contains parameters for listing resource templates.
type ListResourceTemplatesParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListResourceTemplatesResult represents the result of a list resource templates request.
type ListResourceTemplatesResult struct {
	Templates  []ResourceTemplate `json:"resourceTemplates"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Info               `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Info               `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

type notificationsCancelledParams struct {
	RequestID MustString `json:"requestId"`
	Reason    string     `json:"reason,omitempty"`
}

// ContentType values.
const (
	ContentTypeText ContentType = "text"
)

const (
	// JSONRPCVersion specifies the JSON-RPC protocol version used for communication.
	JSONRPCVersion = "2.0"

	// MethodToolsList is the method name for retrieving a list of available tools.
	MethodToolsList = "tools/list"
	// MethodToolsCall is the method name for invoking a specific tool.
	MethodToolsCall = "tools/call"

	// MethodResourcesList is the method name for listing available resources.
	MethodResourcesList = "resources/list"
	// MethodResourcesRead is the method name for reading the content of a specific resource.
	MethodResourcesRead = "resources/read"
	// MethodResourcesTemplatesList is the method name for listing available resource templates.
	MethodResourcesTemplatesList = "resources/templates/list"

	protocolVersion = "2024-11-05"

	methodPing       = "ping"
	methodInitialize = "initialize"

	methodNotificationsInitialized = "notifications/initialized"
	methodNotificationsCancelled   = "notifications/cancelled"

	jsonRPCParseErrorCode     = -32700
	jsonRPCInvalidRequestCode = -32600
	jsonRPCMethodNotFoundCode = -32601
	jsonRPCInvalidParamsCode  = -32602
	jsonRPCInternalErrorCode  = -32603
)

// UnmarshalJSON implements json.Unmarshaler to convert JSON data into MustString,
// handling both string and numeric input formats.
func (m *MustString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch v := v.(type) {
	case string:
		*m = MustString(v)
	case float64:
		*m = MustString(fmt.Sprintf("%d", int(v)))
	case int:
		*m = MustString(fmt.Sprintf("%d", v))
	default:
		return fmt.Errorf("invalid type: %T", v)
	}

	return nil
}

// MarshalJSON implements json.Marshaler to convert MustString into its JSON
// representation, always encoding as a string value.
func (m MustString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

func (j JSONRPCError) Error() string {
	return fmt.Sprintf("request error, code: %d, message: %s, data %v", j.Code, j.Message, j.Data)
}
