// Package mcp implements the server side of the Model Context Protocol (MCP)
// used by the domains search service. It provides the session and
// request-handling layer: the streaming (SSE) and stdio transports, the
// per-session protocol state machine, and dispatch of tool and resource
// requests to pluggable server implementations.
package mcp
