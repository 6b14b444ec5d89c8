package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/domainscope/domains-mcp"
)

type mockToolServer struct {
	listParams mcp.ListToolsParams
	callParams mcp.CallToolParams
}

type mockResourceServer struct {
	listParams          mcp.ListResourcesParams
	readParams          mcp.ReadResourceParams
	listTemplatesParams mcp.ListResourceTemplatesParams
}

func (m *mockToolServer) ListTools(
	_ context.Context,
	params mcp.ListToolsParams,
) (mcp.ListToolsResult, error) {
	m.listParams = params
	return mcp.ListToolsResult{
		Tools: []mcp.Tool{{Name: "test-tool"}},
	}, nil
}

func (m *mockToolServer) CallTool(
	_ context.Context,
	params mcp.CallToolParams,
) (mcp.CallToolResult, error) {
	m.callParams = params
	switch params.Name {
	case "test-tool":
		return mcp.CallToolResult{
			Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: "ok"}},
		}, nil
	case "strict-tool":
		return mcp.CallToolResult{}, fmt.Errorf("%w: bad arguments", mcp.ErrInvalidArguments)
	default:
		return mcp.CallToolResult{}, fmt.Errorf("%w: %s", mcp.ErrToolNotFound, params.Name)
	}
}

func (m *mockResourceServer) ListResources(
	_ context.Context,
	params mcp.ListResourcesParams,
) (mcp.ListResourcesResult, error) {
	m.listParams = params
	return mcp.ListResourcesResult{
		Resources: []mcp.Resource{{URI: "test://resource", Name: "Test Resource"}},
	}, nil
}

func (m *mockResourceServer) ReadResource(
	_ context.Context,
	params mcp.ReadResourceParams,
) (mcp.ReadResourceResult, error) {
	m.readParams = params
	if params.URI != "test://resource" {
		return mcp.ReadResourceResult{}, fmt.Errorf("%w: %s", mcp.ErrResourceNotFound, params.URI)
	}
	return mcp.ReadResourceResult{
		Contents: []mcp.ResourceContents{{URI: params.URI, Text: "resource body"}},
	}, nil
}

func (m *mockResourceServer) ListResourceTemplates(
	_ context.Context,
	params mcp.ListResourceTemplatesParams,
) (mcp.ListResourceTemplatesResult, error) {
	m.listTemplatesParams = params
	return mcp.ListResourceTemplatesResult{
		Templates: []mcp.ResourceTemplate{{URITemplate: "test://resource", Name: "Test Resource"}},
	}, nil
}

// testSession drives a server over stdio pipes with raw JSON-RPC messages.
type testSession struct {
	clientSession mcp.Session
	incoming      chan mcp.JSONRPCMessage
}

func setupTestServer(t *testing.T, toolSrv mcp.ToolServer, resSrv mcp.ResourceServer) *testSession {
	t.Helper()

	clientReader, serverWriter := io.Pipe()
	serverReader, clientWriter := io.Pipe()

	serverTransport := mcp.NewStdIO(serverReader, serverWriter)
	clientTransport := mcp.NewStdIO(clientReader, clientWriter)

	var opts []mcp.ServerOption
	if toolSrv != nil {
		opts = append(opts, mcp.WithToolServer(toolSrv))
	}
	if resSrv != nil {
		opts = append(opts, mcp.WithResourceServer(resSrv))
	}

	srv := mcp.NewServer(mcp.Info{Name: "test-server", Version: "1.0"}, serverTransport, opts...)
	go srv.Serve()

	sessions := make(chan mcp.Session, 1)
	go func() {
		for s := range clientTransport.Sessions() {
			sessions <- s
		}
	}()
	cliSess := <-sessions

	incoming := make(chan mcp.JSONRPCMessage, 10)
	go func() {
		for msg := range cliSess.Messages() {
			incoming <- msg
		}
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			t.Logf("failed to shutdown server: %v", err)
		}
		cliSess.Stop()
	})

	return &testSession{
		clientSession: cliSess,
		incoming:      incoming,
	}
}

// request sends msg and waits for the response carrying the same id, skipping
// unrelated traffic such as server keepalive pings.
func (ts *testSession) request(t *testing.T, msg mcp.JSONRPCMessage) mcp.JSONRPCMessage {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ts.clientSession.Send(ctx, msg); err != nil {
		t.Fatalf("failed to send %s request: %v", msg.Method, err)
	}

	for {
		select {
		case res := <-ts.incoming:
			if res.Method != "" || res.ID != msg.ID {
				continue
			}
			return res
		case <-time.After(3 * time.Second):
			t.Fatalf("timeout waiting for response to %s", msg.Method)
			return mcp.JSONRPCMessage{}
		}
	}
}

// notify sends a notification; no response is expected.
func (ts *testSession) notify(t *testing.T, method string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ts.clientSession.Send(ctx, mcp.JSONRPCMessage{
		JSONRPC: mcp.JSONRPCVersion,
		Method:  method,
	}); err != nil {
		t.Fatalf("failed to send %s notification: %v", method, err)
	}
}

// initialize performs the handshake so the session accepts requests.
func (ts *testSession) initialize(t *testing.T) {
	t.Helper()

	res := ts.request(t, mcp.JSONRPCMessage{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      mcp.MustString("init"),
		Method:  "initialize",
		Params: json.RawMessage(`{
			"protocolVersion": "2024-11-05",
			"capabilities": {},
			"clientInfo": {"name": "test-client", "version": "1.0"}
		}`),
	})
	if res.Error != nil {
		t.Fatalf("initialization failed: %v", res.Error)
	}

	ts.notify(t, "notifications/initialized")
}
