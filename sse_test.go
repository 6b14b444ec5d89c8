package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/domainscope/domains-mcp"
)

func TestSSEServerAndClient(t *testing.T) {
	mux := http.NewServeMux()
	testServer := httptest.NewServer(mux)

	server := mcp.NewSSEServer(testServer.URL + "/message")
	mux.Handle("/connect", server.HandleSSE())
	mux.Handle("/message", server.HandleMessage())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			fmt.Printf("Server forced to shutdown: %v", err)
			return
		}

		testServer.Close()
	}()

	client := mcp.NewSSEClient(testServer.URL+"/connect", testServer.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientSession, err := client.StartSession(ctx)
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	defer clientSession.Stop()

	if clientSession.ID() == "" {
		t.Error("expected non-empty session ID")
	}

	// Wait for the matching server session.
	var serverSession mcp.Session
	sessions := make(chan mcp.Session, 1)
	go func() {
		for s := range server.Sessions() {
			sessions <- s
		}
	}()
	serverSession = <-sessions
	defer serverSession.Stop()

	if serverSession.ID() != clientSession.ID() {
		t.Errorf("session ID mismatch: server %q, client %q", serverSession.ID(), clientSession.ID())
	}

	// Server to client.
	var receivedByClient mcp.JSONRPCMessage
	done := make(chan struct{})

	go func() {
		for msg := range clientSession.Messages() {
			receivedByClient = msg
			close(done)
			break
		}
	}()

	serverMsg := mcp.JSONRPCMessage{
		JSONRPC: mcp.JSONRPCVersion,
		Method:  "test",
		Params:  json.RawMessage(`{"test": "hello"}`),
	}

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer sendCancel()

	if err := serverSession.Send(sendCtx, serverMsg); err != nil {
		t.Fatalf("failed to send server message: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for client to receive message")
	}

	if receivedByClient.Method != serverMsg.Method {
		t.Errorf("got method %q, want %q", receivedByClient.Method, serverMsg.Method)
	}

	// Client to server.
	clientMsg := mcp.JSONRPCMessage{
		JSONRPC: mcp.JSONRPCVersion,
		Method:  "response",
		Params:  json.RawMessage(`{"response": "world"}`),
	}

	var receivedByServer mcp.JSONRPCMessage
	serverDone := make(chan struct{})

	go func() {
		for msg := range serverSession.Messages() {
			receivedByServer = msg
			close(serverDone)
			break
		}
	}()

	if err := clientSession.Send(ctx, clientMsg); err != nil {
		t.Fatalf("failed to send client message: %v", err)
	}

	select {
	case <-serverDone:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for server to receive message")
	}

	if receivedByServer.Method != clientMsg.Method {
		t.Errorf("got method %q, want %q", receivedByServer.Method, clientMsg.Method)
	}
}

func TestSSESessionIDsAreUnique(t *testing.T) {
	mux := http.NewServeMux()
	testServer := httptest.NewServer(mux)

	server := mcp.NewSSEServer(testServer.URL + "/message")
	mux.Handle("/connect", server.HandleSSE())
	mux.Handle("/message", server.HandleMessage())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			fmt.Printf("Server forced to shutdown: %v", err)
			return
		}

		testServer.Close()
	}()

	go func() {
		// Read all the messages from all the server sessions, and stop them
		// once the server shuts down.
		ss := make([]mcp.Session, 0)
		for sess := range server.Sessions() {
			ss = append(ss, sess)
			go func(sess mcp.Session) {
				for range sess.Messages() {
				}
			}(sess)
		}

		for _, sess := range ss {
			sess.Stop()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		client := mcp.NewSSEClient(testServer.URL+"/connect", testServer.Client())
		sess, err := client.StartSession(ctx)
		if err != nil {
			t.Fatalf("failed to start session %d: %v", i, err)
		}
		defer sess.Stop()

		if sess.ID() == "" {
			t.Fatalf("session %d has empty ID", i)
		}
		if seen[sess.ID()] {
			t.Fatalf("duplicate session ID %q", sess.ID())
		}
		seen[sess.ID()] = true
	}
}

func TestSSEHandleMessageNegativeCases(t *testing.T) {
	mux := http.NewServeMux()
	testServer := httptest.NewServer(mux)

	server := mcp.NewSSEServer(testServer.URL + "/message")
	mux.Handle("/connect", server.HandleSSE())
	mux.Handle("/message", server.HandleMessage())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			fmt.Printf("Server forced to shutdown: %v", err)
			return
		}

		testServer.Close()
	}()

	serverSessions := make(chan mcp.Session, 10)
	go func() {
		for sess := range server.Sessions() {
			go func(sess mcp.Session) {
				for range sess.Messages() {
				}
			}(sess)
			serverSessions <- sess
		}
	}()

	validMsg := []byte(`{"jsonrpc": "2.0", "method": "ping", "id": "1"}`)

	t.Run("Missing Session ID", func(t *testing.T) {
		resp, err := testServer.Client().Post(
			testServer.URL+"/message", "application/json", bytes.NewReader(validMsg))
		if err != nil {
			t.Fatalf("failed to send request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("Unknown Session ID", func(t *testing.T) {
		resp, err := testServer.Client().Post(
			testServer.URL+"/message?sessionId=no-such-session", "application/json", bytes.NewReader(validMsg))
		if err != nil {
			t.Fatalf("failed to send request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})

	t.Run("Malformed Body", func(t *testing.T) {
		resp, err := testServer.Client().Post(
			testServer.URL+"/message?sessionId=whatever", "application/json",
			bytes.NewReader([]byte(`{invalid json}`)))
		if err != nil {
			t.Fatalf("failed to send request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("Closed Session", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client := mcp.NewSSEClient(testServer.URL+"/connect", testServer.Client())
		sess, err := client.StartSession(ctx)
		if err != nil {
			t.Fatalf("failed to start session: %v", err)
		}
		defer sess.Stop()
		sessID := sess.ID()

		var srvSess mcp.Session
		select {
		case srvSess = <-serverSessions:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for server session")
		}
		srvSess.Stop()

		// Give the owner loop a moment to retire the session.
		deadline := time.Now().Add(2 * time.Second)
		for {
			resp, err := testServer.Client().Post(
				testServer.URL+"/message?sessionId="+sessID, "application/json", bytes.NewReader(validMsg))
			if err != nil {
				t.Fatalf("failed to send request: %v", err)
			}
			status := resp.StatusCode
			resp.Body.Close()

			if status == http.StatusNotFound {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("got status %d, want %d", status, http.StatusNotFound)
			}
			time.Sleep(50 * time.Millisecond)
		}
	})
}

func TestSSECORSHeaders(t *testing.T) {
	mux := http.NewServeMux()
	testServer := httptest.NewServer(mux)

	server := mcp.NewSSEServer(testServer.URL + "/message")
	mux.Handle("/connect", server.HandleSSE())
	mux.Handle("/message", server.HandleMessage())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			fmt.Printf("Server forced to shutdown: %v", err)
			return
		}

		testServer.Close()
	}()

	go func() {
		for sess := range server.Sessions() {
			go func(sess mcp.Session) {
				for range sess.Messages() {
				}
			}(sess)
		}
	}()

	resp, err := testServer.Client().Post(
		testServer.URL+"/message", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("got Access-Control-Allow-Origin %q, want %q", got, "*")
	}
}
