package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServerOption represents the options for the server.
type ServerOption func(*Server)

// Server implements the MCP protocol server. It consumes sessions from a
// ServerTransport, runs the per-session protocol state machine, and dispatches
// tool and resource requests to the configured implementations.
type Server struct {
	info         Info
	instructions string
	capabilities ServerCapabilities
	transport    ServerTransport

	toolServer     ToolServer
	resourceServer ResourceServer

	pingInterval         time.Duration
	pingTimeout          time.Duration
	pingTimeoutThreshold int
	sendTimeout          time.Duration

	logger *slog.Logger

	sessionsWaitGroup *sync.WaitGroup
	done              chan struct{}
}

// sessionState tracks the lifecycle of a protocol session. Transitions are
// one-directional: connecting -> active -> closed. A session becomes active
// once the client sends notifications/initialized, and closed when its
// transport session ends; there is no reconnect with the same id.
type sessionState int

const (
	stateConnecting sessionState = iota
	stateActive
	stateClosed
)

type serverSession struct {
	session Session
	logger  *slog.Logger

	state sessionState

	serverCap    ServerCapabilities
	serverInfo   Info
	instructions string

	pingInterval         time.Duration
	pingTimeout          time.Duration
	pingTimeoutThreshold int
	sendTimeout          time.Duration

	toolServer     ToolServer
	resourceServer ResourceServer
}

var (
	defaultServerPingInterval         = 30 * time.Second
	defaultServerPingTimeout          = 30 * time.Second
	defaultServerPingTimeoutThreshold = 3
	defaultServerSendTimeout          = 30 * time.Second

	errInvalidJSON = errors.New("invalid json")
)

// NewServer creates a new MCP server with the specified configuration. The
// advertised capabilities are derived from the implementations provided via
// options.
func NewServer(info Info, transport ServerTransport, options ...ServerOption) Server {
	s := Server{
		info:              info,
		transport:         transport,
		logger:            slog.Default(),
		sessionsWaitGroup: &sync.WaitGroup{},
		done:              make(chan struct{}),
	}
	for _, opt := range options {
		opt(&s)
	}
	if s.pingInterval == 0 {
		s.pingInterval = defaultServerPingInterval
	}
	if s.pingTimeout == 0 {
		s.pingTimeout = defaultServerPingTimeout
	}
	if s.pingTimeoutThreshold == 0 {
		s.pingTimeoutThreshold = defaultServerPingTimeoutThreshold
	}
	if s.sendTimeout == 0 {
		s.sendTimeout = defaultServerSendTimeout
	}

	s.capabilities = ServerCapabilities{}
	if s.resourceServer != nil {
		s.capabilities.Resources = &ResourcesCapability{}
	}
	if s.toolServer != nil {
		s.capabilities.Tools = &ToolsCapability{}
	}

	return s
}

// WithToolServer returns a ServerOption that configures the tool server implementation.
func WithToolServer(srv ToolServer) ServerOption {
	return func(s *Server) {
		s.toolServer = srv
	}
}

// WithResourceServer returns a ServerOption that configures the resource server implementation.
func WithResourceServer(srv ResourceServer) ServerOption {
	return func(s *Server) {
		s.resourceServer = srv
	}
}

// WithInstructions returns a ServerOption that configures the server instructions.
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) {
		s.instructions = instructions
	}
}

// WithServerPingInterval returns a ServerOption that configures the server's ping interval.
func WithServerPingInterval(interval time.Duration) ServerOption {
	return func(s *Server) {
		s.pingInterval = interval
	}
}

// WithServerPingTimeout returns a ServerOption that configures the server's ping timeout.
func WithServerPingTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.pingTimeout = timeout
	}
}

// WithServerPingTimeoutThreshold sets the ping timeout threshold for the server.
// If the number of consecutive ping timeouts exceeds the threshold, the server
// will close the session.
func WithServerPingTimeoutThreshold(threshold int) ServerOption {
	return func(s *Server) {
		s.pingTimeoutThreshold = threshold
	}
}

// WithServerSendTimeout returns a ServerOption that configures the server's send timeout.
func WithServerSendTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.sendTimeout = timeout
	}
}

// WithServerLogger sets the logger for the server.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger.With(
			slog.String("component", "mcp-server"),
		)
	}
}

// Serve starts the MCP server and manages its lifecycle. Each session produced
// by the transport gets its own protocol state machine; sessions run
// independently and their messages never interleave within a session.
//
// Serve blocks until the server is shut down.
func (s Server) Serve() {
	// This loop breaks when the transport is closed.
	for sess := range s.transport.Sessions() {
		ss := &serverSession{
			session:              sess,
			logger:               s.logger.With(slog.String("sessionID", sess.ID())),
			state:                stateConnecting,
			serverCap:            s.capabilities,
			serverInfo:           s.info,
			instructions:         s.instructions,
			pingInterval:         s.pingInterval,
			pingTimeout:          s.pingTimeout,
			pingTimeoutThreshold: s.pingTimeoutThreshold,
			sendTimeout:          s.sendTimeout,
			toolServer:           s.toolServer,
			resourceServer:       s.resourceServer,
		}

		s.sessionsWaitGroup.Add(1)

		// The session closes itself when the transport reports a close or when
		// consecutive pings fail beyond the threshold.
		go func() {
			defer s.sessionsWaitGroup.Done()
			ss.run(s.done)
		}()
	}
}

// Shutdown gracefully shuts down the server by terminating all active sessions
// and cleaning up resources. It returns an error if the context is cancelled
// before the shutdown completes.
func (s Server) Shutdown(ctx context.Context) error {
	// Signal all sessions to stop.
	close(s.done)

	// Wait for all sessions to finish.
	s.sessionsWaitGroup.Wait()

	// Close the transport so the Sessions loop in Serve breaks.
	if err := s.transport.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown transport: %w", err)
	}

	return nil
}

func (s sessionState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateActive:
		return "active"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s *serverSession) setState(state sessionState) {
	s.state = state
	s.logger.Debug("session state changed", slog.String("state", state.String()))
}

func (s *serverSession) run(done <-chan struct{}) {
	// This channel feeds the ping goroutine the message IDs of client responses,
	// so it can match pong replies against outstanding pings.
	pingMessageIDs := make(chan MustString, 10)
	go s.ping(pingMessageIDs, done)

	// Cancellations for in-flight requests, keyed by request ID, so the client
	// can abort them with notifications/cancelled.
	ctxCancels := make(map[MustString]context.CancelFunc)

	// Base context so all in-flight handlers are cancelled when the loop breaks.
	baseCtx, baseCancel := context.WithCancel(context.Background())

	// This loop breaks when the session is closed.
	for msg := range s.session.Messages() {
		// Validate JSON-RPC version before processing any message.
		if msg.JSONRPC != JSONRPCVersion {
			s.logger.Info("failed to handle message",
				slog.Any("message", msg),
				slog.String("err", errInvalidJSON.Error()),
			)
			continue
		}
		switch msg.Method {
		case methodPing:
			go func(msgID MustString) {
				pongCtx, pongCancel := context.WithTimeout(context.Background(), s.pingTimeout)
				defer pongCancel()
				if err := s.session.Send(pongCtx, JSONRPCMessage{
					JSONRPC: JSONRPCVersion,
					ID:      msgID,
				}); err != nil {
					s.logger.Error("failed to send pong", slog.String("err", err.Error()))
				}
			}(msg.ID)
		case methodInitialize:
			go s.handleInitializeRequest(msg)
		case methodNotificationsInitialized:
			// Handshake complete, the session may now receive requests.
			s.setState(stateActive)
		case methodNotificationsCancelled:
			if s.state != stateActive {
				continue
			}
			var params notificationsCancelledParams
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				s.logger.Info("malformed cancellation", slog.String("err", err.Error()))
				continue
			}
			if cancel, ok := ctxCancels[params.RequestID]; ok {
				cancel()
				delete(ctxCancels, params.RequestID)
			}
		case MethodToolsList, MethodToolsCall, MethodResourcesList, MethodResourcesRead,
			MethodResourcesTemplatesList:
			if s.state != stateActive {
				continue
			}
			reqCtx, reqCancel := context.WithCancel(baseCtx)
			ctxCancels[msg.ID] = reqCancel
			go s.handleRequest(reqCtx, msg)
		case "":
			// A response from the client; the only requests we issue are pings.
			select {
			case <-done:
			case pingMessageIDs <- msg.ID:
			}
		}
	}

	s.setState(stateClosed)

	// Cancel all the contexts we created and release the ping goroutine.
	baseCancel()
	close(pingMessageIDs)
}

func (s *serverSession) handleInitializeRequest(msg JSONRPCMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	res, err := s.initializationHandshake(msg)
	if err != nil {
		s.logger.Info("invalid initialization request", slog.String("err", err.Error()))
		// Initialization failed, notify the client so it closes the session.
		jsonErr := JSONRPCError{}
		if !errors.As(err, &jsonErr) {
			jsonErr = JSONRPCError{
				Code:    jsonRPCInternalErrorCode,
				Message: err.Error(),
			}
		}
		if err := s.session.Send(ctx, JSONRPCMessage{
			JSONRPC: JSONRPCVersion,
			ID:      msg.ID,
			Error:   &jsonErr,
		}); err != nil {
			s.logger.Error("failed to send initialization error", slog.String("err", err.Error()))
		}
		return
	}
	resBs, _ := json.Marshal(res)
	if err := s.session.Send(ctx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      msg.ID,
		Result:  resBs,
	}); err != nil {
		s.logger.Error("failed to send initialization result", slog.String("err", err.Error()))
	}
}

func (s *serverSession) initializationHandshake(msg JSONRPCMessage) (initializeResult, error) {
	var params initializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return initializeResult{}, JSONRPCError{
			Code:    jsonRPCInvalidParamsCode,
			Message: fmt.Sprintf("failed to unmarshal params: %s", err.Error()),
		}
	}

	if params.ProtocolVersion != protocolVersion {
		return initializeResult{}, JSONRPCError{
			Code:    jsonRPCInvalidParamsCode,
			Message: fmt.Sprintf("protocol version mismatch: %s != %s", params.ProtocolVersion, protocolVersion),
		}
	}

	return initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    s.serverCap,
		ServerInfo:      s.serverInfo,
		Instructions:    s.instructions,
	}, nil
}

func (s *serverSession) ping(messageIDs <-chan MustString, done <-chan struct{}) {
	defer s.session.Stop()

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	failedPings := 0
	var msgID MustString

	for {
		if failedPings > s.pingTimeoutThreshold {
			s.logger.Warn("too many pings failed, closing session")
			return
		}

		select {
		case <-done:
			return
		case id, ok := <-messageIDs:
			if !ok {
				return
			}
			// Received an id from a client response, check whether it matches
			// the ping we sent.
			if id != msgID {
				continue
			}
			failedPings = 0
			continue
		case <-pingTicker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.pingTimeout)

		msgID = MustString(uuid.New().String())

		if err := s.session.Send(ctx, JSONRPCMessage{
			JSONRPC: JSONRPCVersion,
			ID:      msgID,
			Method:  methodPing,
		}); err != nil {
			s.logger.Warn("failed to send ping to client",
				slog.String("err", err.Error()))
			failedPings++
		}
		cancel()
	}
}

func (s *serverSession) handleRequest(ctx context.Context, msg JSONRPCMessage) {
	var result any
	var err error

	switch msg.Method {
	case MethodToolsList:
		result, err = s.callListTools(ctx, msg)
	case MethodToolsCall:
		result, err = s.callCallTool(ctx, msg)
	case MethodResourcesList:
		result, err = s.callListResources(ctx, msg)
	case MethodResourcesRead:
		result, err = s.callReadResource(ctx, msg)
	case MethodResourcesTemplatesList:
		result, err = s.callListResourceTemplates(ctx, msg)
	default:
		return
	}

	resMsg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      msg.ID,
	}

	if err != nil {
		jsonErr := JSONRPCError{}
		if !errors.As(err, &jsonErr) {
			jsonErr = JSONRPCError{
				Code:    jsonRPCInternalErrorCode,
				Message: err.Error(),
			}
		}
		s.logger.Info("request failed",
			slog.String("method", msg.Method),
			slog.String("err", err.Error()))
		resMsg.Error = &jsonErr
	} else {
		resMsg.Result, _ = json.Marshal(result)
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	if err := s.session.Send(sendCtx, resMsg); err != nil {
		s.logger.Error("failed to send result", slog.String("err", err.Error()))
	}
}

func (s *serverSession) callListTools(ctx context.Context, msg JSONRPCMessage) (ListToolsResult, error) {
	if s.toolServer == nil {
		return ListToolsResult{}, JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: "tools not supported by server",
		}
	}

	var params ListToolsParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return ListToolsResult{}, JSONRPCError{
				Code:    jsonRPCInvalidParamsCode,
				Message: fmt.Errorf("failed to unmarshal params: %w", err).Error(),
			}
		}
	}

	ts, err := s.toolServer.ListTools(ctx, params)
	if err != nil {
		return ListToolsResult{}, JSONRPCError{
			Code:    jsonRPCInternalErrorCode,
			Message: fmt.Errorf("failed to list tools: %w", err).Error(),
		}
	}

	return ts, nil
}

func (s *serverSession) callCallTool(ctx context.Context, msg JSONRPCMessage) (CallToolResult, error) {
	if s.toolServer == nil {
		return CallToolResult{}, JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: "tools not supported by server",
		}
	}

	var params CallToolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return CallToolResult{}, JSONRPCError{
			Code:    jsonRPCInvalidParamsCode,
			Message: fmt.Errorf("failed to unmarshal params: %w", err).Error(),
		}
	}

	result, err := s.toolServer.CallTool(ctx, params)
	if err != nil {
		// Tell "this tool doesn't exist" apart from "bad input to a real tool".
		switch {
		case errors.Is(err, ErrToolNotFound):
			return CallToolResult{}, JSONRPCError{
				Code:    jsonRPCMethodNotFoundCode,
				Message: err.Error(),
			}
		case errors.Is(err, ErrInvalidArguments):
			return CallToolResult{}, JSONRPCError{
				Code:    jsonRPCInvalidParamsCode,
				Message: err.Error(),
			}
		default:
			return CallToolResult{}, JSONRPCError{
				Code:    jsonRPCInternalErrorCode,
				Message: fmt.Errorf("failed to call tool: %w", err).Error(),
			}
		}
	}

	return result, nil
}

func (s *serverSession) callListResources(ctx context.Context, msg JSONRPCMessage) (ListResourcesResult, error) {
	if s.resourceServer == nil {
		return ListResourcesResult{}, JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: "resources not supported by server",
		}
	}

	var params ListResourcesParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return ListResourcesResult{}, JSONRPCError{
				Code:    jsonRPCInvalidParamsCode,
				Message: fmt.Errorf("failed to unmarshal params: %w", err).Error(),
			}
		}
	}

	rs, err := s.resourceServer.ListResources(ctx, params)
	if err != nil {
		return ListResourcesResult{}, JSONRPCError{
			Code:    jsonRPCInternalErrorCode,
			Message: fmt.Errorf("failed to list resources: %w", err).Error(),
		}
	}

	return rs, nil
}

func (s *serverSession) callReadResource(ctx context.Context, msg JSONRPCMessage) (ReadResourceResult, error) {
	if s.resourceServer == nil {
		return ReadResourceResult{}, JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: "resources not supported by server",
		}
	}

	var params ReadResourceParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return ReadResourceResult{}, JSONRPCError{
			Code:    jsonRPCInvalidParamsCode,
			Message: fmt.Errorf("failed to unmarshal params: %w", err).Error(),
		}
	}

	r, err := s.resourceServer.ReadResource(ctx, params)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return ReadResourceResult{}, JSONRPCError{
				Code:    jsonRPCMethodNotFoundCode,
				Message: err.Error(),
			}
		}
		return ReadResourceResult{}, JSONRPCError{
			Code:    jsonRPCInternalErrorCode,
			Message: fmt.Errorf("failed to read resource: %w", err).Error(),
		}
	}

	return r, nil
}

func (s *serverSession) callListResourceTemplates(
	ctx context.Context,
	msg JSONRPCMessage,
) (ListResourceTemplatesResult, error) {
	if s.resourceServer == nil {
		return ListResourceTemplatesResult{}, JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: "resources not supported by server",
		}
	}

	var params ListResourceTemplatesParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return ListResourceTemplatesResult{}, JSONRPCError{
				Code:    jsonRPCInvalidParamsCode,
				Message: fmt.Errorf("failed to unmarshal params: %w", err).Error(),
			}
		}
	}

	ts, err := s.resourceServer.ListResourceTemplates(ctx, params)
	if err != nil {
		return ListResourceTemplatesResult{}, JSONRPCError{
			Code:    jsonRPCInternalErrorCode,
			Message: fmt.Errorf("failed to list resource templates: %w", err).Error(),
		}
	}

	return ts, nil
}
