package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
)

// ErrSessionNotFound is reported when a message references a session id that is
// not (or no longer) registered. The HTTP layer translates it to a 404.
var ErrSessionNotFound = errors.New("session not found")

// SSEServer implements the streaming transport: a long-lived Server-Sent Events
// connection per client for server-to-client pushes, and an HTTP POST endpoint
// for client-to-server messages addressed by session id.
//
// The session lookup table is owned exclusively by the goroutine running the
// Sessions iterator; handlers communicate with it over channels, so the table
// is never touched concurrently and never held across a blocking send.
//
// Instances should be created using NewSSEServer and shut down using Shutdown
// when no longer needed.
type SSEServer struct {
	messageURL string
	logger     *slog.Logger

	sessions        chan sseServerSession
	removedSessions chan string
	inbound         chan sseInboundMessage

	done   chan struct{}
	closed chan struct{}
}

// SSEClient implements the client side of the streaming transport. It connects
// to an SSEServer, reads the endpoint event to learn its message URL, and sends
// messages over HTTP POST. Instances should be created using NewSSEClient.
type SSEClient struct {
	httpClient *http.Client
	connectURL string
	logger     *slog.Logger
}

type sseServerSession struct {
	id           string
	sess         *sse.Session
	sendMsgs     chan sseServerSessionSendMsg
	receivedMsgs chan JSONRPCMessage
	logger       *slog.Logger

	done           chan struct{}
	sendClosed     chan struct{}
	receivedClosed chan struct{}
}

// sseInboundMessage carries one point-to-point message into the owner loop.
// The loop reports the routing outcome on routed: nil when the message reached
// the session, ErrSessionNotFound when the id is unknown.
type sseInboundMessage struct {
	sessID string
	msg    JSONRPCMessage
	routed chan<- error
}

type sseServerSessionSendMsg struct {
	msg  *sse.Message
	errs chan<- error
}

type sseClientSession struct {
	id         string
	httpClient *http.Client
	messageURL string
	logger     *slog.Logger

	messages chan JSONRPCMessage
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSSEServer creates an SSE server whose clients post messages to messageURL.
// The returned server is operational immediately; its Sessions iterator must be
// consumed for connections to make progress.
func NewSSEServer(messageURL string) SSEServer {
	return SSEServer{
		messageURL:      messageURL,
		logger:          slog.Default(),
		sessions:        make(chan sseServerSession, 5),
		removedSessions: make(chan string),
		inbound:         make(chan sseInboundMessage),
		done:            make(chan struct{}),
		closed:          make(chan struct{}),
	}
}

// NewSSEClient creates an SSE client that connects to the specified connectURL.
// The optional httpClient parameter allows custom HTTP client configuration;
// if nil, the default HTTP client is used.
func NewSSEClient(connectURL string, httpClient *http.Client) *SSEClient {
	cli := httpClient
	if cli == nil {
		cli = http.DefaultClient
	}
	return &SSEClient{
		connectURL: connectURL,
		httpClient: cli,
		logger:     slog.Default(),
	}
}

// Sessions returns an iterator over client sessions, yielding a new Session for
// each accepted streaming connection. The iterator goroutine is the sole owner
// of the session lookup table.
func (s SSEServer) Sessions() iter.Seq[Session] {
	return func(yield func(Session) bool) {
		defer close(s.closed)

		// All active sessions, keyed by session id. Only this goroutine
		// touches the map.
		sessionsMap := make(map[string]sseServerSession)

		for {
			select {
			case <-s.done:
				return
			case sess := <-s.sessions:
				// A new streaming connection was accepted by the handler.
				go sess.processSendMessages()

				sessionsMap[sess.id] = sess

				if !yield(sess) {
					return
				}
			case sessID := <-s.removedSessions:
				// The transport reported a close; the id is gone for good.
				delete(sessionsMap, sessID)
			case in := <-s.inbound:
				session, ok := sessionsMap[in.sessID]
				if !ok {
					in.routed <- ErrSessionNotFound
					continue
				}

				select {
				case <-s.done:
					return
				case session.receivedMsgs <- in.msg:
					in.routed <- nil
				}
			}
		}
	}
}

// Shutdown gracefully shuts down the SSE server by terminating all active
// client connections and cleaning up internal resources. This method blocks
// until shutdown is complete.
func (s SSEServer) Shutdown(ctx context.Context) error {
	close(s.done)

	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to close SSE server: %w", ctx.Err())
	case <-s.closed:
	}
	return nil
}

// HandleSSE returns an http.Handler for the streaming endpoint. The handler
// upgrades GET requests to SSE, assigns a unique session id, and tells the
// client its message endpoint through the initial "endpoint" event. The
// connection remains open for the lifetime of the session.
func (s SSEServer) HandleSSE() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		sess, err := sse.Upgrade(w, r)
		if err != nil {
			nErr := fmt.Errorf("failed to upgrade session: %w", err)
			s.logger.Error("failed to upgrade session", "err", nErr)
			http.Error(w, nErr.Error(), http.StatusInternalServerError)
			return
		}

		sessID := uuid.New().String()

		// Point-to-point messages for this session carry the id explicitly.
		endpointURL := fmt.Sprintf("%s?sessionId=%s", s.messageURL, sessID)

		msg := sse.Message{
			Type: sse.Type("endpoint"),
		}
		msg.AppendData(endpointURL)
		if err := sess.Send(&msg); err != nil {
			nErr := fmt.Errorf("failed to write SSE URL: %w", err)
			s.logger.Error("failed to write SSE URL", "err", nErr)
			http.Error(w, nErr.Error(), http.StatusInternalServerError)
			return
		}

		if err := sess.Flush(); err != nil {
			nErr := fmt.Errorf("failed to flush SSE: %w", err)
			s.logger.Error("failed to flush SSE", "err", nErr)
			http.Error(w, nErr.Error(), http.StatusInternalServerError)
			return
		}

		srvSession := sseServerSession{
			id:             sessID,
			sess:           sess,
			logger:         s.logger,
			sendMsgs:       make(chan sseServerSessionSendMsg, 5),
			receivedMsgs:   make(chan JSONRPCMessage, 5),
			done:           make(chan struct{}),
			sendClosed:     make(chan struct{}),
			receivedClosed: make(chan struct{}),
		}

		// Register with the owner loop so messages can be routed here.
		select {
		case <-s.done:
			return
		case s.sessions <- srvSession:
		}

		// Block until the session is closed, keeping the connection open.
		<-srvSession.sendClosed
		<-srvSession.receivedClosed

		select {
		case s.removedSessions <- sessID:
		case <-s.done:
		}
	})
}

// HandleMessage returns an http.Handler for the point-to-point endpoint. The
// handler expects a sessionId query parameter and a JSON-encoded message body.
// It responds 400 when the id is missing or the body is malformed, 404 when no
// session with that id exists, and 202 once the message is routed.
func (s SSEServer) HandleMessage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "content-type")

		sessID := r.URL.Query().Get("sessionId")
		if sessID == "" {
			nErr := fmt.Errorf("missing sessionId query parameter")
			s.logger.Warn("missing sessionId query parameter", slog.String("err", nErr.Error()))
			http.Error(w, nErr.Error(), http.StatusBadRequest)
			return
		}

		decoder := json.NewDecoder(r.Body)
		var msg JSONRPCMessage

		if err := decoder.Decode(&msg); err != nil {
			nErr := fmt.Errorf("failed to decode message: %w", err)
			s.logger.Warn("failed to decode message", slog.String("err", nErr.Error()))
			http.Error(w, nErr.Error(), http.StatusBadRequest)
			return
		}

		routed := make(chan error, 1)

		select {
		case <-s.done:
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		case s.inbound <- sseInboundMessage{sessID: sessID, msg: msg, routed: routed}:
		}

		select {
		case <-s.done:
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		case err := <-routed:
			if errors.Is(err, ErrSessionNotFound) {
				http.Error(w, "unknown session", http.StatusNotFound)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusAccepted)
		}
	})
}

// StartSession establishes the streaming connection and returns the client-side
// Session once the server has announced the message endpoint. The connection
// remains active until Stop is called or the server closes it.
func (s *SSEClient) StartSession(ctx context.Context) (Session, error) {
	connCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(connCtx, http.MethodGet, s.connectURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to SSE server: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	sess := &sseClientSession{
		httpClient: s.httpClient,
		logger:     s.logger,
		messages:   make(chan JSONRPCMessage),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	ready := make(chan error, 1)
	go sess.listenSSEMessages(resp.Body, ready)

	select {
	case <-ctx.Done():
		sess.Stop()
		return nil, ctx.Err()
	case err := <-ready:
		if err != nil {
			sess.Stop()
			return nil, err
		}
	}

	return sess, nil
}

// Send transmits a JSON-encoded message to the server through an HTTP POST
// request. Returns an error if encoding fails, the request cannot be created,
// or the server responds with a non-2xx status code.
func (s *sseClientSession) Send(ctx context.Context, msg JSONRPCMessage) error {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.messageURL, bytes.NewReader(msgBs))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

func (s *sseClientSession) ID() string { return s.id }

func (s *sseClientSession) Messages() iter.Seq[JSONRPCMessage] {
	return func(yield func(JSONRPCMessage) bool) {
		for msg := range s.messages {
			if !yield(msg) {
				return
			}
		}
	}
}

func (s *sseClientSession) Stop() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	s.cancel()
}

func (s *sseClientSession) listenSSEMessages(body io.ReadCloser, ready chan<- error) {
	defer func() {
		body.Close()
		close(s.messages)
	}()

	for ev, err := range sse.Read(body, nil) {
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Error("failed to read SSE message", "err", err)
			}
			return
		}

		switch ev.Type {
		case "endpoint":
			u, err := url.Parse(ev.Data)
			if err != nil {
				ready <- fmt.Errorf("parse endpoint URL: %w", err)
				return
			}
			if u.String() == "" {
				ready <- errors.New("empty endpoint URL")
				return
			}
			s.messageURL = u.String()
			s.id = u.Query().Get("sessionId")
			ready <- nil
		case "message":
			// Require the endpoint URL before processing any message, so the
			// session is fully established first.
			if s.messageURL == "" {
				s.logger.Error("received message before endpoint URL")
				continue
			}

			var msg JSONRPCMessage
			if err := json.Unmarshal([]byte(ev.Data), &msg); err != nil {
				s.logger.Error("failed to unmarshal message", "err", err)
				continue
			}

			select {
			case <-s.done:
				return
			case s.messages <- msg:
			}
		default:
			s.logger.Error("unhandled event type", "type", ev.Type)
		}
	}
}

func (s sseServerSession) ID() string { return s.id }

func (s sseServerSession) Send(ctx context.Context, msg JSONRPCMessage) error {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	sseMsg := &sse.Message{
		Type: sse.Type("message"),
	}
	sseMsg.AppendData(string(msgBs))

	errs := make(chan error)

	// Queue the message; the write goroutine owns the underlying SSE session.
	select {
	case s.sendMsgs <- sseServerSessionSendMsg{sseMsg, errs}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		s.logger.Warn("session is closed while sending message", slog.String("message", string(msgBs)))
		return fmt.Errorf("session is closed")
	}

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		s.logger.Warn("session is closed while sending message", slog.String("message", string(msgBs)))
		return fmt.Errorf("session is closed")
	}
}

func (s sseServerSession) Messages() iter.Seq[JSONRPCMessage] {
	return func(yield func(JSONRPCMessage) bool) {
		defer close(s.receivedClosed)

		for {
			select {
			case msg := <-s.receivedMsgs:
				if !yield(msg) {
					return
				}
			case <-s.done:
				return
			}
		}
	}
}

func (s sseServerSession) Stop() {
	close(s.done)

	<-s.sendClosed
	<-s.receivedClosed
}

func (s sseServerSession) processSendMessages() {
	defer close(s.sendClosed)

	for {
		select {
		case sm := <-s.sendMsgs:
			if err := s.sess.Send(sm.msg); err != nil {
				s.logger.Warn("failed to send message", slog.String("err", err.Error()))

				select {
				case sm.errs <- err:
				default:
				}
				continue
			}
			if err := s.sess.Flush(); err != nil {
				s.logger.Warn("failed to flush message", slog.String("err", err.Error()))

				select {
				case sm.errs <- err:
				default:
				}
				continue
			}

			select {
			case sm.errs <- nil:
			default:
			}
		case <-s.done:
			return
		}
	}
}
