package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// StdIO implements the non-network transport: newline-delimited JSON-RPC
// messages over an io.Reader/io.Writer pair, typically the process's standard
// input and output. It provides exactly one implicit session per instance, so
// no id-based routing is involved.
//
// Instances must be created with NewStdIO.
type StdIO struct {
	sess   stdIOSession
	closed chan struct{}
}

type stdIOSession struct {
	id     string
	reader io.Reader
	writer io.Writer
	logger *slog.Logger

	writeMessages chan stdIOMessage
	done          chan struct{}
	readClosed    chan struct{}
	writeClosed   chan struct{}
}

type stdIOMessage struct {
	msg  []byte
	errs chan error
}

// NewStdIO creates a new StdIO instance configured with the provided reader
// and writer. The single session's id is allocated here and stays fixed for
// the lifetime of the instance.
func NewStdIO(reader io.Reader, writer io.Writer) StdIO {
	return StdIO{
		sess: stdIOSession{
			id:            uuid.New().String(),
			reader:        reader,
			writer:        writer,
			logger:        slog.Default(),
			writeMessages: make(chan stdIOMessage),
			done:          make(chan struct{}),
			readClosed:    make(chan struct{}),
			writeClosed:   make(chan struct{}),
		},
		closed: make(chan struct{}),
	}
}

// Sessions implements the ServerTransport interface by yielding the single
// persistent session, then blocking until it ends.
func (s StdIO) Sessions() iter.Seq[Session] {
	return func(yield func(Session) bool) {
		defer close(s.closed)

		go s.sess.processWriteMessages()

		yield(s.sess)
		<-s.sess.done
	}
}

// Shutdown implements the ServerTransport interface by waiting for the session
// to close.
func (s StdIO) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
	}
	return nil
}

func (s stdIOSession) ID() string {
	return s.id
}

func (s stdIOSession) Send(ctx context.Context, msg JSONRPCMessage) error {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	// Newline delimits messages on the stream.
	msgBs = append(msgBs, '\n')

	ioMsg := stdIOMessage{
		msg:  msgBs,
		errs: make(chan error, 1),
	}

	// Queue the message; the write goroutine owns the writer.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		s.logger.Warn("session is closed while queueing message", slog.String("message", string(msgBs)))
		return nil
	case s.writeMessages <- ioMsg:
	}

	select {
	case err := <-ioMsg.errs:
		if err != nil {
			s.logger.Error("failed to write message", slog.String("err", err.Error()))
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		s.logger.Warn("session is closed while waiting for write result", slog.String("message", string(msgBs)))
		return nil
	}
}

func (s stdIOSession) Messages() iter.Seq[JSONRPCMessage] {
	return func(yield func(JSONRPCMessage) bool) {
		defer close(s.readClosed)

		// bufio.Reader instead of bufio.Scanner to avoid max token size errors.
		reader := bufio.NewReader(s.reader)
		for {
			type lineWithErr struct {
				line string
				err  error
			}

			lines := make(chan lineWithErr, 1)

			// Read in a goroutine so the done channel stays responsive on
			// slow readers.
			go func() {
				line, err := reader.ReadString('\n')
				if err != nil {
					lines <- lineWithErr{err: err}
					return
				}
				lines <- lineWithErr{line: strings.TrimSuffix(line, "\n")}
			}()

			var lwe lineWithErr
			select {
			case <-s.done:
				return
			case lwe = <-lines:
			}

			if lwe.err != nil {
				if errors.Is(lwe.err, io.EOF) {
					return
				}
				s.logger.Error("failed to read message", "err", lwe.err)
				return
			}

			if lwe.line == "" {
				continue
			}

			var msg JSONRPCMessage
			if err := json.Unmarshal([]byte(lwe.line), &msg); err != nil {
				s.logger.Error("failed to unmarshal message", "err", err)
				continue
			}

			if !yield(msg) {
				return
			}
		}
	}
}

func (s stdIOSession) Stop() {
	close(s.done)
	<-s.readClosed
	<-s.writeClosed
}

func (s stdIOSession) processWriteMessages() {
	defer close(s.writeClosed)

	for {
		var msg stdIOMessage
		select {
		case <-s.done:
			return
		case msg = <-s.writeMessages:
		}

		_, err := s.writer.Write(msg.msg)

		msg.errs <- err
	}
}
