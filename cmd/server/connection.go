package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/evaluator"
	"github.com/lychee-technology/docbase/internal/planner"
	"github.com/lychee-technology/docbase/internal/wire"
)

// Server holds the components every connection dispatches through.
type Server struct {
	cfg       *docbase.Config
	logger    *zap.Logger
	builder   *planner.Builder
	optimizer *planner.Optimizer
	evaluator *evaluator.Evaluator
}

// Accept runs the TCP accept loop, handing each connection to its own
// goroutine. Requests within one connection are processed strictly in
// order (spec.md §5 "Ordering guarantees"); across connections, work runs
// concurrently.
func (s *Server) Accept(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection reads one framed request at a time and writes exactly
// one framed response before reading the next, per spec.md §5's single
// in-flight ordering guarantee. A framing-typed error (bad version, bad
// length prefix, decode failure) is fatal to the connection: a final
// Error envelope is written and the connection closes (spec.md §7).
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		if s.cfg.Server.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.Server.ReadTimeout))
		}
		env, err := wire.ReadFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			s.writeFatalError(conn, "", err)
			return
		}

		resp := s.dispatch(ctx, env)

		if s.cfg.Server.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.cfg.Server.WriteTimeout))
		}
		if err := wire.WriteFrame(conn, resp); err != nil {
			s.logger.Warn("failed to write response frame", zap.Error(err))
			return
		}
		if isFraming(resp) {
			return
		}
	}
}

func (s *Server) writeFatalError(conn net.Conn, queryID string, err error) {
	dbErr := asDBError(err)
	env := &docbase.Envelope{
		Version: docbase.Version1,
		QueryID: queryID,
		Type:    docbase.MessageError,
		Err:     docbase.ErrorPayloadFromDBError(dbErr),
	}
	if werr := wire.WriteFrame(conn, env); werr != nil {
		s.logger.Warn("failed to write fatal error frame", zap.Error(werr))
	}
}

func isFraming(env *docbase.Envelope) bool {
	return env.Type == docbase.MessageError && env.Err != nil && env.Err.Type == string(docbase.ErrorTypeFraming)
}

func asDBError(err error) *docbase.DBError {
	var dbErr *docbase.DBError
	if errors.As(err, &dbErr) {
		return dbErr
	}
	return docbase.NewInternalError(err.Error(), err)
}
