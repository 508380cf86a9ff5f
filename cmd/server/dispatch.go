package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/planner"
)

// dispatch turns an incoming Envelope into a response Envelope: build a
// plan, optimize it, evaluate it, and wrap the outcome back into the wire
// shape, the way the teacher's apiHandler routes a decoded request to its
// EntityManager call and re-encodes the result.
func (s *Server) dispatch(ctx context.Context, env *docbase.Envelope) *docbase.Envelope {
	switch env.Type {
	case docbase.MessagePing:
		return &docbase.Envelope{Version: docbase.Version1, QueryID: env.QueryID, Type: docbase.MessagePong}
	case docbase.MessageQuery:
		return s.dispatchQuery(ctx, env)
	default:
		return s.errorEnvelope(env.QueryID, docbase.NewUnexpectedMessageType(env.Type))
	}
}

func (s *Server) dispatchQuery(ctx context.Context, env *docbase.Envelope) *docbase.Envelope {
	if env.Query == nil {
		return s.errorEnvelope(env.QueryID, docbase.NewUnexpectedMessageType(env.Type))
	}
	q := env.Query

	plan, err := s.builder.Build(q)
	if err != nil {
		return s.errorEnvelope(env.QueryID, err)
	}
	plan = s.optimizer.Optimize(plan)

	if q.Options.Explain {
		explain := planner.Explain(plan, s.logger)
		return &docbase.Envelope{
			Version: docbase.Version1,
			QueryID: env.QueryID,
			Type:    docbase.MessageResponse,
			Result:  &docbase.QueryResult{Explain: explain},
		}
	}

	timeout := s.cfg.Query.DefaultTimeout
	if q.Options.TimeoutMs > 0 {
		timeout = time.Duration(q.Options.TimeoutMs) * time.Millisecond
	}

	result, err := s.evaluator.Evaluate(ctx, plan, timeout)
	if err != nil {
		return s.errorEnvelope(env.QueryID, err)
	}

	if s.cfg.Logging.EnablePlanLogging {
		s.logger.Debug("query evaluated",
			zap.String("query_id", env.QueryID), zap.String("op", string(plan.Op)))
	}

	return &docbase.Envelope{
		Version: docbase.Version1,
		QueryID: env.QueryID,
		Type:    docbase.MessageResponse,
		Result:  result,
	}
}

func (s *Server) errorEnvelope(queryID string, err error) *docbase.Envelope {
	dbErr := asDBError(err)
	return &docbase.Envelope{
		Version: docbase.Version1,
		QueryID: queryID,
		Type:    docbase.MessageError,
		Err:     docbase.ErrorPayloadFromDBError(dbErr),
	}
}
