// Package api exposes the rule engine to remote callers.
//
// TransformService owns the request flow shared by both transports: size
// check, pipeline run, journal entry and logging. The gRPC service
// descriptor and the HTTP handler are thin adapters over it, and errors map
// to transport status codes in one place (errors.go).
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/solatis/jsonforge/internal/core/db"
	"github.com/solatis/jsonforge/internal/logging"
	"github.com/solatis/jsonforge/internal/pipeline"
	"github.com/solatis/jsonforge/internal/rules"
	"github.com/solatis/jsonforge/internal/types"
)

// Journal records runs. *db.Journal implements it.
type Journal interface {
	Record(ctx context.Context, r db.Run) error
}

// TransformService runs documents through one compiled rule list.
type TransformService struct {
	engine  *rules.Engine
	journal Journal
	logger  *slog.Logger
	maxSize int
	digest  string
	timeout time.Duration
}

type Option func(*TransformService)

// WithJournal records every run.
func WithJournal(j Journal) Option {
	return func(s *TransformService) { s.journal = j }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *TransformService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxDocumentSize bounds accepted input.
func WithMaxDocumentSize(n int) Option {
	return func(s *TransformService) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithRulesDigest tags journal entries with the digest of the rule list.
func WithRulesDigest(d string) Option {
	return func(s *TransformService) { s.digest = d }
}

// WithTimeout bounds one transformation, including collaborator calls.
func WithTimeout(d time.Duration) Option {
	return func(s *TransformService) { s.timeout = d }
}

// NewTransformService creates the service.
func NewTransformService(engine *rules.Engine, opts ...Option) (*TransformService, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	s := &TransformService{
		engine:  engine,
		logger:  logging.NewNop(),
		maxSize: types.MaxDocumentSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Output is the result of one transformation.
type Output struct {
	RunID    types.RunID
	Document []byte
	Result   pipeline.Result
}

// Transform runs input through the pipeline. Document is nil on error.
func (s *TransformService) Transform(ctx context.Context, input []byte) (Output, error) {
	start := time.Now()
	out := Output{RunID: types.NewRunID()}

	var err error
	if len(input) > s.maxSize {
		err = fmt.Errorf("%w: %d bytes, limit %d", types.ErrDocumentTooLarge, len(input), s.maxSize)
	} else {
		runCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		out.Document, out.Result, err = s.engine.Transform(runCtx, input)
	}

	state := runState(out.Result, err)
	s.logger.Info("transform",
		"run_id", out.RunID,
		"state", state,
		"applied", out.Result.Applied,
		"stopped_by", out.Result.StoppedBy,
		"duration", time.Since(start),
		"error", err,
	)
	s.record(ctx, out, state, len(input), err, time.Since(start))
	return out, err
}

func (s *TransformService) record(ctx context.Context, out Output, state string, inputBytes int, runErr error, elapsed time.Duration) {
	if s.journal == nil {
		return
	}
	run := db.Run{
		ID:          out.RunID,
		RulesDigest: s.digest,
		State:       state,
		Applied:     out.Result.Applied,
		StoppedBy:   out.Result.StoppedBy,
		InputBytes:  int64(inputBytes),
		OutputBytes: int64(len(out.Document)),
		DurationMs:  elapsed.Milliseconds(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// The journal write must not be cut short by a cancelled request.
	if err := s.journal.Record(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("journal write failed", "run_id", out.RunID, "error", err)
	}
}

// runState names the journal state of a finished run.
func runState(res pipeline.Result, err error) string {
	switch {
	case err == nil && res.Stopped:
		return db.RunStopped
	case err == nil:
		return db.RunCompleted
	case types.IsAbort(err):
		return db.RunAborted
	default:
		return db.RunFailed
	}
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, types.ErrMalformedDocument) || errors.Is(err, types.ErrDocumentTooLarge)
}
