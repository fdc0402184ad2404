// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/logging"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

/*
 * Rule pipeline.
 *
 * Folds an ordered list of resolved rules over one document:
 *
 *   Pending -> Running -> Completed | Aborted
 *
 * Run flow:
 *   1. For order = 0..n-1 call rule.Apply(ctx, doc)
 *   2. nil                       -> next rule
 *   3. ErrStopRuleProcessing     -> Completed, Result.Stopped, no error
 *   4. *AbortError               -> Aborted, the AbortError is returned
 *   5. any other error           -> Aborted, error wrapped with rule name/order
 *
 * Rules report soft failures through the logger and return nil, so those
 * never reach the pipeline. There is no rollback: an aborted document is
 * partially mutated and the caller must discard it.
 *
 * The pipeline itself is immutable after New and may run many documents
 * concurrently as long as each run owns its Document. The context is only
 * handed to rules; the pipeline never inspects it.
 */

// ErrInvalidOrder indicates rule orders with a gap or a duplicate.
var ErrInvalidOrder = errors.New("rule orders must be exactly 0..n-1")

// State is the lifecycle state of one run.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome classifies the result of one rule application.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeStopped Outcome = "stopped"
	OutcomeAborted Outcome = "aborted"
	OutcomeFailed  Outcome = "failed"
)

// Result describes one run.
type Result struct {
	State     State
	Applied   int    // rules whose Apply returned (including the stopping rule)
	Stopped   bool   // a rule returned ErrStopRuleProcessing
	StoppedBy string // name of the stopping or aborting rule
	Duration  time.Duration
}

// Observer receives per-rule and per-run notifications.
type Observer interface {
	OnRule(rule registry.Rule, outcome Outcome, elapsed time.Duration)
	OnRun(result Result)
}

// Pipeline is an ordered, validated list of rules.
type Pipeline struct {
	rules    []registry.Rule
	logger   *slog.Logger
	observer Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for run diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New sorts rules by order (stable) and rejects gaps and duplicates.
func New(rules []registry.Rule, opts ...Option) (*Pipeline, error) {
	sorted := append([]registry.Rule{}, rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order() < sorted[j].Order()
	})
	for i, r := range sorted {
		if r.Order() != i {
			return nil, fmt.Errorf("%w: rule %q has order %d at position %d", ErrInvalidOrder, r.Name(), r.Order(), i)
		}
	}

	p := &Pipeline{rules: sorted, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Rules returns the rules in application order.
func (p *Pipeline) Rules() []registry.Rule {
	return append([]registry.Rule{}, p.rules...)
}

// Len returns the number of rules.
func (p *Pipeline) Len() int { return len(p.rules) }

// Run applies every rule to doc in order.
func (p *Pipeline) Run(ctx context.Context, doc *document.Document) (Result, error) {
	start := time.Now()
	result := Result{State: StateRunning}

	finish := func(state State) Result {
		result.State = state
		result.Duration = time.Since(start)
		if p.observer != nil {
			p.observer.OnRun(result)
		}
		return result
	}

	for _, rule := range p.rules {
		ruleStart := time.Now()
		err := rule.Apply(ctx, doc)
		elapsed := time.Since(ruleStart)
		result.Applied++

		switch {
		case err == nil:
			p.notify(rule, OutcomeApplied, elapsed)
			p.logger.Debug("rule applied", "rule", rule.Name(), "order", rule.Order(), "path", rule.Path().String())

		case errors.Is(err, types.ErrStopRuleProcessing):
			p.notify(rule, OutcomeStopped, elapsed)
			p.logger.Debug("rule processing stopped", "rule", rule.Name(), "order", rule.Order())
			result.Stopped = true
			result.StoppedBy = rule.Name()
			return finish(StateCompleted), nil

		case types.IsAbort(err):
			p.notify(rule, OutcomeAborted, elapsed)
			p.logger.Warn("transformation aborted", "rule", rule.Name(), "order", rule.Order(), "error", err)
			result.StoppedBy = rule.Name()
			return finish(StateAborted), err

		default:
			p.notify(rule, OutcomeFailed, elapsed)
			p.logger.Error("rule failed", "rule", rule.Name(), "order", rule.Order(), "error", err)
			result.StoppedBy = rule.Name()
			return finish(StateAborted), fmt.Errorf("rule %d (%s): %w", rule.Order(), rule.Name(), err)
		}
	}

	return finish(StateCompleted), nil
}

func (p *Pipeline) notify(rule registry.Rule, outcome Outcome, elapsed time.Duration) {
	if p.observer != nil {
		p.observer.OnRule(rule, outcome, elapsed)
	}
}
