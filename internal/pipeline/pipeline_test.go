package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

// scriptedRule records its invocation and returns a fixed error.
type scriptedRule struct {
	name  string
	order int
	err   error
	calls *[]string
}

func (r scriptedRule) Name() string         { return r.name }
func (r scriptedRule) Order() int           { return r.order }
func (r scriptedRule) Path() *document.Path { return document.Root }
func (r scriptedRule) Apply(_ context.Context, doc *document.Document) error {
	*r.calls = append(*r.calls, r.name)
	if _, err := doc.Put(document.Root, r.name, true); err != nil {
		return err
	}
	return r.err
}

type recordingObserver struct {
	outcomes []Outcome
	runs     []Result
}

func (o *recordingObserver) OnRule(_ registry.Rule, outcome Outcome, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) OnRun(r Result) { o.runs = append(o.runs, r) }

func TestNew_OrderValidation(t *testing.T) {
	var calls []string
	mk := func(name string, order int) registry.Rule {
		return scriptedRule{name: name, order: order, calls: &calls}
	}

	tests := []struct {
		name    string
		rules   []registry.Rule
		wantErr bool
		want    []string
	}{
		{"empty", nil, false, nil},
		{"sorted", []registry.Rule{mk("a", 0), mk("b", 1)}, false, []string{"a", "b"}},
		{"unsorted", []registry.Rule{mk("b", 1), mk("c", 2), mk("a", 0)}, false, []string{"a", "b", "c"}},
		{"gap", []registry.Rule{mk("a", 0), mk("b", 2)}, true, nil},
		{"duplicate", []registry.Rule{mk("a", 0), mk("b", 0)}, true, nil},
		{"not from zero", []registry.Rule{mk("a", 1)}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.rules)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOrder) {
					t.Fatalf("New() error = %v, want ErrInvalidOrder", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			var got []string
			for _, r := range p.Rules() {
				got = append(got, r.Name())
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Rules() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Rules()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRun_Signals(t *testing.T) {
	boom := errors.New("supplier unavailable")
	abort := &types.AbortError{Rule: "b", Order: 1, Reason: "invalid"}

	tests := []struct {
		name        string
		secondErr   error
		wantState   State
		wantCalls   []string
		wantStopped bool
		wantErr     error
		wantOutcome Outcome
	}{
		{"all continue", nil, StateCompleted, []string{"a", "b", "c"}, false, nil, OutcomeApplied},
		{"stop", types.ErrStopRuleProcessing, StateCompleted, []string{"a", "b"}, true, nil, OutcomeStopped},
		{"wrapped stop", errorsJoin(types.ErrStopRuleProcessing), StateCompleted, []string{"a", "b"}, true, nil, OutcomeStopped},
		{"abort", abort, StateAborted, []string{"a", "b"}, false, abort, OutcomeAborted},
		{"hard failure", boom, StateAborted, []string{"a", "b"}, false, boom, OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			obs := &recordingObserver{}
			p, err := New([]registry.Rule{
				scriptedRule{name: "a", order: 0, calls: &calls},
				scriptedRule{name: "b", order: 1, err: tt.secondErr, calls: &calls},
				scriptedRule{name: "c", order: 2, calls: &calls},
			}, WithObserver(obs))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			doc := document.New(map[string]any{})
			result, err := p.Run(context.Background(), doc)

			if tt.wantErr == nil && err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if result.State != tt.wantState {
				t.Errorf("State = %v, want %v", result.State, tt.wantState)
			}
			if result.Stopped != tt.wantStopped {
				t.Errorf("Stopped = %v, want %v", result.Stopped, tt.wantStopped)
			}
			if len(calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", calls, tt.wantCalls)
			}
			if result.Applied != len(tt.wantCalls) {
				t.Errorf("Applied = %d, want %d", result.Applied, len(tt.wantCalls))
			}
			if got := obs.outcomes[len(obs.outcomes)-1]; tt.secondErr != nil && got != tt.wantOutcome {
				t.Errorf("last outcome = %v, want %v", got, tt.wantOutcome)
			}
			if len(obs.runs) != 1 || obs.runs[0].State != tt.wantState {
				t.Errorf("OnRun = %+v", obs.runs)
			}

			// Mutations made before a stop survive; nothing is rolled back.
			root := doc.Root().(*document.Object)
			for _, name := range tt.wantCalls {
				if v, _ := root.Get(name); v != true {
					t.Errorf("rule %s mutation missing: %v", name, root.Keys())
				}
			}
		})
	}
}

func TestRun_AbortErrorReturnedUnwrapped(t *testing.T) {
	var calls []string
	abort := &types.AbortError{Rule: "v", Order: 0, Reason: "2 violations"}
	p, err := New([]registry.Rule{scriptedRule{name: "v", order: 0, err: abort, calls: &calls}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Run(context.Background(), document.New(map[string]any{}))
	if err != abort {
		t.Errorf("Run() error = %v, want the AbortError itself", err)
	}
}

func TestRun_EmptyPipeline(t *testing.T) {
	p, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	doc := document.New(map[string]any{"a": "b"})
	result, err := p.Run(context.Background(), doc)
	if err != nil || result.State != StateCompleted || result.Applied != 0 {
		t.Errorf("Run() = %+v, %v", result, err)
	}
}

func TestRun_IgnoresCancelledContext(t *testing.T) {
	var calls []string
	p, _ := New([]registry.Rule{scriptedRule{name: "a", order: 0, calls: &calls}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx, document.New(map[string]any{})); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("rule not applied under a cancelled context")
	}
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("context"), err)
}
