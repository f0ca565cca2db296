package argument

import (
	"context"
	"fmt"

	"github.com/keshon/cmdcore/pkg/message"
	"github.com/keshon/cmdcore/pkg/tokenizer"
)

// Step is one move of a Flow: ask for an argument, emit a signal, or finish.
type Step struct {
	Arg    *Spec
	Signal *Signal
	Done   bool
	Value  any
}

// Yield asks the runner to resolve spec and pass the result to the next call.
func Yield(spec Spec) Step { return Step{Arg: &spec} }

// Finish ends the flow with the final arguments value.
func Finish(v any) Step { return Step{Done: true, Value: v} }

// Emit ends the flow with a control signal.
func Emit(s *Signal) Step { return Step{Signal: s} }

// Flow drives argument resolution one step at a time. Next receives the value
// resolved for the previously yielded argument (nil on the first call).
type Flow interface {
	Next(ctx context.Context, prev any) (Step, error)
}

// FlowFunc adapts a function to Flow.
type FlowFunc func(ctx context.Context, prev any) (Step, error)

func (f FlowFunc) Next(ctx context.Context, prev any) (Step, error) { return f(ctx, prev) }

// FlowFactory builds a fresh Flow for each run. The state is owned by the
// runner; flows may read it.
type FlowFactory func(m message.Message, parsed *tokenizer.Result, st *State) Flow

// Args is the value produced by a static list of specs, keyed by spec ID.
type Args map[string]any

func (a Args) Get(id string) any { return a[id] }

func (a Args) String(id string) string {
	switch v := a[id].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (a Args) Bool(id string) bool {
	b, _ := a[id].(bool)
	return b
}

func (a Args) Int(id string) int {
	switch v := a[id].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (a Args) Slice(id string) []any {
	s, _ := a[id].([]any)
	return s
}

type listFlow struct {
	specs []Spec
	i     int
	args  Args
}

// List compiles a static list of specs into a flow that produces Args.
func List(specs []Spec) FlowFactory {
	return func(message.Message, *tokenizer.Result, *State) Flow {
		return &listFlow{specs: specs, args: make(Args, len(specs))}
	}
}

func (f *listFlow) Next(_ context.Context, prev any) (Step, error) {
	if f.i > 0 {
		f.args[f.specs[f.i-1].ID] = prev
	}
	if f.i == len(f.specs) {
		return Finish(f.args), nil
	}
	f.i++
	return Yield(f.specs[f.i-1]), nil
}
