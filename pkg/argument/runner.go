package argument

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/cmdcore/pkg/message"
	"github.com/keshon/cmdcore/pkg/tokenizer"
)

// State holds the cursors of one run. Index points into Result.All just past
// the last consumed token; PhraseIndex is the next ordered phrase.
type State struct {
	Index       int
	PhraseIndex int
	used        map[int]struct{}
}

func newState() *State { return &State{used: make(map[int]struct{})} }

// Used reports whether phrase i was already taken by an argument.
func (s *State) Used(i int) bool {
	_, ok := s.used[i]
	return ok
}

func (s *State) claim(i int) { s.used[i] = struct{}{} }

func (s *State) skipUsed() {
	for s.Used(s.PhraseIndex) {
		s.PhraseIndex++
	}
}

// consume claims the given phrases and moves both cursors past the last one.
func (s *State) consume(parsed *tokenizer.Result, idx []int) {
	for _, i := range idx {
		s.claim(i)
	}
	if len(idx) > 0 {
		last := idx[len(idx)-1]
		if last+1 > s.PhraseIndex {
			s.PhraseIndex = last + 1
		}
		if pos := parsed.PhrasePosition(last); pos+1 > s.Index {
			s.Index = pos + 1
		}
	}
	s.skipUsed()
}

// window lists up to limit phrase indices starting at start. Unless pinned,
// phrases already claimed are skipped.
func (s *State) window(parsed *tokenizer.Result, start, limit int, pinned bool) []int {
	var out []int
	for i := start; i < len(parsed.Phrases); i++ {
		if start < 0 {
			break
		}
		if !pinned && s.Used(i) {
			continue
		}
		out = append(out, i)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func joinPhrases(parsed *tokenizer.Result, idx []int) string {
	var b strings.Builder
	for _, i := range idx {
		b.WriteString(parsed.Phrases[i].Raw)
	}
	return strings.TrimSpace(b.String())
}

func tokenSpan(all []tokenizer.Token, start, limit int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return start, end
}

// Runner resolves argument flows against parsed content.
type Runner struct {
	prompter Prompter
	defaults PromptOptions
}

// NewRunner returns a runner. A nil prompter disables prompts.
func NewRunner(p Prompter, defaults PromptOptions) *Runner {
	return &Runner{prompter: p, defaults: defaults}
}

// Argument binds spec to the runner.
func (r *Runner) Argument(spec Spec) *Argument {
	return &Argument{spec: spec, runner: r}
}

// Run drives the flow to completion. A signal from the flow or from any
// argument ends the run and is returned as the result; a Continue signal gets
// the raw tail of the input from the current index.
func (r *Runner) Run(ctx context.Context, m message.Message, parsed *tokenizer.Result, newFlow FlowFactory) (any, error) {
	st := newState()
	flow := newFlow(m, parsed, st)

	var prev any
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step, err := flow.Next(ctx, prev)
		if err != nil {
			return nil, err
		}

		switch {
		case step.Signal != nil:
			return finish(parsed, st, step.Signal), nil
		case step.Done:
			if sig, ok := AsSignal(step.Value); ok {
				return finish(parsed, st, sig), nil
			}
			return step.Value, nil
		case step.Arg == nil:
			return nil, fmt.Errorf("flow step has no argument, signal or result")
		}

		if err := step.Arg.Validate(); err != nil {
			return nil, err
		}
		res, err := r.resolve(ctx, m, parsed, st, r.Argument(*step.Arg))
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", step.Arg.ID, err)
		}
		if sig, ok := AsSignal(res); ok {
			return finish(parsed, st, sig), nil
		}
		prev = res
	}
}

func finish(parsed *tokenizer.Result, st *State, sig *Signal) *Signal {
	if sig.kind != KindContinue {
		return sig
	}
	out := *sig
	start, _ := tokenSpan(parsed.All, st.Index, 0)
	out.Rest = tokenizer.JoinRaw(parsed.All[start:])
	return &out
}

func (r *Runner) resolve(ctx context.Context, m message.Message, parsed *tokenizer.Result, st *State, a *Argument) (any, error) {
	spec := a.spec
	switch spec.match() {
	case MatchPhrase:
		return r.phrase(ctx, m, parsed, st, a)

	case MatchRest:
		idx := r.phraseWindow(parsed, st, spec)
		v, err := a.Process(ctx, m, joinPhrases(parsed, idx))
		if err == nil && spec.Index == nil {
			st.consume(parsed, idx)
		}
		return v, err

	case MatchSeparate:
		idx := r.phraseWindow(parsed, st, spec)
		if len(idx) == 0 {
			return a.Process(ctx, m, "")
		}
		out := make([]any, 0, len(idx))
		for _, i := range idx {
			v, err := a.Process(ctx, m, parsed.Phrases[i].Value)
			if err != nil {
				return nil, err
			}
			if _, ok := AsSignal(v); ok {
				return v, nil
			}
			out = append(out, v)
		}
		if spec.Index == nil {
			st.consume(parsed, idx)
		}
		return out, nil

	case MatchText:
		start := 0
		if spec.Index != nil {
			start = *spec.Index
		}
		return a.Process(ctx, m, joinPhrases(parsed, st.window(parsed, start, spec.Limit, true)))

	case MatchContent:
		at := 0
		if spec.Index != nil {
			at = *spec.Index
		}
		start, end := tokenSpan(parsed.All, at, spec.Limit)
		return a.Process(ctx, m, strings.TrimSpace(tokenizer.JoinRaw(parsed.All[start:end])))

	case MatchRestContent:
		at := st.Index
		if spec.Index != nil {
			at = *spec.Index
		}
		start, end := tokenSpan(parsed.All, at, spec.Limit)
		v, err := a.Process(ctx, m, strings.TrimSpace(tokenizer.JoinRaw(parsed.All[start:end])))
		if err == nil && spec.Index == nil {
			r.consumeTokens(parsed, st, start, end)
		}
		return v, err

	case MatchFlag:
		count := 0
		for _, f := range parsed.Flags {
			if containsFold(spec.Flags, f.Key) {
				count++
			}
		}
		if spec.MultipleFlags {
			return count, nil
		}
		if spec.Default != nil {
			return count == 0, nil
		}
		return count > 0, nil

	case MatchOption:
		if spec.MultipleFlags {
			var out []any
			for _, o := range parsed.OptionFlags {
				if !containsFold(spec.Flags, o.Key) {
					continue
				}
				if spec.Limit > 0 && len(out) == spec.Limit {
					break
				}
				v, err := a.Process(ctx, m, o.Value)
				if err != nil {
					return nil, err
				}
				if _, ok := AsSignal(v); ok {
					return v, nil
				}
				out = append(out, v)
			}
			return out, nil
		}
		for _, o := range parsed.OptionFlags {
			if containsFold(spec.Flags, o.Key) {
				return a.Process(ctx, m, o.Value)
			}
		}
		return a.Process(ctx, m, "")

	case MatchNone:
		return a.Process(ctx, m, "")
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMatch, spec.Match)
}

func (r *Runner) phrase(ctx context.Context, m message.Message, parsed *tokenizer.Result, st *State, a *Argument) (any, error) {
	spec := a.spec
	if spec.Unordered.Enabled() {
		for _, i := range spec.Unordered.candidates(len(parsed.Phrases)) {
			if st.Used(i) {
				continue
			}
			phrase := ""
			if i >= 0 && i < len(parsed.Phrases) {
				phrase = parsed.Phrases[i].Value
			}
			v, err := a.Cast(ctx, m, phrase)
			if err != nil {
				return nil, err
			}
			if !isFailure(v) {
				st.claim(i)
				return v, nil
			}
		}
		return a.Process(ctx, m, "")
	}

	if spec.Index != nil {
		return a.Process(ctx, m, phraseValue(parsed, *spec.Index))
	}

	st.skipUsed()
	i := st.PhraseIndex
	v, err := a.Process(ctx, m, phraseValue(parsed, i))
	if err != nil {
		return nil, err
	}
	if i < len(parsed.Phrases) {
		st.consume(parsed, []int{i})
	}
	return v, nil
}

func (r *Runner) phraseWindow(parsed *tokenizer.Result, st *State, spec Spec) []int {
	if spec.Index != nil {
		return st.window(parsed, *spec.Index, spec.Limit, true)
	}
	st.skipUsed()
	return st.window(parsed, st.PhraseIndex, spec.Limit, false)
}

// consumeTokens claims every phrase inside All[start:end] and moves the
// cursors to end.
func (r *Runner) consumeTokens(parsed *tokenizer.Result, st *State, start, end int) {
	for i := range parsed.Phrases {
		pos := parsed.PhrasePosition(i)
		if pos >= start && pos < end {
			st.claim(i)
		}
	}
	if end > st.Index {
		st.Index = end
	}
	for st.PhraseIndex < len(parsed.Phrases) && parsed.PhrasePosition(st.PhraseIndex) < st.Index {
		st.PhraseIndex++
	}
	st.skipUsed()
}

func phraseValue(parsed *tokenizer.Result, i int) string {
	if i < 0 || i >= len(parsed.Phrases) {
		return ""
	}
	return parsed.Phrases[i].Value
}

func containsFold(words []string, s string) bool {
	for _, w := range words {
		if strings.EqualFold(w, s) {
			return true
		}
	}
	return false
}
