package argument

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/keshon/cmdcore/pkg/message"
)

// ErrPromptTimeout is returned by Prompter.Await when no reply arrived in time.
var ErrPromptTimeout = errors.New("prompt timed out")

// Prompter collects follow-up replies for an argument prompt.
type Prompter interface {
	// Enter and Leave bracket a prompt so the dispatcher can block the user's
	// other invocations on that channel while it runs. Replies arriving after
	// Enter are kept for the next Await.
	Enter(m message.Message)
	Leave(m message.Message)
	// Await returns the next message from m's author in m's channel.
	Await(ctx context.Context, m message.Message, timeout time.Duration) (message.Message, error)
	// IsCommand reports whether a reply looks like a new command invocation.
	IsCommand(ctx context.Context, m message.Message) bool
}

// Argument is a Spec bound to a runner.
type Argument struct {
	spec   Spec
	runner *Runner
}

func (a *Argument) Spec() Spec { return a.spec }

// Cast runs the caster. Without a caster the phrase itself is the value and
// empty phrases fail.
func (a *Argument) Cast(ctx context.Context, m message.Message, phrase string) (any, error) {
	if a.spec.Type == nil {
		if phrase == "" {
			return nil, nil
		}
		return phrase, nil
	}
	return a.spec.Type(ctx, m, phrase)
}

// Process casts phrase and falls back to otherwise, the default, then the
// prompt. A failed cast with nothing to fall back on resolves to nil, or to
// the Fail signal the caster returned.
func (a *Argument) Process(ctx context.Context, m message.Message, phrase string) (any, error) {
	res, err := a.Cast(ctx, m, phrase)
	if err != nil {
		return nil, err
	}
	if !isFailure(res) {
		return res, nil
	}

	if a.spec.Otherwise != nil {
		if text := a.spec.Otherwise(m, PromptData{Message: m, Phrase: phrase, Failure: res}); text != "" {
			if err := m.Reply(ctx, text); err != nil {
				return nil, err
			}
		}
		return Cancel(), nil
	}

	if a.spec.DefaultFunc != nil {
		return a.spec.DefaultFunc(ctx, m, DefaultData{Phrase: phrase, Failure: res})
	}
	if a.spec.Default != nil {
		return a.spec.Default, nil
	}

	if a.spec.Prompt != nil && a.runner != nil && a.runner.prompter != nil {
		opts := a.runner.defaults.Merge(*a.spec.Prompt).withDefaults()
		if !(opts.Optional && phrase == "") {
			return a.collect(ctx, m, phrase, res, opts)
		}
	}

	if IsKind(res, KindFail) {
		return res, nil
	}
	return nil, nil
}

func render(t Text, m message.Message, d PromptData) string {
	if t == nil {
		return ""
	}
	return t(m, d)
}

// collect asks the author for a replacement value until a reply casts, the
// retries run out, the author cancels, or the prompt times out.
func (a *Argument) collect(ctx context.Context, m message.Message, phrase string, failure any, opts PromptOptions) (any, error) {
	p := a.runner.prompter
	p.Enter(m)
	defer p.Leave(m)

	infinite := opts.Infinite || (a.spec.match() == MatchSeparate && phrase == "")
	retry := 1
	if phrase != "" {
		retry = 2
	}

	var values []any
	data := PromptData{Message: m, Phrase: phrase, Failure: failure, Infinite: infinite}
	say := func(t Text) error {
		data.Retries = retry
		if text := render(t, m, data); text != "" {
			return m.Reply(ctx, text)
		}
		return nil
	}

	for {
		if retry != 1 || !infinite || len(values) == 0 {
			stage := opts.Retry
			if retry == 1 {
				stage = opts.Start
			}
			if err := say(stage); err != nil {
				return nil, err
			}
		}

		reply, err := p.Await(ctx, m, opts.Time)
		if errors.Is(err, ErrPromptTimeout) {
			if err := say(opts.Timeout); err != nil {
				return nil, err
			}
			return Cancel(), nil
		}
		if err != nil {
			return nil, err
		}

		if !opts.NoBreakout && p.IsCommand(ctx, reply) {
			return Retry(reply), nil
		}

		content := strings.TrimSpace(reply.Content())
		if strings.EqualFold(content, opts.CancelWord) {
			if err := say(opts.Cancel); err != nil {
				return nil, err
			}
			return Cancel(), nil
		}

		if infinite && strings.EqualFold(content, opts.StopWord) {
			if len(values) == 0 {
				data = PromptData{Message: reply, Phrase: content, Infinite: infinite}
				retry++
				continue
			}
			return values, nil
		}

		v, err := a.Cast(ctx, reply, content)
		if err != nil {
			return nil, err
		}
		if isFailure(v) {
			if retry <= opts.Retries {
				data = PromptData{Message: reply, Phrase: content, Failure: v, Infinite: infinite}
				retry++
				continue
			}
			if err := say(opts.Ended); err != nil {
				return nil, err
			}
			return Cancel(), nil
		}

		if !infinite {
			return v, nil
		}
		values = append(values, v)
		if opts.Limit > 0 && len(values) >= opts.Limit {
			return values, nil
		}
		data = PromptData{Message: m, Phrase: content, Failure: nil, Infinite: infinite}
		retry = 1
	}
}
