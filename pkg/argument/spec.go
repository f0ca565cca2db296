package argument

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keshon/cmdcore/pkg/message"
)

// MatchType selects how an argument picks tokens.
type MatchType string

const (
	MatchPhrase      MatchType = "phrase"
	MatchFlag        MatchType = "flag"
	MatchOption      MatchType = "option"
	MatchRest        MatchType = "rest"
	MatchSeparate    MatchType = "separate"
	MatchText        MatchType = "text"
	MatchContent     MatchType = "content"
	MatchRestContent MatchType = "restContent"
	MatchNone        MatchType = "none"
)

var ErrUnknownMatch = errors.New("unknown match type")

// Valid reports whether t is a known match type. The empty type is treated as phrase.
func (t MatchType) Valid() bool {
	switch t {
	case "", MatchPhrase, MatchFlag, MatchOption, MatchRest, MatchSeparate,
		MatchText, MatchContent, MatchRestContent, MatchNone:
		return true
	}
	return false
}

// Caster converts a phrase into a value. A nil value or a Fail signal means
// the phrase did not fit; errors are reserved for unexpected failures.
type Caster func(ctx context.Context, m message.Message, phrase string) (any, error)

// DefaultData is passed to default suppliers.
type DefaultData struct {
	Phrase  string
	Failure any
}

// PromptData is passed to prompt and otherwise texts.
type PromptData struct {
	Message  message.Message
	Phrase   string
	Failure  any
	Retries  int
	Infinite bool
}

// Text renders a reply for a prompt stage. Empty output sends nothing.
type Text func(m message.Message, d PromptData) string

// Static returns a Text that always renders s.
func Static(s string) Text {
	return func(message.Message, PromptData) string { return s }
}

// Spec describes one argument of a command.
type Spec struct {
	ID    string
	Match MatchType
	Type  Caster
	// Index pins the argument to a phrase (or token, for restContent and
	// content) position instead of the shared cursor.
	Index     *int
	Limit     int
	Unordered Unordered
	Flags     []string
	// MultipleFlags counts flags or collects every matching option value.
	MultipleFlags bool
	Default       any
	DefaultFunc   func(ctx context.Context, m message.Message, d DefaultData) (any, error)
	// Otherwise replies with its text and cancels when the cast fails.
	Otherwise Text
	Prompt    *PromptOptions
}

// At returns a pointer for Spec.Index.
func At(i int) *int { return &i }

// Validate reports configuration errors.
func (s Spec) Validate() error {
	if s.ID == "" {
		return errors.New("argument id is empty")
	}
	if !s.Match.Valid() {
		return fmt.Errorf("argument %q: %w: %q", s.ID, ErrUnknownMatch, s.Match)
	}
	if (s.Match == MatchFlag || s.Match == MatchOption) && len(s.Flags) == 0 {
		return fmt.Errorf("argument %q: %s match needs flag names", s.ID, s.Match)
	}
	if s.Limit < 0 {
		return fmt.Errorf("argument %q: negative limit", s.ID)
	}
	return nil
}

func (s Spec) match() MatchType {
	if s.Match == "" {
		return MatchPhrase
	}
	return s.Match
}

type unorderedMode int

const (
	unorderedOff unorderedMode = iota
	unorderedAll
	unorderedFrom
	unorderedAt
)

// Unordered lets a phrase argument pick the first fitting phrase among a set of
// candidates instead of the next one in order.
type Unordered struct {
	mode unorderedMode
	from int
	at   []int
}

// UnorderedAll considers every phrase.
func UnorderedAll() Unordered { return Unordered{mode: unorderedAll} }

// UnorderedFrom considers phrases starting at n.
func UnorderedFrom(n int) Unordered { return Unordered{mode: unorderedFrom, from: n} }

// UnorderedAt considers the listed phrase positions, in order.
func UnorderedAt(indices ...int) Unordered {
	return Unordered{mode: unorderedAt, at: append([]int(nil), indices...)}
}

func (u Unordered) Enabled() bool { return u.mode != unorderedOff }

func (u Unordered) candidates(n int) []int {
	switch u.mode {
	case unorderedAt:
		return u.at
	case unorderedFrom, unorderedAll:
		out := make([]int, 0, n)
		for i := u.from; i < n; i++ {
			out = append(out, i)
		}
		return out
	}
	return nil
}

// PromptOptions configures the interactive re-prompt loop.
type PromptOptions struct {
	Start   Text
	Retry   Text
	Timeout Text
	Ended   Text
	Cancel  Text

	// Retries is the number of extra attempts after a failed reply. Zero
	// means the default of 1; use NoRetries for none.
	Retries    int
	Time       time.Duration
	CancelWord string
	StopWord   string
	// Optional skips the prompt when the phrase is empty.
	Optional bool
	// Infinite collects values until the stop word or Limit.
	Infinite   bool
	Limit      int
	NoBreakout bool
}

const (
	DefaultPromptRetries = 1
	DefaultPromptTime    = 30 * time.Second
	DefaultCancelWord    = "cancel"
	DefaultStopWord      = "stop"

	// NoRetries ends the prompt on the first failed reply.
	NoRetries = -1
)

// Merge layers o over p: set fields of o win.
func (p PromptOptions) Merge(o PromptOptions) PromptOptions {
	if o.Start != nil {
		p.Start = o.Start
	}
	if o.Retry != nil {
		p.Retry = o.Retry
	}
	if o.Timeout != nil {
		p.Timeout = o.Timeout
	}
	if o.Ended != nil {
		p.Ended = o.Ended
	}
	if o.Cancel != nil {
		p.Cancel = o.Cancel
	}
	if o.Retries != 0 {
		p.Retries = o.Retries
	}
	if o.Time != 0 {
		p.Time = o.Time
	}
	if o.CancelWord != "" {
		p.CancelWord = o.CancelWord
	}
	if o.StopWord != "" {
		p.StopWord = o.StopWord
	}
	if o.Limit != 0 {
		p.Limit = o.Limit
	}
	p.Optional = p.Optional || o.Optional
	p.Infinite = p.Infinite || o.Infinite
	p.NoBreakout = p.NoBreakout || o.NoBreakout
	return p
}

func (p PromptOptions) withDefaults() PromptOptions {
	switch {
	case p.Retries == 0:
		p.Retries = DefaultPromptRetries
	case p.Retries < 0:
		p.Retries = 0
	}
	if p.Time <= 0 {
		p.Time = DefaultPromptTime
	}
	if p.CancelWord == "" {
		p.CancelWord = DefaultCancelWord
	}
	if p.StopWord == "" {
		p.StopWord = DefaultStopWord
	}
	return p
}
