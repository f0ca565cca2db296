package argument

import "github.com/keshon/cmdcore/pkg/message"

// SignalKind tags a control signal.
type SignalKind int

const (
	KindCancel SignalKind = iota + 1
	KindRetry
	KindContinue
	KindFail
)

func (k SignalKind) String() string {
	switch k {
	case KindCancel:
		return "cancel"
	case KindRetry:
		return "retry"
	case KindContinue:
		return "continue"
	case KindFail:
		return "fail"
	}
	return "unknown"
}

// Signal redirects or aborts argument resolution instead of becoming an
// argument value. Signals only come from the constructors below, so a parsed
// value can never be mistaken for one.
type Signal struct {
	kind SignalKind

	// Message is the replacement message of a Retry.
	Message message.Message
	// Command, Ignore and Rest describe a Continue. Rest is filled in by the
	// runner with the untouched tail of the input.
	Command string
	Ignore  bool
	Rest    string
	// Value is the payload of a Fail.
	Value any
}

// Cancel aborts the invocation.
func Cancel() *Signal { return &Signal{kind: KindCancel} }

// Retry restarts dispatch on m.
func Retry(m message.Message) *Signal { return &Signal{kind: KindRetry, Message: m} }

// Continue hands the rest of the input to another command. With ignore set the
// continuation skips post inhibitors and locking.
func Continue(commandID string, ignore bool) *Signal {
	return &Signal{kind: KindContinue, Command: commandID, Ignore: ignore}
}

// Fail marks a failed cast that carries data for defaults and prompts.
func Fail(value any) *Signal { return &Signal{kind: KindFail, Value: value} }

func (s *Signal) Kind() SignalKind { return s.kind }

// AsSignal returns v as a signal when it is one.
func AsSignal(v any) (*Signal, bool) {
	s, ok := v.(*Signal)
	return s, ok && s != nil
}

// IsKind reports whether v is a signal of kind k.
func IsKind(v any, k SignalKind) bool {
	s, ok := AsSignal(v)
	return ok && s.kind == k
}

func isFailure(v any) bool {
	return v == nil || IsKind(v, KindFail)
}
