package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/message"
)

var errNotEntered = errors.New("await outside of a prompt")

// prompts tracks running argument prompts per (channel, author) and hands
// incoming messages to the prompt that waits for them.
type prompts struct {
	h *Handler

	mu      sync.Mutex
	active  map[string]int
	waiting map[string]chan message.Message
}

func newPrompts(h *Handler) *prompts {
	return &prompts{
		h:       h,
		active:  make(map[string]int),
		waiting: make(map[string]chan message.Message),
	}
}

func promptKey(m message.Message) string {
	return m.ChannelID() + ":" + m.AuthorID()
}

// Enter starts buffering replies for m's author so none is lost while the
// prompt text is being sent.
func (p *prompts) Enter(m message.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := promptKey(m)
	p.active[key]++
	if _, ok := p.waiting[key]; !ok {
		p.waiting[key] = make(chan message.Message, 1)
	}
}

func (p *prompts) Leave(m message.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := promptKey(m)
	if p.active[key] <= 1 {
		delete(p.active, key)
		delete(p.waiting, key)
		return
	}
	p.active[key]--
}

func (p *prompts) inPrompt(m message.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active[promptKey(m)] > 0
}

func (p *prompts) Await(ctx context.Context, m message.Message, timeout time.Duration) (message.Message, error) {
	p.mu.Lock()
	ch, ok := p.waiting[promptKey(m)]
	p.mu.Unlock()
	if !ok {
		return nil, errNotEntered
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		return reply, nil
	case <-timer.C:
		return nil, argument.ErrPromptTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deliver hands m to the prompt of its author and reports whether one took
// it. A reply arriving while an earlier one is still unread is dropped.
func (p *prompts) deliver(m message.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.waiting[promptKey(m)]
	if !ok {
		return false
	}
	select {
	case ch <- m:
		return true
	default:
		return false
	}
}

func (p *prompts) IsCommand(ctx context.Context, m message.Message) bool {
	return p.h.resolver.Resolve(ctx, m).Command != nil
}

func (p *prompts) isWaiting(m message.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.waiting[promptKey(m)]
	return ok
}

// Waiting reports whether an argument prompt is waiting for a reply from m's
// author in m's channel.
func (h *Handler) Waiting(m message.Message) bool { return h.prompts.isWaiting(m) }
