// Package inhibitor runs the checks that may block a message or a command.
//
// Inhibitors belong to one of three phases. "all" and "pre" run before
// command resolution and see no command; "post" runs once a command is known,
// together with the built-in restriction checks.
package inhibitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

type Phase string

const (
	PhaseAll  Phase = "all"
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

func (p Phase) Valid() bool {
	return p == PhaseAll || p == PhasePre || p == PhasePost
}

// TestFunc reports whether m (and c, in the post phase) should be blocked.
type TestFunc func(ctx context.Context, m message.Message, c *cmd.Command) (bool, error)

type Inhibitor struct {
	ID       string
	Reason   string
	Phase    Phase
	Priority int
	Test     TestFunc
}

// Block describes why something was blocked.
type Block struct {
	Reason    string
	Inhibitor string
	// PermissionType is "client" or "user" for permission blocks, with the
	// missing permission names in Missing.
	PermissionType string
	Missing        []string
}

// IsPermission reports whether the block came from a permission check.
func (b *Block) IsPermission() bool { return b.PermissionType != "" }

var (
	ErrDuplicateInhibitor = errors.New("duplicate inhibitor id")
	ErrUnknownPhase       = errors.New("unknown inhibitor phase")
)

// Chain holds the registered inhibitors. It is safe for concurrent use.
type Chain struct {
	mu           sync.RWMutex
	list         []*Inhibitor
	builtins     *Builtins
	builtinsLast bool
}

func NewChain() *Chain { return &Chain{} }

// Add registers inh. Registration order breaks priority ties.
func (ch *Chain) Add(inh Inhibitor) error {
	if inh.ID == "" || inh.Test == nil {
		return fmt.Errorf("inhibitor %q: id and test are required", inh.ID)
	}
	if !inh.Phase.Valid() {
		return fmt.Errorf("inhibitor %q: %w: %q", inh.ID, ErrUnknownPhase, inh.Phase)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	for _, existing := range ch.list {
		if existing.ID == inh.ID {
			return fmt.Errorf("%w: %q", ErrDuplicateInhibitor, inh.ID)
		}
	}
	ch.list = append(ch.list, &inh)
	return nil
}

// Remove drops the inhibitor with the given id.
func (ch *Chain) Remove(id string) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for i, inh := range ch.list {
		if inh.ID == id {
			ch.list = append(ch.list[:i], ch.list[i+1:]...)
			return true
		}
	}
	return false
}

// SetBuiltins installs the built-in post checks. With last set they run after
// the custom post inhibitors instead of before.
func (ch *Chain) SetBuiltins(b *Builtins, last bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.builtins = b
	ch.builtinsLast = last
}

func (ch *Chain) phase(p Phase) []*Inhibitor {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	var out []*Inhibitor
	for _, inh := range ch.list {
		if inh.Phase == p {
			out = append(out, inh)
		}
	}
	return out
}

// Test runs every inhibitor of phase concurrently and waits for all of them.
// Among the ones that block, the highest priority wins and ties go to the
// earliest registered. A nil Block means nothing blocked.
func (ch *Chain) Test(ctx context.Context, phase Phase, m message.Message, c *cmd.Command) (*Block, error) {
	list := ch.phase(phase)
	if len(list) == 0 {
		return nil, nil
	}

	blocked := make([]bool, len(list))
	g, gctx := errgroup.WithContext(ctx)
	for i, inh := range list {
		g.Go(func() error {
			ok, err := inh.Test(gctx, m, c)
			if err != nil {
				return fmt.Errorf("inhibitor %q: %w", inh.ID, err)
			}
			blocked[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var winner *Inhibitor
	for i, inh := range list {
		if blocked[i] && (winner == nil || inh.Priority > winner.Priority) {
			winner = inh
		}
	}
	if winner == nil {
		return nil, nil
	}
	return &Block{Reason: winner.Reason, Inhibitor: winner.ID}, nil
}

// Post runs the post phase for c: built-in checks and custom post inhibitors
// in the configured order.
func (ch *Chain) Post(ctx context.Context, m message.Message, c *cmd.Command) (*Block, error) {
	ch.mu.RLock()
	b, last := ch.builtins, ch.builtinsLast
	ch.mu.RUnlock()

	builtin := func() (*Block, error) {
		if b == nil {
			return nil, nil
		}
		return b.Test(ctx, m, c)
	}
	custom := func() (*Block, error) {
		return ch.Test(ctx, PhasePost, m, c)
	}

	first, second := builtin, custom
	if last {
		first, second = custom, builtin
	}
	if blk, err := first(); blk != nil || err != nil {
		return blk, err
	}
	return second()
}
