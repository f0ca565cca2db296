// Package lockset tracks keys of in-flight command runs so that only one run
// per key (guild, channel, user or custom) is active at a time.
package lockset

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Set is a set of held keys. It is safe for concurrent use.
type Set struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func New() *Set {
	return &Set{keys: make(map[string]struct{})}
}

// Acquire adds key and reports whether it was free.
func (s *Set) Acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.keys[key]; held {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Release drops key. Releasing a free key is a no-op.
func (s *Set) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

func (s *Set) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.keys[key]
	return held
}

// List returns the held keys, sorted.
func (s *Set) List() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of held keys.
//
//	"Locked: c1, c2"
//
// If none are held: "Nothing is locked."
func (s *Set) Status() string {
	held := s.List()
	if len(held) == 0 {
		return "Nothing is locked."
	}
	return fmt.Sprintf("Locked: %s", strings.Join(held, ", "))
}

// Group holds one Set per command ID.
type Group struct {
	mu   sync.Mutex
	sets map[string]*Set
}

func NewGroup() *Group {
	return &Group{sets: make(map[string]*Set)}
}

// For returns the set for commandID, creating it on first use.
func (g *Group) For(commandID string) *Set {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sets[commandID]
	if !ok {
		s = New()
		g.sets[commandID] = s
	}
	return s
}
