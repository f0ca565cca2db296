// Package cooldown tracks per-user command usage windows.
//
// The first use of a command by a user opens a window of the command's
// cooldown duration. Up to ratelimit uses are allowed inside the window; a
// timer drops the entry when the window ends.
package cooldown

import (
	"sync"
	"time"
)

// Entry is one open usage window.
type Entry struct {
	End  time.Time
	Uses int

	timer *time.Timer
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	users map[string]map[string]*Entry
}

func New() *Tracker {
	return &Tracker{users: make(map[string]map[string]*Entry)}
}

// Check records a use of commandID by userID at the given time. It returns
// true with the time left in the window when the use is over the limit; a
// blocked use is not counted.
func (t *Tracker) Check(userID, commandID string, window time.Duration, ratelimit int, at time.Time) (bool, time.Duration) {
	if window <= 0 {
		return false, 0
	}
	if ratelimit <= 0 {
		ratelimit = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket, ok := t.users[userID]
	if !ok {
		bucket = make(map[string]*Entry)
		t.users[userID] = bucket
	}

	entry, ok := bucket[commandID]
	if ok && !at.Before(entry.End) {
		// The timer has not fired yet but the window is over.
		entry.timer.Stop()
		ok = false
	}
	if !ok {
		entry = &Entry{End: at.Add(window)}
		entry.timer = time.AfterFunc(window, func() { t.expire(userID, commandID, entry) })
		bucket[commandID] = entry
	}

	if entry.Uses >= ratelimit {
		return true, entry.End.Sub(at)
	}
	entry.Uses++
	return false, 0
}

func (t *Tracker) expire(userID, commandID string, entry *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.users[userID]
	if bucket[commandID] != entry {
		return
	}
	delete(bucket, commandID)
	if len(bucket) == 0 {
		delete(t.users, userID)
	}
}

// Entry returns a copy of the open window for userID and commandID.
func (t *Tracker) Entry(userID, commandID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.users[userID][commandID]
	if !ok {
		return Entry{}, false
	}
	return Entry{End: e.End, Uses: e.Uses}, true
}

// Len returns the number of users with at least one open window.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}

// Stop cancels every timer and forgets all windows.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, bucket := range t.users {
		for _, e := range bucket {
			e.timer.Stop()
		}
	}
	t.users = make(map[string]map[string]*Entry)
}
