package cooldown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_RatelimitWithinWindow(t *testing.T) {
	tr := New()
	defer tr.Stop()
	at := time.Now()

	blocked, _ := tr.Check("u", "ping", time.Second, 2, at)
	assert.False(t, blocked)
	blocked, _ = tr.Check("u", "ping", time.Second, 2, at.Add(100*time.Millisecond))
	assert.False(t, blocked)

	blocked, remaining := tr.Check("u", "ping", time.Second, 2, at.Add(300*time.Millisecond))
	assert.True(t, blocked)
	assert.Equal(t, 700*time.Millisecond, remaining)

	e, ok := tr.Entry("u", "ping")
	require.True(t, ok)
	assert.Equal(t, 2, e.Uses, "blocked use is not counted")
}

func TestCheck_SeparateUsersAndCommands(t *testing.T) {
	tr := New()
	defer tr.Stop()
	at := time.Now()

	blocked, _ := tr.Check("a", "ping", time.Minute, 1, at)
	assert.False(t, blocked)
	blocked, _ = tr.Check("b", "ping", time.Minute, 1, at)
	assert.False(t, blocked)
	blocked, _ = tr.Check("a", "roll", time.Minute, 0, at)
	assert.False(t, blocked)
	blocked, _ = tr.Check("a", "roll", time.Minute, 0, at)
	assert.True(t, blocked, "ratelimit defaults to one")
	assert.Equal(t, 2, tr.Len())
}

func TestCheck_WindowExpires(t *testing.T) {
	tr := New()
	defer tr.Stop()

	blocked, _ := tr.Check("u", "ping", 20*time.Millisecond, 1, time.Now())
	require.False(t, blocked)

	require.Eventually(t, func() bool { return tr.Len() == 0 }, time.Second, 5*time.Millisecond)

	blocked, _ = tr.Check("u", "ping", 20*time.Millisecond, 1, time.Now())
	assert.False(t, blocked)
}

func TestCheck_StaleWindowResets(t *testing.T) {
	tr := New()
	defer tr.Stop()
	at := time.Now()

	tr.Check("u", "ping", time.Hour, 1, at)
	blocked, _ := tr.Check("u", "ping", time.Hour, 1, at.Add(2*time.Hour))
	assert.False(t, blocked)
}

func TestCheck_ZeroWindowNeverBlocks(t *testing.T) {
	tr := New()
	for i := 0; i < 3; i++ {
		blocked, _ := tr.Check("u", "ping", 0, 1, time.Now())
		assert.False(t, blocked)
	}
	assert.Zero(t, tr.Len())
}

func TestCheck_Concurrent(t *testing.T) {
	tr := New()
	defer tr.Stop()
	at := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if blocked, _ := tr.Check("u", "ping", time.Minute, 5, at); !blocked {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}
