package quiz

import (
	"sync"
	"time"
)

// CooldownTracker holds named, self-expiring cooldowns for one channel.
// Entries remove themselves at expiry; there is no explicit clear.
type CooldownTracker struct {
	mu      sync.Mutex
	entries map[string]*cooldown
}

type cooldown struct {
	end   time.Time
	timer *time.Timer
}

func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{entries: make(map[string]*cooldown)}
}

// Set arms (or re-arms) the named cooldown for the given duration. An
// existing entry of the same name is overwritten and its timer restarted.
func (t *CooldownTracker) Set(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.entries[name]; ok {
		old.timer.Stop()
	}
	c := &cooldown{end: time.Now().Add(d)}
	// The expiry callback only deletes the entry it was armed for, so a
	// stale timer racing with an overwrite cannot clobber the newer entry.
	c.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.entries[name] == c {
			delete(t.entries, name)
		}
		t.mu.Unlock()
	})
	t.entries[name] = c
}

// Has reports whether an unexpired cooldown with the given name exists.
func (t *CooldownTracker) Has(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.entries[name]
	return ok && time.Now().Before(c.end)
}

// Remaining returns the time left on the named cooldown, or zero if it is
// not set or already expired.
func (t *CooldownTracker) Remaining(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.entries[name]
	if !ok {
		return 0
	}
	if left := time.Until(c.end); left > 0 {
		return left
	}
	return 0
}
