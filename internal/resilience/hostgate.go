package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrHostBlocked is returned when a host has failed too often and is in its
// cooldown window.
var ErrHostBlocked = eris.New("host temporarily blocked after repeated failures")

// HostGate tracks consecutive fetch failures per host and blocks a host for
// a cooldown once it crosses the threshold, so a site that times out over
// and over stops delaying the rest of the batch.
type HostGate struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu    sync.Mutex
	state map[string]*hostState
}

type hostState struct {
	failures     int
	blockedUntil time.Time
}

// NewHostGate creates a gate that blocks a host for cooldown after
// threshold consecutive failures.
func NewHostGate(threshold int, cooldown time.Duration) *HostGate {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &HostGate{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		state:     make(map[string]*hostState),
	}
}

// Allow reports whether a fetch to host may proceed.
func (g *HostGate) Allow(host string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.state[host]
	if !ok {
		return nil
	}
	if g.now().Before(st.blockedUntil) {
		return ErrHostBlocked
	}
	return nil
}

// Report records the outcome of a fetch. A success resets the host's
// failure count; crossing the threshold starts the cooldown.
func (g *HostGate) Report(host string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.state, host)
		return
	}
	st, ok := g.state[host]
	if !ok {
		st = &hostState{}
		g.state[host] = st
	}
	st.failures++
	if st.failures >= g.threshold {
		st.blockedUntil = g.now().Add(g.cooldown)
		st.failures = 0
	}
}
