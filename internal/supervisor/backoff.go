package supervisor

import (
	"math/rand"
	"time"
)

// backoff tracks the restart delay for one scanner. The first failure waits
// the initial delay; each subsequent failure doubles it up to the cap, plus
// uniform jitter in [0, delay) so a fleet never restarts in lockstep. A run
// that stays up for the restart window resets the sequence.
type backoff struct {
	initial time.Duration
	max     time.Duration
	window  time.Duration

	current time.Duration
	// jitter is injectable for tests; defaults to rand.Int63n.
	jitter func(n int64) int64
}

func newBackoff(initial, max, window time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		window:  window,
		jitter:  rand.Int63n,
	}
}

// next returns the delay before the next restart attempt. uptime is how long
// the just-exited run lasted.
func (b *backoff) next(uptime time.Duration) time.Duration {
	if uptime >= b.window {
		b.current = 0
	}

	if b.current == 0 {
		b.current = b.initial
	} else {
		b.current *= 2
		if b.current > b.max {
			b.current = b.max
		}
	}

	return b.current + time.Duration(b.jitter(int64(b.current)))
}

// reset clears the sequence so the next failure starts at the initial delay.
func (b *backoff) reset() {
	b.current = 0
}
