package feed

import (
	"math"
	"time"
)

// Backoff computes reconnect delays of Base * 2^attempt, capped at Max when
// Max > 0.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before reconnect number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := b.Base
	for i := 0; i < attempt; i++ {
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
	}

	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
