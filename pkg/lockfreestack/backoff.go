package lockfreestack

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"code.hybscloud.com/iox"
)

// ErrUnknownBackoff is returned by ParseBackoff for names it does not know.
var ErrUnknownBackoff = errors.New("lockfreestack: unknown backoff")

// Backoff is the strategy a pusher applies after a failed CAS. It only
// affects throughput under contention, never which elements end up linked.
type Backoff uint8

const (
	// BackoffNone retries immediately.
	BackoffNone Backoff = iota
	// BackoffSpin spins adaptively with CPU pause hints, then yields.
	BackoffSpin
	// BackoffSleep sleeps with capped linear growth: block n holds n sleeps
	// of n*sleepBackoffBase, never longer than sleepBackoffMax.
	BackoffSleep
)

// Sleep bounds sized to a push, which costs tens of nanoseconds. The iox
// defaults are sized for I/O readiness and start at 500µs.
const (
	sleepBackoffBase = 250 * time.Nanosecond
	sleepBackoffMax  = 8 * time.Microsecond
)

// newSleepBackoff returns the iox backoff used by BackoffSleep.
func newSleepBackoff() iox.Backoff {
	var b iox.Backoff
	b.SetBase(sleepBackoffBase)
	b.SetMax(sleepBackoffMax)
	return b
}

func (b Backoff) String() string {
	switch b {
	case BackoffNone:
		return "none"
	case BackoffSpin:
		return "spin"
	case BackoffSleep:
		return "sleep"
	default:
		return fmt.Sprintf("Backoff(%d)", uint8(b))
	}
}

// ParseBackoff maps "none", "spin" or "sleep" (case-insensitive, empty means
// none) to a Backoff.
func ParseBackoff(s string) (Backoff, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return BackoffNone, nil
	case "spin":
		return BackoffSpin, nil
	case "sleep":
		return BackoffSleep, nil
	}
	return BackoffNone, fmt.Errorf("%w: %q", ErrUnknownBackoff, s)
}
