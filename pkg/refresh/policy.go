package refresh

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Interval bounds.
const (
	// MinInterval is the shortest refresh interval.
	MinInterval = 100 * time.Millisecond

	// MaxInterval is the longest refresh interval.
	MaxInterval = 5 * time.Second

	// DefaultInterval is the interval of DefaultPolicy.
	DefaultInterval = time.Second

	// IntervalStep is the granularity of PolicyFromSeconds.
	IntervalStep = 100 * time.Millisecond
)

// ErrInvalidInterval is returned for intervals outside the allowed range.
var ErrInvalidInterval = errors.New("invalid refresh interval")

// Policy configures automatic refresh.
type Policy struct {
	// Enabled turns periodic ticks on.
	Enabled bool

	// Interval is the tick period.
	Interval time.Duration
}

// DefaultPolicy returns auto-refresh off at one second.
func DefaultPolicy() Policy {
	return Policy{Enabled: false, Interval: DefaultInterval}
}

// PolicyFromSeconds builds a policy from a seconds value, rounded to the
// nearest IntervalStep.
func PolicyFromSeconds(enabled bool, secs float64) (Policy, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return Policy{}, fmt.Errorf("%w: %v", ErrInvalidInterval, secs)
	}
	steps := math.Round(secs * float64(time.Second/IntervalStep))
	p := Policy{Enabled: enabled, Interval: time.Duration(steps) * IntervalStep}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the interval range. The interval is checked even when the
// policy is disabled so that enabling it later cannot fail.
func (p Policy) Validate() error {
	if p.Interval < MinInterval || p.Interval > MaxInterval {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidInterval, p.Interval, MinInterval, MaxInterval)
	}
	return nil
}

// Seconds returns the interval in seconds.
func (p Policy) Seconds() float64 {
	return p.Interval.Seconds()
}

// String returns a short description like "on 1.5s".
func (p Policy) String() string {
	state := "off"
	if p.Enabled {
		state = "on"
	}
	return fmt.Sprintf("%s %s", state, p.Interval)
}
