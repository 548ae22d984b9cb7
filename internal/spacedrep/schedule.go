package spacedrep

import (
	"fmt"
	"time"
)

// NumBoxes is the number of Leitner boxes.
const NumBoxes = 5

// MaxBox is the highest box. Entries here are mastered but stay in rotation.
const MaxBox = NumBoxes - 1

// Intervals maps each box to the delay before its next review.
// Values must be positive and strictly increasing.
type Intervals [NumBoxes]time.Duration

// DefaultIntervals is the stock schedule: 10 minutes, then 1, 3, 7 and 21 days.
var DefaultIntervals = Intervals{
	10 * time.Minute,
	24 * time.Hour,
	3 * 24 * time.Hour,
	7 * 24 * time.Hour,
	21 * 24 * time.Hour,
}

// Validate checks that every interval is positive and longer than the one
// for the box below it.
func (iv Intervals) Validate() error {
	for b, d := range iv {
		if d <= 0 {
			return fmt.Errorf("%w: interval for box %d must be positive, got %s", ErrInvalidArgument, b, d)
		}
		if b > 0 && d <= iv[b-1] {
			return fmt.Errorf("%w: interval for box %d (%s) must exceed box %d (%s)",
				ErrInvalidArgument, b, d, b-1, iv[b-1])
		}
	}
	return nil
}

// For returns the interval for box, clamping out-of-range boxes.
func (iv Intervals) For(box int) time.Duration {
	return iv[clampBox(box)]
}

// ParseIntervals converts duration strings such as "10m" or "72h" into a
// validated schedule. Exactly NumBoxes values are required.
func ParseIntervals(values []string) (Intervals, error) {
	var iv Intervals
	if len(values) != NumBoxes {
		return iv, fmt.Errorf("%w: need %d intervals, got %d", ErrInvalidArgument, NumBoxes, len(values))
	}
	for i, v := range values {
		d, err := time.ParseDuration(v)
		if err != nil {
			return iv, fmt.Errorf("%w: interval %d: %v", ErrInvalidArgument, i, err)
		}
		iv[i] = d
	}
	if err := iv.Validate(); err != nil {
		return iv, err
	}
	return iv, nil
}

func clampBox(box int) int {
	if box < 0 {
		return 0
	}
	if box > MaxBox {
		return MaxBox
	}
	return box
}
