package zipio

import "time"

// minEmitInterval is the shortest gap between intermediate progress
// reports. The first and last entries bypass it.
const minEmitInterval = 120 * time.Millisecond

// throttle rate-limits progress reporting for large archives. A report
// fires when both enough entries and enough wall time have passed since
// the previous one, plus unconditionally for the first and last entry.
type throttle struct {
	fn       ProgressFunc
	total    int
	minStep  int
	lastIdx  int
	lastTime time.Time
}

func newThrottle(total int, fn ProgressFunc) *throttle {
	step := total / 100
	if step < 1 {
		step = 1
	}
	return &throttle{
		fn:      fn,
		total:   total,
		minStep: step,
		lastIdx: -1,
	}
}

// step reports progress for the 0-based entry index i.
func (t *throttle) step(i int) {
	if t.fn == nil {
		return
	}

	now := time.Now()
	first := i == 0
	last := i == t.total-1
	due := i-t.lastIdx >= t.minStep && now.Sub(t.lastTime) >= minEmitInterval

	if !first && !last && !due {
		return
	}

	t.lastIdx = i
	t.lastTime = now
	t.fn(i+1, t.total)
}
