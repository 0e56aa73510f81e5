// Package ratelimit holds the two single-threaded rate limiters used by the
// timeline: a sequence-tagged debouncer and a leading-edge throttle.
//
// Neither starts goroutines or timers. The debouncer hands out tickets that the
// host turns into a timer of its own (tea.Tick in the TUI) and delivers back
// with Fire; the throttle is driven by the caller's clock.
package ratelimit

import "time"

// Ticket identifies one debounced notification. Only the latest ticket fires.
type Ticket struct {
	Seq   uint64
	After time.Duration
}

type Debouncer struct {
	wait    time.Duration
	seq     uint64
	pending bool
}

func NewDebouncer(wait time.Duration) *Debouncer {
	if wait < 0 {
		wait = 0
	}
	return &Debouncer{wait: wait}
}

// Notify records a new input and supersedes every earlier ticket.
func (d *Debouncer) Notify() Ticket {
	d.seq++
	d.pending = true
	return Ticket{Seq: d.seq, After: d.wait}
}

// Fire reports whether seq is the latest pending ticket, consuming it.
func (d *Debouncer) Fire(seq uint64) bool {
	if !d.pending || seq != d.seq {
		return false
	}
	d.pending = false
	return true
}

// Cancel drops any pending ticket.
func (d *Debouncer) Cancel() {
	d.pending = false
	d.seq++
}

func (d *Debouncer) Pending() bool { return d.pending }

func (d *Debouncer) Wait() time.Duration { return d.wait }

// Throttle allows at most one evaluation per interval. Calls inside the interval
// are dropped, not queued.
type Throttle struct {
	interval time.Duration
	last     time.Time
	primed   bool
}

func NewThrottle(interval time.Duration) *Throttle {
	if interval < 0 {
		interval = 0
	}
	return &Throttle{interval: interval}
}

// Allow reports whether an evaluation may run at now.
func (t *Throttle) Allow(now time.Time) bool {
	if t.primed && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	t.primed = true
	return true
}

// Reset makes the next Allow succeed.
func (t *Throttle) Reset() {
	t.primed = false
}

func (t *Throttle) Interval() time.Duration { return t.interval }
