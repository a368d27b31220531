package breaker

import (
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker guards the event stream writer. After threshold consecutive failed
// writes it rejects publishes for openFor, then lets a single probe through.
type Breaker struct {
	mu            sync.Mutex
	st            State
	fails         int
	threshold     int
	openFor       time.Duration
	retryAt       time.Time
	probeInFlight bool
	now           func() time.Time
	onChange      func(from, to State)
}

func New(threshold int, openFor time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if openFor <= 0 {
		openFor = 15 * time.Second
	}
	return &Breaker{threshold: threshold, openFor: openFor, now: time.Now}
}

// OnStateChange registers fn to run after every transition. fn runs outside
// the breaker lock.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Allow reports whether a write may proceed, claiming the probe slot once the
// open window has passed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	from := b.st
	ok := false
	switch b.st {
	case Open:
		if b.now().After(b.retryAt) && !b.probeInFlight {
			b.st = HalfOpen
			b.probeInFlight = true
			ok = true
		}
	case HalfOpen:
		if !b.probeInFlight {
			b.probeInFlight = true
			ok = true
		}
	default:
		ok = true
	}
	b.unlockNotify(from)
	return ok
}

// Open reports whether writes are currently being rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st != Closed
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	from := b.st
	b.fails = 0
	b.st = Closed
	b.probeInFlight = false
	b.unlockNotify(from)
}

func (b *Breaker) OnFailure() {
	b.mu.Lock()
	from := b.st
	switch {
	case b.st == HalfOpen:
		b.trip()
	default:
		b.fails++
		if b.fails >= b.threshold {
			b.trip()
		}
	}
	b.unlockNotify(from)
}

func (b *Breaker) trip() {
	b.st = Open
	b.retryAt = b.now().Add(b.openFor)
	b.probeInFlight = false
}

// unlockNotify releases the lock and reports a transition away from from.
func (b *Breaker) unlockNotify(from State) {
	to, fn := b.st, b.onChange
	b.mu.Unlock()
	if fn != nil && to != from {
		fn(from, to)
	}
}
