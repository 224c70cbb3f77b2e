package breaker

import (
	"math"
	"sync"

	"go.uber.org/atomic"

	"github.com/latticerpc/core/internal/core/domain"
)

// noTrialYet is the lastTrial sentinel meaning "no HALF_OPEN trial has been
// admitted yet". Using 0 here would reject the very first trial whenever
// Now() starts at or near zero (e.g. a fake clock in tests).
const noTrialYet = math.MinInt64 / 2

// State is one of the breaker's four states (spec.md §4.B).
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
	StateForcedOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateForcedOpen:
		return "FORCED_OPEN"
	default:
		return "CLOSED"
	}
}

// Listener receives breaker lifecycle callbacks. Every callback fires
// exactly once per event in dispatch order; a Listener that panics only
// affects its own dispatch - Breaker recovers and logs, per spec.md §4.B.
// Callbacks run synchronously on the dispatching goroutine, so a Listener
// that blocks also holds up the listeners after it and the breaker call
// that dispatched the event.
type Listener interface {
	OnInitialized(name string, state State)
	OnStateChanged(name string, newState State)
	OnEventCountUpdated(name string, count domain.EventCount)
	OnRequestRejected(name string)
}

// Logger is the narrow slice of *logger.StyledLogger this package needs,
// kept as an interface so breaker has no import-time dependency on the
// logging adapter.
type Logger interface {
	Warn(msg string, args ...any)
}

// Breaker is a single circuit breaker instance: one sliding-window counter
// plus the four-state machine it drives (spec.md §4.A-B).
type Breaker struct {
	cfg  Config
	ring *bucketRing
	log  Logger

	listenersMu sync.Mutex
	listeners   []Listener

	state     atomic.Int32
	openedAt  atomic.Int64
	trialOpen atomic.Bool // never written; HALF_OPEN trials are gated by lastTrial
	lastTrial atomic.Int64
	initOnce  atomic.Bool
}

// New constructs a Breaker. listener and log may be nil; a nil listener
// means callbacks are simply not dispatched, and a nil log disables
// listener-panic warnings. Additional listeners can be attached later via
// AddListener.
func New(cfg Config, listener Listener, log Logger) *Breaker {
	cfg = cfg.withDefaults()
	b := &Breaker{
		cfg: cfg,
		ring: newBucketRing(cfg.CounterSlidingWindow.Nanoseconds(), cfg.CounterUpdateInterval.Nanoseconds(), cfg.Now),
		log: log,
	}
	b.state.Store(int32(StateClosed))
	b.lastTrial.Store(noTrialYet)
	if listener != nil {
		b.listeners = append(b.listeners, listener)
	}
	b.dispatchInitialized()
	return b
}

// AddListener attaches another Listener, invoking OnInitialized on it
// immediately with the breaker's current state so late subscribers observe
// a consistent lifecycle (spec.md §6 addListener).
func (b *Breaker) AddListener(l Listener) {
	b.listenersMu.Lock()
	b.listeners = append(b.listeners, l)
	b.listenersMu.Unlock()
	b.safeCallOn(l, func() { l.OnInitialized(b.cfg.Name, b.State()) })
}

func (b *Breaker) dispatchInitialized() {
	if b.initOnce.CompareAndSwap(false, true) {
		b.broadcast(func(l Listener) { l.OnInitialized(b.cfg.Name, b.State()) })
	}
}

// Name returns the breaker's configured name.
func (b *Breaker) Name() string { return b.cfg.Name }

// State returns the breaker's current state.
func (b *Breaker) State() State {
	return State(b.state.Load())
}

// TryRequest reports whether a request should be admitted, transitioning
// OPEN->HALF_OPEN when the open window has elapsed (spec.md §4.B).
func (b *Breaker) TryRequest() bool {
	switch b.State() {
	case StateForcedOpen:
		b.reject()
		return false
	case StateClosed:
		return true
	case StateHalfOpen:
		return b.admitTrial()
	case StateOpen:
		return b.tryHalfOpenTransition()
	default:
		return false
	}
}

func (b *Breaker) tryHalfOpenTransition() bool {
	now := b.cfg.Now()
	if now-b.openedAt.Load() < b.cfg.CircuitOpenWindow.Nanoseconds() {
		b.reject()
		return false
	}
	if b.state.CompareAndSwap(int32(StateOpen), int32(StateHalfOpen)) {
		b.lastTrial.Store(noTrialYet)
		b.dispatchStateChanged(StateHalfOpen)
		return b.admitTrial()
	}
	// Lost the race to another goroutine that already flipped the state;
	// re-evaluate against whatever state won.
	return b.TryRequest()
}

// admitTrial allows exactly one trial per TrialRequestInterval while
// HALF_OPEN (spec.md §8 "HALF_OPEN single-trial").
func (b *Breaker) admitTrial() bool {
	now := b.cfg.Now()
	last := b.lastTrial.Load()
	if now-last < b.cfg.TrialRequestInterval.Nanoseconds() {
		b.reject()
		return false
	}
	if b.lastTrial.CompareAndSwap(last, now) {
		return true
	}
	b.reject()
	return false
}

func (b *Breaker) reject() {
	b.broadcast(func(l Listener) { l.OnRequestRejected(b.cfg.Name) })
}

// OnSuccess records a successful call. In HALF_OPEN a single success closes
// the breaker; in CLOSED it only updates the counter.
func (b *Breaker) OnSuccess() {
	count := b.recordAndSnapshot(true)
	switch b.State() {
	case StateHalfOpen:
		if b.state.CompareAndSwap(int32(StateHalfOpen), int32(StateClosed)) {
			b.ring.reset()
			b.dispatchStateChanged(StateClosed)
		}
	case StateClosed:
		b.evaluateCountUpdate(count)
	}
}

// OnFailure records a failed call. In HALF_OPEN a single failure reopens
// the breaker; in CLOSED the rate rule is evaluated.
func (b *Breaker) OnFailure() {
	count := b.recordAndSnapshot(false)
	switch b.State() {
	case StateHalfOpen:
		if b.state.CompareAndSwap(int32(StateHalfOpen), int32(StateOpen)) {
			b.openedAt.Store(b.cfg.Now())
			b.ring.reset()
			b.dispatchStateChanged(StateOpen)
		}
	case StateClosed:
		b.evaluateCountUpdate(count)
	}
}

func (b *Breaker) recordAndSnapshot(success bool) domain.EventCount {
	if success {
		b.ring.onSuccess()
	} else {
		b.ring.onFailure()
	}
	count := b.ring.snapshot()
	b.broadcast(func(l Listener) { l.OnEventCountUpdated(b.cfg.Name, count) })
	return count
}

// evaluateCountUpdate applies the CLOSED->OPEN rule on every counter update
// (spec.md §4.B): total >= minimumRequestThreshold AND failureRate >=
// failureRateThreshold.
func (b *Breaker) evaluateCountUpdate(count domain.EventCount) {
	if count.Total() < b.cfg.MinimumRequestThreshold {
		return
	}
	rate, err := count.FailureRate()
	if err != nil || rate < b.cfg.FailureRateThreshold {
		return
	}
	if b.state.CompareAndSwap(int32(StateClosed), int32(StateOpen)) {
		b.openedAt.Store(b.cfg.Now())
		b.ring.reset()
		b.dispatchStateChanged(StateOpen)
	}
}

func (b *Breaker) dispatchStateChanged(newState State) {
	b.broadcast(func(l Listener) { l.OnStateChanged(b.cfg.Name, newState) })
}

// Enter forces the breaker into the given state, used for FORCED_OPEN
// admin control (spec.md §9a: FORCED_OPEN is admin-only, never reached by
// counter evaluation).
func (b *Breaker) Enter(state State) {
	old := State(b.state.Swap(int32(state)))
	if old != state {
		switch state {
		case StateClosed:
			b.ring.reset()
		case StateHalfOpen:
			b.lastTrial.Store(noTrialYet)
		}
		b.dispatchStateChanged(state)
	}
}

// broadcast dispatches fn to every attached listener in subscription order,
// isolating a panicking listener from the rest (spec.md §4.B "callback
// failures are caught and logged but never propagate").
func (b *Breaker) broadcast(fn func(Listener)) {
	b.listenersMu.Lock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.listenersMu.Unlock()

	for _, l := range listeners {
		b.safeCallOn(l, func() { fn(l) })
	}
}

func (b *Breaker) safeCallOn(l Listener, fn func()) {
	if l == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Warn("breaker listener callback panicked", "breaker", b.cfg.Name, "panic", r)
		}
	}()
	fn()
}

// Close releases no resources on its own (Breaker owns no timers), but is
// provided for symmetry with the other components' AsyncCloseable contract
// and idempotence requirement. It clears all listeners so events
// dispatched after Close reach no listener; a broadcast already in
// progress still completes against the listeners it started with.
func (b *Breaker) Close() error {
	b.listenersMu.Lock()
	b.listeners = nil
	b.listenersMu.Unlock()
	return nil
}
