package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticerpc/core/internal/core/domain"
)

// fakeClock lets tests advance monotonic time deterministically instead of
// sleeping, matching the teacher's fake-ticker style in its health package
// tests.
type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func (c *fakeClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d.Nanoseconds()
	c.mu.Unlock()
}

type countingListener struct {
	mu            sync.Mutex
	stateChanges  []State
	rejections    int
	countUpdates  int
}

func (l *countingListener) OnInitialized(string, State) {}
func (l *countingListener) OnStateChanged(_ string, newState State) {
	l.mu.Lock()
	l.stateChanges = append(l.stateChanges, newState)
	l.mu.Unlock()
}
func (l *countingListener) OnEventCountUpdated(string, domain.EventCount) {
	l.mu.Lock()
	l.countUpdates++
	l.mu.Unlock()
}
func (l *countingListener) OnRequestRejected(string) {
	l.mu.Lock()
	l.rejections++
	l.mu.Unlock()
}

func newTestBreaker(t *testing.T, clock *fakeClock, listener Listener) *Breaker {
	t.Helper()
	cfg := Config{
		Name:                    "test",
		FailureRateThreshold:    0.5,
		MinimumRequestThreshold: 2,
		CircuitOpenWindow:       time.Second,
		TrialRequestInterval:    time.Second,
		CounterSlidingWindow:    10 * time.Second,
		CounterUpdateInterval:   time.Second,
		Now:                     clock.Now,
	}
	return New(cfg, listener, nil)
}

func TestBreaker_OpenThenHalfOpenThenClose(t *testing.T) {
	clock := &fakeClock{}
	listener := &countingListener{}
	b := newTestBreaker(t, clock, listener)

	require.True(t, b.TryRequest())
	b.OnSuccess()
	b.OnFailure()

	clock.Advance(time.Second)
	b.OnFailure()

	assert.False(t, b.TryRequest(), "breaker should be open after hitting the failure rate at minimum threshold")
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(time.Second)
	assert.True(t, b.TryRequest(), "open window elapsed, should admit a half-open trial")
	assert.Equal(t, StateHalfOpen, b.State())

	b.OnSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.TryRequest())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{}
	b := newTestBreaker(t, clock, nil)

	b.Enter(StateHalfOpen)
	require.True(t, b.TryRequest())
	b.OnFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.TryRequest())
}

func TestBreaker_MinimumRequestThreshold(t *testing.T) {
	clock := &fakeClock{}
	b := newTestBreaker(t, clock, nil)

	// Single failure, once its bucket has rolled into the snapshot window:
	// total=1 < minimumRequestThreshold=2, must stay closed even though the
	// observed failure rate is 100%.
	b.OnFailure()
	clock.Advance(time.Second)
	assert.Equal(t, StateClosed, b.State())

	b.OnFailure()
	clock.Advance(time.Second)
	b.OnSuccess() // forces another snapshot/evaluate tick
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenSingleTrialPerInterval(t *testing.T) {
	clock := &fakeClock{}
	b := newTestBreaker(t, clock, nil)
	b.Enter(StateHalfOpen)

	assert.True(t, b.TryRequest(), "first trial in the interval is admitted")
	assert.False(t, b.TryRequest(), "a second trial within the same interval is rejected")

	clock.Advance(time.Second)
	assert.True(t, b.TryRequest(), "a new interval admits exactly one more trial")
}

func TestBreaker_ForcedOpenAlwaysDenies(t *testing.T) {
	clock := &fakeClock{}
	b := newTestBreaker(t, clock, nil)
	b.Enter(StateForcedOpen)

	assert.False(t, b.TryRequest())
	b.OnSuccess()
	assert.Equal(t, StateForcedOpen, b.State(), "forced open never transitions on counters")
}

func TestBreaker_ListenerPanicIsolated(t *testing.T) {
	clock := &fakeClock{}
	panicky := panicListener{}
	counting := &countingListener{}
	b := newTestBreaker(t, clock, panicky)
	b.AddListener(counting)

	assert.NotPanics(t, func() {
		b.Enter(StateOpen)
	})
	assert.Contains(t, counting.stateChanges, StateOpen)
}

type panicListener struct{}

func (panicListener) OnInitialized(string, State)                  {}
func (panicListener) OnStateChanged(string, State)                  { panic("boom") }
func (panicListener) OnEventCountUpdated(string, domain.EventCount) {}
func (panicListener) OnRequestRejected(string)                      {}

func TestBucketRing_SnapshotExcludesHeadBucket(t *testing.T) {
	clock := &fakeClock{}
	ring := newBucketRing(10*time.Second.Nanoseconds(), time.Second.Nanoseconds(), clock.Now)

	ring.onSuccess()
	ring.onSuccess()
	ring.onFailure()

	snap := ring.snapshot()
	assert.Equal(t, int64(0), snap.Total(), "all events are still in the current (head) bucket and excluded from snapshot")

	clock.Advance(time.Second)
	snap = ring.snapshot()
	assert.Equal(t, int64(3), snap.Total())
	assert.Equal(t, int64(2), snap.Success)
	assert.Equal(t, int64(1), snap.Failure)
}
