package breaker

import (
	"go.uber.org/atomic"

	"github.com/latticerpc/core/internal/core/domain"
)

// bucket holds one time-slice's success/failure counts plus the epoch
// (bucket index) it currently represents. A bucket whose epoch is stale
// relative to "now" has not been rolled over yet and is cleared lazily by
// whichever caller notices first.
type bucket struct {
	epoch   atomic.Int64
	success atomic.Int64
	failure atomic.Int64
}

// bucketRing is the sliding-window event counter (spec.md §4.A). It is
// indexed by floor(nowNanos/bucketWidth) mod len(buckets); onSuccess/
// onFailure atomically increment the current bucket's counters (rolling a
// stale bucket over with a CAS on its epoch first), and snapshot sums every
// bucket except the head ("future") slot.
type bucketRing struct {
	buckets     []bucket
	bucketWidth int64
	now         func() int64
}

func newBucketRing(window, bucketWidth int64, now func() int64) *bucketRing {
	n := int(window / bucketWidth)
	if n < 2 {
		n = 2
	}
	return &bucketRing{
		buckets:     make([]bucket, n),
		bucketWidth: bucketWidth,
		now:         now,
	}
}

func (r *bucketRing) index(epoch int64) int {
	n := int64(len(r.buckets))
	m := epoch % n
	if m < 0 {
		m += n
	}
	return int(m)
}

// currentEpoch returns the epoch (bucket number) for "now". It clears
// nothing itself: onSuccess/onFailure roll over at most the one stale
// bucket they write to (bucketFor), and snapshot skips any bucket whose
// stored epoch is not the one it expects instead of clearing it.
func (r *bucketRing) currentEpoch() int64 {
	return r.now() / r.bucketWidth
}

func (r *bucketRing) bucketFor(epoch int64) *bucket {
	b := &r.buckets[r.index(epoch)]
	if old := b.epoch.Load(); old != epoch {
		// Roll over: whoever wins the CAS resets the bucket for the new
		// epoch; losers use the bucket as the winner left it, since a
		// successful CAS by another goroutine means it is already fresh.
		if b.epoch.CompareAndSwap(old, epoch) {
			b.success.Store(0)
			b.failure.Store(0)
		}
	}
	return b
}

func (r *bucketRing) onSuccess() {
	r.bucketFor(r.currentEpoch()).success.Add(1)
}

func (r *bucketRing) onFailure() {
	r.bucketFor(r.currentEpoch()).failure.Add(1)
}

// snapshot sums every bucket whose epoch falls within the current window,
// excluding the head (current, still-filling) slot per spec.md §4.A.
func (r *bucketRing) snapshot() domain.EventCount {
	epoch := r.currentEpoch()
	var count domain.EventCount
	for i := int64(1); i < int64(len(r.buckets)); i++ {
		b := &r.buckets[r.index(epoch-i)]
		if b.epoch.Load() != epoch-i {
			continue
		}
		count.Success += b.success.Load()
		count.Failure += b.failure.Load()
	}
	return count
}

// reset clears every bucket, used when a breaker opens and its counter
// must start clean for the next evaluation window.
func (r *bucketRing) reset() {
	for i := range r.buckets {
		r.buckets[i].epoch.Store(0)
		r.buckets[i].success.Store(0)
		r.buckets[i].failure.Store(0)
	}
}
