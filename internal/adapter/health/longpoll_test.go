package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLphcHeader_Valid(t *testing.T) {
	adv, ok := parseLphcHeader("30, 10")
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, adv.longPollTimeout)
	assert.Equal(t, 10*time.Second, adv.pingInterval)
}

func TestParseLphcHeader_DisablesLongPollingOnZeroInterval(t *testing.T) {
	adv, ok := parseLphcHeader("30, 0")
	assert.True(t, ok)
	assert.Zero(t, adv.pingInterval)
}

func TestParseLphcHeader_Malformed(t *testing.T) {
	for _, v := range []string{"", "garbage", "30", "30,10,5", "x, y"} {
		_, ok := parseLphcHeader(v)
		assert.False(t, ok, "expected %q to be rejected", v)
	}
}

func TestLongPollSession_CancelsAfterSilence(t *testing.T) {
	s := newLongPollSession()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelled := make(chan struct{})
	watchCtx, watchCancel := context.WithCancel(ctx)
	go s.watch(watchCtx, func() { watchCancel(); close(cancelled) }, 20*time.Millisecond)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not cancel after silence")
	}
}

func TestLongPollSession_PingsResetTheWatchdog(t *testing.T) {
	s := newLongPollSession()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelled := make(chan struct{})
	watchCtx, watchCancel := context.WithCancel(ctx)
	go s.watch(watchCtx, func() { watchCancel(); close(cancelled) }, 40*time.Millisecond)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case s.pingCh <- struct{}{}:
				default:
				}
			}
		}
	}()

	select {
	case <-cancelled:
		close(stop)
		t.Fatal("watchdog fired despite steady pings")
	case <-time.After(150 * time.Millisecond):
		close(stop)
	}
}
