package health

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"
)

// lphcAdvertisement is the decoded form of an armeria-lphc response header:
// "<longPollTimeoutSec>, <pingIntervalSec>" (spec.md §4.I, §6).
type lphcAdvertisement struct {
	longPollTimeout time.Duration
	pingInterval    time.Duration
}

// parseLphcHeader decodes an armeria-lphc header value. A malformed value is
// treated as "no advertisement" rather than an error - the probe simply
// behaves as a normal, non-long-polling request.
func parseLphcHeader(v string) (lphcAdvertisement, bool) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return lphcAdvertisement{}, false
	}
	timeoutSec, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	intervalSec, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || timeoutSec < 0 || intervalSec < 0 {
		return lphcAdvertisement{}, false
	}
	return lphcAdvertisement{
		longPollTimeout: time.Duration(timeoutSec) * time.Second,
		pingInterval:    time.Duration(intervalSec) * time.Second,
	}, true
}

// longPollSession watches the 1xx informational frames of a single probe
// request for long-poll keepalive pings, cancelling the request if they stop
// arriving. Its receive-loop shape is grounded on
// joeycumines-go-utilpkg/longpoll.Channel's partial-timeout select loop,
// adapted from "accumulate up to N values then return" to "reset a watchdog
// on every ping, cancel on silence."
type longPollSession struct {
	pingCh chan struct{}
	lphcCh chan lphcAdvertisement

	once sync.Once
}

func newLongPollSession() *longPollSession {
	return &longPollSession{
		pingCh: make(chan struct{}, 1),
		lphcCh: make(chan lphcAdvertisement, 1),
	}
}

// trace builds an httptrace.ClientTrace feeding this session from the
// request's 102 Processing frames. Got1xxResponse is called synchronously by
// the transport, so every send here must be non-blocking.
func (s *longPollSession) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		Got1xxResponse: func(code int, header textproto.MIMEHeader) error {
			if code != http.StatusProcessing {
				return nil
			}
			s.once.Do(func() {
				if v := header.Get("Armeria-Lphc"); v != "" {
					if adv, ok := parseLphcHeader(v); ok {
						select {
						case s.lphcCh <- adv:
						default:
						}
					}
				}
			})
			select {
			case s.pingCh <- struct{}{}:
			default:
			}
			return nil
		},
	}
}

// watch runs until ctx is done or the watchdog fires, cancelling cancel() on
// silence. connectTimeout bounds the wait for a terminal response or the
// first ping before any armeria-lphc advertisement has arrived; once one
// arrives with a positive ping interval, the watchdog becomes
// 2 x pingInterval and resets on every subsequent ping (spec.md §4.I).
func (s *longPollSession) watch(ctx context.Context, cancel context.CancelFunc, connectTimeout time.Duration) {
	watchdog := connectTimeout
	timer := time.NewTimer(watchdog)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case adv := <-s.lphcCh:
			if adv.pingInterval > 0 {
				watchdog = 2 * adv.pingInterval
			}
			resetTimer(timer, watchdog)
		case <-s.pingCh:
			resetTimer(timer, watchdog)
		case <-timer.C:
			cancel()
			return
		}
	}
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
