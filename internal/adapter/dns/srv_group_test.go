package dns

import (
	"testing"
	"time"

	miekgdns "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSRVGroup_DecodesTargetsAndWeights(t *testing.T) {
	addr := startTestServer(t, func(w miekgdns.ResponseWriter, req *miekgdns.Msg) {
		msg := new(miekgdns.Msg)
		msg.SetReply(req)
		msg.Answer = []miekgdns.RR{
			srvRecord("foo.com.", "a.foo.com.", 1, 1, 2, 30),
			srvRecord("foo.com.", "b.foo.com.", 1, 3, 4, 30),
		}
		_ = w.WriteMsg(msg)
	})

	r := NewResolver(testResolverConfig(addr))
	g := NewSRVGroup(r, "foo.com", 200*time.Millisecond)
	defer g.Close()

	waitForSnapshot(t, g, 2)
	snap := g.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a.foo.com", snap[0].Host)
	assert.Equal(t, 2, snap[0].Port)
	assert.Equal(t, 1, snap[0].Weight)
	assert.Equal(t, "b.foo.com", snap[1].Host)
	assert.Equal(t, 4, snap[1].Port)
	assert.Equal(t, 3, snap[1].Weight)
}

func TestSRVGroup_IgnoresMalformedRecords(t *testing.T) {
	addr := startTestServer(t, func(w miekgdns.ResponseWriter, req *miekgdns.Msg) {
		msg := new(miekgdns.Msg)
		msg.SetReply(req)
		msg.Answer = []miekgdns.RR{
			srvRecord("foo.com.", "", 1, 1, 0, 30), // malformed: no target, no port
			srvRecord("foo.com.", "good.foo.com.", 1, 1, 9, 30),
		}
		_ = w.WriteMsg(msg)
	})

	r := NewResolver(testResolverConfig(addr))
	g := NewSRVGroup(r, "foo.com", 200*time.Millisecond)
	defer g.Close()

	waitForSnapshot(t, g, 1)
	snap := g.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "good.foo.com", snap[0].Host)
}
