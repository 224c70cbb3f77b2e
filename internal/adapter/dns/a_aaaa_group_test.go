package dns

import (
	"net"
	"testing"
	"time"

	miekgdns "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticerpc/core/internal/core/domain"
)

func TestAAAAGroup_IPv4Only(t *testing.T) {
	addr := startTestServer(t, func(w miekgdns.ResponseWriter, req *miekgdns.Msg) {
		msg := new(miekgdns.Msg)
		msg.SetReply(req)
		switch req.Question[0].Qtype {
		case miekgdns.TypeA:
			msg.Answer = []miekgdns.RR{aRecord("foo.com.", "1.1.1.1", 30)}
		case miekgdns.TypeAAAA:
			msg.Answer = []miekgdns.RR{aaaaRecord("foo.com.", "::1", 30)}
		}
		_ = w.WriteMsg(msg)
	})

	r := NewResolver(testResolverConfig(addr))
	g := NewAAAAGroup(r, "foo.com", 8080, IPv4Only, 200*time.Millisecond)
	defer g.Close()

	waitForSnapshot(t, g, 1)
	snap := g.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "1.1.1.1", snap[0].IPAddr)
}

func TestAAAAGroup_IPv4PreferredOrdersV4Before6(t *testing.T) {
	addr := startTestServer(t, func(w miekgdns.ResponseWriter, req *miekgdns.Msg) {
		msg := new(miekgdns.Msg)
		msg.SetReply(req)
		switch req.Question[0].Qtype {
		case miekgdns.TypeA:
			msg.Answer = []miekgdns.RR{aRecord("foo.com.", "1.1.1.1", 30)}
		case miekgdns.TypeAAAA:
			msg.Answer = []miekgdns.RR{aaaaRecord("foo.com.", "::1", 30)}
		}
		_ = w.WriteMsg(msg)
	})

	r := NewResolver(testResolverConfig(addr))
	g := NewAAAAGroup(r, "foo.com", 8080, IPv4Preferred, 200*time.Millisecond)
	defer g.Close()

	waitForSnapshot(t, g, 2)
	snap := g.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "1.1.1.1", snap[0].IPAddr)
	assert.Equal(t, "::1", snap[1].IPAddr)
}

func TestAAAAGroup_EmptyResponseStaysEmptyAndRetries(t *testing.T) {
	addr := startTestServer(t, func(w miekgdns.ResponseWriter, req *miekgdns.Msg) {
		msg := new(miekgdns.Msg)
		msg.SetReply(req)
		_ = w.WriteMsg(msg)
	})

	cfg := testResolverConfig(addr)
	cfg.NegativeTTL = 10 * time.Millisecond
	r := NewResolver(cfg)
	g := NewAAAAGroup(r, "nowhere.com", 80, IPv4Preferred, 50*time.Millisecond)
	defer g.Close()

	<-g.WhenReady()
	assert.Empty(t, g.Snapshot())
}

func TestNormalizeIPv6_MapsV4MappedAddress(t *testing.T) {
	assert.Equal(t, "10.0.0.1", normalizeIPv6(mustParseIP("::ffff:10.0.0.1")))
}

func TestNormalizeIPv6_LeavesNativeV6Alone(t *testing.T) {
	assert.Equal(t, "2001:db8::1", normalizeIPv6(mustParseIP("2001:db8::1")))
}

type snapshotter interface {
	Snapshot() []*domain.Endpoint
}

func waitForSnapshot(t *testing.T, g snapshotter, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(g.Snapshot()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("snapshot never reached length %d, got %d", n, len(g.Snapshot()))
}

func mustParseIP(s string) net.IP {
	ip := net.ParseIP(s)
	if ip == nil {
		panic("invalid test IP: " + s)
	}
	return ip
}
