package dns

import (
	"net"
	"testing"
	"time"

	miekgdns "github.com/miekg/dns"
)

// startTestServer runs an in-process UDP DNS server on an ephemeral
// localhost port, dispatching queries to handler. It is torn down via
// t.Cleanup, mirroring the pack's own practice of standing up a real
// local server rather than mocking the wire protocol.
func startTestServer(t *testing.T, handler miekgdns.HandlerFunc) string {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	mux := miekgdns.NewServeMux()
	mux.HandleFunc(".", handler)

	srv := &miekgdns.Server{PacketConn: conn, Handler: mux}
	started := make(chan struct{})
	srv.NotifyStartedFunc = func() { close(started) }

	go func() { _ = srv.ActivateAndServe() }()
	<-started

	t.Cleanup(func() { _ = srv.Shutdown() })
	return conn.LocalAddr().String()
}

func txtRecord(name string, segments []string, ttl uint32) *miekgdns.TXT {
	return &miekgdns.TXT{
		Hdr: miekgdns.RR_Header{Name: name, Rrtype: miekgdns.TypeTXT, Class: miekgdns.ClassINET, Ttl: ttl},
		Txt: segments,
	}
}

func aRecord(name, ip string, ttl uint32) *miekgdns.A {
	return &miekgdns.A{
		Hdr: miekgdns.RR_Header{Name: name, Rrtype: miekgdns.TypeA, Class: miekgdns.ClassINET, Ttl: ttl},
		A:   net.ParseIP(ip),
	}
}

func aaaaRecord(name, ip string, ttl uint32) *miekgdns.AAAA {
	return &miekgdns.AAAA{
		Hdr: miekgdns.RR_Header{Name: name, Rrtype: miekgdns.TypeAAAA, Class: miekgdns.ClassINET, Ttl: ttl},
		AAAA: net.ParseIP(ip),
	}
}

func srvRecord(name, target string, priority, weight, port uint16, ttl uint32) *miekgdns.SRV {
	return &miekgdns.SRV{
		Hdr:      miekgdns.RR_Header{Name: name, Rrtype: miekgdns.TypeSRV, Class: miekgdns.ClassINET, Ttl: ttl},
		Priority: priority,
		Weight:   weight,
		Port:     port,
		Target:   target,
	}
}

func testResolverConfig(addr string) ResolverConfig {
	return ResolverConfig{
		Nameservers:       []string{addr},
		PerAttemptTimeout: 500 * time.Millisecond,
		WholeTimeout:      time.Second,
		MinPositiveTTL:    10 * time.Millisecond,
		NegativeTTL:       20 * time.Millisecond,
	}
}
