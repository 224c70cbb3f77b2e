package health

import (
	"net/http"
	"time"
)

// ClientFactory builds the HTTP client a HealthCheckContext uses. It carries
// no Client-level timeout: a request's deadline is always owned by the
// per-probe context (DefaultProbeTimeout initially, extended by
// longPollSession.watch once long-polling is confirmed), since a
// Client.Timeout would hard-cancel a legitimately ongoing long-poll session.
type ClientFactory struct {
	client *http.Client
}

// NewClientFactory builds a ClientFactory with a connection-reusing
// transport shared across every probe issued from it.
func NewClientFactory() *ClientFactory {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &ClientFactory{
		client: &http.Client{Transport: transport},
	}
}

// Client returns the shared probe/long-poll HTTP client.
func (f *ClientFactory) Client() *http.Client {
	return f.client
}
