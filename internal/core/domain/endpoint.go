package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HostType classifies how an Endpoint's Host field should be interpreted.
type HostType int

const (
	HostTypeUnknown HostType = iota
	HostTypeHostname
	HostTypeIPv4
	HostTypeIPv6
	HostTypeGroupRef
)

func (t HostType) String() string {
	switch t {
	case HostTypeHostname:
		return "hostname"
	case HostTypeIPv4:
		return "ipv4"
	case HostTypeIPv6:
		return "ipv6"
	case HostTypeGroupRef:
		return "group_ref"
	default:
		return "unknown"
	}
}

const (
	// DefaultWeight is applied to an Endpoint that does not specify one.
	DefaultWeight = 1000

	DefaultSchemeHTTP  = "http"
	DefaultSchemeHTTPS = "https"

	defaultPortHTTP  = 80
	defaultPortHTTPS = 443

	// GroupRefPrefix marks an authority as a reference to another named
	// group rather than a concrete network address (spec.md §4.E).
	GroupRefPrefix = "group:"
)

// Endpoint is an immutable value describing a single backend address.
// Two endpoints are Equal iff every field matches; String() renders the
// wire authority form (hostname+port, or bracketed IPv6+port), omitting
// the scheme's default port.
//
// Endpoint carries no health or connection state - that lives in the
// health-check and selector layers, keyed by an endpoint's identity.
type Endpoint struct {
	Attributes map[string]string
	Host       string
	IPAddr     string
	Scheme     string
	authority  string
	HostType   HostType
	Port       int
	Weight     int
}

// NewEndpoint constructs an Endpoint with the given host/port, defaulting
// Scheme to http and Weight to DefaultWeight. Use ParseAuthority for the
// general string-form entrypoint.
func NewEndpoint(hostType HostType, host string, port int) *Endpoint {
	e := &Endpoint{
		HostType: hostType,
		Host:     host,
		Port:     port,
		Scheme:   DefaultSchemeHTTP,
		Weight:   DefaultWeight,
	}
	e.authority = e.renderAuthority()
	return e
}

// WithIPAddr returns a copy of e with a resolved address recorded after DNS
// resolution (spec.md §4.E). IPAddr is an ordinary field: Equal compares it
// and Key includes it, so the copy is a distinct endpoint from e.
func (e *Endpoint) WithIPAddr(ipAddr string) *Endpoint {
	clone := e.clone()
	clone.IPAddr = ipAddr
	return clone
}

// WithWeight returns a copy of e with the given selection weight.
func (e *Endpoint) WithWeight(weight int) *Endpoint {
	clone := e.clone()
	clone.Weight = weight
	return clone
}

// WithScheme returns a copy of e using the given scheme (http/https).
func (e *Endpoint) WithScheme(scheme string) *Endpoint {
	clone := e.clone()
	clone.Scheme = scheme
	clone.authority = clone.renderAuthority()
	return clone
}

// WithAttribute returns a copy of e with the attribute set, leaving e
// untouched (copy-on-write, since Endpoint is otherwise immutable).
func (e *Endpoint) WithAttribute(key, value string) *Endpoint {
	clone := e.clone()
	attrs := make(map[string]string, len(e.Attributes)+1)
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	clone.Attributes = attrs
	return clone
}

func (e *Endpoint) clone() *Endpoint {
	c := *e
	return &c
}

// String renders the authority form: hostname[:port], bracketed IPv6[:port]
// literal, or the group: reference, omitting the scheme's default port.
func (e *Endpoint) String() string {
	if e.authority != "" {
		return e.authority
	}
	return e.renderAuthority()
}

func (e *Endpoint) renderAuthority() string {
	host := e.Host
	if e.HostType == HostTypeGroupRef {
		if strings.HasPrefix(host, GroupRefPrefix) {
			return host
		}
		return GroupRefPrefix + host
	}
	if e.HostType == HostTypeIPv6 && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	if e.Port == 0 || e.isDefaultPort() {
		return host
	}
	return host + ":" + strconv.Itoa(e.Port)
}

func (e *Endpoint) isDefaultPort() bool {
	switch e.Scheme {
	case DefaultSchemeHTTPS:
		return e.Port == defaultPortHTTPS
	default:
		return e.Port == defaultPortHTTP
	}
}

// Equal reports whether two endpoints have identical fields.
func (e *Endpoint) Equal(o *Endpoint) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.HostType != o.HostType || e.Host != o.Host || e.IPAddr != o.IPAddr ||
		e.Scheme != o.Scheme || e.Port != o.Port || e.Weight != o.Weight {
		return false
	}
	if len(e.Attributes) != len(o.Attributes) {
		return false
	}
	for k, v := range e.Attributes {
		if ov, ok := o.Attributes[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Key returns a stable, order-independent string identity for e, suitable
// for use as a map key (e.g. candidate-set diffing, health-context lookup).
// Hash/key equality is order-independent across Attributes because keys
// are sorted before hashing.
func (e *Endpoint) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s|%s|%s|%d|%d", e.HostType, e.Host, e.IPAddr, e.Scheme, e.Port, e.Weight)
	if len(e.Attributes) > 0 {
		keys := make([]string, 0, len(e.Attributes))
		for k := range e.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "|%s=%s", k, e.Attributes[k])
		}
	}
	return b.String()
}

// EndpointsEqual reports whether two endpoint slices contain the same
// endpoints regardless of order - used by DynamicEndpointGroup.setEndpoints
// to decide whether a snapshot actually changed (spec.md §4.F).
func EndpointsEqual(a, b []*Endpoint) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, e := range a {
		counts[e.Key()]++
	}
	for _, e := range b {
		k := e.Key()
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}
