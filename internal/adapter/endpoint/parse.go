// Package endpoint parses authority strings into domain.Endpoint values
// (spec.md §4.E): host[:port], IPv4 literal, bracketed IPv6 literal, or a
// group: reference.
package endpoint

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/latticerpc/core/internal/core/domain"
)

// ParseAuthority parses an authority string into a domain.Endpoint. Accepted
// forms: "hostname", "hostname:port", "1.2.3.4", "1.2.3.4:port",
// "[::1]", "[::1]:port", and "group:<name>".
func ParseAuthority(authority string) (*domain.Endpoint, error) {
	if authority == "" {
		return nil, fmt.Errorf("endpoint: empty authority")
	}

	if rest, ok := strings.CutPrefix(authority, domain.GroupRefPrefix); ok {
		if rest == "" {
			return nil, fmt.Errorf("endpoint: empty group reference")
		}
		return domain.NewEndpoint(domain.HostTypeGroupRef, rest, 0), nil
	}

	host, port, err := splitHostPort(authority)
	if err != nil {
		return nil, err
	}

	hostType := classifyHost(host)
	return domain.NewEndpoint(hostType, host, port), nil
}

// splitHostPort separates an optional :port suffix, correctly handling
// bracketed IPv6 literals (e.g. "[::1]:8080" vs a bare "::1").
func splitHostPort(authority string) (host string, port int, err error) {
	if strings.HasPrefix(authority, "[") {
		closeIdx := strings.Index(authority, "]")
		if closeIdx < 0 {
			return "", 0, fmt.Errorf("endpoint: unterminated IPv6 literal in %q", authority)
		}
		host = authority[1:closeIdx]
		remainder := authority[closeIdx+1:]
		if remainder == "" {
			return host, 0, nil
		}
		if !strings.HasPrefix(remainder, ":") {
			return "", 0, fmt.Errorf("endpoint: malformed authority %q", authority)
		}
		port, err = parsePort(remainder[1:])
		return host, port, err
	}

	// A bare IPv6 literal (no brackets, no port) contains multiple colons.
	if strings.Count(authority, ":") > 1 {
		return authority, 0, nil
	}

	host, portStr, found := strings.Cut(authority, ":")
	if !found {
		return authority, 0, nil
	}
	port, err = parsePort(portStr)
	return host, port, err
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("endpoint: invalid port %q: %w", s, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("endpoint: port %d out of range [0,65535]", port)
	}
	return port, nil
}

func classifyHost(host string) domain.HostType {
	ip := net.ParseIP(host)
	if ip == nil {
		return domain.HostTypeHostname
	}
	if ip.To4() != nil {
		return domain.HostTypeIPv4
	}
	return domain.HostTypeIPv6
}
