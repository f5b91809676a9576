package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
)

const ContextClientIPKey contextKey = "client_ip"

// ClientIPResolver decides which address a request came from. X-Forwarded-For
// is only read when the direct peer is a trusted proxy, and then the
// right-most untrusted hop wins.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver accepts IPs and CIDRs. An empty list trusts nobody.
func NewClientIPResolver(trusted []string) (*ClientIPResolver, error) {
	resolver := &ClientIPResolver{}
	for _, entry := range trusted {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 8 * net.IPv4len
			}
			resolver.trusted = append(resolver.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		resolver.trusted = append(resolver.trusted, network)
	}
	return resolver, nil
}

func (c *ClientIPResolver) Resolve(r *http.Request) string {
	peer := remoteHost(r)
	if c == nil || !c.isTrusted(peer) {
		return peer
	}

	var hops []string
	for _, line := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(line, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}

	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		if net.ParseIP(hops[i]) == nil {
			break
		}
		client = hops[i]
		if !c.isTrusted(client) {
			break
		}
	}
	return client
}

// Handle stores the resolved address for ClientIP.
func (c *ClientIPResolver) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextClientIPKey, c.Resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c *ClientIPResolver) isTrusted(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, network := range c.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the address resolved by ClientIPResolver.Handle, or the
// direct peer when the request did not pass through it.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ContextClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
