package utils

import (
	"net/netip"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may call the API. Origins in
// Allowed always pass; otherwise only local-network hosts do.
type OriginPolicy struct {
	Allowed []string
}

// Allows reports whether an Origin header value should be trusted.
func (p OriginPolicy) Allows(origin string) bool {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return false
	}
	for _, a := range p.Allowed {
		if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), origin) {
			return true
		}
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	return isLocalHost(parsed.Hostname())
}

// isLocalHost accepts localhost, mDNS names, single-label LAN names and
// loopback, private or link-local addresses.
func isLocalHost(host string) bool {
	switch {
	case host == "localhost", strings.HasSuffix(host, ".local"):
		return true
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
	}
	return !strings.Contains(host, ".") && !strings.Contains(host, ":")
}
