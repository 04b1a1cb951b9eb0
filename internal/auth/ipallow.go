package auth

import (
	"net"
	"net/http"
)

// IPAllowList enforces the exact-match allow-list from spec §4.J ("CIDR
// support is not required in the core spec").
type IPAllowList struct {
	allowed map[string]bool
}

// NewIPAllowList builds an allow-list. An empty list disables the check.
func NewIPAllowList(ips []string) *IPAllowList {
	allowed := make(map[string]bool, len(ips))
	for _, ip := range ips {
		allowed[ip] = true
	}
	return &IPAllowList{allowed: allowed}
}

// Enabled reports whether any IP restriction is configured.
func (l *IPAllowList) Enabled() bool { return len(l.allowed) > 0 }

// Allow reports whether remoteAddr (host:port or bare host) is permitted.
func (l *IPAllowList) Allow(remoteAddr string) bool {
	if !l.Enabled() {
		return true
	}
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	return l.allowed[host]
}

// AllowRequest is a convenience wrapper over http.Request.RemoteAddr.
func (l *IPAllowList) AllowRequest(r *http.Request) bool {
	return l.Allow(r.RemoteAddr)
}
