package domain

import (
	"strings"
	"time"
)

// Record is one persisted hostname observation for a monitored domain.
// The (Domain, Hostname) pair is unique in the store; FirstSeen is set once
// at insert, LastSeen is bumped every cycle the hostname reappears.
// EarliestLogDate is the earliest timestamp the certificate log reported for
// this hostname, nil when the log carried no usable timestamp.
type Record struct {
	Domain          string
	Hostname        string
	FirstSeen       time.Time
	LastSeen        time.Time
	EarliestLogDate *time.Time
}

// NormalizeDomain canonicalizes a monitored domain name: trimmed, lowercased,
// without a trailing dot.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimSuffix(d, ".")
}

// NormalizeCandidate cleans one raw name taken from a certificate log entry
// and reports whether it belongs under the monitored domain. The candidate is
// trimmed, lowercased and stripped of a leading wildcard label. Only strict
// subdomains qualify: the bare domain itself is rejected.
func NormalizeCandidate(raw, domainName string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.TrimPrefix(h, "*.")
	if h == "" {
		return "", false
	}
	if !strings.HasSuffix(h, "."+domainName) {
		return "", false
	}
	return h, true
}
