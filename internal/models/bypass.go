package models

import "time"

type BypassSession struct {
	Domain    string `json:"domain"`
	ExpiresAt int64  `json:"expiresAt"`
	GrantedAt int64  `json:"grantedAt"`
}

func (s BypassSession) Expired(nowMs int64) bool {
	return s.ExpiresAt <= nowMs
}

func (s BypassSession) Remaining(nowMs int64) time.Duration {
	if s.Expired(nowMs) {
		return 0
	}
	return time.Duration(s.ExpiresAt-nowMs) * time.Millisecond
}

// Covers reports whether an unexpired session applies to domain.
func (s BypassSession) Covers(domain string, nowMs int64) bool {
	return !s.Expired(nowMs) && DomainCovers(s.Domain, domain)
}
