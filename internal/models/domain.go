package models

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var patternRx = regexp.MustCompile(`^(\*\.)?[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z]{2,})+$`)

// CleanPattern lowercases and trims a pattern. This is the only
// transformation applied to imported or stored patterns.
func CleanPattern(pattern string) string {
	return strings.ToLower(strings.TrimSpace(pattern))
}

// NormalizePattern cleans a user supplied domain, converts IDN labels to
// punycode and checks the result is a plain or wildcard domain.
func NormalizePattern(pattern string) (string, bool) {
	p := CleanPattern(pattern)
	wildcard := strings.HasPrefix(p, "*.")
	host := strings.TrimPrefix(p, "*.")
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", false
	}
	if wildcard {
		ascii = "*." + ascii
	}
	if !patternRx.MatchString(ascii) {
		return "", false
	}
	return ascii, true
}

// DomainCovers reports whether domain equals base or is a strict subdomain of it.
func DomainCovers(base, domain string) bool {
	return domain == base || strings.HasSuffix(domain, "."+base)
}

// PatternBase strips the wildcard prefix, so "*.example.com" covers
// example.com and its subdomains.
func PatternBase(pattern string) string {
	return strings.TrimPrefix(pattern, "*.")
}
