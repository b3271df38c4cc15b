// Package address implements the syntactic, RFC-shaped email check used
// before any recipient is admitted to rate limiting or a send. It performs
// no DNS or MX lookups by design (§4.1).
package address

import "regexp"

// localPart matches one or more dot-separated atoms, each built from
// unreserved RFC 5322 atext characters, never starting or ending the atom
// with a dot.
const localPart = `[A-Za-z0-9]([A-Za-z0-9!#$%&'*+\-/=?^_` + "`" + `{|}~]*[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9!#$%&'*+\-/=?^_` + "`" + `{|}~]*[A-Za-z0-9])?)*`

// domainLabel matches one DNS label: alphanumeric, optionally with
// internal hyphens, never starting or ending with one.
const domainLabel = `[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?`

var addressPattern = regexp.MustCompile(`^` + localPart + `@` + domainLabel + `(\.` + domainLabel + `)+$`)

// Valid reports whether addr is an acceptable email address per §4.1's
// rules: no whitespace, no "..", no leading/trailing dot in the local
// part, no "@@", and a domain with at least one dot.
//
// This is purely syntactic. It never performs a DNS or MX lookup.
func Valid(addr string) bool {
	if addr == "" {
		return false
	}
	for _, r := range addr {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return false
		}
	}
	return addressPattern.MatchString(addr)
}
