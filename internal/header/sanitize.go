// Package header strips header-injection characters from user-derived
// header values before they are ever written into a DATA payload (§4.3).
package header

import "strings"

// injectionChars are the control characters that let an attacker start a
// new header or smuggle extra DATA lines through a From/To/Cc/Subject
// value: CR, LF, TAB, VT, FF.
const injectionChars = "\r\n\t\v\f"

// Sanitize removes every CR, LF, TAB, VT, and FF character from value. It
// does not escape quotes or encode non-ASCII — the result is emitted
// verbatim into the header line after stripping, per §4.3.
//
// Sanitize is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(value string) string {
	if strings.IndexAny(value, injectionChars) == -1 {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if strings.ContainsRune(injectionChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
