package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_StripsInjectionCharacters(t *testing.T) {
	assert.Equal(t, "SubjectBcc:evil@example.com", Sanitize("Subject\r\nBcc:evil@example.com"))
	assert.Equal(t, "abc", Sanitize("a\tb\vc\f"))
}

func TestSanitize_LeavesCleanValueUntouched(t *testing.T) {
	assert.Equal(t, "Quarterly Report", Sanitize("Quarterly Report"))
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"clean subject",
		"evil\r\nBcc: attacker@example.com",
		"tabs\tand\vmore",
		"",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		assert.Equal(t, once, twice, "Sanitize must be idempotent for %q", in)
	}
}

func TestSanitize_EmptyString(t *testing.T) {
	assert.Equal(t, "", Sanitize(""))
}
