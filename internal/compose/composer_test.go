package compose

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendbridge/mailer/internal/attachment"
)

func TestBuild_IncludesHeadersAndTerminator(t *testing.T) {
	data, err := Build(Message{
		From:    "sender@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Hello",
		Text:    "plain body",
	})
	require.NoError(t, err)

	assert.Contains(t, data, "From: sender@example.com\r\n")
	assert.Contains(t, data, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, data, "Subject: Hello\r\n")
	assert.Contains(t, data, "Content-Type: multipart/mixed; boundary=\"")
	assert.Contains(t, data, "plain body")
	assert.True(t, strings.HasSuffix(data, "--\r\n.\r\n"))
}

func TestBuild_OmitsCcHeaderWhenEmpty(t *testing.T) {
	data, err := Build(Message{From: "sender@example.com", To: []string{"a@example.com"}})
	require.NoError(t, err)
	assert.NotContains(t, data, "Cc:")
}

func TestBuild_SanitizesHeaderValues(t *testing.T) {
	data, err := Build(Message{
		From:    "sender@example.com",
		To:      []string{"a@example.com"},
		Subject: "evil\r\nBcc: attacker@example.com",
	})
	require.NoError(t, err)
	assert.NotContains(t, data, "Bcc: attacker@example.com")
}

// TestBuild_AttachmentRoundTrips exercises §8's MIME round-trip law: the
// base64 blob embedded in the DATA payload decodes, after removing the
// CRLF folding, back to the exact bytes that were loaded.
func TestBuild_AttachmentRoundTrips(t *testing.T) {
	original := make([]byte, 200)
	for i := range original {
		original[i] = byte(i)
	}

	data, err := Build(Message{
		From: "sender@example.com",
		To:   []string{"a@example.com"},
		Text: "see attached",
		Attachments: []attachment.Loaded{
			{Filename: "data.bin", ContentType: "application/octet-stream", Content: original, Encoding: "base64"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, data, "Content-Disposition: attachment; filename=\"data.bin\"\r\n")
	assert.Contains(t, data, "Content-Transfer-Encoding: base64\r\n")

	idx := strings.Index(data, "Content-Transfer-Encoding: base64\r\n\r\n")
	require.True(t, idx >= 0)
	rest := data[idx+len("Content-Transfer-Encoding: base64\r\n\r\n"):]
	end := strings.Index(rest, "\r\n\r\n")
	require.True(t, end >= 0)
	encodedFolded := rest[:end]

	encoded := strings.ReplaceAll(encodedFolded, "\r\n", "")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestBuild_FoldsLongBase64Lines(t *testing.T) {
	content := strings.Repeat("x", 200)
	encoded := foldBase64([]byte(content))
	for _, line := range strings.Split(strings.TrimSuffix(encoded, "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), attachmentLineLength)
	}
}

func TestBuild_ShortBase64NotFolded(t *testing.T) {
	encoded := foldBase64([]byte("short"))
	assert.NotContains(t, encoded, "\r\n")
}

func TestResolveContentType_PrefersExplicitType(t *testing.T) {
	att := attachment.Loaded{Filename: "report.pdf", ContentType: "custom/type"}
	assert.Equal(t, "custom/type", resolveContentType(att))
}

func TestResolveContentType_FallsBackToMimetypeResolver(t *testing.T) {
	att := attachment.Loaded{Filename: "report.pdf"}
	assert.Equal(t, "application/pdf", resolveContentType(att))
}

func TestResolveContentType_UnknownExtensionIsOctetStream(t *testing.T) {
	att := attachment.Loaded{Filename: "weird.xyzabc"}
	assert.Equal(t, "application/octet-stream", resolveContentType(att))
}

func TestNewBoundary_IsUniqueAndPrefixed(t *testing.T) {
	b1, err := newBoundary()
	require.NoError(t, err)
	b2, err := newBoundary()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(b1, "----"))
	assert.NotEqual(t, b1, b2)
}
