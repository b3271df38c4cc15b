// Package compose builds the full SMTP DATA payload — headers, MIME parts,
// and the dot-terminator — for one outgoing message (§4.5). It is the one
// place header sanitization (internal/header), attachment resolution
// (internal/attachment), and MIME-type lookup (internal/mimetype) come
// together before the bytes reach the wire.
package compose

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sendbridge/mailer/internal/attachment"
	"github.com/sendbridge/mailer/internal/header"
	"github.com/sendbridge/mailer/internal/mimetype"
	"github.com/sendbridge/mailer/internal/pkg"
)

// attachmentLineLength is the RFC 2045-recommended maximum encoded line
// length. §9 item 5 flags the naive unfolded form as a strict-server
// rejection risk; this implementation folds (decision recorded in
// SPEC_FULL.md §D.5).
const attachmentLineLength = 76

// Message holds everything the composer needs to produce one DATA
// payload. Fields mirror MailRequest plus the resolved From.
type Message struct {
	From        string
	To          []string
	Cc          []string
	Subject     string
	Text        string
	HTML        string
	Attachments []attachment.Loaded
}

// Build renders msg into a single CRLF-terminated ASCII string: MIME
// headers, a multipart/mixed body, and the trailing "\r\n.\r\n" DATA
// terminator. The transaction engine does not append anything further.
func Build(msg Message) (string, error) {
	boundary, err := newBoundary()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "From: %s\r\n", header.Sanitize(msg.From))
	fmt.Fprintf(&b, "To: %s\r\n", header.Sanitize(strings.Join(msg.To, ", ")))
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", header.Sanitize(strings.Join(msg.Cc, ", ")))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", header.Sanitize(msg.Subject))
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary)
	b.WriteString("\r\n")

	if msg.Text != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(msg.Text)
		b.WriteString("\r\n\r\n")
	}

	if msg.HTML != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(msg.HTML)
		b.WriteString("\r\n\r\n")
	}

	for _, att := range msg.Attachments {
		writeAttachmentPart(&b, boundary, att)
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	b.WriteString(".\r\n")

	return b.String(), nil
}

func writeAttachmentPart(b *strings.Builder, boundary string, att attachment.Loaded) {
	contentType := resolveContentType(att)

	fmt.Fprintf(b, "--%s\r\n", boundary)
	fmt.Fprintf(b, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(b, "Content-Disposition: attachment; filename=\"%s\"\r\n", header.Sanitize(att.Filename))
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(foldBase64(att.Content))
	b.WriteString("\r\n\r\n")
}

// resolveContentType applies §4.5's order: explicit ContentType, then the
// MIME-type resolver keyed on the filename's extension, then the
// resolver's own application/octet-stream fallback.
func resolveContentType(att attachment.Loaded) string {
	if att.ContentType != "" {
		return att.ContentType
	}
	ext := ""
	if i := strings.LastIndexByte(att.Filename, '.'); i != -1 {
		ext = att.Filename[i:]
	}
	return mimetype.Resolve(ext)
}

// foldBase64 base64-encodes content and folds the result into
// attachmentLineLength-column CRLF-terminated lines.
func foldBase64(content []byte) string {
	encoded := base64.StdEncoding.EncodeToString(content)
	if len(encoded) <= attachmentLineLength {
		return encoded
	}
	var b strings.Builder
	for len(encoded) > attachmentLineLength {
		b.WriteString(encoded[:attachmentLineLength])
		b.WriteString("\r\n")
		encoded = encoded[attachmentLineLength:]
	}
	b.WriteString(encoded)
	return b.String()
}

// newBoundary generates a MIME boundary of the form "----" followed by 32
// hex characters, per §4.5, reusing internal/pkg.GenerateRandomString
// rather than rolling its own random-hex generator.
func newBoundary() (string, error) {
	random, err := pkg.GenerateRandomString(16)
	if err != nil {
		return "", err
	}
	return "----" + random, nil
}
