package mailer

import (
	"time"

	"github.com/sendbridge/mailer/internal/mailerr"
)

// Attachment is the wire shape of one MailRequest attachment entry (§3):
// either a filesystem Path or inline Content, plus optional metadata.
type Attachment struct {
	Path        string `json:"path,omitempty"`
	Content     []byte `json:"content,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
}

// MailRequest is the sendMail input (§3). Headers is accepted but not
// consulted by the transaction engine — §3 lists it as reserved.
type MailRequest struct {
	To          []string          `json:"to"`
	Cc          []string          `json:"cc,omitempty"`
	Bcc         []string          `json:"bcc,omitempty"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// SendResult is sendMail's return value (§3).
type SendResult struct {
	Success    bool           `json:"success"`
	MessageID  string         `json:"messageId,omitempty"`
	Error      *mailerr.Error `json:"error,omitempty"`
	Recipients string         `json:"recipients,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
