// Package smtp implements the outbound transaction engine (§4.9): socket
// lifecycle, TLS negotiation, the command/response dialogue, AUTH LOGIN,
// and per-message MAIL FROM/RCPT TO/DATA framing. Reply parsing is built
// on net/textproto, the same multi-line-reply primitive the teacher's own
// net/smtp-based sender.go sits on top of — §9 item 2 requires a real
// 3-digit status parse rather than the source's "one data event = one
// response" shortcut, and textproto.Reader.ReadResponse is exactly that
// parser.
package smtp

import "github.com/sendbridge/mailer/internal/mailerr"

// replyClass buckets a 3-digit SMTP reply code the way the dialogue cares
// about it: positive completion, an intermediate reply expected mid-AUTH,
// or a failure. classifyResponse (below) further splits a failure into
// permanent/transient for the two commands that bounce classification
// actually matters for.
type replyClass int

const (
	replyUnknown replyClass = iota
	replySuccess
	replyIntermediate
	replyFailure
)

func classifyReply(code int) replyClass {
	switch {
	case code >= 200 && code < 300:
		return replySuccess
	case code == 334:
		return replyIntermediate
	case code >= 400 && code < 600:
		return replyFailure
	default:
		return replyUnknown
	}
}

// classifyResponse distinguishes a permanent rejection (5xx — retrying the
// same envelope can never succeed) from a transient one (4xx — a transport
// or capacity hiccup the caller might reasonably retry later) for RCPT TO
// and DATA replies. This is the supplemented bounce classification
// (§C, grounded on the teacher's internal/engine/bounce.go): a permanent
// reply is surfaced as KindCommand, a transient one as KindConnection,
// rather than collapsing every non-2xx into the same command_error kind.
func classifyResponse(code int) mailerr.Kind {
	if code >= 500 {
		return mailerr.KindCommand
	}
	return mailerr.KindConnection
}
