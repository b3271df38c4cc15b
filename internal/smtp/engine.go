package smtp

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"time"

	"github.com/sendbridge/mailer/internal/mailerr"
)

// tlsCipherSuites lists the AEAD suite set named in §4.9. All three are
// TLS 1.3 suite IDs. crypto/tls applies CipherSuites only to TLS 1.0–1.2
// handshakes, and none of these IDs is a TLS 1.2 suite, so a TLS 1.2
// handshake is offered no suite from this list; TLS 1.3 uses the standard
// library's fixed AEAD set, which contains these three. The list is used
// on both the implicit-TLS and the STARTTLS path.
var tlsCipherSuites = []uint16{
	tls.TLS_AES_128_GCM_SHA256,
	tls.TLS_AES_256_GCM_SHA384,
	tls.TLS_CHACHA20_POLY1305_SHA256,
}

// Config configures one Engine. It is derived from the mailer-level
// configuration's host/port/secure/auth/timeout/keepAlive fields.
type Config struct {
	Host       string
	Port       int
	Secure     bool
	HeloDomain string
	AuthUser   string
	AuthPass   string
	Timeout    time.Duration
	KeepAlive  bool
}

// Request is one mail transaction: envelope plus a fully composed DATA
// payload (as produced by internal/compose), already ending in the
// "\r\n.\r\n" terminator.
type Request struct {
	From       string
	Recipients []string
	Data       string
}

// Result is the outcome of a successful transaction.
type Result struct {
	MessageID string
}

// Engine runs one SMTP transaction per Send call against cfg.Host:cfg.Port.
// Per §3/§5, sockets are per-send: Send always opens a fresh connection and
// closes it on return unless cfg.KeepAlive is set, in which case the
// connection is deliberately leaked rather than pooled (§9 item 6 — no
// connection-reuse semantics are invented here).
type Engine struct {
	cfg Config
}

// New creates an Engine bound to cfg.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Probe implements verifyConnection (§4.10): open a connection, negotiate
// TLS if configured, then close immediately without running EHLO or any
// further dialogue.
func (e *Engine) Probe(ctx context.Context) error {
	conn, err := e.dial(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Send runs the full dialogue described in §4.9 and returns a synthesized
// messageId on success.
func (e *Engine) Send(ctx context.Context, req Request) (*Result, error) {
	conn, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}

	d := newDialogue(conn, e.cfg.Timeout)
	result, err := e.runDialogue(d, req)

	if !e.cfg.KeepAlive {
		_ = conn.Close()
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

// dial opens the TCP connection and, for implicit TLS (secure/port 465),
// wraps it before returning.
func (e *Engine) dial(ctx context.Context) (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	dialer := net.Dialer{Timeout: e.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil || isTimeout(err) {
			return nil, mailerr.Connection("connecting to "+addr, err, true)
		}
		return nil, mailerr.Connection("connecting to "+addr, err, false)
	}

	if e.cfg.Secure {
		tlsConn, err := e.handshakeTLS(conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
	return conn, nil
}

func (e *Engine) handshakeTLS(conn net.Conn) (net.Conn, error) {
	if err := conn.SetDeadline(time.Now().Add(e.cfg.Timeout)); err != nil {
		return nil, mailerr.Connection("setting TLS deadline", err, false)
	}
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:   e.cfg.Host,
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS13,
		CipherSuites: tlsCipherSuites,
	})
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return nil, mailerr.Connection("TLS handshake", err, isTimeout(err))
	}
	return tlsConn, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// runDialogue executes EHLO, the optional STARTTLS upgrade, AUTH LOGIN,
// MAIL FROM, RCPT TO per recipient, and DATA.
func (e *Engine) runDialogue(d *dialogue, req Request) (*Result, error) {
	if err := d.readGreeting(); err != nil {
		return nil, err
	}

	if err := d.ehlo(e.cfg.HeloDomain); err != nil {
		return nil, err
	}

	if !e.cfg.Secure {
		upgraded, err := d.startTLS(e.cfg.Host)
		if err != nil {
			return nil, err
		}
		if upgraded {
			// Corrected per §9 item 1: re-issue EHLO over the TLS-wrapped
			// connection rather than continuing on the cleartext socket.
			if err := d.ehlo(e.cfg.HeloDomain); err != nil {
				return nil, err
			}
		}
	}

	if e.cfg.AuthUser != "" {
		if err := d.authLogin(e.cfg.AuthUser, e.cfg.AuthPass); err != nil {
			return nil, err
		}
	}

	if err := d.mailFrom(req.From); err != nil {
		return nil, err
	}
	for _, rcpt := range req.Recipients {
		if err := d.rcptTo(rcpt); err != nil {
			return nil, err
		}
	}
	if err := d.data(req.Data); err != nil {
		return nil, err
	}

	messageID, err := newMessageID()
	if err != nil {
		return nil, mailerr.Unknown("generating message id", err)
	}
	return &Result{MessageID: messageID}, nil
}

func newMessageID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// dialogue wraps one net.Conn with the buffered reader/writer pair needed
// to exchange SMTP commands and replies, and tracks the last command sent
// so a failure can be enriched with it (§4.9's lastCommand).
type dialogue struct {
	conn        net.Conn
	tp          *textproto.Reader
	w           *bufio.Writer
	timeout     time.Duration
	lastCommand string
}

func newDialogue(conn net.Conn, timeout time.Duration) *dialogue {
	return &dialogue{
		conn:    conn,
		tp:      textproto.NewReader(bufio.NewReader(conn)),
		w:       bufio.NewWriter(conn),
		timeout: timeout,
	}
}

// rebind swaps the underlying connection (used after a STARTTLS upgrade)
// without losing the dialogue's lastCommand bookkeeping.
func (d *dialogue) rebind(conn net.Conn) {
	d.conn = conn
	d.tp = textproto.NewReader(bufio.NewReader(conn))
	d.w = bufio.NewWriter(conn)
}

func (d *dialogue) resetDeadline() error {
	if d.timeout <= 0 {
		return nil
	}
	return d.conn.SetDeadline(time.Now().Add(d.timeout))
}

// readGreeting reads the server's initial 220 banner before any command is
// sent.
func (d *dialogue) readGreeting() error {
	d.lastCommand = "CONNECT"
	if err := d.resetDeadline(); err != nil {
		return d.connErr(err)
	}
	code, msg, err := d.tp.ReadResponse(0)
	if err != nil {
		return d.connErr(err)
	}
	if classifyReply(code) != replySuccess {
		return d.commandErr(fmt.Sprintf("unexpected greeting: %d %s", code, msg), code, msg)
	}
	return nil
}

// cmd writes command, flushes, and reads back one (possibly multi-line)
// reply.
func (d *dialogue) cmd(command string) (int, string, error) {
	d.lastCommand = command
	if err := d.resetDeadline(); err != nil {
		return 0, "", d.connErr(err)
	}
	if _, err := d.w.WriteString(command + "\r\n"); err != nil {
		return 0, "", d.connErr(err)
	}
	if err := d.w.Flush(); err != nil {
		return 0, "", d.connErr(err)
	}
	code, msg, err := d.tp.ReadResponse(0)
	if err != nil {
		return 0, "", d.connErr(err)
	}
	return code, msg, nil
}

func (d *dialogue) ehlo(heloDomain string) error {
	code, msg, err := d.cmd("EHLO " + heloDomain)
	if err != nil {
		return err
	}
	if classifyReply(code) != replySuccess {
		return d.commandErr("EHLO rejected", code, msg)
	}
	return nil
}

// startTLS issues STARTTLS and, if the server agrees, performs the
// handshake and rebinds the dialogue onto the TLS connection. Returns
// upgraded=false, nil — not an error — when the server rejects or doesn't
// support STARTTLS at negotiation time: §4.9 does not mandate enforcing
// STARTTLS support, so the dialogue proceeds in cleartext rather than
// aborting the send over a capability the relay never agreed to honor.
func (d *dialogue) startTLS(host string) (upgraded bool, err error) {
	code, _, err := d.cmd("STARTTLS")
	if err != nil {
		return false, err
	}
	if classifyReply(code) != replySuccess {
		return false, nil
	}

	if err := d.resetDeadline(); err != nil {
		return false, d.connErr(err)
	}
	tlsConn := tls.Client(d.conn, &tls.Config{
		ServerName:   host,
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS13,
		CipherSuites: tlsCipherSuites,
	})
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return false, mailerr.Connection("TLS handshake after STARTTLS", err, isTimeout(err)).WithCommand("STARTTLS")
	}
	d.rebind(tlsConn)
	return true, nil
}

func (d *dialogue) authLogin(user, pass string) error {
	code, msg, err := d.cmd("AUTH LOGIN")
	if err != nil {
		return err
	}
	if classifyReply(code) != replyIntermediate {
		return d.authErr("AUTH LOGIN rejected", code, msg)
	}

	code, msg, err = d.cmd(base64.StdEncoding.EncodeToString([]byte(user)))
	if err != nil {
		return err
	}
	if classifyReply(code) != replyIntermediate {
		return d.authErr("username rejected", code, msg)
	}

	code, msg, err = d.cmd(base64.StdEncoding.EncodeToString([]byte(pass)))
	if err != nil {
		return err
	}
	if classifyReply(code) != replySuccess {
		return d.authErr("password rejected", code, msg)
	}
	return nil
}

func (d *dialogue) mailFrom(from string) error {
	code, msg, err := d.cmd("MAIL FROM:<" + from + ">")
	if err != nil {
		return err
	}
	if classifyReply(code) != replySuccess {
		return d.commandErr("MAIL FROM rejected", code, msg)
	}
	return nil
}

func (d *dialogue) rcptTo(recipient string) error {
	code, msg, err := d.cmd("RCPT TO:<" + recipient + ">")
	if err != nil {
		return err
	}
	if classifyReply(code) != replySuccess {
		return d.bounceErr("RCPT TO rejected for "+recipient, code, msg)
	}
	return nil
}

func (d *dialogue) data(payload string) error {
	code, msg, err := d.cmd("DATA")
	if err != nil {
		return err
	}
	if code != 354 {
		return d.commandErr("DATA rejected", code, msg)
	}

	d.lastCommand = "DATA payload"
	if err := d.resetDeadline(); err != nil {
		return d.connErr(err)
	}
	if _, err := d.w.WriteString(payload); err != nil {
		return d.connErr(err)
	}
	if err := d.w.Flush(); err != nil {
		return d.connErr(err)
	}

	code, msg, err = d.tp.ReadResponse(0)
	if err != nil {
		return d.connErr(err)
	}
	if classifyReply(code) != replySuccess {
		return d.bounceErr("message rejected", code, msg)
	}
	return nil
}

func (d *dialogue) connErr(cause error) error {
	return mailerr.Connection("smtp dialogue", cause, isTimeout(cause)).
		WithCommand(d.lastCommand)
}

func (d *dialogue) commandErr(message string, code int, serverMsg string) error {
	return mailerr.Command(message, nil).
		WithCommand(d.lastCommand).
		WithServerResponse(fmt.Sprintf("%d %s", code, serverMsg))
}

// bounceErr builds a RCPT TO / DATA rejection error, classifying it as a
// permanent command_error or a transient connection_error per
// classifyResponse rather than always reporting command_error.
func (d *dialogue) bounceErr(message string, code int, serverMsg string) error {
	var base *mailerr.Error
	if classifyResponse(code) == mailerr.KindCommand {
		base = mailerr.Command(message, nil)
	} else {
		base = mailerr.Connection(message, nil, false)
	}
	return base.
		WithCommand(d.lastCommand).
		WithServerResponse(fmt.Sprintf("%d %s", code, serverMsg))
}

func (d *dialogue) authErr(message string, code int, serverMsg string) error {
	return mailerr.Authentication(message, nil).
		WithCommand(d.lastCommand).
		WithServerResponse(fmt.Sprintf("%d %s", code, serverMsg))
}
