// Package mailer is the top-level facade (C10): config normalization and
// the sendMail / verifyConnection / getMetrics orchestration described in
// §4.10. It is the one place the address validator, attachment loader,
// MIME composer, rate limiter, SMTP engine, metrics accumulator, and
// logger are wired together.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sendbridge/mailer/internal/address"
	"github.com/sendbridge/mailer/internal/attachment"
	"github.com/sendbridge/mailer/internal/compose"
	"github.com/sendbridge/mailer/internal/config"
	"github.com/sendbridge/mailer/internal/mailerr"
	"github.com/sendbridge/mailer/internal/metrics"
	"github.com/sendbridge/mailer/internal/ratelimit"
	"github.com/sendbridge/mailer/internal/smtp"
)

// Mailer is not safe for concurrent use by design (§5): the rate-limit
// map, metrics, and the in-flight socket are unguarded shared state in the
// source this spec is drawn from. SendMail takes an instance-level mutex
// so a caller that does drive it from multiple goroutines gets
// serialization rather than data races, matching §5's guidance rather than
// inventing true concurrency.
type Mailer struct {
	mu      sync.Mutex
	cfg     config.Config
	engine  *smtp.Engine
	limiter *ratelimit.Controller
	metrics *metrics.Accumulator
	logger  *slog.Logger
	tracer  trace.Tracer
	cwd     string
	nowFunc func() time.Time
}

// New constructs a Mailer. It fails if cfg.From is empty, per §6 ("throws
// on missing from").
func New(cfg config.Config, logger *slog.Logger, sink metrics.Sink) (*Mailer, error) {
	if cfg.From == "" {
		return nil, fmt.Errorf("mailer: config.From is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("mailer: resolving working directory: %w", err)
	}

	acc := metrics.New(sink)

	limiterCfg := ratelimit.Config{
		PerRecipient:           cfg.RateLimiting.PerRecipient,
		BurstLimit:             cfg.RateLimiting.BurstLimit,
		CooldownPeriod:         cfg.RateLimiting.CooldownPeriod(),
		BanDuration:            cfg.RateLimiting.BanDuration(),
		MaxConsecutiveFailures: cfg.RateLimiting.MaxConsecutiveFailures,
		FailureCooldown:        cfg.RateLimiting.FailureCooldown(),
		MaxRapidAttempts:       cfg.RateLimiting.MaxRapidAttempts,
		RapidPeriod:            cfg.RateLimiting.RapidPeriod(),
	}
	limiter := ratelimit.New(limiterCfg, acc)

	engine := smtp.New(smtp.Config{
		Host:       cfg.Host,
		Port:       cfg.Port,
		Secure:     cfg.Secure,
		HeloDomain: cfg.Host,
		AuthUser:   cfg.Auth.User,
		AuthPass:   cfg.Auth.Pass,
		Timeout:    cfg.Timeout(),
		KeepAlive:  cfg.KeepAlive,
	})

	return &Mailer{
		cfg:     cfg,
		engine:  engine,
		limiter: limiter,
		metrics: acc,
		logger:  logger,
		tracer:  otel.Tracer("github.com/sendbridge/mailer/internal/mailer"),
		cwd:     cwd,
		nowFunc: time.Now,
	}, nil
}

// VerifyConnection implements §4.10's verifyConnection: open a probe
// socket, close it immediately, and report whether that round-trip
// succeeded.
func (m *Mailer) VerifyConnection(ctx context.Context) bool {
	if err := m.engine.Probe(ctx); err != nil {
		m.metrics.RecordConnectionProbeFailure()
		return false
	}
	return true
}

// GetMetrics returns a snapshot of the metrics accumulator.
func (m *Mailer) GetMetrics() metrics.Snapshot {
	return m.metrics.Snapshot()
}

// SendMail runs the full §4.10 orchestration: probe, assemble and validate
// recipients, rate-limit check, transaction, and the post-send metrics and
// logging update.
func (m *Mailer) SendMail(ctx context.Context, req MailRequest) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := m.tracer.Start(ctx, "mailer.SendMail")
	defer span.End()

	start := m.nowFunc()
	correlationID := uuid.New().String()
	log := m.logger.With("correlationId", correlationID)
	log.DebugContext(ctx, "sendMail attempt", "subject", req.Subject, "to", strings.Join(req.To, ","))

	recipients := assembleRecipients(req)

	if !m.VerifyConnection(ctx) {
		err := mailerr.Connection("pre-send connection verification failed", nil, false)
		return m.reject(ctx, log, recipients, err, start), err
	}

	for _, r := range recipients {
		if !address.Valid(r) {
			err := mailerr.Invalid(r)
			return m.reject(ctx, log, recipients, err, start), err
		}
	}

	if m.cfg.RateLimiting.PerRecipient {
		for _, r := range recipients {
			if err := m.limiter.Check(r); err != nil {
				return m.reject(ctx, log, recipients, asMailerr(err), start), err
			}
		}
	}

	loaded, err := m.loadAttachments(req.Attachments)
	if err != nil {
		return m.finishFailure(ctx, log, recipients, asMailerr(err), start), err
	}

	data, err := compose.Build(compose.Message{
		From:        m.cfg.From,
		To:          req.To,
		Cc:          req.Cc,
		Subject:     req.Subject,
		Text:        req.Text,
		HTML:        req.HTML,
		Attachments: loaded,
	})
	if err != nil {
		merr := mailerr.Unknown("composing message", err)
		return m.finishFailure(ctx, log, recipients, merr, start), merr
	}

	result, err := m.engine.Send(ctx, smtp.Request{
		From:       m.cfg.From,
		Recipients: recipients,
		Data:       data,
	})
	if err != nil {
		return m.finishFailure(ctx, log, recipients, asMailerr(err), start), err
	}

	m.limiter.RecordSuccess(recipients)
	sendMs := float64(m.nowFunc().Sub(start).Milliseconds())
	m.metrics.RecordSuccess(sendMs, m.nowFunc())
	log.InfoContext(ctx, "sendMail succeeded", "messageId", result.MessageID, "recipients", strings.Join(recipients, ","))

	return &SendResult{
		Success:    true,
		MessageID:  result.MessageID,
		Recipients: strings.Join(recipients, ", "),
		Timestamp:  m.nowFunc(),
	}, nil
}

// reject builds a failure SendResult for a rejection that happens before
// the transaction ever runs (connection probe, validation, rate limit) —
// no transaction socket was opened (at most the already-closed
// VerifyConnection probe) and no failure ledger/metrics send-counter update
// applies beyond what VerifyConnection/ratelimit already recorded.
func (m *Mailer) reject(ctx context.Context, log *slog.Logger, recipients []string, err *mailerr.Error, start time.Time) *SendResult {
	log.ErrorContext(ctx, "sendMail rejected", "error", err.Error(), "code", err.Code)
	return &SendResult{
		Success:    false,
		Error:      err,
		Recipients: strings.Join(recipients, ", "),
		Timestamp:  m.nowFunc(),
	}
}

// finishFailure applies §4.10 step 6's failure path: failure ledger,
// per-recipient failure counts, error-kind counter, and an error log —
// this is reached only once the transaction actually ran (attachment
// loading onward), so a socket may have been opened.
func (m *Mailer) finishFailure(ctx context.Context, log *slog.Logger, recipients []string, err *mailerr.Error, start time.Time) *SendResult {
	m.limiter.RecordFailure(recipients)
	sendMs := float64(m.nowFunc().Sub(start).Milliseconds())
	m.metrics.RecordFailure(err.Details.Kind, err.Message, recipients, sendMs, m.nowFunc())
	log.ErrorContext(ctx, "sendMail failed", "error", err.Error(), "code", err.Code, "lastCommand", err.Details.LastCommand)

	return &SendResult{
		Success:    false,
		Error:      err,
		Recipients: strings.Join(recipients, ", "),
		Timestamp:  m.nowFunc(),
	}
}

func (m *Mailer) loadAttachments(in []Attachment) ([]attachment.Loaded, error) {
	loaded := make([]attachment.Loaded, 0, len(in))
	for _, a := range in {
		result, err := attachment.Load(attachment.Input{
			Path:        a.Path,
			Content:     a.Content,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Encoding:    a.Encoding,
		}, m.cwd)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		loaded = append(loaded, *result)
	}
	return loaded, nil
}

// assembleRecipients concatenates To, Cc, and Bcc in that order (§4.10
// step 3 — "order preserved").
func assembleRecipients(req MailRequest) []string {
	recipients := make([]string, 0, len(req.To)+len(req.Cc)+len(req.Bcc))
	recipients = append(recipients, req.To...)
	recipients = append(recipients, req.Cc...)
	recipients = append(recipients, req.Bcc...)
	return recipients
}

func asMailerr(err error) *mailerr.Error {
	var merr *mailerr.Error
	if errors.As(err, &merr) {
		return merr
	}
	return mailerr.Unknown("unexpected error", err)
}
