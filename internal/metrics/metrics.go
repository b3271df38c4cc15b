// Package metrics implements the in-memory counters, timing histogram,
// and failure ledger described in §3 and §4.7. It is pure bookkeeping: no
// network calls, no persistence — a snapshot is handed back verbatim by
// the mailer facade's getMetrics().
//
// A Sink, if supplied, additionally mirrors the same events into
// Prometheus collectors. This optional-interface-plus-nil pattern is
// lifted directly from the teacher's engine.SenderMetrics
// (internal/engine/sender.go): the core accumulator works standalone, the
// Prometheus wiring is a secondary, swappable sink.
package metrics

import (
	"math"
	"time"

	"github.com/sendbridge/mailer/internal/mailerr"
)

// histogramCutoffs are the latency buckets named in §4.7, in seconds.
var histogramCutoffs = []float64{0.1, 0.5, 1, 2, 5}

// Sink mirrors accumulator events into an external metrics system (e.g.
// Prometheus). Pass nil to New to disable.
type Sink interface {
	ObserveEmailSendDuration(seconds float64)
	IncEmailsTotal(status string)
	IncConnectionError()
	IncRateLimitExceeded()
	SetBannedRecipients(n int64)
}

// FailureRecord is one entry in the failure ledger: the outcome of one
// failed send, as of the moment it failed.
type FailureRecord struct {
	Recipients []string
	Kind       mailerr.Kind
	Message    string
	Timestamp  time.Time
}

// Snapshot is the value returned by Accumulator.Snapshot — a shallow,
// independent copy safe for a caller to read without further locking.
type Snapshot struct {
	EmailsTotal            int64
	EmailsSuccessful       int64
	EmailsFailed           int64
	ConnectionErrors       int64
	RateLimitExceededTotal int64
	TotalRetryAttempts     int64
	SuccessfulRetries      int64
	BannedRecipientsCount  int64
	ConsecutiveFailures    int64

	Sum   float64
	Count int64
	Avg   float64
	Max   float64
	Min   float64

	Buckets map[float64]int64

	EmailSendRate      float64
	LastEmailStatus    string
	LastEmailTimestamp time.Time

	ErrorsByType map[mailerr.Kind]int64

	RecentFailures          []FailureRecord
	ErrorCountByRecipient   map[string]int64
	AvgFailuresPerRecipient float64
}

// Accumulator is the mutable, process-lifetime metrics state. Callers
// never touch its fields directly — all access to the Accumulator comes
// through a single owning mailer.Mailer, so no internal locking is
// required beyond what that caller already serializes (§5). Snapshot
// still copies defensively since callers may read it concurrently with
// the next send.
type Accumulator struct {
	snap Snapshot
	sink Sink
}

// New creates an empty Accumulator. sink may be nil.
func New(sink Sink) *Accumulator {
	a := &Accumulator{sink: sink}
	a.snap.Min = math.Inf(1)
	a.snap.Buckets = make(map[float64]int64, len(histogramCutoffs))
	a.snap.ErrorsByType = make(map[mailerr.Kind]int64)
	a.snap.ErrorCountByRecipient = make(map[string]int64)
	a.snap.LastEmailStatus = "none"
	return a
}

// RecordSuccess applies §4.7's per-send update for a successful send.
func (a *Accumulator) RecordSuccess(sendMs float64, now time.Time) {
	a.snap.EmailsTotal++
	a.snap.EmailsSuccessful++
	a.snap.LastEmailStatus = "success"
	a.snap.ConsecutiveFailures = 0
	a.observeDuration(sendMs)
	a.updateRate(now)
	if a.sink != nil {
		a.sink.IncEmailsTotal("success")
		a.sink.ObserveEmailSendDuration(sendMs / 1000)
	}
}

// RecordFailure applies §4.7's per-send update for a failed send and
// appends to the failure ledger.
func (a *Accumulator) RecordFailure(kind mailerr.Kind, message string, recipients []string, sendMs float64, now time.Time) {
	a.snap.EmailsTotal++
	a.snap.EmailsFailed++
	a.snap.LastEmailStatus = "failure"
	a.snap.ConsecutiveFailures++
	a.snap.ErrorsByType[kind]++
	if kind == mailerr.KindConnection {
		a.snap.ConnectionErrors++
	}
	a.observeDuration(sendMs)
	a.updateRate(now)

	a.snap.RecentFailures = append(a.snap.RecentFailures, FailureRecord{
		Recipients: append([]string(nil), recipients...),
		Kind:       kind,
		Message:    message,
		Timestamp:  now,
	})
	for _, r := range recipients {
		a.snap.ErrorCountByRecipient[r]++
	}
	a.recomputeAvgFailuresPerRecipient()

	if a.sink != nil {
		a.sink.IncEmailsTotal("failure")
		a.sink.ObserveEmailSendDuration(sendMs / 1000)
		if kind == mailerr.KindConnection {
			a.sink.IncConnectionError()
		}
	}
}

// RecordConnectionProbeFailure applies §4.10's verifyConnection failure
// update: last_email_status and the connection error-kind counter move,
// but emails_total/emails_failed do not — a failed probe never attempted
// a send.
func (a *Accumulator) RecordConnectionProbeFailure() {
	a.snap.LastEmailStatus = "failure"
	a.snap.ErrorsByType[mailerr.KindConnection]++
	if a.sink != nil {
		a.sink.IncConnectionError()
	}
}

// RecordRateLimitExceeded increments rate_limit_exceeded_total without
// touching send counters — a rate-limit rejection never opens a socket,
// so it is not an "email_total" event (§7).
func (a *Accumulator) RecordRateLimitExceeded() {
	a.snap.RateLimitExceededTotal++
	if a.sink != nil {
		a.sink.IncRateLimitExceeded()
	}
}

// IncBannedRecipients and DecBannedRecipients satisfy
// ratelimit.BanRecorder, so the Accumulator can be passed directly as the
// rate-limit controller's metrics sink.
func (a *Accumulator) IncBannedRecipients() {
	a.snap.BannedRecipientsCount++
	a.mirrorBanGauge()
}

func (a *Accumulator) DecBannedRecipients() {
	if a.snap.BannedRecipientsCount > 0 {
		a.snap.BannedRecipientsCount--
	}
	a.mirrorBanGauge()
}

func (a *Accumulator) IncRateLimitExceeded() {
	a.RecordRateLimitExceeded()
}

func (a *Accumulator) mirrorBanGauge() {
	if a.sink != nil {
		a.sink.SetBannedRecipients(a.snap.BannedRecipientsCount)
	}
}

func (a *Accumulator) observeDuration(sendMs float64) {
	seconds := sendMs / 1000
	a.snap.Sum += seconds
	a.snap.Count++
	a.snap.Avg = a.snap.Sum / float64(a.snap.Count)
	if seconds > a.snap.Max {
		a.snap.Max = seconds
	}
	if seconds < a.snap.Min {
		a.snap.Min = seconds
	}
	for _, cutoff := range histogramCutoffs {
		if seconds <= cutoff {
			a.snap.Buckets[cutoff]++
		}
	}
}

// updateRate recomputes the noisy per-send ratio described in §4.7,
// preserved verbatim from the source: emails_total divided by the
// elapsed minutes since the previous send, not a true rolling
// throughput.
func (a *Accumulator) updateRate(now time.Time) {
	if !a.snap.LastEmailTimestamp.IsZero() {
		elapsedMinutes := now.Sub(a.snap.LastEmailTimestamp).Minutes()
		if elapsedMinutes > 0 {
			a.snap.EmailSendRate = float64(a.snap.EmailsTotal) / elapsedMinutes
		}
	}
	a.snap.LastEmailTimestamp = now
}

func (a *Accumulator) recomputeAvgFailuresPerRecipient() {
	if len(a.snap.ErrorCountByRecipient) == 0 {
		a.snap.AvgFailuresPerRecipient = 0
		return
	}
	var total int64
	for _, n := range a.snap.ErrorCountByRecipient {
		total += n
	}
	a.snap.AvgFailuresPerRecipient = float64(total) / float64(len(a.snap.ErrorCountByRecipient))
}

// Snapshot returns a shallow, independent copy of the current metrics.
func (a *Accumulator) Snapshot() Snapshot {
	cp := a.snap
	if cp.Count == 0 {
		cp.Min = 0
	}
	cp.Buckets = cloneInt64Map(a.snap.Buckets)
	cp.ErrorsByType = cloneKindMap(a.snap.ErrorsByType)
	cp.ErrorCountByRecipient = cloneInt64MapStr(a.snap.ErrorCountByRecipient)
	cp.RecentFailures = append([]FailureRecord(nil), a.snap.RecentFailures...)
	return cp
}

func cloneInt64Map(m map[float64]int64) map[float64]int64 {
	out := make(map[float64]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneInt64MapStr(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneKindMap(m map[mailerr.Kind]int64) map[mailerr.Kind]int64 {
	out := make(map[mailerr.Kind]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
