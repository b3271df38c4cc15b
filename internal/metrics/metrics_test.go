package metrics

import (
	"testing"
	"time"

	"github.com/sendbridge/mailer/internal/mailerr"
	"github.com/stretchr/testify/assert"
)

func TestAccumulator_RecordSuccess_UpdatesCountersAndTiming(t *testing.T) {
	a := New(nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	a.RecordSuccess(250, now)

	snap := a.Snapshot()
	assert.Equal(t, int64(1), snap.EmailsTotal)
	assert.Equal(t, int64(1), snap.EmailsSuccessful)
	assert.Equal(t, int64(0), snap.EmailsFailed)
	assert.Equal(t, "success", snap.LastEmailStatus)
	assert.Equal(t, now, snap.LastEmailTimestamp)
	assert.InDelta(t, 0.25, snap.Sum, 0.0001)
	assert.InDelta(t, 0.25, snap.Avg, 0.0001)
	assert.InDelta(t, 0.25, snap.Max, 0.0001)
	assert.InDelta(t, 0.25, snap.Min, 0.0001)
}

func TestAccumulator_HistogramBucketsAreCumulative(t *testing.T) {
	a := New(nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// 700ms falls at or under the 1s and 2s and 5s cutoffs, but above 0.1s and 0.5s.
	a.RecordSuccess(700, now)

	snap := a.Snapshot()
	assert.Equal(t, int64(0), snap.Buckets[0.1])
	assert.Equal(t, int64(0), snap.Buckets[0.5])
	assert.Equal(t, int64(1), snap.Buckets[1])
	assert.Equal(t, int64(1), snap.Buckets[2])
	assert.Equal(t, int64(1), snap.Buckets[5])
}

func TestAccumulator_RecordFailure_UpdatesLedgerAndErrorBreakdown(t *testing.T) {
	a := New(nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	a.RecordFailure(mailerr.KindConnection, "connection refused", []string{"a@b.com", "c@d.com"}, 100, now)

	snap := a.Snapshot()
	assert.Equal(t, int64(1), snap.EmailsTotal)
	assert.Equal(t, int64(1), snap.EmailsFailed)
	assert.Equal(t, int64(1), snap.ConnectionErrors)
	assert.Equal(t, int64(1), snap.ConsecutiveFailures)
	assert.Equal(t, "failure", snap.LastEmailStatus)
	assert.Equal(t, int64(1), snap.ErrorsByType[mailerr.KindConnection])
	assert.Len(t, snap.RecentFailures, 1)
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, snap.RecentFailures[0].Recipients)
	assert.Equal(t, int64(1), snap.ErrorCountByRecipient["a@b.com"])
	assert.Equal(t, int64(1), snap.ErrorCountByRecipient["c@d.com"])
	assert.InDelta(t, 1.0, snap.AvgFailuresPerRecipient, 0.0001)
}

func TestAccumulator_AvgFailuresPerRecipient_AcrossMultipleFailures(t *testing.T) {
	a := New(nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	a.RecordFailure(mailerr.KindTimeout, "timed out", []string{"a@b.com"}, 50, now)
	a.RecordFailure(mailerr.KindTimeout, "timed out again", []string{"a@b.com"}, 50, now)
	a.RecordFailure(mailerr.KindValidation, "bad address", []string{"x@y.com"}, 10, now)

	snap := a.Snapshot()
	assert.Equal(t, int64(2), snap.ErrorCountByRecipient["a@b.com"])
	assert.Equal(t, int64(1), snap.ErrorCountByRecipient["x@y.com"])
	assert.InDelta(t, 1.5, snap.AvgFailuresPerRecipient, 0.0001)
}

func TestAccumulator_RecordSuccess_ResetsConsecutiveFailures(t *testing.T) {
	a := New(nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	a.RecordFailure(mailerr.KindCommand, "bad command", []string{"a@b.com"}, 10, now)
	a.RecordFailure(mailerr.KindCommand, "bad command", []string{"a@b.com"}, 10, now)
	assert.Equal(t, int64(2), a.Snapshot().ConsecutiveFailures)

	a.RecordSuccess(10, now.Add(time.Second))
	assert.Equal(t, int64(0), a.Snapshot().ConsecutiveFailures)
}

func TestAccumulator_EmailSendRate_RequiresPriorSend(t *testing.T) {
	a := New(nil)
	first := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	a.RecordSuccess(10, first)
	assert.Equal(t, float64(0), a.Snapshot().EmailSendRate, "rate is undefined before a second send")

	second := first.Add(2 * time.Minute)
	a.RecordSuccess(10, second)
	assert.InDelta(t, 1.0, a.Snapshot().EmailSendRate, 0.0001, "2 sends over 2 minutes")
}

func TestAccumulator_BanRecorderInterface(t *testing.T) {
	a := New(nil)

	a.IncBannedRecipients()
	a.IncBannedRecipients()
	assert.Equal(t, int64(2), a.Snapshot().BannedRecipientsCount)

	a.DecBannedRecipients()
	assert.Equal(t, int64(1), a.Snapshot().BannedRecipientsCount)

	a.IncRateLimitExceeded()
	assert.Equal(t, int64(1), a.Snapshot().RateLimitExceededTotal)
}

func TestAccumulator_DecBannedRecipients_NeverGoesNegative(t *testing.T) {
	a := New(nil)
	a.DecBannedRecipients()
	assert.Equal(t, int64(0), a.Snapshot().BannedRecipientsCount)
}

func TestAccumulator_Snapshot_MinIsZeroBeforeAnySend(t *testing.T) {
	a := New(nil)
	assert.Equal(t, float64(0), a.Snapshot().Min)
}

func TestAccumulator_Snapshot_IsIndependentCopy(t *testing.T) {
	a := New(nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a.RecordFailure(mailerr.KindCommand, "x", []string{"a@b.com"}, 10, now)

	snap := a.Snapshot()
	snap.ErrorCountByRecipient["a@b.com"] = 99
	snap.RecentFailures[0].Message = "mutated"

	fresh := a.Snapshot()
	assert.Equal(t, int64(1), fresh.ErrorCountByRecipient["a@b.com"])
	assert.Equal(t, "x", fresh.RecentFailures[0].Message)
}
