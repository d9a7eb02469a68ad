package chat

import "time"

// buffer is the ordered message sequence of one room. It is not safe for
// concurrent use on its own; the owning Room's mutex guards every call.
type buffer struct {
	records []MessageRecord
}

// append adds rec to the end of the buffer and applies retention: records
// older than the retention window are dropped first, then the oldest excess
// beyond the per-room cap. Pruning happens only here and in history, so an
// idle room keeps stale records until its next access.
func (b *buffer) append(rec MessageRecord, now time.Time) {
	b.records = append(b.records, rec)
	b.prune(now)
}

// history returns a copy of the buffer contents, oldest first, after
// applying window pruning at read time.
func (b *buffer) history(now time.Time) []MessageRecord {
	b.prune(now)
	out := make([]MessageRecord, len(b.records))
	copy(out, b.records)
	return out
}

// prune drops expired records, then trims the front so at most
// maxMessagesPerRoom remain. Append order is preserved; only an oldest
// prefix is ever removed.
func (b *buffer) prune(now time.Time) {
	cutoff := now.Add(-retentionWindow).UnixMilli()
	kept := b.records[:0]
	for _, r := range b.records {
		if r.Timestamp >= cutoff {
			kept = append(kept, r)
		}
	}
	b.records = kept
	if excess := len(b.records) - maxMessagesPerRoom; excess > 0 {
		b.records = append(b.records[:0], b.records[excess:]...)
	}
}
