// Package idgen issues decimal, time-ordered IDs that are unique within one
// process.
//
// An ID is the number of milliseconds elapsed since the generator's epoch
// followed by a per-millisecond sequence number:
//
//	1700000000000 0001   (zero-padded: sequence always 4 digits)
//	1700000000000 1      (plain: sequence without leading zeros)
//
// The sequence starts at 1 in every new millisecond window. When it would
// reach SequenceLimit the generator re-samples the clock and starts again at
// 1. If the clock has not ticked in the meantime the re-sampled timestamp
// equals the previous one, so strict ordering is not guaranteed under
// sustained throughput of roughly ten million IDs per second. The generator
// does not spin-wait for the next millisecond.
package idgen

import (
	"strconv"
	"sync"
	"time"
)

const (
	// SequenceLimit is the reserved sequence value that is never emitted.
	SequenceLimit = 9999

	// SequenceWidth is the width of a zero-padded sequence, len("9999").
	SequenceWidth = 4
)

// UnixEpoch is the epoch used when none is configured.
var UnixEpoch = time.Unix(0, 0).UTC()

// Config holds the construction-time settings of a Generator.
type Config struct {
	// Epoch is the instant timestamps are measured from. The zero value
	// selects UnixEpoch.
	Epoch time.Time

	// ZeroPad renders the sequence as a fixed 4-digit field.
	ZeroPad bool
}

// Option configures a Generator built by New or Instance.
type Option func(*Generator)

// WithEpoch sets the epoch. A zero time keeps the Unix epoch.
func WithEpoch(epoch time.Time) Option {
	return func(g *Generator) {
		if !epoch.IsZero() {
			g.epoch = epoch
		}
	}
}

// WithZeroPad selects the zero-padded sequence rendering.
func WithZeroPad(zeroPad bool) Option {
	return func(g *Generator) { g.zeroPad = zeroPad }
}

// WithClock replaces time.Now as the generator's clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Generator issues IDs. It is safe for concurrent use; construct one and share
// it between all callers that need IDs from the same sequence.
type Generator struct {
	epoch   time.Time
	zeroPad bool
	now     func() time.Time

	// mu guards lastTimestamp and sequence, which always change together.
	mu            sync.Mutex
	lastTimestamp int64
	sequence      int64
}

// New returns a Generator. Without options it measures from the Unix epoch and
// renders the sequence unpadded.
func New(opts ...Option) *Generator {
	g := &Generator{
		epoch:         UnixEpoch,
		now:           time.Now,
		lastTimestamp: -1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewFromConfig returns a Generator built from cfg.
func NewFromConfig(cfg Config) *Generator {
	return New(WithEpoch(cfg.Epoch), WithZeroPad(cfg.ZeroPad))
}

// Epoch returns the instant timestamps are measured from.
func (g *Generator) Epoch() time.Time { return g.epoch }

// ZeroPad reports whether sequences are rendered as 4-digit fields.
func (g *Generator) ZeroPad() bool { return g.zeroPad }

// GetID returns the next ID. It fails with a *ConfigurationError when the
// epoch is not strictly before the current time.
func (g *Generator) GetID() (string, error) {
	s, err := g.Next()
	if err != nil {
		return "", err
	}
	return s.Format(g.zeroPad), nil
}

// Next returns the timestamp and sequence of the next ID without formatting
// them.
func (g *Generator) Next() (Stamp, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts, err := g.elapsed()
	if err != nil {
		return Stamp{}, err
	}

	if ts != g.lastTimestamp {
		g.lastTimestamp = ts
		g.sequence = 1
		return Stamp{Timestamp: ts, Sequence: 1}, nil
	}

	seq := g.sequence + 1
	if seq >= SequenceLimit {
		// Sequence exhausted: take a fresh reading even if the clock has not
		// moved, and restart the window.
		ts, err = g.elapsed()
		if err != nil {
			return Stamp{}, err
		}
		seq = 1
	}
	g.lastTimestamp = ts
	g.sequence = seq
	return Stamp{Timestamp: ts, Sequence: seq}, nil
}

// elapsed returns the whole milliseconds between the epoch and now.
func (g *Generator) elapsed() (int64, error) {
	now := g.now()
	if !g.epoch.Before(now) {
		return 0, &ConfigurationError{Epoch: g.epoch, Now: now}
	}
	return elapsedMillis(g.epoch, now), nil
}

// elapsedMillis computes floor((to-from)/1ms) without going through
// time.Duration, which saturates for epochs more than ~292 years back.
func elapsedMillis(from, to time.Time) int64 {
	secs := to.Unix() - from.Unix()
	nanos := int64(to.Nanosecond() - from.Nanosecond())
	ms := nanos / int64(time.Millisecond)
	if nanos%int64(time.Millisecond) < 0 {
		ms--
	}
	return secs*1000 + ms
}

// Stamp is the timestamp and sequence pair behind one ID.
type Stamp struct {
	Timestamp int64 // milliseconds since the epoch
	Sequence  int64 // 1-based position within the millisecond
}

// Format renders the stamp as an ID.
func (s Stamp) Format(zeroPad bool) string {
	seq := strconv.FormatInt(s.Sequence, 10)
	if zeroPad {
		for len(seq) < SequenceWidth {
			seq = "0" + seq
		}
	}
	return strconv.FormatInt(s.Timestamp, 10) + seq
}

// Time returns the UTC instant the stamp's millisecond window started at.
func (s Stamp) Time(epoch time.Time) time.Time {
	if epoch.IsZero() {
		epoch = UnixEpoch
	}
	secs := s.Timestamp / 1000
	nanos := (s.Timestamp%1000)*int64(time.Millisecond) + int64(epoch.Nanosecond())
	return time.Unix(epoch.Unix()+secs, nanos).UTC()
}
