package idgen_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ilocn/stampid/internal/idgen"
)

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// frozenAt returns a clock stuck at the given number of ms after the Unix epoch.
func frozenAt(ms int64) func() time.Time {
	t := time.UnixMilli(ms).UTC()
	return func() time.Time { return t }
}

func TestGetID_SameMillisecondZeroPadded(t *testing.T) {
	t.Parallel()
	g := idgen.New(idgen.WithZeroPad(true), idgen.WithClock(frozenAt(1700000000000)))

	first, err := g.GetID()
	require.NoError(t, err)
	second, err := g.GetID()
	require.NoError(t, err)

	assert.Equal(t, "17000000000000001", first)
	assert.Equal(t, "17000000000000002", second)
}

func TestGetID_Padding(t *testing.T) {
	t.Parallel()
	tests := []struct {
		seq      int64
		padded   string
		unpadded string
	}{
		{1, "0001", "1"},
		{7, "0007", "7"},
		{42, "0042", "42"},
		{123, "0123", "123"},
		{9998, "9998", "9998"},
	}
	for _, tc := range tests {
		s := idgen.Stamp{Timestamp: 55, Sequence: tc.seq}
		assert.Equal(t, "55"+tc.padded, s.Format(true), "seq %d padded", tc.seq)
		assert.Equal(t, "55"+tc.unpadded, s.Format(false), "seq %d unpadded", tc.seq)
	}
}

func TestGetID_RealClockFormat(t *testing.T) {
	t.Parallel()
	padded := idgen.New(idgen.WithZeroPad(true))
	plain := idgen.New()
	before := time.Now().UnixMilli()

	for i := 0; i < 200; i++ {
		id, err := padded.GetID()
		require.NoError(t, err)
		require.True(t, isDigits(id), "id %q is not all digits", id)
		s, err := idgen.Parse(id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.Timestamp, before)

		id, err = plain.GetID()
		require.NoError(t, err)
		require.True(t, isDigits(id), "id %q is not all digits", id)
		// Timestamp has no leading zero and the sequence suffix has none
		// when it is the first in its window.
		require.NotEqual(t, byte('0'), id[0])
	}
}

func TestGetID_UnpaddedFirstSuffixIsOne(t *testing.T) {
	t.Parallel()
	g := idgen.New(idgen.WithClock(frozenAt(1234)))
	id, err := g.GetID()
	require.NoError(t, err)
	assert.Equal(t, "12341", id)
}

func TestGetID_FutureEpoch(t *testing.T) {
	t.Parallel()
	g := idgen.New(idgen.WithEpoch(time.Now().Add(time.Hour)))

	id, err := g.GetID()
	require.Error(t, err)
	assert.Empty(t, id)
	assert.True(t, errors.Is(err, idgen.ErrConfiguration))
	assert.Contains(t, err.Error(), "epoch is not earlier than current time")

	var cfgErr *idgen.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, cfgErr.Epoch.After(cfgErr.Now))
}

// TestGetID_Concurrent issues 10 x 1000 IDs from one generator and checks
// every result is distinct and well-formed.
func TestGetID_Concurrent(t *testing.T) {
	t.Parallel()
	for _, zeroPad := range []bool{true, false} {
		g := idgen.New(idgen.WithZeroPad(zeroPad))

		const workers, perWorker = 10, 1000
		results := make([][]string, workers)
		errs := make(chan error, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				ids := make([]string, 0, perWorker)
				for i := 0; i < perWorker; i++ {
					id, err := g.GetID()
					if err != nil {
						errs <- err
						return
					}
					ids = append(ids, id)
				}
				results[w] = ids
			}(w)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("zeroPad=%v: GetID: %v", zeroPad, err)
		}

		seen := make(map[string]struct{}, workers*perWorker)
		for _, ids := range results {
			for _, id := range ids {
				require.True(t, isDigits(id), "zeroPad=%v: malformed id %q", zeroPad, id)
				if _, dup := seen[id]; dup {
					t.Fatalf("zeroPad=%v: duplicate id %q", zeroPad, id)
				}
				seen[id] = struct{}{}
			}
		}
		assert.Len(t, seen, workers*perWorker)
	}
}

// TestGetID_OrderedWithinWorker checks that IDs taken one after another by a
// single caller are non-decreasing as (timestamp, sequence) pairs.
func TestGetID_OrderedWithinWorker(t *testing.T) {
	t.Parallel()
	g := idgen.New(idgen.WithZeroPad(true))
	var prev idgen.Stamp
	for i := 0; i < 5000; i++ {
		s, err := g.Next()
		require.NoError(t, err)
		if i > 0 && s.Timestamp == prev.Timestamp {
			require.Equal(t, prev.Sequence+1, s.Sequence)
		} else if i > 0 {
			require.Greater(t, s.Timestamp, prev.Timestamp)
			require.EqualValues(t, 1, s.Sequence)
		}
		prev = s
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	s, err := idgen.Parse("17000000000000042")
	require.NoError(t, err)
	assert.Equal(t, idgen.Stamp{Timestamp: 1700000000000, Sequence: 42}, s)

	s, err = idgen.Parse("09998")
	require.NoError(t, err)
	assert.Equal(t, idgen.Stamp{Timestamp: 0, Sequence: 9998}, s)

	for _, bad := range []string{
		"",
		"0001",
		"12a40001",
		"-12340001",
		"17000000000000000",
		"17000000000009999",
		"0170000000000001",
		"１２３４５",
		"99999999999999999999990001",
	} {
		_, err := idgen.Parse(bad)
		assert.ErrorIs(t, err, idgen.ErrMalformedID, "Parse(%q)", bad)
	}
}

func TestStampTime(t *testing.T) {
	t.Parallel()
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := idgen.Stamp{Timestamp: 90061001, Sequence: 3}
	assert.Equal(t, time.Date(2024, 1, 2, 1, 1, 1, int(time.Millisecond), time.UTC), s.Time(epoch))
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), idgen.Stamp{Timestamp: 1700000000123}.Time(time.Time{}))
}

// TestProperty_SequenceRunsInCallOrder: for any frozen millisecond and any
// N below the limit, the suffixes are exactly 1..N and all IDs are distinct.
func TestProperty_SequenceRunsInCallOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms := rapid.Int64Range(1, 1<<45).Draw(t, "ms")
		n := rapid.IntRange(1, 300).Draw(t, "n")
		zeroPad := rapid.Bool().Draw(t, "zeroPad")
		g := idgen.New(idgen.WithZeroPad(zeroPad), idgen.WithClock(frozenAt(ms)))

		seen := make(map[string]bool, n)
		for i := 1; i <= n; i++ {
			s, err := g.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if s.Timestamp != ms || s.Sequence != int64(i) {
				t.Fatalf("call %d: got %+v, want {%d %d}", i, s, ms, i)
			}
			id := s.Format(zeroPad)
			if seen[id] {
				t.Fatalf("duplicate id %q", id)
			}
			seen[id] = true
		}
	})
}

// TestProperty_ParseInvertsPaddedFormat: Parse(Format(true)) is the identity
// over the valid stamp space.
func TestProperty_ParseInvertsPaddedFormat(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := idgen.Stamp{
			Timestamp: rapid.Int64Range(0, 1<<50).Draw(t, "timestamp"),
			Sequence:  rapid.Int64Range(1, idgen.SequenceLimit-1).Draw(t, "sequence"),
		}
		id := want.Format(true)
		if len(id) < idgen.SequenceWidth+1 {
			t.Fatalf("id %q too short", id)
		}
		got, err := idgen.Parse(id)
		if err != nil {
			t.Fatalf("Parse(%q): %v", id, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %+v, want %+v", id, got, want)
		}
	})
}

// FuzzParse checks that Parse never panics and that anything it accepts
// formats back to the same string.
//
// Run with: go test -fuzz=FuzzParse -fuzztime=30s ./internal/idgen/
func FuzzParse(f *testing.F) {
	f.Add("17000000000000001")
	f.Add("09998")
	f.Add("0001")
	f.Add("1x0001")

	f.Fuzz(func(t *testing.T, id string) {
		s, err := idgen.Parse(id)
		if err != nil {
			return
		}
		if got := s.Format(true); got != id {
			t.Errorf("Parse(%q) = %+v formats back to %q", id, s, got)
		}
	})
}
