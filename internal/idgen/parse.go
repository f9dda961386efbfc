package idgen

import (
	"fmt"
	"strconv"
)

// Parse splits a zero-padded ID into its stamp. Unpadded IDs have no fixed
// boundary between timestamp and sequence and cannot be parsed.
func Parse(id string) (Stamp, error) {
	if len(id) <= SequenceWidth {
		return Stamp{}, fmt.Errorf("%w: %q is shorter than %d digits", ErrMalformedID, id, SequenceWidth+1)
	}
	for pos, c := range id {
		if c < '0' || c > '9' {
			return Stamp{}, fmt.Errorf("%w: %q has non-digit %q at position %d", ErrMalformedID, id, c, pos)
		}
	}

	tsPart := id[:len(id)-SequenceWidth]
	seqPart := id[len(id)-SequenceWidth:]
	if len(tsPart) > 1 && tsPart[0] == '0' {
		return Stamp{}, fmt.Errorf("%w: %q has a leading zero in the timestamp", ErrMalformedID, id)
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return Stamp{}, fmt.Errorf("%w: timestamp of %q: %v", ErrMalformedID, id, err)
	}
	seq, err := strconv.ParseInt(seqPart, 10, 64)
	if err != nil {
		return Stamp{}, fmt.Errorf("%w: sequence of %q: %v", ErrMalformedID, id, err)
	}
	if seq < 1 || seq >= SequenceLimit {
		return Stamp{}, fmt.Errorf("%w: %q has sequence %d outside 1..%d", ErrMalformedID, id, seq, SequenceLimit-1)
	}
	return Stamp{Timestamp: ts, Sequence: seq}, nil
}
