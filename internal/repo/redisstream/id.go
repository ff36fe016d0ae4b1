package redisstream

import (
	"fmt"
	"strconv"
	"strings"
)

// Stream ids have the form "<epoch_ms>-<seq>" and order first by
// milliseconds, then by sequence. String comparison is not enough
// ("99-0" > "100-0" lexicographically), so acks and catch-up positions go
// through these helpers.

// ParseStreamID splits a stream id into its millisecond and sequence
// parts.
func ParseStreamID(id string) (ms, seq uint64, err error) {
	dash := strings.IndexByte(id, '-')
	if dash <= 0 || dash == len(id)-1 {
		return 0, 0, fmt.Errorf("malformed stream id %q", id)
	}
	ms, err = strconv.ParseUint(id[:dash], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed stream id %q: %w", id, err)
	}
	seq, err = strconv.ParseUint(id[dash+1:], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed stream id %q: %w", id, err)
	}
	return ms, seq, nil
}

// CompareStreamIDs returns -1, 0 or 1. Both ids must be well-formed;
// callers validate with ParseStreamID first.
func CompareStreamIDs(a, b string) int {
	ams, aseq, errA := ParseStreamID(a)
	bms, bseq, errB := ParseStreamID(b)
	if errA != nil || errB != nil {
		// fall back to string comparison rather than guessing
		return strings.Compare(a, b)
	}
	switch {
	case ams < bms:
		return -1
	case ams > bms:
		return 1
	case aseq < bseq:
		return -1
	case aseq > bseq:
		return 1
	}
	return 0
}
