package patch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// IndexRange is {start, end} with the invariant end > start when present;
// equal and reversed endpoints are rejected at parse time.
type IndexRange struct {
	Start uint64
	End   *uint64
}

// ErrRangeMalformed covers syntactically invalid range text (extra dashes,
// missing numbers, negative numbers).
var ErrRangeMalformed = errors.New("malformed range")

// ErrRangeReflexive covers "N-N".
var ErrRangeReflexive = errors.New("reflexive range")

// ErrRangeReversed covers "M-N" with M > N.
var ErrRangeReversed = errors.New("reversed range")

// ErrRangeOutOfBounds covers a range whose indices don't fit the stack.
var ErrRangeOutOfBounds = errors.New("range out of stack bounds")

// ParseRange parses "N" or "N-M" (M > N). Negative numbers, reflexive
// ranges, reversed ranges, trailing dashes, and multiple dashes are all
// rejected, matching the range parse total order law.
func ParseRange(s string) (IndexRange, error) {
	parts := strings.Split(s, "-")
	switch len(parts) {
	case 1:
		n, err := parseUint(parts[0])
		if err != nil {
			return IndexRange{}, fmt.Errorf("%w: %q: %v", ErrRangeMalformed, s, err)
		}
		return IndexRange{Start: n}, nil
	case 2:
		start, err := parseUint(parts[0])
		if err != nil {
			return IndexRange{}, fmt.Errorf("%w: %q: %v", ErrRangeMalformed, s, err)
		}
		if parts[1] == "" {
			return IndexRange{}, fmt.Errorf("%w: %q", ErrRangeMalformed, s)
		}
		end, err := parseUint(parts[1])
		if err != nil {
			return IndexRange{}, fmt.Errorf("%w: %q: %v", ErrRangeMalformed, s, err)
		}
		if end == start {
			return IndexRange{}, fmt.Errorf("%w: %q", ErrRangeReflexive, s)
		}
		if end < start {
			return IndexRange{}, fmt.Errorf("%w: %q", ErrRangeReversed, s)
		}
		return IndexRange{Start: start, End: &end}, nil
	default:
		return IndexRange{}, fmt.Errorf("%w: %q", ErrRangeMalformed, s)
	}
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseUint(s, 10, 64)
}

// ParseBatch parses a space-separated list of ranges.
func ParseBatch(s string) ([]IndexRange, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrRangeMalformed)
	}
	out := make([]IndexRange, len(fields))
	for i, f := range fields {
		r, err := ParseRange(f)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// EndOr returns End if present, else Start (a single-patch range).
func (r IndexRange) EndOr() uint64 {
	if r.End != nil {
		return *r.End
	}
	return r.Start
}

// ValidateWithinStack checks that both endpoints index into patches.
func ValidateWithinStack(r IndexRange, patches []ListPatch) error {
	n := uint64(len(patches))
	if r.Start >= n {
		return fmt.Errorf("%w: start %d, stack has %d patches", ErrRangeOutOfBounds, r.Start, n)
	}
	if r.EndOr() >= n {
		return fmt.Errorf("%w: end %d, stack has %d patches", ErrRangeOutOfBounds, r.EndOr(), n)
	}
	return nil
}
