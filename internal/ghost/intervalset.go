package ghost

import "sort"

// interval is a half-open byte range [Begin, End).
type interval struct {
	Begin, End int64
}

func (iv interval) length() int64 { return iv.End - iv.Begin }

// intervalSet tracks a set of disjoint, non-adjacent-after-merge byte
// ranges that have been written for real (as opposed to implicitly
// zero-filled). There is deliberately no augmented-tree machinery here: the
// only two operations the engine needs are "add this range, merging
// whatever it touches" and "what ranges, in order, overlap this query
// range" — a sorted slice scan is simpler than a tree and just as fast at
// the sizes a single open file's dirty-range set reaches in practice.
type intervalSet struct {
	ivs []interval // kept sorted by Begin, pairwise disjoint and non-adjacent
}

// add inserts [start, end) into the set, merging any interval it overlaps
// or touches (is adjacent to) into a single run. Mirrors the original
// implementation's _optimized_add_to_intervaltree: find the intervals
// immediately before start and at/after end, chop the union range clear,
// then fill it with one interval.
func (s *intervalSet) add(start, end int64) {
	if start >= end {
		return
	}

	lo, hi := start, end
	kept := s.ivs[:0]
	for _, iv := range s.ivs {
		switch {
		case iv.End < lo || (iv.End == lo && iv.Begin == iv.End):
			// Strictly before and not touching lo.
			kept = append(kept, iv)
		case iv.End == lo:
			// Touches the new range's start: absorb it.
			if iv.Begin < lo {
				lo = iv.Begin
			}
		case iv.Begin > hi:
			kept = append(kept, iv)
		case iv.Begin == hi:
			if iv.End > hi {
				hi = iv.End
			}
		default:
			// Overlaps [start, end): absorb it entirely.
			if iv.Begin < lo {
				lo = iv.Begin
			}
			if iv.End > hi {
				hi = iv.End
			}
		}
	}

	merged := append(kept, interval{Begin: lo, End: hi})
	sort.Slice(merged, func(i, j int) bool { return merged[i].Begin < merged[j].Begin })
	s.ivs = merged
}

// truncateTo keeps only the portion of the set below length, clipping any
// interval that straddles the new boundary.
func (s *intervalSet) truncateTo(length int64) {
	if length <= 0 {
		s.ivs = nil
		return
	}
	out := s.ivs[:0]
	for _, iv := range s.ivs {
		if iv.Begin >= length {
			continue
		}
		if iv.End > length {
			iv.End = length
		}
		out = append(out, iv)
	}
	s.ivs = out
}

// end returns the end of the last interval, or 0 if the set is empty.
func (s *intervalSet) end() int64 {
	if len(s.ivs) == 0 {
		return 0
	}
	return s.ivs[len(s.ivs)-1].End
}

// overlapping returns, in order, every interval (clipped to [start, end))
// that intersects the query range.
func (s *intervalSet) overlapping(start, end int64) []interval {
	var out []interval
	for _, iv := range s.ivs {
		if iv.End <= start || iv.Begin >= end {
			continue
		}
		clipped := iv
		if clipped.Begin < start {
			clipped.Begin = start
		}
		if clipped.End > end {
			clipped.End = end
		}
		out = append(out, clipped)
	}
	return out
}

// reset replaces the set with a single interval [0, length), or empties it
// if length is 0. Used after a real flush, when every byte up to filesize
// is now genuinely on disk.
func (s *intervalSet) reset(length int64) {
	if length <= 0 {
		s.ivs = nil
		return
	}
	s.ivs = []interval{{Begin: 0, End: length}}
}
