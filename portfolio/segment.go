/*
segment.go - Balance segment sets and charge range resolution

PURPOSE:
  A balance segment set partitions the positive number line into bands,
  each with its own identifier, for stepped fee schedules. A charge that
  references a from/to pair of segment identifiers only taxes the slice
  of its referent that falls inside the resolved band.

RESOLUTION:
  The from segment's lower bound becomes the range floor. If the to
  segment is not the last segment, the ceiling is the lower bound of the
  segment after it; otherwise the range is unbounded above. A segment
  identifier absent from the set resolves to "no range", which means the
  charge does not apply. That absence is a configuration-mismatch
  signal, not a hard failure.
*/
package portfolio

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE SEGMENT SET
// =============================================================================

// BalanceSegment is one band: an identifier paired with its lower bound.
type BalanceSegment struct {
	Identifier string
	LowerBound decimal.Decimal
}

// BalanceSegmentSet is a product-scoped ordered list of segments. The
// first bound is implicitly the set's floor.
type BalanceSegmentSet struct {
	Identifier        string
	ProductIdentifier string
	Segments          []BalanceSegment
}

// Validate enforces the set invariants: non-negative, strictly ascending
// lower bounds, and distinct segment identifiers.
func (s BalanceSegmentSet) Validate() error {
	seen := make(map[string]bool, len(s.Segments))
	var prev *decimal.Decimal
	for i := range s.Segments {
		seg := s.Segments[i]
		if seg.Identifier == "" {
			return &AmbiguousConfigurationError{ProductIdentifier: s.ProductIdentifier,
				Detail: fmt.Sprintf("segment set %q has an unnamed segment", s.Identifier)}
		}
		if seen[seg.Identifier] {
			return &AmbiguousConfigurationError{ProductIdentifier: s.ProductIdentifier,
				Detail: fmt.Sprintf("segment set %q repeats segment %q", s.Identifier, seg.Identifier)}
		}
		seen[seg.Identifier] = true
		if seg.LowerBound.IsNegative() {
			return &AmbiguousConfigurationError{ProductIdentifier: s.ProductIdentifier,
				Detail: fmt.Sprintf("segment %q has a negative lower bound", seg.Identifier)}
		}
		if prev != nil && !seg.LowerBound.GreaterThan(*prev) {
			return &AmbiguousConfigurationError{ProductIdentifier: s.ProductIdentifier,
				Detail: fmt.Sprintf("segment set %q bounds are not strictly ascending at %q", s.Identifier, seg.Identifier)}
		}
		bound := seg.LowerBound
		prev = &bound
	}
	return nil
}

// sortedSegments returns the segments ordered by lower bound ascending.
func (s BalanceSegmentSet) sortedSegments() []BalanceSegment {
	out := make([]BalanceSegment, len(s.Segments))
	copy(out, s.Segments)
	sort.Slice(out, func(i, j int) bool { return out[i].LowerBound.LessThan(out[j].LowerBound) })
	return out
}

// =============================================================================
// CHARGE RANGE
// =============================================================================

// ChargeRange is a resolved [LowerBound, UpperBound) band for one charge
// instance. A nil UpperBound means unbounded above.
type ChargeRange struct {
	LowerBound decimal.Decimal
	UpperBound *decimal.Decimal
}

// Clip reduces a referent to the slice of it that falls inside the range.
// A tiered fee only taxes the portion of balance inside its band.
func (r ChargeRange) Clip(referent decimal.Decimal) decimal.Decimal {
	v := referent
	if r.UpperBound != nil && v.GreaterThan(*r.UpperBound) {
		v = *r.UpperBound
	}
	v = v.Sub(r.LowerBound)
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// =============================================================================
// RESOLVER
// =============================================================================

// ResolveChargeRange locates the band a charge's segment reference names
// within the set. The boolean is false when either referenced segment
// identifier is not present, in which case the charge does not apply.
func ResolveChargeRange(set BalanceSegmentSet, ref SegmentRange) (ChargeRange, bool) {
	segments := set.sortedSegments()

	fromIdx, toIdx := -1, -1
	for i, seg := range segments {
		if seg.Identifier == ref.FromSegment {
			fromIdx = i
		}
		if seg.Identifier == ref.ToSegment {
			toIdx = i
		}
	}
	if fromIdx < 0 || toIdx < 0 {
		return ChargeRange{}, false
	}

	r := ChargeRange{LowerBound: segments[fromIdx].LowerBound}
	if toIdx+1 < len(segments) {
		upper := segments[toIdx+1].LowerBound
		r.UpperBound = &upper
	}
	return r, true
}
