package fmindex

import (
	"bytes"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/rpstage/dna"
)

// Internal BWT ranks. The sentinel sorts first, the sequence separator last.
const (
	rankSentinel  = 0
	rankSeparator = 5
	sigma         = 6
)

func rankOf(sym byte) byte {
	if dna.IsBase(sym) {
		return sym + 1
	}
	return rankSeparator
}

// Sequence is one named reference sequence in encoded form.
type Sequence struct {
	Name string
	Seq  []byte
}

// Index is an FM-index over a set of reference sequences.
// It is immutable after Build or Read and safe for concurrent use.
type Index struct {
	n       uint64 // text length including the sentinel
	bwt     []byte // ranks
	c       [sigma + 1]uint64
	occRate uint32
	occ     []uint32 // checkpoint k covers bwt[:k*occRate], sigma counters each

	saRate  uint32
	sampled *roaring.Bitmap // BWT rows whose SA value is stored
	samples []uint32        // SA values of sampled rows in row order

	names  []string
	starts []uint64 // text offset of each sequence
}

// Len returns the length of the indexed text, including separators and the
// sentinel.
func (x *Index) Len() uint64 { return x.n }

// NumSequences returns the number of indexed reference sequences.
func (x *Index) NumSequences() int { return len(x.names) }

// Full returns the interval matching the empty pattern.
func (x *Index) Full() (lo, hi uint64) { return 0, x.n }

// occAt counts rank r in bwt[:i].
func (x *Index) occAt(r byte, i uint64) uint64 {
	k := i / uint64(x.occRate)
	cnt := uint64(x.occ[k*sigma+uint64(r)])
	for j := k * uint64(x.occRate); j < i; j++ {
		if x.bwt[j] == r {
			cnt++
		}
	}
	return cnt
}

// Extend prepends sym to the pattern matched by [lo, hi) and returns the new
// interval. Symbols outside the alphabet yield an empty interval.
func (x *Index) Extend(lo, hi uint64, sym byte) (uint64, uint64) {
	if !dna.IsBase(sym) || lo >= hi {
		return 0, 0
	}
	r := rankOf(sym)
	return x.c[r] + x.occAt(r, lo), x.c[r] + x.occAt(r, hi)
}

// Count returns the suffix-array interval of pattern. The number of
// occurrences is hi - lo.
func (x *Index) Count(pattern []byte) (lo, hi uint64) {
	lo, hi = x.Full()
	for i := len(pattern) - 1; i >= 0 && lo < hi; i-- {
		lo, hi = x.Extend(lo, hi, pattern[i])
	}
	if lo >= hi {
		return 0, 0
	}
	return lo, hi
}

// lf maps row i to the row of the suffix one position to the left.
func (x *Index) lf(i uint64) uint64 {
	r := x.bwt[i]
	return x.c[r] + x.occAt(r, i)
}

// rowOfTextStart returns the BWT row of the whole text, the only row whose
// BWT symbol is the sentinel.
func (x *Index) rowOfTextStart() uint32 {
	return uint32(bytes.IndexByte(x.bwt, rankSentinel))
}

// textPos recovers SA[row] by walking LF until a sampled row is reached.
func (x *Index) textPos(row uint64) uint64 {
	steps := uint64(0)
	for !x.sampled.Contains(uint32(row)) {
		row = x.lf(row)
		steps++
	}
	idx := x.sampled.Rank(uint32(row)) - 1
	return uint64(x.samples[idx]) + steps
}

// Locate returns the sequence name and 0-based position of the suffix at
// BWT row. ok is false for rows that start at a separator or the sentinel.
func (x *Index) Locate(row uint64) (name string, pos int, ok bool) {
	if row >= x.n {
		return "", 0, false
	}
	p := x.textPos(row)
	i := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > p }) - 1
	if i < 0 {
		return "", 0, false
	}
	// Every sequence is followed by a separator; the sentinel comes last.
	end := x.n - 2
	if i+1 < len(x.starts) {
		end = x.starts[i+1] - 1
	}
	if p >= end {
		return "", 0, false
	}
	return x.names[i], int(p - x.starts[i]), true
}
