package fmindex

import (
	"bytes"
	"context"
	"slices"
	"testing"

	"github.com/hupe1980/rpstage/dna"
	"github.com/hupe1980/rpstage/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T, opts ...Option) (*Index, []Sequence) {
	t.Helper()
	rng := testutil.NewRNG(4711)
	refs := []Sequence{
		{Name: "chr1", Seq: rng.Reference(3000)},
		{Name: "chr2", Seq: rng.Reference(1500)},
		{Name: "chrM", Seq: dna.EncodeString("ACGTACGTNNNNACGTTTGA")},
	}
	idx, err := Build(t.Context(), refs, opts...)
	require.NoError(t, err)
	return idx, refs
}

// countAll mirrors Count: N never matches, not even an N in the reference.
func countAll(refs []Sequence, pattern []byte) int {
	for _, sym := range pattern {
		if !dna.IsBase(sym) {
			return 0
		}
	}
	n := 0
	for _, r := range refs {
		n += testutil.CountOccurrences(r.Seq, pattern)
	}
	return n
}

func TestIndex_CountMatchesNaive(t *testing.T) {
	idx, refs := buildTestIndex(t, WithOccSampleRate(16), WithSASampleRate(8), WithParallelism(3))
	rng := testutil.NewRNG(42)

	for _, length := range []int{1, 2, 5, 9, 14, 30} {
		for _, r := range rng.SampleReads(refs[0].Seq, 25, length, 0.05) {
			lo, hi := idx.Count(r.Key)
			assert.Equal(t, countAll(refs, r.Key), int(hi-lo), "pattern %s", dna.Decode(r.Key))
		}
	}
}

func TestIndex_PatternWithN(t *testing.T) {
	idx, _ := buildTestIndex(t)
	lo, hi := idx.Count(dna.EncodeString("ACGTN"))
	assert.Zero(t, hi-lo)
	assert.Zero(t, lo)
}

func TestIndex_ExtendFromFull(t *testing.T) {
	idx, refs := buildTestIndex(t)

	lo, hi := idx.Full()
	assert.Equal(t, idx.Len(), hi-lo)

	key := refs[1].Seq[100:120]
	for i := len(key) - 1; i >= 0; i-- {
		lo, hi = idx.Extend(lo, hi, key[i])
	}
	clo, chi := idx.Count(key)
	assert.Equal(t, clo, lo)
	assert.Equal(t, chi, hi)
	assert.GreaterOrEqual(t, hi-lo, uint64(1))

	l2, h2 := idx.Extend(lo, hi, dna.N)
	assert.Zero(t, h2-l2)
}

func TestIndex_Locate(t *testing.T) {
	idx, refs := buildTestIndex(t, WithSASampleRate(5))
	assert.Equal(t, 3, idx.NumSequences())

	key := refs[0].Seq[1234:1264]
	lo, hi := idx.Count(key)
	require.Greater(t, hi, lo)

	found := false
	for row := lo; row < hi; row++ {
		name, pos, ok := idx.Locate(row)
		require.True(t, ok)
		if name == "chr1" && pos == 1234 {
			found = true
		}
		var seq []byte
		for _, r := range refs {
			if r.Name == name {
				seq = r.Seq
			}
		}
		assert.Equal(t, key, seq[pos:pos+len(key)])
	}
	assert.True(t, found)

	lo, hi = idx.Count(dna.EncodeString("TTGA"))
	hits := map[string]int{}
	for row := lo; row < hi; row++ {
		name, pos, ok := idx.Locate(row)
		require.True(t, ok)
		if name == "chrM" {
			hits[name] = pos
		}
	}
	assert.Equal(t, 16, hits["chrM"])

	_, _, ok := idx.Locate(idx.Len())
	assert.False(t, ok)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(t.Context(), nil)
	require.ErrorIs(t, err, ErrInvalidOptions)

	_, err = Build(t.Context(), []Sequence{{Name: "x", Seq: []byte{dna.A}}}, WithOccSampleRate(0))
	require.ErrorIs(t, err, ErrInvalidOptions)

	ctx, cancel := testContext(t)
	cancel()
	_, err = Build(ctx, []Sequence{{Name: "x", Seq: []byte{dna.A}}})
	require.Error(t, err)
}

func TestSuffixArray_MatchesComparisonSort(t *testing.T) {
	rng := testutil.NewRNG(7)
	texts := map[string][]byte{
		"random":      rng.Reference(2000),
		"homopolymer": bytes.Repeat([]byte{1}, 500),
		"tandem":      bytes.Repeat([]byte{1, 2, 3, 1, 2}, 300),
		"single":      {},
	}
	for name, text := range texts {
		t.Run(name, func(t *testing.T) {
			text := append(slices.Clone(text), rankSentinel)
			want := make([]uint32, len(text))
			for i := range want {
				want[i] = uint32(i)
			}
			slices.SortFunc(want, func(a, b uint32) int {
				return bytes.Compare(text[a:], text[b:])
			})

			got, err := suffixArray(t.Context(), text)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := suffixArray(ctx, []byte{1, 2, rankSentinel})
	require.ErrorIs(t, err, context.Canceled)
}
