package device

import (
	"testing"

	"github.com/hupe1980/rpstage/dna"
	"github.com/hupe1980/rpstage/fmindex"
	"github.com/hupe1980/rpstage/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) (*fmindex.Index, []byte) {
	t.Helper()
	ref := testutil.NewRNG(4711).Reference(4000)
	idx, err := fmindex.Build(t.Context(), []fmindex.Sequence{{Name: "chr1", Seq: ref}})
	require.NoError(t, err)
	return idx, ref
}

// checkProfile verifies the structural properties of an adaptive profile.
func checkProfile(t *testing.T, idx *fmindex.Index, key []byte, regions []Region, maxRegions int, p AdaptiveParams) {
	t.Helper()
	require.LessOrEqual(t, len(regions), maxRegions)

	prevBegin := len(key)
	for i, r := range regions {
		require.Less(t, r.Begin, r.End)
		require.LessOrEqual(t, r.End, prevBegin, "regions are emitted right to left without overlap")
		prevBegin = r.Begin

		for _, sym := range key[r.Begin:r.End] {
			require.Less(t, int(sym), p.AlphabetSize)
		}
		lo, hi := idx.Count(key[r.Begin:r.End])
		assert.Equal(t, lo, r.Lo)
		assert.Equal(t, hi, r.Hi)
		assert.Positive(t, r.Hi-r.Lo)

		last := i == len(regions)-1
		if last || r.Hi-r.Lo <= p.OccMinThreshold || r.Begin == 0 {
			continue
		}
		// A frequent region that is not the last was cut because the
		// next base could not extend it.
		if int(key[r.Begin-1]) < p.AlphabetSize {
			l2, h2 := idx.Count(key[r.Begin-1 : r.End])
			assert.Zero(t, h2-l2, "region [%d,%d) stopped early", r.Begin, r.End)
		}
	}
}

func TestProfileAdaptive_Properties(t *testing.T) {
	idx, ref := newTestIndex(t)
	rng := testutil.NewRNG(1)

	params := []AdaptiveParams{
		DefaultAdaptiveParams(),
		{Enabled: true, OccMinThreshold: 1, ExtraSearchSteps: 0, AlphabetSize: dna.AlphabetSize},
		{Enabled: true, OccMinThreshold: 50, ExtraSearchSteps: 4, AlphabetSize: dna.AlphabetSize},
	}
	for _, p := range params {
		for _, r := range rng.SampleReads(ref, 30, 100, 0.03) {
			for _, maxRegions := range []int{1, 3, 20} {
				regions := profileAdaptive(nil, idx, r.Key, maxRegions, p)
				checkProfile(t, idx, r.Key, regions, maxRegions, p)
			}
		}
	}
}

func TestProfileAdaptive_NBreaksRegions(t *testing.T) {
	idx, ref := newTestIndex(t)
	key := append(append(append([]byte{}, ref[100:130]...), dna.N, dna.N), ref[500:530]...)

	p := AdaptiveParams{Enabled: true, OccMinThreshold: 0, AlphabetSize: dna.AlphabetSize}
	regions := profileAdaptive(nil, idx, key, 10, p)
	require.NotEmpty(t, regions)

	// The rightmost run is profiled first and never crosses the N run.
	assert.Equal(t, len(key), regions[0].End)
	for _, r := range regions {
		assert.False(t, r.Begin < 32 && r.End > 30, "region [%d,%d) spans N", r.Begin, r.End)
	}
	checkProfile(t, idx, key, regions, 10, p)
}

func TestProfileAdaptive_ThresholdAndExtraSteps(t *testing.T) {
	idx, ref := newTestIndex(t)
	key := ref[1000:1100]

	p := AdaptiveParams{Enabled: true, OccMinThreshold: 1, ExtraSearchSteps: 3, AlphabetSize: dna.AlphabetSize}
	regions := profileAdaptive(nil, idx, key, 100, p)
	require.NotEmpty(t, regions)

	for _, r := range regions[:len(regions)-1] {
		// Unique regions get exactly ExtraSearchSteps bases beyond the
		// shortest unique suffix, unless extension failed.
		assert.LessOrEqual(t, r.Hi-r.Lo, uint64(1))
		shortest := r.End - 1
		for shortest > r.Begin {
			lo, hi := idx.Count(key[shortest:r.End])
			if hi-lo <= 1 {
				break
			}
			shortest--
		}
		assert.LessOrEqual(t, shortest-r.Begin, 3)
	}
}

func TestProfileAdaptive_Empty(t *testing.T) {
	idx, _ := newTestIndex(t)
	p := DefaultAdaptiveParams()
	assert.Empty(t, profileAdaptive(nil, idx, nil, 5, p))
	assert.Empty(t, profileAdaptive(nil, idx, dna.EncodeString("NNNN"), 5, p))
	assert.Empty(t, profileAdaptive(nil, idx, dna.EncodeString("ACGT"), 0, p))
}
