package testutil

import (
	"testing"

	"github.com/hupe1980/rpstage/dna"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference(t *testing.T) {
	rng := NewRNG(4711)
	ref := rng.Reference(1000)

	require.Len(t, ref, 1000)
	for _, sym := range ref {
		assert.True(t, dna.IsBase(sym))
	}
}

func TestSampleReads(t *testing.T) {
	rng := NewRNG(4711)
	ref := rng.Reference(500)

	exact := rng.SampleReads(ref, 20, 36, 0)
	for _, r := range exact {
		assert.Equal(t, ref[r.Pos:r.Pos+36], r.Key)
		assert.Zero(t, r.Edit)
	}

	noisy := rng.SampleReads(ref, 20, 36, 0.5)
	edits := 0
	for _, r := range noisy {
		require.Len(t, r.Key, 36)
		edits += r.Edit
	}
	assert.Positive(t, edits)
}

func TestSamplePairs(t *testing.T) {
	rng := NewRNG(7)
	ref := rng.Reference(400)

	for _, p := range rng.SamplePairs(ref, 10, 30, 100) {
		assert.Equal(t, ref[p[0].Pos:p[0].Pos+30], p[0].Key)
		assert.Equal(t, ref[p[1].Pos:p[1].Pos+30], dna.ReverseComplement(p[1].Key))
	}
}

func TestCountOccurrences(t *testing.T) {
	text := dna.EncodeString("AAAA")
	assert.Equal(t, 3, CountOccurrences(text, dna.EncodeString("AA")))
	assert.Equal(t, 0, CountOccurrences(text, dna.EncodeString("C")))
	assert.Equal(t, 5, CountOccurrences(text, nil))
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.Reference(64)
	rng.Reset()
	assert.Equal(t, a, rng.Reference(64))
}
