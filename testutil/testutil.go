package testutil

import (
	"bytes"
	"math/rand"
	"sync"

	"github.com/hupe1980/rpstage/dna"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Reference returns n random encoded bases (no N).
func (r *RNG) Reference(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := make([]byte, n)
	for i := range ref {
		ref[i] = byte(r.rand.Intn(dna.AlphabetSize))
	}
	return ref
}

// Read is a sampled substring of a reference, possibly mutated.
type Read struct {
	Pos  int
	Key  []byte
	Edit int // number of substituted bases
}

// SampleReads draws count reads of the given length from ref. Each base is
// substituted with probability errRate; one in twenty substitutions writes N.
func (r *RNG) SampleReads(ref []byte, count, length int, errRate float64) []Read {
	if length > len(ref) {
		length = len(ref)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	reads := make([]Read, count)
	for i := range reads {
		pos := r.rand.Intn(len(ref) - length + 1)
		key := bytes.Clone(ref[pos : pos+length])
		edits := 0
		for j := range key {
			if r.rand.Float64() >= errRate {
				continue
			}
			if r.rand.Intn(20) == 0 {
				key[j] = dna.N
			} else {
				key[j] = byte((int(key[j]) + 1 + r.rand.Intn(dna.AlphabetSize-1)) % dna.AlphabetSize)
			}
			edits++
		}
		reads[i] = Read{Pos: pos, Key: key, Edit: edits}
	}
	return reads
}

// SamplePairs draws count read pairs: end1 from the forward strand and end2
// as the reverse complement of a window insert bases downstream.
func (r *RNG) SamplePairs(ref []byte, count, length, insert int) [][2]Read {
	span := length + insert
	if span > len(ref) {
		span = len(ref)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	pairs := make([][2]Read, count)
	for i := range pairs {
		pos := r.rand.Intn(len(ref) - span + 1)
		mate := pos + span - length
		pairs[i] = [2]Read{
			{Pos: pos, Key: bytes.Clone(ref[pos : pos+length])},
			{Pos: mate, Key: dna.ReverseComplement(ref[mate : mate+length])},
		}
	}
	return pairs
}

// CountOccurrences counts (possibly overlapping) exact matches of pattern in
// text. It is the quadratic reference the index is checked against.
func CountOccurrences(text, pattern []byte) int {
	if len(pattern) == 0 {
		return len(text) + 1
	}
	n := 0
	for i := 0; i+len(pattern) <= len(text); i++ {
		if bytes.Equal(text[i:i+len(pattern)], pattern) {
			n++
		}
	}
	return n
}
