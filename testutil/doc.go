// Package testutil provides testing utilities for rpstage.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded RNG, random reference genomes and read sampling.
//
// # Random References
//
//	rng := testutil.NewRNG(seed)
//	ref := rng.Reference(10_000)          // encoded ACGT symbols
//	reads := rng.SampleReads(ref, 100, 36, 0.02)
//
// # Naive Matching (Ground Truth)
//
//	n := testutil.CountOccurrences(ref, pattern)
package testutil
