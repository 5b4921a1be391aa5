// Package fmindex implements an FM-index over reference genomes.
//
// The index answers backward-search queries: Count returns the suffix-array
// interval of a pattern and Extend prepends one symbol to a matched interval,
// which is the primitive region profiling is built on.
//
//	refs, err := fmindex.ReadFASTA(f)
//	idx, err := fmindex.Build(ctx, refs)
//	lo, hi := idx.Count(dna.EncodeString("ACGTTG"))
//
// Indexes are persisted with Save and Load against any blobstore.Store. The
// on-disk format stores each section compressed (zstd or lz4) with an xxhash64
// checksum.
package fmindex
