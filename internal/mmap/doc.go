// Package mmap provides read-only memory-mapped file access for index files.
//
// # Usage
//
//	m, err := mmap.Open("hg38.fmi")
//	if err != nil { ... }
//	defer m.Close()
//
//	// Index sections are decoded front to back
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): Uses mmap(2) with madvise(2) for access hints
//   - Windows: Uses CreateFileMapping/MapViewOfFile (madvise is a no-op)
//
// # Thread Safety
//
// Mapping is safe for concurrent read access. Close is idempotent. Callers
// must ensure no goroutines access Bytes() after Close() returns.
package mmap
