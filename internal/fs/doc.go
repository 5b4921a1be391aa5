// Package fs abstracts the file operations of the local blob store so tests
// can inject I/O faults.
//
//   - [LocalFS]: production implementation on the os package
//   - [FaultyFS]: wraps another FileSystem and fails writes, syncs, closes or
//     renames on files whose name matches a rule
//
// Production code uses [Default].
package fs
