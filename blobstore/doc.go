// Package blobstore provides storage for serialized FM-index blobs.
//
// Store is the interface for reading and writing immutable blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, mmap reads, atomic temp+rename writes
//   - MemoryStore: in-process map, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// Blobs returned by LocalStore also implement Mappable, which lets index
// loaders decode sections straight from the mapping.
package blobstore
