// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("indexes/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	idx, err := fmindex.Load(ctx, store, "hg38.fmi")
//
// Reads are ranged GETs, so loading an index pulls each section separately.
// Writes go through the SDK's multipart uploader.
package s3
