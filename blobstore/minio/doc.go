// Package minio provides a blobstore.Store implementation using the MinIO client.
//
// It works against MinIO and other S3-compatible systems (Ceph, SeaweedFS,
// Garage) without pulling in the AWS SDK.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "genomes", "indexes/")
//	idx, err := fmindex.Load(ctx, store, "hg38.fmi")
package minio
