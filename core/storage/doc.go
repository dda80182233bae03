// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the small Client interface used by the
// cache region (feature/cacheregion). Both AWS S3 and self-hosted MinIO work.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider so cache tests
// can run against the testify mock in core/storage/mocks.
//
// # Operations
//
//   - BucketExists and MakeBucket: prepare the cache bucket at startup.
//   - PutObject and GetObject: write and read one cache entry.
//   - RemoveObject: evict one entry.
//   - ListObjects and RemoveObjects: purge every entry of a role.
//
// # Helpers
//
// EnsureBucket provisions the cache bucket. ReadObject and WriteObject move
// whole objects, and ReadObject reports a missing object as not found instead
// of failing; IsNotFound applies the same classification to any minio error.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	if err := storage.EnsureBucket(ctx, client, config.Bucket, config.Region); err != nil {
//	    return err
//	}
//	data, found, err := storage.ReadObject(ctx, client, config.Bucket, "collections/Order.lines/7.json")
package storage
