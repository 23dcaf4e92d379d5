package storage

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/splat3api/splatsync/internal/domain"
)

// OpenBucket opens a bucket URL: gs://name, file:///dir or mem://.
func OpenBucket(ctx context.Context, url string) (*blob.Bucket, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: bucket url is empty", domain.ErrConfiguration)
	}
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", url, err)
	}
	return b, nil
}
