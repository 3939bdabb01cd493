package persist

import (
	"context"
	"fmt"
	"strings"
)

// RemoteOptions selects and configures the remote store.
type RemoteOptions struct {
	// Driver is one of none, memory, postgres (alias cockroach) or s3.
	Driver string
	DSN    string
	Pool   *PoolConfig
	S3     *S3StoreConfig
}

// OpenRemote builds the configured remote store. It returns nil for the none
// driver.
func OpenRemote(ctx context.Context, opts RemoteOptions) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "postgres", "cockroach":
		return NewPostgresStoreFromDSN(opts.DSN, opts.Pool)
	case "s3":
		return NewS3Store(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("unknown remote driver %q", opts.Driver)
	}
}
