package objectstore

import (
	"context"
	"fmt"
)

// Config selects and parameterizes a Store backend.
type Config struct {
	Backend   string // "local" or "gcs"
	LocalRoot string
	GCSBucket string
}

// New builds the Store selected by cfg.Backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocalStore(cfg.LocalRoot)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket)
	default:
		return nil, fmt.Errorf("unknown object store backend %q", cfg.Backend)
	}
}
