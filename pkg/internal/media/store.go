package media

import (
	"context"
	"errors"
	"io"
)

// Store hosts user media outside of the database. References returned by
// Upload are opaque to callers and are handed back verbatim to Release.
type Store interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	Release(ctx context.Context, ref string) error
}

var ErrNotConfigured = errors.New("media store is not configured")

// Unconfigured refuses uploads and ignores releases. Used when no bucket is set.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, string, io.Reader) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Release(context.Context, string) error {
	return nil
}
