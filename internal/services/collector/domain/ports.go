package domain

import (
	"context"
	"iter"
)

// CollectorPort is the public port exposed by the module
type CollectorPort interface {
	Collect(ctx context.Context, refs []string) (Report, error)
}

// Source is the remote channel capability
type Source interface {
	// Resolve turns a configured reference into a channel with a canonical name
	Resolve(ctx context.Context, ref string) (Channel, error)

	// Posts lazily yields up to limit of the most recent posts, newest first
	// iteration stops at the first error
	Posts(ctx context.Context, ch Channel, limit int) iter.Seq2[Post, error]

	// Download saves the attachment at dest and returns the written path
	Download(ctx context.Context, photo Photo, dest string) (string, error)
}
