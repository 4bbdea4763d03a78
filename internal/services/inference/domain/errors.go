package domain

import perr "telewarehouse/internal/platform/errors"

// ErrNoImageRoot is returned when the image root is absent, the collector has not run
var ErrNoImageRoot = perr.New(perr.ErrorCodeNoInput, "inference: image root missing")

// ErrAllImagesFailed is returned when images were staged but every detection call failed
var ErrAllImagesFailed = perr.New(perr.ErrorCodeUpstream, "inference: all images failed detection")
