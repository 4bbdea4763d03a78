package domain

import perr "telewarehouse/internal/platform/errors"

// ErrAllChannelsFailed is returned when no channel produced a batch
var ErrAllChannelsFailed = perr.New(perr.ErrorCodeUpstream, "collector: all channels failed")
