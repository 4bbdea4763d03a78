package domain

import perr "telewarehouse/internal/platform/errors"

// ErrNoStagingRoot is returned when the messages root is absent
var ErrNoStagingRoot = perr.New(perr.ErrorCodeNoInput, "loader: staging root missing")
