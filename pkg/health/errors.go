package health

import "errors"

var (
	// ErrCheckTimeout is reported for a check still running when the run deadline passes.
	ErrCheckTimeout = errors.New("health: check timeout")
)
