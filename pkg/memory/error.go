package memory

import "errors"

// ErrWriteFailed is returned when a turn could not be remembered. The
// caller's id counter must not move.
var ErrWriteFailed = errors.New("memory write failed")
