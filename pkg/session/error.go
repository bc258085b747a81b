package session

import "errors"

// ErrInvalidAdvance is returned when the id counter is moved by anything
// other than one remembered turn.
var ErrInvalidAdvance = errors.New("invalid id advance")
