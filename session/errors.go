package session

import "github.com/cockroachdb/errors"

// ErrAlreadyClosed is returned by Close when called on a session whose
// socket has already been released.
var ErrAlreadyClosed = errors.New("session already closed")
