package classifier

import "errors"

// Boundary error kinds. Both are recoverable: the engine leaves the
// message unclassified and a later pass picks it up again.
var (
	ErrUnavailable = errors.New("classifier unavailable")
	ErrTimeout     = errors.New("classifier timeout")
)
