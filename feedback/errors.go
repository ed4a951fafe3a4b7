package feedback

import "errors"

// ErrInvalidRequest is wrapped by every RequestContext validation failure.
var ErrInvalidRequest = errors.New("invalid request context")
