package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrMalformedEnvelope  = fmt.Errorf("malformed envelope")
	ErrUnknownEvent       = fmt.Errorf("unknown event")
	ErrInvalidPayload     = fmt.Errorf("invalid payload")
	ErrNotFound           = fmt.Errorf("instance not found")
	ErrInvalidTransition  = fmt.Errorf("invalid status transition")
	ErrConnectionNotFound = fmt.Errorf("connection not found")
	ErrChannelClosed      = fmt.Errorf("channel closed")
	ErrSendBufferFull     = fmt.Errorf("send buffer full")
	ErrLoopStopped        = fmt.Errorf("dispatch loop stopped")
	ErrDuplicateRoute     = fmt.Errorf("duplicate route")
	ErrUnsupportedBackend = fmt.Errorf("unsupported store backend")
)

// Is reports whether any error in err's tree matches target.
// Re-exported so callers importing this package don't need the standard one.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
