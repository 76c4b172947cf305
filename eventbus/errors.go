package eventbus

import "errors"

var (
	ErrClosed         = errors.New("eventbus: closed")
	ErrWriteDenied    = errors.New("eventbus: write command not authorised")
	ErrUnknownSession = errors.New("eventbus: unknown session")
	ErrInvalidCommand = errors.New("eventbus: invalid write command")
	ErrNoDisconnect   = errors.New("eventbus: session has no disconnect handle")
)
