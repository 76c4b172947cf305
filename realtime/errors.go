package realtime

import "errors"

var ErrClientIDRequired = errors.New("realtime: client id is required")
var ErrClientNotFound = errors.New("realtime: client not found")
var ErrInvalidMessage = errors.New("realtime: websocket message type not binary")
var ErrNoListeners = errors.New("realtime: no listener enabled")
