package event

const ConnectionTypeMQTT = "mqtt"

type Lifecycle uint8

const (
	LifecycleNone Lifecycle = iota
	LifecycleOpen
	LifecycleClose
	LifecycleCloseError
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleOpen:
		return "open"
	case LifecycleClose:
		return "close"
	case LifecycleCloseError:
		return "close_error"
	default:
		return "none"
	}
}

// DisconnectFunc forces the session it was issued for off the transport.
type DisconnectFunc func(reason string) error

// Headers is the context attached to every message the bridge forwards to
// the bus. Values are never mutated after construction; With* return copies.
type Headers struct {
	SessionKey     string
	ConnectionType string
	Realm          string
	Auth           *AuthContext
	Lifecycle      Lifecycle
	Disconnect     DisconnectFunc
	// CleanStart is set on an open transition when the client asked for a
	// fresh session.
	CleanStart bool
}

func (h Headers) WithLifecycle(l Lifecycle) Headers {
	h.Lifecycle = l
	return h
}

func (h Headers) WithDisconnect(fn DisconnectFunc) Headers {
	h.Disconnect = fn
	return h
}

func (h Headers) WithCleanStart(clean bool) Headers {
	h.CleanStart = clean
	return h
}
