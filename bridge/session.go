package bridge

import "github.com/bronystylecrazy/assetbridge/event"

// Connection is the transport session a bridge operation runs on behalf of.
type Connection struct {
	ClientID string
	Realm    string
	// Auth is nil for anonymous connections.
	Auth       *event.AuthContext
	Disconnect event.DisconnectFunc
	// CleanStart records whether the client discarded any previous session.
	CleanStart bool
}

func (c Connection) Anonymous() bool {
	return c.Auth == nil
}

// SessionContext builds the headers attached to every message forwarded for conn.
func SessionContext(conn Connection) event.Headers {
	return event.Headers{
		SessionKey:     conn.ClientID,
		ConnectionType: event.ConnectionTypeMQTT,
		Realm:          conn.Realm,
		Auth:           conn.Auth,
	}
}

// LifecycleContext builds the headers of a lifecycle notification. Only the
// open transition carries the forced-disconnect handle and the clean start flag.
func LifecycleContext(conn Connection, l event.Lifecycle) event.Headers {
	headers := SessionContext(conn).WithLifecycle(l)
	if l == event.LifecycleOpen {
		headers = headers.WithDisconnect(conn.Disconnect).WithCleanStart(conn.CleanStart)
	}
	return headers
}
