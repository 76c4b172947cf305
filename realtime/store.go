package realtime

import (
	"sync"

	"github.com/bronystylecrazy/assetbridge/bridge"
	mqtt "github.com/mochi-mqtt/server/v2"
)

type storedConnection struct {
	client *mqtt.Client
	conn   bridge.Connection
}

// ConnectionStore holds the bridge connection of every authenticated client.
// Entries are owned by the *mqtt.Client that created them, so a session taken
// over by a new client with the same id is not released by the old one.
type ConnectionStore struct {
	mu   sync.RWMutex
	data map[string]storedConnection
}

func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{
		data: make(map[string]storedConnection),
	}
}

func (s *ConnectionStore) Set(cl *mqtt.Client, conn bridge.Connection) {
	s.mu.Lock()
	s.data[cl.ID] = storedConnection{client: cl, conn: conn}
	s.mu.Unlock()
}

func (s *ConnectionStore) Get(clientID string) (bridge.Connection, bool) {
	s.mu.RLock()
	stored, ok := s.data[clientID]
	s.mu.RUnlock()
	return stored.conn, ok
}

// Release removes the entry of cl if cl still owns it.
func (s *ConnectionStore) Release(cl *mqtt.Client) (bridge.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.data[cl.ID]
	if !ok || stored.client != cl {
		return bridge.Connection{}, false
	}
	delete(s.data, cl.ID)
	return stored.conn, true
}

func (s *ConnectionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
