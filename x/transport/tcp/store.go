package tcp

import (
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/framewire-net/framewire/x/transport"
)

// connStore implements transport.ConnectionStore over a sharded concurrent
// map so the accept loop, read loops and broadcast never contend on one lock.
type connStore struct {
	m cmap.ConcurrentMap[string, transport.Connection]
}

func newConnStore() *connStore {
	return &connStore{m: cmap.New[transport.Connection]()}
}

func (s *connStore) Set(id string, conn transport.Connection) { s.m.Set(id, conn) }

func (s *connStore) Get(id string) (transport.Connection, bool) { return s.m.Get(id) }

func (s *connStore) Remove(id string) { s.m.Remove(id) }

func (s *connStore) Count() int { return s.m.Count() }

func (s *connStore) Items() map[string]transport.Connection { return s.m.Items() }
