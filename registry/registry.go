// Package registry maps a flow table id to the single handler responsible
// for packet in messages sent from that table.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/ciena/dfadapter/events"
)

// ErrTableRegistered is returned when a handler is registered for a table
// that already has one.
var ErrTableRegistered = errors.New("table handler already registered")

// Handler processes a single packet in message
type Handler func(*events.PacketIn)

// Registry holds at most one handler per table id
type Registry struct {
	handlers map[events.TableID]Handler
	lock     sync.RWMutex
}

// New returns an empty registry
func New() *Registry {
	return &Registry{
		handlers: make(map[events.TableID]Handler),
	}
}

// Register associates a handler with a table. Registering a second handler
// for the same table fails and leaves the first in place.
func (r *Registry) Register(table events.TableID, handler Handler) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.handlers[table]; ok {
		return ErrTableRegistered
	}
	r.handlers[table] = handler
	return nil
}

// Unregister removes the handler for a table, if any.
func (r *Registry) Unregister(table events.TableID) {
	r.lock.Lock()
	delete(r.handlers, table)
	r.lock.Unlock()
}

// Lookup returns the handler for a table
func (r *Registry) Lookup(table events.TableID) (Handler, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	h, ok := r.handlers[table]
	return h, ok
}

// Tables returns the registered table ids in ascending order
func (r *Registry) Tables() []events.TableID {
	r.lock.RLock()
	tables := make([]events.TableID, 0, len(r.handlers))
	for table := range r.handlers {
		tables = append(tables, table)
	}
	r.lock.RUnlock()
	sort.Slice(tables, func(i, j int) bool { return tables[i] < tables[j] })
	return tables
}
