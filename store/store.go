// Package store holds the logical network entities (switches, ports and
// routers) the adapter resolves physical switch ports against. The
// in-memory implementation can be seeded from a TOML file.
package store

import (
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// External attribute keys set on logical ports by the adapter
const (
	ExternalOFPort  = "ofport"
	ExternalIsLocal = "is_local"
)

// LogicalPort is a logical port that may be bound to a physical switch port
type LogicalPort interface {
	ID() string
	Name() string
	SetExternalValue(key string, value interface{})
	GetExternalValue(key string) (interface{}, bool)
}

// LogicalSwitch is a logical L2 network
type LogicalSwitch interface {
	ID() string
	LocalNetworkID() uint32
}

// LogicalRouter connects logical switches through router ports
type LogicalRouter interface {
	ID() string
}

// LogicalRouterPort is a router interface attached to a logical switch
type LogicalRouterPort interface {
	ID() string
	LSwitch() string
}

// Store resolves physical port names to logical ports
type Store interface {
	GetLocalPortByName(name string) (LogicalPort, bool)
}

// Publisher receives the logical topology announced by a store
type Publisher interface {
	NotifyUpdateLogicalSwitch(lswitch LogicalSwitch)
	NotifyAddRemotePort(lport LogicalPort)
	NotifyAddRouterPort(router LogicalRouter, routerPort LogicalRouterPort, localNetworkID *uint32)
}

// MemStore is an in-memory Store
type MemStore struct {
	switches map[string]*Switch
	ports    map[string]*Port
	byName   map[string]*Port
	routers  map[string]*Router
	nextNet  uint32
	lock     sync.RWMutex
}

// NewMemStore returns an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		switches: make(map[string]*Switch),
		ports:    make(map[string]*Port),
		byName:   make(map[string]*Port),
		routers:  make(map[string]*Router),
	}
}

// GetLocalPortByName returns the logical port bound to the given physical
// port name.
func (s *MemStore) GetLocalPortByName(name string) (LogicalPort, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	p, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return p, true
}

// AddSwitch adds a logical switch, assigning it the next local network id
// if it does not yet exist.
func (s *MemStore) AddSwitch(id string) *Switch {
	s.lock.Lock()
	defer s.lock.Unlock()
	if sw, ok := s.switches[id]; ok {
		return sw
	}
	s.nextNet++
	sw := &Switch{id: id, localNetworkID: s.nextNet}
	s.switches[id] = sw
	return sw
}

// Switch returns the logical switch with the given id
func (s *MemStore) Switch(id string) (*Switch, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	sw, ok := s.switches[id]
	return sw, ok
}

// AddPort adds a logical port, replacing any port with the same id
func (s *MemStore) AddPort(p *Port) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if old, ok := s.ports[p.id]; ok {
		delete(s.byName, old.name)
	}
	s.ports[p.id] = p
	s.byName[p.name] = p
}

// DeletePort removes a logical port by id
func (s *MemStore) DeletePort(id string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if p, ok := s.ports[id]; ok {
		delete(s.byName, p.name)
		delete(s.ports, id)
	}
}

// Port returns the logical port with the given id
func (s *MemStore) Port(id string) (*Port, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	p, ok := s.ports[id]
	return p, ok
}

// AddRouter adds a logical router
func (s *MemStore) AddRouter(r *Router) {
	s.lock.Lock()
	s.routers[r.id] = r
	s.lock.Unlock()
}

// Publish announces the stored topology: every logical switch, every port
// hosted on another chassis and every router port. Ports hosted locally are
// announced by the switch itself through port status messages.
func (s *MemStore) Publish(pub Publisher) {
	s.lock.RLock()
	switches := make([]*Switch, 0, len(s.switches))
	for _, sw := range s.switches {
		switches = append(switches, sw)
	}
	var remote []*Port
	for _, p := range s.ports {
		if p.Remote() {
			remote = append(remote, p)
		}
	}
	routers := make([]*Router, 0, len(s.routers))
	for _, r := range s.routers {
		routers = append(routers, r)
	}
	s.lock.RUnlock()

	sort.Slice(switches, func(i, j int) bool { return switches[i].id < switches[j].id })
	sort.Slice(remote, func(i, j int) bool { return remote[i].id < remote[j].id })
	sort.Slice(routers, func(i, j int) bool { return routers[i].id < routers[j].id })

	for _, sw := range switches {
		pub.NotifyUpdateLogicalSwitch(sw)
	}
	for _, p := range remote {
		pub.NotifyAddRemotePort(p)
	}
	for _, r := range routers {
		for _, rp := range r.Ports() {
			var lnid *uint32
			if sw, ok := s.Switch(rp.lswitch); ok {
				id := sw.LocalNetworkID()
				lnid = &id
			}
			pub.NotifyAddRouterPort(r, rp, lnid)
		}
	}
}

type seedFile struct {
	Switches []string     `toml:"switches"`
	Ports    []seedPort   `toml:"ports"`
	Routers  []seedRouter `toml:"routers"`
}

type seedPort struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	LSwitch string `toml:"lswitch"`
	Remote  bool   `toml:"remote"`
}

type seedRouter struct {
	ID    string           `toml:"id"`
	Ports []seedRouterPort `toml:"ports"`
}

type seedRouterPort struct {
	ID      string `toml:"id"`
	LSwitch string `toml:"lswitch"`
	MAC     string `toml:"mac"`
	Network string `toml:"network"`
}

// LoadFile populates the store from a TOML seed file
func (s *MemStore) LoadFile(path string) error {
	var seed seedFile
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return errors.Wrapf(err, "unable to load store seed %s", path)
	}
	return s.load(&seed)
}

// LoadString populates the store from TOML text
func (s *MemStore) LoadString(data string) error {
	var seed seedFile
	if _, err := toml.Decode(data, &seed); err != nil {
		return errors.Wrap(err, "unable to parse store seed")
	}
	return s.load(&seed)
}

func (s *MemStore) load(seed *seedFile) error {
	for _, id := range seed.Switches {
		s.AddSwitch(id)
	}
	for i, sp := range seed.Ports {
		if sp.ID == "" || sp.Name == "" {
			return errors.Errorf("port[%d] requires both id and name", i)
		}
		if sp.LSwitch != "" {
			s.AddSwitch(sp.LSwitch)
		}
		p := NewPort(sp.ID, sp.Name, sp.LSwitch)
		p.remote = sp.Remote
		s.AddPort(p)
	}
	for i, sr := range seed.Routers {
		if sr.ID == "" {
			return errors.Errorf("router[%d] requires an id", i)
		}
		r := &Router{id: sr.ID}
		for _, srp := range sr.Ports {
			if srp.LSwitch != "" {
				s.AddSwitch(srp.LSwitch)
			}
			r.ports = append(r.ports, &RouterPort{
				id:      srp.ID,
				lswitch: srp.LSwitch,
				mac:     srp.MAC,
				network: srp.Network,
			})
		}
		s.AddRouter(r)
	}
	s.lock.RLock()
	switches := len(s.switches)
	s.lock.RUnlock()
	log.WithFields(log.Fields{
		"switches": switches,
		"ports":    len(seed.Ports),
		"routers":  len(seed.Routers),
	}).Info("Loaded logical topology")
	return nil
}
