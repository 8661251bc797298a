package store

import (
	"fmt"
	"sync"
)

// Port is the in-memory logical port
type Port struct {
	id       string
	name     string
	lswitch  string
	remote   bool
	external map[string]interface{}
	lock     sync.RWMutex
}

// NewPort creates a logical port bound to the given physical port name
func NewPort(id, name, lswitch string) *Port {
	return &Port{
		id:       id,
		name:     name,
		lswitch:  lswitch,
		external: make(map[string]interface{}),
	}
}

func (p *Port) ID() string      { return p.id }
func (p *Port) Name() string    { return p.name }
func (p *Port) LSwitch() string { return p.lswitch }
func (p *Port) Remote() bool    { return p.remote }

// SetExternalValue sets an attribute owned by the control plane
func (p *Port) SetExternalValue(key string, value interface{}) {
	p.lock.Lock()
	p.external[key] = value
	p.lock.Unlock()
}

// GetExternalValue returns an attribute previously set with
// SetExternalValue
func (p *Port) GetExternalValue(key string) (interface{}, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	v, ok := p.external[key]
	return v, ok
}

func (p *Port) String() string {
	return fmt.Sprintf("lport(%s, %s)", p.id, p.name)
}

// Switch is the in-memory logical switch
type Switch struct {
	id             string
	localNetworkID uint32
}

func (s *Switch) ID() string             { return s.id }
func (s *Switch) LocalNetworkID() uint32 { return s.localNetworkID }

// Router is the in-memory logical router
type Router struct {
	id    string
	ports []*RouterPort
}

// NewRouter creates a logical router with the given ports
func NewRouter(id string, ports ...*RouterPort) *Router {
	return &Router{id: id, ports: ports}
}

func (r *Router) ID() string { return r.id }

// Ports returns the router's ports
func (r *Router) Ports() []*RouterPort { return r.ports }

// RouterPort is the in-memory router port
type RouterPort struct {
	id      string
	lswitch string
	mac     string
	network string
}

// NewRouterPort creates a router port attached to a logical switch
func NewRouterPort(id, lswitch, mac, network string) *RouterPort {
	return &RouterPort{id: id, lswitch: lswitch, mac: mac, network: network}
}

func (rp *RouterPort) ID() string      { return rp.id }
func (rp *RouterPort) LSwitch() string { return rp.lswitch }
func (rp *RouterPort) MAC() string     { return rp.mac }
func (rp *RouterPort) Network() string { return rp.network }
