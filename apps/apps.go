// Package apps loads the logical network applications that run on top of
// the adapter and fans notifications out to them.
//
// Applications register a Factory under a name, usually from an init
// function, and are instantiated in the order given by configuration. An
// application receives a notification by implementing the matching
// handler interface below; interfaces it does not implement are skipped.
package apps

import (
	"sort"
	"sync"

	"github.com/ciena/dfadapter/events"
	"github.com/ciena/dfadapter/registry"
	"github.com/ciena/dfadapter/store"
)

// Controller is the part of the adapter exposed to applications
type Controller interface {
	RegisterTableHandler(table events.TableID, handler registry.Handler) error
	UnregisterTableHandler(table events.TableID, handler registry.Handler)
	Datapath() events.Datapath
}

// Loader instantiates the configured applications
type Loader interface {
	Load(ctrl Controller, s store.Store) error
}

// Application is a loaded logical network application
type Application interface {
	Name() string
}

// Factory creates an application bound to a controller and store
type Factory func(ctrl Controller, s store.Store) (Application, error)

var factories = make(map[string]Factory)

var factoriesLock sync.RWMutex

// Register makes an application factory available by name. Registering the
// same name twice panics.
func Register(name string, factory Factory) {
	factoriesLock.Lock()
	defer factoriesLock.Unlock()
	if _, ok := factories[name]; ok {
		panic("apps: Register called twice for application " + name)
	}
	factories[name] = factory
}

// Available returns the names of all registered application factories
func Available() []string {
	factoriesLock.RLock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	factoriesLock.RUnlock()
	sort.Strings(names)
	return names
}

func lookup(name string) (Factory, bool) {
	factoriesLock.RLock()
	defer factoriesLock.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Handler interfaces, one per notification

type SwitchFeaturesHandler interface {
	SwitchFeatures(ev *events.SwitchFeatures)
}

type PortDescStatsReplyHandler interface {
	PortDescStatsReply(ev *events.PortDescStatsReply)
}

type LogicalSwitchHandler interface {
	UpdateLogicalSwitch(lswitch store.LogicalSwitch)
	RemoveLogicalSwitch(lswitch store.LogicalSwitch)
}

type LocalPortHandler interface {
	AddLocalPort(lport store.LogicalPort)
	RemoveLocalPort(lport store.LogicalPort)
}

type RemotePortHandler interface {
	AddRemotePort(lport store.LogicalPort)
	RemoveRemotePort(lport store.LogicalPort)
}

type RouterPortHandler interface {
	AddRouterPort(router store.LogicalRouter, routerPort store.LogicalRouterPort, localNetworkID *uint32)
	RemoveRouterPort(routerPort store.LogicalRouterPort, localNetworkID *uint32)
}
