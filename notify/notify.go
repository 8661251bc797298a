// Package notify defines the named notifications the adapter emits to the
// application layer and the translator that shapes them.
//
// Every notification is one of a closed set of types. Applications match on
// the Go type (or on Name, which carries the stable wire name) rather than on
// an untyped field bag.
package notify

import (
	"github.com/ciena/dfadapter/events"
	"github.com/ciena/dfadapter/store"
	log "github.com/sirupsen/logrus"
)

// Notification names
const (
	NameSwitchFeatures      = "switch_features_handler"
	NamePortDescStatsReply  = "port_desc_stats_reply_handler"
	NameUpdateLogicalSwitch = "update_logical_switch"
	NameRemoveLogicalSwitch = "remove_logical_switch"
	NameAddLocalPort        = "add_local_port"
	NameRemoveLocalPort     = "remove_local_port"
	NameAddRemotePort       = "add_remote_port"
	NameRemoveRemotePort    = "remove_remote_port"
	NameAddRouterPort       = "add_router_port"
	NameRemoveRouterPort    = "remove_router_port"
)

// Notification is implemented only by the types in this package
type Notification interface {
	Name() string
	Fields() log.Fields
	notification()
}

// Dispatcher is the sink notifications are delivered to
type Dispatcher interface {
	Dispatch(Notification)
}

type SwitchFeatures struct {
	Event *events.SwitchFeatures
}

type PortDescStatsReply struct {
	Event *events.PortDescStatsReply
}

type UpdateLogicalSwitch struct {
	LSwitch store.LogicalSwitch
}

type RemoveLogicalSwitch struct {
	LSwitch store.LogicalSwitch
}

type AddLocalPort struct {
	LPort store.LogicalPort
}

type RemoveLocalPort struct {
	LPort store.LogicalPort
}

type AddRemotePort struct {
	LPort store.LogicalPort
}

type RemoveRemotePort struct {
	LPort store.LogicalPort
}

// AddRouterPort carries the local network id of the router port's logical
// switch, nil when the switch is unknown.
type AddRouterPort struct {
	Router         store.LogicalRouter
	RouterPort     store.LogicalRouterPort
	LocalNetworkID *uint32
}

type RemoveRouterPort struct {
	RouterPort     store.LogicalRouterPort
	LocalNetworkID *uint32
}

func (SwitchFeatures) Name() string      { return NameSwitchFeatures }
func (PortDescStatsReply) Name() string  { return NamePortDescStatsReply }
func (UpdateLogicalSwitch) Name() string { return NameUpdateLogicalSwitch }
func (RemoveLogicalSwitch) Name() string { return NameRemoveLogicalSwitch }
func (AddLocalPort) Name() string        { return NameAddLocalPort }
func (RemoveLocalPort) Name() string     { return NameRemoveLocalPort }
func (AddRemotePort) Name() string       { return NameAddRemotePort }
func (RemoveRemotePort) Name() string    { return NameRemoveRemotePort }
func (AddRouterPort) Name() string       { return NameAddRouterPort }
func (RemoveRouterPort) Name() string    { return NameRemoveRouterPort }

func (n SwitchFeatures) Fields() log.Fields      { return log.Fields{"ev": n.Event} }
func (n PortDescStatsReply) Fields() log.Fields  { return log.Fields{"ev": n.Event} }
func (n UpdateLogicalSwitch) Fields() log.Fields { return log.Fields{"lswitch": n.LSwitch} }
func (n RemoveLogicalSwitch) Fields() log.Fields { return log.Fields{"lswitch": n.LSwitch} }
func (n AddLocalPort) Fields() log.Fields        { return log.Fields{"lport": n.LPort} }
func (n RemoveLocalPort) Fields() log.Fields     { return log.Fields{"lport": n.LPort} }
func (n AddRemotePort) Fields() log.Fields       { return log.Fields{"lport": n.LPort} }
func (n RemoveRemotePort) Fields() log.Fields    { return log.Fields{"lport": n.LPort} }

func (n AddRouterPort) Fields() log.Fields {
	return log.Fields{
		"router":           n.Router,
		"router_port":      n.RouterPort,
		"local_network_id": n.LocalNetworkID,
	}
}

func (n RemoveRouterPort) Fields() log.Fields {
	return log.Fields{
		"router_port":      n.RouterPort,
		"local_network_id": n.LocalNetworkID,
	}
}

func (SwitchFeatures) notification()      {}
func (PortDescStatsReply) notification()  {}
func (UpdateLogicalSwitch) notification() {}
func (RemoveLogicalSwitch) notification() {}
func (AddLocalPort) notification()        {}
func (RemoveLocalPort) notification()     {}
func (AddRemotePort) notification()       {}
func (RemoveRemotePort) notification()    {}
func (AddRouterPort) notification()       {}
func (RemoveRouterPort) notification()    {}
