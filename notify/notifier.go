package notify

import (
	"github.com/ciena/dfadapter/events"
	"github.com/ciena/dfadapter/store"
)

// Notifier turns domain changes into notifications. Each call results in
// exactly one Dispatch on the underlying sink, with the arguments passed
// through as given.
type Notifier struct {
	sink Dispatcher
}

// NewNotifier returns a Notifier delivering to sink
func NewNotifier(sink Dispatcher) *Notifier {
	return &Notifier{sink: sink}
}

func (n *Notifier) NotifySwitchFeatures(ev *events.SwitchFeatures) {
	n.sink.Dispatch(SwitchFeatures{Event: ev})
}

func (n *Notifier) NotifyPortDescStatsReply(ev *events.PortDescStatsReply) {
	n.sink.Dispatch(PortDescStatsReply{Event: ev})
}

func (n *Notifier) NotifyUpdateLogicalSwitch(lswitch store.LogicalSwitch) {
	n.sink.Dispatch(UpdateLogicalSwitch{LSwitch: lswitch})
}

func (n *Notifier) NotifyRemoveLogicalSwitch(lswitch store.LogicalSwitch) {
	n.sink.Dispatch(RemoveLogicalSwitch{LSwitch: lswitch})
}

func (n *Notifier) NotifyAddLocalPort(lport store.LogicalPort) {
	n.sink.Dispatch(AddLocalPort{LPort: lport})
}

func (n *Notifier) NotifyRemoveLocalPort(lport store.LogicalPort) {
	n.sink.Dispatch(RemoveLocalPort{LPort: lport})
}

func (n *Notifier) NotifyAddRemotePort(lport store.LogicalPort) {
	n.sink.Dispatch(AddRemotePort{LPort: lport})
}

func (n *Notifier) NotifyRemoveRemotePort(lport store.LogicalPort) {
	n.sink.Dispatch(RemoveRemotePort{LPort: lport})
}

func (n *Notifier) NotifyAddRouterPort(router store.LogicalRouter, routerPort store.LogicalRouterPort, localNetworkID *uint32) {
	n.sink.Dispatch(AddRouterPort{
		Router:         router,
		RouterPort:     routerPort,
		LocalNetworkID: localNetworkID,
	})
}

func (n *Notifier) NotifyRemoveRouterPort(routerPort store.LogicalRouterPort, localNetworkID *uint32) {
	n.sink.Dispatch(RemoveRouterPort{
		RouterPort:     routerPort,
		LocalNetworkID: localNetworkID,
	})
}
