// Package adapter sits between the OpenFlow control connection of a single
// switch and the logical network applications. It tracks the current
// connection, demultiplexes packet in messages by table id, and translates
// connection and port events into named notifications.
//
// The protocol engine delivers one event at a time; every On* method runs to
// completion before the next event is delivered.
package adapter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ciena/dfadapter/apps"
	"github.com/ciena/dfadapter/events"
	"github.com/ciena/dfadapter/notify"
	"github.com/ciena/dfadapter/readiness"
	"github.com/ciena/dfadapter/registry"
	"github.com/ciena/dfadapter/store"
	log "github.com/sirupsen/logrus"
)

// Adapter is the control channel adapter for one switch
type Adapter struct {
	*notify.Notifier

	loader apps.Loader
	store  store.Store
	gate   *readiness.Gate
	tables *registry.Registry
}

// New creates an adapter. The loader is invoked by Start; notifications are
// delivered to sink.
func New(loader apps.Loader, sink notify.Dispatcher, s store.Store) *Adapter {
	return &Adapter{
		Notifier: notify.NewNotifier(countingSink{sink}),
		loader:   loader,
		store:    s,
		gate:     readiness.NewGate(),
		tables:   registry.New(),
	}
}

type countingSink struct {
	notify.Dispatcher
}

func (c countingSink) Dispatch(n notify.Notification) {
	stats.Dispatched(n.Name())
	c.Dispatcher.Dispatch(n)
}

// Start loads the applications and then blocks until the switch has
// connected.
func (a *Adapter) Start() error {
	return a.StartContext(context.Background())
}

// StartContext is Start with a context that can abandon the wait for the
// switch.
func (a *Adapter) StartContext(ctx context.Context) error {
	if err := a.loader.Load(a, a.store); err != nil {
		return err
	}
	log.Info("Applications loaded, waiting for switch to connect")
	if err := a.gate.WaitContext(ctx); err != nil {
		return err
	}
	dp := a.gate.Datapath()
	log.WithFields(log.Fields{
		"dpid": fmt.Sprintf("0x%016x", dp.DPID()),
	}).Info("Switch connected, adapter ready")
	return nil
}

// Datapath returns the current switch connection, or nil
func (a *Adapter) Datapath() events.Datapath {
	return a.gate.Datapath()
}

// IsReady returns true once a switch has connected
func (a *Adapter) IsReady() bool {
	return a.gate.IsReady()
}

// Transitions returns the connection state history
func (a *Adapter) Transitions() []readiness.Transition {
	return a.gate.Transitions()
}

// TableIDs returns the tables that have a registered handler
func (a *Adapter) TableIDs() []events.TableID {
	return a.tables.Tables()
}

// RegisterTableHandler sets the handler for packet in messages from the
// given table. Only one handler may be registered per table.
func (a *Adapter) RegisterTableHandler(table events.TableID, handler registry.Handler) error {
	if err := a.tables.Register(table, handler); err != nil {
		log.WithFields(log.Fields{
			"table": table,
		}).WithError(err).Error("Rejected table handler registration")
		return err
	}
	log.WithFields(log.Fields{
		"table": table,
	}).Debug("Registered table handler")
	return nil
}

// UnregisterTableHandler removes the handler for a table. Removal is keyed
// by table alone; the handler argument is not compared.
func (a *Adapter) UnregisterTableHandler(table events.TableID, handler registry.Handler) {
	a.tables.Unregister(table)
	log.WithFields(log.Fields{
		"table": table,
	}).Debug("Unregistered table handler")
}

// OnSwitchFeatures records the new connection and announces it.
func (a *Adapter) OnSwitchFeatures(ev *events.SwitchFeatures) {
	a.gate.Connect(ev.Datapath)
	stats.Connected()

	log.WithFields(log.Fields{
		"dpid":       fmt.Sprintf("0x%016x", ev.Datapath.DPID()),
		"of_version": ev.Version,
	}).Info("Switch features received")

	if ev.Version < events.AutoPortDescVersion {
		if err := ev.Datapath.SendPortDescStatsRequest(); err != nil {
			log.WithFields(log.Fields{
				"dpid": fmt.Sprintf("0x%016x", ev.Datapath.DPID()),
			}).WithError(err).Error("Unable to request port descriptions")
		}
	}

	a.NotifySwitchFeatures(ev)
}

// OnPortStatus binds or releases logical ports as physical ports come and
// go.
func (a *Adapter) OnPortStatus(ev *events.PortStatus) {
	stats.PortStatus(ev.Reason.String())
	fields := log.Fields{
		"port_no": ev.PortNo,
		"name":    ev.Name,
	}

	switch ev.Reason {
	case events.PortAdded:
		log.WithFields(fields).Info("Port added")
		lport, ok := a.store.GetLocalPortByName(ev.Name)
		if !ok {
			log.WithFields(fields).Info("No logical port for added port")
			return
		}
		lport.SetExternalValue(store.ExternalOFPort, ev.PortNo)
		lport.SetExternalValue(store.ExternalIsLocal, true)
		a.NotifyAddLocalPort(lport)
	case events.PortDeleted:
		log.WithFields(fields).Info("Port deleted")
		lport, ok := a.store.GetLocalPortByName(ev.Name)
		if !ok {
			log.WithFields(fields).Info("No logical port for deleted port")
			return
		}
		// ofport keeps the last known port number
		a.NotifyRemoveLocalPort(lport)
	case events.PortModified:
		// Modified ports are logged only, no notification is emitted
		log.WithFields(fields).Info("Port modified")
	default:
		log.WithFields(fields).
			WithField("reason", uint8(ev.Reason)).
			Warn("Illegal port state")
	}
}

// OnPortDescStatsReply forwards the port description reply unchanged.
func (a *Adapter) OnPortDescStatsReply(ev *events.PortDescStatsReply) {
	a.NotifyPortDescStatsReply(ev)
}

// OnPacketIn hands the packet to the handler registered for its table.
func (a *Adapter) OnPacketIn(ev *events.PacketIn) {
	table := strconv.Itoa(int(ev.TableID))
	handler, ok := a.tables.Lookup(ev.TableID)
	stats.PacketIn(table, ok)
	if !ok {
		log.WithFields(log.Fields{
			"table": ev.TableID,
		}).Info("No handler for table id")
		return
	}
	handler(ev)
}
