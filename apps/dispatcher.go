package apps

import (
	"sync"

	"github.com/ciena/dfadapter/notify"
	"github.com/ciena/dfadapter/store"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Dispatcher loads the configured applications and delivers notifications
// to them in load order. It is both the adapter's Loader and its
// notification sink.
type Dispatcher struct {
	names []string
	apps  []Application
	lock  sync.RWMutex
}

// NewDispatcher creates a dispatcher for the named applications
func NewDispatcher(names []string) *Dispatcher {
	return &Dispatcher{names: names}
}

// Load instantiates every configured application. Loading stops at the
// first application that is unknown or fails to initialize.
func (d *Dispatcher) Load(ctrl Controller, s store.Store) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	for _, name := range d.names {
		if name == "" {
			continue
		}
		factory, ok := lookup(name)
		if !ok {
			return errors.Errorf("unknown application '%s', available %v", name, Available())
		}
		app, err := factory(ctrl, s)
		if err != nil {
			return errors.Wrapf(err, "unable to load application '%s'", name)
		}
		d.apps = append(d.apps, app)
		log.WithFields(log.Fields{
			"app": app.Name(),
		}).Info("Loaded application")
	}
	return nil
}

// Applications returns the loaded applications
func (d *Dispatcher) Applications() []Application {
	d.lock.RLock()
	defer d.lock.RUnlock()
	out := make([]Application, len(d.apps))
	copy(out, d.apps)
	return out
}

// Dispatch delivers a notification to every application that handles it
func (d *Dispatcher) Dispatch(n notify.Notification) {
	if log.GetLevel() >= log.DebugLevel {
		log.WithFields(n.Fields()).
			WithField("notification", n.Name()).
			Debug("Dispatching notification")
	}

	for _, app := range d.Applications() {
		switch t := n.(type) {
		case notify.SwitchFeatures:
			if h, ok := app.(SwitchFeaturesHandler); ok {
				h.SwitchFeatures(t.Event)
			}
		case notify.PortDescStatsReply:
			if h, ok := app.(PortDescStatsReplyHandler); ok {
				h.PortDescStatsReply(t.Event)
			}
		case notify.UpdateLogicalSwitch:
			if h, ok := app.(LogicalSwitchHandler); ok {
				h.UpdateLogicalSwitch(t.LSwitch)
			}
		case notify.RemoveLogicalSwitch:
			if h, ok := app.(LogicalSwitchHandler); ok {
				h.RemoveLogicalSwitch(t.LSwitch)
			}
		case notify.AddLocalPort:
			if h, ok := app.(LocalPortHandler); ok {
				h.AddLocalPort(t.LPort)
			}
		case notify.RemoveLocalPort:
			if h, ok := app.(LocalPortHandler); ok {
				h.RemoveLocalPort(t.LPort)
			}
		case notify.AddRemotePort:
			if h, ok := app.(RemotePortHandler); ok {
				h.AddRemotePort(t.LPort)
			}
		case notify.RemoveRemotePort:
			if h, ok := app.(RemotePortHandler); ok {
				h.RemoveRemotePort(t.LPort)
			}
		case notify.AddRouterPort:
			if h, ok := app.(RouterPortHandler); ok {
				h.AddRouterPort(t.Router, t.RouterPort, t.LocalNetworkID)
			}
		case notify.RemoveRouterPort:
			if h, ok := app.(RouterPortHandler); ok {
				h.RemoveRouterPort(t.RouterPort, t.LocalNetworkID)
			}
		}
	}
}
