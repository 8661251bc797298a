// Package tee is a sample application that copies the packets sent to the
// controller from a single table to a set of outbound end points. Each end
// point may carry match criteria so it only receives the packets it wants.
package tee

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ciena/dfadapter/apps"
	"github.com/ciena/dfadapter/connections"
	"github.com/ciena/dfadapter/criteria"
	"github.com/ciena/dfadapter/events"
	"github.com/ciena/dfadapter/store"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/kelseyhightower/envconfig"
	of "github.com/netrack/openflow"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Name the application is registered under
const Name = "tee"

// Config is read from the environment with the TEE prefix
type Config struct {
	Table uint8    `envconfig:"TABLE" default:"0" desc:"table whose packet in messages are teed"`
	To    []string `envconfig:"TO" desc:"list of end points on which to tee packet in messages"`
	Raw   bool     `envconfig:"RAW" default:"true" desc:"only tee raw packets to the end points, openflow headers not included"`
}

// OpenFlowContext prefixes non raw packets so the receiver knows which
// device and port the packet came from
type OpenFlowContext struct {
	DatapathID uint64
	Port       uint32
}

func (c *OpenFlowContext) String() string {
	return fmt.Sprintf("[0x%016x, 0x%04x]", c.DatapathID, c.Port)
}

// Len of the encoded context
func (c *OpenFlowContext) Len() uint16 {
	return 12
}

// WriteTo writes the encoded context
func (c *OpenFlowContext) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, c.Len())
	binary.BigEndian.PutUint64(buf, c.DatapathID)
	binary.BigEndian.PutUint32(buf[8:], c.Port)
	n, err := w.Write(buf)
	return int64(n), err
}

// App is the tee application
type App struct {
	config    Config
	ctrl      apps.Controller
	endpoints connections.Endpoints
}

func init() {
	apps.Register(Name, New)
}

// New creates the application from the environment
func New(ctrl apps.Controller, s store.Store) (apps.Application, error) {
	var config Config
	if err := envconfig.Process("TEE", &config); err != nil {
		return nil, errors.Wrap(err, "unable to parse tee configuration")
	}
	return NewWithConfig(ctrl, config, nil)
}

// NewWithConfig connects to the end points and registers the packet in
// handler for the configured table
func NewWithConfig(ctrl apps.Controller, config Config, dial connections.Dialer) (*App, error) {
	endpoints, err := connections.Establish(config.To, dial)
	if err != nil {
		return nil, errors.Wrap(err, "unable to establish connections to outbound end points")
	}
	app := &App{
		config:    config,
		ctrl:      ctrl,
		endpoints: endpoints,
	}
	if err = ctrl.RegisterTableHandler(events.TableID(config.Table), app.PacketIn); err != nil {
		endpoints.Close()
		return nil, err
	}
	log.WithFields(log.Fields{
		"table":     config.Table,
		"endpoints": len(endpoints),
		"raw":       config.Raw,
	}).Info("Tee application loaded")
	return app, nil
}

// Name of the application
func (a *App) Name() string {
	return Name
}

// Close stops teeing and closes the end points
func (a *App) Close() {
	a.ctrl.UnregisterTableHandler(events.TableID(a.config.Table), a.PacketIn)
	a.endpoints.Close()
}

// SwitchFeatures logs the switch the application is attached to
func (a *App) SwitchFeatures(ev *events.SwitchFeatures) {
	log.WithFields(log.Fields{
		"dpid":  fmt.Sprintf("0x%016x", ev.Datapath.DPID()),
		"table": a.config.Table,
	}).Info("Teeing packets from switch")
}

// PacketIn tees the packet to every end point whose criteria match it
func (a *App) PacketIn(ev *events.PacketIn) {
	match := criteria.Criteria{
		Set:    criteria.BitInPort,
		InPort: ev.InPort,
	}

	// Decode the packet so its type can be matched
	pkt := gopacket.NewPacket(ev.Data(),
		layers.LayerTypeEthernet,
		gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	if eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet); ok {
		match.Set |= criteria.BitDLType
		match.DlType = uint16(eth.EthernetType)
	} else {
		log.WithFields(log.Fields{
			"packet": fmt.Sprintf("%02x", ev.Data()),
		}).Debug("Not ethernet packet, matching on port only")
	}

	if a.config.Raw {
		a.endpoints.ConditionalWrite(ev.Data(), match)
		return
	}

	message, err := a.encode(ev)
	if err != nil {
		log.WithError(err).Error("Unable to encode packet in for end points")
		return
	}
	a.endpoints.ConditionalWrite(message, match)
}

// encode renders the context followed by the full OpenFlow message
func (a *App) encode(ev *events.PacketIn) ([]byte, error) {
	body := new(bytes.Buffer)
	if _, err := ev.Message.WriteTo(body); err != nil {
		return nil, err
	}
	header := of.Header{
		Version: ev.Datapath.Version(),
		Type:    of.TypePacketIn,
		Length:  uint16(8 + body.Len()),
	}
	context := OpenFlowContext{DatapathID: ev.Datapath.DPID(), Port: ev.InPort}

	buffer := new(bytes.Buffer)
	if _, err := context.WriteTo(buffer); err != nil {
		return nil, err
	}
	if _, err := header.WriteTo(buffer); err != nil {
		return nil, err
	}
	buffer.Write(body.Bytes())
	return buffer.Bytes(), nil
}
