// Package engine accepts OpenFlow connections from a switch, performs the
// handshake and decodes the messages the adapter cares about. Decoded events
// are delivered to a Handler one at a time, across all connections, so the
// handler never sees two events concurrently.
package engine

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"strings"
	"sync"

	"github.com/ciena/dfadapter/events"
	"github.com/ciena/dfadapter/injector"
	of "github.com/netrack/openflow"
	"github.com/netrack/openflow/ofp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// Buffer size when reading
	BufferSize = 2048

	// ProtoVersion is the OpenFlow version offered in the hello message
	ProtoVersion = 0x04
)

// Handler receives the decoded events
type Handler interface {
	OnSwitchFeatures(*events.SwitchFeatures)
	OnPortStatus(*events.PortStatus)
	OnPortDescStatsReply(*events.PortDescStatsReply)
	OnPacketIn(*events.PacketIn)
}

// Engine is the OpenFlow protocol engine
type Engine struct {
	handler  Handler
	listener net.Listener
	lock     sync.Mutex
	deliver  sync.Mutex
}

// New creates an engine delivering events to handler
func New(handler Handler) *Engine {
	return &Engine{handler: handler}
}

// ListenAndServe accepts switch connections on the given address and serves
// each of them until the listener is closed.
func (e *Engine) ListenAndServe(listenOn string) error {
	listener, err := net.Listen("tcp", listenOn)
	if err != nil {
		return errors.Wrapf(err, "unable to listen for OpenFlow devices on %s", listenOn)
	}
	return e.Serve(listener)
}

// Serve accepts connections on an existing listener
func (e *Engine) Serve(listener net.Listener) error {
	e.lock.Lock()
	e.listener = listener
	e.lock.Unlock()
	log.WithFields(log.Fields{
		"listen-on": listener.Addr().String(),
	}).Info("Listening for OpenFlow devices")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				// Not fatal if a connection fails, forget it and move on
				log.WithError(err).Error("Error while accepting connection")
				continue
			}
			return errors.Wrap(err, "OpenFlow listener closed")
		}
		log.WithFields(log.Fields{
			"remote-connection": conn.RemoteAddr().String(),
		}).Debug("Received connection")
		go func() {
			if err := e.Handle(conn); err != nil {
				log.WithFields(log.Fields{
					"remote-connection": conn.RemoteAddr().String(),
				}).WithError(err).Info("Switch connection closed")
			}
		}()
	}
}

// Close stops accepting connections
func (e *Engine) Close() error {
	e.lock.Lock()
	listener := e.listener
	e.lock.Unlock()
	if listener == nil {
		return nil
	}
	return listener.Close()
}

// Handle runs the protocol on a single switch connection until it fails or
// is closed.
func (e *Engine) Handle(conn net.Conn) error {

	// Close the connection when we are no longer handling it
	defer conn.Close()

	inject := injector.NewOFDeviceInjector()
	defer inject.Stop()
	go func() {
		if err := inject.Run(conn); err != nil {
			conn.Close()
		}
	}()

	dp := newDatapath(conn.RemoteAddr().String(), inject)
	if _, err := dp.Send(of.TypeHello, nil); err != nil {
		return err
	}

	var ports []events.PortDesc
	reader := bufio.NewReaderSize(conn, BufferSize)
	for {
		var header of.Header

		// Read open flow header, if this does not work then we have
		// a serious error, so fail fast and move on
		hCount, err := header.ReadFrom(reader)
		if err != nil {
			return errors.Wrap(err, "failed to read OpenFlow message header")
		}
		body := io.LimitReader(reader, int64(header.Length)-hCount)

		if log.GetLevel() >= log.DebugLevel {
			log.WithFields(log.Fields{
				"of_version":     header.Version,
				"of_message":     header.Type.String(),
				"of_transaction": header.Transaction,
				"length":         header.Length,
			}).Debug("Received message")
		}

		switch header.Type {
		case of.TypeHello:
			version := header.Version
			if version > ProtoVersion {
				version = ProtoVersion
			}
			if version < ProtoVersion {
				log.WithFields(log.Fields{
					"of_version": header.Version,
				}).Warn("Switch offered an OpenFlow version older than 1.3")
			}
			dp.setVersion(version)
			if _, err = dp.Send(of.TypeFeaturesRequest, nil); err != nil {
				return err
			}
		case of.TypeEchoRequest:
			data, err := ioutil.ReadAll(body)
			if err != nil {
				return errors.Wrap(err, "failed to read echo request")
			}
			if err = dp.sendXID(of.TypeEchoReply, header.Transaction, data); err != nil {
				return err
			}
		case of.TypeError:
			data, _ := ioutil.ReadAll(body)
			log.WithFields(log.Fields{
				"of_transaction": header.Transaction,
				"error":          fmt.Sprintf("%02x", data),
			}).Warn("Received OpenFlow error from device")
		case of.TypeFeaturesReply:
			var features ofp.SwitchFeatures
			if _, err = features.ReadFrom(body); err != nil {
				return errors.Wrap(err, "failed to read features reply")
			}
			dp.setDPID(features.DatapathID)
			log.WithFields(log.Fields{
				"dpid": fmt.Sprintf("0x%016x", features.DatapathID),
			}).Debug("Switch features received")

			if header.Version >= events.AutoPortDescVersion {
				if err = dp.SendPortDescStatsRequest(); err != nil {
					return err
				}
			}
			e.dispatch(func() {
				e.handler.OnSwitchFeatures(&events.SwitchFeatures{
					Datapath: dp,
					Version:  header.Version,
					Features: features,
				})
			})
		case of.TypePortStatus:
			var status ofp.PortStatus
			if _, err = status.ReadFrom(body); err != nil {
				return errors.Wrap(err, "failed to read port status")
			}
			e.dispatch(func() {
				e.handler.OnPortStatus(&events.PortStatus{
					Datapath: dp,
					Reason:   events.PortReason(status.Reason),
					PortNo:   uint32(status.Port.PortNo),
					Name:     portName(status.Port.Name),
				})
			})
		case of.TypeMultipartReply:
			more, desc, err := readPortDesc(body)
			if err != nil {
				return err
			}
			if desc == nil {
				break
			}
			ports = append(ports, desc...)
			if more {
				break
			}
			reply := &events.PortDescStatsReply{Datapath: dp, Ports: ports}
			ports = nil
			e.dispatch(func() {
				e.handler.OnPortDescStatsReply(reply)
			})
		case of.TypePacketIn:
			var packetIn ofp.PacketIn
			if _, err = packetIn.ReadFrom(body); err != nil {
				return errors.Wrap(err, "failed to read packet in")
			}

			// Look for the port in contained in the message
			var inPort uint32
			for _, xm := range packetIn.Match.Fields {
				if xm.Type == ofp.XMTypeInPort && len(xm.Value) >= 4 {
					inPort = binary.BigEndian.Uint32(xm.Value)
				}
			}
			e.dispatch(func() {
				e.handler.OnPacketIn(&events.PacketIn{
					Datapath: dp,
					TableID:  events.TableID(packetIn.Table),
					InPort:   inPort,
					Message:  packetIn,
				})
			})
		}

		// Skip whatever part of the message was not consumed
		if _, err = io.Copy(ioutil.Discard, body); err != nil {
			return errors.Wrap(err, "failed to skip OpenFlow message body")
		}
	}
}

// Run calls f while holding the delivery lock, so f never runs at the same
// time as a handler call.
func (e *Engine) Run(f func()) {
	e.dispatch(f)
}

// dispatch runs a handler call while holding the delivery lock
func (e *Engine) dispatch(f func()) {
	e.deliver.Lock()
	defer e.deliver.Unlock()
	f()
}

// readPortDesc decodes a multipart reply. It returns nil ports for
// multipart replies other than port descriptions.
func readPortDesc(body io.Reader) (bool, []events.PortDesc, error) {
	var reply struct {
		Type  uint16
		Flags uint16
		Pad   [4]byte
	}
	if err := binary.Read(body, binary.BigEndian, &reply); err != nil {
		return false, nil, errors.Wrap(err, "failed to read multipart reply header")
	}
	if reply.Type != multipartPortDesc {
		return false, nil, nil
	}

	data, err := ioutil.ReadAll(body)
	if err != nil {
		return false, nil, errors.Wrap(err, "failed to read port description reply")
	}
	r := bytes.NewReader(data)
	ports := []events.PortDesc{}
	for r.Len() > 0 {
		var port ofp.Port
		if _, err := port.ReadFrom(r); err != nil {
			return false, nil, errors.Wrap(err, "failed to read port description")
		}
		ports = append(ports, events.PortDesc{
			PortNo: uint32(port.PortNo),
			Name:   portName(port.Name),
			HWAddr: port.HWAddr.String(),
		})
	}
	return reply.Flags&multipartReplyMore != 0, ports, nil
}

func portName(name string) string {
	return strings.TrimRight(name, "\x00")
}
