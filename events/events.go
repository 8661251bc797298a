// Package events defines the decoded OpenFlow events the protocol engine
// hands to the adapter, along with the handle used to address the switch
// that produced them.
package events

import (
	"fmt"

	"github.com/netrack/openflow/ofp"
)

// TableID identifies a flow table (processing stage) in the switch
// pipeline. Packet in messages are tagged with the table that sent them to
// the controller.
type TableID uint8

// AutoPortDescVersion is the first OpenFlow version for which the protocol
// engine requests the port descriptions itself as part of the handshake.
const AutoPortDescVersion = 0x04

// Datapath is the handle to the single active control connection to the
// switch.
type Datapath interface {
	// DPID returns the datapath ID reported in the features reply
	DPID() uint64

	// Version returns the negotiated OpenFlow protocol version
	Version() uint8

	// SendPortDescStatsRequest asks the switch for the description of
	// all its ports
	SendPortDescStatsRequest() error

	// Inject queues a fully encoded OpenFlow message to the switch
	Inject([]byte)
}

// PortReason is the reason code carried in a port status message. The
// values match the OpenFlow wire encoding.
type PortReason uint8

const (
	PortAdded    PortReason = 0
	PortDeleted  PortReason = 1
	PortModified PortReason = 2
)

func (r PortReason) String() string {
	switch r {
	case PortAdded:
		return "added"
	case PortDeleted:
		return "deleted"
	case PortModified:
		return "modified"
	}
	return fmt.Sprintf("unknown(%d)", uint8(r))
}

// SwitchFeatures is delivered when the switch answers the features request,
// which completes the handshake.
type SwitchFeatures struct {
	Datapath Datapath
	Version  uint8
	Features ofp.SwitchFeatures
}

// PortStatus is delivered when a port is added, deleted or modified.
type PortStatus struct {
	Datapath Datapath
	Reason   PortReason
	PortNo   uint32
	Name     string
}

// PortDesc is a single entry of a port description reply.
type PortDesc struct {
	PortNo uint32
	Name   string
	HWAddr string
}

// PortDescStatsReply carries the port description multipart reply.
type PortDescStatsReply struct {
	Datapath Datapath
	Ports    []PortDesc
}

// PacketIn is delivered for every packet the switch sends to the
// controller.
type PacketIn struct {
	Datapath Datapath
	TableID  TableID
	InPort   uint32
	Message  ofp.PacketIn
}

// Data returns the raw packet carried by the message
func (p *PacketIn) Data() []byte {
	return p.Message.Data
}
