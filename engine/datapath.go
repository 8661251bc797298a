package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ciena/dfadapter/injector"
	of "github.com/netrack/openflow"
	"github.com/pkg/errors"
)

// OpenFlow header size on the wire
const headerLen = 8

// Multipart message types and flags used by the engine
const (
	multipartPortDesc  = 13
	multipartReplyMore = 1 << 0
)

// Datapath is the handle to a connected switch. Every message sent through
// it is queued on the connection's injector.
type Datapath struct {
	remote  string
	inject  injector.Injector
	xid     uint32
	version uint8
	dpid    uint64
	lock    sync.RWMutex
}

func newDatapath(remote string, inject injector.Injector) *Datapath {
	return &Datapath{
		remote:  remote,
		inject:  inject,
		version: ProtoVersion,
	}
}

// DPID returns the datapath ID reported by the switch
func (d *Datapath) DPID() uint64 {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.dpid
}

// Version returns the negotiated protocol version
func (d *Datapath) Version() uint8 {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.version
}

func (d *Datapath) setDPID(dpid uint64) {
	d.lock.Lock()
	d.dpid = dpid
	d.lock.Unlock()
	d.inject.SetDPID(dpid)
}

func (d *Datapath) setVersion(version uint8) {
	d.lock.Lock()
	d.version = version
	d.lock.Unlock()
}

func (d *Datapath) String() string {
	return fmt.Sprintf("(%s, 0x%016x)", d.remote, d.DPID())
}

// Inject queues a complete, already encoded OpenFlow message
func (d *Datapath) Inject(message []byte) {
	d.inject.Inject(message)
}

// Send encodes and queues a message with a fresh transaction id, which is
// returned.
func (d *Datapath) Send(t of.Type, body []byte) (uint32, error) {
	xid := atomic.AddUint32(&d.xid, 1)
	return xid, d.sendXID(t, xid, body)
}

func (d *Datapath) sendXID(t of.Type, xid uint32, body []byte) error {
	message, err := encode(d.Version(), t, xid, body)
	if err != nil {
		return err
	}
	d.inject.Inject(message)
	return nil
}

// SendPortDescStatsRequest asks the switch to describe all its ports
func (d *Datapath) SendPortDescStatsRequest() error {
	body := new(bytes.Buffer)
	request := struct {
		Type  uint16
		Flags uint16
		Pad   [4]byte
	}{Type: multipartPortDesc}
	if err := binary.Write(body, binary.BigEndian, &request); err != nil {
		return errors.Wrap(err, "unable to encode port description request")
	}
	_, err := d.Send(of.TypeMultipartRequest, body.Bytes())
	return err
}

// encode builds a complete OpenFlow message from a header and body
func encode(version uint8, t of.Type, xid uint32, body []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	header := of.Header{
		Version:     version,
		Type:        t,
		Length:      uint16(headerLen + len(body)),
		Transaction: xid,
	}
	if _, err := header.WriteTo(buf); err != nil {
		return nil, errors.Wrap(err, "unable to encode OpenFlow header")
	}
	buf.Write(body)
	return buf.Bytes(), nil
}
