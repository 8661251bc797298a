package tee

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/ciena/dfadapter/events"
	"github.com/ciena/dfadapter/registry"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/netrack/openflow/ofp"
)

type MockController struct {
	tables map[events.TableID]registry.Handler
}

func (m *MockController) RegisterTableHandler(table events.TableID, handler registry.Handler) error {
	if _, ok := m.tables[table]; ok {
		return registry.ErrTableRegistered
	}
	m.tables[table] = handler
	return nil
}

func (m *MockController) UnregisterTableHandler(table events.TableID, handler registry.Handler) {
	delete(m.tables, table)
}

func (*MockController) Datapath() events.Datapath { return nil }

type MockDatapath struct{}

func (MockDatapath) DPID() uint64                    { return 0x1234 }
func (MockDatapath) Version() uint8                  { return 4 }
func (MockDatapath) SendPortDescStatsRequest() error { return nil }
func (MockDatapath) Inject([]byte)                   {}

func ethernetFrame(t *testing.T, ethType layers.EthernetType) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: ethType,
	}
	payload := gopacket.Payload([]byte{0x01, 0x02, 0x03, 0x04})
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, payload); err != nil {
		t.Fatalf("Unable to build frame : %s", err)
	}
	return buf.Bytes()
}

// pipeDialer hands out the local side of a pipe and keeps the remote side
type pipeDialer struct {
	remotes []net.Conn
}

func (p *pipeDialer) dial(network, address string) (net.Conn, error) {
	remote, local := net.Pipe()
	p.remotes = append(p.remotes, remote)
	return local, nil
}

func readFrom(t *testing.T, conn net.Conn, size int) []byte {
	t.Helper()
	buf := make([]byte, size)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Unable to read teed packet : %s", err)
	}
	return buf[:n]
}

func TestRegistersTable(t *testing.T) {
	ctrl := &MockController{tables: map[events.TableID]registry.Handler{}}
	app, err := NewWithConfig(ctrl, Config{Table: 12, Raw: true}, nil)
	if err != nil {
		t.Fatalf("Unexpected error : %s", err)
	}
	if app.Name() != Name {
		t.Errorf("Unexpected name %s", app.Name())
	}
	if _, ok := ctrl.tables[12]; !ok {
		t.Error("Expected handler registered for table 12")
	}

	if _, err = NewWithConfig(ctrl, Config{Table: 12}, nil); err != registry.ErrTableRegistered {
		t.Errorf("Expected ErrTableRegistered, got %v", err)
	}

	app.Close()
	if _, ok := ctrl.tables[12]; ok {
		t.Error("Expected handler removed on close")
	}
}

func TestRawTeeFiltersOnType(t *testing.T) {
	dialer := &pipeDialer{}
	ctrl := &MockController{tables: map[events.TableID]registry.Handler{}}
	app, err := NewWithConfig(ctrl, Config{
		Table: 0,
		Raw:   true,
		To:    []string{"dl_type=0x0806;action=tcp://arp:9000", "dl_type=0x0800;in_port=5;action=tcp://ip:9000"},
	}, dialer.dial)
	if err != nil {
		t.Fatalf("Unexpected error : %s", err)
	}
	defer app.Close()

	frame := ethernetFrame(t, layers.EthernetTypeIPv4)
	ctrl.tables[0](&events.PacketIn{
		Datapath: MockDatapath{},
		InPort:   5,
		Message:  ofp.PacketIn{Data: frame},
	})

	got := readFrom(t, dialer.remotes[1], 128)
	if !bytes.Equal(got, frame) {
		t.Errorf("Expected raw frame %02x, got %02x", frame, got)
	}

	// The ARP end point must not have been written
	dialer.remotes[0].SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, err := dialer.remotes[0].Read(make([]byte, 1)); err == nil {
		t.Error("Unexpected packet teed to ARP end point")
	}
}

func TestTeeWithContext(t *testing.T) {
	dialer := &pipeDialer{}
	ctrl := &MockController{tables: map[events.TableID]registry.Handler{}}
	app, err := NewWithConfig(ctrl, Config{Table: 3, To: []string{":9000"}}, dialer.dial)
	if err != nil {
		t.Fatalf("Unexpected error : %s", err)
	}
	defer app.Close()

	frame := ethernetFrame(t, layers.EthernetTypeARP)
	ctrl.tables[3](&events.PacketIn{
		Datapath: MockDatapath{},
		TableID:  3,
		InPort:   7,
		Message:  ofp.PacketIn{Buffer: ofp.NoBuffer, Table: 3, Data: frame},
	})

	got := readFrom(t, dialer.remotes[0], 512)
	if len(got) < 20 {
		t.Fatalf("Message too short, %d bytes", len(got))
	}
	if binary.BigEndian.Uint64(got) != 0x1234 || binary.BigEndian.Uint32(got[8:]) != 7 {
		t.Errorf("Unexpected context %02x", got[:12])
	}
	if got[12] != 4 {
		t.Errorf("Expected OpenFlow version 4, got %d", got[12])
	}
	if length := binary.BigEndian.Uint16(got[14:]); int(length) != len(got)-12 {
		t.Errorf("Header length %d does not match message length %d", length, len(got)-12)
	}
	if !bytes.HasSuffix(got, frame) {
		t.Errorf("Expected message to end with frame, got %02x", got)
	}
}

func TestOpenFlowContext(t *testing.T) {
	c := &OpenFlowContext{DatapathID: 0x1, Port: 0x2}
	buf := new(bytes.Buffer)
	n, err := c.WriteTo(buf)
	if err != nil || n != int64(c.Len()) {
		t.Fatalf("Unexpected write result %d, %v", n, err)
	}
	want := []byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 2}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("Expected %02x, got %02x", want, buf.Bytes())
	}
	if c.String() != "[0x0000000000000001, 0x0002]" {
		t.Errorf("Unexpected string %s", c.String())
	}
}
