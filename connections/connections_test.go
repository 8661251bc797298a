package connections

import (
	"bytes"
	"errors"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ciena/dfadapter/criteria"
	"github.com/google/go-cmp/cmp"
)

type MockConnection struct {
	Criteria criteria.Criteria
	queue    chan []byte
	closed   bool
}

func NewMockConnection(c criteria.Criteria) *MockConnection {
	return &MockConnection{Criteria: c, queue: make(chan []byte, 10)}
}

func (m *MockConnection) String() string                     { return "mock" }
func (m *MockConnection) Write(b []byte) (int, error)        { return len(b), nil }
func (m *MockConnection) Match(state criteria.Criteria) bool { return m.Criteria.Match(state) }
func (m *MockConnection) GetQueue() chan<- []byte            { return m.queue }
func (m *MockConnection) ListenAndSend() error               { return nil }
func (m *MockConnection) Close() error {
	m.closed = true
	return nil
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		def string
		want *Target
	}{
		{":8000", &Target{Address: ":8000"}},
		{"action=tcp://host:9000", &Target{Address: "tcp://host:9000"}},
		{"dl_type=0x0800;action=http://host/packets", &Target{
			Criteria: criteria.Criteria{Set: criteria.BitDLType, DlType: 0x0800},
			Address:  "http://host/packets",
		}},
		{"dl_type=0x88cc;in_port=3;action=:9000", &Target{
			Criteria: criteria.Criteria{Set: criteria.BitDLType | criteria.BitInPort, DlType: 0x88cc, InPort: 3},
			Address:  ":9000",
		}},
	}
	for _, test := range tests {
		got, err := ParseTarget(test.def)
		if err != nil {
			t.Errorf("Unexpected error parsing '%s' : %s", test.def, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Unexpected parse of '%s' (-want +got):\n%s", test.def, diff)
		}
	}
}

func TestParseTargetErrors(t *testing.T) {
	for _, def := range []string{
		"dl_type=0x0800",
		"bogus=1;action=:9000",
		"dl_type=0x10000;action=:9000",
		"dl_type;action=:9000",
	} {
		if _, err := ParseTarget(def); err == nil {
			t.Errorf("Expected error parsing '%s'", def)
		}
	}
}

func TestConditionalWrite(t *testing.T) {
	ipv4 := NewMockConnection(criteria.Criteria{Set: criteria.BitDLType, DlType: 0x0800})
	all := NewMockConnection(criteria.Criteria{})
	eps := Endpoints{ipv4, all}

	count := eps.ConditionalWrite([]byte{0x01}, criteria.Criteria{Set: criteria.BitDLType, DlType: 0x0806})
	if count != 1 {
		t.Errorf("Expected 1 write, got %d", count)
	}
	if len(ipv4.queue) != 0 || len(all.queue) != 1 {
		t.Errorf("Unexpected queue lengths %d, %d", len(ipv4.queue), len(all.queue))
	}

	count = eps.ConditionalWrite([]byte{0x02}, criteria.Criteria{Set: criteria.BitDLType, DlType: 0x0800})
	if count != 2 {
		t.Errorf("Expected 2 writes, got %d", count)
	}
}

func TestConditionalWriteSlowEndpoint(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	u, _ := url.Parse(srv.URL)
	c := (&HTTPConnection{Connection: *u, Client: srv.Client()}).Initialize()
	go c.ListenAndSend()
	defer c.Close()
	eps := Endpoints{c}

	done := make(chan int)
	go func() {
		queued := 0
		for i := 0; i < 30; i++ {
			queued += eps.ConditionalWrite([]byte{byte(i)}, criteria.Criteria{})
		}
		done <- queued
	}()
	select {
	case queued := <-done:
		if queued >= 30 {
			t.Errorf("Expected packets to be dropped once the queue filled, %d queued", queued)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ConditionalWrite blocked on a slow end point")
	}
}

func TestConditionalWriteClosedEndpoint(t *testing.T) {
	u, _ := url.Parse("http://127.0.0.1:1")
	closed := (&HTTPConnection{Connection: *u}).Initialize()
	closed.Close()
	closed.Close()
	open := NewMockConnection(criteria.Criteria{})
	eps := Endpoints{closed, open}

	done := make(chan int)
	go func() {
		queued := 0
		for i := 0; i < 30; i++ {
			queued += eps.ConditionalWrite([]byte{byte(i)}, criteria.Criteria{})
		}
		done <- queued
	}()
	select {
	case queued := <-done:
		if queued != 10 {
			t.Errorf("Expected only the open end point to be queued until full, got %d", queued)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ConditionalWrite blocked on a closed end point")
	}
	if closed.GetQueue() != nil {
		t.Error("Expected no queue for a closed end point")
	}
}

func TestEstablishTCP(t *testing.T) {
	remote, local := net.Pipe()
	defer remote.Close()
	var dialed string
	dial := func(network, address string) (net.Conn, error) {
		dialed = address
		return local, nil
	}

	eps, err := Establish([]string{"", "dl_type=0x0800;action=tcp://collector:9000"}, dial)
	if err != nil {
		t.Fatalf("Unexpected error : %s", err)
	}
	defer eps.Close()
	if len(eps) != 1 {
		t.Fatalf("Expected 1 end point, got %d", len(eps))
	}
	if dialed != "collector:9000" {
		t.Errorf("Expected dial to collector:9000, got '%s'", dialed)
	}

	eps.ConditionalWrite([]byte{0xca, 0xfe}, criteria.Criteria{Set: criteria.BitDLType, DlType: 0x0800})
	buf := make([]byte, 2)
	remote.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := remote.Read(buf); err != nil {
		t.Fatalf("Unable to read teed packet : %s", err)
	}
	if !bytes.Equal(buf, []byte{0xca, 0xfe}) {
		t.Errorf("Unexpected packet %02x", buf)
	}
}

func TestEstablishDialFailureClosesOpened(t *testing.T) {
	remote, local := net.Pipe()
	defer remote.Close()
	calls := 0
	dial := func(network, address string) (net.Conn, error) {
		calls++
		if calls == 1 {
			return local, nil
		}
		return nil, errors.New("refused")
	}

	if _, err := Establish([]string{":9000", ":9001"}, dial); err == nil {
		t.Fatal("Expected dial failure to be reported")
	}

	// Closing the local side makes reads on the remote side fail
	remote.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := remote.Read(make([]byte, 1)); err == nil {
		t.Error("Expected opened end point to be closed")
	}
}

func TestHTTPConnectionWrite(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		data, _ := ioutil.ReadAll(req.Body)
		received <- data
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL + "/packets")
	c := (&HTTPConnection{Connection: *u, Client: srv.Client()}).Initialize()
	n, err := c.Write([]byte{0x01, 0x02, 0x03})
	if err != nil || n != 3 {
		t.Fatalf("Unexpected write result %d, %v", n, err)
	}
	if got := <-received; !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("Unexpected body %02x", got)
	}
}

func TestHTTPConnectionWriteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		http.Error(resp, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	c := (&HTTPConnection{Connection: *u}).Initialize()
	if _, err := c.Write([]byte{0x01}); err == nil {
		t.Error("Expected error on non success status")
	}
}

func TestUninitialized(t *testing.T) {
	if err := (&TCPConnection{}).ListenAndSend(); err != ErrUninitialized {
		t.Errorf("Expected ErrUninitialized, got %v", err)
	}
	if err := (&HTTPConnection{}).ListenAndSend(); err != ErrUninitialized {
		t.Errorf("Expected ErrUninitialized, got %v", err)
	}
}
