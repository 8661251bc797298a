package connections

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/ciena/dfadapter/criteria"
	log "github.com/sirupsen/logrus"
)

// HTTPConnection is the HTTP based connection implementation. The connection
// is represented as a net.URL
type HTTPConnection struct {
	Connection url.URL
	Criteria   criteria.Criteria
	Client     *http.Client
	queue      chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// Initialize makes sure private members, that can't function from
// zero state, are set correctly
func (c *HTTPConnection) Initialize() *HTTPConnection {
	c.queue = make(chan []byte, 25)
	c.done = make(chan struct{})
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	return c
}

// GetQueue returns the channel used to queue messages up for delivery
func (c *HTTPConnection) GetQueue() chan<- []byte {
	select {
	case <-c.done:
		return nil
	default:
		return c.queue
	}
}

// ListenAndSend posts queued messages to the end point
func (c *HTTPConnection) ListenAndSend() error {
	if c.queue == nil {
		log.
			WithError(ErrUninitialized).
			Error("MUST initialize connection before use")
		return ErrUninitialized
	}
	for {
		select {
		case <-c.done:
			return nil
		case message := <-c.queue:
			if _, err := c.Write(message); err != nil {
				log.
					WithError(err).
					WithFields(log.Fields{
						"target": c.String(),
					}).
					Error("failed sending queued message")
			}
		}
	}
}

// Close stops ListenAndSend
func (c *HTTPConnection) Close() error {
	c.closeOnce.Do(func() {
		if c.done != nil {
			close(c.done)
		}
	})
	return nil
}

// Connection in string form
func (c *HTTPConnection) String() string {
	return c.Connection.String()
}

// Writes the specified bytes to the connection by performing a `HTTP POST`
// to the connection `URL`. It is expected that the entire packet will be
// represented in a single `Write`, although this is not strictly required.
func (c *HTTPConnection) Write(b []byte) (n int, err error) {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Post(c.Connection.String(), "application/octet-stream", bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("Non success code returned from end point : %s", resp.Status)
	}
	return len(b), nil
}

// Match is the HTTP connection implementation of the Match method. Simply
// calls the `Match` method on the embedded `Criteria` data.
func (c *HTTPConnection) Match(state criteria.Criteria) bool {
	return c.Criteria.Match(state)
}
