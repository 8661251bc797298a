package connections

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/ciena/dfadapter/criteria"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Supported URL schemes
const (
	SchemeTCP  = "tcp"
	SchemeHTTP = "http"
)

// TermAction names the end point address in an end point definition
const TermAction = "action"

// Endpoints represents a list (array) of connections
type Endpoints []Connection

// ConditionalWrite iterates over all endpoint connections and if the
// connection's criteria matches the given state critera then queues the given
// bytes to the connection. Queuing never blocks: the packet is dropped for an
// end point whose queue is full or that is closed. It returns the number of
// connections the packet was queued to.
func (eps Endpoints) ConditionalWrite(b []byte, state criteria.Criteria) int {
	count := 0
	for _, conn := range eps {
		match := conn.Match(state)
		if log.GetLevel() >= log.DebugLevel {
			log.
				WithFields(log.Fields{
					"connection": conn.String(),
					"state":      state.String(),
					"match":      match,
				}).
				Debug("Checking")
		}
		if match && enqueue(conn, b) {
			count++
		}
	}
	return count
}

func enqueue(conn Connection, b []byte) bool {
	queue := conn.GetQueue()
	if queue == nil {
		stats.Dropped(reasonClosed)
		log.
			WithFields(log.Fields{"connection": conn.String()}).
			Debug("Dropping packet for closed end point")
		return false
	}
	select {
	case queue <- b:
		return true
	default:
		stats.Dropped(reasonQueueFull)
		log.
			WithFields(log.Fields{"connection": conn.String()}).
			Warn("End point queue full, dropping packet")
		return false
	}
}

// Close closes every end point
func (eps Endpoints) Close() {
	for _, conn := range eps {
		if err := conn.Close(); err != nil {
			log.
				WithFields(log.Fields{"connection": conn.String()}).
				WithError(err).
				Warn("Unable to close outbound end point")
		}
	}
}

// Target is a parsed end point definition
type Target struct {
	Criteria criteria.Criteria
	Address  string
}

// ParseTarget parses an end point definition of the form
//
//	[term=value;...;]action=url
//
// A definition without `;` is a bare address.
func ParseTarget(def string) (*Target, error) {
	parsed := &Target{}
	parts := strings.Split(def, ";")
	if len(parts) == 1 && !strings.Contains(def, "=") {
		parsed.Address = def
		return parsed, nil
	}
	for _, part := range parts {
		if part == "" {
			continue
		}
		terms := strings.SplitN(part, "=", 2)
		if len(terms) != 2 {
			return nil, fmt.Errorf("Malformed end point term '%s'", part)
		}
		if strings.ToLower(terms[0]) == TermAction {
			parsed.Address = terms[1]
			continue
		}
		if err := parsed.Criteria.AddTerm(terms[0], terms[1]); err != nil {
			return nil, err
		}
		log.
			WithFields(log.Fields{
				"term":  terms[0],
				"value": terms[1],
			}).
			Debug("Found condition")
	}
	if parsed.Address == "" {
		return nil, fmt.Errorf("End point '%s' has no action", def)
	}
	return parsed, nil
}

// Dialer opens TCP connections to end points
type Dialer func(network, address string) (net.Conn, error)

// Establish parses each definition and opens a connection for it. Each
// connection is started with its own sender go routine. On failure any
// connection already opened is closed.
func Establish(defs []string, dial Dialer) (Endpoints, error) {
	if dial == nil {
		dial = net.Dial
	}
	endpoints := Endpoints{}
	for _, def := range defs {
		if len(def) == 0 {
			continue
		}
		parsed, err := ParseTarget(def)
		if err != nil {
			endpoints.Close()
			return nil, errors.Wrapf(err, "invalid end point '%s'", def)
		}
		c, err := connect(parsed, dial)
		if err != nil {
			log.
				WithFields(log.Fields{"connection": parsed.Address}).
				WithError(err).
				Error("Unable to connect to outbound end point")
			endpoints.Close()
			return nil, err
		}
		log.WithFields(log.Fields{
			"connection": parsed.Address,
			"criteria":   parsed.Criteria.String(),
		}).Info("Created outbound end point connection")
		go c.ListenAndSend()
		endpoints = append(endpoints, c)
	}
	return endpoints, nil
}

func connect(target *Target, dial Dialer) (Connection, error) {
	u, err := url.Parse(target.Address)
	if err != nil || u.Scheme == "" || u.Host == "" {
		// Treat as a bare host:port
		u = &url.URL{Scheme: SchemeTCP, Host: target.Address}
	}
	switch strings.ToLower(u.Scheme) {
	case SchemeTCP:
		conn, err := dial("tcp", u.Host)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to dial %s", u.Host)
		}
		return (&TCPConnection{Connection: conn, Criteria: target.Criteria}).Initialize(), nil
	case SchemeHTTP:
		return (&HTTPConnection{Connection: *u, Criteria: target.Criteria}).Initialize(), nil
	}
	return nil, fmt.Errorf("Unsupported end point scheme '%s'", u.Scheme)
}
