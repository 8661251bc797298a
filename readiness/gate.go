// Package readiness tracks whether the switch control connection has been
// established. The gate opens on the first successful features exchange and
// stays open; later connections replace the datapath handle.
package readiness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ciena/dfadapter/events"
	log "github.com/sirupsen/logrus"
)

// State of the control connection
type State uint8

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// MarshalText renders the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transition records a single change of the connection state
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	DPID uint64    `json:"dpid"`
	At   time.Time `json:"at"`
}

// Gate holds the current datapath and releases waiters once one exists
type Gate struct {
	state       State
	datapath    events.Datapath
	transitions []Transition
	ready       chan struct{}
	lock        sync.RWMutex
}

// NewGate returns a closed (disconnected) gate
func NewGate() *Gate {
	return &Gate{
		state: Disconnected,
		ready: make(chan struct{}),
	}
}

// Connect records the datapath as current, unconditionally replacing the
// previous one.
func (g *Gate) Connect(dp events.Datapath) {
	g.lock.Lock()
	defer g.lock.Unlock()

	from := g.state
	g.state = Connected
	g.datapath = dp
	g.transitions = append(g.transitions, Transition{
		From: from,
		To:   Connected,
		DPID: dp.DPID(),
		At:   time.Now(),
	})

	log.WithFields(log.Fields{
		"from": from.String(),
		"to":   Connected.String(),
		"dpid": fmt.Sprintf("0x%016x", dp.DPID()),
	}).Debug("Connection state transition")

	if from == Disconnected {
		close(g.ready)
	}
}

// Datapath returns the current datapath, nil when disconnected
func (g *Gate) Datapath() events.Datapath {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.datapath
}

// State returns the current connection state
func (g *Gate) State() State {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.state
}

// IsReady returns true once a datapath has been recorded
func (g *Gate) IsReady() bool {
	return g.State() == Connected
}

// Transitions returns a copy of the transition log
func (g *Gate) Transitions() []Transition {
	g.lock.RLock()
	defer g.lock.RUnlock()
	out := make([]Transition, len(g.transitions))
	copy(out, g.transitions)
	return out
}

// WaitContext blocks until the gate opens or the context is done. With a
// context that is never done it waits indefinitely.
func (g *Gate) WaitContext(ctx context.Context) error {
	select {
	case <-g.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
