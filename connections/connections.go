// Package connections manages the outbound end points packets are teed to.
// Each end point owns a queue and a go routine that drains it. Packets are
// queued without blocking; when a queue is full, or the end point is closed,
// the packet is dropped for that end point.
package connections

import (
	"errors"
	"fmt"

	"github.com/ciena/dfadapter/criteria"
)

// ErrUninitialized is returned when a connection is used before Initialize
var ErrUninitialized = errors.New("connection not initialized")

// Connection is an outbound end point. GetQueue returns nil once the
// connection is closed.
type Connection interface {
	fmt.Stringer
	Write(b []byte) (int, error)
	Match(state criteria.Criteria) bool
	GetQueue() chan<- []byte
	ListenAndSend() error
	Close() error
}
