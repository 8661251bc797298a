// Package injector serializes the messages sent to an OpenFlow device.
// Several producers write to the same switch connection (the protocol
// engine answering echo requests, the adapter requesting port descriptions,
// the API injecting packet outs); the injector funnels them through a single
// writer so messages are never interleaved on the wire.
//
// An Injector instance exists per device connection and is associated with
// the device DPID once the features exchange completes.
package injector

import (
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Injector type
type Injector interface {
	SetDPID(uint64)
	GetDPID() uint64
	Inject([]byte)
	Stop()
	Run(io.Writer) error
}

// OFDeviceInjector implementation of Injector for OpenFlow devices
type OFDeviceInjector struct {
	dpid     uint64
	lock     sync.RWMutex
	injector chan []byte
	stop     chan struct{}
	stopOnce sync.Once
}

// NewOFDeviceInjector creates an Injector instance.
func NewOFDeviceInjector() Injector {
	return &OFDeviceInjector{
		injector: make(chan []byte, 100),
		stop:     make(chan struct{}),
	}
}

// Inject queues a complete OpenFlow message to the device. Messages queued
// after Stop are dropped.
func (i *OFDeviceInjector) Inject(message []byte) {
	select {
	case <-i.stop:
		i.dropped()
		return
	default:
	}
	select {
	case <-i.stop:
		i.dropped()
	case i.injector <- message:
	}
}

func (i *OFDeviceInjector) dropped() {
	log.WithFields(log.Fields{
		"dpid": fmt.Sprintf("0x%016x", i.GetDPID()),
	}).Debug("Dropping message for stopped injector")
}

// SetDPID associates a DPID with an injector
func (i *OFDeviceInjector) SetDPID(dpid uint64) {
	i.lock.Lock()
	i.dpid = dpid
	i.lock.Unlock()
}

// GetDPID returns the associated DPID
func (i *OFDeviceInjector) GetDPID() uint64 {
	i.lock.RLock()
	defer i.lock.RUnlock()
	return i.dpid
}

// Stop terminates Run. It is safe to call more than once.
func (i *OFDeviceInjector) Stop() {
	i.stopOnce.Do(func() {
		close(i.stop)
	})
}

// Run writes queued messages to dst until Stop is called or a write fails.
func (i *OFDeviceInjector) Run(dst io.Writer) error {
	for {
		select {
		case <-i.stop:
			return nil
		case message := <-i.injector:
			if log.GetLevel() >= log.DebugLevel {
				log.WithFields(log.Fields{
					"dpid":    fmt.Sprintf("0x%016x", i.GetDPID()),
					"message": fmt.Sprintf("%02x", message),
				}).Debug("Writing message to device")
			}
			if _, err := dst.Write(message); err != nil && err != io.EOF {
				log.
					WithFields(log.Fields{
						"dpid": fmt.Sprintf("0x%016x", i.GetDPID()),
					}).
					WithError(err).
					Error("Error while attempting to write message to device")
				return err
			}
		}
	}
}
