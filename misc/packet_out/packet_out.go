// Command packet_out sends a packet out message to the switch connected to
// the adapter through its REST API.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	of "github.com/netrack/openflow"
	"github.com/netrack/openflow/ofp"
	log "github.com/sirupsen/logrus"
)

// App is the application configuration and runtime information
type App struct {
	ShowHelp     bool   `envconfig:"HELP" default:"false" desc:"show this message"`
	DFAdapterAPI string `envconfig:"DFADAPTER_API" default:"http://127.0.0.1:8002" desc:"HOST:PORT on which to connect to DFADAPTER REST API"`
	Device       string `envconfig:"DEVICE" required:"true" desc:"DPID of the connected switch"`
	Port         string `envconfig:"PORT" required:"true" desc:"Port on the switch on which to packet out"`
	InPort       string `envconfig:"IN_PORT" default:"CONTROLLER" desc:"Port the packet is reported as received on"`
	PacketFile   string `envconfig:"PACKET_FILE" required:"true" desc:"File from which to read packet to send, or '-' for stdin"`
}

func main() {
	var app App

	var flags flag.FlagSet
	err := flags.Parse(os.Args[1:])
	if err != nil {
		if err = envconfig.Usage("", &(app)); err != nil {
			log.
				WithError(err).
				Fatal("Unable to display usage information")
		}
		return
	}

	err = envconfig.Process("", &app)
	if err != nil {
		log.
			WithError(err).
			Fatal("Unable to process configuration")
	}
	if app.ShowHelp {
		if err = envconfig.Usage("", &(app)); err != nil {
			log.
				WithError(err).
				Fatal("Unable to display usage information")
		}
		return
	}

	// Read packet file, which is expected to be a space separate bunch of
	// bytes
	input := os.Stdin
	if app.PacketFile != "-" {
		if input, err = os.Open(app.PacketFile); err != nil {
			log.
				WithFields(log.Fields{
					"file": app.PacketFile,
				}).
				WithError(err).
				Fatal("Unable to read packet file")
		}
		defer input.Close()
	}
	data, err := readPacket(input)
	if err != nil {
		log.
			WithFields(log.Fields{
				"file": app.PacketFile,
			}).
			WithError(err).
			Fatal("Unable to parse packet")
	}

	portNo, err := parsePort(app.Port)
	if err != nil {
		log.
			WithFields(log.Fields{
				"port": app.Port,
			}).
			WithError(err).
			Fatal("Unable to parse specified port value")
	}
	inPort, err := parsePort(app.InPort)
	if err != nil {
		log.
			WithFields(log.Fields{
				"in-port": app.InPort,
			}).
			WithError(err).
			Fatal("Unable to parse specified in port value")
	}

	// Build packet out message
	packet := &bytes.Buffer{}
	pktOut := ofp.PacketOut{
		Buffer:  ofp.NoBuffer,
		InPort:  inPort,
		Actions: ofp.Actions{&ofp.ActionOutput{portNo, ofp.ContentLenNoBuffer}},
	}
	req := of.NewRequest(of.TypePacketOut, packet)

	if _, err = pktOut.WriteTo(packet); err != nil {
		log.
			WithError(err).
			Fatal("Unable to write packet out to buffer")
	}
	if _, err = packet.Write(data); err != nil {
		log.
			WithError(err).
			Fatal("Unable to write packet out data to buffer")
	}

	message := &bytes.Buffer{}
	if _, err = req.WriteTo(message); err != nil {
		log.
			WithError(err).
			Fatal("Unable to encode packet out message")
	}

	log.Debug("POSTING")
	url := fmt.Sprintf("%s/dfadapter/%s", app.DFAdapterAPI, app.Device)
	resp, err := http.Post(url, "application/octet-stream", message)
	if err != nil {
		log.
			WithFields(log.Fields{
				"dfadapter": app.DFAdapterAPI,
			}).
			WithError(err).
			Fatal("Unable to connect to dfadapter API end point")
	} else if int(resp.StatusCode/100) != 2 {
		log.
			WithFields(log.Fields{
				"dfadapter":     app.DFAdapterAPI,
				"response-code": resp.StatusCode,
				"response":      resp.Status,
			}).
			Fatal("Non success code returned from dfadapter")
	}
}

// parsePort converts a port number or reserved port name to a port
func parsePort(port string) (ofp.PortNo, error) {
	switch strings.ToUpper(port) {
	case "ANY":
		return ofp.PortAny, nil
	case "IN":
		return 0xfffffff8, nil
	case "TABLE":
		return 0xfffffff9, nil
	case "NORMAL":
		return 0xfffffffa, nil
	case "FLOOD":
		return 0xfffffffb, nil
	case "ALL":
		return 0xfffffffc, nil
	case "CONTROLLER":
		return 0xfffffffd, nil
	case "LOCAL":
		return 0xfffffffe, nil
	}
	val, err := strconv.ParseUint(port, 10, 32)
	if err != nil {
		return 0, err
	}
	return ofp.PortNo(val), nil
}

// readPacket parses white space separated hex bytes
func readPacket(r io.Reader) ([]byte, error) {
	var data bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		val, err := strconv.ParseUint(scanner.Text(), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("Unable to parse value '%s' to byte : %s", scanner.Text(), err)
		}
		data.WriteByte(uint8(val))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
