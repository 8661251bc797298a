// This package implements the adapter REST API, used to inspect the state of
// the control channel and to inject packets to the connected switch
package api

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"time"

	"github.com/ciena/dfadapter/events"
	"github.com/ciena/dfadapter/readiness"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Source is the adapter state exposed by the API
type Source interface {
	Datapath() events.Datapath
	Transitions() []readiness.Transition
	TableIDs() []events.TableID
}

// API of the adapter
type API struct {
	ListenOn string

	source Source
	router *mux.Router
}

// StateResponse describes the control channel
type StateResponse struct {
	Connected   bool                   `json:"connected"`
	DPID        string                 `json:"dpid,omitempty"`
	Version     uint8                  `json:"of_version,omitempty"`
	Transitions []readiness.Transition `json:"transitions"`
}

// TablesResponse lists the tables that have a packet in handler
type TablesResponse struct {
	Tables []int `json:"tables"`
}

func writeJSON(resp http.ResponseWriter, data interface{}) {
	bytes, err := json.Marshal(data)
	if err != nil {
		http.Error(resp,
			fmt.Sprintf("Unable to marshal response : %s", err.Error()),
			http.StatusInternalServerError)
		return
	}
	resp.Header().Set("Content-type", "application/json")
	resp.Write(bytes)
}

// StateHandler returns the connection state and its history
func (api *API) StateHandler(resp http.ResponseWriter, req *http.Request) {
	data := StateResponse{
		Transitions: api.source.Transitions(),
	}
	if dp := api.source.Datapath(); dp != nil {
		data.Connected = true
		data.DPID = fmt.Sprintf("of:0x%016x", dp.DPID())
		data.Version = dp.Version()
	}
	writeJSON(resp, data)
}

// TablesHandler returns the tables with a registered handler
func (api *API) TablesHandler(resp http.ResponseWriter, req *http.Request) {
	data := TablesResponse{Tables: []int{}}
	for _, table := range api.source.TableIDs() {
		data.Tables = append(data.Tables, int(table))
	}
	writeJSON(resp, data)
}

// PacketOutHandler handles an HTTP request to send a message to the
// connected switch. The payload to the request should be the []byte of an
// OpenFlow message, typically a packet out, including the open flow header.
func (api *API) PacketOutHandler(resp http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()

	// Parse the URL for the target device's DPID
	vars := mux.Vars(req)
	log.WithFields(log.Fields{
		"dpid": vars["dpid"],
	}).Debug("Packet out request received")
	dpid, err := strconv.ParseUint(vars["dpid"], 0, 64)
	if err != nil {
		log.WithFields(log.Fields{
			"dpid": vars["dpid"],
		}).Warn("Unable to parse given DPID")
		http.Error(resp, fmt.Sprintf("DPID doesn't reference a device, '%s' : %s", vars["dpid"], err), http.StatusNotFound)
		return
	}

	// Only the connected switch can be addressed
	dp := api.source.Datapath()
	if dp == nil || dp.DPID() != dpid {
		log.WithFields(log.Fields{
			"dpid": vars["dpid"],
		}).Warn("DPID is not the connected device")
		http.Error(resp, fmt.Sprintf("DPID not found, '%s'", vars["dpid"]), http.StatusNotFound)
		return
	}

	data, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(resp, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		http.Error(resp, "Empty OpenFlow message", http.StatusBadRequest)
		return
	}

	dp.Inject(data)
}

// NewAPI properly instantiates a new API instance.
func NewAPI(listenOn string, source Source) *API {
	api := &API{
		ListenOn: listenOn,
		source:   source,
		router:   mux.NewRouter(),
	}

	api.router.
		HandleFunc("/dfadapter/tables", api.TablesHandler).
		Methods("GET")
	api.router.
		HandleFunc("/dfadapter/{dpid}", api.PacketOutHandler).
		Methods("POST").
		Headers("Content-type", "application/octet-stream")
	api.router.
		HandleFunc("/dfadapter", api.StateHandler).
		Methods("GET")
	api.router.
		Handle("/metrics", promhttp.Handler()).
		Methods("GET")
	return api
}

// ListenAndServe serves the API until the server fails
func (api *API) ListenAndServe() error {
	srv := &http.Server{
		Addr:         api.ListenOn,
		Handler:      api.router,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.WithFields(log.Fields{
		"connect-point": api.ListenOn,
	}).Info("Listening for REST API requests")
	return srv.ListenAndServe()
}
