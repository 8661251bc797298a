// Command get_adapter_state prints the connection state reported by the
// adapter REST API, or the registered tables when TABLES is set.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

type App struct {
	ShowHelp     bool   `envconfig:"HELP" default:"false" desc:"show this message"`
	DFAdapterAPI string `envconfig:"DFADAPTER_API" default:"http://127.0.0.1:8002" desc:"HOST:PORT on which to connect to DFADAPTER REST API"`
	Tables       bool   `envconfig:"TABLES" default:"false" desc:"list the tables with a packet in handler instead of the state"`
}

func main() {
	var app App

	var flags flag.FlagSet
	err := flags.Parse(os.Args[1:])
	if err != nil {
		envconfig.Usage("", &(app))
		return
	}

	err = envconfig.Process("", &app)
	if err != nil {
		log.WithError(err).Fatal("Unable to parse application configuration")
	}
	if app.ShowHelp {
		envconfig.Usage("", &app)
		return
	}

	url := fmt.Sprintf("%s/dfadapter", app.DFAdapterAPI)
	if app.Tables {
		url += "/tables"
	}
	resp, err := http.Get(url)
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
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		log.
			WithFields(log.Fields{
				"dfadapter": app.DFAdapterAPI,
			}).
			WithError(err).
			Fatal("Unable to read response from dfadapter")
	}
	fmt.Print(string(data))
}
