// DFADAPTER command to start the OpenFlow control channel adapter. This
// command parses the environment for configuration information, loads the
// configured applications and then serves the switch control connection.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ciena/dfadapter/adapter"
	"github.com/ciena/dfadapter/api"
	"github.com/ciena/dfadapter/apps"
	_ "github.com/ciena/dfadapter/apps/tee"
	"github.com/ciena/dfadapter/engine"
	"github.com/ciena/dfadapter/store"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// App maintains the application configuration
type App struct {
	ShowHelp  bool     `envconfig:"HELP" default:"false" desc:"show this message"`
	ListenOn  string   `envconfig:"LISTEN_ON" default:":6653" required:"true" desc:"connection on which to listen for an open flow device"`
	APIOn     string   `envconfig:"API_ON" default:":8002" required:"true" desc:"port on which to listen to accept API requests"`
	Apps      []string `envconfig:"APPS" default:"tee" desc:"list of applications to load, in notification order"`
	StoreFile string   `envconfig:"STORE_FILE" desc:"TOML file used to seed the logical network store"`
	LogLevel  string   `envconfig:"LOG_LEVEL" default:"info" desc:"logging level"`
}

func main() {
	var app App

	// This application is not configured by command line options, so
	// if we have an unknown options or they used -h/--help to ask for
	// usage, give it to them
	var flags flag.FlagSet
	err := flags.Parse(os.Args[1:])
	if err != nil {
		envconfig.Usage("", &(app))
		return
	}

	// Load the application configuration from the environment and initialize
	// the logging system
	err = envconfig.Process("", &app)
	if err != nil {
		log.WithError(err).Fatal("Unable to parse application configuration")
	}

	// Set the logging level, if it can't be parsed then default to warning
	logLevel, err := log.ParseLevel(app.LogLevel)
	if err != nil {
		log.
			WithFields(log.Fields{
				"log-level": app.LogLevel,
			}).
			WithError(err).
			Warn("Unable to parse log level specified, defaulting to Warning")
		logLevel = log.WarnLevel
	}
	log.SetLevel(logLevel)

	// If the help message is requested, then display and return
	if app.ShowHelp {
		envconfig.Usage("", &app)
		return
	}

	// Seed the logical network store
	s := store.NewMemStore()
	if app.StoreFile != "" {
		if err = s.LoadFile(app.StoreFile); err != nil {
			log.WithError(err).Fatal("Unable to load logical network store")
		}
	}

	log.WithFields(log.Fields{
		"apps":      app.Apps,
		"available": apps.Available(),
	}).Debug("Loading applications")
	d := apps.NewDispatcher(app.Apps)
	a := adapter.New(d, d, s)

	// Listen and serve device connections and API requests, either failing
	// terminates the adapter
	e := engine.New(a)
	var g errgroup.Group
	g.Go(func() error {
		return e.ListenAndServe(app.ListenOn)
	})
	g.Go(api.NewAPI(app.APIOn, a).ListenAndServe)
	go func() {
		log.WithError(g.Wait()).Fatal("Listener failed")
	}()

	// Load the applications and wait for the switch
	if err = a.Start(); err != nil {
		log.WithError(err).Fatal("Unable to start adapter")
	}
	log.WithFields(log.Fields{
		"applications": len(d.Applications()),
	}).Info("Switch connected, adapter started")

	// Tell the applications about the logical network, in line with the
	// switch events
	e.Run(func() {
		s.Publish(a)
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.WithFields(log.Fields{
		"signal": sig.String(),
	}).Info("Shutting down")
	e.Close()
}
