package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tonicpow/dap-engine-go/api"
	"github.com/tonicpow/dap-engine-go/config"
	"github.com/tonicpow/dap-engine-go/database"
	"github.com/tonicpow/dap-engine-go/gateway"
	"github.com/tonicpow/dap-engine-go/router"
	"github.com/tonicpow/dap-engine-go/state"
)

func main() {

	// Fresh engine stack (mines the genesis block)
	gw, err := gateway.New()
	if err != nil {
		logrus.WithError(err).Fatalln("starting engine")
	}

	// Optional mongo query mirror
	var mirror *database.Connection
	if len(config.MongoURL()) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if mirror, err = database.Connect(ctx); err != nil {
			logrus.WithError(err).Fatalln("connecting query mirror")
		}
		state.NewSyncer(mirror, gw)
	}

	startServer(api.NewServer(gw, mirror))
}

func startServer(server *api.Server) {
	logrus.WithField("addr", config.Addr()).Info("starting Go web server")
	srv := &http.Server{
		Addr:         config.Addr(),
		Handler:      router.Handlers(server),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	logrus.Fatalln(srv.ListenAndServe())
}
