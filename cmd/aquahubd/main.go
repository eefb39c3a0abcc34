/*
Copyright (c) the aquarium-core authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command aquahubd runs the hub role of the aquarium messaging core over a
// UDP-backed stand-in radio, with a Prometheus exporter and an admin
// control socket for aquactl.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bghosh412/aquarium-core/admin"
	"github.com/bghosh412/aquarium-core/config"
	"github.com/bghosh412/aquarium-core/core"
	"github.com/bghosh412/aquarium-core/hub"
	"github.com/bghosh412/aquarium-core/radio"
	"github.com/bghosh412/aquarium-core/stats"
	"github.com/bghosh412/aquarium-core/wire"
)

func main() {
	var (
		listenAddr  = flag.String("listen", ":17171", "UDP address to listen on")
		workers     = flag.Int("workers", 4, "number of receive worker goroutines")
		configFile  = flag.String("config", "", "path to a YAML file with the dynamic config subset")
		socketPath  = flag.String("socket", "/run/aquahubd.sock", "admin control socket path")
		peerMapFile = flag.String("peers", "", "path to a YAML peer-address map (mac -> host:port)")
		metricsPort = flag.Int("metrics-port", 9108, "Prometheus /metrics listen port")
		tankID      = flag.Uint("tank-id", 0, "this hub's own tank_id")
		logLevel    = flag.String("loglevel", "info", "log level: debug, info, warning, error")
	)
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("aquahubd: invalid log level %q: %v", *logLevel, err)
	}
	log.SetLevel(level)

	cfg := config.Default()
	if *configFile != "" {
		dc, err := config.ReadDynamicConfig(*configFile)
		if err != nil {
			log.Fatalf("aquahubd: reading config: %v", err)
		}
		cfg.DynamicConfig = *dc
	}

	r, err := radio.NewUDP(*listenAddr, *workers)
	if err != nil {
		log.Fatalf("aquahubd: %v", err)
	}
	if *peerMapFile != "" {
		peers, err := radio.LoadPeerMap(*peerMapFile)
		if err != nil {
			log.Fatalf("aquahubd: %v", err)
		}
		for addr, udpAddr := range peers {
			if err := r.SetPeerAddr(addr, udpAddr); err != nil {
				log.Fatalf("aquahubd: %v", err)
			}
		}
	}

	role := &hub.Hub{TankID: uint8(*tankID)}
	c, err := core.New(role, cfg, r, core.Callbacks{
		OnPeerOnline: func(peer wire.PeerID) {
			log.WithField("peer", peer).Info("aquahubd: peer online")
		},
		OnPeerOffline: func(peer wire.PeerID) {
			log.WithField("peer", peer).Warn("aquahubd: peer offline")
		},
	})
	if err != nil {
		log.Fatalf("aquahubd: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go r.Listen(ctx, c.ReceiveUpcall)

	exporter := stats.NewPrometheusExporter(c.Stats, *metricsPort, 15*time.Second)
	go exporter.Start()

	adminSrv := &admin.Server{Core: c, Hub: role, SocketPath: *socketPath}
	go func() {
		if err := adminSrv.ListenAndServe(); err != nil {
			log.WithError(err).Error("aquahubd: admin socket server exited")
		}
	}()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if *configFile == "" {
				continue
			}
			dc, err := config.ReadDynamicConfig(*configFile)
			if err != nil {
				log.WithError(err).Error("aquahubd: config reload failed")
				continue
			}
			c.Config.DynamicConfig = *dc
			c.Stats.IncReload()
			log.Info("aquahubd: dynamic config reloaded")
		}
	}()

	log.WithField("listen", *listenAddr).Info("aquahubd: starting")
	if err := c.Run(ctx, 50*time.Millisecond); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("aquahubd: core run loop exited")
	}
	log.Info("aquahubd: shutting down")
}
