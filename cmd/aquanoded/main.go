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

// Command aquanoded runs the node role of the aquarium messaging core over
// a UDP-backed stand-in radio, talking to exactly one hub.
package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bghosh412/aquarium-core/config"
	"github.com/bghosh412/aquarium-core/core"
	"github.com/bghosh412/aquarium-core/node"
	"github.com/bghosh412/aquarium-core/radio"
	"github.com/bghosh412/aquarium-core/stats"
	"github.com/bghosh412/aquarium-core/wire"
)

// filePersist is the default node.Persist: it writes the assignment to a
// small flat file so a restart can pick it back up. Production firmware
// would back this with flash instead.
type filePersist struct {
	path string
}

func (f filePersist) SaveAssignment(tankID uint8, deviceName string) error {
	contents := "tank_id=" + strconv.Itoa(int(tankID)) + "\ndevice_name=" + deviceName + "\n"
	return os.WriteFile(f.path, []byte(contents), 0644)
}

// LoadAssignment reads back a prior SaveAssignment, if any. A missing file
// means the node has never been provisioned; it returns the zero value, not
// an error, so a fresh install boots with tank_id 0 like the spec expects.
func (f filePersist) LoadAssignment() (tankID uint8, deviceName string, err error) {
	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), "=")
		if !found {
			continue
		}
		switch key {
		case "tank_id":
			n, convErr := strconv.Atoi(value)
			if convErr != nil {
				return 0, "", convErr
			}
			tankID = uint8(n)
		case "device_name":
			deviceName = value
		}
	}
	return tankID, deviceName, scanner.Err()
}

func main() {
	var (
		listenAddr  = flag.String("listen", ":17172", "UDP address to listen on")
		hubAddrStr  = flag.String("hub-mac", "", "the hub's PeerID, colon-separated hex (required)")
		hubUDPAddr  = flag.String("hub-udp", "", "the hub's host:port (required)")
		nodeKind    = flag.Int("kind", int(wire.NodeKindSensor), "this node's NodeKind discriminant")
		stateFile   = flag.String("state", "/var/lib/aquanoded/assignment", "path to persist the tank_id/device_name assignment")
		metricsPort = flag.Int("metrics-port", 9109, "Prometheus /metrics listen port")
		logLevel    = flag.String("loglevel", "info", "log level: debug, info, warning, error")
	)
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("aquanoded: invalid log level %q: %v", *logLevel, err)
	}
	log.SetLevel(level)

	if *hubAddrStr == "" || *hubUDPAddr == "" {
		log.Fatal("aquanoded: -hub-mac and -hub-udp are required")
	}
	hubAddr, err := radio.ParsePeerID(*hubAddrStr)
	if err != nil {
		log.Fatalf("aquanoded: %v", err)
	}

	cfg := config.Default()

	r, err := radio.NewUDP(*listenAddr, 2)
	if err != nil {
		log.Fatalf("aquanoded: %v", err)
	}
	if err := r.SetPeerAddr(hubAddr, *hubUDPAddr); err != nil {
		log.Fatalf("aquanoded: %v", err)
	}

	persist := filePersist{path: *stateFile}
	persistedTankID, persistedDeviceName, err := persist.LoadAssignment()
	if err != nil {
		log.WithError(err).Warn("aquanoded: failed to read prior assignment, booting unprovisioned")
	}

	role := &node.Node{
		NodeKind:            wire.NodeKind(*nodeKind),
		Hub:                 hubAddr,
		Persist:             persist,
		PersistedTankID:     persistedTankID,
		PersistedDeviceName: persistedDeviceName,
		FailSafe: func() {
			log.Warn("aquanoded: supervisory timeout, entering local fail-safe")
		},
	}

	c, err := core.New(role, cfg, r, core.Callbacks{})
	if err != nil {
		log.Fatalf("aquanoded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go r.Listen(ctx, c.ReceiveUpcall)

	exporter := stats.NewPrometheusExporter(c.Stats, *metricsPort, 15*time.Second)
	go exporter.Start()

	role.Start(c)

	log.WithField("hub", *hubUDPAddr).Info("aquanoded: starting")
	if err := c.Run(ctx, 50*time.Millisecond); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("aquanoded: core run loop exited")
	}
	log.Info("aquanoded: shutting down")
}
