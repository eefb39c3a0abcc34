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

// Package admin exposes the running core's peer tables, statistics and
// provisioning action over a local Unix domain socket, the surface
// aquactl talks to. It is deliberately not network-reachable: the socket
// is operator-local, in the spirit of the teacher's preference for
// Unix-socket-scoped control surfaces over host-reachable TCP ports.
package admin

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/bghosh412/aquarium-core/core"
	"github.com/bghosh412/aquarium-core/hub"
	"github.com/bghosh412/aquarium-core/radio"
)

// Server serves the admin API for one Core over a Unix socket.
type Server struct {
	Core       *core.Core
	Hub        *hub.Hub // nil on a node-role process; Provision is hub-only
	SocketPath string
}

// PeerView is the JSON shape returned for a provisioned peer.
type PeerView struct {
	Addr     string `json:"addr"`
	TankID   uint8  `json:"tank_id"`
	NodeKind uint8  `json:"node_kind"`
	Online   bool   `json:"online"`
	LastRxMs uint64 `json:"last_rx_ms"`
}

// UnmappedView is the JSON shape returned for an unmapped discovery.
type UnmappedView struct {
	Addr          string `json:"addr"`
	NodeKind      uint8  `json:"node_kind"`
	AnnounceCount uint32 `json:"announce_count"`
	FirstSeenMs   uint64 `json:"first_seen_ms"`
	LastSeenMs    uint64 `json:"last_seen_ms"`
}

// ProvisionRequest is the POST body for /provision.
type ProvisionRequest struct {
	Addr       string `json:"addr"`
	DeviceName string `json:"device_name"`
	TankID     uint8  `json:"tank_id"`
}

// ListenAndServe removes any stale socket at SocketPath, binds a new one,
// and serves until the listener is closed. It blocks; run it in its own
// goroutine.
func (s *Server) ListenAndServe() error {
	if err := os.Remove(s.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	ln, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/peers", s.handlePeers)
	mux.HandleFunc("/unmapped", s.handleUnmapped)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/provision", s.handleProvision)

	log.WithField("socket", s.SocketPath).Info("aquarium-admin: serving control socket")
	return http.Serve(ln, mux)
}

func (s *Server) handlePeers(w http.ResponseWriter, _ *http.Request) {
	peers := s.Core.Peers()
	out := make([]PeerView, 0, len(peers))
	for _, p := range peers {
		out = append(out, PeerView{
			Addr:     p.Addr.String(),
			TankID:   p.TankID,
			NodeKind: uint8(p.NodeKind),
			Online:   p.Online,
			LastRxMs: p.LastRxMs,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleUnmapped(w http.ResponseWriter, _ *http.Request) {
	entries := s.Core.Unmapped()
	out := make([]UnmappedView, 0, len(entries))
	for _, e := range entries {
		out = append(out, UnmappedView{
			Addr:          e.Addr.String(),
			NodeKind:      uint8(e.NodeKind),
			AnnounceCount: e.AnnounceCount,
			FirstSeenMs:   e.FirstSeenMs,
			LastSeenMs:    e.LastSeenMs,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Core.Statistics().ToMap())
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "provisioning is only available on a hub process", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	addr, err := radio.ParsePeerID(req.Addr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Hub.Provision(s.Core, addr, req.DeviceName, req.TankID, s.Core.Config.MaxRetries); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("aquarium-admin: failed to write response")
	}
}
