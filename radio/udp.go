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

package radio

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/bghosh412/aquarium-core/wire"
)

// LoadPeerMap reads a YAML file mapping a colon-separated PeerID (e.g.
// "00:00:00:00:00:02") to a "host:port" UDP address, the operator-supplied
// substitute for the address resolution a real radio driver would do on
// its own.
func LoadPeerMap(path string) (map[wire.PeerID]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("radio: parsing peer map %s: %w", path, err)
	}
	out := make(map[wire.PeerID]string, len(raw))
	for k, v := range raw {
		addr, err := ParsePeerID(k)
		if err != nil {
			return nil, err
		}
		out[addr] = v
	}
	return out, nil
}

// ParsePeerID parses a colon-separated hex PeerID such as
// "00:00:00:00:00:02".
func ParsePeerID(s string) (wire.PeerID, error) {
	var addr wire.PeerID
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return addr, fmt.Errorf("radio: invalid peer address %q", s)
	}
	for i, p := range parts {
		var v uint8
		if _, err := fmt.Sscanf(p, "%02x", &v); err != nil {
			return addr, fmt.Errorf("radio: invalid peer address %q: %w", s, err)
		}
		addr[i] = v
	}
	return addr, nil
}

// UDP is a sendpath.Radio backed by a UDP socket: each wire.PeerID is mapped
// to a net.UDPAddr via a small static table, standing in for the
// hardware address resolution a real 802.15.4 driver would do itself.
// Grounded on the listener/worker shape of the teacher's UDP responder
// server: one listener goroutine feeding a bounded worker pool.
type UDP struct {
	conn    *net.UDPConn
	mu      sync.RWMutex
	peers   map[wire.PeerID]*net.UDPAddr
	workers int
}

// NewUDP binds a UDP socket on listenAddr (e.g. ":7711") and returns a
// radio ready to have peers added and Listen started.
func NewUDP(listenAddr string, workers int) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("radio: resolve %s: %w", listenAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("radio: listen %s: %w", listenAddr, err)
	}
	if workers <= 0 {
		workers = 1
	}
	return &UDP{
		conn:    conn,
		peers:   make(map[wire.PeerID]*net.UDPAddr),
		workers: workers,
	}, nil
}

// AddPeer implements sendpath.Radio. addr must already have been resolved
// via SetPeerAddr; AddPeer on a UDP radio is a structural no-op since the
// socket itself requires no per-peer registration.
func (u *UDP) AddPeer(wire.PeerID) error { return nil }

// RemovePeer implements sendpath.Radio.
func (u *UDP) RemovePeer(wire.PeerID) error { return nil }

// SetPeerAddr binds a PeerID to the UDP address frames addressed to it
// should be sent to. This is the operator-supplied substitute for the
// driver-level address resolution a real radio would perform.
func (u *UDP) SetPeerAddr(peer wire.PeerID, udpAddr string) error {
	addr, err := net.ResolveUDPAddr("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("radio: resolve peer addr %s: %w", udpAddr, err)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.peers[peer] = addr
	return nil
}

// Send implements sendpath.Radio. Broadcast fans out to every known peer
// address.
func (u *UDP) Send(dest wire.PeerID, frame []byte) error {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if dest == wire.Broadcast {
		var lastErr error
		for _, addr := range u.peers {
			if _, err := u.conn.WriteToUDP(frame, addr); err != nil {
				lastErr = err
			}
		}
		return lastErr
	}
	addr, ok := u.peers[dest]
	if !ok {
		return fmt.Errorf("radio: no address known for peer %s", dest)
	}
	_, err := u.conn.WriteToUDP(frame, addr)
	return err
}

// Listen runs the receive loop: one reader goroutine feeding a bounded pool
// of workers that call upcall one at a time, until ctx is canceled. It
// blocks.
func (u *UDP) Listen(ctx context.Context, upcall Upcall) {
	type datagram struct {
		from *net.UDPAddr
		buf  []byte
	}
	tasks := make(chan datagram, u.workers)

	// upcall feeds a single-producer intake queue, so workers take turns.
	var upcallMu sync.Mutex
	for i := 0; i < u.workers; i++ {
		go func() {
			for dg := range tasks {
				peer, ok := u.peerForAddr(dg.from)
				if !ok {
					log.WithField("addr", dg.from).Debug("aquarium-radio: datagram from unknown peer address")
					continue
				}
				upcallMu.Lock()
				upcall(peer, dg.buf)
				upcallMu.Unlock()
			}
		}()
	}

	go func() {
		<-ctx.Done()
		close(tasks)
		u.conn.Close()
	}()

	buf := make([]byte, wire.MTU)
	for {
		n, from, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("aquarium-radio: udp read failed")
			continue
		}
		cp := append([]byte(nil), buf[:n]...)
		select {
		case tasks <- datagram{from: from, buf: cp}:
		case <-ctx.Done():
			return
		}
	}
}

func (u *UDP) peerForAddr(addr *net.UDPAddr) (wire.PeerID, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for peer, a := range u.peers {
		if a.String() == addr.String() {
			return peer, true
		}
	}
	return wire.PeerID{}, false
}
