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

// Package radio provides sendpath.Radio implementations: an in-memory
// loopback bus for tests and single-process demos, and a UDP-backed radio
// for a real multi-process deployment over the LAN in place of the 802.15.4
// link the messaging core was designed against.
package radio

import (
	"sync"

	"github.com/bghosh412/aquarium-core/wire"
)

// Upcall matches core.Core.ReceiveUpcall's signature, letting a Loopback bus
// deliver frames without importing the core package (which would create an
// import cycle back to sendpath.Radio).
type Upcall func(peer wire.PeerID, frame []byte)

// Loopback is an in-memory bus: every station registered on it can Send to
// any other by address, delivered synchronously on the caller's goroutine.
// It never drops and never reorders, standing in for a radio driver in
// tests and single-process demonstrations.
type Loopback struct {
	mu       sync.Mutex
	stations map[wire.PeerID]Upcall
}

// NewLoopback creates an empty bus.
func NewLoopback() *Loopback {
	return &Loopback{stations: make(map[wire.PeerID]Upcall)}
}

// Station returns a Radio bound to addr on this bus. Register must be
// called with the Core's ReceiveUpcall before any frame addressed to addr
// can be delivered.
func (b *Loopback) Station(addr wire.PeerID) *LoopbackStation {
	return &LoopbackStation{bus: b, addr: addr}
}

// Register binds addr's upcall so other stations' sends reach it.
func (b *Loopback) Register(addr wire.PeerID, upcall Upcall) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stations[addr] = upcall
}

func (b *Loopback) deliver(sender, dest wire.PeerID, frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if dest == wire.Broadcast {
		for addr, upcall := range b.stations {
			if addr == sender {
				continue
			}
			upcall(sender, append([]byte(nil), frame...))
		}
		return
	}
	if upcall, ok := b.stations[dest]; ok {
		upcall(sender, append([]byte(nil), frame...))
	}
}

// LoopbackStation is one addressable endpoint on a Loopback bus.
type LoopbackStation struct {
	bus  *Loopback
	addr wire.PeerID
}

// Send implements sendpath.Radio.
func (s *LoopbackStation) Send(dest wire.PeerID, frame []byte) error {
	s.bus.deliver(s.addr, dest, frame)
	return nil
}

// AddPeer implements sendpath.Radio. The loopback bus needs no peer table.
func (s *LoopbackStation) AddPeer(wire.PeerID) error { return nil }

// RemovePeer implements sendpath.Radio.
func (s *LoopbackStation) RemovePeer(wire.PeerID) error { return nil }
