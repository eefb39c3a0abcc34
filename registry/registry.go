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

// Package registry tracks every peer the core knows about: the unmapped
// table of discovered-but-unprovisioned nodes, and the peer table of
// provisioned nodes along with their liveness and reassembly state.
package registry

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/bghosh412/aquarium-core/reassembly"
	"github.com/bghosh412/aquarium-core/wire"
)

// PeerState is the hub-side record for one provisioned, known peer.
type PeerState struct {
	Addr         wire.PeerID
	TankID       uint8
	NodeKind     wire.NodeKind
	Online       bool
	LastRxMs     uint64
	HasLastRxSeq bool
	LastRxSeq    uint8
	Reassembly   *reassembly.Slot
}

// UnmappedEntry is the hub-side record for a discovered but unprovisioned
// node.
type UnmappedEntry struct {
	Addr            wire.PeerID
	NodeKind        wire.NodeKind
	FirmwareVersion uint8
	Capabilities    uint8
	FirstSeenMs     uint64
	LastSeenMs      uint64
	AnnounceCount   uint32
}

// Registry is the mapping from peer identifier to PeerState, plus the
// bounded unmapped table. A peer appears in at most one of the two tables
// at a time; provisioning moves it from unmapped to peers.
type Registry struct {
	mu       sync.Mutex
	peers    map[wire.PeerID]*PeerState
	unmapped map[wire.PeerID]*UnmappedEntry
	// unmappedOrder tracks insertion order so the oldest entry can be
	// evicted when the table is at capacity.
	unmappedOrder []wire.PeerID

	maxUnmapped        int
	heartbeatTimeoutMs uint64
	maxMessageBytes    int
}

// New creates an empty Registry. maxUnmapped bounds the unmapped table
// (oldest-entry eviction when full); heartbeatTimeoutMs and
// maxMessageBytes are applied to peers created via Register.
func New(maxUnmapped int, heartbeatTimeoutMs uint64, maxMessageBytes int) *Registry {
	return &Registry{
		peers:              make(map[wire.PeerID]*PeerState),
		unmapped:           make(map[wire.PeerID]*UnmappedEntry),
		maxUnmapped:        maxUnmapped,
		heartbeatTimeoutMs: heartbeatTimeoutMs,
		maxMessageBytes:    maxMessageBytes,
	}
}

// Register creates (or replaces) a PeerState for addr and removes any
// unmapped entry for the same address, per the invariant that a peer lives
// in at most one table.
func (r *Registry) Register(addr wire.PeerID, nodeKind wire.NodeKind, tankID uint8, nowMs uint64) *PeerState {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeUnmappedLocked(addr)

	p := &PeerState{
		Addr:       addr,
		TankID:     tankID,
		NodeKind:   nodeKind,
		Online:     true,
		LastRxMs:   nowMs,
		Reassembly: reassembly.NewSlot(r.maxMessageBytes),
	}
	r.peers[addr] = p
	return p
}

// Deregister removes addr from the peer table entirely.
func (r *Registry) Deregister(addr wire.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, addr)
}

// Get returns the live PeerState for addr, if registered. The returned
// pointer is shared state: callers run exclusively on the normal-context
// drain/tick path, so no further synchronization is required to mutate it.
func (r *Registry) Get(addr wire.PeerID) (*PeerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[addr]
	return p, ok
}

// IsOnline reports whether addr is a known, currently-online peer.
func (r *Registry) IsOnline(addr wire.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[addr]
	return ok && p.Online
}

// OnRx updates last-seen bookkeeping for addr and reports whether the peer
// transitioned from offline to online as a result. found is false if addr
// is not a registered peer.
func (r *Registry) OnRx(addr wire.PeerID, nowMs uint64) (wasOffline bool, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[addr]
	if !ok {
		return false, false
	}
	wasOffline = !p.Online
	p.LastRxMs = nowMs
	p.Online = true
	return wasOffline, true
}

// Sweep marks any peer silent for at least heartbeatTimeoutMs as offline,
// and returns the addresses that just made that transition so the caller
// can emit PeerOffline events.
func (r *Registry) Sweep(nowMs uint64) []wire.PeerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var justOffline []wire.PeerID
	for addr, p := range r.peers {
		if p.Online && nowMs-p.LastRxMs >= r.heartbeatTimeoutMs {
			p.Online = false
			justOffline = append(justOffline, addr)
		}
	}
	slices.SortFunc(justOffline, func(a, b wire.PeerID) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	return justOffline
}

// Peers returns a point-in-time snapshot of every registered peer, sorted
// by address for deterministic iteration.
func (r *Registry) Peers() []PeerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PeerState, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b PeerState) int {
		if a.Addr.Less(b.Addr) {
			return -1
		}
		if b.Addr.Less(a.Addr) {
			return 1
		}
		return 0
	})
	return out
}

// UpsertUnmapped records (or refreshes) a discovery record for addr. When
// the table is at capacity and addr is new, the oldest entry is evicted.
// It returns the resulting entry and whether it was newly created. An addr
// that is already a registered peer is not added (a peer lives in at most
// one table); the zero entry and false are returned.
func (r *Registry) UpsertUnmapped(addr wire.PeerID, nodeKind wire.NodeKind, fw, caps uint8, nowMs uint64) (UnmappedEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, registered := r.peers[addr]; registered {
		return UnmappedEntry{}, false
	}

	if e, ok := r.unmapped[addr]; ok {
		e.LastSeenMs = nowMs
		e.AnnounceCount++
		e.NodeKind = nodeKind
		e.FirmwareVersion = fw
		e.Capabilities = caps
		return *e, false
	}

	if r.maxUnmapped > 0 && len(r.unmapped) >= r.maxUnmapped {
		r.evictOldestUnmappedLocked()
	}

	e := &UnmappedEntry{
		Addr:            addr,
		NodeKind:        nodeKind,
		FirmwareVersion: fw,
		Capabilities:    caps,
		FirstSeenMs:     nowMs,
		LastSeenMs:      nowMs,
		AnnounceCount:   1,
	}
	r.unmapped[addr] = e
	r.unmappedOrder = append(r.unmappedOrder, addr)
	return *e, true
}

// RemoveUnmapped deletes addr from the unmapped table, if present.
func (r *Registry) RemoveUnmapped(addr wire.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeUnmappedLocked(addr)
}

func (r *Registry) removeUnmappedLocked(addr wire.PeerID) {
	if _, ok := r.unmapped[addr]; !ok {
		return
	}
	delete(r.unmapped, addr)
	for i, a := range r.unmappedOrder {
		if a == addr {
			r.unmappedOrder = append(r.unmappedOrder[:i], r.unmappedOrder[i+1:]...)
			break
		}
	}
}

func (r *Registry) evictOldestUnmappedLocked() {
	if len(r.unmappedOrder) == 0 {
		return
	}
	oldest := r.unmappedOrder[0]
	r.unmappedOrder = r.unmappedOrder[1:]
	delete(r.unmapped, oldest)
}

// GetUnmapped returns the unmapped entry for addr, if present.
func (r *Registry) GetUnmapped(addr wire.PeerID) (UnmappedEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.unmapped[addr]
	if !ok {
		return UnmappedEntry{}, false
	}
	return *e, true
}

// Unmapped returns a point-in-time snapshot of the unmapped table, sorted
// by address for deterministic iteration.
func (r *Registry) Unmapped() []UnmappedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	addrs := maps.Keys(r.unmapped)
	slices.SortFunc(addrs, func(a, b wire.PeerID) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	out := make([]UnmappedEntry, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, *r.unmapped[a])
	}
	return out
}

// ReassemblyTimeoutSweep checks every registered peer's reassembly slot
// against the hard deadline and resets any that have expired, returning
// the addresses whose in-flight message was just dropped for timeout.
func (r *Registry) ReassemblyTimeoutSweep(nowMs, timeoutMs uint64) []wire.PeerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var timedOut []wire.PeerID
	for addr, p := range r.peers {
		if p.Reassembly.CheckTimeout(nowMs, timeoutMs) {
			timedOut = append(timedOut, addr)
		}
	}
	return timedOut
}
