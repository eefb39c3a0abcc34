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

// Package core wires the wire codec, intake queue, duplicate filter,
// reassembly engine, peer registry and send path into the single object an
// embedding application talks to: push bytes in from the radio, call Tick
// periodically, and get callbacks out.
package core

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bghosh412/aquarium-core/config"
	"github.com/bghosh412/aquarium-core/dedup"
	"github.com/bghosh412/aquarium-core/intake"
	"github.com/bghosh412/aquarium-core/reassembly"
	"github.com/bghosh412/aquarium-core/registry"
	"github.com/bghosh412/aquarium-core/sendpath"
	"github.com/bghosh412/aquarium-core/stats"
	"github.com/bghosh412/aquarium-core/wire"
)

// Core bundles every layer of the messaging stack behind one API. A single
// Core instance plays exactly one role (hub or node) at a time; the role
// determines how each decoded frame kind is interpreted.
type Core struct {
	Role      Role
	Config    config.Config
	Radio     sendpath.Radio
	Send      *sendpath.SendPath
	Registry  *registry.Registry
	Stats     *stats.Stats
	Callbacks Callbacks
	Seq       sendpath.Sequencer

	intake *intake.Queue
	nowMs  uint64
}

// New validates cfg and constructs a Core around role and radio. Callbacks
// may be the zero value if the embedder doesn't care about a given event.
func New(role Role, cfg config.Config, radio sendpath.Radio, callbacks Callbacks) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("core: invalid config: %w", err)
	}
	st := stats.New()
	reg := registry.New(cfg.MaxUnmappedEntries, uint64(cfg.HeartbeatTimeoutMs), cfg.MaxMessageBytes)
	c := &Core{
		Role:      role,
		Config:    cfg,
		Radio:     radio,
		Registry:  reg,
		Stats:     st,
		Callbacks: callbacks,
		intake:    intake.NewQueue(cfg.RxQueueCapacity),
	}
	c.Send = sendpath.New(radio, reg.IsOnline, st)
	c.Send.RetryBaseDelay = cfg.RetryBaseDelay()
	return c, nil
}

// ReceiveUpcall is the single entry point called from the radio's receive
// upcall. It must not block and must not allocate beyond the copy into the
// pre-sized intake slot; it is safe to call from an interrupt or callback
// context the rest of Core never runs in.
func (c *Core) ReceiveUpcall(peer wire.PeerID, frame []byte) {
	if !c.intake.Push(peer, frame) {
		c.Stats.IncDroppedOnIntake()
	}
}

// Tick drives every periodic behavior: it drains every frame currently
// queued in intake, sweeps peer liveness and reassembly timeouts, and lets
// the active Role run its own periodic logic (announce rebroadcast,
// heartbeat emission, supervisory timeout). nowMs must be non-decreasing
// across calls.
func (c *Core) Tick(nowMs uint64) {
	c.nowMs = nowMs

	for c.drainOne() {
	}

	for _, addr := range c.Registry.Sweep(nowMs) {
		if c.Callbacks.OnPeerOffline != nil {
			c.Callbacks.OnPeerOffline(addr)
		}
	}
	for _, addr := range c.Registry.ReassemblyTimeoutSweep(nowMs, uint64(c.Config.ReassemblyTimeoutMs)) {
		c.Stats.IncReassemblyTimeouts()
		log.WithField("peer", addr).Debug("aquarium-core: reassembly slot timed out on sweep")
	}

	c.Role.Tick(c, nowMs)
}

// drainOne pops and fully processes one queued frame. It returns false when
// the queue is empty.
func (c *Core) drainOne() bool {
	slot, ok := c.intake.DrainOne()
	if !ok {
		return false
	}

	msg, err := wire.Decode(slot.Buf[:slot.Len])
	if err != nil {
		c.Stats.IncReceivedButInvalid()
		log.WithField("peer", slot.Peer).WithError(err).Debug("aquarium-core: dropped undecodable frame")
		return true
	}
	c.Stats.IncReceived()

	peer := slot.Peer
	header := msg.MessageHeader()

	cmd, isCommand := msg.(*wire.CommandMessage)
	isFragCont := isCommand && cmd.FragmentSeq > 0

	var hasLast bool
	var lastSeq uint8
	peerState, known := c.Registry.Get(peer)
	if known {
		hasLast, lastSeq = peerState.HasLastRxSeq, peerState.LastRxSeq
	}

	accept, newLast, update := dedup.Decide(isFragCont, hasLast, lastSeq, header.Sequence)
	if !accept {
		c.Stats.IncDuplicatesIgnored()
		return true
	}
	if update && known {
		peerState.LastRxSeq = newLast
		peerState.HasLastRxSeq = true
	}

	if known {
		if wasOffline, _ := c.Registry.OnRx(peer, c.nowMs); wasOffline && c.Callbacks.OnPeerOnline != nil {
			c.Callbacks.OnPeerOnline(peer)
		}
	}

	if isCommand {
		c.dispatchCommand(peer, known, peerState, cmd)
		return true
	}

	switch m := msg.(type) {
	case *wire.AnnounceMessage:
		if c.Callbacks.OnAnnounce != nil {
			c.Callbacks.OnAnnounce(peer, m)
		}
		c.Role.OnAnnounce(c, peer, m)
	case *wire.AckMessage:
		if c.Callbacks.OnAck != nil {
			c.Callbacks.OnAck(peer, m)
		}
		c.Role.OnAck(c, peer, m)
	case *wire.ConfigMessage:
		if c.Callbacks.OnConfig != nil {
			c.Callbacks.OnConfig(peer, m)
		}
		c.Role.OnConfig(c, peer, m)
	case *wire.StatusMessage:
		if c.Callbacks.OnStatus != nil {
			c.Callbacks.OnStatus(peer, m)
		}
		c.Role.OnStatus(c, peer, m)
	case *wire.HeartbeatMessage:
		if c.Callbacks.OnHeartbeat != nil {
			c.Callbacks.OnHeartbeat(peer, m)
		}
		c.Role.OnHeartbeat(c, peer, m)
	}
	return true
}

func (c *Core) dispatchCommand(peer wire.PeerID, known bool, p *registry.PeerState, cmd *wire.CommandMessage) {
	c.Stats.IncFragmentsReceived()
	if !known {
		// No reassembly slot exists for an unregistered sender; a command
		// frame from a peer that was never provisioned is dropped.
		log.WithField("peer", peer).Debug("aquarium-core: command from unregistered peer ignored")
		return
	}

	result, payload := p.Reassembly.Feed(c.nowMs, uint64(c.Config.ReassemblyTimeoutMs), cmd.CommandID, cmd.FragmentSeq, cmd.FinalFragment, cmd.Payload[:])
	if p.Reassembly.DrainReplaced() > 0 {
		// A fresh fragment-0 cut a mid-reassembly message short; that loss
		// is independent of whatever Feed just returned for the fragment
		// that replaced it.
		c.Stats.IncReassemblyErrors()
	}
	switch result {
	case reassembly.ResultCompleted:
		out := append([]byte(nil), payload...)
		if c.Callbacks.OnCommand != nil {
			c.Callbacks.OnCommand(peer, cmd.CommandID, out)
		}
		c.Role.OnCommand(c, peer, cmd.CommandID, out)
	case reassembly.ResultDroppedError:
		c.Stats.IncReassemblyErrors()
	case reassembly.ResultDroppedTimeout:
		c.Stats.IncReassemblyTimeouts()
	case reassembly.ResultInProgress, reassembly.ResultIgnored:
		// nothing to do yet
	}
}

// NowMs returns the timestamp passed to the most recent Tick call, for use
// by Role implementations that need "now" outside of a Tick callback (for
// example, when handling a frame during drainOne).
func (c *Core) NowMs() uint64 { return c.nowMs }

// IsPeerOnline reports whether addr is a known, currently-online peer.
func (c *Core) IsPeerOnline(addr wire.PeerID) bool {
	return c.Registry.IsOnline(addr)
}

// Peers returns a snapshot of every known peer.
func (c *Core) Peers() []registry.PeerState {
	return c.Registry.Peers()
}

// Unmapped returns a snapshot of the unmapped discovery table.
func (c *Core) Unmapped() []registry.UnmappedEntry {
	return c.Registry.Unmapped()
}

// Statistics returns a point-in-time snapshot of the statistics surface.
func (c *Core) Statistics() stats.Snapshot {
	return c.Stats.Snapshot()
}

// Run drives Tick once per interval against the wall clock until ctx is
// canceled, the way a standalone daemon embeds Core. It is a convenience
// wrapper; embedders that already run their own scheduler should call Tick
// directly instead.
func (c *Core) Run(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		start := time.Now()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				c.Tick(uint64(now.Sub(start).Milliseconds()))
			}
		}
	})
	return g.Wait()
}
