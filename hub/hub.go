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

// Package hub implements the hub side of the role logic: it answers
// Announce frames, tracks unmapped discoveries, provisions nodes, and
// drives command delivery. A Hub never originates its own traffic on Tick
// beyond the liveness sweep Core already performs; remote fail-safe
// behavior is deliberately out of scope (spec Non-goal).
package hub

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/bghosh412/aquarium-core/core"
	"github.com/bghosh412/aquarium-core/sendpath"
	"github.com/bghosh412/aquarium-core/wire"
)

// Hub is a core.Role. It carries no mutable state of its own: all peer
// bookkeeping lives in the Core's registry, which Hub reads and updates
// through the *core.Core handed to every callback.
type Hub struct {
	// TankID is this hub's own identifier, stamped into outgoing frames.
	TankID uint8
}

var _ core.Role = (*Hub)(nil)

// OnAnnounce answers a node's Announce. tank_id == 0 always means
// discovery: the peer is recorded (or refreshed) in the unmapped table,
// unless it is already a registered peer, and gets AckAcceptedPending. A nonzero tank_id from a peer already in the
// registry is a liveness refresh (AckAcceptedKnown); a nonzero tank_id from
// a peer the hub has never seen before — mapped-but-unknown, e.g. a node
// restored from its own persisted identity after the hub lost its
// registry — is registered directly with the supplied tank_id and node
// kind, also AckAcceptedKnown.
func (h *Hub) OnAnnounce(c *core.Core, peer wire.PeerID, msg *wire.AnnounceMessage) {
	ackCode := wire.AckAcceptedPending

	if msg.Header.TankID == 0 {
		entry, created := c.Registry.UpsertUnmapped(peer, msg.Header.NodeKind, msg.FirmwareVersion, msg.Capabilities, c.NowMs())
		if created && c.Callbacks.OnUnmappedDiscovered != nil {
			c.Callbacks.OnUnmappedDiscovered(core.UnmappedEntryView(entry))
		}
	} else if _, ok := c.Registry.Get(peer); ok {
		ackCode = wire.AckAcceptedKnown
		c.Registry.OnRx(peer, c.NowMs())
	} else {
		ackCode = wire.AckAcceptedKnown
		c.Registry.Register(peer, msg.Header.NodeKind, msg.Header.TankID, c.NowMs())
	}

	ack := &wire.AckMessage{
		Header: wire.Header{
			Kind:        wire.KindAck,
			TankID:      h.TankID,
			NodeKind:    msg.Header.NodeKind,
			TimestampMs: msg.Header.TimestampMs,
			Sequence:    c.Seq.Next(),
		},
		AckCode: ackCode,
	}
	b, err := wire.Encode(ack)
	if err != nil {
		log.WithError(err).Error("aquarium-hub: failed to encode ack")
		return
	}
	if err := c.Send.SendRaw(peer, b, sendpath.GateAny); err != nil {
		log.WithField("peer", peer).WithError(err).Warn("aquarium-hub: failed to send ack")
	}
}

// OnAck is unused on the hub side: a hub never sends Announce, so it never
// receives an Ack.
func (h *Hub) OnAck(c *core.Core, peer wire.PeerID, msg *wire.AckMessage) {}

// OnConfig is unused on the hub side: a hub sends Config, it doesn't
// receive it.
func (h *Hub) OnConfig(c *core.Core, peer wire.PeerID, msg *wire.ConfigMessage) {}

// OnCommand is unused on the hub side: a hub sends Command, a node
// executes it. If a stray Command somehow reaches a hub, Core already
// drops it for lack of a reassembly slot on an unregistered sender, or
// reassembles it here with nowhere further to route it.
func (h *Hub) OnCommand(c *core.Core, peer wire.PeerID, commandID uint8, payload []byte) {
	log.WithField("peer", peer).WithField("command_id", commandID).Debug("aquarium-hub: unexpected command received, ignoring")
}

// OnStatus records the completion (or unsolicited telemetry) of a command.
// The registry liveness refresh already happened in Core.drainOne; Hub only
// needs to surface the event.
func (h *Hub) OnStatus(c *core.Core, peer wire.PeerID, msg *wire.StatusMessage) {
	if msg.CommandID == 0 {
		log.WithField("peer", peer).Debug("aquarium-hub: unsolicited telemetry status")
		return
	}
	log.WithField("peer", peer).WithField("command_id", msg.CommandID).WithField("status", msg.StatusCode).Debug("aquarium-hub: command status")
}

// OnHeartbeat is a liveness-only frame; Core's generic OnRx handling already
// covers bringing the peer back online. Hub has nothing further to do.
func (h *Hub) OnHeartbeat(c *core.Core, peer wire.PeerID, msg *wire.HeartbeatMessage) {}

// Tick runs the hub's own periodic behavior. A hub is purely reactive: it
// never originates traffic on a schedule beyond what Core's liveness sweep
// already drives.
func (h *Hub) Tick(c *core.Core, nowMs uint64) {}

// Provision assigns addr to tankID under deviceName, sending the Config
// frame with bounded retry since provisioning must not silently fail. addr
// must currently be in the unmapped table.
func (h *Hub) Provision(c *core.Core, addr wire.PeerID, deviceName string, tankID uint8, maxRetries int) error {
	entry, ok := c.Registry.GetUnmapped(addr)
	if !ok {
		return fmt.Errorf("aquarium-hub: %x is not in the unmapped table", addr)
	}

	var nameBytes [16]byte
	copy(nameBytes[:], deviceName)

	cfg := &wire.ConfigMessage{
		Header: wire.Header{
			Kind:     wire.KindConfig,
			TankID:   tankID,
			NodeKind: entry.NodeKind,
			Sequence: c.Seq.Next(),
		},
		DeviceName: nameBytes,
	}
	b, err := wire.Encode(cfg)
	if err != nil {
		return fmt.Errorf("aquarium-hub: encode config: %w", err)
	}
	if err := c.Send.SendWithRetry(addr, b, maxRetries); err != nil {
		return fmt.Errorf("aquarium-hub: provision %x: %w", addr, err)
	}

	c.Registry.Register(addr, entry.NodeKind, tankID, c.NowMs())
	return nil
}

// SendCommand dispatches payload as commandID to a known, online peer,
// fragmenting as needed.
func (h *Hub) SendCommand(c *core.Core, addr wire.PeerID, commandID uint8, payload []byte) error {
	header := wire.Header{
		Kind:     wire.KindCommand,
		TankID:   h.TankID,
		NodeKind: wire.NodeKindUnknown,
	}
	return c.Send.SendFragmented(addr, header, &c.Seq, c.Config.MaxMessageBytes, commandID, payload, sendpath.GateOnlineOnly)
}
