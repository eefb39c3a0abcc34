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

// Package node implements the node side of the role logic: the
// unmapped-to-provisioned-to-operational lifecycle, periodic Announce and
// Heartbeat emission, Config/Command handling, and the supervisory timeout
// that triggers fail-safe when the hub goes silent.
package node

import (
	log "github.com/sirupsen/logrus"

	"github.com/bghosh412/aquarium-core/core"
	"github.com/bghosh412/aquarium-core/sendpath"
	"github.com/bghosh412/aquarium-core/wire"
)

// Lifecycle enumerates the three phases a node moves through (spec §3).
type Lifecycle int

// Lifecycle values. Provisioning (receipt of Config) and entering
// Operational happen in the same synchronous step — a node only ever
// observes Operational, never a distinct in-between provisioned-but-idle
// state — so the two spec phases share the LifecycleOperational value.
const (
	LifecycleUnmapped Lifecycle = iota
	LifecycleAwaitingAck
	LifecycleOperational
	LifecycleLostConnection
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleUnmapped:
		return "unmapped"
	case LifecycleAwaitingAck:
		return "awaiting_ack"
	case LifecycleOperational:
		return "operational"
	case LifecycleLostConnection:
		return "lost_connection"
	default:
		return "unknown"
	}
}

// Persist is the collaborator a Node uses to durably store the tank_id and
// device_name assigned by Config, so they survive a restart. Implementations
// are typically backed by flash or a local file.
type Persist interface {
	SaveAssignment(tankID uint8, deviceName string) error
}

// CommandHandler runs a reassembled command's application logic and
// returns the status code/data to report back to the hub.
type CommandHandler func(commandID uint8, payload []byte) (statusCode uint8, statusData [32]byte)

// FailSafe is invoked when the supervisory timeout fires: the hub has gone
// silent for longer than the configured timeout, and the node must fall
// back to a safe local behavior. It carries no default implementation; a
// node with nothing meaningful to fail safe to may pass a no-op.
type FailSafe func()

// Node is a core.Role.
type Node struct {
	NodeKind     wire.NodeKind
	Firmware     uint8
	Capabilities uint8
	Persist      Persist
	OnCommand    CommandHandler
	FailSafe     FailSafe

	// Hub is the single peer a Node ever talks to.
	Hub wire.PeerID

	// PersistedTankID and PersistedDeviceName seed the node's identity on
	// construction, for a restart that already holds a prior assignment
	// from Persist. Zero/empty means "never provisioned" (spec §9: the
	// boot Announce carries the persisted tank_id, possibly 0).
	PersistedTankID     uint8
	PersistedDeviceName string

	state           Lifecycle
	tankID          uint8
	deviceName      string
	lastAnnounceMs  uint64
	lastHeartbeatMs uint64
}

var _ core.Role = (*Node)(nil)

// State reports the node's current lifecycle phase.
func (n *Node) State() Lifecycle { return n.state }

// Start sends the initial Announce and enters AwaitingAck. Call this once
// after construction, before the first Tick. Every Announce, this one and
// the re-announces from Tick, is addressed to Hub; none is sent to the
// broadcast address.
func (n *Node) Start(c *core.Core) {
	n.tankID = n.PersistedTankID
	n.deviceName = n.PersistedDeviceName
	n.state = LifecycleAwaitingAck
	// The node's registry tracks exactly one peer, the hub, so Core's
	// generic liveness and dedup bookkeeping (OnRx, last_rx_seq) applies to
	// hub-originated frames the same way it applies to node-originated
	// frames on the hub side.
	c.Registry.Register(n.Hub, wire.NodeKindHub, 0, c.NowMs())
	n.sendAnnounce(c)
}

func (n *Node) sendAnnounce(c *core.Core) {
	msg := &wire.AnnounceMessage{
		Header: wire.Header{
			Kind:        wire.KindAnnounce,
			TankID:      n.tankID,
			NodeKind:    n.NodeKind,
			TimestampMs: uint32(c.NowMs()),
			Sequence:    c.Seq.Next(),
		},
		FirmwareVersion: n.Firmware,
		Capabilities:    n.Capabilities,
	}
	b, err := wire.Encode(msg)
	if err != nil {
		log.WithError(err).Error("aquarium-node: failed to encode announce")
		return
	}
	if err := c.Send.SendRaw(n.Hub, b, sendpath.GateAny); err != nil {
		log.WithError(err).Warn("aquarium-node: failed to send announce")
	}
	n.lastAnnounceMs = c.NowMs()
}

// OnAnnounce is unused on the node side: a node sends Announce, the hub
// answers it.
func (n *Node) OnAnnounce(c *core.Core, peer wire.PeerID, msg *wire.AnnounceMessage) {}

// OnAck advances the node out of AwaitingAck. AckAcceptedPending and
// AckAcceptedKnown both confirm the hub saw the Announce; only
// AckAcceptedKnown means the node is already provisioned and can move
// straight to Operational. AckRejected is logged and otherwise ignored —
// the node keeps re-announcing.
func (n *Node) OnAck(c *core.Core, peer wire.PeerID, msg *wire.AckMessage) {
	switch msg.AckCode {
	case wire.AckAcceptedKnown:
		n.state = LifecycleOperational
	case wire.AckAcceptedPending:
		if n.state == LifecycleAwaitingAck {
			n.state = LifecycleUnmapped
		}
	case wire.AckRejected:
		log.WithField("hub", peer).Warn("aquarium-node: announce rejected by hub")
	}
}

// OnConfig persists the assignment, replies with Status, and moves the node
// to Operational.
func (n *Node) OnConfig(c *core.Core, peer wire.PeerID, msg *wire.ConfigMessage) {
	n.tankID = msg.Header.TankID
	n.deviceName = trimNulls(msg.DeviceName[:])

	statusCode := wire.StatusOK
	if n.Persist != nil {
		if err := n.Persist.SaveAssignment(n.tankID, n.deviceName); err != nil {
			log.WithError(err).Error("aquarium-node: failed to persist assignment")
			statusCode = wire.StatusError
		}
	}

	n.state = LifecycleOperational
	n.replyStatus(c, 0, statusCode, [32]byte{})
}

// OnCommand runs the configured handler (if any) on a fully reassembled
// command and reports the result back to the hub.
func (n *Node) OnCommand(c *core.Core, peer wire.PeerID, commandID uint8, payload []byte) {
	var statusCode uint8 = wire.StatusOK
	var data [32]byte
	if n.OnCommand != nil {
		statusCode, data = n.OnCommand(commandID, payload)
	}
	n.replyStatus(c, commandID, statusCode, data)
}

func (n *Node) replyStatus(c *core.Core, commandID, statusCode uint8, data [32]byte) {
	msg := &wire.StatusMessage{
		Header: wire.Header{
			Kind:        wire.KindStatus,
			TankID:      n.tankID,
			NodeKind:    n.NodeKind,
			TimestampMs: uint32(c.NowMs()),
			Sequence:    c.Seq.Next(),
		},
		CommandID:  commandID,
		StatusCode: statusCode,
		StatusData: data,
	}
	b, err := wire.Encode(msg)
	if err != nil {
		log.WithError(err).Error("aquarium-node: failed to encode status")
		return
	}
	if err := c.Send.SendRaw(n.Hub, b, sendpath.GateAny); err != nil {
		log.WithError(err).Warn("aquarium-node: failed to send status")
	}
}

// OnStatus is unused on the node side: a node sends Status, it doesn't
// receive it.
func (n *Node) OnStatus(c *core.Core, peer wire.PeerID, msg *wire.StatusMessage) {}

// OnHeartbeat is unused on the node side: a node sends Heartbeat, it
// doesn't receive it.
func (n *Node) OnHeartbeat(c *core.Core, peer wire.PeerID, msg *wire.HeartbeatMessage) {}

// Tick drives the node's periodic behavior: Announce re-broadcast while
// awaiting an ack, periodic Heartbeat once operational, and the
// supervisory timeout that trips FailSafe and enters LostConnection.
func (n *Node) Tick(c *core.Core, nowMs uint64) {
	switch n.state {
	case LifecycleUnmapped, LifecycleAwaitingAck:
		if nowMs-n.lastAnnounceMs >= uint64(c.Config.AnnounceRebroadcastMs) {
			n.sendAnnounce(c)
		}
		return
	case LifecycleLostConnection:
		if nowMs-n.lastAnnounceMs >= uint64(c.Config.AnnounceRebroadcastMs) {
			n.sendAnnounce(c)
		}
		return
	}

	if nowMs-n.lastHeartbeatMs >= uint64(c.Config.HeartbeatIntervalMs) {
		n.sendHeartbeat(c)
	}

	if nowMs-n.lastRxFromHubMs(c) >= uint64(c.Config.HeartbeatTimeoutMs) {
		n.state = LifecycleLostConnection
		if n.FailSafe != nil {
			n.FailSafe()
		}
		n.sendAnnounce(c)
	}
}

func (n *Node) lastRxFromHubMs(c *core.Core) uint64 {
	p, ok := c.Registry.Get(n.Hub)
	if !ok {
		return 0
	}
	return p.LastRxMs
}

func (n *Node) sendHeartbeat(c *core.Core) {
	msg := &wire.HeartbeatMessage{
		Header: wire.Header{
			Kind:        wire.KindHeartbeat,
			TankID:      n.tankID,
			NodeKind:    n.NodeKind,
			TimestampMs: uint32(c.NowMs()),
			Sequence:    c.Seq.Next(),
		},
		Health:        100,
		UptimeMinutes: uint16(c.NowMs() / 60000),
	}
	b, err := wire.Encode(msg)
	if err != nil {
		log.WithError(err).Error("aquarium-node: failed to encode heartbeat")
		return
	}
	if err := c.Send.SendRaw(n.Hub, b, sendpath.GateAny); err != nil {
		log.WithError(err).Warn("aquarium-node: failed to send heartbeat")
	}
	n.lastHeartbeatMs = c.NowMs()
}

func trimNulls(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}
