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

package core

import "github.com/bghosh412/aquarium-core/wire"

// Role is implemented by the two thin profiles over the lower layers: the
// hub role and the node role (spec §4.7). Core dispatches every decoded,
// deduplicated, reassembled frame to the active Role; Role implementations
// use the Core they're given to read/update registry state and to send.
type Role interface {
	OnAnnounce(c *Core, peer wire.PeerID, msg *wire.AnnounceMessage)
	OnAck(c *Core, peer wire.PeerID, msg *wire.AckMessage)
	OnConfig(c *Core, peer wire.PeerID, msg *wire.ConfigMessage)
	OnCommand(c *Core, peer wire.PeerID, commandID uint8, payload []byte)
	OnStatus(c *Core, peer wire.PeerID, msg *wire.StatusMessage)
	OnHeartbeat(c *Core, peer wire.PeerID, msg *wire.HeartbeatMessage)
	// Tick is invoked once per Core.Tick, after the registry/reassembly
	// sweeps, so the role can drive its own periodic behavior (announce
	// rebroadcast, heartbeat emission, supervisory timeout checks).
	Tick(c *Core, nowMs uint64)
}

// Callbacks are the semantic events and pass-through notifications
// delivered upward to the embedding application (spec §6, "Callbacks").
// Every field is optional; Core checks for nil before calling.
type Callbacks struct {
	OnAnnounce          func(peer wire.PeerID, msg *wire.AnnounceMessage)
	OnAck               func(peer wire.PeerID, msg *wire.AckMessage)
	OnConfig             func(peer wire.PeerID, msg *wire.ConfigMessage)
	OnCommand           func(peer wire.PeerID, commandID uint8, payload []byte)
	OnStatus            func(peer wire.PeerID, msg *wire.StatusMessage)
	OnHeartbeat         func(peer wire.PeerID, msg *wire.HeartbeatMessage)
	OnPeerOnline        func(peer wire.PeerID)
	OnPeerOffline       func(peer wire.PeerID)
	OnUnmappedDiscovered func(entry UnmappedEntryView)
}

// UnmappedEntryView mirrors registry.UnmappedEntry; Core re-exports it so
// callers don't need to import the registry package just to read a
// callback argument.
type UnmappedEntryView struct {
	Addr            wire.PeerID
	NodeKind        wire.NodeKind
	FirmwareVersion uint8
	Capabilities    uint8
	FirstSeenMs     uint64
	LastSeenMs      uint64
	AnnounceCount   uint32
}
