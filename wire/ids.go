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

// Package wire implements the on-wire framing for the aquarium messaging
// core: a fixed-layout, little-endian codec for the six frame kinds
// exchanged between a hub and its nodes over a 250-byte-MTU datagram link.
package wire

import "fmt"

// MTU is the maximum frame size accepted by the underlying link.
const MTU = 250

// PeerID is an opaque 6-byte link-layer address.
type PeerID [6]byte

// Broadcast is the distinguished address reserved for discovery.
var Broadcast = PeerID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// String renders a PeerID as colon-separated hex, the way MAC-like
// addresses are usually printed.
func (p PeerID) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", p[0], p[1], p[2], p[3], p[4], p[5])
}

// Less gives PeerID a total order, used for deterministic iteration.
func (p PeerID) Less(o PeerID) bool {
	for i := range p {
		if p[i] != o[i] {
			return p[i] < o[i]
		}
	}
	return false
}

// Kind discriminates the frame payloads defined in the wire format.
type Kind uint8

// Frame kind discriminants, per the wire format table.
const (
	KindAnnounce  Kind = 1
	KindAck       Kind = 2
	KindConfig    Kind = 3
	KindCommand   Kind = 4
	KindStatus    Kind = 5
	KindHeartbeat Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindAnnounce:
		return "Announce"
	case KindAck:
		return "Ack"
	case KindConfig:
		return "Config"
	case KindCommand:
		return "Command"
	case KindStatus:
		return "Status"
	case KindHeartbeat:
		return "Heartbeat"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// NodeKind discriminates device categories. The core treats these as an
// opaque tag; device-specific behavior lives outside the messaging core.
type NodeKind uint8

// Device category discriminants.
const (
	NodeKindUnknown  NodeKind = 0
	NodeKindHub      NodeKind = 1
	NodeKindLight    NodeKind = 2
	NodeKindCO2      NodeKind = 3
	NodeKindDoser    NodeKind = 4
	NodeKindSensor   NodeKind = 5
	NodeKindHeater   NodeKind = 6
	NodeKindFilter   NodeKind = 7
	NodeKindFeeder   NodeKind = 8
	NodeKindRepeater NodeKind = 9
)

// AckCode values carried in an Ack frame.
const (
	AckAcceptedPending uint8 = 0
	AckAcceptedKnown   uint8 = 1
	AckRejected        uint8 = 2
)

// StatusCode values carried in a Status frame.
const (
	StatusOK    uint8 = 0
	StatusError uint8 = 1
)

// CommandPayloadWindow is the per-fragment payload size carried by a
// Command frame.
const CommandPayloadWindow = 32
