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

package wire

import "encoding/binary"

// HeaderSize is the fixed size of the common frame header in bytes.
const HeaderSize = 8

// Header is the common prefix of every frame on the wire.
type Header struct {
	Kind        Kind
	TankID      uint8
	NodeKind    NodeKind
	TimestampMs uint32
	Sequence    uint8
}

// unmarshalHeader decodes the fixed 8-byte header from b. Caller must
// ensure len(b) >= HeaderSize.
func unmarshalHeader(h *Header, b []byte) {
	h.Kind = Kind(b[0])
	h.TankID = b[1]
	h.NodeKind = NodeKind(b[2])
	h.TimestampMs = binary.LittleEndian.Uint32(b[3:7])
	h.Sequence = b[7]
}

// marshalHeaderTo encodes the header into b, returning HeaderSize. Caller
// must ensure len(b) >= HeaderSize.
func marshalHeaderTo(h *Header, b []byte) int {
	b[0] = byte(h.Kind)
	b[1] = h.TankID
	b[2] = byte(h.NodeKind)
	binary.LittleEndian.PutUint32(b[3:7], h.TimestampMs)
	b[7] = h.Sequence
	return HeaderSize
}
