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

import (
	"encoding/binary"
	"fmt"
)

// Message is implemented by every decoded frame. MessageKind lets callers
// switch on the concrete type without a type assertion when only the
// discriminant is needed.
type Message interface {
	MessageHeader() Header
	MessageKind() Kind
}

// frameLen returns the total on-wire length for a given kind, or 0 for an
// unknown kind.
func frameLen(k Kind) int {
	switch k {
	case KindAnnounce:
		return HeaderSize + 18
	case KindAck:
		return HeaderSize + 9
	case KindConfig:
		return HeaderSize + 48
	case KindCommand:
		return HeaderSize + 35
	case KindStatus:
		return HeaderSize + 34
	case KindHeartbeat:
		return HeaderSize + 3
	default:
		return 0
	}
}

// AnnounceMessage is emitted by a node on boot and periodically while
// awaiting an Ack. Never fragmented.
type AnnounceMessage struct {
	Header
	FirmwareVersion uint8
	Capabilities    uint8
	Reserved        [16]byte
}

// MessageHeader implements Message.
func (m *AnnounceMessage) MessageHeader() Header { return m.Header }

// MessageKind implements Message.
func (m *AnnounceMessage) MessageKind() Kind { return KindAnnounce }

// AckMessage is the hub's reply to an Announce. Never fragmented.
type AckMessage struct {
	Header
	AckCode  uint8
	Reserved [8]byte
}

// MessageHeader implements Message.
func (m *AckMessage) MessageHeader() Header { return m.Header }

// MessageKind implements Message.
func (m *AckMessage) MessageKind() Kind { return KindAck }

// ConfigMessage binds a node to a tank and delivers its display name.
// Single-frame; Header.TankID carries the assignment.
type ConfigMessage struct {
	Header
	DeviceName [16]byte
	ConfigData [32]byte
}

// MessageHeader implements Message.
func (m *ConfigMessage) MessageHeader() Header { return m.Header }

// MessageKind implements Message.
func (m *ConfigMessage) MessageKind() Kind { return KindConfig }

// CommandMessage carries one fragment (possibly the only one) of a logical
// command. See the reassembly package for how a sequence of these is
// reassembled.
type CommandMessage struct {
	Header
	CommandID     uint8
	FragmentSeq   uint8
	FinalFragment bool
	Payload       [32]byte
}

// MessageHeader implements Message.
func (m *CommandMessage) MessageHeader() Header { return m.Header }

// MessageKind implements Message.
func (m *CommandMessage) MessageKind() Kind { return KindCommand }

// StatusMessage reports command completion or unsolicited telemetry
// (CommandID == 0). Never fragmented.
type StatusMessage struct {
	Header
	CommandID  uint8
	StatusCode uint8
	StatusData [32]byte
}

// MessageHeader implements Message.
func (m *StatusMessage) MessageHeader() Header { return m.Header }

// MessageKind implements Message.
func (m *StatusMessage) MessageKind() Kind { return KindStatus }

// HeartbeatMessage is the periodic liveness frame from node to hub. Never
// fragmented.
type HeartbeatMessage struct {
	Header
	Health        uint8
	UptimeMinutes uint16
}

// MessageHeader implements Message.
func (m *HeartbeatMessage) MessageHeader() Header { return m.Header }

// MessageKind implements Message.
func (m *HeartbeatMessage) MessageKind() Kind { return KindHeartbeat }

// Encode produces the fixed-length byte encoding for msg. The returned
// slice length is determined solely by msg's kind.
func Encode(msg Message) ([]byte, error) {
	h := msg.MessageHeader()
	n := frameLen(h.Kind)
	if n == 0 {
		return nil, fmt.Errorf("wire: encode: %w: %d", ErrUnknownKind, uint8(h.Kind))
	}
	b := make([]byte, n)
	marshalHeaderTo(&h, b)
	body := b[HeaderSize:]

	switch m := msg.(type) {
	case *AnnounceMessage:
		body[0] = m.FirmwareVersion
		body[1] = m.Capabilities
		copy(body[2:18], m.Reserved[:])
	case *AckMessage:
		body[0] = m.AckCode
		copy(body[1:9], m.Reserved[:])
	case *ConfigMessage:
		copy(body[0:16], m.DeviceName[:])
		copy(body[16:48], m.ConfigData[:])
	case *CommandMessage:
		body[0] = m.CommandID
		body[1] = m.FragmentSeq
		if m.FinalFragment {
			body[2] = 1
		}
		copy(body[3:35], m.Payload[:])
	case *StatusMessage:
		body[0] = m.CommandID
		body[1] = m.StatusCode
		copy(body[2:34], m.StatusData[:])
	case *HeartbeatMessage:
		if m.Health > 100 {
			return nil, fmt.Errorf("wire: encode heartbeat: %w: health=%d", ErrFieldOutOfRange, m.Health)
		}
		body[0] = m.Health
		binary.LittleEndian.PutUint16(body[1:3], m.UptimeMinutes)
	default:
		return nil, fmt.Errorf("wire: encode: %w: unsupported message type", ErrUnknownKind)
	}
	if len(b) > MTU {
		return nil, fmt.Errorf("wire: encoded frame exceeds MTU: %d > %d", len(b), MTU)
	}
	return b, nil
}

// Decode parses b into a concrete Message. Every fixed-width field is
// validated: b must carry a known kind and the length required by that
// kind exactly; out-of-range fields (health > 100, a non-boolean
// final_fragment byte) are rejected. tank_id, sequence and timestamp_ms
// pass through uninterpreted.
func Decode(b []byte) (Message, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("wire: decode: %w: need %d header bytes, got %d", ErrLengthMismatch, HeaderSize, len(b))
	}
	var h Header
	unmarshalHeader(&h, b)

	want := frameLen(h.Kind)
	if want == 0 {
		return nil, fmt.Errorf("wire: decode: %w: %d", ErrUnknownKind, b[0])
	}
	if len(b) != want {
		return nil, fmt.Errorf("wire: decode: %w: kind %s wants %d bytes, got %d", ErrLengthMismatch, h.Kind, want, len(b))
	}
	body := b[HeaderSize:]

	switch h.Kind {
	case KindAnnounce:
		m := &AnnounceMessage{Header: h}
		m.FirmwareVersion = body[0]
		m.Capabilities = body[1]
		copy(m.Reserved[:], body[2:18])
		return m, nil
	case KindAck:
		m := &AckMessage{Header: h}
		m.AckCode = body[0]
		copy(m.Reserved[:], body[1:9])
		return m, nil
	case KindConfig:
		m := &ConfigMessage{Header: h}
		copy(m.DeviceName[:], body[0:16])
		copy(m.ConfigData[:], body[16:48])
		return m, nil
	case KindCommand:
		finalByte := body[2]
		if finalByte != 0 && finalByte != 1 {
			return nil, fmt.Errorf("wire: decode command: %w: final_fragment=%d", ErrFieldOutOfRange, finalByte)
		}
		m := &CommandMessage{Header: h}
		m.CommandID = body[0]
		m.FragmentSeq = body[1]
		m.FinalFragment = finalByte == 1
		copy(m.Payload[:], body[3:35])
		return m, nil
	case KindStatus:
		m := &StatusMessage{Header: h}
		m.CommandID = body[0]
		m.StatusCode = body[1]
		copy(m.StatusData[:], body[2:34])
		return m, nil
	case KindHeartbeat:
		health := body[0]
		if health > 100 {
			return nil, fmt.Errorf("wire: decode heartbeat: %w: health=%d", ErrFieldOutOfRange, health)
		}
		m := &HeartbeatMessage{Header: h}
		m.Health = health
		m.UptimeMinutes = binary.LittleEndian.Uint16(body[1:3])
		return m, nil
	default:
		return nil, fmt.Errorf("wire: decode: %w: %d", ErrUnknownKind, uint8(h.Kind))
	}
}
