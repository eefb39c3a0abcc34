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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"announce", &AnnounceMessage{
			Header:          Header{Kind: KindAnnounce, TankID: 0, NodeKind: NodeKindLight, TimestampMs: 1234, Sequence: 7},
			FirmwareVersion: 3,
			Capabilities:    0xAA,
		}},
		{"ack", &AckMessage{
			Header:  Header{Kind: KindAck, TankID: 1, NodeKind: NodeKindHub, TimestampMs: 555, Sequence: 1},
			AckCode: AckAcceptedKnown,
		}},
		{"config", &ConfigMessage{
			Header: Header{Kind: KindConfig, TankID: 1, Sequence: 2},
		}},
		{"command", &CommandMessage{
			Header:        Header{Kind: KindCommand, TankID: 1, Sequence: 9},
			CommandID:     42,
			FragmentSeq:   0,
			FinalFragment: true,
			Payload:       [32]byte{0x01, 0xFF, 0x80, 0x00},
		}},
		{"status", &StatusMessage{
			Header:     Header{Kind: KindStatus, TankID: 1},
			CommandID:  0,
			StatusCode: StatusOK,
		}},
		{"heartbeat", &HeartbeatMessage{
			Header:        Header{Kind: KindHeartbeat, TankID: 1},
			Health:        100,
			UptimeMinutes: 9001,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Encode(tc.msg)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(b), MTU)

			decoded, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, decoded)

			b2, err := Encode(decoded)
			require.NoError(t, err)
			assert.Equal(t, b, b2)
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	b := make([]byte, HeaderSize+1)
	b[0] = 99
	_, err := Decode(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestDecodeLengthMismatch(t *testing.T) {
	b := make([]byte, HeaderSize+18)
	b[0] = byte(KindAnnounce)
	_, err := Decode(b[:len(b)-1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestDecodeShortHeader(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestDecodeHeartbeatOutOfRange(t *testing.T) {
	b := make([]byte, frameLen(KindHeartbeat))
	b[0] = byte(KindHeartbeat)
	b[HeaderSize] = 101 // health > 100
	_, err := Decode(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFieldOutOfRange))
}

func TestDecodeCommandNonBooleanFinalFragment(t *testing.T) {
	b := make([]byte, frameLen(KindCommand))
	b[0] = byte(KindCommand)
	b[HeaderSize+2] = 5 // final_fragment byte must be 0 or 1
	_, err := Decode(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFieldOutOfRange))
}

func TestEncodeHeartbeatOutOfRange(t *testing.T) {
	m := &HeartbeatMessage{Header: Header{Kind: KindHeartbeat}, Health: 150}
	_, err := Encode(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFieldOutOfRange))
}

func TestDecodeArbitraryBytesNeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0x00},
		make([]byte, MTU),
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_, _ = Decode(in)
		})
	}
}

func TestFrameSizesWithinMTU(t *testing.T) {
	for _, k := range []Kind{KindAnnounce, KindAck, KindConfig, KindCommand, KindStatus, KindHeartbeat} {
		assert.LessOrEqual(t, frameLen(k), MTU, "kind %s", k)
	}
}
