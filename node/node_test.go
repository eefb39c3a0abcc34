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

package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bghosh412/aquarium-core/config"
	"github.com/bghosh412/aquarium-core/core"
	"github.com/bghosh412/aquarium-core/wire"
)

var hubAddr = wire.PeerID{0, 0, 0, 0, 0, 1}

func newTestNodeCore(t *testing.T, radio *mockRadio, n *Node) *core.Core {
	t.Helper()
	c, err := core.New(n, config.Default(), radio, core.Callbacks{})
	require.NoError(t, err)
	return c
}

func TestStartSendsAnnounceAndEntersAwaitingAck(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := newMockRadio(ctrl)
	radio.EXPECT().Send(hubAddr, gomock.Any()).DoAndReturn(func(_ wire.PeerID, b []byte) error {
		msg, err := wire.Decode(b)
		require.NoError(t, err)
		_, ok := msg.(*wire.AnnounceMessage)
		assert.True(t, ok)
		return nil
	})

	n := &Node{NodeKind: wire.NodeKindLight, Hub: hubAddr}
	c := newTestNodeCore(t, radio, n)
	c.Tick(0)
	n.Start(c)

	assert.Equal(t, LifecycleAwaitingAck, n.State())
}

func TestOnAckPendingFallsBackToUnmapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := newMockRadio(ctrl)
	radio.EXPECT().Send(hubAddr, gomock.Any()).Return(nil)

	n := &Node{NodeKind: wire.NodeKindLight, Hub: hubAddr}
	c := newTestNodeCore(t, radio, n)
	c.Tick(0)
	n.Start(c)

	n.OnAck(c, hubAddr, &wire.AckMessage{AckCode: wire.AckAcceptedPending})
	assert.Equal(t, LifecycleUnmapped, n.State())
}

func TestOnAckKnownGoesOperational(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := newMockRadio(ctrl)
	radio.EXPECT().Send(hubAddr, gomock.Any()).Return(nil)

	n := &Node{NodeKind: wire.NodeKindLight, Hub: hubAddr}
	c := newTestNodeCore(t, radio, n)
	c.Tick(0)
	n.Start(c)

	n.OnAck(c, hubAddr, &wire.AckMessage{AckCode: wire.AckAcceptedKnown})
	assert.Equal(t, LifecycleOperational, n.State())
}

type fakePersist struct {
	tankID     uint8
	deviceName string
	err        error
}

func (f *fakePersist) SaveAssignment(tankID uint8, deviceName string) error {
	f.tankID = tankID
	f.deviceName = deviceName
	return f.err
}

func TestOnConfigPersistsAndRepliesStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := newMockRadio(ctrl)
	radio.EXPECT().Send(hubAddr, gomock.Any()).Return(nil) // initial announce
	radio.EXPECT().Send(hubAddr, gomock.Any()).DoAndReturn(func(_ wire.PeerID, b []byte) error {
		msg, err := wire.Decode(b)
		require.NoError(t, err)
		status, ok := msg.(*wire.StatusMessage)
		require.True(t, ok)
		assert.Equal(t, wire.StatusOK, status.StatusCode)
		return nil
	})

	persist := &fakePersist{}
	n := &Node{NodeKind: wire.NodeKindLight, Hub: hubAddr, Persist: persist}
	c := newTestNodeCore(t, radio, n)
	c.Tick(0)
	n.Start(c)

	var name [16]byte
	copy(name[:], "tank-1")
	n.OnConfig(c, hubAddr, &wire.ConfigMessage{
		Header:     wire.Header{Kind: wire.KindConfig, TankID: 7},
		DeviceName: name,
	})

	assert.Equal(t, LifecycleOperational, n.State())
	assert.Equal(t, uint8(7), persist.tankID)
	assert.Equal(t, "tank-1", persist.deviceName)
}

func TestOnCommandInvokesHandlerAndReplies(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := newMockRadio(ctrl)
	radio.EXPECT().Send(hubAddr, gomock.Any()).Return(nil) // initial announce
	radio.EXPECT().Send(hubAddr, gomock.Any()).DoAndReturn(func(_ wire.PeerID, b []byte) error {
		msg, err := wire.Decode(b)
		require.NoError(t, err)
		status, ok := msg.(*wire.StatusMessage)
		require.True(t, ok)
		assert.Equal(t, uint8(3), status.CommandID)
		assert.Equal(t, wire.StatusOK, status.StatusCode)
		return nil
	})

	var handlerCalled bool
	n := &Node{
		NodeKind: wire.NodeKindLight,
		Hub:      hubAddr,
		OnCommand: func(commandID uint8, payload []byte) (uint8, [32]byte) {
			handlerCalled = true
			assert.Equal(t, uint8(3), commandID)
			return wire.StatusOK, [32]byte{}
		},
	}
	c := newTestNodeCore(t, radio, n)
	c.Tick(0)
	n.Start(c)

	n.OnCommand(c, hubAddr, 3, []byte("on"))
	assert.True(t, handlerCalled)
}

func TestSupervisoryTimeoutTripsFailSafe(t *testing.T) {
	ctrl := gomock.NewController(t)
	radio := newMockRadio(ctrl)
	// initial announce, plus at least one re-announce once LostConnection
	// trips on the tick below.
	radio.EXPECT().Send(hubAddr, gomock.Any()).Return(nil).AnyTimes()

	var failSafeCalled bool
	n := &Node{
		NodeKind: wire.NodeKindLight,
		Hub:      hubAddr,
		FailSafe: func() { failSafeCalled = true },
	}
	c := newTestNodeCore(t, radio, n)
	c.Tick(0)
	n.Start(c)
	n.OnAck(c, hubAddr, &wire.AckMessage{AckCode: wire.AckAcceptedKnown})
	require.Equal(t, LifecycleOperational, n.State())

	// Simulate one frame actually heard from the hub, at ms=1000: the
	// supervisory timeout counts from the last frame heard from the hub.
	c.Registry.OnRx(hubAddr, 1000)

	c.Tick(1000 + uint64(c.Config.HeartbeatTimeoutMs) + 1)

	assert.True(t, failSafeCalled)
	assert.Equal(t, LifecycleLostConnection, n.State())
}
