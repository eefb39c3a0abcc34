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

package registry

import (
	"testing"

	"github.com/bghosh412/aquarium-core/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peerID(b byte) wire.PeerID { return wire.PeerID{b} }

func TestRegisterThenOnlineUntilSweepTimeout(t *testing.T) {
	r := New(32, 90000, 512)
	p := r.Register(peerID(1), wire.NodeKindLight, 1, 1000)
	assert.True(t, p.Online)

	offline := r.Sweep(1000 + 90000 - 1)
	assert.Empty(t, offline)
	assert.True(t, r.IsOnline(peerID(1)))

	offline = r.Sweep(1000 + 90000)
	require.Len(t, offline, 1)
	assert.Equal(t, peerID(1), offline[0])
	assert.False(t, r.IsOnline(peerID(1)))
}

func TestOnRxBringsPeerBackOnline(t *testing.T) {
	r := New(32, 90000, 512)
	r.Register(peerID(1), wire.NodeKindLight, 1, 0)
	r.Sweep(90000)
	assert.False(t, r.IsOnline(peerID(1)))

	wasOffline, found := r.OnRx(peerID(1), 95000)
	assert.True(t, found)
	assert.True(t, wasOffline)
	assert.True(t, r.IsOnline(peerID(1)))
}

func TestOnRxUnknownPeerNotFound(t *testing.T) {
	r := New(32, 90000, 512)
	_, found := r.OnRx(peerID(9), 0)
	assert.False(t, found)
}

func TestUnmappedLifecycleAndProvisioningMove(t *testing.T) {
	r := New(2, 90000, 512)
	e, created := r.UpsertUnmapped(peerID(1), wire.NodeKindLight, 1, 0xAA, 0)
	assert.True(t, created)
	assert.EqualValues(t, 1, e.AnnounceCount)

	e, created = r.UpsertUnmapped(peerID(1), wire.NodeKindLight, 1, 0xAA, 100)
	assert.False(t, created)
	assert.EqualValues(t, 2, e.AnnounceCount)

	_, ok := r.GetUnmapped(peerID(1))
	assert.True(t, ok)

	r.Register(peerID(1), wire.NodeKindLight, 5, 200)
	_, ok = r.GetUnmapped(peerID(1))
	assert.False(t, ok, "provisioning must remove the peer from the unmapped table")

	_, ok = r.Get(peerID(1))
	assert.True(t, ok)
}

func TestUnmappedTableEvictsOldestWhenFull(t *testing.T) {
	r := New(2, 90000, 512)
	r.UpsertUnmapped(peerID(1), wire.NodeKindLight, 0, 0, 0)
	r.UpsertUnmapped(peerID(2), wire.NodeKindLight, 0, 0, 1)
	r.UpsertUnmapped(peerID(3), wire.NodeKindLight, 0, 0, 2)

	_, ok := r.GetUnmapped(peerID(1))
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = r.GetUnmapped(peerID(2))
	assert.True(t, ok)
	_, ok = r.GetUnmapped(peerID(3))
	assert.True(t, ok)
	assert.Len(t, r.Unmapped(), 2)
}

func TestReassemblyTimeoutSweep(t *testing.T) {
	r := New(32, 90000, 512)
	p, _ := r.Get(peerID(1))
	assert.Nil(t, p)
	p = r.Register(peerID(1), wire.NodeKindLight, 1, 0)
	p.Reassembly.Feed(0, 1500, 1, 0, false, make([]byte, 32))

	timedOut := r.ReassemblyTimeoutSweep(1000, 1500)
	assert.Empty(t, timedOut)

	timedOut = r.ReassemblyTimeoutSweep(2000, 1500)
	require.Len(t, timedOut, 1)
	assert.Equal(t, peerID(1), timedOut[0])
	assert.False(t, p.Reassembly.Active())
}

func TestPeerAppearsInAtMostOneTable(t *testing.T) {
	r := New(32, 90000, 512)
	r.UpsertUnmapped(peerID(1), wire.NodeKindLight, 0, 0, 0)
	r.Register(peerID(1), wire.NodeKindLight, 1, 0)

	_, inUnmapped := r.GetUnmapped(peerID(1))
	_, inPeers := r.Get(peerID(1))
	assert.False(t, inUnmapped)
	assert.True(t, inPeers)
}
