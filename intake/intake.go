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

// Package intake implements the bridge between the radio's receive upcall
// (a restricted context where the core must not allocate or block) and the
// normal-context drain loop that does the real decoding and dispatch.
package intake

import (
	"sync/atomic"

	"github.com/bghosh412/aquarium-core/wire"
)

// RxSlot is one queued datagram: the sender and the raw bytes as received.
// Len records how much of Buf is valid; Buf is always wire.MTU bytes so
// Queue never allocates per-datagram.
type RxSlot struct {
	Peer wire.PeerID
	Len  uint16
	Buf  [wire.MTU]byte
}

// Queue is a fixed-capacity single-producer/single-consumer ring buffer.
// Push is called from the radio upcall context; DrainOne is called from
// normal context. The two sides only ever touch disjoint slot indices at
// any instant, synchronized by the atomic head/tail counters, so no lock is
// needed on the hot path.
type Queue struct {
	slots []RxSlot
	cap   uint32
	head  uint32 // next slot to write (producer-owned)
	tail  uint32 // next slot to read (consumer-owned)

	dropped atomic.Int64
}

// NewQueue creates a queue with room for capacity datagrams. capacity must
// be at least 10 per the link-layer contract; this is checked by the
// caller at core construction time, not here.
func NewQueue(capacity int) *Queue {
	return &Queue{
		slots: make([]RxSlot, capacity),
		cap:   uint32(capacity),
	}
}

// Push copies peer and b into the next free slot and makes it visible to
// DrainOne. It never allocates and never blocks. If the queue is full, the
// incoming datagram is dropped (not the oldest) and DroppedOnIntake is
// incremented.
//
// Push must only ever be called from a single upcall context; it is not
// safe for concurrent producers.
func (q *Queue) Push(peer wire.PeerID, b []byte) bool {
	head := atomic.LoadUint32(&q.head)
	tail := atomic.LoadUint32(&q.tail)
	if head-tail >= q.cap {
		q.dropped.Add(1)
		return false
	}
	slot := &q.slots[head%q.cap]
	slot.Peer = peer
	slot.Len = uint16(copy(slot.Buf[:], b))
	atomic.StoreUint32(&q.head, head+1)
	return true
}

// DrainOne pops the oldest queued slot, if any. It must only ever be
// called from a single normal-context drain loop; it is not safe for
// concurrent consumers.
func (q *Queue) DrainOne() (RxSlot, bool) {
	tail := atomic.LoadUint32(&q.tail)
	head := atomic.LoadUint32(&q.head)
	if tail == head {
		return RxSlot{}, false
	}
	slot := q.slots[tail%q.cap]
	atomic.StoreUint32(&q.tail, tail+1)
	return slot, true
}

// DroppedOnIntake returns the number of datagrams dropped for lack of
// queue space since construction.
func (q *Queue) DroppedOnIntake() int64 {
	return q.dropped.Load()
}

// Len reports the number of slots currently queued for drain.
func (q *Queue) Len() int {
	head := atomic.LoadUint32(&q.head)
	tail := atomic.LoadUint32(&q.tail)
	return int(head - tail)
}
