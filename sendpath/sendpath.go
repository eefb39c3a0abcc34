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

// Package sendpath implements the three layered send primitives: a thin
// gated wrapper over the radio, bounded exponential-backoff retry for
// important non-safety traffic, and fragmentation of oversize command
// payloads into ordered single-frame Command fragments.
package sendpath

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bghosh412/aquarium-core/stats"
	"github.com/bghosh412/aquarium-core/wire"
)

// Radio is the trait the messaging core consumes from the underlying link
// driver. Send must be synchronous and non-blocking, returning failure
// immediately if the driver rejects the frame.
type Radio interface {
	// Send transmits bytes to dest. dest may be wire.Broadcast.
	Send(dest wire.PeerID, bytes []byte) error
	// AddPeer registers mac with the driver's peer table, if the driver
	// requires one. Implementations that need no such table may no-op.
	AddPeer(mac wire.PeerID) error
	// RemovePeer reverses AddPeer.
	RemovePeer(mac wire.PeerID) error
}

// Gate controls whether SendRaw is allowed to reach the radio for a given
// peer.
type Gate int

// Gate values.
const (
	// GateAny sends regardless of the peer's known online state.
	GateAny Gate = iota
	// GateOnlineOnly refuses to send to a non-broadcast peer that is not
	// currently known online.
	GateOnlineOnly
)

// ErrPeerOffline is returned by SendRaw when gate is GateOnlineOnly and the
// peer is not online. It never triggers a retry.
var ErrPeerOffline = errors.New("sendpath: peer offline")

// ErrPayloadTooLarge is returned by SendFragmented when the payload exceeds
// the configured maximum message size.
var ErrPayloadTooLarge = errors.New("sendpath: payload too large")

// FragmentAbortedError reports that a fragmented send failed partway
// through, aborting the whole logical message. Index is the fragment_seq
// that failed to send.
type FragmentAbortedError struct {
	Index int
	Err   error
}

func (e *FragmentAbortedError) Error() string {
	return fmt.Sprintf("sendpath: fragment %d aborted: %v", e.Index, e.Err)
}

func (e *FragmentAbortedError) Unwrap() error { return e.Err }

// Sequencer hands out the per-sender wrapping frame sequence number used
// in the common header. It is safe for single-threaded use on the
// normal-context send path.
type Sequencer struct {
	next uint8
}

// Next returns the next sequence number and advances the counter, wrapping
// from 255 back to 0.
func (s *Sequencer) Next() uint8 {
	v := s.next
	s.next++
	return v
}

// SendPath bundles the radio, the online-gate predicate, and the
// statistics counters shared by all three send primitives.
type SendPath struct {
	Radio           Radio
	IsOnline        func(wire.PeerID) bool
	Stats           *stats.Stats
	RetryBaseDelay  time.Duration
	FragmentGapWait time.Duration
	// Sleep is injectable so tests can run retry/fragment timing
	// instantly; it defaults to time.Sleep in New.
	Sleep func(time.Duration)

	mu        sync.Mutex
	peerLocks map[wire.PeerID]*sync.Mutex
}

// New constructs a SendPath with the given collaborators and the default
// timing parameters (overridable on the returned value before first use).
func New(radio Radio, isOnline func(wire.PeerID) bool, st *stats.Stats) *SendPath {
	return &SendPath{
		Radio:           radio,
		IsOnline:        isOnline,
		Stats:           st,
		RetryBaseDelay:  100 * time.Millisecond,
		FragmentGapWait: 10 * time.Millisecond,
		Sleep:           time.Sleep,
		peerLocks:       make(map[wire.PeerID]*sync.Mutex),
	}
}

func (s *SendPath) peerLock(peer wire.PeerID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.peerLocks[peer]
	if !ok {
		l = &sync.Mutex{}
		s.peerLocks[peer] = l
	}
	return l
}

// SendRaw is a thin wrapper over the radio. If gate is GateOnlineOnly and
// the peer is not online, SendRaw returns ErrPeerOffline without touching
// the radio; the broadcast address is never gated.
func (s *SendPath) SendRaw(peer wire.PeerID, b []byte, gate Gate) error {
	if gate == GateOnlineOnly && peer != wire.Broadcast && !s.IsOnline(peer) {
		return ErrPeerOffline
	}
	if err := s.Radio.Send(peer, b); err != nil {
		s.Stats.IncSendFailures()
		return fmt.Errorf("sendpath: radio send: %w", err)
	}
	s.Stats.IncSent()
	return nil
}

// SendWithRetry invokes SendRaw with GateAny, retrying up to maxRetries
// additional times on failure with exponential backoff
// (RetryBaseDelay * 2^attempt) between attempts. It returns as soon as one
// attempt succeeds, and invokes the radio at most maxRetries+1 times.
func (s *SendPath) SendWithRetry(peer wire.PeerID, b []byte, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = s.SendRaw(peer, b, GateAny)
		if lastErr == nil {
			return nil
		}
		if attempt < maxRetries {
			s.Stats.IncRetries()
			delay := s.RetryBaseDelay * time.Duration(uint64(1)<<uint(attempt))
			s.Sleep(delay)
		}
	}
	return lastErr
}

// SendFragmented splits payload into ceil(len(payload)/32) Command
// fragments (minimum 1) sharing commandID, and sends them in order via
// SendRaw with the given gate. header is used as a template: TankID,
// NodeKind and TimestampMs are copied verbatim into every fragment, while
// Sequence is drawn from seq for each individual frame. If any fragment
// fails to send, the logical send is aborted immediately and the
// remaining fragments are never sent, returning a *FragmentAbortedError.
//
// Fragments for one commandID to one peer are never interleaved with
// fragments of another: SendFragmented serializes per-peer via an internal
// busy lock, so concurrent callers targeting the same peer queue up.
func (s *SendPath) SendFragmented(peer wire.PeerID, header wire.Header, seq *Sequencer, maxMessageBytes int, commandID uint8, payload []byte, gate Gate) error {
	if len(payload) > maxMessageBytes {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), maxMessageBytes)
	}

	lock := s.peerLock(peer)
	lock.Lock()
	defer lock.Unlock()

	n := (len(payload) + wire.CommandPayloadWindow - 1) / wire.CommandPayloadWindow
	if n == 0 {
		n = 1
	}

	for i := 0; i < n; i++ {
		var window [32]byte
		start := i * wire.CommandPayloadWindow
		end := start + wire.CommandPayloadWindow
		if start < len(payload) {
			if end > len(payload) {
				end = len(payload)
			}
			copy(window[:], payload[start:end])
		}

		h := header
		h.Kind = wire.KindCommand
		h.Sequence = seq.Next()
		msg := &wire.CommandMessage{
			Header:        h,
			CommandID:     commandID,
			FragmentSeq:   uint8(i),
			FinalFragment: i == n-1,
			Payload:       window,
		}
		b, err := wire.Encode(msg)
		if err != nil {
			return &FragmentAbortedError{Index: i, Err: err}
		}
		if err := s.SendRaw(peer, b, gate); err != nil {
			return &FragmentAbortedError{Index: i, Err: err}
		}
		s.Stats.IncFragmentsSent()

		if i < n-1 {
			s.Sleep(s.FragmentGapWait)
		}
	}
	return nil
}
