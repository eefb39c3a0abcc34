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

// Package reassembly turns an ordered sequence of single-frame Command
// fragments into one logical message. Each peer owns exactly one
// reassembly Slot; there is never more than one in-flight logical command
// per peer.
package reassembly

// Result describes the outcome of feeding one fragment to a Slot.
type Result int

// Possible outcomes of Slot.Feed.
const (
	// ResultInProgress means the fragment was accepted and the logical
	// message is not yet complete.
	ResultInProgress Result = iota
	// ResultCompleted means the final fragment was accepted; the
	// reassembled buffer is returned alongside this result.
	ResultCompleted
	// ResultDroppedError means an out-of-order fragment reset the slot, or
	// an oversized buffer was rejected. A fragment-0 arriving mid-reassembly
	// also resets the old message, but that loss surfaces through
	// DrainReplaced, not this result — the result instead reflects the new
	// fragment the slot restarted with.
	ResultDroppedError
	// ResultDroppedTimeout means the active slot exceeded its hard
	// deadline before the fragment arrived, and was reset.
	ResultDroppedTimeout
	// ResultIgnored means a continuation fragment (fragment_seq > 0)
	// arrived with no active message; there is nothing to append it to.
	ResultIgnored
)

// Slot is the per-peer reassembly state. Its buffer is allocated once at
// construction and reused for every logical command that peer sends; Feed
// never allocates.
type Slot struct {
	active          bool
	commandID       uint8
	expectedNextSeq uint8
	startedMs       uint64
	buffer          []byte
	maxBytes        int
	replaced        uint64
}

// NewSlot creates a Slot whose reassembly buffer can hold up to maxBytes.
func NewSlot(maxBytes int) *Slot {
	return &Slot{
		buffer:   make([]byte, 0, maxBytes),
		maxBytes: maxBytes,
	}
}

// Active reports whether a logical command is currently being assembled.
func (s *Slot) Active() bool { return s.active }

// CommandID returns the command_id of the in-progress message, if Active.
func (s *Slot) CommandID() uint8 { return s.commandID }

// DrainReplaced returns the number of times a fresh fragment-0 has cut a
// mid-reassembly message short since the last call, and resets the count to
// zero. The caller's Feed return value governs delivery of the *new*
// message; this is the side channel for counting the *old*, discarded one,
// since a single Feed call can both lose one message and complete another.
func (s *Slot) DrainReplaced() uint64 {
	n := s.replaced
	s.replaced = 0
	return n
}

func (s *Slot) reset() {
	s.active = false
	s.commandID = 0
	s.expectedNextSeq = 0
	s.startedMs = 0
	s.buffer = s.buffer[:0]
}

// CheckTimeout resets the slot if it has been active for more than
// timeoutMs as of now, without requiring a new fragment to arrive. Callers
// invoke this from the periodic tick to enforce the hard deadline even
// when the sender has gone silent. Returns true if a timeout occurred.
func (s *Slot) CheckTimeout(nowMs, timeoutMs uint64) bool {
	if !s.active {
		return false
	}
	if nowMs-s.startedMs <= timeoutMs {
		return false
	}
	s.reset()
	return true
}

// Feed applies one Command fragment to the slot. fragmentSeq and
// finalFragment and payload come directly off the decoded CommandMessage.
// On ResultCompleted, the returned slice aliases the slot's internal
// buffer and must not be retained past the caller's use of it — the next
// Feed call will overwrite it.
func (s *Slot) Feed(nowMs, timeoutMs uint64, commandID, fragmentSeq uint8, finalFragment bool, payload []byte) (Result, []byte) {
	if s.active && nowMs-s.startedMs > timeoutMs {
		s.reset()
		if fragmentSeq != 0 {
			return ResultDroppedTimeout, nil
		}
		// Fall through: the timed-out slot is gone, and this fragment
		// starts a fresh message below.
	}

	if !s.active {
		if fragmentSeq != 0 {
			return ResultIgnored, nil
		}
		s.startSlot(nowMs, commandID)
		return s.appendFragment(fragmentSeq, finalFragment, payload)
	}

	if fragmentSeq == 0 {
		// A new fragment-0 while Reassembling replaces the slot: the old,
		// in-flight message is lost (counted via replaced, not the return
		// value below), and this fragment starts a fresh one. That fresh
		// one may itself be a complete single-frame command, in which case
		// it must still be delivered — it is unrelated to whatever it
		// displaced.
		s.reset()
		s.replaced++
		s.startSlot(nowMs, commandID)
		return s.appendFragment(fragmentSeq, finalFragment, payload)
	}

	if fragmentSeq != s.expectedNextSeq {
		s.reset()
		return ResultDroppedError, nil
	}

	return s.appendFragment(fragmentSeq, finalFragment, payload)
}

func (s *Slot) startSlot(nowMs uint64, commandID uint8) {
	s.active = true
	s.commandID = commandID
	s.expectedNextSeq = 0
	s.startedMs = nowMs
	s.buffer = s.buffer[:0]
}

func (s *Slot) appendFragment(fragmentSeq uint8, finalFragment bool, payload []byte) (Result, []byte) {
	if len(s.buffer)+len(payload) > s.maxBytes {
		s.reset()
		return ResultDroppedError, nil
	}
	s.buffer = append(s.buffer, payload...)
	s.expectedNextSeq = fragmentSeq + 1
	if finalFragment {
		out := s.buffer
		s.reset()
		return ResultCompleted, out
	}
	return ResultInProgress, nil
}
