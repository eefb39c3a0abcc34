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

import "errors"

// Decode error taxonomy. These are never surfaced to user callbacks; the
// core counts and drops malformed frames (spec §7, "Decode errors").
var (
	// ErrUnknownKind is returned when the kind discriminant is not one of
	// the six known frame kinds.
	ErrUnknownKind = errors.New("wire: unknown frame kind")
	// ErrLengthMismatch is returned when the byte slice length disagrees
	// with the fixed length required by the frame's kind.
	ErrLengthMismatch = errors.New("wire: length mismatch for kind")
	// ErrFieldOutOfRange is returned when a fixed-width field decodes to a
	// value outside its valid domain (e.g. health > 100, a non-boolean
	// final_fragment byte).
	ErrFieldOutOfRange = errors.New("wire: field out of range")
)
