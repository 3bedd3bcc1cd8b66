// Copyright 2024 SCION Association
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bits reads and writes bit fields inside 32 and 64 bit words.
//
// Offsets count from the most significant bit, i.e. bit 0 is the MSB of the
// word. This matches the bit numbering used in the SCION header diagrams, so
// that a field can be read off a diagram without any arithmetic:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|Version|  TrafficClass |                FlowID                 |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
//	flowID := bits.Read32(line, 12, 20)
//
// All offsets and widths are constants of the wire format. A field that does
// not fit into the word is a programming error and panics.
package bits

import "fmt"

type word interface {
	~uint32 | ~uint64
}

func field[W word](width, off, n uint) (uint, W) {
	if n == 0 || off+n > width {
		panic(fmt.Sprintf("bit field out of range: offset %d, width %d, word %d", off, n, width))
	}
	mask := ^W(0)
	if n < width {
		mask = W(1)<<n - 1
	}
	return width - off - n, mask
}

// Read32 returns the n bit field starting at bit off of w.
func Read32(w uint32, off, n uint) uint32 {
	shift, mask := field[uint32](32, off, n)
	return w >> shift & mask
}

// Write32 returns w with the n bit field starting at bit off set to v. Bits of
// v that do not fit into the field are discarded.
func Write32(w uint32, off, n uint, v uint32) uint32 {
	shift, mask := field[uint32](32, off, n)
	return w&^(mask<<shift) | (v&mask)<<shift
}

// Flag32 returns whether bit off of w is set.
func Flag32(w uint32, off uint) bool {
	return Read32(w, off, 1) == 1
}

// SetFlag32 returns w with bit off set to the value of flag.
func SetFlag32(w uint32, off uint, flag bool) uint32 {
	return Write32(w, off, 1, b2u[uint32](flag))
}

// Read64 returns the n bit field starting at bit off of w.
func Read64(w uint64, off, n uint) uint64 {
	shift, mask := field[uint64](64, off, n)
	return w >> shift & mask
}

// Write64 returns w with the n bit field starting at bit off set to v. Bits of
// v that do not fit into the field are discarded.
func Write64(w uint64, off, n uint, v uint64) uint64 {
	shift, mask := field[uint64](64, off, n)
	return w&^(mask<<shift) | (v&mask)<<shift
}

// Flag64 returns whether bit off of w is set.
func Flag64(w uint64, off uint) bool {
	return Read64(w, off, 1) == 1
}

// SetFlag64 returns w with bit off set to the value of flag.
func SetFlag64(w uint64, off uint, flag bool) uint64 {
	return Write64(w, off, 1, b2u[uint64](flag))
}

func b2u[W word](b bool) W {
	if b {
		return 1
	}
	return 0
}
