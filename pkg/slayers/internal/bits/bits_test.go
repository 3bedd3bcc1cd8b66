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

package bits_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scionproto/scion-client/pkg/slayers/internal/bits"
)

func TestRead32(t *testing.T) {
	// Version 0, TrafficClass 0xb8, FlowID 0x00001.
	line := uint32(0x0b800001)
	assert.Equal(t, uint32(0), bits.Read32(line, 0, 4))
	assert.Equal(t, uint32(0xb8), bits.Read32(line, 4, 8))
	assert.Equal(t, uint32(1), bits.Read32(line, 12, 20))
	assert.Equal(t, line, bits.Read32(line, 0, 32))
	assert.True(t, bits.Flag32(line, 31))
	assert.False(t, bits.Flag32(line, 30))
}

func TestWrite32(t *testing.T) {
	var line uint32
	line = bits.Write32(line, 4, 8, 0xb8)
	line = bits.Write32(line, 12, 20, 1)
	assert.Equal(t, uint32(0x0b800001), line)

	// Overwriting a field clears its previous value only.
	line = bits.Write32(line, 4, 8, 0x01)
	assert.Equal(t, uint32(0x00100001), line)

	// Excess bits of the value are dropped.
	assert.Equal(t, uint32(0xf0000000), bits.Write32(0, 0, 4, 0xff))

	assert.Equal(t, uint32(0x80000000), bits.SetFlag32(0, 0, true))
	assert.Equal(t, uint32(0x7fffffff), bits.SetFlag32(0xffffffff, 0, false))
}

func TestReadWrite64(t *testing.T) {
	// The SCION path meta header packs 2, 6, 6, 6, 6, 6 bits in 32 bits, the
	// hop field packs flags, expiry and interfaces in its first 64 bits.
	var w uint64
	w = bits.SetFlag64(w, 6, true)
	w = bits.SetFlag64(w, 7, true)
	w = bits.Write64(w, 8, 8, 63)
	w = bits.Write64(w, 16, 16, 1)
	w = bits.Write64(w, 32, 16, 2)
	w = bits.Write64(w, 48, 16, 0xbeef)
	assert.Equal(t, uint64(0x033f00010002beef), w)

	assert.True(t, bits.Flag64(w, 6))
	assert.True(t, bits.Flag64(w, 7))
	assert.Equal(t, uint64(63), bits.Read64(w, 8, 8))
	assert.Equal(t, uint64(1), bits.Read64(w, 16, 16))
	assert.Equal(t, uint64(2), bits.Read64(w, 32, 16))
	assert.Equal(t, uint64(0xbeef), bits.Read64(w, 48, 16))
	assert.Equal(t, w, bits.Read64(w, 0, 64))
	assert.Equal(t, uint64(0), bits.Write64(w, 0, 64, 0))
}

func TestRoundTrip(t *testing.T) {
	for off := uint(0); off < 32; off++ {
		for n := uint(1); off+n <= 32; n++ {
			v := uint32(0xa5a5a5a5) & (uint32(1)<<(n%32) - 1)
			if n == 32 {
				v = 0xa5a5a5a5
			}
			w := bits.Write32(0xffffffff, off, n, v)
			assert.Equal(t, v, bits.Read32(w, off, n), "off=%d n=%d", off, n)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	assert.Panics(t, func() { bits.Read32(0, 30, 3) })
	assert.Panics(t, func() { bits.Write32(0, 0, 0, 1) })
	assert.Panics(t, func() { bits.Read64(0, 64, 1) })
	assert.Panics(t, func() { bits.SetFlag64(0, 64, true) })
}
