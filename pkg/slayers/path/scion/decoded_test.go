// Copyright 2020 Anapaya Systems
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

package scion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-client/pkg/slayers/path"
	"github.com/scionproto/scion-client/pkg/slayers/path/scion"
)

// newDecoded builds a decoded path with the given segment lengths. Hop field
// interfaces are numbered consecutively so that the order of hops is visible.
func newDecoded(segLens ...uint8) *scion.Decoded {
	d := &scion.Decoded{}
	for i, l := range segLens {
		d.PathMeta.SegLen[i] = l
		d.NumINF++
		d.NumHops += int(l)
		d.InfoFields = append(d.InfoFields, path.InfoField{
			ConsDir:   i%2 == 0,
			SegID:     uint16(0x100 * (i + 1)),
			Timestamp: uint32(1000 + i),
		})
	}
	for i := 0; i < d.NumHops; i++ {
		d.HopFields = append(d.HopFields, path.HopField{
			ExpTime:     63,
			ConsIngress: uint16(2*i + 1),
			ConsEgress:  uint16(2*i + 2),
			Mac:         [path.MacLen]byte{byte(i), 1, 2, 3, 4, 5},
		})
	}
	return d
}

func TestDecodedSerializeDecode(t *testing.T) {
	for _, segLens := range [][]uint8{{2}, {2, 3}, {2, 4, 3}} {
		want := newDecoded(segLens...)
		b := make([]byte, want.Len())
		require.NoError(t, want.SerializeTo(b))

		got := &scion.Decoded{}
		require.NoError(t, got.DecodeFromBytes(b))
		assert.Equal(t, want, got)
		assert.Equal(t, scion.MetaLen+len(segLens)*path.InfoLen+want.NumHops*path.HopLen,
			got.Len())
	}
}

func TestDecodedDecodeTooShort(t *testing.T) {
	want := newDecoded(2, 3)
	b := make([]byte, want.Len())
	require.NoError(t, want.SerializeTo(b))
	got := &scion.Decoded{}
	assert.Error(t, got.DecodeFromBytes(b[:len(b)-1]))
	assert.Error(t, want.SerializeTo(b[:len(b)-1]))
}

func TestDecodedReverse(t *testing.T) {
	testCases := map[string][]uint8{
		"1 segment":  {3},
		"2 segments": {2, 3},
		"3 segments": {2, 4, 3},
	}
	for name, segLens := range testCases {
		t.Run(name, func(t *testing.T) {
			orig := newDecoded(segLens...)
			p := newDecoded(segLens...)
			p.PathMeta.CurrHF = 1

			reversed, err := p.Reverse()
			require.NoError(t, err)
			r := reversed.(*scion.Decoded)

			n := len(segLens)
			for i := 0; i < n; i++ {
				assert.Equal(t, segLens[n-1-i], r.PathMeta.SegLen[i])
				assert.Equal(t, orig.InfoFields[n-1-i].SegID, r.InfoFields[i].SegID)
				assert.Equal(t, !orig.InfoFields[n-1-i].ConsDir, r.InfoFields[i].ConsDir)
			}
			for i := 0; i < orig.NumHops; i++ {
				assert.Equal(t, orig.HopFields[orig.NumHops-1-i], r.HopFields[i])
			}
			assert.Equal(t, uint8(orig.NumHops-2), r.PathMeta.CurrHF)
			assert.Equal(t, uint8(n-1), r.PathMeta.CurrINF)

			// Reversing twice restores the original path.
			twice, err := r.Reverse()
			require.NoError(t, err)
			orig.PathMeta.CurrHF = 1
			assert.Equal(t, orig, twice)
		})
	}
}

func TestDecodedReverseEmpty(t *testing.T) {
	_, err := (&scion.Decoded{}).Reverse()
	assert.Error(t, err)
}

func TestDecodedToRaw(t *testing.T) {
	d := newDecoded(2, 2)
	raw, err := d.ToRaw()
	require.NoError(t, err)
	assert.Equal(t, d.Base, raw.Base)
	back, err := raw.ToDecoded()
	require.NoError(t, err)
	assert.Equal(t, d, back)
}
