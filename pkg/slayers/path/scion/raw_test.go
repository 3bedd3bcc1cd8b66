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

func rawPath(t *testing.T, segLens ...uint8) *scion.Raw {
	t.Helper()
	raw, err := newDecoded(segLens...).ToRaw()
	require.NoError(t, err)
	return raw
}

func TestRawSerializeTo(t *testing.T) {
	raw := rawPath(t, 2, 3)
	orig := append([]byte(nil), raw.Raw...)
	raw.PathMeta.CurrHF = 3
	raw.PathMeta.CurrINF = 1

	b := make([]byte, raw.Len())
	require.NoError(t, raw.SerializeTo(b))
	// The meta header change is reflected in the output only.
	assert.Equal(t, orig, raw.Raw)
	var meta scion.MetaHdr
	require.NoError(t, meta.DecodeFromBytes(b))
	assert.Equal(t, raw.PathMeta, meta)
	assert.Equal(t, orig[scion.MetaLen:], b[scion.MetaLen:])

	assert.Error(t, raw.SerializeTo(b[:len(b)-1]))
	assert.Error(t, (&scion.Raw{}).SerializeTo(b))
}

func TestRawReverse(t *testing.T) {
	for _, segLens := range [][]uint8{{3}, {2, 3}, {2, 4, 3}} {
		raw := rawPath(t, segLens...)
		orig := append([]byte(nil), raw.Raw...)

		reversed, err := raw.Reverse()
		require.NoError(t, err)
		r := reversed.(*scion.Raw)
		assert.NotEqual(t, orig, r.Raw)

		d, err := r.ToDecoded()
		require.NoError(t, err)
		want := newDecoded(segLens...)
		_, err = want.Reverse()
		require.NoError(t, err)
		assert.Equal(t, want, d)

		twice, err := r.Reverse()
		require.NoError(t, err)
		assert.Equal(t, orig, twice.(*scion.Raw).Raw)
	}
}

func TestRawGetSetHopField(t *testing.T) {
	raw := rawPath(t, 2, 2)
	hop, err := raw.GetHopField(2)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), hop.ConsIngress)

	hop.EgressRouterAlert = true
	require.NoError(t, raw.SetHopField(hop, 2))
	got, err := raw.GetHopField(2)
	require.NoError(t, err)
	assert.True(t, got.EgressRouterAlert)

	_, err = raw.GetHopField(4)
	assert.Error(t, err)
	assert.Error(t, raw.SetHopField(path.HopField{}, -1))

	info, err := raw.GetInfoField(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x200), info.SegID)
	_, err = raw.GetInfoField(2)
	assert.Error(t, err)
}

func TestRawClone(t *testing.T) {
	raw := rawPath(t, 2)
	c, err := raw.Clone()
	require.NoError(t, err)
	assert.Equal(t, raw.Raw, c.Raw)

	hop, err := c.GetHopField(0)
	require.NoError(t, err)
	hop.IngressRouterAlert = true
	require.NoError(t, c.SetHopField(hop, 0))

	orig, err := raw.GetHopField(0)
	require.NoError(t, err)
	assert.False(t, orig.IngressRouterAlert)
}
