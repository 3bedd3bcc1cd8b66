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

package slayers_test

import (
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-client/pkg/slayers"
)

// extnHeader returns an extension header with the given options, padded with
// Pad1 options to a multiple of 4 bytes.
func extnHeader(next slayers.L4ProtocolType, options ...byte) gopacket.Payload {
	l := (len(options) + 2 + slayers.LineLen - 1) / slayers.LineLen * slayers.LineLen
	hdr := make([]byte, l)
	hdr[0] = byte(next)
	hdr[1] = byte(l/slayers.LineLen - 1)
	copy(hdr[2:], options)
	return hdr
}

func extnPacket(t *testing.T) []byte {
	t.Helper()
	scn := prepPacket(t, ip4Addr, ip4Addr, rawPath(t, 2), slayers.HopByHopClass)
	scmp := &slayers.SCMP{
		TypeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeEchoReply, 0),
	}
	scmp.SetNetworkLayerForChecksum(scn)
	return serialize(t, scn,
		extnHeader(slayers.End2EndClass, 1, 2, 3),
		extnHeader(slayers.L4SCMP, 4, 5, 6, 7, 8, 9),
		scmp, &slayers.SCMPEcho{Identifier: 1, SeqNumber: 2}, gopacket.Payload("data"))
}

func TestExtnDecode(t *testing.T) {
	raw := extnPacket(t)
	packet := gopacket.NewPacket(raw, slayers.LayerTypeSCION, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())

	hbh, ok := packet.Layer(slayers.LayerTypeHopByHopExtn).(*slayers.HopByHopExtnSkipper)
	require.True(t, ok)
	assert.Equal(t, slayers.End2EndClass, hbh.NextHdr)
	assert.Equal(t, uint8(1), hbh.ExtLen)
	assert.Equal(t, 8, hbh.ActualLen)
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0}, hbh.OptionData)

	e2e, ok := packet.Layer(slayers.LayerTypeEndToEndExtn).(*slayers.EndToEndExtnSkipper)
	require.True(t, ok)
	assert.Equal(t, slayers.L4SCMP, e2e.NextHdr)
	assert.Equal(t, uint8(1), e2e.ExtLen)
	assert.Equal(t, []byte{4, 5, 6, 7, 8, 9}, e2e.OptionData)

	echo, ok := packet.Layer(slayers.LayerTypeSCMPEcho).(*slayers.SCMPEcho)
	require.True(t, ok)
	assert.Equal(t, uint16(2), echo.SeqNumber)
	assert.Equal(t, []byte("data"), echo.Payload)
}

func TestExtnSkippers(t *testing.T) {
	raw := extnPacket(t)
	var (
		scn  slayers.SCION
		hbh  slayers.HopByHopExtnSkipper
		e2e  slayers.EndToEndExtnSkipper
		udp  slayers.UDP
		scmp slayers.SCMP
	)
	parser := gopacket.NewDecodingLayerParser(slayers.LayerTypeSCION,
		&scn, &hbh, &e2e, &udp, &scmp)
	parser.IgnoreUnsupported = true
	decoded := []gopacket.LayerType{}
	require.NoError(t, parser.DecodeLayers(raw, &decoded))
	assert.Equal(t, []gopacket.LayerType{
		slayers.LayerTypeSCION,
		slayers.LayerTypeHopByHopExtn,
		slayers.LayerTypeEndToEndExtn,
		slayers.LayerTypeSCMP,
	}, decoded)
	assert.Equal(t, slayers.CreateSCMPTypeCode(slayers.SCMPTypeEchoReply, 0), scmp.TypeCode)
}

func TestExtnOrderErrors(t *testing.T) {
	testCases := map[string]struct {
		layer gopacket.DecodingLayer
		data  []byte
		want  error
	}{
		"hbh repeated": {
			layer: &slayers.HopByHopExtnSkipper{},
			data:  []byte{byte(slayers.HopByHopClass), 0, 0, 0},
			want:  slayers.ErrMalformed,
		},
		"e2e before hbh": {
			layer: &slayers.EndToEndExtnSkipper{},
			data:  []byte{byte(slayers.HopByHopClass), 0, 0, 0},
			want:  slayers.ErrMalformed,
		},
		"e2e repeated": {
			layer: &slayers.EndToEndExtnSkipper{},
			data:  []byte{byte(slayers.End2EndClass), 0, 0, 0},
			want:  slayers.ErrMalformed,
		},
		"truncated": {
			layer: &slayers.HopByHopExtnSkipper{},
			data:  []byte{byte(slayers.L4SCMP), 1, 0, 0},
			want:  slayers.ErrMalformed,
		},
		"missing length": {
			layer: &slayers.EndToEndExtnSkipper{},
			data:  []byte{byte(slayers.L4SCMP)},
			want:  slayers.ErrMalformed,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			err := tc.layer.DecodeFromBytes(tc.data, gopacket.NilDecodeFeedback)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
