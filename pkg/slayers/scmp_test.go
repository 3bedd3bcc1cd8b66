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
	"bytes"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/slayers"
)

// scmpBodyLayer is implemented by all SCMP message layers.
type scmpBodyLayer interface {
	gopacket.SerializableLayer
	gopacket.Layer
}

func TestSCMPMessages(t *testing.T) {
	quote := bytes.Repeat([]byte{0xff}, 18)
	testCases := map[string]struct {
		typeCode slayers.SCMPTypeCode
		body     scmpBodyLayer
		payload  []byte
		bodyLen  int
	}{
		"destination unreachable": {
			typeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeDestinationUnreachable,
				slayers.SCMPCodeRejectRouteToDest),
			body:    &slayers.SCMPDestinationUnreachable{},
			payload: quote,
			bodyLen: 4,
		},
		"packet too big": {
			typeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypePacketTooBig, 0),
			body:     &slayers.SCMPPacketTooBig{MTU: 1280},
			payload:  quote,
			bodyLen:  4,
		},
		"parameter problem": {
			typeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeParameterProblem,
				slayers.SCMPCodePathExpired),
			body:    &slayers.SCMPParameterProblem{Pointer: 66},
			payload: quote,
			bodyLen: 4,
		},
		"external interface down": {
			typeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeExternalInterfaceDown, 0),
			body: &slayers.SCMPExternalInterfaceDown{
				IA:   addr.MustParseIA("1-ff00:0:111"),
				IfID: 5,
			},
			payload: quote,
			bodyLen: 16,
		},
		"internal connectivity down": {
			typeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeInternalConnectivityDown, 0),
			body: &slayers.SCMPInternalConnectivityDown{
				IA:      addr.MustParseIA("1-ff00:0:111"),
				Ingress: 5,
				Egress:  15,
			},
			payload: quote,
			bodyLen: 24,
		},
		"echo request": {
			typeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeEchoRequest, 0),
			body:     &slayers.SCMPEcho{Identifier: 5, SeqNumber: 42},
			payload:  []byte("ping"),
			bodyLen:  4,
		},
		"echo reply": {
			typeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeEchoReply, 0),
			body:     &slayers.SCMPEcho{Identifier: 5, SeqNumber: 42},
			payload:  []byte("ping"),
			bodyLen:  4,
		},
		"traceroute request": {
			typeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeTracerouteRequest, 0),
			body:     &slayers.SCMPTraceroute{Identifier: 7, Sequence: 2},
			bodyLen:  20,
		},
		"traceroute reply": {
			typeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeTracerouteReply, 0),
			body: &slayers.SCMPTraceroute{
				Identifier: 7,
				Sequence:   2,
				IA:         addr.MustParseIA("1-ff00:0:112"),
				Interface:  41,
			},
			bodyLen: 20,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			scn := prepPacket(t, ip4Addr, ip6Addr, rawPath(t, 2), slayers.L4SCMP)
			scmp := &slayers.SCMP{TypeCode: tc.typeCode}
			scmp.SetNetworkLayerForChecksum(scn)
			raw := serialize(t, scn, scmp, tc.body, gopacket.Payload(tc.payload))
			assert.Equal(t, 4+tc.bodyLen+len(tc.payload), int(scn.PayloadLen))

			packet := gopacket.NewPacket(raw, slayers.LayerTypeSCION, gopacket.Default)
			require.Nil(t, packet.ErrorLayer())

			gotSCN := packet.Layer(slayers.LayerTypeSCION).(*slayers.SCION)
			gotSCMP, ok := packet.Layer(slayers.LayerTypeSCMP).(*slayers.SCMP)
			require.True(t, ok)
			assert.Equal(t, tc.typeCode, gotSCMP.TypeCode)
			assert.Equal(t, scmp.Checksum, gotSCMP.Checksum)
			gotSCMP.SetNetworkLayerForChecksum(gotSCN)
			assert.NoError(t, gotSCMP.VerifyChecksum())

			gotBody := packet.Layer(tc.body.LayerType())
			require.NotNil(t, gotBody, "message layer missing")
			assert.Equal(t, tc.bodyLen, len(gotBody.LayerContents()))
			assert.Equal(t, tc.payload, nilIfEmpty(gotBody.LayerPayload()))
			switch want := tc.body.(type) {
			case *slayers.SCMPPacketTooBig:
				assert.Equal(t, want.MTU, gotBody.(*slayers.SCMPPacketTooBig).MTU)
			case *slayers.SCMPParameterProblem:
				assert.Equal(t, want.Pointer, gotBody.(*slayers.SCMPParameterProblem).Pointer)
			case *slayers.SCMPExternalInterfaceDown:
				got := gotBody.(*slayers.SCMPExternalInterfaceDown)
				assert.Equal(t, want.IA, got.IA)
				assert.Equal(t, want.IfID, got.IfID)
			case *slayers.SCMPInternalConnectivityDown:
				got := gotBody.(*slayers.SCMPInternalConnectivityDown)
				assert.Equal(t, want.IA, got.IA)
				assert.Equal(t, want.Ingress, got.Ingress)
				assert.Equal(t, want.Egress, got.Egress)
			case *slayers.SCMPEcho:
				got := gotBody.(*slayers.SCMPEcho)
				assert.Equal(t, want.Identifier, got.Identifier)
				assert.Equal(t, want.SeqNumber, got.SeqNumber)
			case *slayers.SCMPTraceroute:
				got := gotBody.(*slayers.SCMPTraceroute)
				assert.Equal(t, want.Identifier, got.Identifier)
				assert.Equal(t, want.Sequence, got.Sequence)
				assert.Equal(t, want.IA, got.IA)
				assert.Equal(t, want.Interface, got.Interface)
			}
		})
	}
}

func TestSCMPChecksumMismatch(t *testing.T) {
	scn := prepPacket(t, ip4Addr, ip4Addr, rawPath(t, 2), slayers.L4SCMP)
	scmp := &slayers.SCMP{
		TypeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeEchoReply, 0),
	}
	scmp.SetNetworkLayerForChecksum(scn)
	raw := serialize(t, scn, scmp, &slayers.SCMPEcho{Identifier: 1, SeqNumber: 1})
	// Flip a bit in the sequence number.
	raw[len(raw)-1] ^= 0x01

	var gotSCN slayers.SCION
	require.NoError(t, gotSCN.DecodeFromBytes(raw, gopacket.NilDecodeFeedback))
	var gotSCMP slayers.SCMP
	require.NoError(t, gotSCMP.DecodeFromBytes(gotSCN.Payload, gopacket.NilDecodeFeedback))
	gotSCMP.SetNetworkLayerForChecksum(&gotSCN)
	assert.ErrorIs(t, gotSCMP.VerifyChecksum(), slayers.ErrMalformed)
}

func TestSCMPDecodeTooShort(t *testing.T) {
	testCases := map[string]struct {
		layer gopacket.DecodingLayer
		data  []byte
	}{
		"scmp":          {layer: &slayers.SCMP{}, data: []byte{128, 0, 0}},
		"echo":          {layer: &slayers.SCMPEcho{}, data: []byte{0, 1, 0}},
		"traceroute":    {layer: &slayers.SCMPTraceroute{}, data: make([]byte, 19)},
		"ext if down":   {layer: &slayers.SCMPExternalInterfaceDown{}, data: make([]byte, 15)},
		"int conn down": {layer: &slayers.SCMPInternalConnectivityDown{}, data: make([]byte, 23)},
		"param problem": {layer: &slayers.SCMPParameterProblem{}, data: make([]byte, 3)},
		"too big":       {layer: &slayers.SCMPPacketTooBig{}, data: make([]byte, 3)},
		"unreachable":   {layer: &slayers.SCMPDestinationUnreachable{}, data: make([]byte, 3)},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			err := tc.layer.DecodeFromBytes(tc.data, gopacket.NilDecodeFeedback)
			assert.ErrorIs(t, err, slayers.ErrMalformed)
		})
	}
}

func TestSCMPTypeCodeString(t *testing.T) {
	testCases := map[slayers.SCMPTypeCode]string{
		slayers.CreateSCMPTypeCode(1, 4):     "DestinationUnreachable(PortUnreachable)",
		slayers.CreateSCMPTypeCode(2, 0):     "PacketTooBig",
		slayers.CreateSCMPTypeCode(2, 7):     "PacketTooBig(Code: 7)",
		slayers.CreateSCMPTypeCode(4, 51):    "ParameterProblem(PathExpired)",
		slayers.CreateSCMPTypeCode(5, 0):     "ExternalInterfaceDown",
		slayers.CreateSCMPTypeCode(128, 0):   "EchoRequest",
		slayers.CreateSCMPTypeCode(131, 0):   "TracerouteReply",
		slayers.CreateSCMPTypeCode(99, 1):    "99(1)",
		slayers.CreateSCMPTypeCode(4, 0xff):  "ParameterProblem(Code: 255)",
		slayers.CreateSCMPTypeCode(130, 0x0): "TracerouteRequest",
	}
	for tc, want := range testCases {
		assert.Equal(t, want, tc.String())
	}
	assert.True(t, slayers.CreateSCMPTypeCode(129, 0).InfoMsg())
	assert.False(t, slayers.CreateSCMPTypeCode(6, 0).InfoMsg())
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
