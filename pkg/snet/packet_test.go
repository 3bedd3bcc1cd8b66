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

package snet_test

import (
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/slayers"
	"github.com/scionproto/scion-client/pkg/slayers/path"
	"github.com/scionproto/scion-client/pkg/slayers/path/empty"
	"github.com/scionproto/scion-client/pkg/slayers/path/onehop"
	"github.com/scionproto/scion-client/pkg/slayers/path/scion"
	"github.com/scionproto/scion-client/pkg/snet"
)

var (
	localIA  = addr.MustParseIA("1-ff00:0:112")
	remoteIA = addr.MustParseIA("1-ff00:0:110")
)

func rawSCIONPath(t testing.TB) []byte {
	t.Helper()
	sp := scion.Decoded{
		Base: scion.Base{
			PathMeta: scion.MetaHdr{
				SegLen: [3]uint8{2, 0, 0},
			},
			NumINF:  1,
			NumHops: 2,
		},
		InfoFields: []path.InfoField{{ConsDir: true}},
		HopFields:  []path.HopField{{ConsEgress: 4}, {ConsIngress: 1}},
	}
	raw := make([]byte, sp.Len())
	require.NoError(t, sp.SerializeTo(raw))
	return raw
}

func rawOneHopPath(t testing.TB) []byte {
	t.Helper()
	ohp := onehop.Path{
		Info:     path.InfoField{ConsDir: true, SegID: 0x222, Timestamp: 100},
		FirstHop: path.HopField{ConsEgress: 41, ExpTime: 63},
	}
	raw := make([]byte, onehop.PathLen)
	require.NoError(t, ohp.SerializeTo(raw))
	return raw
}

func packetInfo(p snet.DataplanePath, pld snet.Payload) snet.PacketInfo {
	return snet.PacketInfo{
		Destination: snet.SCIONAddress{
			IA:   remoteIA,
			Host: addr.MustParseHost("10.0.0.2"),
		},
		Source: snet.SCIONAddress{
			IA:   localIA,
			Host: addr.MustParseHost("127.0.0.1"),
		},
		Path:    p,
		Payload: pld,
	}
}

func TestPacketSerializeDecodeLoop(t *testing.T) {
	scionPath := snet.RawPath{PathType: scion.PathType, Raw: rawSCIONPath(t)}
	quote := []byte("offending packet")

	testCases := map[string]snet.PacketInfo{
		"UDP OHP packet": packetInfo(
			snet.RawPath{PathType: onehop.PathType, Raw: rawOneHopPath(t)},
			snet.UDPPayload{SrcPort: 25, DstPort: 1925, Payload: []byte("hello")},
		),
		"UDP packet": packetInfo(scionPath,
			snet.UDPPayload{SrcPort: 25, DstPort: 1925, Payload: []byte("hello")},
		),
		"UDP packet empty path": packetInfo(snet.RawPath{PathType: empty.PathType},
			snet.UDPPayload{SrcPort: 25, DstPort: 1925, Payload: []byte("hello")},
		),
		"SCMP EchoRequest": packetInfo(scionPath,
			snet.SCMPEchoRequest{Identifier: 4, SeqNumber: 3310, Payload: []byte("ping")},
		),
		"SCMP EchoReply": packetInfo(scionPath,
			snet.SCMPEchoReply{Identifier: 5, SeqNumber: 1, Payload: []byte("pong")},
		),
		"SCMP TracerouteRequest": packetInfo(scionPath,
			snet.SCMPTracerouteRequest{Identifier: 4, Sequence: 3310},
		),
		"SCMP TracerouteReply": packetInfo(scionPath,
			snet.SCMPTracerouteReply{
				Identifier: 4,
				Sequence:   3310,
				IA:         addr.MustParseIA("1-ff00:0:111"),
				Interface:  42,
			},
		),
		"SCMP ExternalInterfaceDown": packetInfo(scionPath,
			snet.SCMPExternalInterfaceDown{
				IA:        addr.MustParseIA("1-ff00:0:111"),
				Interface: 13,
				Payload:   quote,
			},
		),
		"SCMP InternalConnectivityDown": packetInfo(scionPath,
			snet.SCMPInternalConnectivityDown{
				IA:      addr.MustParseIA("1-ff00:0:111"),
				Ingress: 1,
				Egress:  2,
				Payload: quote,
			},
		),
		"SCMP DestinationUnreachable": packetInfo(scionPath,
			snet.NewSCMPDestinationUnreachable(slayers.SCMPCodePortUnreachable, quote),
		),
		"SCMP PacketTooBig": packetInfo(scionPath,
			snet.SCMPPacketTooBig{MTU: 1280, Payload: quote},
		),
		"SCMP ParameterProblem": packetInfo(scionPath,
			snet.NewSCMPParameterProblem(slayers.SCMPCodeInvalidPath, 16, quote),
		),
		"SCMP unknown error": packetInfo(scionPath,
			snet.NewSCMPUnknownError(7, 3, quote),
		),
	}

	for name, info := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			pkt := &snet.Packet{PacketInfo: info}
			require.NoError(t, pkt.Serialize())

			actual := &snet.Packet{Bytes: pkt.Bytes}
			require.NoError(t, actual.Decode())
			assert.Equal(t, info, actual.PacketInfo)

			// Serializing the decoded packet must give the same bytes.
			again := &snet.Packet{PacketInfo: actual.PacketInfo}
			require.NoError(t, again.Serialize())
			assert.Equal(t, pkt.Bytes, again.Bytes)
		})
	}
}

func TestPacketSerialize(t *testing.T) {
	testCases := map[string]struct {
		input     snet.Packet
		assertErr assert.ErrorAssertionFunc
	}{
		"valid OHP": {
			input: snet.Packet{PacketInfo: packetInfo(
				snet.RawPath{PathType: onehop.PathType, Raw: rawOneHopPath(t)},
				snet.UDPPayload{},
			)},
			assertErr: assert.NoError,
		},
		"empty path": {
			input: snet.Packet{PacketInfo: packetInfo(
				snet.RawPath{PathType: empty.PathType},
				snet.UDPPayload{},
			)},
			assertErr: assert.NoError,
		},
		"empty packet": {
			input:     snet.Packet{},
			assertErr: assert.Error,
		},
		"missing payload": {
			input: snet.Packet{PacketInfo: packetInfo(
				snet.RawPath{PathType: empty.PathType}, nil,
			)},
			assertErr: assert.Error,
		},
		"missing path": {
			input:     snet.Packet{PacketInfo: packetInfo(nil, snet.UDPPayload{})},
			assertErr: assert.Error,
		},
		"unsupported path type": {
			input: snet.Packet{PacketInfo: packetInfo(
				snet.RawPath{PathType: 42, Raw: []byte{1, 2, 3, 4}},
				snet.UDPPayload{},
			)},
			assertErr: assert.Error,
		},
		"SVC source": {
			input: snet.Packet{PacketInfo: snet.PacketInfo{
				Destination: snet.SCIONAddress{
					IA:   remoteIA,
					Host: addr.MustParseHost("10.0.0.2"),
				},
				Source: snet.SCIONAddress{
					IA:   localIA,
					Host: addr.HostSVC(addr.SvcCS),
				},
				Path:    snet.RawPath{PathType: empty.PathType},
				Payload: snet.UDPPayload{},
			}},
			assertErr: assert.Error,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			tc.assertErr(t, tc.input.Serialize())
		})
	}
}

func scionHeader(t testing.TB, nextHdr slayers.L4ProtocolType) *slayers.SCION {
	t.Helper()
	scn := &slayers.SCION{
		Version: slayers.SCIONVersion,
		FlowID:  1,
		NextHdr: nextHdr,
		DstIA:   remoteIA,
		SrcIA:   localIA,
		Path:    empty.Path{},
	}
	require.NoError(t, scn.SetDstAddr(addr.MustParseHost("10.0.0.2")))
	require.NoError(t, scn.SetSrcAddr(addr.MustParseHost("127.0.0.1")))
	return scn
}

func serializeLayers(t testing.TB, l ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, l...))
	return buf.Bytes()
}

func echoLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	scmp := &slayers.SCMP{
		TypeCode: slayers.CreateSCMPTypeCode(slayers.SCMPTypeEchoRequest, 0),
	}
	scmp.SetNetworkLayerForChecksum(scn)
	return []gopacket.SerializableLayer{
		scmp,
		&slayers.SCMPEcho{Identifier: 1, SeqNumber: 2},
		gopacket.Payload("ping"),
	}
}

// withDstAddrType overwrites the destination address type in the common
// header of a serialized packet.
func withDstAddrType(raw []byte, typ uint8) []byte {
	raw[9] = raw[9]&0x3f | typ<<6
	return raw
}

func assertNotHostDeliverable(t assert.TestingT, err error, _ ...interface{}) bool {
	return assert.ErrorIs(t, err, snet.ErrNotHostDeliverable) &&
		assert.NotErrorIs(t, err, slayers.ErrMalformed) &&
		assert.NotErrorIs(t, err, slayers.ErrUnsupported)
}

func TestPacketDecode(t *testing.T) {
	testCases := map[string]struct {
		raw       func(t *testing.T) []byte
		assertErr assert.ErrorAssertionFunc
		check     func(t *testing.T, pkt *snet.Packet)
	}{
		"SVC destination": {
			raw: func(t *testing.T) []byte {
				pkt := &snet.Packet{PacketInfo: packetInfo(
					snet.RawPath{PathType: empty.PathType},
					snet.UDPPayload{SrcPort: 1, DstPort: 2},
				)}
				pkt.Destination.Host = addr.HostSVC(addr.SvcCS)
				require.NoError(t, pkt.Serialize())
				return pkt.Bytes
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, snet.ErrNotHostDeliverable)
			},
		},
		"reserved destination type": {
			raw: func(t *testing.T) []byte {
				pkt := &snet.Packet{PacketInfo: packetInfo(
					snet.RawPath{PathType: empty.PathType},
					snet.UDPPayload{SrcPort: 1, DstPort: 2},
				)}
				require.NoError(t, pkt.Serialize())
				return withDstAddrType(pkt.Bytes, 2)
			},
			assertErr: assertNotHostDeliverable,
		},
		"IPv6 length with service type": {
			raw: func(t *testing.T) []byte {
				pkt := &snet.Packet{PacketInfo: packetInfo(
					snet.RawPath{PathType: empty.PathType},
					snet.UDPPayload{SrcPort: 1, DstPort: 2},
				)}
				pkt.Destination.Host = addr.MustParseHost("fd00::2")
				require.NoError(t, pkt.Serialize())
				return withDstAddrType(pkt.Bytes, uint8(slayers.T4Svc))
			},
			assertErr: assertNotHostDeliverable,
		},
		"truncated header": {
			raw: func(t *testing.T) []byte {
				pkt := &snet.Packet{PacketInfo: packetInfo(
					snet.RawPath{PathType: empty.PathType},
					snet.UDPPayload{SrcPort: 1, DstPort: 2},
				)}
				require.NoError(t, pkt.Serialize())
				return pkt.Bytes[:20]
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, slayers.ErrMalformed)
			},
		},
		"missing UDP header": {
			raw: func(t *testing.T) []byte {
				return serializeLayers(t, scionHeader(t, slayers.L4UDP))
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, slayers.ErrMalformed)
			},
		},
		"unknown next header": {
			raw: func(t *testing.T) []byte {
				return serializeLayers(t, scionHeader(t, slayers.L4TCP),
					gopacket.Payload("some tcp bytes"))
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, slayers.ErrUnsupported)
			},
		},
		"SCMP checksum mismatch": {
			raw: func(t *testing.T) []byte {
				scn := scionHeader(t, slayers.L4SCMP)
				raw := serializeLayers(t, append(
					[]gopacket.SerializableLayer{scn}, echoLayers(scn)...)...)
				raw[len(raw)-1] ^= 0xff
				return raw
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, slayers.ErrMalformed)
			},
		},
		"hop-by-hop extension with UDP": {
			raw: func(t *testing.T) []byte {
				hbh := gopacket.Payload{byte(slayers.L4UDP), 0, 0, 0}
				return serializeLayers(t, scionHeader(t, slayers.HopByHopClass), hbh,
					&slayers.UDP{SrcPort: 1, DstPort: 2}, gopacket.Payload("data"))
			},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, slayers.ErrUnsupported)
			},
		},
		"hop-by-hop extension with SCMP": {
			raw: func(t *testing.T) []byte {
				scn := scionHeader(t, slayers.HopByHopClass)
				// Next header, zero extension length and two Pad1 options.
				hbh := gopacket.Payload{byte(slayers.L4SCMP), 0, 0, 0}
				return serializeLayers(t, append(
					[]gopacket.SerializableLayer{scn, hbh}, echoLayers(scn)...)...)
			},
			assertErr: assert.NoError,
			check: func(t *testing.T, pkt *snet.Packet) {
				assert.Equal(t, snet.SCMPEchoRequest{
					Identifier: 1,
					SeqNumber:  2,
					Payload:    []byte("ping"),
				}, pkt.Payload)
			},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			pkt := &snet.Packet{Bytes: tc.raw(t)}
			err := pkt.Decode()
			tc.assertErr(t, err)
			if err == nil && tc.check != nil {
				tc.check(t, pkt)
			}
		})
	}
}
