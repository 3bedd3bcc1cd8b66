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
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/slayers"
	"github.com/scionproto/scion-client/pkg/slayers/path"
	"github.com/scionproto/scion-client/pkg/slayers/path/empty"
	"github.com/scionproto/scion-client/pkg/slayers/path/scion"
)

var (
	ip4Addr = addr.HostIP(netip.MustParseAddr("10.0.0.100"))
	ip6Addr = addr.HostIP(netip.MustParseAddr("2001:db8::68"))
)

// rawPath returns a SCION path with one segment per entry of segLens.
func rawPath(t testing.TB, segLens ...uint8) *scion.Raw {
	t.Helper()
	d := &scion.Decoded{}
	for i, l := range segLens {
		d.PathMeta.SegLen[i] = l
		d.NumINF++
		d.NumHops += int(l)
		d.InfoFields = append(d.InfoFields, path.InfoField{
			ConsDir:   true,
			SegID:     0x111,
			Timestamp: 0x100,
		})
	}
	for i := 0; i < d.NumHops; i++ {
		d.HopFields = append(d.HopFields, path.HopField{
			ExpTime:     63,
			ConsIngress: uint16(i),
			ConsEgress:  uint16(i + 1),
			Mac:         [path.MacLen]byte{1, 2, 3, 4, 5, 6},
		})
	}
	raw, err := d.ToRaw()
	require.NoError(t, err)
	return raw
}

func prepPacket(t testing.TB, dst, src addr.Host, p path.Path,
	l4 slayers.L4ProtocolType) *slayers.SCION {

	t.Helper()
	scn := &slayers.SCION{
		Version:      0,
		TrafficClass: 0xb8,
		FlowID:       1,
		NextHdr:      l4,
		PathType:     p.Type(),
		DstIA:        addr.MustParseIA("1-ff00:0:111"),
		SrcIA:        addr.MustParseIA("2-ff00:0:222"),
		Path:         p,
	}
	require.NoError(t, scn.SetDstAddr(dst))
	require.NoError(t, scn.SetSrcAddr(src))
	return scn
}

func serialize(t testing.TB, l ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, l...))
	return buf.Bytes()
}

func udpPacket(t testing.TB, payload []byte) []byte {
	t.Helper()
	scn := prepPacket(t, ip4Addr, ip4Addr, rawPath(t, 2), slayers.L4UDP)
	udp := &slayers.UDP{SrcPort: 1280, DstPort: 80}
	return serialize(t, scn, udp, gopacket.Payload(payload))
}

func TestSCIONHeaderLength(t *testing.T) {
	hosts := map[string]addr.Host{"ipv4": ip4Addr, "ipv6": ip6Addr}
	paths := map[string]func(t *testing.T) path.Path{
		"empty":      func(*testing.T) path.Path { return empty.Path{} },
		"one seg":    func(t *testing.T) path.Path { return rawPath(t, 3) },
		"three segs": func(t *testing.T) path.Path { return rawPath(t, 2, 4, 3) },
	}
	addrLen := func(h addr.Host) int {
		if h.IP().Is4() {
			return 4
		}
		return 16
	}
	for dstName, dst := range hosts {
		for srcName, src := range hosts {
			for pathName, mkPath := range paths {
				t.Run(dstName+"/"+srcName+"/"+pathName, func(t *testing.T) {
					p := mkPath(t)
					scn := prepPacket(t, dst, src, p, slayers.L4UDP)
					payload := bytes.Repeat([]byte{0xaa}, 13)
					raw := serialize(t, scn, &slayers.UDP{SrcPort: 1, DstPort: 2},
						gopacket.Payload(payload))

					want := 12 + 16 + addrLen(dst) + addrLen(src) + p.Len()
					assert.Equal(t, want, int(scn.HdrLen)*slayers.LineLen)
					assert.Zero(t, want%slayers.LineLen)
					assert.Equal(t, slayers.UDPLen+len(payload), int(scn.PayloadLen))
					assert.Len(t, raw, want+int(scn.PayloadLen))
					assert.Equal(t, want, scn.AddrHdrLen()+slayers.CmnHdrLen+p.Len())
				})
			}
		}
	}
}

func TestSCIONSerializeDecode(t *testing.T) {
	p := rawPath(t, 2, 2)
	want := prepPacket(t, ip4Addr, ip6Addr, p, slayers.L4UDP)
	payload := []byte("hello SCION")
	raw := serialize(t, want, &slayers.UDP{SrcPort: 1280, DstPort: 80},
		gopacket.Payload(payload))

	packet := gopacket.NewPacket(raw, slayers.LayerTypeSCION, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())
	got, ok := packet.Layer(slayers.LayerTypeSCION).(*slayers.SCION)
	require.True(t, ok)

	assert.Equal(t, want.TrafficClass, got.TrafficClass)
	assert.Equal(t, uint32(1), got.FlowID)
	assert.Equal(t, slayers.L4UDP, got.NextHdr)
	assert.Equal(t, want.HdrLen, got.HdrLen)
	assert.Equal(t, want.PayloadLen, got.PayloadLen)
	assert.Equal(t, path.TypeSCION, got.PathType)
	assert.Equal(t, slayers.AddrLen4, got.DstAddrLen)
	assert.Equal(t, slayers.AddrLen16, got.SrcAddrLen)
	assert.Equal(t, want.DstIA, got.DstIA)
	assert.Equal(t, want.SrcIA, got.SrcIA)
	dst, err := got.DstAddr()
	require.NoError(t, err)
	assert.Equal(t, ip4Addr, dst)
	src, err := got.SrcAddr()
	require.NoError(t, err)
	assert.Equal(t, ip6Addr, src)
	gotPath, ok := got.Path.(*scion.Raw)
	require.True(t, ok)
	assert.Equal(t, p.Raw, gotPath.Raw)

	udp, ok := packet.Layer(slayers.LayerTypeSCIONUDP).(*slayers.UDP)
	require.True(t, ok)
	assert.Equal(t, uint16(1280), udp.SrcPort)
	assert.Equal(t, uint16(80), udp.DstPort)
	assert.Equal(t, uint16(slayers.UDPLen+len(payload)), udp.Length)
	assert.Equal(t, payload, udp.Payload)
}

func TestUDPWithoutNetworkLayerHasZeroChecksum(t *testing.T) {
	buf := gopacket.NewSerializeBuffer()
	udp := &slayers.UDP{SrcPort: 1, DstPort: 2}
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, udp, gopacket.Payload{1, 2, 3}))
	assert.Equal(t, []byte{0, 1, 0, 2, 0, 11, 0, 0, 1, 2, 3}, buf.Bytes())
}

func TestSCIONSVCAddress(t *testing.T) {
	scn := prepPacket(t, addr.HostSVC(addr.SvcCS), ip4Addr, empty.Path{}, slayers.L4UDP)
	assert.Equal(t, slayers.T4Svc, scn.DstAddrType)
	assert.Equal(t, slayers.AddrLen4, scn.DstAddrLen)
	raw := serialize(t, scn, &slayers.UDP{}, gopacket.Payload(nil))

	var got slayers.SCION
	require.NoError(t, got.DecodeFromBytes(raw, gopacket.NilDecodeFeedback))
	dst, err := got.DstAddr()
	require.NoError(t, err)
	assert.Equal(t, addr.HostSVC(addr.SvcCS), dst)
}

func TestSCIONDecodeErrors(t *testing.T) {
	testCases := map[string]struct {
		modify func(b []byte) []byte
		want   error
	}{
		"truncated common header": {
			modify: func(b []byte) []byte { return b[:8] },
			want:   slayers.ErrMalformed,
		},
		"truncated path": {
			modify: func(b []byte) []byte { return b[:40] },
			want:   slayers.ErrMalformed,
		},
		"header length beyond packet": {
			modify: func(b []byte) []byte { b[5] = 0xff; return b },
			want:   slayers.ErrMalformed,
		},
		"payload length beyond packet": {
			modify: func(b []byte) []byte { b[6], b[7] = 0xff, 0xff; return b },
			want:   slayers.ErrMalformed,
		},
		"path length mismatch": {
			// An empty path type with path bytes present.
			modify: func(b []byte) []byte { b[8] = byte(path.TypeEmpty); return b },
			want:   slayers.ErrMalformed,
		},
		"bad segment packing": {
			// Seg0Len=0 while Seg1Len=2. The meta header starts at byte 36.
			modify: func(b []byte) []byte { b[38], b[39] = 0x00, 0x80; return b },
			want:   slayers.ErrMalformed,
		},
		"unknown version": {
			modify: func(b []byte) []byte { b[0] |= 0x10; return b },
			want:   slayers.ErrUnsupported,
		},
		"address length code 1": {
			modify: func(b []byte) []byte { b[9] = 0x10; return b },
			want:   slayers.ErrUnsupported,
		},
		"address length code 2": {
			modify: func(b []byte) []byte { b[9] = 0x02; return b },
			want:   slayers.ErrUnsupported,
		},
		"epic path type": {
			modify: func(b []byte) []byte { b[8] = byte(path.TypeEPIC); return b },
			want:   slayers.ErrUnsupported,
		},
		"unknown path type": {
			modify: func(b []byte) []byte { b[8] = 0x7f; return b },
			want:   slayers.ErrUnsupported,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			raw := tc.modify(udpPacket(t, []byte("payload")))
			var scn slayers.SCION
			err := scn.DecodeFromBytes(raw, gopacket.NilDecodeFeedback)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSCIONSerializeErrors(t *testing.T) {
	t.Run("nil path", func(t *testing.T) {
		scn := prepPacket(t, ip4Addr, ip4Addr, empty.Path{}, slayers.L4UDP)
		scn.Path = nil
		err := scn.SerializeTo(gopacket.NewSerializeBuffer(), gopacket.SerializeOptions{})
		assert.Error(t, err)
	})
	t.Run("address length mismatch", func(t *testing.T) {
		scn := prepPacket(t, ip4Addr, ip4Addr, empty.Path{}, slayers.L4UDP)
		scn.RawDstAddr = make([]byte, 16)
		err := scn.SerializeTo(gopacket.NewSerializeBuffer(), gopacket.SerializeOptions{})
		assert.Error(t, err)
	})
	t.Run("unsupported address length", func(t *testing.T) {
		scn := prepPacket(t, ip4Addr, ip4Addr, empty.Path{}, slayers.L4UDP)
		scn.SrcAddrLen = slayers.AddrLen8
		scn.RawSrcAddr = make([]byte, 8)
		err := scn.SerializeTo(gopacket.NewSerializeBuffer(), gopacket.SerializeOptions{})
		assert.Error(t, err)
	})
}

func BenchmarkDecodeLayerParser(b *testing.B) {
	raw := udpPacket(b, mkPayload(100))
	var scn slayers.SCION
	var udp slayers.UDP
	var pld gopacket.Payload
	parser := gopacket.NewDecodingLayerParser(slayers.LayerTypeSCION, &scn, &udp, &pld)
	decoded := []gopacket.LayerType{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := parser.DecodeLayers(raw, &decoded); err != nil {
			b.Fatal(err)
		}
	}
}

func mkPayload(plen int) []byte {
	b := make([]byte, plen)
	for i := 0; i < plen; i++ {
		b[i] = byte(i)
	}
	return b
}
