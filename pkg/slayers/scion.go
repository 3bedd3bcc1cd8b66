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

package slayers

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"github.com/gopacket/gopacket"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/private/util"
	"github.com/scionproto/scion-client/pkg/slayers/internal/bits"
	"github.com/scionproto/scion-client/pkg/slayers/path"
	"github.com/scionproto/scion-client/pkg/slayers/path/empty"
	"github.com/scionproto/scion-client/pkg/slayers/path/onehop"
	"github.com/scionproto/scion-client/pkg/slayers/path/scion"
)

const (
	// LineLen is the length of a SCION header line in bytes.
	LineLen = 4
	// CmnHdrLen is the length of the SCION common header in bytes.
	CmnHdrLen = 12
	// SCIONVersion is the currently supported version of the SCION header format. Different
	// versions are not guaranteed to be compatible to each other.
	SCIONVersion = 0
)

var (
	// ErrMalformed is returned for packets that are structurally invalid, e.g.
	// truncated or with inconsistent length fields.
	ErrMalformed = errors.New("malformed packet")
	// ErrUnsupported is returned for packets that use header values this
	// implementation does not understand, e.g. an unknown path type or
	// address format. Unlike ErrMalformed, retrying never helps.
	ErrUnsupported = errors.New("unsupported packet")
)

// AddrLen indicates the length of a host address in the SCION header. The four possible lengths are
// 4, 8, 12, or 16 bytes.
type AddrLen uint8

// AddrLen constants
const (
	AddrLen4 AddrLen = iota
	AddrLen8
	AddrLen12
	AddrLen16
)

// AddrType indicates the type of a host address of a given length in the SCION header. There are
// four possible types per address length.
type AddrType uint8

// AddrLen4 types
const (
	T4Ip AddrType = iota
	T4Svc
)

// AddrLen16 types
const (
	T16Ip AddrType = iota
)

// BaseLayer is a convenience struct which implements the LayerData and
// LayerPayload functions of the Layer interface.
type BaseLayer struct {
	// Contents is the set of bytes that make up this layer. IE: for an
	// Ethernet packet, this would be the set of bytes making up the
	// Ethernet frame.
	Contents []byte
	// Payload is the set of bytes contained by (but not part of) this
	// Layer. Again, to take Ethernet as an example, this would be the
	// set of bytes encapsulated by the Ethernet protocol.
	Payload []byte
}

// LayerContents returns the bytes of the packet layer.
func (b *BaseLayer) LayerContents() []byte { return b.Contents }

// LayerPayload returns the bytes contained within the packet layer.
func (b *BaseLayer) LayerPayload() []byte { return b.Payload }

// SCION is the header of a SCION packet.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|Version|  TrafficClass |                FlowID                 |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|    NextHdr    |    HdrLen     |          PayloadLen           |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|    PathType   |DT |DL |ST |SL |              RSV              |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// The common header is followed by the address header and the path header.
type SCION struct {
	BaseLayer
	// Common Header fields

	// Version is version of the SCION Header. Currently, only 0 is supported.
	Version uint8
	// TrafficClass denotes the traffic class. Its value in a received packet or fragment might be
	// different from the value sent by the packet’s source.
	TrafficClass uint8
	// FlowID is a 20-bit field used by a source to label sequences of packets to be treated in the
	// network as a single flow. It is mandatory to be set.
	FlowID uint32
	// NextHdr  encodes the type of the first header after the SCION header. This can be either a
	// SCION extension or a layer-4 protocol such as TCP or UDP.
	NextHdr L4ProtocolType
	// HdrLen is the length of the SCION header in multiples of 4 bytes. The SCION header length is
	// computed as HdrLen * 4 bytes. The 8 bits of the HdrLen field limit the SCION header to a
	// maximum of 1024 bytes.
	HdrLen uint8
	// PayloadLen is the length of the payload in bytes. The payload includes extension headers and
	// the L4 payload. This field is 16 bits long, supporting a maximum payload size of 64KB.
	PayloadLen uint16
	// PathType specifies the type of path in this SCION header.
	PathType path.Type
	// DstAddrType (2 bit) is the type of the destination address.
	DstAddrType AddrType
	// DstAddrLen (2 bit) is the length of the destination address. Supported address length are 4B
	// (0), and 16B (3).
	DstAddrLen AddrLen
	// SrcAddrType (2 bit) is the type of the source address.
	SrcAddrType AddrType
	// SrcAddrLen (2 bit) is the length of the source address. Supported address length are 4B
	// (0), and 16B (3).
	SrcAddrLen AddrLen

	// Address header fields.

	// DstIA is the destination ISD-AS.
	DstIA addr.IA
	// SrcIA is the source ISD-AS.
	SrcIA addr.IA
	// RawDstAddr is the destination address.
	RawDstAddr []byte
	// RawSrcAddr is the source address.
	RawSrcAddr []byte

	// Path is the path contained in the SCION header. It depends on the PathType field.
	Path path.Path
}

func (s *SCION) LayerType() gopacket.LayerType {
	return LayerTypeSCION
}

func (s *SCION) CanDecode() gopacket.LayerClass {
	return LayerTypeSCION
}

func (s *SCION) NextLayerType() gopacket.LayerType {
	return scionNextLayerType(s.NextHdr)
}

func (s *SCION) LayerPayload() []byte {
	return s.Payload
}

// NetworkFlow returns an empty flow. SCION addresses have no registered
// gopacket endpoint type.
func (s *SCION) NetworkFlow() gopacket.Flow {
	return gopacket.Flow{}
}

// SerializeTo writes the common, address and path header. With FixLengths,
// HdrLen and PayloadLen are computed from the path and the bytes already in b.
func (s *SCION) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if s.Path == nil {
		return serrors.New("SCION path is nil")
	}
	if err := checkAddr(s.DstAddrLen, s.RawDstAddr); err != nil {
		return serrors.Wrap("destination address", err)
	}
	if err := checkAddr(s.SrcAddrLen, s.RawSrcAddr); err != nil {
		return serrors.Wrap("source address", err)
	}
	pathLen := s.Path.Len()
	scnLen := CmnHdrLen + s.AddrHdrLen() + pathLen
	if scnLen > 255*LineLen {
		return serrors.New("header length exceeds maximum",
			"max", 255*LineLen, "actual", scnLen)
	}
	if scnLen%LineLen != 0 {
		return serrors.New("header length is not an integer multiple of line length",
			"actual", scnLen)
	}
	buf, err := b.PrependBytes(scnLen)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		s.HdrLen = uint8(scnLen / LineLen)
		s.PayloadLen = uint16(len(b.Bytes()) - scnLen)
		s.PathType = s.Path.Type()
	}

	// Serialize common header.
	var line uint32
	line = bits.Write32(line, 0, 4, uint32(s.Version))
	line = bits.Write32(line, 4, 8, uint32(s.TrafficClass))
	line = bits.Write32(line, 12, 20, s.FlowID)
	binary.BigEndian.PutUint32(buf[0:4], line)
	line = 0
	line = bits.Write32(line, 0, 8, uint32(s.NextHdr))
	line = bits.Write32(line, 8, 8, uint32(s.HdrLen))
	line = bits.Write32(line, 16, 16, uint32(s.PayloadLen))
	binary.BigEndian.PutUint32(buf[4:8], line)
	line = 0
	line = bits.Write32(line, 0, 8, uint32(s.PathType))
	line = bits.Write32(line, 8, 2, uint32(s.DstAddrType))
	line = bits.Write32(line, 10, 2, uint32(s.DstAddrLen))
	line = bits.Write32(line, 12, 2, uint32(s.SrcAddrType))
	line = bits.Write32(line, 14, 2, uint32(s.SrcAddrLen))
	binary.BigEndian.PutUint32(buf[8:12], line)

	// Serialize address header.
	if err := s.SerializeAddrHdr(buf[CmnHdrLen:]); err != nil {
		return err
	}
	offset := CmnHdrLen + s.AddrHdrLen()

	// Serialize path header.
	if err := s.Path.SerializeTo(buf[offset:]); err != nil {
		return err
	}
	s.Contents = buf[:scnLen]
	s.Payload = b.Bytes()[scnLen:]
	return nil
}

// DecodeFromBytes decodes the SCION layer. DecodeFromBytes resets the internal state of this layer
// to the state defined by the passed-in bytes. Slices in the SCION layer reference the passed-in
// data, so care should be taken to copy it first should later modification of data be required
// before the SCION layer is discarded.
//
// Errors match either ErrMalformed or ErrUnsupported.
func (s *SCION) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	// Decode common header.
	if len(data) < CmnHdrLen {
		df.SetTruncated()
		return serrors.WrapNoStack("packet is shorter than the common header length",
			ErrMalformed, "min", CmnHdrLen, "actual", len(data))
	}
	line := binary.BigEndian.Uint32(data[0:4])
	s.Version = uint8(bits.Read32(line, 0, 4))
	s.TrafficClass = uint8(bits.Read32(line, 4, 8))
	s.FlowID = bits.Read32(line, 12, 20)
	line = binary.BigEndian.Uint32(data[4:8])
	s.NextHdr = L4ProtocolType(bits.Read32(line, 0, 8))
	s.HdrLen = uint8(bits.Read32(line, 8, 8))
	s.PayloadLen = uint16(bits.Read32(line, 16, 16))
	line = binary.BigEndian.Uint32(data[8:12])
	s.PathType = path.Type(bits.Read32(line, 0, 8))
	s.DstAddrType = AddrType(bits.Read32(line, 8, 2))
	s.DstAddrLen = AddrLen(bits.Read32(line, 10, 2))
	s.SrcAddrType = AddrType(bits.Read32(line, 12, 2))
	s.SrcAddrLen = AddrLen(bits.Read32(line, 14, 2))

	if s.Version != SCIONVersion {
		return serrors.WrapNoStack("unsupported SCION version", ErrUnsupported,
			"version", s.Version)
	}
	if !supportedAddrLen(s.DstAddrLen) || !supportedAddrLen(s.SrcAddrLen) {
		return serrors.WrapNoStack("unsupported address length", ErrUnsupported,
			"dst_len", s.DstAddrLen, "src_len", s.SrcAddrLen)
	}

	// Decode address header.
	if err := s.DecodeAddrHdr(data[CmnHdrLen:]); err != nil {
		df.SetTruncated()
		return serrors.JoinNoStack(ErrMalformed, err)
	}
	addrHdrLen := s.AddrHdrLen()
	offset := CmnHdrLen + addrHdrLen

	// Decode path header.
	hdrBytes := int(s.HdrLen) * LineLen
	pathLen := hdrBytes - offset
	if pathLen < 0 {
		return serrors.WrapNoStack("invalid header, negative pathLen", ErrMalformed,
			"hdrBytes", hdrBytes, "addrHdrLen", addrHdrLen, "CmnHdrLen", CmnHdrLen)
	}
	if len(data) < hdrBytes {
		df.SetTruncated()
		return serrors.WrapNoStack("packet is shorter than the header length", ErrMalformed,
			"hdrBytes", hdrBytes, "actual", len(data))
	}
	switch s.PathType {
	case empty.PathType:
		s.Path = empty.Path{}
	case scion.PathType:
		// Only allocate a SCION path if necessary. This reduces memory allocation and GC overhead
		// considerably (3x improvement for DecodeFromBytes performance)
		if _, ok := s.Path.(*scion.Raw); !ok {
			s.Path = &scion.Raw{}
		}
	case onehop.PathType:
		if _, ok := s.Path.(*onehop.Path); !ok {
			s.Path = &onehop.Path{}
		}
	default:
		return serrors.WrapNoStack("unsupported path type", ErrUnsupported,
			"type", s.PathType)
	}
	if err := s.Path.DecodeFromBytes(data[offset:hdrBytes]); err != nil {
		return serrors.JoinNoStack(ErrMalformed, err, "type", s.PathType)
	}
	if s.Path.Len() != pathLen {
		return serrors.WrapNoStack("path length does not match header length", ErrMalformed,
			"type", s.PathType, "path_len", s.Path.Len(), "expected", pathLen)
	}
	if len(data)-hdrBytes < int(s.PayloadLen) {
		df.SetTruncated()
		return serrors.WrapNoStack("packet is shorter than the payload length", ErrMalformed,
			"payload_len", s.PayloadLen, "actual", len(data)-hdrBytes)
	}
	s.Contents = data[:hdrBytes]
	s.Payload = data[hdrBytes : hdrBytes+int(s.PayloadLen)]
	return nil
}

func decodeSCION(data []byte, pb gopacket.PacketBuilder) error {
	scn := &SCION{}
	err := scn.DecodeFromBytes(data, pb)
	if err != nil {
		return err
	}
	pb.AddLayer(scn)
	pb.SetNetworkLayer(scn)
	return pb.NextDecoder(scionNextLayerType(scn.NextHdr))
}

// scionNextLayerType returns the layer type for the given protocol identifier
// in a SCION base header.
func scionNextLayerType(t L4ProtocolType) gopacket.LayerType {
	switch t {
	case HopByHopClass:
		return LayerTypeHopByHopExtn
	case End2EndClass:
		return LayerTypeEndToEndExtn
	default:
		return scionNextLayerTypeL4(t)
	}
}

// scionNextLayerTypeAfterHBH returns the layer type for the given protocol
// identifier in a SCION hop-by-hop extension, excluding (repeated) hop-by-hop
// extensions.
func scionNextLayerTypeAfterHBH(t L4ProtocolType) gopacket.LayerType {
	switch t {
	case HopByHopClass:
		return gopacket.LayerTypeDecodeFailure
	case End2EndClass:
		return LayerTypeEndToEndExtn
	default:
		return scionNextLayerTypeL4(t)
	}
}

// scionNextLayerTypeAfterE2E returns the layer type for the given protocol
// identifier in a SCION end-to-end extension, excluding (repeated or
// misordered) hop-by-hop extensions or (repeated) end-to-end extensions.
func scionNextLayerTypeAfterE2E(t L4ProtocolType) gopacket.LayerType {
	switch t {
	case HopByHopClass, End2EndClass:
		return gopacket.LayerTypeDecodeFailure
	default:
		return scionNextLayerTypeL4(t)
	}
}

// scionNextLayerTypeL4 returns the layer type for the given layer-4 protocol
// identifier. Does not handle extension header classes.
func scionNextLayerTypeL4(t L4ProtocolType) gopacket.LayerType {
	switch t {
	case L4UDP:
		return LayerTypeSCIONUDP
	case L4SCMP:
		return LayerTypeSCMP
	default:
		return gopacket.LayerTypePayload
	}
}

// DstAddr parses the destination address into an addr.Host.
func (s *SCION) DstAddr() (addr.Host, error) {
	return parseAddr(s.DstAddrType, s.DstAddrLen, s.RawDstAddr)
}

// SrcAddr parses the source address into an addr.Host.
func (s *SCION) SrcAddr() (addr.Host, error) {
	return parseAddr(s.SrcAddrType, s.SrcAddrLen, s.RawSrcAddr)
}

// SetDstAddr sets the destination address and updates the DstAddrLen/Type fields accordingly.
func (s *SCION) SetDstAddr(dst addr.Host) error {
	var err error
	s.DstAddrLen, s.DstAddrType, s.RawDstAddr, err = packAddr(dst)
	return err
}

// SetSrcAddr sets the source address and updates the SrcAddrLen/Type fields accordingly.
func (s *SCION) SetSrcAddr(src addr.Host) error {
	var err error
	s.SrcAddrLen, s.SrcAddrType, s.RawSrcAddr, err = packAddr(src)
	return err
}

func parseAddr(addrType AddrType, addrLen AddrLen, raw []byte) (addr.Host, error) {
	if len(raw) != addrBytes(addrLen) {
		return addr.Host{}, serrors.WrapNoStack("address length does not match", ErrMalformed,
			"len", addrLen, "actual", len(raw))
	}
	switch addrLen {
	case AddrLen4:
		switch addrType {
		case T4Ip:
			return addr.HostIP(netip.AddrFrom4([4]byte(raw))), nil
		case T4Svc:
			return addr.HostSVC(addr.SVC(binary.BigEndian.Uint16(raw[:2]))), nil
		}
	case AddrLen16:
		switch addrType {
		case T16Ip:
			return addr.HostIP(netip.AddrFrom16([16]byte(raw))), nil
		}
	}
	return addr.Host{}, serrors.WrapNoStack("unsupported address type/length combination",
		ErrUnsupported, "type", addrType, "len", addrLen)
}

func packAddr(host addr.Host) (AddrLen, AddrType, []byte, error) {
	switch host.Type() {
	case addr.HostTypeIP:
		ip := host.IP()
		if ip.Is4() {
			a := ip.As4()
			return AddrLen4, T4Ip, a[:], nil
		}
		a := ip.As16()
		return AddrLen16, T16Ip, a[:], nil
	case addr.HostTypeSVC:
		raw := make([]byte, addrBytes(AddrLen4))
		binary.BigEndian.PutUint16(raw, uint16(host.SVC()))
		return AddrLen4, T4Svc, raw, nil
	}
	return 0, 0, nil, serrors.New("unsupported address", "addr", host)
}

func supportedAddrLen(l AddrLen) bool {
	return l == AddrLen4 || l == AddrLen16
}

func checkAddr(l AddrLen, raw []byte) error {
	if !supportedAddrLen(l) {
		return serrors.New("unsupported address length", "len", l)
	}
	if len(raw) != addrBytes(l) {
		return serrors.New("address does not match length", "len", l, "actual", len(raw))
	}
	return nil
}

// AddrHdrLen returns the length of the address header (destination and source ISD-AS-Host triples)
// in bytes.
func (s *SCION) AddrHdrLen() int {
	return 2*addr.IABytes + addrBytes(s.DstAddrLen) + addrBytes(s.SrcAddrLen)
}

// SerializeAddrHdr serializes destination and source ISD-AS-Host address triples into the provided
// buffer. The caller must ensure that the correct address types and lengths are set in the SCION
// layer, otherwise the results of this method are undefined.
func (s *SCION) SerializeAddrHdr(buf []byte) error {
	if len(buf) < s.AddrHdrLen() {
		return serrors.New("provided buffer is too small", "expected", s.AddrHdrLen(),
			"actual", len(buf))
	}
	dstAddrBytes := addrBytes(s.DstAddrLen)
	srcAddrBytes := addrBytes(s.SrcAddrLen)
	offset := 0
	s.DstIA.Write(buf[offset:])
	offset += addr.IABytes
	s.SrcIA.Write(buf[offset:])
	offset += addr.IABytes
	copy(buf[offset:offset+dstAddrBytes], s.RawDstAddr)
	offset += dstAddrBytes
	copy(buf[offset:offset+srcAddrBytes], s.RawSrcAddr)
	return nil
}

// DecodeAddrHdr decodes the destination and source ISD-AS-Host address triples from the provided
// buffer. The caller must ensure that the correct address types and lengths are set in the SCION
// layer, otherwise the results of this method are undefined.
func (s *SCION) DecodeAddrHdr(data []byte) error {
	if len(data) < s.AddrHdrLen() {
		return serrors.New("provided buffer is too small", "expected", s.AddrHdrLen(),
			"actual", len(data))
	}
	offset := 0
	s.DstIA = addr.IAFromRaw(data[offset:])
	offset += addr.IABytes
	s.SrcIA = addr.IAFromRaw(data[offset:])
	offset += addr.IABytes
	dstAddrBytes := addrBytes(s.DstAddrLen)
	srcAddrBytes := addrBytes(s.SrcAddrLen)
	s.RawDstAddr = data[offset : offset+dstAddrBytes]
	offset += dstAddrBytes
	s.RawSrcAddr = data[offset : offset+srcAddrBytes]
	return nil
}

func addrBytes(addrLen AddrLen) int {
	return int(addrLen+1) * LineLen
}

// computeChecksum computes the checksum of upperLayer with the SCION pseudo
// header. The pseudo header consists of the address header, the length of the
// upper layer and its protocol type.
func (s *SCION) computeChecksum(upperLayer []byte, protocol L4ProtocolType) (uint16, error) {
	if len(s.RawDstAddr) == 0 {
		return 0, serrors.New("destination address missing")
	}
	if len(s.RawSrcAddr) == 0 {
		return 0, serrors.New("source address missing")
	}
	pseudo := make([]byte, s.AddrHdrLen()+8)
	if err := s.SerializeAddrHdr(pseudo); err != nil {
		return 0, err
	}
	offset := s.AddrHdrLen()
	binary.BigEndian.PutUint32(pseudo[offset:], uint32(len(upperLayer)))
	pseudo[offset+7] = uint8(protocol)
	return util.Checksum(pseudo, upperLayer), nil
}

func (s *SCION) String() string {
	return fmt.Sprintf("Version=%d TrafficClass=%d FlowID=%d NextHdr=%s HdrLen=%d "+
		"PayloadLen=%d PathType=%s Dst=%s,%x Src=%s,%x",
		s.Version, s.TrafficClass, s.FlowID, s.NextHdr, s.HdrLen, s.PayloadLen, s.PathType,
		s.DstIA, s.RawDstAddr, s.SrcIA, s.RawSrcAddr)
}
