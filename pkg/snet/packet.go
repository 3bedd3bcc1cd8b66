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

package snet

import (
	"fmt"

	"github.com/gopacket/gopacket"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers"
	"github.com/scionproto/scion-client/pkg/slayers/path"
	"github.com/scionproto/scion-client/pkg/slayers/path/empty"
	"github.com/scionproto/scion-client/pkg/slayers/path/onehop"
	"github.com/scionproto/scion-client/pkg/slayers/path/scion"
)

// SCIONAddress is the address of a SCION host: an ISD-AS and a host address
// inside that AS.
type SCIONAddress struct {
	IA   addr.IA
	Host addr.Host
}

func (a SCIONAddress) String() string {
	return fmt.Sprintf("%s,%s", a.IA, a.Host)
}

// Bytes contains the raw slices of data related to a packet. Most callers
// can safely ignore it. For performance-critical applications, callers should
// manually allocate/recycle the Bytes.
//
// Prior to serialization/decoding, the internal slice is reset to its full
// capacity, so be careful about passing in slices that have runoff data after
// their length.
//
// After a packet has been serialized/decoded, the length of Contents will be
// equal to the size of the entire packet data. The capacity remains unchanged.
//
// If Bytes is not initialized, space will be allocated during
// serialization/decoding.
type Bytes []byte

// Prepare readies a layer's storage for use.
//
// If the layer is not allocated, a backing buffer of maximum packet size is
// allocated.
//
// If the layer is already allocated, its length is reset to its capacity.
func (b *Bytes) Prepare() {
	if *b == nil {
		*b = make(Bytes, MaxPacketSize)
	}
	*b = (*b)[:cap(*b)]
}

// Payload is the payload of the message, use the different payload type to
// instantiate it.
type Payload interface {
	toLayers(scn *slayers.SCION) []gopacket.SerializableLayer
	length() int
}

// UDPPayload is a simple UDP payload.
type UDPPayload struct {
	SrcPort, DstPort uint16
	Payload          []byte
}

func (m UDPPayload) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	scn.NextHdr = slayers.L4UDP
	// The network layer is not set on purpose: SCION/UDP datagrams are sent
	// with a zero checksum.
	udp := slayers.UDP{
		SrcPort: m.SrcPort,
		DstPort: m.DstPort,
	}
	return []gopacket.SerializableLayer{&udp, gopacket.Payload(m.Payload)}
}

func (m UDPPayload) length() int {
	return slayers.UDPLen + len(m.Payload)
}

// RawPath is the unprocessed path of a SCION packet: the path type and the
// path bytes exactly as they appear on the wire.
//
// Received packets carry a RawPath in the Path field. A RawPath can also be
// used to send packets, it then decodes the path into the SCION header.
type RawPath struct {
	PathType path.Type
	Raw      []byte
}

// SetPath decodes the raw path into the path of the SCION header. The raw
// bytes are referenced, not copied.
func (r RawPath) SetPath(s *slayers.SCION) error {
	var p path.Path
	switch r.PathType {
	case empty.PathType:
		p = empty.Path{}
	case scion.PathType:
		p = &scion.Raw{}
	case onehop.PathType:
		p = &onehop.Path{}
	default:
		return serrors.WrapNoStack("unsupported path type", slayers.ErrUnsupported,
			"type", r.PathType)
	}
	if err := p.DecodeFromBytes(r.Raw); err != nil {
		return serrors.JoinNoStack(slayers.ErrMalformed, err, "type", r.PathType)
	}
	s.Path = p
	s.PathType = r.PathType
	return nil
}

// DataplanePath is the path put into the SCION header of an outgoing packet.
type DataplanePath interface {
	SetPath(s *slayers.SCION) error
}

// PacketInfo contains the data needed to construct a SCION packet.
//
// This is a high-level structure, and can only be used to create valid
// packets. The documentation for each field specifies cases where
// serialization might fail due to some violation of SCION protocol rules.
type PacketInfo struct {
	// Destination contains the destination address.
	Destination SCIONAddress
	// Source contains the source address. If it is an SVC address, packet
	// serialization will return an error.
	Source SCIONAddress
	// Path contains a SCION forwarding path. This field must not be nil.
	Path DataplanePath
	// Payload is the Payload of the message.
	Payload Payload
}

// Packet describes a SCION packet.
type Packet struct {
	Bytes
	PacketInfo
}

// Decode decodes the Bytes buffer into PacketInfo. The decoded payloads
// reference the Bytes buffer.
//
// Errors are classified with slayers.ErrMalformed and slayers.ErrUnsupported.
// A packet whose destination address type is not an IP address yields
// ErrNotHostDeliverable.
func (p *Packet) Decode() error {
	var (
		scionLayer slayers.SCION
		hbhLayer   slayers.HopByHopExtnSkipper
		e2eLayer   slayers.EndToEndExtnSkipper
		udpLayer   slayers.UDP
		scmpLayer  slayers.SCMP
	)
	parser := gopacket.NewDecodingLayerParser(
		slayers.LayerTypeSCION, &scionLayer, &hbhLayer, &e2eLayer, &udpLayer, &scmpLayer,
	)
	parser.IgnoreUnsupported = true
	decoded := make([]gopacket.LayerType, 0, 4)
	if err := parser.DecodeLayers(p.Bytes, &decoded); err != nil {
		return err
	}
	if len(decoded) == 0 {
		return serrors.WrapNoStack("SCION header not decoded", slayers.ErrMalformed)
	}
	l4 := decoded[len(decoded)-1]
	switch l4 {
	case slayers.LayerTypeSCIONUDP, slayers.LayerTypeSCMP:
	case slayers.LayerTypeSCION, slayers.LayerTypeHopByHopExtn, slayers.LayerTypeEndToEndExtn:
		nextHdr := lastNextHdr(&scionLayer, &hbhLayer, &e2eLayer, l4)
		if nextHdr == slayers.L4UDP || nextHdr == slayers.L4SCMP {
			return serrors.WrapNoStack("layer-4 header missing", slayers.ErrMalformed,
				"next_hdr", nextHdr)
		}
		return serrors.WrapNoStack("unsupported next header", slayers.ErrUnsupported,
			"next_hdr", nextHdr)
	default:
		return serrors.WrapNoStack("unknown L4 layer decoded", slayers.ErrUnsupported,
			"type", l4)
	}
	if len(decoded) > 2 && l4 != slayers.LayerTypeSCMP {
		return serrors.WrapNoStack("extension headers only supported with SCMP",
			slayers.ErrUnsupported, "type", l4)
	}
	// Type 0 is an IP address for both address lengths. Every other type
	// (service addresses and reserved types) is not delivered to a host.
	if scionLayer.DstAddrType != slayers.T4Ip {
		return serrors.WrapNoStack("destination is not a host address", ErrNotHostDeliverable,
			"type", scionLayer.DstAddrType, "len", scionLayer.DstAddrLen)
	}
	dstAddr, err := scionLayer.DstAddr()
	if err != nil {
		return serrors.WrapNoStack("parsing destination address", err)
	}
	srcAddr, err := scionLayer.SrcAddr()
	if err != nil {
		return serrors.WrapNoStack("parsing source address", err)
	}
	p.Destination = SCIONAddress{IA: scionLayer.DstIA, Host: dstAddr}
	p.Source = SCIONAddress{IA: scionLayer.SrcIA, Host: srcAddr}

	rpath := RawPath{
		PathType: scionLayer.Path.Type(),
	}
	if l := scionLayer.Path.Len(); l != 0 {
		rpath.Raw = make([]byte, l)
		if err := scionLayer.Path.SerializeTo(rpath.Raw); err != nil {
			return serrors.Wrap("extracting path", err)
		}
	}
	p.Path = rpath

	switch l4 {
	case slayers.LayerTypeSCIONUDP:
		p.Payload = UDPPayload{
			SrcPort: udpLayer.SrcPort,
			DstPort: udpLayer.DstPort,
			Payload: udpLayer.Payload,
		}
	case slayers.LayerTypeSCMP:
		scmpLayer.SetNetworkLayerForChecksum(&scionLayer)
		if err := scmpLayer.VerifyChecksum(); err != nil {
			return err
		}
		pld, err := decodeSCMPPayload(&scmpLayer)
		if err != nil {
			return serrors.Wrap("decoding SCMP message", err, "src", p.Source)
		}
		p.Payload = pld
	}
	return nil
}

func lastNextHdr(scn *slayers.SCION, hbh *slayers.HopByHopExtnSkipper,
	e2e *slayers.EndToEndExtnSkipper, last gopacket.LayerType) slayers.L4ProtocolType {

	switch last {
	case slayers.LayerTypeHopByHopExtn:
		return hbh.NextHdr
	case slayers.LayerTypeEndToEndExtn:
		return e2e.NextHdr
	default:
		return scn.NextHdr
	}
}

// Serialize serializes the PacketInfo into the raw buffer of the packet.
func (p *Packet) Serialize() error {
	p.Prepare()
	if p.Payload == nil {
		return serrors.New("no payload set")
	}
	if p.Path == nil {
		return serrors.New("no path set")
	}
	var packetLayers []gopacket.SerializableLayer

	var scionLayer slayers.SCION
	scionLayer.Version = slayers.SCIONVersion
	// The traffic class is not used by end hosts. The flow ID only needs to
	// be non-zero to keep packets of one flow on the same router path.
	scionLayer.FlowID = 1
	scionLayer.DstIA = p.Destination.IA
	scionLayer.SrcIA = p.Source.IA
	if err := scionLayer.SetDstAddr(p.Destination.Host); err != nil {
		return serrors.Wrap("setting destination address", err)
	}
	if p.Source.Host.Type() == addr.HostTypeSVC {
		return serrors.New("service source address", "src", p.Source.Host)
	}
	if err := scionLayer.SetSrcAddr(p.Source.Host); err != nil {
		return serrors.Wrap("setting source address", err)
	}
	scionLayer.PayloadLen = uint16(p.Payload.length())

	// At this point all the fields in the SCION header apart from the path
	// and path type must be set already.
	if err := p.Path.SetPath(&scionLayer); err != nil {
		return serrors.Wrap("setting path", err)
	}

	packetLayers = append(packetLayers, &scionLayer)
	packetLayers = append(packetLayers, p.Payload.toLayers(&scionLayer)...)

	buffer := gopacket.NewSerializeBuffer()
	options := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	if err := gopacket.SerializeLayers(buffer, options, packetLayers...); err != nil {
		return err
	}
	if len(buffer.Bytes()) > cap(p.Bytes) {
		return serrors.New("packet size is bigger than max possible value",
			"size", len(buffer.Bytes()), "max", cap(p.Bytes))
	}
	copy(p.Bytes, buffer.Bytes())
	p.Bytes = p.Bytes[:len(buffer.Bytes())]
	return nil
}
