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
	"net/netip"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers"
	"github.com/scionproto/scion-client/pkg/slayers/path"
	"github.com/scionproto/scion-client/pkg/slayers/path/empty"
	"github.com/scionproto/scion-client/pkg/slayers/path/onehop"
	"github.com/scionproto/scion-client/pkg/slayers/path/scion"
)

// ReversePath reverses a path read from a received packet such that it can
// be used to send a reply. The input is not modified. A reversed one hop path
// is a regular SCION path.
func ReversePath(rpath RawPath) (RawPath, error) {
	var p path.Path
	switch rpath.PathType {
	case empty.PathType:
		return RawPath{PathType: empty.PathType}, nil
	case scion.PathType:
		p = &scion.Raw{}
	case onehop.PathType:
		p = &onehop.Path{}
	default:
		return RawPath{}, serrors.WrapNoStack("unsupported path type", slayers.ErrUnsupported,
			"type", rpath.PathType)
	}
	// scion.Raw reverses in place, work on a copy.
	if err := p.DecodeFromBytes(append([]byte(nil), rpath.Raw...)); err != nil {
		return RawPath{}, serrors.JoinNoStack(slayers.ErrMalformed, err, "type", rpath.PathType)
	}
	reversed, err := p.Reverse()
	if err != nil {
		return RawPath{}, serrors.Wrap("reversing path", err)
	}
	raw := make([]byte, reversed.Len())
	if err := reversed.SerializeTo(raw); err != nil {
		return RawPath{}, serrors.Wrap("serializing reversed path", err)
	}
	return RawPath{PathType: reversed.Type(), Raw: raw}, nil
}

// ReplyPath is a path derived from a received packet. It leads back to the
// sender of that packet over the path the packet travelled.
type ReplyPath struct {
	dst     addr.UDPAddr
	local   addr.UDPAddr
	path    RawPath
	nextHop netip.AddrPort
}

// NewReplyPath creates a reply path. dst is the sender of the received
// packet, local is the address the packet was sent to, rpath is the already
// reversed path and nextHop is the underlay address the packet was received
// from.
func NewReplyPath(dst, local addr.UDPAddr, rpath RawPath,
	nextHop netip.AddrPort) *ReplyPath {

	return &ReplyPath{
		dst:     dst,
		local:   local,
		path:    rpath,
		nextHop: nextHop,
	}
}

// NewReplyPathFromPacket reverses the path of a received packet. The ports
// are taken from the UDP payload, SCMP packets get port 0.
func NewReplyPathFromPacket(pkt *Packet, from netip.AddrPort) (*ReplyPath, error) {
	rpath, ok := pkt.Path.(RawPath)
	if !ok {
		return nil, serrors.New("unexpected path type in received packet",
			"type", fmt.Sprintf("%T", pkt.Path))
	}
	if pkt.Source.Host.Type() != addr.HostTypeIP ||
		pkt.Destination.Host.Type() != addr.HostTypeIP {

		return nil, serrors.New("reply path needs IP host addresses",
			"src", pkt.Source, "dst", pkt.Destination)
	}
	reversed, err := ReversePath(rpath)
	if err != nil {
		return nil, err
	}
	var srcPort, dstPort uint16
	if udp, ok := pkt.Payload.(UDPPayload); ok {
		srcPort, dstPort = udp.SrcPort, udp.DstPort
	}
	return NewReplyPath(
		addr.UDPAddr{
			IA:   pkt.Source.IA,
			Host: netip.AddrPortFrom(pkt.Source.Host.IP(), srcPort),
		},
		addr.UDPAddr{
			IA:   pkt.Destination.IA,
			Host: netip.AddrPortFrom(pkt.Destination.Host.IP(), dstPort),
		},
		reversed,
		from,
	), nil
}

// Destination is the sender of the received packet.
func (p *ReplyPath) Destination() addr.UDPAddr {
	return p.dst
}

// Local is the address the received packet was sent to.
func (p *ReplyPath) Local() addr.UDPAddr {
	return p.local
}

// Dataplane returns the reversed path.
func (p *ReplyPath) Dataplane() RawPath {
	return p.path
}

// UnderlayNextHop returns the underlay address the received packet came from.
func (p *ReplyPath) UnderlayNextHop() netip.AddrPort {
	return p.nextHop
}

func (p *ReplyPath) String() string {
	return fmt.Sprintf("%s via %s (%s)", p.dst, p.nextHop, p.path.PathType)
}
