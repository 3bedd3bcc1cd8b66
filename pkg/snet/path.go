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
	"slices"
	"strings"
	"time"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers/path/empty"
	"github.com/scionproto/scion-client/pkg/slayers/path/scion"
)

// Path is a path to a remote SCION/UDP end point that packets can be sent
// over.
type Path interface {
	// Destination is the address packets sent over the path are addressed to.
	Destination() addr.UDPAddr
	// Dataplane returns the path to put into the SCION header.
	Dataplane() RawPath
	// UnderlayNextHop is the underlay address of the first hop, i.e., where
	// the datagram is sent to.
	UnderlayNextHop() netip.AddrPort
}

// PathInterface is an interface of the path.
type PathInterface struct {
	// ID is the ID of the interface.
	ID uint64
	// IA is the ISD AS identifier of the interface.
	IA addr.IA
}

func (iface PathInterface) String() string {
	return fmt.Sprintf("%s#%d", iface.IA, iface.ID)
}

// LinkType describes the underlying connectivity of an inter-domain link.
type LinkType uint8

const (
	// LinkTypeUnset represents an unspecified link type.
	LinkTypeUnset LinkType = iota
	// LinkTypeDirect represents a direct physical connection.
	LinkTypeDirect
	// LinkTypeMultihop represents a connection with local routing/switching.
	LinkTypeMultihop
	// LinkTypeOpennet represents a connection overlayed over publicly routed
	// Internet.
	LinkTypeOpennet
)

func (lt LinkType) String() string {
	switch lt {
	case LinkTypeDirect:
		return "direct"
	case LinkTypeMultihop:
		return "multihop"
	case LinkTypeOpennet:
		return "opennet"
	default:
		return "unset"
	}
}

// GeoCoordinates is the geographic location of a router.
type GeoCoordinates struct {
	// Latitude of the geographic coordinate, in the WGS 84 datum.
	Latitude float32
	// Longitude of the geographic coordinate, in the WGS 84 datum.
	Longitude float32
	// Civic address of the location.
	Address string
}

// PathMetadata contains supplementary information about a path.
//
// The information about MTU, Latency, Bandwidth etc. are based solely on data
// contained in the AS entries in the path segments used to construct the
// path, and may not be accurate. A zero value in Latency or Bandwidth means
// that the value was not announced.
type PathMetadata struct {
	// Interfaces is a list of interfaces on the path.
	Interfaces []PathInterface
	// MTU is the maximum transmission unit for the path, in bytes.
	MTU uint16
	// Expiry is the expiration time of the path. The zero value means the
	// path does not expire.
	Expiry time.Time
	// Latency lists the latencies between any two consecutive interfaces.
	// Entry i describes the latency between interface i and i+1.
	Latency []time.Duration
	// Bandwidth lists the bandwidth between any two consecutive interfaces,
	// in Kbit/s. Entry i describes the bandwidth between interfaces i and
	// i+1.
	Bandwidth []uint64
	// Geo lists the geographical position of the border routers along the
	// path. Entry i describes the position of the router for interface i.
	Geo []GeoCoordinates
	// LinkType contains the announced link type of inter-domain links.
	// Entry i describes the link between interfaces 2*i and 2*i+1.
	LinkType []LinkType
	// InternalHops lists the number of AS internal hops for the ASes on the
	// path. Entry i describes the hop between interfaces 2*i+1 and 2*i+2.
	InternalHops []uint32
	// Notes contains the notes added by ASes on the path, in the order of
	// occurrence. Entry i is the note of AS i on the path.
	Notes []string
}

// Copy returns a deep copy of the metadata.
func (pm *PathMetadata) Copy() *PathMetadata {
	if pm == nil {
		return nil
	}
	return &PathMetadata{
		Interfaces:   slices.Clone(pm.Interfaces),
		MTU:          pm.MTU,
		Expiry:       pm.Expiry,
		Latency:      slices.Clone(pm.Latency),
		Bandwidth:    slices.Clone(pm.Bandwidth),
		Geo:          slices.Clone(pm.Geo),
		LinkType:     slices.Clone(pm.LinkType),
		InternalHops: slices.Clone(pm.InternalHops),
		Notes:        slices.Clone(pm.Notes),
	}
}

// ResolvedPath is a path obtained from path resolution. It is immutable, the
// With methods return modified copies.
type ResolvedPath struct {
	dst     addr.UDPAddr
	raw     []byte
	nextHop netip.AddrPort
	meta    PathMetadata
}

// NewResolvedPath creates a path to the destination AS from the raw SCION
// path bytes. An empty raw path is a path inside the local AS, the first hop
// is then the destination host itself and nextHop is ignored. Otherwise
// nextHop is the "ip:port" underlay address of the first border router.
func NewResolvedPath(dst addr.IA, raw []byte, nextHop string,
	meta PathMetadata) (*ResolvedPath, error) {

	p := &ResolvedPath{
		dst:  addr.UDPAddr{IA: dst},
		meta: *meta.Copy(),
	}
	if len(raw) == 0 {
		return p, nil
	}
	var decoded scion.Raw
	if err := decoded.DecodeFromBytes(raw); err != nil {
		return nil, serrors.Wrap("invalid raw path", err, "dst", dst)
	}
	if decoded.Len() != len(raw) {
		return nil, serrors.New("trailing bytes after raw path", "dst", dst,
			"path_len", decoded.Len(), "actual", len(raw))
	}
	hop, err := netip.ParseAddrPort(nextHop)
	if err != nil {
		return nil, serrors.Wrap("parsing next hop", err, "dst", dst, "next_hop", nextHop)
	}
	p.raw = slices.Clone(raw)
	p.nextHop = netip.AddrPortFrom(hop.Addr().Unmap(), hop.Port())
	return p, nil
}

// Destination returns the destination of the path. The host part is only
// set on paths returned by WithHost.
func (p *ResolvedPath) Destination() addr.UDPAddr {
	return p.dst
}

// Dataplane returns the raw path. The returned bytes must not be modified.
func (p *ResolvedPath) Dataplane() RawPath {
	if len(p.raw) == 0 {
		return RawPath{PathType: empty.PathType}
	}
	return RawPath{PathType: scion.PathType, Raw: p.raw}
}

// UnderlayNextHop returns the first hop of the path. For paths inside the
// local AS this is the destination host.
func (p *ResolvedPath) UnderlayNextHop() netip.AddrPort {
	if len(p.raw) == 0 {
		return p.dst.Host
	}
	return p.nextHop
}

// Metadata returns a copy of the path metadata.
func (p *ResolvedPath) Metadata() *PathMetadata {
	return p.meta.Copy()
}

// Expiry returns the expiration time of the path.
func (p *ResolvedPath) Expiry() time.Time {
	return p.meta.Expiry
}

// MTU returns the MTU of the path.
func (p *ResolvedPath) MTU() uint16 {
	return p.meta.MTU
}

// Interfaces returns the interfaces traversed by the path.
func (p *ResolvedPath) Interfaces() []PathInterface {
	return slices.Clone(p.meta.Interfaces)
}

// ISDs returns the ISDs traversed by the path, in order of first
// appearance. A path without interfaces stays in the ISD of the destination.
func (p *ResolvedPath) ISDs() []addr.ISD {
	if len(p.meta.Interfaces) == 0 {
		return []addr.ISD{p.dst.IA.ISD()}
	}
	var isds []addr.ISD
	for _, iface := range p.meta.Interfaces {
		if !slices.Contains(isds, iface.IA.ISD()) {
			isds = append(isds, iface.IA.ISD())
		}
	}
	return isds
}

// WithHost returns a copy of the path addressed at the given host in the
// destination AS.
func (p *ResolvedPath) WithHost(host netip.AddrPort) *ResolvedPath {
	c := *p
	c.dst.Host = netip.AddrPortFrom(host.Addr().Unmap(), host.Port())
	return &c
}

// WithRaw returns a copy of the path with different raw path bytes. The
// bytes are not copied and must not be modified afterwards.
func (p *ResolvedPath) WithRaw(raw []byte) *ResolvedPath {
	c := *p
	c.raw = raw
	return &c
}

func (p *ResolvedPath) String() string {
	hops := fmtInterfaces(p.meta.Interfaces)
	return fmt.Sprintf("Hops: [%s] MTU: %d NextHop: %s",
		strings.Join(hops, ">"), p.meta.MTU, p.UnderlayNextHop())
}

func fmtInterfaces(ifaces []PathInterface) []string {
	var hops []string
	if len(ifaces) == 0 {
		return hops
	}
	intf := ifaces[0]
	hops = append(hops, fmt.Sprintf("%s %d", intf.IA, intf.ID))
	for i := 1; i < len(ifaces)-1; i += 2 {
		inIntf := ifaces[i]
		outIntf := ifaces[i+1]
		hops = append(hops, fmt.Sprintf("%d %s %d", inIntf.ID, inIntf.IA, outIntf.ID))
	}
	intf = ifaces[len(ifaces)-1]
	hops = append(hops, fmt.Sprintf("%d %s", intf.ID, intf.IA))
	return hops
}
