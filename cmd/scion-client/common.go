// Copyright 2022 Anapaya Systems
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

package main

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/netip"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/snet"
)

// Path is the output model of the path used by ping and traceroute.
type Path struct {
	// Hex-string representing the paths fingerprint.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	Hops        []Hop  `json:"hops" yaml:"hops"`
	Sequence    string `json:"sequence" yaml:"sequence"`
	MTU         uint16 `json:"mtu" yaml:"mtu"`
	Expiry      string `json:"expiry,omitempty" yaml:"expiry,omitempty"`

	LocalIP string `json:"local_ip,omitempty" yaml:"local_ip,omitempty"`

	// The underlay address of the SCION router that forwards traffic for
	// this path.
	NextHop string `json:"next_hop" yaml:"next_hop"`
}

// Hop represents an hop on the path.
type Hop struct {
	ID uint64  `json:"interface" yaml:"interface"`
	IA addr.IA `json:"isd_as" yaml:"isd_as"`
}

func newPath(p *snet.ResolvedPath, localIP netip.Addr) Path {
	out := Path{
		Fingerprint: fingerprint(p),
		Hops:        getHops(p),
		Sequence:    sequence(p),
		MTU:         p.MTU(),
		NextHop:     p.UnderlayNextHop().String(),
	}
	if exp := p.Expiry(); !exp.IsZero() {
		out.Expiry = exp.UTC().Format(time.RFC3339)
	}
	if localIP.IsValid() {
		out.LocalIP = localIP.String()
	}
	return out
}

// getHops constructs the list of hops of the path.
func getHops(p *snet.ResolvedPath) []Hop {
	ifaces := p.Interfaces()
	hops := make([]Hop, 0, len(ifaces))
	for _, intf := range ifaces {
		hops = append(hops, Hop{IA: intf.IA, ID: intf.ID})
	}
	return hops
}

// fingerprint uniquely identifies the path by the sequence of its
// interfaces. The empty path has an empty fingerprint.
func fingerprint(p *snet.ResolvedPath) string {
	ifaces := p.Interfaces()
	if len(ifaces) == 0 {
		return ""
	}
	h := sha256.New()
	for _, intf := range ifaces {
		_ = binary.Write(h, binary.BigEndian, uint64(intf.IA))
		_ = binary.Write(h, binary.BigEndian, intf.ID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// sequence formats the path as hop predicates, e.g.
// "1-ff00:0:110#0,4 1-ff00:0:111#1,0".
func sequence(p *snet.ResolvedPath) string {
	ifaces := p.Interfaces()
	if len(ifaces) == 0 {
		return ""
	}
	hops := make([]string, 0, len(ifaces)/2+1)
	hops = append(hops, fmt.Sprintf("%s#0,%d", ifaces[0].IA, ifaces[0].ID))
	for i := 1; i+1 < len(ifaces); i += 2 {
		hops = append(hops, fmt.Sprintf("%s#%d,%d", ifaces[i].IA, ifaces[i].ID, ifaces[i+1].ID))
	}
	last := ifaces[len(ifaces)-1]
	hops = append(hops, fmt.Sprintf("%s#%d,0", last.IA, last.ID))
	return strings.Join(hops, " ")
}

// parseDestination parses a destination of the form "isd-as,ip" or
// "isd-as,ip:port".
func parseDestination(s string) (addr.UDPAddr, error) {
	if a, err := addr.ParseUDPAddr(s); err == nil {
		return a, nil
	}
	rawIA, rawIP, ok := strings.Cut(s, ",")
	if !ok {
		return addr.UDPAddr{}, serrors.New("invalid destination: expected ISD-AS,IP",
			"destination", s)
	}
	ia, err := addr.ParseIA(rawIA)
	if err != nil {
		return addr.UDPAddr{}, serrors.Wrap("invalid destination ISD-AS", err,
			"destination", s)
	}
	ip, err := netip.ParseAddr(strings.Trim(rawIP, "[]"))
	if err != nil {
		return addr.UDPAddr{}, serrors.Wrap("invalid destination IP", err,
			"destination", s)
	}
	return addr.UDPAddr{IA: ia, Host: netip.AddrPortFrom(ip.Unmap(), 0)}, nil
}

// getPrintf returns a printf function for the "human" formatting flag and an
// empty one for machine readable format flags.
func getPrintf(output string, writer io.Writer) (func(format string, ctx ...any), error) {
	switch output {
	case "human":
		return func(format string, ctx ...any) {
			fmt.Fprintf(writer, format, ctx...)
		}, nil
	case "yaml", "json":
		return func(format string, ctx ...any) {}, nil
	default:
		return nil, serrors.New("format not supported", "format", output)
	}
}

// encode writes the result in the machine readable format.
func encode(w io.Writer, format string, res any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	case "yaml":
		return yaml.NewEncoder(w).Encode(res)
	default:
		return nil
	}
}

type durationMillis time.Duration

func (d durationMillis) String() string {
	return fmt.Sprintf("%.3fms", d.Millis())
}

func (d durationMillis) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.MillisRounded())
}

func (d durationMillis) MarshalYAML() (any, error) {
	return d.MillisRounded(), nil
}

// Millis returns the duration as a floating point number of milliseconds.
func (d durationMillis) Millis() float64 {
	return float64(d) / 1e6
}

// MillisRounded returns the duration as a floating point number of
// milliseconds, rounded to microseconds (3 digits precision).
func (d durationMillis) MillisRounded() float64 {
	return math.Round(float64(d)/1000) / 1000
}
