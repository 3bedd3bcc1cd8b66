// Copyright 2023 SCION Association
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

package addr

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// UDPAddr is the address of a SCION/UDP end point: an ISD-AS together with the
// IP address and port of the host inside that AS.
type UDPAddr struct {
	IA   IA
	Host netip.AddrPort
}

// ParseUDPAddr parses a SCION/UDP address of the form "isd-as,ip:port". IPv6
// addresses must be enclosed in brackets, e.g. "1-ff00:0:110,[::1]:40000".
func ParseUDPAddr(s string) (UDPAddr, error) {
	rawIA, rawHost, ok := strings.Cut(s, ",")
	if !ok {
		return UDPAddr{}, serrors.New("invalid address: expected ISD-AS,host:port",
			"value", s)
	}
	ia, err := ParseIA(rawIA)
	if err != nil {
		return UDPAddr{}, serrors.Wrap("invalid address: ISD-AS part", err, "value", s)
	}
	host, err := netip.ParseAddrPort(rawHost)
	if err != nil {
		return UDPAddr{}, serrors.Wrap("invalid address: host part", err, "value", s)
	}
	return UDPAddr{IA: ia, Host: netip.AddrPortFrom(host.Addr().Unmap(), host.Port())}, nil
}

// MustParseUDPAddr calls ParseUDPAddr(s) and panics on error. Intended for
// tests.
func MustParseUDPAddr(s string) UDPAddr {
	a, err := ParseUDPAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a UDPAddr) String() string {
	return fmt.Sprintf("%s,%s", a.IA, a.Host)
}

// Network implements net.Addr.
func (a UDPAddr) Network() string {
	return "scion+udp"
}

// Set implements flag.Value interface
func (a *UDPAddr) Set(s string) error {
	parsed, err := ParseUDPAddr(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
