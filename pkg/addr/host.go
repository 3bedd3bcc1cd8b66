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
)

// HostAddrType discriminates between different types of Host addresses.
type HostAddrType uint8

const (
	HostTypeNone HostAddrType = iota
	HostTypeIP
	HostTypeSVC
)

func (t HostAddrType) String() string {
	switch t {
	case HostTypeNone:
		return "None"
	case HostTypeIP:
		return "IP"
	case HostTypeSVC:
		return "SVC"
	}
	return fmt.Sprintf("UNKNOWN (%d)", t)
}

// Host is the AS-local part of a SCION address. It is either an IP address or
// a service address. The zero value has type HostTypeNone.
type Host struct {
	ip  netip.Addr
	svc SVC
	t   HostAddrType
}

// ParseHost parses s as a service address (see ParseSVC) or, failing that, as
// an IPv4 or IPv6 address.
func ParseHost(s string) (Host, error) {
	if svc, err := ParseSVC(s); err == nil {
		return HostSVC(svc), nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return Host{}, err
	}
	return HostIP(ip), nil
}

// MustParseHost calls ParseHost(s) and panics on error. Intended for tests.
func MustParseHost(s string) Host {
	host, err := ParseHost(s)
	if err != nil {
		panic(err)
	}
	return host
}

// HostIP returns a Host of type HostTypeIP. IPv4-mapped IPv6 addresses are
// unmapped, so that they use the 4 byte wire encoding.
func HostIP(ip netip.Addr) Host {
	return Host{t: HostTypeIP, ip: ip.Unmap()}
}

// HostSVC returns a Host of type HostTypeSVC.
func HostSVC(svc SVC) Host {
	return Host{t: HostTypeSVC, svc: svc}
}

func (h Host) Type() HostAddrType {
	return h.t
}

// IP returns the IP address of h. It panics if h is not of type HostTypeIP.
func (h Host) IP() netip.Addr {
	if h.t != HostTypeIP {
		panic(fmt.Errorf("IP called on non-IP address: %d (%s)", h.t, h.t))
	}
	return h.ip
}

// SVC returns the service address of h. It panics if h is not of type
// HostTypeSVC.
func (h Host) SVC() SVC {
	if h.t != HostTypeSVC {
		panic(fmt.Errorf("SVC called on non-SVC address: %d (%s)", h.t, h.t))
	}
	return h.svc
}

func (h Host) String() string {
	switch h.t {
	case HostTypeIP:
		return h.ip.String()
	case HostTypeSVC:
		return h.svc.String()
	default:
		return "<None>"
	}
}

// Set implements flag.Value interface
func (h *Host) Set(s string) error {
	parsed, err := ParseHost(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
