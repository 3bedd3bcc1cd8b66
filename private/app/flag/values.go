// Copyright 2021 Anapaya Systems
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

// Package flag contains pflag values for SCION types and the command line
// environment of the client.
package flag

import (
	"net/netip"
	"time"

	"github.com/spf13/pflag"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/util"
)

var (
	_ pflag.Value = (*stringVal)(nil)
	_ pflag.Value = (*iaVal)(nil)
	_ pflag.Value = (*ipVal)(nil)
	_ pflag.Value = (*durationVal)(nil)
)

type stringVal string

func (v *stringVal) Set(val string) error {
	*v = stringVal(val)
	return nil
}

func (v *stringVal) Type() string   { return "string" }
func (v *stringVal) String() string { return string(*v) }

type iaVal addr.IA

// IA returns a flag value that parses an ISD-AS into ia.
func IA(ia *addr.IA) pflag.Value {
	return (*iaVal)(ia)
}

func (v *iaVal) Set(val string) error {
	ia, err := addr.ParseIA(val)
	if err != nil {
		return err
	}
	*v = iaVal(ia)
	return nil
}

func (v *iaVal) Type() string   { return "isd-as" }
func (v *iaVal) String() string { return addr.IA(*v).String() }

type ipVal netip.Addr

// IP returns a flag value that parses an IP address into ip.
func IP(ip *netip.Addr) pflag.Value {
	return (*ipVal)(ip)
}

func (v *ipVal) Set(val string) error {
	ip, err := netip.ParseAddr(val)
	if err != nil {
		return err
	}
	*v = ipVal(ip.Unmap())
	return nil
}

func (v *ipVal) Type() string { return "ip" }

func (v *ipVal) String() string {
	if !netip.Addr(*v).IsValid() {
		return ""
	}
	return netip.Addr(*v).String()
}

type durationVal time.Duration

// Duration returns a flag value that parses a duration into d with the
// default value def. Besides the units of time.ParseDuration, days ("d"),
// weeks ("w") and years ("y") are accepted, fractional values are not.
func Duration(d *time.Duration, def time.Duration) pflag.Value {
	*d = def
	return (*durationVal)(d)
}

func (v *durationVal) Set(val string) error {
	d, err := util.ParseDuration(val)
	if err != nil {
		return err
	}
	*v = durationVal(d)
	return nil
}

func (v *durationVal) Type() string { return "duration" }

func (v *durationVal) String() string {
	return util.FmtDuration(time.Duration(*v))
}
