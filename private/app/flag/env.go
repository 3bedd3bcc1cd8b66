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

package flag

import (
	"net/netip"
	"os"
	"sync"

	"github.com/spf13/pflag"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// Environment variables that override the configuration file.
const (
	EnvConfig    = "SCION_CONFIG"
	EnvIA        = "SCION_ISD_AS"
	EnvLocalAddr = "SCION_LOCAL_ADDR"
)

// ClientEnvironment gives access to the values that locate the client: the
// configuration file, the local ISD-AS and the local IP address. Each value
// is taken from the first of the following sources that sets it:
//  1. Command line flag
//  2. Environment variable
//  3. The fallback passed by the caller, usually the configuration file.
type ClientEnvironment struct {
	configFile string
	configFlag *pflag.Flag
	configEnv  *string
	ia         addr.IA
	iaFlag     *pflag.Flag
	iaEnv      *addr.IA
	local      netip.Addr
	localFlag  *pflag.Flag
	localEnv   *netip.Addr

	mtx sync.Mutex
}

// Register registers the command line flags. This should be called when
// command line flags are set up, before any command that accesses the values
// is called. It is safe to not call this at all, which means command line
// flag values are not considered.
func (e *ClientEnvironment) Register(flagSet *pflag.FlagSet) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	e.configFlag = flagSet.VarPF((*stringVal)(&e.configFile), "config", "",
		"Configuration file (TOML). Without it, the default configuration is used.")
	e.iaFlag = flagSet.VarPF(IA(&e.ia), "isd-as", "",
		"The local ISD-AS to use.")
	e.localFlag = flagSet.VarPF(IP(&e.local), "local", "l",
		"Local IP address to listen on.")
}

// LoadExternalVars loads the values of the environment variables. Parsing
// errors are reported, missing variables are not.
func (e *ClientEnvironment) LoadExternalVars() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if c, ok := os.LookupEnv(EnvConfig); ok {
		e.configEnv = &c
	}
	if v, ok := os.LookupEnv(EnvIA); ok {
		ia, err := addr.ParseIA(v)
		if err != nil {
			return serrors.Wrap("parsing "+EnvIA, err)
		}
		e.iaEnv = &ia
	}
	if v, ok := os.LookupEnv(EnvLocalAddr); ok {
		a, err := netip.ParseAddr(v)
		if err != nil {
			return serrors.Wrap("parsing "+EnvLocalAddr, err)
		}
		e.localEnv = &a
	}
	return nil
}

// ConfigFile returns the configuration file. It is empty if none is set.
func (e *ClientEnvironment) ConfigFile() string {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.configFlag != nil && e.configFlag.Changed {
		return e.configFile
	}
	if e.configEnv != nil {
		return *e.configEnv
	}
	return ""
}

// IA returns the local ISD-AS, or fallback if neither the flag nor the
// environment variable is set.
func (e *ClientEnvironment) IA(fallback addr.IA) addr.IA {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.iaFlag != nil && e.iaFlag.Changed {
		return e.ia
	}
	if e.iaEnv != nil {
		return *e.iaEnv
	}
	return fallback
}

// Local returns the local IP to listen on, or fallback if neither the flag
// nor the environment variable is set.
func (e *ClientEnvironment) Local(fallback netip.Addr) netip.Addr {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.localFlag != nil && e.localFlag.Changed {
		return e.local
	}
	if e.localEnv != nil {
		return *e.localEnv
	}
	return fallback
}
