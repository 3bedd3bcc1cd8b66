// Copyright 2016 ETH Zurich
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
	"strings"

	"github.com/scionproto/scion-client/pkg/private/serrors"
)

const (
	SvcDS       SVC = 0x0001
	SvcCS       SVC = 0x0002
	SvcWildcard SVC = 0x0010
	SvcNone     SVC = 0xffff

	SVCMcast SVC = 0x8000
)

// SVC is a SCION service address. End hosts never receive packets addressed
// to a service; the type exists so that such packets can be recognized.
type SVC uint16

// ParseSVC returns the SVC address corresponding to str. The suffix "_A"
// denotes anycast (also the default), "_M" multicast.
func ParseSVC(str string) (SVC, error) {
	var m SVC
	switch {
	case strings.HasSuffix(str, "_A"):
		str = strings.TrimSuffix(str, "_A")
	case strings.HasSuffix(str, "_M"):
		str = strings.TrimSuffix(str, "_M")
		m = SVCMcast
	}
	switch str {
	case "DS":
		return SvcDS | m, nil
	case "CS":
		return SvcCS | m, nil
	case "Wildcard":
		return SvcWildcard | m, nil
	default:
		return SvcNone, serrors.New("invalid service address", "value", str)
	}
}

func (h SVC) IsMulticast() bool {
	return (h & SVCMcast) != 0
}

// Base returns the SVC identifier with the multicast flag unset.
func (h SVC) Base() SVC {
	return h & ^SVCMcast
}

func (h SVC) String() string {
	var s string
	switch h.Base() {
	case SvcDS:
		s = "DS"
	case SvcCS:
		s = "CS"
	case SvcWildcard:
		s = "Wildcard"
	default:
		return fmt.Sprintf("<SVC:0x%04x>", uint16(h))
	}
	if h.IsMulticast() {
		s += "_M"
	}
	return s
}
