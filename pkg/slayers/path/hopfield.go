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

package path

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers/internal/bits"
)

const (
	// HopLen is the size of a HopField in bytes.
	HopLen = 12
	// MacLen is the size of the MAC of each HopField.
	MacLen = 6
)

// MaxTTL is the maximum age of a HopField.
const MaxTTL = 24 * 60 * 60 // One day in seconds

// HopField is the HopField used in the SCION and OneHop path types.
//
// The Hop Field has the following format:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|r r r r r r I E|    ExpTime    |           ConsIngress         |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|        ConsEgress             |                               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+                               +
//	|                              MAC                              |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type HopField struct {
	// IngressRouterAlert flag. If the IngressRouterAlert is set, the ingress router (in
	// construction direction) will process the L4 payload in the packet.
	IngressRouterAlert bool
	// EgressRouterAlert flag. If the EgressRouterAlert is set, the egress router (in
	// construction direction) will process the L4 payload in the packet.
	EgressRouterAlert bool
	// Exptime is the expiry time of a HopField. The field is 1-byte long, thus there are 256
	// different values available to express an expiration time. The expiration time expressed by
	// the value of this field is relative, and an absolute expiration time in seconds is computed
	// in combination with the timestamp field (from the corresponding info field) as follows
	//
	// Timestamp + (1 + ExpTime) * (24*60*60)/256
	ExpTime uint8
	// ConsIngress is the ingress interface ID in construction direction.
	ConsIngress uint16
	// ConsEgress is the egress interface ID in construction direction.
	ConsEgress uint16
	// Mac is the 6-byte Message Authentication Code to authenticate the HopField. It is opaque
	// to end hosts.
	Mac [MacLen]byte
}

const (
	hopIngressAlertBit = 6
	hopEgressAlertBit  = 7
	hopExpTimeOff      = 8
	hopConsIngressOff  = 16
	hopConsEgressOff   = 32
)

// DecodeFromBytes populates the fields from a raw buffer. The buffer must be of length >=
// path.HopLen.
func (h *HopField) DecodeFromBytes(raw []byte) error {
	if len(raw) < HopLen {
		return serrors.New("HopField raw too short", "expected", HopLen, "actual", len(raw))
	}
	w := binary.BigEndian.Uint64(raw)
	h.IngressRouterAlert = bits.Flag64(w, hopIngressAlertBit)
	h.EgressRouterAlert = bits.Flag64(w, hopEgressAlertBit)
	h.ExpTime = uint8(bits.Read64(w, hopExpTimeOff, 8))
	h.ConsIngress = uint16(bits.Read64(w, hopConsIngressOff, 16))
	h.ConsEgress = uint16(bits.Read64(w, hopConsEgressOff, 16))
	copy(h.Mac[:], raw[6:6+MacLen])
	return nil
}

// SerializeTo writes the fields into the provided buffer. The buffer must be of length >=
// path.HopLen.
func (h *HopField) SerializeTo(b []byte) error {
	if len(b) < HopLen {
		return serrors.New("buffer for HopField too short", "expected", HopLen,
			"actual", len(b))
	}
	var w uint64
	w = bits.SetFlag64(w, hopIngressAlertBit, h.IngressRouterAlert)
	w = bits.SetFlag64(w, hopEgressAlertBit, h.EgressRouterAlert)
	w = bits.Write64(w, hopExpTimeOff, 8, uint64(h.ExpTime))
	w = bits.Write64(w, hopConsIngressOff, 16, uint64(h.ConsIngress))
	w = bits.Write64(w, hopConsEgressOff, 16, uint64(h.ConsEgress))
	// The first two MAC bytes share the word with the interface IDs.
	binary.BigEndian.PutUint64(b, w)
	copy(b[6:6+MacLen], h.Mac[:])
	return nil
}

// ExpirationTime returns the absolute expiration time of the hop field given
// the timestamp of the corresponding info field.
func (h *HopField) ExpirationTime(timestamp uint32) time.Time {
	secs := int64(timestamp) + (1+int64(h.ExpTime))*MaxTTL/256
	return time.Unix(secs, 0)
}

func (h HopField) String() string {
	return fmt.Sprintf("{I: %t, E: %t, ExpTime: %d, ConsIngress: %d, ConsEgress: %d, Mac: %x}",
		h.IngressRouterAlert, h.EgressRouterAlert, h.ExpTime, h.ConsIngress, h.ConsEgress,
		h.Mac[:])
}
