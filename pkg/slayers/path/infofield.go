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

	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/private/util"
	"github.com/scionproto/scion-client/pkg/slayers/internal/bits"
)

// InfoLen is the size of an InfoField in bytes.
const InfoLen = 8

// InfoField is the InfoField used in the SCION and OneHop path types.
//
// InfoField has the following format:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|r r r r r r P C|      RSV      |             SegID             |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                           Timestamp                           |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type InfoField struct {
	// Peer is the peering flag. If set to true, then the forwarding path is built as a peering
	// path, which requires special processing on the dataplane.
	Peer bool
	// ConsDir is the construction direction flag. If set to true then the hop fields are arranged
	// in the direction they have been constructed during beaconing.
	ConsDir bool
	// SegID is a updatable field that is required for the MAC-chaining mechanism.
	SegID uint16
	// Timestamp created by the initiator of the corresponding beacon. The timestamp is expressed in
	// Unix time, and is encoded as an unsigned integer within 4 bytes with 1-second time
	// granularity. Combined with the ExpTime of a hop field it yields the hop's expiration.
	Timestamp uint32
}

const (
	infoPeerBit  = 6
	infoConsBit  = 7
	infoSegIDOff = 16
	infoTSOff    = 32
)

// DecodeFromBytes populates the fields from a raw buffer. The buffer must be of length >=
// path.InfoLen.
func (inf *InfoField) DecodeFromBytes(raw []byte) error {
	if len(raw) < InfoLen {
		return serrors.New("InfoField raw too short", "expected", InfoLen, "actual", len(raw))
	}
	w := binary.BigEndian.Uint64(raw)
	inf.Peer = bits.Flag64(w, infoPeerBit)
	inf.ConsDir = bits.Flag64(w, infoConsBit)
	inf.SegID = uint16(bits.Read64(w, infoSegIDOff, 16))
	inf.Timestamp = uint32(bits.Read64(w, infoTSOff, 32))
	return nil
}

// SerializeTo writes the fields into the provided buffer. The buffer must be of length >=
// path.InfoLen. Reserved bits are written as zero.
func (inf *InfoField) SerializeTo(b []byte) error {
	if len(b) < InfoLen {
		return serrors.New("buffer for InfoField too short", "expected", InfoLen,
			"actual", len(b))
	}
	var w uint64
	w = bits.SetFlag64(w, infoPeerBit, inf.Peer)
	w = bits.SetFlag64(w, infoConsBit, inf.ConsDir)
	w = bits.Write64(w, infoSegIDOff, 16, uint64(inf.SegID))
	w = bits.Write64(w, infoTSOff, 32, uint64(inf.Timestamp))
	binary.BigEndian.PutUint64(b, w)
	return nil
}

func (inf InfoField) String() string {
	return fmt.Sprintf("{Peer: %t, ConsDir: %t, SegID: %d, Timestamp: %s}",
		inf.Peer, inf.ConsDir, inf.SegID, util.TimeToCompact(util.SecsToTime(inf.Timestamp)))
}
