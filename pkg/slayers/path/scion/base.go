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

// Package scion implements the standard SCION path type, made of a meta header
// followed by up to three info fields and up to 64 hop fields.
package scion

import (
	"encoding/binary"
	"fmt"

	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers/internal/bits"
	"github.com/scionproto/scion-client/pkg/slayers/path"
)

const (
	// MetaLen is the length of the PathMetaHeader.
	MetaLen = 4
	// MaxINFs is the maximum number of info fields in a SCION path.
	MaxINFs = 3
	// MaxHops is the maximum number of hop fields in a SCION path.
	MaxHops = 64
)

// PathType is the path type of SCION paths.
const PathType = path.TypeSCION

// Base holds the basic information that is used by both raw and fully decoded paths.
type Base struct {
	// PathMeta is the SCION path meta header. It is always instantiated when
	// decoding a path from bytes.
	PathMeta MetaHdr
	// NumINF is the number of InfoFields in the path.
	NumINF int
	// NumHops is the number HopFields in the path.
	NumHops int
}

// DecodeFromBytes decodes the meta header and derives the number of info and
// hop fields from it. Segments must be packed from the left, i.e. a segment
// length may only be non-zero if all preceding segment lengths are non-zero.
func (s *Base) DecodeFromBytes(data []byte) error {
	// PathMeta takes care of bounds check.
	if err := s.PathMeta.DecodeFromBytes(data); err != nil {
		return err
	}
	s.NumINF = 0
	s.NumHops = 0
	for i := MaxINFs - 1; i >= 0; i-- {
		if s.PathMeta.SegLen[i] == 0 && s.NumINF > 0 {
			return serrors.New(
				fmt.Sprintf("Meta.SegLen[%d] == 0, but Meta.SegLen[%d] > 0", i, s.NumINF-1))
		}
		if s.PathMeta.SegLen[i] > 0 && s.NumINF == 0 {
			s.NumINF = i + 1
		}
		s.NumHops += int(s.PathMeta.SegLen[i])
	}
	if s.NumHops > MaxHops {
		return serrors.New("too many hop fields", "max", MaxHops, "actual", s.NumHops)
	}
	if s.NumINF > 0 && (int(s.PathMeta.CurrINF) >= s.NumINF ||
		int(s.PathMeta.CurrHF) >= s.NumHops) {

		return serrors.New("path index out of range", "meta", s.PathMeta)
	}
	return nil
}

// IncPath increases the currHF index and currINF index if appropriate.
func (s *Base) IncPath() error {
	if s.NumINF == 0 {
		return serrors.New("empty path cannot be increased")
	}
	if int(s.PathMeta.CurrHF) >= s.NumHops-1 {
		s.PathMeta.CurrHF = uint8(s.NumHops - 1)
		return serrors.New("path already at end",
			"curr_hf", s.PathMeta.CurrHF, "num_hops", s.NumHops)
	}
	s.PathMeta.CurrHF++
	s.PathMeta.CurrINF = uint8(s.InfIndexForHF(int(s.PathMeta.CurrHF)))
	return nil
}

// InfIndexForHF returns the index of the info field, i.e. the segment, that
// the hop field with index hf belongs to. Indexes beyond the end of the path
// map to the last segment.
func (s *Base) InfIndexForHF(hf int) int {
	left := 0
	for i := 0; i < s.NumINF; i++ {
		if hf >= left && hf < left+int(s.PathMeta.SegLen[i]) {
			return i
		}
		left += int(s.PathMeta.SegLen[i])
	}
	return s.NumINF - 1
}

// Len returns the length of the path in bytes.
func (s *Base) Len() int {
	return s.hopOffset(s.NumHops)
}

// infoOffset is the byte offset of info field i in the serialized path.
func (s *Base) infoOffset(i int) int {
	return MetaLen + i*path.InfoLen
}

// hopOffset is the byte offset of hop field i in the serialized path. The hop
// fields follow the last info field.
func (s *Base) hopOffset(i int) int {
	return s.infoOffset(s.NumINF) + i*path.HopLen
}

// Type returns the type of the path.
func (s *Base) Type() path.Type {
	return PathType
}

// MetaHdr is the PathMetaHdr of a SCION (data-plane) path type.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	| C |  CurrHF   |    RSV    |  Seg0Len  |  Seg1Len  |  Seg2Len  |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type MetaHdr struct {
	CurrINF uint8
	CurrHF  uint8
	SegLen  [3]uint8
}

const (
	metaCurrINFOff = 0
	metaCurrHFOff  = 2
	metaSegLenOff  = 14
	metaSegLenBits = 6
)

// DecodeFromBytes populates the fields from a raw buffer. The buffer must be of length >=
// scion.MetaLen.
func (m *MetaHdr) DecodeFromBytes(raw []byte) error {
	if len(raw) < MetaLen {
		return serrors.New("MetaHdr raw too short", "expected", MetaLen, "actual", len(raw))
	}
	line := binary.BigEndian.Uint32(raw)
	m.CurrINF = uint8(bits.Read32(line, metaCurrINFOff, 2))
	m.CurrHF = uint8(bits.Read32(line, metaCurrHFOff, 6))
	for i := range m.SegLen {
		off := uint(metaSegLenOff + i*metaSegLenBits)
		m.SegLen[i] = uint8(bits.Read32(line, off, metaSegLenBits))
	}
	return nil
}

// SerializeTo writes the fields into the provided buffer. The buffer must be of length >=
// scion.MetaLen.
func (m *MetaHdr) SerializeTo(b []byte) error {
	if len(b) < MetaLen {
		return serrors.New("buffer for MetaHdr too short", "expected", MetaLen, "actual", len(b))
	}
	var line uint32
	line = bits.Write32(line, metaCurrINFOff, 2, uint32(m.CurrINF))
	line = bits.Write32(line, metaCurrHFOff, 6, uint32(m.CurrHF))
	for i, l := range m.SegLen {
		off := uint(metaSegLenOff + i*metaSegLenBits)
		line = bits.Write32(line, off, metaSegLenBits, uint32(l))
	}
	binary.BigEndian.PutUint32(b, line)
	return nil
}

func (m MetaHdr) String() string {
	return fmt.Sprintf("{CurrInf: %d, CurrHF: %d, SegLen: %v}", m.CurrINF, m.CurrHF, m.SegLen)
}
