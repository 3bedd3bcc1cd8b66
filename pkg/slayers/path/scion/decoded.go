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

package scion

import (
	"slices"

	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers/path"
)

// Decoded is a SCION path with all info and hop fields parsed. The client
// uses it where it needs to look at or rewrite every field, e.g. to reverse
// a path. Raw is cheaper when only a few fields are accessed.
type Decoded struct {
	Base
	InfoFields []path.InfoField
	HopFields  []path.HopField
}

func (s *Decoded) DecodeFromBytes(data []byte) error {
	if err := s.Base.DecodeFromBytes(data); err != nil {
		return err
	}
	if len(data) < s.Len() {
		return serrors.New("decoded path too short", "expected", s.Len(), "actual", len(data))
	}
	s.InfoFields = make([]path.InfoField, s.NumINF)
	for i := range s.InfoFields {
		off := s.infoOffset(i)
		if err := s.InfoFields[i].DecodeFromBytes(data[off : off+path.InfoLen]); err != nil {
			return err
		}
	}
	s.HopFields = make([]path.HopField, s.NumHops)
	for i := range s.HopFields {
		off := s.hopOffset(i)
		if err := s.HopFields[i].DecodeFromBytes(data[off : off+path.HopLen]); err != nil {
			return err
		}
	}
	return nil
}

// SerializeTo writes the path to b, which must hold at least Len bytes.
func (s *Decoded) SerializeTo(b []byte) error {
	if len(b) < s.Len() {
		return serrors.New("buffer too small to serialize path", "expected", s.Len(),
			"actual", len(b))
	}
	if err := s.PathMeta.SerializeTo(b[:MetaLen]); err != nil {
		return err
	}
	for i, info := range s.InfoFields {
		off := s.infoOffset(i)
		if err := info.SerializeTo(b[off : off+path.InfoLen]); err != nil {
			return err
		}
	}
	for i, hop := range s.HopFields {
		off := s.hopOffset(i)
		if err := hop.SerializeTo(b[off : off+path.HopLen]); err != nil {
			return err
		}
	}
	return nil
}

// Reverse reverses the path in place, so that it leads back to the source.
// The segments and the hop fields are traversed from the end and every
// segment flips its construction direction. The current info and hop field
// indexes are mirrored: a path reversed twice equals the original.
func (s *Decoded) Reverse() (path.Path, error) {
	if s.NumINF == 0 {
		return nil, serrors.New("empty decoded path is invalid and cannot be reversed")
	}
	slices.Reverse(s.InfoFields)
	slices.Reverse(s.PathMeta.SegLen[:s.NumINF])
	for i := range s.InfoFields {
		s.InfoFields[i].ConsDir = !s.InfoFields[i].ConsDir
	}
	slices.Reverse(s.HopFields)
	s.PathMeta.CurrINF = uint8(s.NumINF) - s.PathMeta.CurrINF - 1
	s.PathMeta.CurrHF = uint8(s.NumHops) - s.PathMeta.CurrHF - 1
	return s, nil
}

// ToRaw returns a Raw path backed by a fresh copy of the serialized path.
func (s *Decoded) ToRaw() (*Raw, error) {
	b := make([]byte, s.Len())
	if err := s.SerializeTo(b); err != nil {
		return nil, err
	}
	raw := &Raw{}
	if err := raw.DecodeFromBytes(b); err != nil {
		return nil, err
	}
	return raw, nil
}
