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
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers/path"
)

// Raw is a raw representation of the SCION (data-plane) path type. It is designed to parse as
// little as possible and should be used if performance matters.
type Raw struct {
	Base
	Raw []byte
}

// DecodeFromBytes only decodes the PathMetaHeader. Otherwise the nothing is decoded and simply kept
// as raw bytes. The Raw field references data.
func (s *Raw) DecodeFromBytes(data []byte) error {
	if err := s.Base.DecodeFromBytes(data); err != nil {
		return err
	}
	pathLen := s.Len()
	if len(data) < pathLen {
		return serrors.New("RawPath raw too short", "expected", pathLen, "actual", len(data))
	}
	s.Raw = data[:pathLen]
	return nil
}

// SerializeTo writes the path to a slice. The slice must be big enough to hold the entire data,
// otherwise an error is returned.
func (s *Raw) SerializeTo(b []byte) error {
	if s.Raw == nil {
		return serrors.New("raw is nil")
	}
	if minLen := s.Len(); len(b) < minLen {
		return serrors.New("buffer too small", "expected", minLen, "actual", len(b))
	}
	// Reflect potential changes of the meta header in the copied bytes, without
	// writing to the referenced buffer.
	copy(b, s.Raw)
	return s.PathMeta.SerializeTo(b[:MetaLen])
}

// Reverse reverses the path such that it can be used in the reverse direction.
// The referenced buffer is overwritten with the reversed path.
func (s *Raw) Reverse() (path.Path, error) {
	// XXX(shitz): The current implementation is not the most performant, since it parses the entire
	// path first. If this becomes a performance bottleneck, the implementation should be changed to
	// work directly on the raw representation.
	decoded, err := s.ToDecoded()
	if err != nil {
		return nil, err
	}
	reversed, err := decoded.Reverse()
	if err != nil {
		return nil, err
	}
	if err := reversed.SerializeTo(s.Raw); err != nil {
		return nil, err
	}
	if err := s.DecodeFromBytes(s.Raw); err != nil {
		return nil, err
	}
	return s, nil
}

// ToDecoded transforms a scion.Raw to a scion.Decoded.
func (s *Raw) ToDecoded() (*Decoded, error) {
	b := make([]byte, s.Len())
	if err := s.SerializeTo(b); err != nil {
		return nil, err
	}
	decoded := &Decoded{}
	if err := decoded.DecodeFromBytes(b); err != nil {
		return nil, err
	}
	return decoded, nil
}

// Clone returns a deep copy of the path that does not share any memory with s.
func (s *Raw) Clone() (*Raw, error) {
	b := make([]byte, s.Len())
	if err := s.SerializeTo(b); err != nil {
		return nil, err
	}
	c := &Raw{}
	if err := c.DecodeFromBytes(b); err != nil {
		return nil, err
	}
	return c, nil
}

// GetInfoField decodes the info field with index idx.
func (s *Raw) GetInfoField(idx int) (path.InfoField, error) {
	var info path.InfoField
	if idx < 0 || idx >= s.NumINF {
		return info, serrors.New("InfoField index out of bounds", "max", s.NumINF-1, "actual", idx)
	}
	off := s.infoOffset(idx)
	err := info.DecodeFromBytes(s.Raw[off : off+path.InfoLen])
	return info, err
}

// GetHopField decodes the hop field with index idx.
func (s *Raw) GetHopField(idx int) (path.HopField, error) {
	var hop path.HopField
	if idx < 0 || idx >= s.NumHops {
		return hop, serrors.New("HopField index out of bounds", "max", s.NumHops-1, "actual", idx)
	}
	off := s.hopOffset(idx)
	err := hop.DecodeFromBytes(s.Raw[off : off+path.HopLen])
	return hop, err
}

// SetHopField overwrites the hop field with index idx in the referenced
// bytes. Use Clone first to leave the original path untouched.
func (s *Raw) SetHopField(hop path.HopField, idx int) error {
	if idx < 0 || idx >= s.NumHops {
		return serrors.New("HopField index out of bounds", "max", s.NumHops-1, "actual", idx)
	}
	off := s.hopOffset(idx)
	return hop.SerializeTo(s.Raw[off : off+path.HopLen])
}
