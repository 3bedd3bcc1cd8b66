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

package slayers

import (
	"github.com/gopacket/gopacket"

	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// extnBase is the part common to the hop-by-hop and end-to-end extensions.
// The options are kept as opaque bytes: an end host only skips them to reach
// the layer-4 header, it never emits extensions itself.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|    NextHdr    |     ExtLen    |        Options (opaque)       |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+                               +
//	|                                                               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type extnBase struct {
	BaseLayer
	NextHdr L4ProtocolType
	// ExtLen is the length of the extension header in multiple of 4-bytes NOT including the
	// first 4 bytes.
	ExtLen    uint8
	ActualLen int
	// OptionData holds the options following the NextHdr and ExtLen fields.
	OptionData []byte
}

func (e *extnBase) decode(data []byte, df gopacket.DecodeFeedback) error {
	*e = extnBase{}
	if len(data) < 2 {
		df.SetTruncated()
		return serrors.WrapNoStack("invalid extension header", ErrMalformed,
			"min", 2, "actual", len(data))
	}
	actual := (int(data[1]) + 1) * LineLen
	if len(data) < actual {
		df.SetTruncated()
		return serrors.WrapNoStack("extension header shorter than its length field",
			ErrMalformed, "ext_len", actual, "actual", len(data))
	}
	e.NextHdr = L4ProtocolType(data[0])
	e.ExtLen = data[1]
	e.ActualLen = actual
	e.Contents = data[:actual]
	e.Payload = data[actual:]
	e.OptionData = data[2:actual]
	return nil
}

// HopByHopExtnSkipper is a DecodingLayer which decodes a HopByHop extension
// without looking at its options. It can be used with a DecodingLayerParser
// to skip the extension on the way to the layer-4 header.
type HopByHopExtnSkipper struct {
	extnBase
}

// DecodeFromBytes implementation according to gopacket.DecodingLayer
func (s *HopByHopExtnSkipper) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if err := s.decode(data, df); err != nil {
		return err
	}
	if s.NextHdr == HopByHopClass {
		return serrors.WrapNoStack("hbh extension must not be repeated", ErrMalformed)
	}
	return nil
}

func (s *HopByHopExtnSkipper) LayerType() gopacket.LayerType {
	return LayerTypeHopByHopExtn
}

func (s *HopByHopExtnSkipper) CanDecode() gopacket.LayerClass {
	return LayerTypeHopByHopExtn
}

// NextLayerType returns the layer type contained by this DecodingLayer.
func (s *HopByHopExtnSkipper) NextLayerType() gopacket.LayerType {
	return scionNextLayerTypeAfterHBH(s.NextHdr)
}

// EndToEndExtnSkipper is a DecodingLayer which decodes an EndToEnd extension
// without looking at its options.
type EndToEndExtnSkipper struct {
	extnBase
}

// DecodeFromBytes implementation according to gopacket.DecodingLayer
func (e *EndToEndExtnSkipper) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if err := e.decode(data, df); err != nil {
		return err
	}
	switch e.NextHdr {
	case HopByHopClass:
		return serrors.WrapNoStack("e2e extension must not come before the HBH extension",
			ErrMalformed)
	case End2EndClass:
		return serrors.WrapNoStack("e2e extension must not be repeated", ErrMalformed)
	}
	return nil
}

func (e *EndToEndExtnSkipper) LayerType() gopacket.LayerType {
	return LayerTypeEndToEndExtn
}

func (e *EndToEndExtnSkipper) CanDecode() gopacket.LayerClass {
	return LayerTypeEndToEndExtn
}

// NextLayerType returns the layer type contained by this DecodingLayer.
func (e *EndToEndExtnSkipper) NextLayerType() gopacket.LayerType {
	return scionNextLayerTypeAfterE2E(e.NextHdr)
}
