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
	"encoding/binary"
	"fmt"

	"github.com/gopacket/gopacket"

	"github.com/scionproto/scion-client/pkg/private/serrors"
)

const scmpHdrLen = 4

// scmpBodyLayers maps the SCMP types the client understands to the layer of
// their message body. Other types are decoded as opaque payload.
var scmpBodyLayers = map[SCMPType]gopacket.LayerType{
	SCMPTypeDestinationUnreachable:   LayerTypeSCMPDestinationUnreachable,
	SCMPTypePacketTooBig:             LayerTypeSCMPPacketTooBig,
	SCMPTypeParameterProblem:         LayerTypeSCMPParameterProblem,
	SCMPTypeExternalInterfaceDown:    LayerTypeSCMPExternalInterfaceDown,
	SCMPTypeInternalConnectivityDown: LayerTypeSCMPInternalConnectivityDown,
	SCMPTypeEchoRequest:              LayerTypeSCMPEcho,
	SCMPTypeEchoReply:                LayerTypeSCMPEcho,
	SCMPTypeTracerouteRequest:        LayerTypeSCMPTraceroute,
	SCMPTypeTracerouteReply:          LayerTypeSCMPTraceroute,
}

// SCMP is the SCMP header. The message body follows as the next layer.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|     Type      |     Code      |           Checksum            |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Message body (variable)                    |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// The checksum covers the SCION pseudo header, so the SCION layer must be set
// with SetNetworkLayerForChecksum before serializing with ComputeChecksums or
// calling VerifyChecksum.
type SCMP struct {
	BaseLayer
	TypeCode SCMPTypeCode
	Checksum uint16

	scn *SCION
}

func (s *SCMP) LayerType() gopacket.LayerType {
	return LayerTypeSCMP
}

func (s *SCMP) CanDecode() gopacket.LayerClass {
	return LayerTypeSCMP
}

// NextLayerType returns the layer of the message body, or
// gopacket.LayerTypePayload for unknown types.
func (s *SCMP) NextLayerType() gopacket.LayerType {
	if lt, ok := scmpBodyLayers[s.TypeCode.Type()]; ok {
		return lt
	}
	return gopacket.LayerTypePayload
}

func (s *SCMP) SetNetworkLayerForChecksum(scn *SCION) {
	s.scn = scn
}

func (s *SCMP) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	hdr, err := b.PrependBytes(scmpHdrLen)
	if err != nil {
		return err
	}
	s.TypeCode.SerializeTo(hdr)
	if opts.ComputeChecksums {
		hdr[2], hdr[3] = 0, 0
		if s.Checksum, err = s.checksum(b.Bytes()); err != nil {
			return err
		}
	}
	binary.BigEndian.PutUint16(hdr[2:], s.Checksum)
	return nil
}

func (s *SCMP) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < scmpHdrLen {
		df.SetTruncated()
		return serrors.WrapNoStack("SCMP header too short", ErrMalformed,
			"minimum", scmpHdrLen, "actual", len(data))
	}
	s.TypeCode = CreateSCMPTypeCode(SCMPType(data[0]), SCMPCode(data[1]))
	s.Checksum = binary.BigEndian.Uint16(data[2:])
	s.BaseLayer = BaseLayer{Contents: data[:scmpHdrLen], Payload: data[scmpHdrLen:]}
	return nil
}

// VerifyChecksum recomputes the checksum of the decoded message and compares
// it with the one on the wire.
func (s *SCMP) VerifyChecksum() error {
	msg := make([]byte, 0, len(s.Contents)+len(s.Payload))
	msg = append(append(msg, s.Contents...), s.Payload...)
	msg[2], msg[3] = 0, 0
	csum, err := s.checksum(msg)
	if err != nil {
		return err
	}
	if csum != s.Checksum {
		return serrors.WrapNoStack("SCMP checksum mismatch", ErrMalformed,
			"expected", csum, "actual", s.Checksum)
	}
	return nil
}

// checksum computes the checksum of msg, the SCMP message with a zero
// checksum field.
func (s *SCMP) checksum(msg []byte) (uint16, error) {
	if s.scn == nil {
		return 0, serrors.New("SCMP checksum needs the SCION header")
	}
	return s.scn.computeChecksum(msg, L4SCMP)
}

func (s *SCMP) String() string {
	return fmt.Sprintf("%s(%d)\nPayload: %s", &s.TypeCode, s.Checksum, s.Payload)
}

func decodeSCMP(data []byte, pb gopacket.PacketBuilder) error {
	scmp := &SCMP{}
	if err := scmp.DecodeFromBytes(data, pb); err != nil {
		return err
	}
	pb.AddLayer(scmp)
	return pb.NextDecoder(scmp.NextLayerType())
}
