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

// UDPLen is the length of the SCION/UDP header.
const UDPLen = 8

// UDP is the SCION/UDP header.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|            SrcPort            |            DstPort            |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|             Length            |            Checksum           |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// The checksum is only computed when the layer knows the SCION header it is
// wrapped in (see SetNetworkLayerForChecksum). Otherwise it is sent as 0,
// which receivers do not validate.
type UDP struct {
	BaseLayer
	SrcPort, DstPort uint16
	Length           uint16
	Checksum         uint16
	sPort, dPort     []byte
	scn              *SCION
}

func (u *UDP) LayerType() gopacket.LayerType {
	return LayerTypeSCIONUDP
}

func (u *UDP) CanDecode() gopacket.LayerClass {
	return LayerTypeSCIONUDP
}

func (u *UDP) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

func (u *UDP) TransportFlow() gopacket.Flow {
	return gopacket.NewFlow(EndpointUDPPort, u.sPort, u.dPort)
}

// DecodeFromBytes implements the gopacket.DecodingLayer.DecodeFromBytes method.
func (u *UDP) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < UDPLen {
		df.SetTruncated()
		return serrors.WrapNoStack("invalid UDP header", ErrMalformed,
			"min", UDPLen, "actual", len(data))
	}
	u.SrcPort = binary.BigEndian.Uint16(data[0:2])
	u.sPort = data[0:2]
	u.DstPort = binary.BigEndian.Uint16(data[2:4])
	u.dPort = data[2:4]
	u.Length = binary.BigEndian.Uint16(data[4:6])
	u.Checksum = binary.BigEndian.Uint16(data[6:8])
	u.BaseLayer = BaseLayer{Contents: data[:UDPLen]}
	switch {
	case u.Length >= UDPLen:
		hlen := int(u.Length)
		if hlen > len(data) {
			df.SetTruncated()
			return serrors.WrapNoStack("UDP length exceeds packet", ErrMalformed,
				"length", u.Length, "actual", len(data))
		}
		u.Payload = data[UDPLen:hlen]
	case u.Length == 0: // Jumbogram, use entire rest of data
		u.Payload = data[UDPLen:]
	default:
		return serrors.WrapNoStack("UDP length smaller than header", ErrMalformed,
			"length", u.Length)
	}
	return nil
}

func (u *UDP) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(UDPLen)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(bytes, u.SrcPort)
	binary.BigEndian.PutUint16(bytes[2:], u.DstPort)
	if opts.FixLengths {
		u.fixLengths(len(b.Bytes()))
	}
	binary.BigEndian.PutUint16(bytes[4:], u.Length)
	if opts.ComputeChecksums && u.scn != nil {
		// zero out checksum bytes
		bytes[6] = 0
		bytes[7] = 0
		u.Checksum, err = u.scn.computeChecksum(b.Bytes(), L4UDP)
		if err != nil {
			return err
		}
	}
	binary.BigEndian.PutUint16(bytes[6:], u.Checksum)
	return nil
}

func (u *UDP) fixLengths(length int) {
	if length > 65535 {
		u.Length = 0
		return
	}
	u.Length = uint16(length)
}

// SetNetworkLayerForChecksum tells this layer which network layer is wrapping it.
func (u *UDP) SetNetworkLayerForChecksum(scn *SCION) {
	u.scn = scn
}

func (u *UDP) String() string {
	return fmt.Sprintf("SrcPort=%d, DstPort=%d", u.SrcPort, u.DstPort)
}

func decodeSCIONUDP(data []byte, pb gopacket.PacketBuilder) error {
	u := &UDP{}
	err := u.DecodeFromBytes(data, pb)
	pb.AddLayer(u)
	pb.SetTransportLayer(u)
	if err != nil {
		return err
	}
	return pb.NextDecoder(gopacket.LayerTypePayload)
}
