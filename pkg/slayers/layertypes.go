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
	"strconv"

	"github.com/gopacket/gopacket"
)

var (
	LayerTypeSCION    = registerLayer(1000, "SCION", decodeSCION)
	LayerTypeSCIONUDP = registerLayer(1001, "SCION/UDP", decodeSCIONUDP)
	LayerTypeSCMP     = registerLayer(1002, "SCMP", decodeSCMP)

	LayerTypeHopByHopExtn = registerLayer(1003, "HopByHopExtn",
		decodeExtn[HopByHopExtnSkipper])
	LayerTypeEndToEndExtn = registerLayer(1004, "EndToEndExtn",
		decodeExtn[EndToEndExtnSkipper])

	LayerTypeSCMPExternalInterfaceDown = registerLayer(1005, "SCMPExternalInterfaceDown",
		decodeSCMPMessage[SCMPExternalInterfaceDown])
	LayerTypeSCMPInternalConnectivityDown = registerLayer(1006,
		"SCMPInternalConnectivityDown", decodeSCMPMessage[SCMPInternalConnectivityDown])
	LayerTypeSCMPParameterProblem = registerLayer(1007, "SCMPParameterProblem",
		decodeSCMPMessage[SCMPParameterProblem])
	LayerTypeSCMPDestinationUnreachable = registerLayer(1008, "SCMPDestinationUnreachable",
		decodeSCMPMessage[SCMPDestinationUnreachable])
	LayerTypeSCMPPacketTooBig = registerLayer(1009, "SCMPPacketTooBig",
		decodeSCMPMessage[SCMPPacketTooBig])
	LayerTypeSCMPEcho = registerLayer(1128, "SCMPEcho",
		decodeSCMPMessage[SCMPEcho])
	LayerTypeSCMPTraceroute = registerLayer(1130, "SCMPTraceroute",
		decodeSCMPMessage[SCMPTraceroute])

	// EndpointUDPPort is the endpoint type of the ports in a SCION/UDP
	// transport flow.
	EndpointUDPPort = gopacket.RegisterEndpointType(1005, gopacket.EndpointTypeMetadata{
		Name: "UDP",
		Formatter: func(b []byte) string {
			return strconv.Itoa(int(binary.BigEndian.Uint16(b)))
		},
	})
)

func registerLayer(num int, name string,
	decode func([]byte, gopacket.PacketBuilder) error) gopacket.LayerType {

	return gopacket.RegisterLayerType(num, gopacket.LayerTypeMetadata{
		Name:    name,
		Decoder: gopacket.DecodeFunc(decode),
	})
}

// decodeExtn is the gopacket decoder of the extension skipper T. Decoding
// continues with the layer named by the extension's next header.
func decodeExtn[T any, P interface {
	*T
	scmpMessage
	NextLayerType() gopacket.LayerType
}](data []byte, pb gopacket.PacketBuilder) error {

	extn := P(new(T))
	err := extn.DecodeFromBytes(data, pb)
	pb.AddLayer(extn)
	if err != nil {
		return err
	}
	return pb.NextDecoder(extn.NextLayerType())
}
