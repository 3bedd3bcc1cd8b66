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

	"github.com/gopacket/gopacket"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// Sizes of the fixed part of the SCMP message bodies. Whatever follows the
// fixed part is the payload: the quoted packet for errors, the echoed data
// for echo messages.
const (
	scmpIfIDLen        = 8
	scmpEchoLen        = 4
	scmpReservedU16Len = 4
	scmpUnusedLen      = 4
	scmpExtIfDownLen   = addr.IABytes + scmpIfIDLen
	scmpIntConnDownLen = addr.IABytes + 2*scmpIfIDLen
	scmpTracerouteLen  = 4 + addr.IABytes + scmpIfIDLen
)

// scmpBody is embedded by every SCMP message body.
type scmpBody struct {
	BaseLayer
}

// NextLayerType returns the layer type contained by this DecodingLayer.
func (*scmpBody) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

// split checks that data holds a fixed part of n bytes and sets the contents
// and the payload of the layer.
func (b *scmpBody) split(data []byte, n int, df gopacket.DecodeFeedback) error {
	if len(data) < n {
		df.SetTruncated()
		return serrors.WrapNoStack("SCMP message body too short", ErrMalformed,
			"minimum_length", n, "actual", len(data))
	}
	b.BaseLayer = BaseLayer{Contents: data[:n], Payload: data[n:]}
	return nil
}

// scmpMessage is implemented by the pointer types of the SCMP message bodies.
type scmpMessage interface {
	gopacket.Layer
	DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error
}

// decodeSCMPMessage is the gopacket decoder of the message body T.
func decodeSCMPMessage[T any, P interface {
	*T
	scmpMessage
}](data []byte, pb gopacket.PacketBuilder) error {

	msg := P(new(T))
	if err := msg.DecodeFromBytes(data, pb); err != nil {
		return err
	}
	pb.AddLayer(msg)
	return pb.NextDecoder(gopacket.LayerTypePayload)
}

// SCMPDestinationUnreachable is the body of a destination unreachable error.
// The first four bytes are unused; the quote follows.
type SCMPDestinationUnreachable struct {
	scmpBody
}

func (*SCMPDestinationUnreachable) LayerType() gopacket.LayerType {
	return LayerTypeSCMPDestinationUnreachable
}

func (*SCMPDestinationUnreachable) CanDecode() gopacket.LayerClass {
	return LayerTypeSCMPDestinationUnreachable
}

func (m *SCMPDestinationUnreachable) DecodeFromBytes(data []byte,
	df gopacket.DecodeFeedback) error {

	return m.split(data, scmpUnusedLen, df)
}

func (m *SCMPDestinationUnreachable) SerializeTo(b gopacket.SerializeBuffer,
	_ gopacket.SerializeOptions) error {

	buf, err := b.PrependBytes(scmpUnusedLen)
	if err != nil {
		return err
	}
	clear(buf)
	return nil
}

// SCMPPacketTooBig is the body of a packet too big error.
//
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|            reserved           |             MTU               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type SCMPPacketTooBig struct {
	scmpBody
	MTU uint16
}

func (*SCMPPacketTooBig) LayerType() gopacket.LayerType {
	return LayerTypeSCMPPacketTooBig
}

func (*SCMPPacketTooBig) CanDecode() gopacket.LayerClass {
	return LayerTypeSCMPPacketTooBig
}

func (m *SCMPPacketTooBig) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if err := m.split(data, scmpReservedU16Len, df); err != nil {
		return err
	}
	m.MTU = binary.BigEndian.Uint16(data[2:])
	return nil
}

func (m *SCMPPacketTooBig) SerializeTo(b gopacket.SerializeBuffer,
	_ gopacket.SerializeOptions) error {

	return prependReservedU16(b, m.MTU)
}

// SCMPParameterProblem is the body of a parameter problem error. Pointer is
// the byte offset of the offending field in the quoted packet.
//
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|            reserved           |           Pointer             |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type SCMPParameterProblem struct {
	scmpBody
	Pointer uint16
}

func (*SCMPParameterProblem) LayerType() gopacket.LayerType {
	return LayerTypeSCMPParameterProblem
}

func (*SCMPParameterProblem) CanDecode() gopacket.LayerClass {
	return LayerTypeSCMPParameterProblem
}

func (m *SCMPParameterProblem) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if err := m.split(data, scmpReservedU16Len, df); err != nil {
		return err
	}
	m.Pointer = binary.BigEndian.Uint16(data[2:])
	return nil
}

func (m *SCMPParameterProblem) SerializeTo(b gopacket.SerializeBuffer,
	_ gopacket.SerializeOptions) error {

	return prependReservedU16(b, m.Pointer)
}

func prependReservedU16(b gopacket.SerializeBuffer, v uint16) error {
	buf, err := b.PrependBytes(scmpReservedU16Len)
	if err != nil {
		return err
	}
	buf[0], buf[1] = 0, 0
	binary.BigEndian.PutUint16(buf[2:], v)
	return nil
}

// SCMPExternalInterfaceDown is the body of an external interface down error.
// It names the AS and the interface that went down.
//
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|              ISD              |                               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+         AS                    +
//	|                                                               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                        Interface ID (64 bit)                  |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type SCMPExternalInterfaceDown struct {
	scmpBody
	IA   addr.IA
	IfID uint64
}

func (*SCMPExternalInterfaceDown) LayerType() gopacket.LayerType {
	return LayerTypeSCMPExternalInterfaceDown
}

func (*SCMPExternalInterfaceDown) CanDecode() gopacket.LayerClass {
	return LayerTypeSCMPExternalInterfaceDown
}

func (m *SCMPExternalInterfaceDown) DecodeFromBytes(data []byte,
	df gopacket.DecodeFeedback) error {

	if err := m.split(data, scmpExtIfDownLen, df); err != nil {
		return err
	}
	m.IA = addr.IAFromRaw(data)
	m.IfID = binary.BigEndian.Uint64(data[addr.IABytes:])
	return nil
}

func (m *SCMPExternalInterfaceDown) SerializeTo(b gopacket.SerializeBuffer,
	_ gopacket.SerializeOptions) error {

	buf, err := b.PrependBytes(scmpExtIfDownLen)
	if err != nil {
		return err
	}
	m.IA.Write(buf)
	binary.BigEndian.PutUint64(buf[addr.IABytes:], m.IfID)
	return nil
}

// SCMPInternalConnectivityDown is the body of an internal connectivity down
// error. It names the AS and the pair of interfaces that can no longer reach
// each other inside it.
//
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|              ISD              |                               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+         AS                    +
//	|                                                               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Ingress Interface ID (64 bit)              |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Egress Interface ID (64 bit)               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type SCMPInternalConnectivityDown struct {
	scmpBody
	IA      addr.IA
	Ingress uint64
	Egress  uint64
}

func (*SCMPInternalConnectivityDown) LayerType() gopacket.LayerType {
	return LayerTypeSCMPInternalConnectivityDown
}

func (*SCMPInternalConnectivityDown) CanDecode() gopacket.LayerClass {
	return LayerTypeSCMPInternalConnectivityDown
}

func (m *SCMPInternalConnectivityDown) DecodeFromBytes(data []byte,
	df gopacket.DecodeFeedback) error {

	if err := m.split(data, scmpIntConnDownLen, df); err != nil {
		return err
	}
	m.IA = addr.IAFromRaw(data)
	m.Ingress = binary.BigEndian.Uint64(data[addr.IABytes:])
	m.Egress = binary.BigEndian.Uint64(data[addr.IABytes+scmpIfIDLen:])
	return nil
}

func (m *SCMPInternalConnectivityDown) SerializeTo(b gopacket.SerializeBuffer,
	_ gopacket.SerializeOptions) error {

	buf, err := b.PrependBytes(scmpIntConnDownLen)
	if err != nil {
		return err
	}
	m.IA.Write(buf)
	binary.BigEndian.PutUint64(buf[addr.IABytes:], m.Ingress)
	binary.BigEndian.PutUint64(buf[addr.IABytes+scmpIfIDLen:], m.Egress)
	return nil
}

// SCMPEcho is the body of echo requests and replies. The echoed data is the
// layer payload.
//
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|           Identifier          |        Sequence Number        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type SCMPEcho struct {
	scmpBody
	Identifier uint16
	SeqNumber  uint16
}

func (*SCMPEcho) LayerType() gopacket.LayerType {
	return LayerTypeSCMPEcho
}

func (*SCMPEcho) CanDecode() gopacket.LayerClass {
	return LayerTypeSCMPEcho
}

func (m *SCMPEcho) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if err := m.split(data, scmpEchoLen, df); err != nil {
		return err
	}
	m.Identifier = binary.BigEndian.Uint16(data)
	m.SeqNumber = binary.BigEndian.Uint16(data[2:])
	return nil
}

func (m *SCMPEcho) SerializeTo(b gopacket.SerializeBuffer, _ gopacket.SerializeOptions) error {
	buf, err := b.PrependBytes(scmpEchoLen)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(buf, m.Identifier)
	binary.BigEndian.PutUint16(buf[2:], m.SeqNumber)
	return nil
}

// SCMPTraceroute is the body of traceroute requests and replies. Requests
// carry zero ISD-AS and interface fields. The router that sees an alert flag
// on its hop fills them in the reply.
//
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|           Identifier          |        Sequence Number        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|              ISD              |                               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+         AS                    +
//	|                                                               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                        Interface ID (64 bit)                  |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type SCMPTraceroute struct {
	scmpBody
	Identifier uint16
	Sequence   uint16
	IA         addr.IA
	Interface  uint64
}

func (*SCMPTraceroute) LayerType() gopacket.LayerType {
	return LayerTypeSCMPTraceroute
}

func (*SCMPTraceroute) CanDecode() gopacket.LayerClass {
	return LayerTypeSCMPTraceroute
}

func (m *SCMPTraceroute) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if err := m.split(data, scmpTracerouteLen, df); err != nil {
		return err
	}
	m.Identifier = binary.BigEndian.Uint16(data)
	m.Sequence = binary.BigEndian.Uint16(data[2:])
	m.IA = addr.IAFromRaw(data[4:])
	m.Interface = binary.BigEndian.Uint64(data[4+addr.IABytes:])
	return nil
}

func (m *SCMPTraceroute) SerializeTo(b gopacket.SerializeBuffer,
	_ gopacket.SerializeOptions) error {

	buf, err := b.PrependBytes(scmpTracerouteLen)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(buf, m.Identifier)
	binary.BigEndian.PutUint16(buf[2:], m.Sequence)
	m.IA.Write(buf[4:])
	binary.BigEndian.PutUint64(buf[4+addr.IABytes:], m.Interface)
	return nil
}
