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

package snet

import (
	"context"
	"fmt"

	"github.com/gopacket/gopacket"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers"
)

// SCMPPayload is the interface that all SCMP payloads must implement. It can be
// used to quickly check facts about an SCMP message.
type SCMPPayload interface {
	Payload
	// Type returns the type of the SCMP message as defined in slayers.
	Type() slayers.SCMPType
	// Code returns the code of the SCMP message as defined in slayers.
	Code() slayers.SCMPCode
}

// ErrorListener is informed about every SCMP error message a Conn receives.
// It is called synchronously from the receiving goroutine and must not block.
// The message may reference the receive buffer and must not be retained after
// the call returns.
type ErrorListener interface {
	OnSCMPError(ctx context.Context, msg SCMPPayload, from *ReplyPath)
}

// ErrorListenerFunc is a function adapter for ErrorListener.
type ErrorListenerFunc func(ctx context.Context, msg SCMPPayload, from *ReplyPath)

func (f ErrorListenerFunc) OnSCMPError(ctx context.Context, msg SCMPPayload, from *ReplyPath) {
	f(ctx, msg, from)
}

// RevocationHandler is informed about interfaces reported down by SCMP
// error messages.
type RevocationHandler interface {
	Revoke(ctx context.Context, ia addr.IA, ifID uint64) error
}

// SCMPDestinationUnreachable is the message that a destination is not
// reachable.
type SCMPDestinationUnreachable struct {
	code    slayers.SCMPCode
	Payload []byte
}

// NewSCMPDestinationUnreachable creates a destination unreachable message
// with the given code and quoted packet.
func NewSCMPDestinationUnreachable(code slayers.SCMPCode,
	quote []byte) SCMPDestinationUnreachable {

	return SCMPDestinationUnreachable{code: code, Payload: quote}
}

func (m SCMPDestinationUnreachable) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn, &slayers.SCMPDestinationUnreachable{}, m.Payload)
}

// Type returns the SCMP type.
func (SCMPDestinationUnreachable) Type() slayers.SCMPType {
	return slayers.SCMPTypeDestinationUnreachable
}

// Code returns the SCMP code.
func (m SCMPDestinationUnreachable) Code() slayers.SCMPCode { return m.code }

func (m SCMPDestinationUnreachable) length() int {
	return 8 + len(m.Payload)
}

// SCMPPacketTooBig indicates that a packet was too big.
type SCMPPacketTooBig struct {
	MTU     uint16
	Payload []byte
}

func (m SCMPPacketTooBig) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn, &slayers.SCMPPacketTooBig{MTU: m.MTU}, m.Payload)
}

// Type returns the SCMP type.
func (SCMPPacketTooBig) Type() slayers.SCMPType {
	return slayers.SCMPTypePacketTooBig
}

// Code returns the SCMP code.
func (SCMPPacketTooBig) Code() slayers.SCMPCode { return 0 }

func (m SCMPPacketTooBig) length() int {
	return 8 + len(m.Payload)
}

// SCMPParameterProblem is the SCMP parameter problem message.
type SCMPParameterProblem struct {
	code    slayers.SCMPCode
	Pointer uint16
	Payload []byte
}

// NewSCMPParameterProblem creates a parameter problem message pointing at
// the offending byte of the quoted packet.
func NewSCMPParameterProblem(code slayers.SCMPCode, pointer uint16,
	quote []byte) SCMPParameterProblem {

	return SCMPParameterProblem{code: code, Pointer: pointer, Payload: quote}
}

func (m SCMPParameterProblem) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn, &slayers.SCMPParameterProblem{
		Pointer: m.Pointer,
	}, m.Payload)
}

// Type returns the SCMP type.
func (SCMPParameterProblem) Type() slayers.SCMPType {
	return slayers.SCMPTypeParameterProblem
}

// Code returns the SCMP code.
func (m SCMPParameterProblem) Code() slayers.SCMPCode { return m.code }

func (m SCMPParameterProblem) length() int {
	return 8 + len(m.Payload)
}

// SCMPExternalInterfaceDown is the message that indicates that an interface is
// down.
type SCMPExternalInterfaceDown struct {
	IA        addr.IA
	Interface uint64
	Payload   []byte
}

func (m SCMPExternalInterfaceDown) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn,
		&slayers.SCMPExternalInterfaceDown{
			IA:   m.IA,
			IfID: m.Interface,
		},
		m.Payload,
	)
}

// Type returns the SCMP type.
func (SCMPExternalInterfaceDown) Type() slayers.SCMPType {
	return slayers.SCMPTypeExternalInterfaceDown
}

// Code returns the SCMP code.
func (SCMPExternalInterfaceDown) Code() slayers.SCMPCode { return 0 }

func (m SCMPExternalInterfaceDown) length() int {
	return 20 + len(m.Payload)
}

// SCMPInternalConnectivityDown is the message that an internal interface is
// down.
type SCMPInternalConnectivityDown struct {
	IA              addr.IA
	Ingress, Egress uint64
	Payload         []byte
}

func (m SCMPInternalConnectivityDown) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn,
		&slayers.SCMPInternalConnectivityDown{
			IA:      m.IA,
			Ingress: m.Ingress,
			Egress:  m.Egress,
		},
		m.Payload,
	)
}

// Type returns the SCMP type.
func (SCMPInternalConnectivityDown) Type() slayers.SCMPType {
	return slayers.SCMPTypeInternalConnectivityDown
}

// Code returns the SCMP code.
func (SCMPInternalConnectivityDown) Code() slayers.SCMPCode { return 0 }

func (m SCMPInternalConnectivityDown) length() int {
	return 28 + len(m.Payload)
}

// SCMPUnknownError is an SCMP error message of a type this package does not
// know. The message body is kept as opaque payload.
type SCMPUnknownError struct {
	typ     slayers.SCMPType
	code    slayers.SCMPCode
	Payload []byte
}

// NewSCMPUnknownError creates an error message of an arbitrary type. The type
// must be an error type, i.e., smaller than 128.
func NewSCMPUnknownError(typ slayers.SCMPType, code slayers.SCMPCode,
	body []byte) SCMPUnknownError {

	return SCMPUnknownError{typ: typ, code: code, Payload: body}
}

func (m SCMPUnknownError) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn, nil, m.Payload)
}

// Type returns the SCMP type.
func (m SCMPUnknownError) Type() slayers.SCMPType { return m.typ }

// Code returns the SCMP code.
func (m SCMPUnknownError) Code() slayers.SCMPCode { return m.code }

func (m SCMPUnknownError) length() int {
	return 4 + len(m.Payload)
}

// SCMPEchoRequest is the SCMP echo request payload.
type SCMPEchoRequest struct {
	Identifier uint16
	SeqNumber  uint16
	Payload    []byte
}

func (m SCMPEchoRequest) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn,
		&slayers.SCMPEcho{
			Identifier: m.Identifier,
			SeqNumber:  m.SeqNumber,
		},
		m.Payload,
	)
}

// Type returns the SCMP type.
func (SCMPEchoRequest) Type() slayers.SCMPType { return slayers.SCMPTypeEchoRequest }

// Code returns the SCMP code.
func (SCMPEchoRequest) Code() slayers.SCMPCode { return 0 }

func (m SCMPEchoRequest) length() int {
	return 8 + len(m.Payload)
}

// SCMPEchoReply is the SCMP echo reply payload.
type SCMPEchoReply struct {
	Identifier uint16
	SeqNumber  uint16
	Payload    []byte
}

func (m SCMPEchoReply) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn,
		&slayers.SCMPEcho{
			Identifier: m.Identifier,
			SeqNumber:  m.SeqNumber,
		},
		m.Payload,
	)
}

// Type returns the SCMP type.
func (SCMPEchoReply) Type() slayers.SCMPType { return slayers.SCMPTypeEchoReply }

// Code returns the SCMP code.
func (SCMPEchoReply) Code() slayers.SCMPCode { return 0 }

func (m SCMPEchoReply) length() int {
	return 8 + len(m.Payload)
}

// SCMPTracerouteRequest is the SCMP traceroute request payload.
type SCMPTracerouteRequest struct {
	Identifier uint16
	Sequence   uint16
}

func (m SCMPTracerouteRequest) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn,
		&slayers.SCMPTraceroute{
			Identifier: m.Identifier,
			Sequence:   m.Sequence,
		},
		nil,
	)
}

// Type returns the SCMP type.
func (SCMPTracerouteRequest) Type() slayers.SCMPType { return slayers.SCMPTypeTracerouteRequest }

// Code returns the SCMP code.
func (SCMPTracerouteRequest) Code() slayers.SCMPCode { return 0 }

func (m SCMPTracerouteRequest) length() int {
	return 24
}

// SCMPTracerouteReply is the SCMP traceroute reply payload.
type SCMPTracerouteReply struct {
	Identifier uint16
	Sequence   uint16
	IA         addr.IA
	Interface  uint64
}

func (m SCMPTracerouteReply) toLayers(scn *slayers.SCION) []gopacket.SerializableLayer {
	return toLayers(m, scn,
		&slayers.SCMPTraceroute{
			Identifier: m.Identifier,
			Sequence:   m.Sequence,
			IA:         m.IA,
			Interface:  m.Interface,
		},
		nil,
	)
}

// Type returns the SCMP type.
func (SCMPTracerouteReply) Type() slayers.SCMPType { return slayers.SCMPTypeTracerouteReply }

// Code returns the SCMP code.
func (SCMPTracerouteReply) Code() slayers.SCMPCode { return 0 }

func (m SCMPTracerouteReply) length() int {
	return 24
}

// IsSCMPError reports whether the message is an SCMP error message, as opposed
// to an informational one.
func IsSCMPError(msg SCMPPayload) bool {
	return !slayers.CreateSCMPTypeCode(msg.Type(), msg.Code()).InfoMsg()
}

// SCMPString formats the type and code of an SCMP message.
func SCMPString(msg SCMPPayload) string {
	return fmt.Sprint(slayers.CreateSCMPTypeCode(msg.Type(), msg.Code()))
}

func toLayers(scmpPld SCMPPayload,
	scn *slayers.SCION, details gopacket.SerializableLayer,
	payload []byte) []gopacket.SerializableLayer {

	scn.NextHdr = slayers.L4SCMP
	scmp := &slayers.SCMP{TypeCode: slayers.CreateSCMPTypeCode(scmpPld.Type(), scmpPld.Code())}
	scmp.SetNetworkLayerForChecksum(scn)
	l := []gopacket.SerializableLayer{scmp}
	if details != nil {
		l = append(l, details)
	}
	if payload != nil {
		l = append(l, gopacket.Payload(payload))
	}
	return l
}

// decodeSCMPPayload decodes the message following the SCMP header into the
// matching payload type.
func decodeSCMPPayload(scmpLayer *slayers.SCMP) (SCMPPayload, error) {
	typeCode := scmpLayer.TypeCode
	data := scmpLayer.Payload
	df := gopacket.NilDecodeFeedback
	switch typeCode.Type() {
	case slayers.SCMPTypeDestinationUnreachable:
		var v slayers.SCMPDestinationUnreachable
		if err := v.DecodeFromBytes(data, df); err != nil {
			return nil, err
		}
		return SCMPDestinationUnreachable{code: typeCode.Code(), Payload: v.Payload}, nil
	case slayers.SCMPTypePacketTooBig:
		var v slayers.SCMPPacketTooBig
		if err := v.DecodeFromBytes(data, df); err != nil {
			return nil, err
		}
		return SCMPPacketTooBig{MTU: v.MTU, Payload: v.Payload}, nil
	case slayers.SCMPTypeParameterProblem:
		var v slayers.SCMPParameterProblem
		if err := v.DecodeFromBytes(data, df); err != nil {
			return nil, err
		}
		return SCMPParameterProblem{
			code:    typeCode.Code(),
			Pointer: v.Pointer,
			Payload: v.Payload,
		}, nil
	case slayers.SCMPTypeExternalInterfaceDown:
		var v slayers.SCMPExternalInterfaceDown
		if err := v.DecodeFromBytes(data, df); err != nil {
			return nil, err
		}
		return SCMPExternalInterfaceDown{IA: v.IA, Interface: v.IfID, Payload: v.Payload}, nil
	case slayers.SCMPTypeInternalConnectivityDown:
		var v slayers.SCMPInternalConnectivityDown
		if err := v.DecodeFromBytes(data, df); err != nil {
			return nil, err
		}
		return SCMPInternalConnectivityDown{
			IA:      v.IA,
			Ingress: v.Ingress,
			Egress:  v.Egress,
			Payload: v.Payload,
		}, nil
	case slayers.SCMPTypeEchoRequest, slayers.SCMPTypeEchoReply:
		var v slayers.SCMPEcho
		if err := v.DecodeFromBytes(data, df); err != nil {
			return nil, err
		}
		if typeCode.Type() == slayers.SCMPTypeEchoRequest {
			return SCMPEchoRequest{
				Identifier: v.Identifier,
				SeqNumber:  v.SeqNumber,
				Payload:    v.Payload,
			}, nil
		}
		return SCMPEchoReply{
			Identifier: v.Identifier,
			SeqNumber:  v.SeqNumber,
			Payload:    v.Payload,
		}, nil
	case slayers.SCMPTypeTracerouteRequest, slayers.SCMPTypeTracerouteReply:
		var v slayers.SCMPTraceroute
		if err := v.DecodeFromBytes(data, df); err != nil {
			return nil, err
		}
		if typeCode.Type() == slayers.SCMPTypeTracerouteRequest {
			return SCMPTracerouteRequest{Identifier: v.Identifier, Sequence: v.Sequence}, nil
		}
		return SCMPTracerouteReply{
			Identifier: v.Identifier,
			Sequence:   v.Sequence,
			IA:         v.IA,
			Interface:  v.Interface,
		}, nil
	}
	if !typeCode.InfoMsg() {
		return SCMPUnknownError{typ: typeCode.Type(), code: typeCode.Code(), Payload: data}, nil
	}
	return nil, serrors.WrapNoStack("unhandled SCMP type", slayers.ErrUnsupported,
		"type_code", typeCode)
}
