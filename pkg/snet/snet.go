// Copyright 2017 ETH Zurich
// Copyright 2019 ETH Zurich, Anapaya Systems
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

// Package snet implements a path-aware SCION/UDP channel on top of a plain UDP
// underlay.
//
// A Conn starts out unbound. It is bound either explicitly with Bind or
// implicitly on the first Send, and can then be connected to a single
// remote with Connect:
//
//	Unbound --Bind/Send--> Bound --Connect--> Connected
//	Connected --Disconnect--> Bound
//	any --Close--> Closed
//
// Every Send with a ResolvedPath checks the path expiry first. A path that
// expires within the configured margin is replaced by a fresh one obtained
// from the PathQuerier, filtered through the PathPolicy.
//
// Received packets are validated. In lenient mode malformed packets are
// dropped and counted, in strict mode the decoding error is returned to the
// caller. SCMP error messages are handed to the ErrorListener, if set.
package snet

import (
	"errors"
	"time"
)

const (
	// DefaultExpiryMargin is the default time before the expiry of a path at
	// which the path is refreshed.
	DefaultExpiryMargin = 10 * time.Second
	// MaxPacketSize is the size of the buffers used to send and receive
	// packets.
	MaxPacketSize = 9216
)

var (
	// ErrPathUnavailable indicates that no usable path to the destination
	// could be found.
	ErrPathUnavailable = errors.New("no path available")
	// ErrAlreadyConnected is returned by Connect on a connected Conn.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrAlreadyBound is returned by Bind on a bound Conn.
	ErrAlreadyBound = errors.New("already bound")
	// ErrNotBound is returned by Receive on a Conn that was never bound.
	ErrNotBound = errors.New("not bound")
	// ErrNotConnected is returned by operations that need a remote path when
	// the Conn is not connected and no path was given.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is returned by every operation on a closed Conn.
	ErrClosed = errors.New("connection closed")
	// ErrNotHostDeliverable indicates that a received packet has a service
	// address as destination and can not be delivered to an end host.
	ErrNotHostDeliverable = errors.New("packet not host deliverable")
	// ErrNoData is returned by non-blocking transports when no datagram is
	// waiting to be read.
	ErrNoData = errors.New("no data available")
)

// ConnConfig is the configuration of a Conn.
type ConnConfig struct {
	// StrictValidation makes Receive return decoding errors instead of
	// dropping malformed packets.
	StrictValidation bool
	// ExpiryMargin is the time before the path expiry at which a path is
	// refreshed on Send. Zero means DefaultExpiryMargin.
	ExpiryMargin time.Duration
	// NonBlocking makes Receive return immediately if no packet is waiting.
	NonBlocking bool
}

// InitDefaults sets the unset fields to their default values.
func (c *ConnConfig) InitDefaults() {
	if c.ExpiryMargin == 0 {
		c.ExpiryMargin = DefaultExpiryMargin
	}
}
