// Copyright 2025 ETH Zurich
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
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// Transport is the datagram underlay a Conn sends SCION packets over.
type Transport interface {
	// Bind opens the transport on the local address. A zero address binds
	// all interfaces on an ephemeral port.
	Bind(local netip.AddrPort) error
	// Connect makes remote the default destination of WriteTo.
	Connect(remote netip.AddrPort) error
	// Disconnect removes the default destination.
	Disconnect() error
	// WriteTo sends b to dst. A zero dst sends to the connected remote.
	WriteTo(b []byte, dst netip.AddrPort) (int, error)
	// ReadFrom reads the next datagram into b. In non-blocking mode it
	// returns ErrNoData if no datagram is waiting.
	ReadFrom(b []byte) (int, netip.AddrPort, error)
	// SetBlocking switches between blocking and non-blocking reads.
	SetBlocking(blocking bool)
	// SetReadDeadline sets the deadline for blocking reads. A zero value
	// disables the deadline.
	SetReadDeadline(t time.Time) error
	// LocalAddr returns the bound local address, or the zero value.
	LocalAddr() netip.AddrPort
	// Close closes the transport and unblocks pending reads.
	Close() error
}

var errNotBound = serrors.New("transport not bound")

// UDPTransport is the default Transport over a UDP socket.
type UDPTransport struct {
	// Listen opens the socket. If nil, ListenUDP is used.
	Listen func(local netip.AddrPort) (UDPConn, error)

	nonBlocking atomic.Bool

	mtx    sync.Mutex
	conn   UDPConn
	remote netip.AddrPort
	closed bool
}

func (t *UDPTransport) Bind(local netip.AddrPort) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.closed {
		return net.ErrClosed
	}
	if t.conn != nil {
		return serrors.New("transport already bound", "local", t.conn.LocalAddr())
	}
	listen := t.Listen
	if listen == nil {
		listen = ListenUDP
	}
	conn, err := listen(local)
	if err != nil {
		return serrors.Wrap("opening UDP socket", err, "local", local)
	}
	t.conn = conn
	return nil
}

func (t *UDPTransport) Connect(remote netip.AddrPort) error {
	if !remote.IsValid() {
		return serrors.New("invalid remote address", "remote", remote)
	}
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.closed {
		return net.ErrClosed
	}
	t.remote = remote
	return nil
}

func (t *UDPTransport) Disconnect() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.remote = netip.AddrPort{}
	return nil
}

func (t *UDPTransport) WriteTo(b []byte, dst netip.AddrPort) (int, error) {
	t.mtx.Lock()
	conn, remote, closed := t.conn, t.remote, t.closed
	t.mtx.Unlock()
	switch {
	case closed:
		return 0, net.ErrClosed
	case conn == nil:
		return 0, errNotBound
	}
	if !dst.IsValid() {
		dst = remote
	}
	if !dst.IsValid() {
		return 0, serrors.New("no destination and transport not connected")
	}
	return conn.WriteToUDPAddrPort(b, dst)
}

func (t *UDPTransport) ReadFrom(b []byte) (int, netip.AddrPort, error) {
	t.mtx.Lock()
	conn, closed := t.conn, t.closed
	t.mtx.Unlock()
	switch {
	case closed:
		return 0, netip.AddrPort{}, net.ErrClosed
	case conn == nil:
		return 0, netip.AddrPort{}, errNotBound
	}
	if t.nonBlocking.Load() {
		n, from, err := readNonBlocking(conn, b)
		return n, unmapAddrPort(from), err
	}
	n, from, err := conn.ReadFromUDPAddrPort(b)
	return n, unmapAddrPort(from), err
}

func (t *UDPTransport) SetBlocking(blocking bool) {
	t.nonBlocking.Store(!blocking)
}

func (t *UDPTransport) SetReadDeadline(deadline time.Time) error {
	t.mtx.Lock()
	conn := t.conn
	t.mtx.Unlock()
	if conn == nil {
		return errNotBound
	}
	return conn.SetReadDeadline(deadline)
}

func (t *UDPTransport) LocalAddr() netip.AddrPort {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.conn == nil {
		return netip.AddrPort{}
	}
	udpAddr, ok := t.conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	return unmapAddrPort(udpAddr.AddrPort())
}

func (t *UDPTransport) Close() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

func unmapAddrPort(a netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(a.Addr().Unmap(), a.Port())
}
