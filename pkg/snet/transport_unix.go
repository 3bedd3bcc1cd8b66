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

//go:build unix

package snet

import (
	"errors"
	"net/netip"

	"golang.org/x/sys/unix"
)

// readNonBlocking performs a single recvfrom on the socket, which the Go
// runtime keeps in non-blocking mode.
func readNonBlocking(conn UDPConn, b []byte) (int, netip.AddrPort, error) {
	rc, err := conn.SyscallConn()
	if err != nil {
		return 0, netip.AddrPort{}, err
	}
	var (
		n    int
		from unix.Sockaddr
		rerr error
	)
	err = rc.Read(func(fd uintptr) bool {
		n, from, rerr = unix.Recvfrom(int(fd), b, 0)
		return true
	})
	if err != nil {
		return 0, netip.AddrPort{}, err
	}
	if rerr != nil {
		if errors.Is(rerr, unix.EAGAIN) || errors.Is(rerr, unix.EWOULDBLOCK) {
			return 0, netip.AddrPort{}, ErrNoData
		}
		return 0, netip.AddrPort{}, rerr
	}
	switch sa := from.(type) {
	case *unix.SockaddrInet4:
		return n, netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)), nil
	case *unix.SockaddrInet6:
		return n, netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port)), nil
	default:
		return n, netip.AddrPort{}, nil
	}
}
