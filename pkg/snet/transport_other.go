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

//go:build !unix

package snet

import (
	"errors"
	"net/netip"
	"os"
	"time"
)

const nonBlockingPoll = time.Millisecond

// readNonBlocking polls the socket with a short deadline. It overrides any
// deadline set with SetReadDeadline.
func readNonBlocking(conn UDPConn, b []byte) (int, netip.AddrPort, error) {
	if err := conn.SetReadDeadline(time.Now().Add(nonBlockingPoll)); err != nil {
		return 0, netip.AddrPort{}, err
	}
	defer conn.SetReadDeadline(time.Time{})
	n, from, err := conn.ReadFromUDPAddrPort(b)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, netip.AddrPort{}, ErrNoData
	}
	return n, from, err
}
