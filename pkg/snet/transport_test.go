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

package snet_test

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-client/pkg/snet"
)

func bindLoopback(t *testing.T) *snet.UDPTransport {
	t.Helper()
	tr := &snet.UDPTransport{}
	require.NoError(t, tr.Bind(netip.MustParseAddrPort("127.0.0.1:0")))
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestUDPTransport(t *testing.T) {
	t.Run("write and read", func(t *testing.T) {
		a, b := bindLoopback(t), bindLoopback(t)
		require.NoError(t, a.Connect(b.LocalAddr()))

		_, err := a.WriteTo([]byte("hello"), netip.AddrPort{})
		require.NoError(t, err)

		require.NoError(t, b.SetReadDeadline(time.Now().Add(time.Second)))
		buf := make([]byte, 100)
		n, from, err := b.ReadFrom(buf)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), buf[:n])
		assert.Equal(t, a.LocalAddr(), from)
	})
	t.Run("non-blocking without data", func(t *testing.T) {
		tr := bindLoopback(t)
		tr.SetBlocking(false)
		_, _, err := tr.ReadFrom(make([]byte, 100))
		assert.ErrorIs(t, err, snet.ErrNoData)
	})
	t.Run("not connected", func(t *testing.T) {
		tr := bindLoopback(t)
		_, err := tr.WriteTo([]byte("hello"), netip.AddrPort{})
		assert.Error(t, err)
	})
	t.Run("unbound", func(t *testing.T) {
		tr := &snet.UDPTransport{}
		assert.False(t, tr.LocalAddr().IsValid())
		_, _, err := tr.ReadFrom(make([]byte, 100))
		assert.Error(t, err)
	})
	t.Run("closed", func(t *testing.T) {
		tr := &snet.UDPTransport{}
		require.NoError(t, tr.Bind(netip.MustParseAddrPort("127.0.0.1:0")))
		require.NoError(t, tr.Close())
		_, _, err := tr.ReadFrom(make([]byte, 100))
		assert.ErrorIs(t, err, net.ErrClosed)
		assert.ErrorIs(t, tr.Bind(netip.AddrPort{}), net.ErrClosed)
	})
}
