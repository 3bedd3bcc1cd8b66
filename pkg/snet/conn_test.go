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
	"context"
	"net/netip"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/log/testlog"
	"github.com/scionproto/scion-client/pkg/metrics"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers"
	"github.com/scionproto/scion-client/pkg/slayers/path/empty"
	"github.com/scionproto/scion-client/pkg/snet"
	"github.com/scionproto/scion-client/pkg/snet/mock_snet"
)

var (
	localAddr  = netip.MustParseAddrPort("127.0.0.1:4000")
	remoteHost = netip.MustParseAddrPort("10.0.0.2:1925")
	firstHop   = netip.MustParseAddrPort("10.0.0.1:30041")
	otherHop   = netip.MustParseAddrPort("10.0.0.9:30041")
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTransport returns a mock transport bound to localAddr once Bind was
// called.
func newTransport(ctrl *gomock.Controller) *mock_snet.MockTransport {
	tr := mock_snet.NewMockTransport(ctrl)
	tr.EXPECT().SetBlocking(gomock.Any()).AnyTimes()
	tr.EXPECT().SetReadDeadline(gomock.Any()).AnyTimes()
	tr.EXPECT().LocalAddr().Return(localAddr).AnyTimes()
	return tr
}

func testContext(t *testing.T) context.Context {
	return log.CtxWith(context.Background(), testlog.NewLogger(t))
}

func resolvedPath(t *testing.T, nextHop netip.AddrPort, expiry time.Time) *snet.ResolvedPath {
	t.Helper()
	p, err := snet.NewResolvedPath(remoteIA, rawSCIONPath(t), nextHop.String(),
		snet.PathMetadata{
			Interfaces: []snet.PathInterface{
				{IA: localIA, ID: 1},
				{IA: remoteIA, ID: 4},
			},
			MTU:    1472,
			Expiry: expiry,
		})
	require.NoError(t, err)
	return p.WithHost(remoteHost)
}

// incoming serializes a packet sent by the remote host to the local address.
func incoming(t *testing.T, pld snet.Payload) []byte {
	t.Helper()
	pkt := &snet.Packet{PacketInfo: snet.PacketInfo{
		Source: snet.SCIONAddress{
			IA:   remoteIA,
			Host: addr.HostIP(remoteHost.Addr()),
		},
		Destination: snet.SCIONAddress{
			IA:   localIA,
			Host: addr.HostIP(localAddr.Addr()),
		},
		Path:    snet.RawPath{PathType: empty.PathType},
		Payload: pld,
	}}
	require.NoError(t, pkt.Serialize())
	return pkt.Bytes
}

func expectRead(tr *mock_snet.MockTransport, raw []byte) *gomock.Call {
	return tr.EXPECT().ReadFrom(gomock.Any()).DoAndReturn(
		func(b []byte) (int, netip.AddrPort, error) {
			return copy(b, raw), remoteHost, nil
		},
	)
}

func TestConnStateTransitions(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := testContext(t)
	tr := newTransport(ctrl)
	c := snet.NewConn(tr, mock_snet.NewMockPathQuerier(ctrl), snet.StaticLocalIA(localIA))

	_, _, err := c.Receive(ctx, make([]byte, 10))
	assert.ErrorIs(t, err, snet.ErrNotBound)

	tr.EXPECT().Bind(localAddr)
	require.NoError(t, c.Bind(ctx, localAddr))
	assert.ErrorIs(t, c.Bind(ctx, localAddr), snet.ErrAlreadyBound)

	local, err := c.Local(ctx)
	require.NoError(t, err)
	assert.Equal(t, addr.UDPAddr{IA: localIA, Host: localAddr}, local)

	p := resolvedPath(t, firstHop, time.Time{})
	tr.EXPECT().Connect(firstHop)
	require.NoError(t, c.Connect(ctx, p))
	assert.Equal(t, snet.Path(p), c.RemotePath())
	assert.ErrorIs(t, c.Connect(ctx, p), snet.ErrAlreadyConnected)

	tr.EXPECT().Disconnect()
	require.NoError(t, c.Disconnect())
	assert.Nil(t, c.RemotePath())
	require.NoError(t, c.Disconnect())
	assert.ErrorIs(t, c.Send(ctx, []byte("hello"), nil), snet.ErrNotConnected)

	tr.EXPECT().Close()
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), snet.ErrClosed)
	assert.ErrorIs(t, c.Send(ctx, []byte("hello"), p), snet.ErrClosed)
	assert.ErrorIs(t, c.Connect(ctx, p), snet.ErrClosed)
	_, _, err = c.Receive(ctx, make([]byte, 10))
	assert.ErrorIs(t, err, snet.ErrClosed)
}

func TestConnSend(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := testContext(t)
	tr := newTransport(ctrl)
	writes := metrics.NewTestCounter()
	c := snet.NewConn(tr, mock_snet.NewMockPathQuerier(ctrl), snet.StaticLocalIA(localIA),
		snet.WithMetrics(snet.ConnMetrics{WritePackets: writes}))

	p := resolvedPath(t, firstHop, time.Now().Add(time.Hour))
	gomock.InOrder(
		tr.EXPECT().Bind(netip.AddrPort{}),
		tr.EXPECT().WriteTo(gomock.Any(), firstHop).DoAndReturn(
			func(b []byte, _ netip.AddrPort) (int, error) {
				pkt := &snet.Packet{Bytes: append([]byte(nil), b...)}
				require.NoError(t, pkt.Decode())
				assert.Equal(t, snet.SCIONAddress{
					IA:   localIA,
					Host: addr.HostIP(localAddr.Addr()),
				}, pkt.Source)
				assert.Equal(t, snet.SCIONAddress{
					IA:   remoteIA,
					Host: addr.HostIP(remoteHost.Addr()),
				}, pkt.Destination)
				assert.Equal(t, snet.UDPPayload{
					SrcPort: localAddr.Port(),
					DstPort: remoteHost.Port(),
					Payload: []byte("hello"),
				}, pkt.Payload)
				return len(b), nil
			},
		),
	)
	require.NoError(t, c.Send(ctx, []byte("hello"), p))
	assert.Equal(t, float64(1), metrics.CounterValue(writes))
}

func TestConnPathRefresh(t *testing.T) {
	t.Run("connected path is refreshed once", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		querier := mock_snet.NewMockPathQuerier(ctrl)
		refreshes := metrics.NewTestCounter()
		c := snet.NewConn(tr, querier, snet.StaticLocalIA(localIA),
			snet.WithMetrics(snet.ConnMetrics{PathRefreshes: refreshes}))

		expiring := resolvedPath(t, firstHop, time.Now().Add(5*time.Second))
		fresh := resolvedPath(t, otherHop, time.Now().Add(time.Hour))

		tr.EXPECT().Bind(netip.AddrPort{})
		tr.EXPECT().Connect(firstHop)
		require.NoError(t, c.Connect(ctx, expiring))

		querier.EXPECT().Query(gomock.Any(), remoteIA).
			Return([]*snet.ResolvedPath{fresh}, nil).Times(1)
		tr.EXPECT().Connect(otherHop)
		tr.EXPECT().WriteTo(gomock.Any(), otherHop).Return(100, nil).Times(2)

		require.NoError(t, c.Send(ctx, []byte("first"), nil))
		require.NoError(t, c.Send(ctx, []byte("second"), nil))

		remote, ok := c.RemotePath().(*snet.ResolvedPath)
		require.True(t, ok)
		assert.Equal(t, fresh.Expiry(), remote.Expiry())
		assert.Equal(t, otherHop, remote.UnderlayNextHop())
		assert.Equal(t, remoteHost, remote.Destination().Host)
		assert.Equal(t, float64(1), metrics.CounterValue(refreshes))
	})
	t.Run("path outside the margin is kept", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		querier := mock_snet.NewMockPathQuerier(ctrl)
		c := snet.NewConn(tr, querier, snet.StaticLocalIA(localIA))

		p := resolvedPath(t, firstHop, time.Now().Add(11*time.Second))
		tr.EXPECT().Bind(netip.AddrPort{})
		tr.EXPECT().WriteTo(gomock.Any(), firstHop).Return(100, nil)
		require.NoError(t, c.Send(ctx, []byte("data"), p))
	})
	t.Run("refresh applies the policy", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		querier := mock_snet.NewMockPathQuerier(ctrl)
		last := snet.PathPolicyFunc(
			func(candidates []*snet.ResolvedPath) (*snet.ResolvedPath, error) {
				return candidates[len(candidates)-1], nil
			},
		)
		c := snet.NewConn(tr, querier, snet.StaticLocalIA(localIA), snet.WithPolicy(last))

		expiring := resolvedPath(t, firstHop, time.Now().Add(time.Second))
		querier.EXPECT().Query(gomock.Any(), remoteIA).Return([]*snet.ResolvedPath{
			resolvedPath(t, firstHop, time.Now().Add(time.Hour)),
			resolvedPath(t, otherHop, time.Now().Add(time.Hour)),
		}, nil)
		tr.EXPECT().Bind(netip.AddrPort{})
		tr.EXPECT().WriteTo(gomock.Any(), otherHop).Return(100, nil)
		require.NoError(t, c.Send(ctx, []byte("data"), expiring))
		assert.Nil(t, c.RemotePath())
	})
	t.Run("refresh failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		querier := mock_snet.NewMockPathQuerier(ctrl)
		c := snet.NewConn(tr, querier, snet.StaticLocalIA(localIA))

		expiring := resolvedPath(t, firstHop, time.Now().Add(time.Second))
		tr.EXPECT().Bind(netip.AddrPort{})
		querier.EXPECT().Query(gomock.Any(), remoteIA).
			Return(nil, serrors.New("daemon unavailable"))
		err := c.Send(ctx, []byte("data"), expiring)
		assert.ErrorIs(t, err, snet.ErrPathUnavailable)

		querier.EXPECT().Query(gomock.Any(), remoteIA).Return(nil, nil)
		err = c.Send(ctx, []byte("data"), expiring)
		assert.ErrorIs(t, err, snet.ErrPathUnavailable)
	})
}

func TestConnReceive(t *testing.T) {
	t.Run("UDP datagram", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		c := snet.NewConn(tr, nil, snet.StaticLocalIA(localIA))
		tr.EXPECT().Bind(localAddr)
		require.NoError(t, c.Bind(ctx, localAddr))

		expectRead(tr, incoming(t, snet.UDPPayload{
			SrcPort: remoteHost.Port(),
			DstPort: localAddr.Port(),
			Payload: []byte("hello"),
		}))
		b := make([]byte, 100)
		n, reply, err := c.Receive(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), b[:n])
		assert.Equal(t, addr.UDPAddr{IA: remoteIA, Host: remoteHost}, reply.Destination())
		assert.Equal(t, addr.UDPAddr{IA: localIA, Host: localAddr}, reply.Local())
		assert.Equal(t, remoteHost, reply.UnderlayNextHop())
	})
	t.Run("payload larger than the buffer is truncated", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		truncated := metrics.NewTestCounter()
		c := snet.NewConn(tr, nil, snet.StaticLocalIA(localIA),
			snet.WithMetrics(snet.ConnMetrics{TruncatedPackets: truncated}))
		tr.EXPECT().Bind(localAddr)
		require.NoError(t, c.Bind(ctx, localAddr))

		gomock.InOrder(
			expectRead(tr, incoming(t, snet.UDPPayload{Payload: []byte("hello world")})),
			expectRead(tr, incoming(t, snet.UDPPayload{Payload: []byte("hi")})),
		)
		b := make([]byte, 5)
		n, _, err := c.Receive(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), b[:n])
		assert.Equal(t, float64(1), metrics.CounterValue(truncated))

		n, _, err = c.Receive(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, []byte("hi"), b[:n])
		assert.Equal(t, float64(1), metrics.CounterValue(truncated))
	})
	t.Run("lenient drops malformed packets", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		parseErrors, dropped := metrics.NewTestCounter(), metrics.NewTestCounter()
		c := snet.NewConn(tr, nil, snet.StaticLocalIA(localIA),
			snet.WithMetrics(snet.ConnMetrics{
				ParseErrors:    parseErrors,
				DroppedPackets: dropped,
			}))
		tr.EXPECT().Bind(localAddr)
		require.NoError(t, c.Bind(ctx, localAddr))

		gomock.InOrder(
			expectRead(tr, []byte{0x00, 0x01, 0x02}),
			expectRead(tr, incoming(t, snet.UDPPayload{Payload: []byte("valid")})),
		)
		b := make([]byte, 100)
		n, _, err := c.Receive(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, []byte("valid"), b[:n])
		assert.Equal(t, float64(1), metrics.CounterValue(parseErrors))
		assert.Equal(t, float64(1), metrics.CounterValue(dropped))
	})
	t.Run("strict returns malformed packets", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		c := snet.NewConn(tr, nil, snet.StaticLocalIA(localIA),
			snet.WithConfig(snet.ConnConfig{StrictValidation: true}))
		tr.EXPECT().Bind(localAddr)
		require.NoError(t, c.Bind(ctx, localAddr))

		expectRead(tr, []byte{0x00, 0x01, 0x02})
		_, _, err := c.Receive(ctx, make([]byte, 100))
		assert.ErrorIs(t, err, slayers.ErrMalformed)
	})
	t.Run("non-host destinations are dropped in strict mode", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		c := snet.NewConn(tr, nil, snet.StaticLocalIA(localIA),
			snet.WithConfig(snet.ConnConfig{StrictValidation: true}))
		tr.EXPECT().Bind(localAddr)
		require.NoError(t, c.Bind(ctx, localAddr))

		svc := &snet.Packet{PacketInfo: packetInfo(snet.RawPath{PathType: empty.PathType},
			snet.UDPPayload{Payload: []byte("svc")})}
		svc.Destination.Host = addr.HostSVC(addr.SvcCS)
		require.NoError(t, svc.Serialize())
		// A reserved destination address type on an otherwise valid packet.
		reserved := incoming(t, snet.UDPPayload{Payload: []byte("reserved")})
		reserved[9] = reserved[9]&0x3f | 3<<6

		gomock.InOrder(
			expectRead(tr, svc.Bytes),
			expectRead(tr, reserved),
			expectRead(tr, incoming(t, snet.UDPPayload{Payload: []byte("valid")})),
		)
		b := make([]byte, 100)
		n, _, err := c.Receive(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, []byte("valid"), b[:n])
	})
	t.Run("SCMP errors go to the listener", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		revHandler := mock_snet.NewMockRevocationHandler(ctrl)
		scmpErrors := metrics.NewTestCounter()

		down := snet.SCMPExternalInterfaceDown{
			IA:        addr.MustParseIA("1-ff00:0:111"),
			Interface: 13,
			Payload:   []byte("quote"),
		}
		var received []snet.SCMPPayload
		listener := snet.ErrorListenerFunc(
			func(_ context.Context, msg snet.SCMPPayload, from *snet.ReplyPath) {
				received = append(received, msg)
				assert.Equal(t, remoteIA, from.Destination().IA)
			},
		)
		c := snet.NewConn(tr, nil, snet.StaticLocalIA(localIA),
			snet.WithErrorListener(listener),
			snet.WithRevocationHandler(revHandler),
			snet.WithMetrics(snet.ConnMetrics{SCMPErrors: scmpErrors}))
		tr.EXPECT().Bind(localAddr)
		require.NoError(t, c.Bind(ctx, localAddr))

		revHandler.EXPECT().Revoke(gomock.Any(), down.IA, uint64(13))
		gomock.InOrder(
			expectRead(tr, incoming(t, down)),
			expectRead(tr, incoming(t, snet.SCMPEchoReply{Identifier: 1, Payload: []byte("x")})),
			expectRead(tr, incoming(t, snet.UDPPayload{Payload: []byte("valid")})),
		)
		b := make([]byte, 100)
		n, _, err := c.Receive(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, []byte("valid"), b[:n])
		assert.Equal(t, []snet.SCMPPayload{down}, received)
		assert.Equal(t, float64(1), metrics.CounterValue(scmpErrors))
	})
	t.Run("ReceiveSCMP returns SCMP messages", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		c := snet.NewConn(tr, nil, snet.StaticLocalIA(localIA))
		tr.EXPECT().Bind(localAddr)
		require.NoError(t, c.Bind(ctx, localAddr))

		reply := snet.SCMPEchoReply{Identifier: 4000, SeqNumber: 7, Payload: []byte("pong")}
		gomock.InOrder(
			expectRead(tr, incoming(t, snet.UDPPayload{Payload: []byte("ignored")})),
			expectRead(tr, incoming(t, reply)),
		)
		msg, from, err := c.ReceiveSCMP(ctx)
		require.NoError(t, err)
		assert.Equal(t, reply, msg)
		assert.Equal(t, remoteIA, from.Destination().IA)
	})
	t.Run("non-blocking without data", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ctx := testContext(t)
		tr := newTransport(ctrl)
		c := snet.NewConn(tr, nil, snet.StaticLocalIA(localIA),
			snet.WithConfig(snet.ConnConfig{NonBlocking: true}))
		tr.EXPECT().Bind(localAddr)
		require.NoError(t, c.Bind(ctx, localAddr))

		tr.EXPECT().ReadFrom(gomock.Any()).Return(0, netip.AddrPort{}, snet.ErrNoData)
		n, reply, err := c.Receive(ctx, make([]byte, 100))
		assert.NoError(t, err)
		assert.Zero(t, n)
		assert.Nil(t, reply)
	})
	t.Run("context deadline unblocks the read", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tr := mock_snet.NewMockTransport(ctrl)
		tr.EXPECT().SetBlocking(true)
		tr.EXPECT().LocalAddr().Return(localAddr).AnyTimes()

		var once sync.Once
		unblock := make(chan struct{})
		tr.EXPECT().SetReadDeadline(gomock.Any()).DoAndReturn(func(d time.Time) error {
			if !d.IsZero() && d.Before(time.Now()) {
				once.Do(func() { close(unblock) })
			}
			return nil
		}).AnyTimes()
		tr.EXPECT().ReadFrom(gomock.Any()).DoAndReturn(
			func([]byte) (int, netip.AddrPort, error) {
				<-unblock
				return 0, netip.AddrPort{}, os.ErrDeadlineExceeded
			},
		)

		c := snet.NewConn(tr, nil, snet.StaticLocalIA(localIA))
		tr.EXPECT().Bind(localAddr)
		ctx, cancel := context.WithTimeout(testContext(t), 50*time.Millisecond)
		defer cancel()
		require.NoError(t, c.Bind(ctx, localAddr))

		_, _, err := c.Receive(ctx, make([]byte, 100))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
