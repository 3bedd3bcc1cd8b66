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
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/metrics"
	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// ConnMetrics are the metrics of a Conn. Nil counters are ignored.
type ConnMetrics struct {
	Closes         metrics.SimpleCounter
	ReadBytes      metrics.SimpleCounter
	ReadPackets    metrics.SimpleCounter
	WriteBytes     metrics.SimpleCounter
	WritePackets   metrics.SimpleCounter
	ParseErrors    metrics.SimpleCounter
	DroppedPackets metrics.SimpleCounter
	// TruncatedPackets counts datagrams whose payload did not fit the buffer
	// passed to Receive.
	TruncatedPackets metrics.SimpleCounter
	PathRefreshes    metrics.SimpleCounter
	SCMPErrors       metrics.SimpleCounter
}

type connState int

const (
	stateUnbound connState = iota
	stateBound
	stateConnected
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateUnbound:
		return "unbound"
	case stateBound:
		return "bound"
	case stateConnected:
		return "connected"
	default:
		return "closed"
	}
}

// ConnOption customizes a Conn.
type ConnOption func(*Conn)

// WithConfig sets the configuration of the Conn.
func WithConfig(cfg ConnConfig) ConnOption {
	return func(c *Conn) {
		c.cfg = cfg
	}
}

// WithPolicy sets the policy that selects a fresh path when a path expires.
func WithPolicy(policy PathPolicy) ConnOption {
	return func(c *Conn) {
		c.router.Policy = policy
	}
}

// WithErrorListener sets the listener for SCMP error messages.
func WithErrorListener(listener ErrorListener) ConnOption {
	return func(c *Conn) {
		c.listener = listener
	}
}

// WithRevocationHandler sets the handler that is informed about interfaces
// reported down.
func WithRevocationHandler(handler RevocationHandler) ConnOption {
	return func(c *Conn) {
		c.revHandler = handler
	}
}

// WithMetrics sets the metrics of the Conn.
func WithMetrics(m ConnMetrics) ConnOption {
	return func(c *Conn) {
		c.metrics = m
	}
}

// Conn is a path-aware SCION/UDP channel. All methods are safe for
// concurrent use. Concurrent Sends are serialized, and so are concurrent
// Receives, but a Send never waits for a Receive.
type Conn struct {
	transport  Transport
	router     Router
	localIA    LocalIAProvider
	cfg        ConnConfig
	metrics    ConnMetrics
	revHandler RevocationHandler

	nonBlocking atomic.Bool

	mtx      sync.Mutex
	state    connState
	remote   Path
	listener ErrorListener
	srcIPs   map[netip.Addr]netip.Addr

	writeMtx sync.Mutex
	writeBuf Bytes

	readMtx sync.Mutex
	readBuf Bytes
}

// NewConn creates an unbound Conn sending over the transport. The querier is
// only used to refresh expiring paths.
func NewConn(transport Transport, querier PathQuerier, localIA LocalIAProvider,
	opts ...ConnOption) *Conn {

	c := &Conn{
		transport: transport,
		router:    Router{Querier: querier},
		localIA:   localIA,
		srcIPs:    make(map[netip.Addr]netip.Addr),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.InitDefaults()
	c.nonBlocking.Store(c.cfg.NonBlocking)
	transport.SetBlocking(!c.cfg.NonBlocking)
	return c
}

// Bind binds the Conn to the local address. A zero address binds all
// interfaces on an ephemeral port.
func (c *Conn) Bind(ctx context.Context, local netip.AddrPort) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	switch c.state {
	case stateClosed:
		return ErrClosed
	case stateUnbound:
	default:
		return serrors.WrapNoStack("binding", ErrAlreadyBound,
			"local", c.transport.LocalAddr())
	}
	if err := c.transport.Bind(local); err != nil {
		return err
	}
	c.state = stateBound
	log.FromCtx(ctx).Debug("Bound connection", "local", c.transport.LocalAddr())
	return nil
}

// Connect sets the default path of the Conn. A Conn that is not bound yet is
// bound to an ephemeral port.
func (c *Conn) Connect(ctx context.Context, p Path) error {
	if p == nil {
		return serrors.New("connecting without path")
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	switch c.state {
	case stateClosed:
		return ErrClosed
	case stateConnected:
		return serrors.WrapNoStack("connecting", ErrAlreadyConnected,
			"remote", c.remote.Destination())
	}
	if err := c.ensureBound(); err != nil {
		return err
	}
	if err := c.transport.Connect(p.UnderlayNextHop()); err != nil {
		return serrors.Wrap("connecting transport", err, "next_hop", p.UnderlayNextHop())
	}
	c.remote = p
	c.state = stateConnected
	log.FromCtx(ctx).Debug("Connected", "remote", p.Destination(),
		"next_hop", p.UnderlayNextHop())
	return nil
}

// Disconnect removes the default path. It is a no-op on a Conn that is not
// connected.
func (c *Conn) Disconnect() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	switch c.state {
	case stateClosed:
		return ErrClosed
	case stateConnected:
	default:
		return nil
	}
	if err := c.transport.Disconnect(); err != nil {
		return err
	}
	c.remote = nil
	c.state = stateBound
	return nil
}

// RemotePath returns the path of a connected Conn, nil otherwise.
func (c *Conn) RemotePath() Path {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.remote
}

// Local returns the local SCION address of the Conn. A Conn that is not bound
// yet is bound to an ephemeral port. The host IP is unspecified if the Conn
// is bound to all interfaces.
func (c *Conn) Local(ctx context.Context) (addr.UDPAddr, error) {
	c.mtx.Lock()
	if c.state == stateClosed {
		c.mtx.Unlock()
		return addr.UDPAddr{}, ErrClosed
	}
	if err := c.ensureBound(); err != nil {
		c.mtx.Unlock()
		return addr.UDPAddr{}, err
	}
	local := c.transport.LocalAddr()
	c.mtx.Unlock()

	ia, err := c.localIA.LocalIA(ctx)
	if err != nil {
		return addr.UDPAddr{}, err
	}
	return addr.UDPAddr{IA: ia, Host: local}, nil
}

// SetErrorListener replaces the listener for SCMP error messages.
func (c *Conn) SetErrorListener(listener ErrorListener) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.listener = listener
}

// SetBlocking switches between blocking and non-blocking receives.
func (c *Conn) SetBlocking(blocking bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.nonBlocking.Store(!blocking)
	c.transport.SetBlocking(blocking)
}

// Close closes the Conn and unblocks pending receives. Every later call
// returns ErrClosed.
func (c *Conn) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state == stateClosed {
		return ErrClosed
	}
	c.state = stateClosed
	c.remote = nil
	metrics.CounterInc(c.metrics.Closes)
	return c.transport.Close()
}

// Send sends the payload as a SCION/UDP datagram over the path. A nil path
// sends over the path of a connected Conn. A ResolvedPath that expires within
// the expiry margin is replaced by a fresh path first.
func (c *Conn) Send(ctx context.Context, payload []byte, p Path) error {
	return c.send(ctx, p, func(srcPort, dstPort uint16) Payload {
		return UDPPayload{SrcPort: srcPort, DstPort: dstPort, Payload: payload}
	})
}

// SendSCMP sends an SCMP message over the path. A nil path sends over the
// path of a connected Conn.
func (c *Conn) SendSCMP(ctx context.Context, msg SCMPPayload, p Path) error {
	return c.send(ctx, p, func(uint16, uint16) Payload {
		return msg
	})
}

func (c *Conn) send(ctx context.Context, p Path,
	mkPayload func(srcPort, dstPort uint16) Payload) error {

	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()

	p, local, err := c.prepareSend(ctx, p)
	if err != nil {
		return err
	}
	dst := p.Destination()
	if !dst.Host.IsValid() {
		return serrors.New("destination host not set", "dst", dst)
	}
	srcIA, err := c.localIA.LocalIA(ctx)
	if err != nil {
		return err
	}
	nextHop := p.UnderlayNextHop()
	srcIP := local.Addr()
	if !srcIP.IsValid() || srcIP.IsUnspecified() {
		if srcIP, err = c.sourceIP(nextHop); err != nil {
			return err
		}
	}
	pkt := &Packet{
		Bytes: c.writeBuf,
		PacketInfo: PacketInfo{
			Source:      SCIONAddress{IA: srcIA, Host: addr.HostIP(srcIP)},
			Destination: SCIONAddress{IA: dst.IA, Host: addr.HostIP(dst.Host.Addr())},
			Path:        p.Dataplane(),
			Payload:     mkPayload(local.Port(), dst.Host.Port()),
		},
	}
	if err := pkt.Serialize(); err != nil {
		return serrors.Wrap("serializing packet", err, "dst", dst)
	}
	c.writeBuf = pkt.Bytes
	n, err := c.transport.WriteTo(pkt.Bytes, nextHop)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		return serrors.Wrap("writing packet", err, "next_hop", nextHop)
	}
	metrics.CounterInc(c.metrics.WritePackets)
	metrics.CounterAdd(c.metrics.WriteBytes, float64(n))
	return nil
}

// prepareSend binds the Conn if needed, resolves the path to use and
// refreshes it if it is about to expire.
func (c *Conn) prepareSend(ctx context.Context, p Path) (Path, netip.AddrPort, error) {
	c.mtx.Lock()
	if c.state == stateClosed {
		c.mtx.Unlock()
		return nil, netip.AddrPort{}, ErrClosed
	}
	if err := c.ensureBound(); err != nil {
		c.mtx.Unlock()
		return nil, netip.AddrPort{}, err
	}
	if p == nil {
		if c.state != stateConnected {
			c.mtx.Unlock()
			return nil, netip.AddrPort{}, ErrNotConnected
		}
		p = c.remote
	}
	local := c.transport.LocalAddr()
	c.mtx.Unlock()

	rp, ok := p.(*ResolvedPath)
	if !ok || !c.expiresSoon(rp) {
		return p, local, nil
	}
	fresh, err := c.refresh(ctx, rp)
	if err != nil {
		return nil, netip.AddrPort{}, err
	}
	if err := c.replaceRemote(ctx, rp, fresh); err != nil {
		return nil, netip.AddrPort{}, err
	}
	return fresh, local, nil
}

func (c *Conn) expiresSoon(p *ResolvedPath) bool {
	expiry := p.Expiry()
	return !expiry.IsZero() && time.Until(expiry) <= c.cfg.ExpiryMargin
}

func (c *Conn) refresh(ctx context.Context, p *ResolvedPath) (*ResolvedPath, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "snet.refresh_path")
	defer span.Finish()
	span.SetTag("dst", p.Destination().String())
	logger := log.FromCtx(ctx)

	metrics.CounterInc(c.metrics.PathRefreshes)
	fresh, err := c.router.Route(ctx, p.Destination())
	if err != nil {
		ext.Error.Set(span, true)
		logger.Info("Refreshing path failed", "dst", p.Destination(), "err", err)
		return nil, err
	}
	logger.Debug("Refreshed path", "dst", p.Destination(),
		"old_expiry", p.Expiry(), "new_expiry", fresh.Expiry())
	return fresh, nil
}

// replaceRemote swaps the path of a connected Conn if old is the current
// path, and points the transport at the new first hop if it changed.
func (c *Conn) replaceRemote(ctx context.Context, old, fresh *ResolvedPath) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state != stateConnected || c.remote != Path(old) {
		return nil
	}
	c.remote = fresh
	if old.UnderlayNextHop() == fresh.UnderlayNextHop() {
		return nil
	}
	if err := c.transport.Connect(fresh.UnderlayNextHop()); err != nil {
		return serrors.Wrap("reconnecting transport", err, "next_hop", fresh.UnderlayNextHop())
	}
	log.FromCtx(ctx).Info("First hop changed", "old", old.UnderlayNextHop(),
		"new", fresh.UnderlayNextHop())
	return nil
}

// ensureBound binds an unbound Conn to an ephemeral port. The caller must
// hold c.mtx.
func (c *Conn) ensureBound() error {
	if c.state != stateUnbound {
		return nil
	}
	if err := c.transport.Bind(netip.AddrPort{}); err != nil {
		return err
	}
	c.state = stateBound
	return nil
}

// sourceIP returns the local IP address used to reach the next hop.
func (c *Conn) sourceIP(nextHop netip.AddrPort) (netip.Addr, error) {
	c.mtx.Lock()
	ip, ok := c.srcIPs[nextHop.Addr()]
	c.mtx.Unlock()
	if ok {
		return ip, nil
	}
	ip, err := resolveSourceIP(nextHop)
	if err != nil {
		return netip.Addr{}, err
	}
	c.mtx.Lock()
	c.srcIPs[nextHop.Addr()] = ip
	c.mtx.Unlock()
	return ip, nil
}

// resolveSourceIP asks the kernel for the route to the next hop. Connecting a
// UDP socket does not send any packet.
func resolveSourceIP(nextHop netip.AddrPort) (netip.Addr, error) {
	conn, err := net.DialUDP("udp", nil, net.UDPAddrFromAddrPort(nextHop))
	if err != nil {
		return netip.Addr{}, serrors.Wrap("resolving source address", err, "next_hop", nextHop)
	}
	defer conn.Close()
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.Addr{}, serrors.New("unexpected local address type",
			"addr", conn.LocalAddr())
	}
	return local.AddrPort().Addr().Unmap(), nil
}

// Receive reads the next SCION/UDP datagram into b and returns the number of
// bytes copied together with the path to reply over. As with a UDP socket,
// the part of a payload that does not fit into b is discarded. SCMP error
// messages are passed to the error listener and never returned. In
// non-blocking mode a Receive without waiting datagram returns (0, nil, nil).
func (c *Conn) Receive(ctx context.Context, b []byte) (int, *ReplyPath, error) {
	c.readMtx.Lock()
	defer c.readMtx.Unlock()
	for {
		pkt, from, err := c.readPacket(ctx, false)
		if err != nil || pkt == nil {
			return 0, nil, err
		}
		switch pld := pkt.Payload.(type) {
		case UDPPayload:
			reply, err := NewReplyPathFromPacket(pkt, from)
			if err != nil {
				if dropErr := c.dropOrFail(ctx, err, from); dropErr != nil {
					return 0, nil, dropErr
				}
				continue
			}
			if len(pld.Payload) > len(b) {
				metrics.CounterInc(c.metrics.TruncatedPackets)
				log.FromCtx(ctx).Debug("Truncating payload", "size", len(pld.Payload),
					"buffer", len(b), "src", pkt.Source)
			}
			return copy(b, pld.Payload), reply, nil
		case SCMPPayload:
			if IsSCMPError(pld) {
				c.handleSCMPError(ctx, pkt, pld, from)
				continue
			}
			metrics.CounterInc(c.metrics.DroppedPackets)
			log.FromCtx(ctx).Debug("Ignoring SCMP informational message",
				"scmp", SCMPString(pld), "src", pkt.Source)
		}
	}
}

// ReceiveSCMP reads the next SCMP message. Error messages are passed to the
// error listener and returned as well. SCION/UDP datagrams are dropped. The
// returned message does not share memory with the Conn. The reply path is
// nil if the sender can not be replied to.
func (c *Conn) ReceiveSCMP(ctx context.Context) (SCMPPayload, *ReplyPath, error) {
	c.readMtx.Lock()
	defer c.readMtx.Unlock()
	for {
		pkt, from, err := c.readPacket(ctx, true)
		if err != nil || pkt == nil {
			return nil, nil, err
		}
		msg, ok := pkt.Payload.(SCMPPayload)
		if !ok {
			metrics.CounterInc(c.metrics.DroppedPackets)
			log.FromCtx(ctx).Debug("Ignoring non-SCMP packet", "src", pkt.Source)
			continue
		}
		if IsSCMPError(msg) {
			c.handleSCMPError(ctx, pkt, msg, from)
		}
		reply, err := NewReplyPathFromPacket(pkt, from)
		if err != nil {
			log.FromCtx(ctx).Debug("Can not reply to SCMP sender", "src", pkt.Source,
				"err", err)
		}
		return msg, reply, nil
	}
}

// readPacket reads and decodes the next valid packet. It returns a nil
// packet if a non-blocking read found no data. With clone set, the packet
// does not reference the read buffer. The caller must hold c.readMtx.
func (c *Conn) readPacket(ctx context.Context, clone bool) (*Packet, netip.AddrPort, error) {
	c.mtx.Lock()
	state := c.state
	c.mtx.Unlock()
	switch state {
	case stateClosed:
		return nil, netip.AddrPort{}, ErrClosed
	case stateUnbound:
		return nil, netip.AddrPort{}, ErrNotBound
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, netip.AddrPort{}, err
		}
		n, from, err := c.readDatagram(ctx)
		if errors.Is(err, ErrNoData) {
			return nil, netip.AddrPort{}, nil
		}
		if err != nil {
			return nil, netip.AddrPort{}, err
		}
		metrics.CounterInc(c.metrics.ReadPackets)
		metrics.CounterAdd(c.metrics.ReadBytes, float64(n))

		raw := c.readBuf[:n]
		if clone {
			raw = slices.Clone(raw)
		}
		pkt := &Packet{Bytes: Bytes(raw)}
		if err := pkt.Decode(); err != nil {
			if errors.Is(err, ErrNotHostDeliverable) {
				metrics.CounterInc(c.metrics.DroppedPackets)
				log.FromCtx(ctx).Debug("Dropping packet", "from", from, "err", err)
				continue
			}
			metrics.CounterInc(c.metrics.ParseErrors)
			if dropErr := c.dropOrFail(ctx, err, from); dropErr != nil {
				return nil, netip.AddrPort{}, dropErr
			}
			continue
		}
		return pkt, from, nil
	}
}

// readDatagram reads one datagram into the read buffer. The context deadline
// and cancellation are mapped to the transport read deadline.
func (c *Conn) readDatagram(ctx context.Context) (int, netip.AddrPort, error) {
	c.readBuf.Prepare()
	deadline, hasDeadline := ctx.Deadline()
	if err := c.transport.SetReadDeadline(deadline); err != nil {
		return 0, netip.AddrPort{}, err
	}
	if !c.nonBlocking.Load() {
		stop := context.AfterFunc(ctx, func() {
			// Unblock the pending read.
			_ = c.transport.SetReadDeadline(time.Unix(1, 0))
		})
		defer stop()
	}
	n, from, err := c.transport.ReadFrom(c.readBuf)
	if err == nil || errors.Is(err, ErrNoData) {
		return n, from, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, netip.AddrPort{}, ctxErr
	}
	switch {
	case errors.Is(err, net.ErrClosed):
		return 0, netip.AddrPort{}, ErrClosed
	case errors.Is(err, os.ErrDeadlineExceeded) && hasDeadline:
		return 0, netip.AddrPort{}, context.DeadlineExceeded
	}
	return 0, netip.AddrPort{}, serrors.Wrap("reading packet", err)
}

// dropOrFail returns err in strict mode. In lenient mode the packet is
// dropped and nil is returned.
func (c *Conn) dropOrFail(ctx context.Context, err error, from netip.AddrPort) error {
	if c.cfg.StrictValidation {
		return err
	}
	metrics.CounterInc(c.metrics.DroppedPackets)
	log.FromCtx(ctx).Debug("Dropping invalid packet", "from", from, "err", err)
	return nil
}

func (c *Conn) handleSCMPError(ctx context.Context, pkt *Packet, msg SCMPPayload,
	from netip.AddrPort) {

	metrics.CounterInc(c.metrics.SCMPErrors)
	logger := log.FromCtx(ctx)
	logger.Debug("Received SCMP error", "scmp", SCMPString(msg), "src", pkt.Source)

	if c.revHandler != nil {
		var (
			ia   addr.IA
			ifID uint64
			down bool
		)
		switch m := msg.(type) {
		case SCMPExternalInterfaceDown:
			ia, ifID, down = m.IA, m.Interface, true
		case SCMPInternalConnectivityDown:
			ia, ifID, down = m.IA, m.Egress, true
		}
		if down {
			if err := c.revHandler.Revoke(ctx, ia, ifID); err != nil {
				logger.Info("Notifying revocation handler failed", "err", err)
			}
		}
	}

	c.mtx.Lock()
	listener := c.listener
	c.mtx.Unlock()
	if listener == nil {
		return
	}
	reply, err := NewReplyPathFromPacket(pkt, from)
	if err != nil {
		logger.Debug("Can not reply to SCMP sender", "src", pkt.Source, "err", err)
	}
	listener.OnSCMPError(ctx, msg, reply)
}
