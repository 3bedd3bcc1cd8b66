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

// Package scmp implements the SCMP diagnostics echo and traceroute on top of
// a snet.Conn.
//
// A Channel sends one request at a time and waits for the matching reply.
// Replies are matched by identifier and sequence number, the identifier is
// the local port of the connection. An SCMP error received while waiting
// aborts the request with a *DiagnosticError.
package scmp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/metrics"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers"
	"github.com/scionproto/scion-client/pkg/snet"
)

// DefaultTimeout is the default time to wait for a reply.
const DefaultTimeout = time.Second

// pollInterval is the wait between receives on a non-blocking connection.
const pollInterval = time.Millisecond

// DiagnosticError is returned if an SCMP error message is received while
// waiting for a reply.
type DiagnosticError struct {
	Type        slayers.SCMPType
	Code        slayers.SCMPCode
	Description string
	// Msg is the received error message.
	Msg snet.SCMPPayload
	// Source is the sender of the error message, if known.
	Source addr.UDPAddr
}

func (e *DiagnosticError) Error() string {
	return fmt.Sprintf("SCMP error from %s: %s", e.Source, e.Description)
}

func newDiagnosticError(msg snet.SCMPPayload, from *snet.ReplyPath) *DiagnosticError {
	e := &DiagnosticError{
		Type:        msg.Type(),
		Code:        msg.Code(),
		Description: snet.SCMPString(msg),
		Msg:         msg,
	}
	if from != nil {
		e.Source = from.Destination()
	}
	return e
}

// EchoResult is the outcome of an echo request.
type EchoResult struct {
	Sequence uint16
	// Source is the sender of the reply.
	Source addr.UDPAddr
	// Size is the size of the echoed payload.
	Size     int
	RTT      time.Duration
	TimedOut bool
}

// TracerouteResult is the outcome of probing one interface.
type TracerouteResult struct {
	// Index is the position of the interface on the path.
	Index     int
	IA        addr.IA
	Interface uint64
	RTT       time.Duration
	TimedOut  bool
}

// Stats are the statistics of a Channel.
type Stats struct {
	Sent     int `json:"sent" yaml:"sent"`
	Received int `json:"received" yaml:"received"`
	Errors   int `json:"errors" yaml:"errors"`
}

// Metrics are the metrics of a Channel. The counters and the histogram are
// labeled with the request type. Nil metrics are ignored.
type Metrics struct {
	Requests metrics.Counter
	Replies  metrics.Counter
	Timeouts metrics.Counter
	Errors   metrics.Counter
	RTT      metrics.Histogram
}

// ChannelOption customizes a Channel.
type ChannelOption func(*Channel)

// WithTimeout sets the time to wait for each reply. A timeout of 0 waits
// until a reply arrives or the context of the request ends.
func WithTimeout(timeout time.Duration) ChannelOption {
	return func(c *Channel) {
		c.timeout = timeout
	}
}

// WithMetrics sets the metrics of the Channel.
func WithMetrics(m Metrics) ChannelOption {
	return func(c *Channel) {
		c.metrics = m
	}
}

// Channel sends SCMP requests over a connection and correlates the replies.
// Requests on the same Channel are serialized. The Channel must be the only
// reader of the connection.
type Channel struct {
	conn    *snet.Conn
	timeout time.Duration
	metrics Metrics

	// mtx serializes the requests.
	mtx   sync.Mutex
	stats Stats
}

// NewChannel creates a channel over the connection.
func NewChannel(conn *snet.Conn, opts ...ChannelOption) *Channel {
	c := &Channel{
		conn:    conn,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats returns the statistics of all requests sent so far.
func (c *Channel) Stats() Stats {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.stats
}

// SendEchoRequest sends an echo request with the sequence number and payload
// over the path and waits for the reply. A missing reply is reported with
// TimedOut, not as error.
func (c *Channel) SendEchoRequest(ctx context.Context, p snet.Path, seq uint16,
	payload []byte) (EchoResult, error) {

	c.mtx.Lock()
	defer c.mtx.Unlock()

	id, err := c.identifier(ctx)
	if err != nil {
		return EchoResult{}, err
	}
	req := snet.SCMPEchoRequest{Identifier: id, SeqNumber: seq, Payload: payload}
	sent, err := c.send(ctx, "echo", req, p)
	if err != nil {
		return EchoResult{}, err
	}
	result := EchoResult{Sequence: seq}
	err = c.await(ctx, "echo", func(msg snet.SCMPPayload, from *snet.ReplyPath) bool {
		reply, ok := msg.(snet.SCMPEchoReply)
		if !ok || reply.Identifier != id || reply.SeqNumber != seq {
			return false
		}
		result.RTT = time.Since(sent)
		result.Size = len(reply.Payload)
		if from != nil {
			result.Source = from.Destination()
		}
		return true
	})
	switch {
	case errors.Is(err, errTimeout):
		result.TimedOut = true
		return result, nil
	case err != nil:
		return EchoResult{}, err
	}
	return result, nil
}

// SendTracerouteRequest probes every interface on the path, one after the
// other. Each probe sets the router alert flag of the interface on a copy of
// the path, the path itself is not modified. Probes without reply are
// reported with TimedOut. The results gathered so far are returned together
// with the error if a probe fails.
func (c *Channel) SendTracerouteRequest(ctx context.Context,
	p *snet.ResolvedPath) ([]TracerouteResult, error) {

	c.mtx.Lock()
	defer c.mtx.Unlock()

	probes, err := tracerouteProbes(p.Dataplane())
	if err != nil {
		return nil, err
	}
	id, err := c.identifier(ctx)
	if err != nil {
		return nil, err
	}
	ifaces := p.Interfaces()
	logger := log.FromCtx(ctx)
	results := make([]TracerouteResult, 0, len(probes))
	for i, probe := range probes {
		result := TracerouteResult{Index: i}
		if i < len(ifaces) {
			result.IA, result.Interface = ifaces[i].IA, ifaces[i].ID
		}
		seq := uint16(i)
		req := snet.SCMPTracerouteRequest{Identifier: id, Sequence: seq}
		sent, err := c.send(ctx, "traceroute", req, p.WithRaw(probe))
		if err != nil {
			return results, err
		}
		err = c.await(ctx, "traceroute", func(msg snet.SCMPPayload, _ *snet.ReplyPath) bool {
			reply, ok := msg.(snet.SCMPTracerouteReply)
			if !ok || reply.Identifier != id || reply.Sequence != seq {
				return false
			}
			result.RTT = time.Since(sent)
			result.IA, result.Interface = reply.IA, reply.Interface
			return true
		})
		switch {
		case errors.Is(err, errTimeout):
			result.TimedOut = true
		case err != nil:
			return results, err
		}
		logger.Debug("Traceroute probe", "index", i, "ia", result.IA,
			"interface", result.Interface, "rtt", result.RTT, "timed_out", result.TimedOut)
		results = append(results, result)
	}
	return results, nil
}

func (c *Channel) identifier(ctx context.Context) (uint16, error) {
	local, err := c.conn.Local(ctx)
	if err != nil {
		return 0, serrors.Wrap("determining local port", err)
	}
	return local.Host.Port(), nil
}

func (c *Channel) send(ctx context.Context, typ string, msg snet.SCMPPayload,
	p snet.Path) (time.Time, error) {

	sent := time.Now()
	if err := c.conn.SendSCMP(ctx, msg, p); err != nil {
		return time.Time{}, serrors.Wrap("sending request", err, "type", typ)
	}
	c.stats.Sent++
	metrics.CounterInc(metrics.CounterWith(c.metrics.Requests, "type", typ))
	return sent, nil
}

var errTimeout = errors.New("timeout")

// await receives SCMP messages until match accepts one, an error message is
// received, or the timeout expires. The caller must hold c.mtx.
func (c *Channel) await(ctx context.Context, typ string,
	match func(snet.SCMPPayload, *snet.ReplyPath) bool) error {

	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	start := time.Now()
	for {
		msg, from, err := c.conn.ReceiveSCMP(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				c.observeTimeout(typ)
				return errTimeout
			}
			return err
		}
		if msg == nil {
			// Non-blocking connection without data.
			select {
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					c.observeTimeout(typ)
					return errTimeout
				}
				return ctx.Err()
			case <-time.After(pollInterval):
			}
			continue
		}
		if snet.IsSCMPError(msg) {
			c.stats.Errors++
			metrics.CounterInc(metrics.CounterWith(c.metrics.Errors, "type", typ))
			return newDiagnosticError(msg, from)
		}
		if !match(msg, from) {
			log.FromCtx(ctx).Debug("Ignoring unexpected SCMP message",
				"scmp", snet.SCMPString(msg))
			continue
		}
		c.stats.Received++
		metrics.CounterInc(metrics.CounterWith(c.metrics.Replies, "type", typ))
		metrics.HistogramObserve(metrics.HistogramWith(c.metrics.RTT, "type", typ),
			time.Since(start).Seconds())
		return nil
	}
}

func (c *Channel) observeTimeout(typ string) {
	metrics.CounterInc(metrics.CounterWith(c.metrics.Timeouts, "type", typ))
}
