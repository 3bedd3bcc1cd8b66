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

package scmp

import (
	"context"
	"errors"
	"time"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/snet"
)

// Update contains information about a single echo request.
type Update struct {
	Size     int
	Source   addr.UDPAddr
	Sequence int
	RTT      time.Duration
	State    State
}

// State indicates the outcome of an echo request.
type State int

// Possible states.
const (
	Success State = iota
	Timeout
)

func (s State) String() string {
	switch s {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// PingConfig configures a ping run.
type PingConfig struct {
	// Attempts is the number of pings to send.
	Attempts uint16
	// Interval is the time between sending pings.
	Interval time.Duration
	// PayloadSize is the size of the SCMP echo payload.
	PayloadSize int

	// ErrHandler is invoked for every SCMP error received in response to a
	// ping. Execution time must be small, as it is run synchronously.
	ErrHandler func(err error)
	// UpdateHandler is invoked for every ping that was answered or timed out.
	// Execution time must be small, as it is run synchronously.
	UpdateHandler func(Update)
}

// Ping sends echo requests over the path with the configuration. This blocks
// until the configured number of attempts is sent, or the context is
// canceled. SCMP errors do not abort the run, they are passed to the
// ErrHandler.
func Ping(ctx context.Context, ch *Channel, p snet.Path, cfg PingConfig) (Stats, error) {
	if cfg.Interval < time.Millisecond {
		return Stats{}, serrors.New("interval below millisecond")
	}
	if cfg.PayloadSize < 0 {
		return Stats{}, serrors.New("negative payload size", "size", cfg.PayloadSize)
	}
	pld := make([]byte, cfg.PayloadSize)
	var stats Stats

	send := time.NewTicker(cfg.Interval)
	defer send.Stop()
	for i := 0; i < int(cfg.Attempts); i++ {
		if i != 0 {
			select {
			case <-send.C:
			case <-ctx.Done():
				return stats, nil
			}
		}
		res, err := ch.SendEchoRequest(ctx, p, uint16(i), pld)
		var diagErr *DiagnosticError
		switch {
		case errors.As(err, &diagErr):
			stats.Sent++
			stats.Errors++
			if cfg.ErrHandler != nil {
				cfg.ErrHandler(err)
			}
			continue
		case ctx.Err() != nil:
			return stats, nil
		case err != nil:
			return stats, err
		}
		stats.Sent++
		update := Update{
			Size:     res.Size,
			Source:   res.Source,
			Sequence: int(res.Sequence),
			RTT:      res.RTT.Round(time.Microsecond),
			State:    Success,
		}
		if res.TimedOut {
			update.State = Timeout
		} else {
			stats.Received++
		}
		if cfg.UpdateHandler != nil {
			cfg.UpdateHandler(update)
		}
	}
	return stats, nil
}

// Size computes the full SCION packet size of an echo request with the given
// payload size.
func Size(local, remote addr.UDPAddr, p snet.Path, pldSize int) (int, error) {
	pkt := &snet.Packet{
		PacketInfo: snet.PacketInfo{
			Destination: snet.SCIONAddress{IA: remote.IA, Host: addr.HostIP(remote.Host.Addr())},
			Source:      snet.SCIONAddress{IA: local.IA, Host: addr.HostIP(local.Host.Addr())},
			Path:        p.Dataplane(),
			Payload:     snet.SCMPEchoRequest{Payload: make([]byte, pldSize)},
		},
	}
	if err := pkt.Serialize(); err != nil {
		return 0, err
	}
	return len(pkt.Bytes), nil
}
