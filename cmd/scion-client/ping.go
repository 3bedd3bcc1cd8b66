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

package main

import (
	"fmt"
	"math"
	"time"

	"github.com/fatih/color"
	"github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"

	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/scmp"
	"github.com/scionproto/scion-client/private/app/command"
	"github.com/scionproto/scion-client/private/app/flag"
)

// pingResult is the machine readable result of a ping run.
type pingResult struct {
	Path            Path      `json:"path" yaml:"path"`
	PayloadSize     int       `json:"payload_size" yaml:"payload_size"`
	ScionPacketSize int       `json:"scion_packet_size" yaml:"scion_packet_size"`
	Statistics      pingStats `json:"statistics" yaml:"statistics"`
	Replies         []reply   `json:"replies" yaml:"replies"`
}

type reply struct {
	Sequence int            `json:"scmp_seq" yaml:"scmp_seq"`
	Source   string         `json:"source_address" yaml:"source_address"`
	Size     int            `json:"size" yaml:"size"`
	RTT      durationMillis `json:"round_trip_time" yaml:"round_trip_time"`
	State    string         `json:"state" yaml:"state"`
}

type pingStats struct {
	scmp.Stats `yaml:",inline"`
	Loss       int            `json:"packet_loss" yaml:"packet_loss"`
	Time       durationMillis `json:"time" yaml:"time"`
	MinRTT     durationMillis `json:"min_rtt" yaml:"min_rtt"`
	AvgRTT     durationMillis `json:"avg_rtt" yaml:"avg_rtt"`
	MaxRTT     durationMillis `json:"max_rtt" yaml:"max_rtt"`
	MdevRTT    durationMillis `json:"mdev_rtt" yaml:"mdev_rtt"`
}

func newPing(pather command.Pather) *cobra.Command {
	var flags struct {
		client   clientFlags
		count    uint16
		interval time.Duration
		size     int
		format   string
	}

	var cmd = &cobra.Command{
		Use:   "ping [flags] <remote>",
		Short: "Test connectivity to a remote SCION host using SCMP echo packets",
		Example: fmt.Sprintf(`  %[1]s ping 1-ff00:0:110,10.0.0.1
  %[1]s ping 1-ff00:0:110,10.0.0.1 -c 5
  %[1]s ping 1-ff00:0:110,10.0.0.1 --policy min-latency --format json`,
			pather.CommandPath()),
		Long: `'ping' tests connectivity to a remote SCION host using SCMP echo packets.

The path is selected out of the static path file by the path policy. When
the --count option is set, ping sends the specified number of SCMP echo
packets and reports back the statistics. Otherwise, ping runs until it is
interrupted.

If no reply packet is received at all, ping exits with code 1.
On other errors, ping exits with code 2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, err := parseDestination(args[0])
			if err != nil {
				return err
			}
			printf, err := getPrintf(flags.format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			color.NoColor = color.NoColor || flags.client.noColor
			cmd.SilenceUsage = true

			span, ctx := opentracing.StartSpanFromContext(cmd.Context(), "ping")
			span.SetTag("dst.isd_as", remote.IA.String())
			span.SetTag("dst.host", remote.Host.Addr().String())
			defer span.Finish()

			c, err := newClient(ctx, &flags.client)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					log.Error("Closing client", "err", err)
				}
			}()

			path, err := c.route(ctx, remote)
			if err != nil {
				return err
			}
			local, err := c.conn.Local(ctx)
			if err != nil {
				return err
			}
			pktSize, err := scmp.Size(local, remote, path, flags.size)
			if err != nil {
				return serrors.Wrap("computing packet size", err)
			}
			res := pingResult{
				Path:            newPath(path, local.Host.Addr()),
				PayloadSize:     flags.size,
				ScionPacketSize: pktSize,
			}
			printf("Resolved local address:\n  %s,%s\n", local.IA, local.Host.Addr())
			printf("Using path:\n  Hops: %s MTU: %d NextHop: %s\n\n",
				path, path.MTU(), path.UnderlayNextHop())
			printf("PING %s pld=%dB scion_pkt=%dB\n", remote, flags.size, pktSize)

			attempts := flags.count
			if attempts == 0 {
				attempts = math.MaxUint16
			}
			start := time.Now()
			stats, err := scmp.Ping(ctx, c.channel, path, scmp.PingConfig{
				Attempts:    attempts,
				Interval:    flags.interval,
				PayloadSize: flags.size,
				ErrHandler: func(err error) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n",
						color.RedString("SCMP error:"), err)
				},
				UpdateHandler: func(update scmp.Update) {
					r := reply{
						Sequence: update.Sequence,
						Source:   update.Source.IA.String() + "," + update.Source.Host.Addr().String(),
						Size:     update.Size,
						RTT:      durationMillis(update.RTT),
						State:    update.State.String(),
					}
					res.Replies = append(res.Replies, r)
					if update.State == scmp.Timeout {
						printf("%s scmp_seq=%d\n", color.YellowString("timeout"), r.Sequence)
						return
					}
					printf("%d bytes from %s: scmp_seq=%d time=%s\n",
						r.Size, r.Source, r.Sequence, r.RTT)
				},
			})
			if err != nil {
				return err
			}
			res.Statistics = calculateStats(stats, res.Replies, time.Since(start))

			s := res.Statistics
			printf("\n--- %s,%s statistics ---\n", remote.IA, remote.Host.Addr())
			printf("%d packets transmitted, %d received, %d%% packet loss, time %v\n",
				s.Sent, s.Received, s.Loss, s.Time)
			if s.Received != 0 {
				printf("rtt min/avg/max/mdev = %.3f/%.3f/%.3f/%.3f ms\n",
					s.MinRTT.Millis(), s.AvgRTT.Millis(), s.MaxRTT.Millis(), s.MdevRTT.Millis())
			}
			if err := encode(cmd.OutOrStdout(), flags.format, res); err != nil {
				return serrors.Wrap("writing result", err)
			}
			if s.Received == 0 {
				return withExitCode(serrors.New("no reply packet received"), exitNegative)
			}
			return nil
		},
	}

	flags.client.register(cmd.Flags(), scmp.DefaultTimeout, "Timeout per packet")
	cmd.Flags().Uint16VarP(&flags.count, "count", "c", 0,
		"Total number of packets to send, 0 sends until interrupted")
	cmd.Flags().Var(flag.Duration(&flags.interval, time.Second), "interval",
		"Time between packets")
	cmd.Flags().IntVarP(&flags.size, "payload-size", "s", 0,
		"Number of bytes to be sent in addition to the SCION Header and SCMP echo header")
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|json|yaml)")
	return cmd
}

func calculateStats(s scmp.Stats, replies []reply, run time.Duration) pingStats {
	stats := pingStats{
		Stats: s,
		Time:  durationMillis(run),
	}
	if s.Sent != 0 {
		stats.Loss = 100 - s.Received*100/s.Sent
	}
	var sum, sumSq float64
	var n int
	for _, r := range replies {
		if r.State != scmp.Success.String() {
			continue
		}
		if n == 0 || r.RTT < stats.MinRTT {
			stats.MinRTT = r.RTT
		}
		if r.RTT > stats.MaxRTT {
			stats.MaxRTT = r.RTT
		}
		sum += float64(r.RTT)
		sumSq += float64(r.RTT) * float64(r.RTT)
		n++
	}
	if n == 0 {
		return stats
	}
	avg := sum / float64(n)
	stats.AvgRTT = durationMillis(avg)
	stats.MdevRTT = durationMillis(math.Sqrt(math.Max(sumSq/float64(n)-avg*avg, 0)))
	return stats
}
