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
	"time"

	"github.com/fatih/color"
	"github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"

	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/scmp"
	"github.com/scionproto/scion-client/private/app/command"
)

// tracerouteResult is the machine readable result of a traceroute run.
type tracerouteResult struct {
	Path Path       `json:"path" yaml:"path"`
	Hops []hopProbe `json:"hops" yaml:"hops"`
}

type hopProbe struct {
	Index     int            `json:"index" yaml:"index"`
	IA        string         `json:"isd_as" yaml:"isd_as"`
	Interface uint64         `json:"interface" yaml:"interface"`
	RTT       durationMillis `json:"round_trip_time" yaml:"round_trip_time"`
	TimedOut  bool           `json:"timed_out" yaml:"timed_out"`
}

func newTraceroute(pather command.Pather) *cobra.Command {
	var flags struct {
		client clientFlags
		format string
	}

	var cmd = &cobra.Command{
		Use:     "traceroute [flags] <remote>",
		Aliases: []string{"tr"},
		Short:   "Trace the SCION route to a remote SCION AS using SCMP traceroute packets",
		Example: fmt.Sprintf(`  %[1]s traceroute 1-ff00:0:110,10.0.0.1
  %[1]s traceroute 1-ff00:0:110,10.0.0.1 --policy min-hops --format yaml`,
			pather.CommandPath()),
		Long: `'traceroute' traces the SCION path to a remote AS using SCMP traceroute packets.

Every interface on the path is probed once, one after the other. Interfaces
that do not answer within the timeout are shown with '*'.

If no interface answers at all, traceroute exits with code 1.
On other errors, traceroute exits with code 2.`,
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

			span, ctx := opentracing.StartSpanFromContext(cmd.Context(), "traceroute")
			span.SetTag("dst.isd_as", remote.IA.String())
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
			printf("Using path:\n  Hops: %s MTU: %d NextHop: %s\n\n",
				path, path.MTU(), path.UnderlayNextHop())

			results, runErr := c.channel.SendTracerouteRequest(ctx, path)
			res := tracerouteResult{Path: newPath(path, local.Host.Addr())}
			var answered int
			for _, r := range results {
				hop := hopProbe{
					Index:     r.Index,
					IA:        r.IA.String(),
					Interface: r.Interface,
					RTT:       durationMillis(r.RTT.Round(time.Microsecond)),
					TimedOut:  r.TimedOut,
				}
				res.Hops = append(res.Hops, hop)
				if r.TimedOut {
					printf("%d %s IfID=%d %s\n", hop.Index, hop.IA, hop.Interface,
						color.YellowString("*"))
					continue
				}
				answered++
				printf("%d %s IfID=%d %s\n", hop.Index, hop.IA, hop.Interface, hop.RTT)
			}
			if err := encode(cmd.OutOrStdout(), flags.format, res); err != nil {
				return serrors.Wrap("writing result", err)
			}
			if runErr != nil {
				return serrors.Wrap("tracing route", runErr)
			}
			if answered == 0 {
				return withExitCode(serrors.New("no interface answered"), exitNegative)
			}
			return nil
		},
	}

	flags.client.register(cmd.Flags(), scmp.DefaultTimeout, "Timeout per probe")
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|json|yaml)")
	return cmd
}
