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
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/netip"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/pathpol"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/scmp"
	"github.com/scionproto/scion-client/pkg/snet"
	"github.com/scionproto/scion-client/private/app/command"
)

// DefaultMaxPaths is the maximum number of paths that are displayed by
// default.
const DefaultMaxPaths = 10

// Path states reported by showpaths when probing.
const (
	statusAlive       = "alive"
	statusTimeout     = "timeout"
	statusUnreachable = "unreachable"
	statusUnknown     = "unknown"
)

// showpathsResult is the result of a showpaths run.
type showpathsResult struct {
	Destination addr.IA     `json:"destination" yaml:"destination"`
	LocalIA     addr.IA     `json:"local_isd_as" yaml:"local_isd_as"`
	Paths       []pathEntry `json:"paths,omitempty" yaml:"paths,omitempty"`
}

type pathEntry struct {
	Path      `yaml:",inline"`
	Latency   durationMillis `json:"latency" yaml:"latency"`
	Bandwidth uint64         `json:"bandwidth_kbps" yaml:"bandwidth_kbps"`
	Status    string         `json:"status,omitempty" yaml:"status,omitempty"`
}

func (r showpathsResult) alive() int {
	var alive int
	for _, p := range r.Paths {
		if p.Status == statusAlive {
			alive++
		}
	}
	return alive
}

func newShowpaths(pather command.Pather) *cobra.Command {
	var flags struct {
		client   clientFlags
		maxPaths int
		extended bool
		probe    bool
		format   string
	}

	var cmd = &cobra.Command{
		Use:     "showpaths [flags] <isd-as>",
		Short:   "Display the paths to a SCION AS",
		Aliases: []string{"sp"},
		Args:    cobra.ExactArgs(1),
		Example: fmt.Sprintf(`  %[1]s showpaths 1-ff00:0:110 --extended
  %[1]s showpaths 1-ff00:0:110 --policy max-bandwidth --format json
  %[1]s showpaths 1-ff00:0:110 --probe`, pather.CommandPath()),
		Long: `'showpaths' lists the paths between the local and the specified SCION AS,
ordered by the path policy.

With --probe, every path is probed with SCMP traceroute packets. A path is
alive if the last interface on the path answers.

If no path is found, or no path is alive when probing, showpaths exits with
code 1. On other errors, showpaths exits with code 2.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, err := addr.ParseIA(args[0])
			if err != nil {
				return serrors.Wrap("invalid destination ISD-AS", err)
			}
			printf, err := getPrintf(flags.format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			color.NoColor = color.NoColor || flags.client.noColor
			cmd.SilenceUsage = true

			span, ctx := opentracing.StartSpanFromContext(cmd.Context(), "showpaths")
			span.SetTag("dst.isd_as", dst.String())
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

			paths, err := c.paths(ctx, dst)
			if err != nil {
				return err
			}
			if flags.maxPaths > 0 && len(paths) > flags.maxPaths {
				paths = paths[:flags.maxPaths]
			}
			local, err := c.conn.Local(ctx)
			if err != nil {
				return err
			}
			res := showpathsResult{Destination: dst, LocalIA: c.localIA}
			for _, p := range paths {
				entry := pathEntry{
					Path:      newPath(p, local.Host.Addr()),
					Bandwidth: pathpol.Bandwidth(p),
				}
				if latency := pathpol.Latency(p); latency != math.MaxInt64 {
					entry.Latency = durationMillis(latency)
				}
				if flags.probe {
					entry.Status = probe(ctx, c.channel, p)
				}
				res.Paths = append(res.Paths, entry)
			}

			if flags.format != "human" {
				if err := encode(cmd.OutOrStdout(), flags.format, res); err != nil {
					return serrors.Wrap("writing result", err)
				}
			} else if dst == c.localIA {
				printf("Empty path, destination is local AS %s\n", dst)
				return nil
			} else {
				printf("Available paths to %s\n", dst)
				humanTable(cmd.OutOrStdout(), res, flags.extended, flags.probe)
			}
			if len(res.Paths) == 0 {
				return withExitCode(serrors.New("no path found"), exitNegative)
			}
			if flags.probe && res.alive() == 0 {
				return withExitCode(serrors.New("no path alive"), exitNegative)
			}
			return nil
		},
	}

	flags.client.register(cmd.Flags(), scmp.DefaultTimeout, "Timeout per probe")
	cmd.Flags().IntVarP(&flags.maxPaths, "maxpaths", "m", DefaultMaxPaths,
		"Maximum number of paths that are displayed, 0 displays all")
	cmd.Flags().BoolVarP(&flags.extended, "extended", "e", false,
		"Show extended path meta data information")
	cmd.Flags().BoolVar(&flags.probe, "probe", false,
		"Probe the paths and print the health status")
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|json|yaml)")
	return cmd
}

// probe traceroutes the path and reports whether the last interface answers.
func probe(ctx context.Context, ch *scmp.Channel, p *snet.ResolvedPath) string {
	target := p.WithHost(netip.AddrPortFrom(netip.IPv4Unspecified(), 0))
	results, err := ch.SendTracerouteRequest(ctx, target)
	var diagErr *scmp.DiagnosticError
	switch {
	case errors.As(err, &diagErr):
		return statusUnreachable
	case err != nil:
		log.FromCtx(ctx).Debug("Probing path failed", "path", p, "err", err)
		return statusUnknown
	case len(results) == 0:
		return statusUnknown
	case results[len(results)-1].TimedOut:
		return statusTimeout
	default:
		return statusAlive
	}
}

func humanTable(w io.Writer, res showpathsResult, extended, probed bool) {
	header := []string{"#", "Hops", "MTU", "NextHop"}
	if extended {
		header = append(header, "Latency", "Bandwidth", "Expiry", "Fingerprint")
	}
	if probed {
		header = append(header, "Status")
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for i, p := range res.Paths {
		row := []string{strconv.Itoa(i), p.Sequence, strconv.Itoa(int(p.MTU)), p.NextHop}
		if extended {
			latency := "unknown"
			if p.Latency > 0 {
				latency = p.Latency.String()
			}
			bandwidth := "unknown"
			if p.Bandwidth > 0 {
				bandwidth = strconv.FormatUint(p.Bandwidth, 10) + " Kbit/s"
			}
			row = append(row, latency, bandwidth, p.Expiry, p.Fingerprint)
		}
		if probed {
			row = append(row, colorStatus(p.Status))
		}
		table.Append(row)
	}
	table.Render()
}

func colorStatus(status string) string {
	switch status {
	case statusAlive:
		return color.GreenString(status)
	case statusTimeout, statusUnreachable:
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}
