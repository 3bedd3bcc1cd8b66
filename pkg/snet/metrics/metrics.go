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

// Package metrics defines default initializers for the metrics structs that are used
// in the snet package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scionproto/scion-client/pkg/metrics"
	"github.com/scionproto/scion-client/pkg/snet"
)

// NewConnMetrics creates the prometheus backed metrics of a snet.Conn. With
// the default registerer it must be called at most once per process.
func NewConnMetrics(opts ...metrics.Option) snet.ConnMetrics {
	auto := metrics.ApplyOptions(opts...).Auto()
	return snet.ConnMetrics{
		Closes: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_snet_closes_total",
			Help: "Total number of Close calls."})),
		ReadBytes: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_snet_read_total_bytes",
			Help: "Total number of bytes read"})),
		ReadPackets: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_snet_read_total_pkts",
			Help: "Total number of packets read"})),
		WriteBytes: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_snet_write_total_bytes",
			Help: "Total number of bytes written"})),
		WritePackets: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_snet_write_total_pkts",
			Help: "Total number of packets written"})),
		ParseErrors: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_snet_parse_error_total",
			Help: "Total number of parse errors"})),
		DroppedPackets: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_snet_dropped_pkts_total",
			Help: "Total number of received packets dropped without delivery"})),
		TruncatedPackets: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_snet_truncated_pkts_total",
			Help: "Total number of received payloads truncated to the read buffer"})),
		PathRefreshes: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_snet_path_refreshes_total",
			Help: "Total number of expiry triggered path refreshes"})),
		SCMPErrors: NewSCMPErrors(opts...),
	}
}

// NewSCMPErrors creates the counter of received SCMP error messages.
func NewSCMPErrors(opts ...metrics.Option) metrics.SimpleCounter {
	auto := metrics.ApplyOptions(opts...).Auto()
	return metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
		Name: "lib_snet_scmp_error_total",
		Help: "Total number of SCMP errors"}))
}
