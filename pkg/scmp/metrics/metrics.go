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

// Package metrics defines the default initializer for the metrics of a
// scmp.Channel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scionproto/scion-client/pkg/metrics"
	"github.com/scionproto/scion-client/pkg/scmp"
)

// NewChannelMetrics creates the prometheus backed metrics of a scmp.Channel.
// All metrics are labeled with the request type, either "echo" or
// "traceroute".
func NewChannelMetrics(opts ...metrics.Option) scmp.Metrics {
	auto := metrics.ApplyOptions(opts...).Auto()
	labels := []string{"type"}
	return scmp.Metrics{
		Requests: metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: "lib_scmp_requests_total",
			Help: "Total number of SCMP informational requests sent."}, labels)),
		Replies: metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: "lib_scmp_replies_total",
			Help: "Total number of matching SCMP replies received."}, labels)),
		Timeouts: metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: "lib_scmp_timeouts_total",
			Help: "Total number of requests without reply."}, labels)),
		Errors: metrics.NewPromCounter(auto.NewCounterVec(prometheus.CounterOpts{
			Name: "lib_scmp_errors_total",
			Help: "Total number of SCMP errors received in response to a request."}, labels)),
		RTT: metrics.NewPromHistogram(auto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lib_scmp_rtt_seconds",
			Help:    "Round trip time of answered requests.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12)}, labels)),
	}
}
