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

// Package metrics provides the metric types used by the client libraries. The
// libraries only depend on the small interfaces in this package, so that users
// can plug in any backend. The default backend is prometheus.
//
// All helpers in this package accept nil metrics, in which case they are
// no-ops. This lets libraries leave metrics unset without nil checks on every
// call site.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SimpleCounter is a counter without labels.
type SimpleCounter interface {
	Add(delta float64)
}

// Counter is a counter that can be specialized with label values.
type Counter interface {
	SimpleCounter
	With(labelValues ...string) Counter
}

// Histogram describes a metric that takes repeated observations of the same
// kind of thing, and produces a statistical summary of those observations.
type Histogram interface {
	With(labelValues ...string) Histogram
	Observe(value float64)
}

// NewCounter wraps a prometheus counter as a SimpleCounter. It returns nil if
// c is nil.
func NewCounter(c prometheus.Counter) SimpleCounter {
	if c == nil {
		return nil
	}
	return c
}

// CounterInc increases c by one. A nil counter is ignored.
func CounterInc(c SimpleCounter) {
	CounterAdd(c, 1)
}

// CounterAdd increases c by delta. A nil counter is ignored.
func CounterAdd(c SimpleCounter, delta float64) {
	if c == nil {
		return
	}
	c.Add(delta)
}

// CounterWith returns c specialized with the label values. A nil counter
// stays nil.
func CounterWith(c Counter, labelValues ...string) Counter {
	if c == nil {
		return nil
	}
	return c.With(labelValues...)
}

// HistogramObserve records value in h. A nil histogram is ignored.
func HistogramObserve(h Histogram, value float64) {
	if h == nil {
		return
	}
	h.Observe(value)
}

// HistogramWith returns h specialized with the label values. A nil histogram
// stays nil.
func HistogramWith(h Histogram, labelValues ...string) Histogram {
	if h == nil {
		return nil
	}
	return h.With(labelValues...)
}
