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

package metrics

import (
	"sort"
	"strings"
	"sync"
)

// The fakes below keep their values in memory and can be inspected with the
// accompanying Value functions. They are intended for tests only.

type store struct {
	mtx    sync.Mutex
	values map[string]float64
	obs    map[string][]float64
}

func newStore() *store {
	return &store{
		values: make(map[string]float64),
		obs:    make(map[string][]float64),
	}
}

func labelKey(lvs []string) string {
	pairs := make([]string, 0, len(lvs)/2)
	for i := 0; i+1 < len(lvs); i += 2 {
		pairs = append(pairs, lvs[i]+"="+lvs[i+1])
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// TestCounter is an in-memory counter.
type TestCounter struct {
	s   *store
	lvs labelValuesSlice
}

// NewTestCounter creates a new in-memory counter.
func NewTestCounter() *TestCounter {
	return &TestCounter{s: newStore()}
}

func (c *TestCounter) With(labelValues ...string) Counter {
	return &TestCounter{s: c.s, lvs: c.lvs.With(labelValues...)}
}

func (c *TestCounter) Add(delta float64) {
	if delta < 0 {
		panic("counter increment value is < 0")
	}
	c.s.mtx.Lock()
	defer c.s.mtx.Unlock()
	c.s.values[labelKey(c.lvs)] += delta
}

// CounterValue returns the value of a TestCounter for the label values the
// counter was specialized with.
func CounterValue(c SimpleCounter) float64 {
	tc := c.(*TestCounter)
	tc.s.mtx.Lock()
	defer tc.s.mtx.Unlock()
	return tc.s.values[labelKey(tc.lvs)]
}

// TestHistogram is an in-memory histogram.
type TestHistogram struct {
	s   *store
	lvs labelValuesSlice
}

// NewTestHistogram creates a new in-memory histogram.
func NewTestHistogram() *TestHistogram {
	return &TestHistogram{s: newStore()}
}

func (h *TestHistogram) With(labelValues ...string) Histogram {
	return &TestHistogram{s: h.s, lvs: h.lvs.With(labelValues...)}
}

func (h *TestHistogram) Observe(value float64) {
	h.s.mtx.Lock()
	defer h.s.mtx.Unlock()
	key := labelKey(h.lvs)
	h.s.obs[key] = append(h.s.obs[key], value)
}

// HistogramObservations returns the observations of a TestHistogram for the
// label values the histogram was specialized with.
func HistogramObservations(h Histogram) []float64 {
	th := h.(*TestHistogram)
	th.s.mtx.Lock()
	defer th.s.mtx.Unlock()
	return append([]float64(nil), th.s.obs[labelKey(th.lvs)]...)
}
