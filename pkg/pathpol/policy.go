// Copyright 2018 ETH Zurich
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

// Package pathpol implements policies that select a single path out of a set
// of candidate paths.
//
// Every policy is deterministic: among equally good candidates the one that
// comes first in the input wins. The input slice is never modified.
package pathpol

import (
	"errors"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/snet"
)

// ErrNoCandidate is returned if no path satisfies a policy.
var ErrNoCandidate = errors.New("no candidate path")

// Policy selects one path out of a set of candidates.
type Policy interface {
	Filter(candidates []*snet.ResolvedPath) (*snet.ResolvedPath, error)
}

var (
	_ snet.PathPolicy = First{}
	_ snet.PathPolicy = MaxBandwidth{}
	_ snet.PathPolicy = MinLatency{}
	_ snet.PathPolicy = MinHopCount{}
	_ snet.PathPolicy = IsdAllow{}
	_ snet.PathPolicy = IsdDisallow{}
	_ snet.PathPolicy = Chain{}
)

// First selects the first candidate.
type First struct{}

func (First) Filter(candidates []*snet.ResolvedPath) (*snet.ResolvedPath, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidate
	}
	return candidates[0], nil
}

func (First) String() string { return "first" }

// MaxBandwidth selects the path with the highest bottleneck bandwidth. Links
// without announced bandwidth are ignored, a path without any announced
// bandwidth has bandwidth 0.
type MaxBandwidth struct{}

func (MaxBandwidth) Filter(candidates []*snet.ResolvedPath) (*snet.ResolvedPath, error) {
	return best(candidates, func(a, b *snet.ResolvedPath) bool {
		return Bandwidth(a) > Bandwidth(b)
	})
}

func (MaxBandwidth) String() string { return "max-bandwidth" }

// MinLatency selects the path with the lowest total latency. A link without
// announced latency makes the total latency infinite.
type MinLatency struct{}

func (MinLatency) Filter(candidates []*snet.ResolvedPath) (*snet.ResolvedPath, error) {
	return best(candidates, func(a, b *snet.ResolvedPath) bool {
		return Latency(a) < Latency(b)
	})
}

func (MinLatency) String() string { return "min-latency" }

// MinHopCount selects the path with the fewest interfaces.
type MinHopCount struct{}

func (MinHopCount) Filter(candidates []*snet.ResolvedPath) (*snet.ResolvedPath, error) {
	return best(candidates, func(a, b *snet.ResolvedPath) bool {
		return len(a.Interfaces()) < len(b.Interfaces())
	})
}

func (MinHopCount) String() string { return "min-hops" }

// IsdAllow selects the first path that only traverses the listed ISDs.
type IsdAllow struct {
	ISDs []addr.ISD
}

// Eval returns the candidates that only traverse the listed ISDs.
func (p IsdAllow) Eval(candidates []*snet.ResolvedPath) []*snet.ResolvedPath {
	return keep(candidates, func(isd addr.ISD) bool {
		return slices.Contains(p.ISDs, isd)
	})
}

func (p IsdAllow) Filter(candidates []*snet.ResolvedPath) (*snet.ResolvedPath, error) {
	return First{}.Filter(p.Eval(candidates))
}

func (p IsdAllow) String() string { return "isd-allow=" + fmtISDs(p.ISDs) }

// IsdDisallow selects the first path that traverses none of the listed ISDs.
type IsdDisallow struct {
	ISDs []addr.ISD
}

// Eval returns the candidates that traverse none of the listed ISDs.
func (p IsdDisallow) Eval(candidates []*snet.ResolvedPath) []*snet.ResolvedPath {
	return keep(candidates, func(isd addr.ISD) bool {
		return !slices.Contains(p.ISDs, isd)
	})
}

func (p IsdDisallow) Filter(candidates []*snet.ResolvedPath) (*snet.ResolvedPath, error) {
	return First{}.Filter(p.Eval(candidates))
}

func (p IsdDisallow) String() string { return "isd-disallow=" + fmtISDs(p.ISDs) }

// Evaluator reduces a set of candidates without selecting one.
type Evaluator interface {
	Eval(candidates []*snet.ResolvedPath) []*snet.ResolvedPath
}

// Chain applies the evaluators in order and lets the selector choose among
// the remaining candidates. A nil selector selects the first remaining path.
type Chain struct {
	Evaluators []Evaluator
	Selector   Policy
}

func (c Chain) Filter(candidates []*snet.ResolvedPath) (*snet.ResolvedPath, error) {
	for _, e := range c.Evaluators {
		candidates = e.Eval(candidates)
	}
	if c.Selector == nil {
		return First{}.Filter(candidates)
	}
	return c.Selector.Filter(candidates)
}

// Bandwidth returns the bottleneck bandwidth of the path in Kbit/s. Links
// without announced bandwidth are ignored.
func Bandwidth(p *snet.ResolvedPath) uint64 {
	var bottleneck uint64
	for _, bw := range p.Metadata().Bandwidth {
		if bw == 0 {
			continue
		}
		if bottleneck == 0 || bw < bottleneck {
			bottleneck = bw
		}
	}
	return bottleneck
}

// Latency returns the total latency of the path. It is math.MaxInt64 if the
// latency of any link on the path is unknown.
func Latency(p *snet.ResolvedPath) time.Duration {
	meta := p.Metadata()
	if links := len(meta.Interfaces) - 1; links > 0 && len(meta.Latency) < links {
		return math.MaxInt64
	}
	var total time.Duration
	for _, l := range meta.Latency {
		if l <= 0 {
			return math.MaxInt64
		}
		total += l
	}
	return total
}

// Sort returns the candidates ordered by the policy, best first. Policies
// that do not rank paths keep the input order, filtering policies drop the
// paths they reject.
func Sort(policy Policy, candidates []*snet.ResolvedPath) []*snet.ResolvedPath {
	sorted := slices.Clone(candidates)
	var less func(a, b *snet.ResolvedPath) bool
	switch p := policy.(type) {
	case MaxBandwidth:
		less = func(a, b *snet.ResolvedPath) bool { return Bandwidth(a) > Bandwidth(b) }
	case MinLatency:
		less = func(a, b *snet.ResolvedPath) bool { return Latency(a) < Latency(b) }
	case MinHopCount:
		less = func(a, b *snet.ResolvedPath) bool {
			return len(a.Interfaces()) < len(b.Interfaces())
		}
	case Evaluator:
		return p.Eval(sorted)
	default:
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}

// best returns the first candidate that no other candidate is better than.
func best(candidates []*snet.ResolvedPath,
	better func(a, b *snet.ResolvedPath) bool) (*snet.ResolvedPath, error) {

	if len(candidates) == 0 {
		return nil, ErrNoCandidate
	}
	selected := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, selected) {
			selected = c
		}
	}
	return selected, nil
}

func keep(candidates []*snet.ResolvedPath,
	allowed func(addr.ISD) bool) []*snet.ResolvedPath {

	var result []*snet.ResolvedPath
	for _, c := range candidates {
		ok := true
		for _, isd := range c.ISDs() {
			if !allowed(isd) {
				ok = false
				break
			}
		}
		if ok {
			result = append(result, c)
		}
	}
	return result
}
