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

package pathpol

import (
	"strings"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// Parse parses a policy expression. An expression is a list of terms
// separated by ';'. The ISD terms restrict the candidates, the last term may
// select among the remaining candidates:
//
//	first | max-bandwidth | min-latency | min-hops
//	isd-allow=<isd>[,<isd>...] | isd-disallow=<isd>[,<isd>...]
//
// Example: "isd-disallow=3;min-latency".
func Parse(expr string) (Policy, error) {
	terms := strings.Split(expr, ";")
	var chain Chain
	for i, term := range terms {
		p, err := parseTerm(strings.TrimSpace(term))
		if err != nil {
			return nil, serrors.Wrap("parsing policy", err, "expr", expr)
		}
		if len(terms) == 1 {
			return p, nil
		}
		if e, ok := p.(Evaluator); ok {
			chain.Evaluators = append(chain.Evaluators, e)
			continue
		}
		if i != len(terms)-1 {
			return nil, serrors.New("selecting policy must be the last term",
				"expr", expr, "term", term)
		}
		chain.Selector = p
	}
	return chain, nil
}

func parseTerm(term string) (Policy, error) {
	name, arg, hasArg := strings.Cut(term, "=")
	switch name {
	case "first", "":
		return First{}, nil
	case "max-bandwidth":
		return MaxBandwidth{}, nil
	case "min-latency":
		return MinLatency{}, nil
	case "min-hops":
		return MinHopCount{}, nil
	case "isd-allow", "isd-disallow":
		if !hasArg {
			return nil, serrors.New("missing ISD list", "term", term)
		}
		isds, err := parseISDs(arg)
		if err != nil {
			return nil, err
		}
		if name == "isd-allow" {
			return IsdAllow{ISDs: isds}, nil
		}
		return IsdDisallow{ISDs: isds}, nil
	}
	return nil, serrors.New("unknown policy", "name", name)
}

func parseISDs(list string) ([]addr.ISD, error) {
	var isds []addr.ISD
	for _, s := range strings.Split(list, ",") {
		isd, err := addr.ParseISD(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		isds = append(isds, isd)
	}
	return isds, nil
}

func fmtISDs(isds []addr.ISD) string {
	s := make([]string, 0, len(isds))
	for _, isd := range isds {
		s = append(s, isd.String())
	}
	return strings.Join(s, ",")
}
