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
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers"
	"github.com/scionproto/scion-client/pkg/slayers/path"
	"github.com/scionproto/scion-client/pkg/slayers/path/scion"
	"github.com/scionproto/scion-client/pkg/snet"
)

// tracerouteProbes returns one raw path per interface on the path, in
// traversal order. Each raw path is a copy of the original with the router
// alert flag set for exactly one interface. Zero interfaces, i.e. the
// ingress of the first and the egress of the last hop of a segment, are not
// probed.
func tracerouteProbes(rp snet.RawPath) ([][]byte, error) {
	if rp.PathType != scion.PathType {
		return nil, serrors.WrapNoStack("traceroute requires a SCION path",
			slayers.ErrUnsupported, "type", rp.PathType)
	}
	var sp scion.Raw
	if err := sp.DecodeFromBytes(rp.Raw); err != nil {
		return nil, serrors.JoinNoStack(slayers.ErrMalformed, err)
	}
	var probes [][]byte
	for i := 0; i < sp.NumHops; i++ {
		hop, err := sp.GetHopField(i)
		if err != nil {
			return nil, serrors.JoinNoStack(slayers.ErrMalformed, err)
		}
		info, err := sp.GetInfoField(sp.InfIndexForHF(i))
		if err != nil {
			return nil, serrors.JoinNoStack(slayers.ErrMalformed, err)
		}
		// In traversal order the ingress comes first. Against construction
		// direction the roles of the two interfaces are swapped.
		ingress, egress := hop.ConsIngress, hop.ConsEgress
		if !info.ConsDir {
			ingress, egress = egress, ingress
		}
		if ingress != 0 {
			raw, err := alertedCopy(&sp, hop, i, info.ConsDir)
			if err != nil {
				return nil, err
			}
			probes = append(probes, raw)
		}
		if egress != 0 {
			raw, err := alertedCopy(&sp, hop, i, !info.ConsDir)
			if err != nil {
				return nil, err
			}
			probes = append(probes, raw)
		}
	}
	if len(probes) == 0 {
		return nil, serrors.New("path has no interfaces")
	}
	return probes, nil
}

// alertedCopy returns a copy of the path with the router alert flag set on
// hop idx. The ingress flag is set if consIngress is true, the egress flag
// otherwise. The bytes referenced by sp are not modified.
func alertedCopy(sp *scion.Raw, hop path.HopField, idx int, consIngress bool) ([]byte, error) {
	c, err := sp.Clone()
	if err != nil {
		return nil, serrors.Wrap("copying path", err)
	}
	if consIngress {
		hop.IngressRouterAlert = true
	} else {
		hop.EgressRouterAlert = true
	}
	if err := c.SetHopField(hop, idx); err != nil {
		return nil, serrors.Wrap("setting router alert", err)
	}
	return c.Raw, nil
}
