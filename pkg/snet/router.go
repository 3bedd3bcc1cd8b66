// Copyright 2018 ETH Zurich
// Copyright 2019 ETH Zurich, Anapaya Systems
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

package snet

import (
	"context"
	"sync"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// PathQuerier returns the candidate paths to a remote AS.
type PathQuerier interface {
	Query(ctx context.Context, dst addr.IA) ([]*ResolvedPath, error)
}

// PathPolicy selects one path out of a list of candidates.
type PathPolicy interface {
	Filter(candidates []*ResolvedPath) (*ResolvedPath, error)
}

// PathPolicyFunc is a function adapter for PathPolicy.
type PathPolicyFunc func(candidates []*ResolvedPath) (*ResolvedPath, error)

func (f PathPolicyFunc) Filter(candidates []*ResolvedPath) (*ResolvedPath, error) {
	return f(candidates)
}

// FirstPath is the default policy, it selects the first candidate.
var FirstPath PathPolicy = PathPolicyFunc(
	func(candidates []*ResolvedPath) (*ResolvedPath, error) {
		if len(candidates) == 0 {
			return nil, serrors.New("no candidate paths")
		}
		return candidates[0], nil
	},
)

// Router performs path resolution for SCION-speaking applications.
type Router struct {
	Querier PathQuerier
	// Policy selects the path. If nil, FirstPath is used.
	Policy PathPolicy
}

// Route returns a path to dst, chosen by the policy out of the paths returned
// by the querier. The path is addressed at the host of dst. Any failure is
// reported as ErrPathUnavailable.
func (r *Router) Route(ctx context.Context, dst addr.UDPAddr) (*ResolvedPath, error) {
	paths, err := r.AllRoutes(ctx, dst.IA)
	if err != nil {
		return nil, serrors.JoinNoStack(ErrPathUnavailable, err, "dst", dst)
	}
	if len(paths) == 0 {
		return nil, serrors.WrapNoStack("querier returned no paths", ErrPathUnavailable,
			"dst", dst)
	}
	policy := r.Policy
	if policy == nil {
		policy = FirstPath
	}
	p, err := policy.Filter(paths)
	if err != nil {
		return nil, serrors.JoinNoStack(ErrPathUnavailable, err, "dst", dst)
	}
	return p.WithHost(dst.Host), nil
}

// AllRoutes returns all paths to dst.
func (r *Router) AllRoutes(ctx context.Context, dst addr.IA) ([]*ResolvedPath, error) {
	return r.Querier.Query(ctx, dst)
}

// LocalIAProvider provides the ISD-AS of the local AS.
type LocalIAProvider interface {
	LocalIA(ctx context.Context) (addr.IA, error)
}

// StaticLocalIA is a LocalIAProvider for a fixed ISD-AS.
type StaticLocalIA addr.IA

func (ia StaticLocalIA) LocalIA(context.Context) (addr.IA, error) {
	return addr.IA(ia), nil
}

// CachedLocalIA remembers the first ISD-AS successfully returned by the
// provider. Failed lookups are retried on the next call.
type CachedLocalIA struct {
	Provider LocalIAProvider

	mtx sync.Mutex
	ia  addr.IA
}

func (c *CachedLocalIA) LocalIA(ctx context.Context) (addr.IA, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if !c.ia.IsZero() {
		return c.ia, nil
	}
	ia, err := c.Provider.LocalIA(ctx)
	if err != nil {
		return 0, serrors.Wrap("resolving local ISD-AS", err)
	}
	c.ia = ia
	return ia, nil
}
