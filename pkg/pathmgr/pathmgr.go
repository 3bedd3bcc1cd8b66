// Copyright 2019 Anapaya Systems
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

// Package pathmgr provides a caching snet.PathQuerier.
//
// Concurrent lookups for the same destination are collapsed into a single
// backend query. Paths over interfaces that were reported down are removed
// from the cache and filtered from new results until the revocation expires.
package pathmgr

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/metrics"
	"github.com/scionproto/scion-client/pkg/snet"
)

const (
	// DefaultTTL is the default time paths are cached for.
	DefaultTTL = 5 * time.Minute
	// DefaultRevocationTTL is the default time an interface reported down is
	// avoided for.
	DefaultRevocationTTL = 10 * time.Second
)

var (
	_ snet.PathQuerier       = (*Querier)(nil)
	_ snet.RevocationHandler = (*Querier)(nil)
)

// Config configures the Querier.
type Config struct {
	// TTL is the time paths are cached for. Paths are never returned past
	// their own expiry.
	TTL time.Duration
	// RevocationTTL is the time an interface reported down is avoided for.
	RevocationTTL time.Duration
	// ExpiryMargin is the time before their expiry at which cached paths
	// are considered stale and the backend is asked again. It should match
	// the margin of the snet.Conn refreshing its paths through the Querier.
	ExpiryMargin time.Duration
}

// InitDefaults sets the unset fields to their default values.
func (c *Config) InitDefaults() {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.RevocationTTL == 0 {
		c.RevocationTTL = DefaultRevocationTTL
	}
}

// Metrics are the metrics of the Querier. Nil counters are ignored.
type Metrics struct {
	CacheHits   metrics.SimpleCounter
	CacheMisses metrics.SimpleCounter
	Revocations metrics.SimpleCounter
}

// NewMetrics creates the prometheus backed metrics of a Querier.
func NewMetrics(opts ...metrics.Option) Metrics {
	auto := metrics.ApplyOptions(opts...).Auto()
	return Metrics{
		CacheHits: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_pathmgr_cache_hits_total",
			Help: "Total number of path lookups answered from the cache."})),
		CacheMisses: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_pathmgr_cache_misses_total",
			Help: "Total number of path lookups forwarded to the backend."})),
		Revocations: metrics.NewCounter(auto.NewCounter(prometheus.CounterOpts{
			Name: "lib_pathmgr_revocations_total",
			Help: "Total number of interfaces reported down."})),
	}
}

// Querier caches the results of a backend PathQuerier.
type Querier struct {
	backend snet.PathQuerier
	cfg     Config
	metrics Metrics

	sf singleflight.Group
	// Do not embed the caches to keep the API surface small.
	paths   *cache.Cache
	revoked *cache.Cache
	lock    sync.RWMutex
}

// New creates a caching Querier in front of the backend.
func New(backend snet.PathQuerier, cfg Config, m Metrics) *Querier {
	cfg.InitDefaults()
	return &Querier{
		backend: backend,
		cfg:     cfg,
		metrics: m,
		// Expired items are removed on writes, no janitor is started.
		paths:   cache.New(cfg.TTL, 0),
		revoked: cache.New(cfg.RevocationTTL, 0),
	}
}

// Query returns the paths to the destination. Cached paths are returned as
// long as at least one of them is valid for longer than the expiry margin.
// Otherwise the backend is queried, and its paths are returned even if they
// expire within the margin.
func (q *Querier) Query(ctx context.Context, dst addr.IA) ([]*snet.ResolvedPath, error) {
	if paths := q.cached(dst); len(paths) > 0 {
		metrics.CounterInc(q.metrics.CacheHits)
		return paths, nil
	}
	metrics.CounterInc(q.metrics.CacheMisses)
	ch := q.sf.DoChan(dst.String(), func() (interface{}, error) {
		// The shared query must not be canceled by the first caller leaving.
		return q.fetch(context.WithoutCancel(ctx), dst)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]*snet.ResolvedPath)), nil
	}
}

func (q *Querier) fetch(ctx context.Context, dst addr.IA) ([]*snet.ResolvedPath, error) {
	paths, err := q.backend.Query(ctx, dst)
	if err != nil {
		return nil, err
	}
	q.lock.Lock()
	defer q.lock.Unlock()
	q.paths.DeleteExpired()
	paths = q.usable(paths, 0)
	log.FromCtx(ctx).Debug("Fetched paths", "dst", dst, "count", len(paths))
	if len(paths) > 0 {
		q.paths.SetDefault(dst.String(), paths)
	}
	return paths, nil
}

func (q *Querier) cached(dst addr.IA) []*snet.ResolvedPath {
	q.lock.RLock()
	defer q.lock.RUnlock()
	obj, ok := q.paths.Get(dst.String())
	if !ok {
		return nil
	}
	return q.usable(obj.([]*snet.ResolvedPath), q.cfg.ExpiryMargin)
}

// usable returns the paths that are valid for longer than margin and do not
// traverse a revoked interface. The caller must hold the lock.
func (q *Querier) usable(paths []*snet.ResolvedPath, margin time.Duration) []*snet.ResolvedPath {
	deadline := time.Now().Add(margin)
	var result []*snet.ResolvedPath
	for _, p := range paths {
		if exp := p.Expiry(); !exp.IsZero() && !deadline.Before(exp) {
			continue
		}
		if q.traversesRevoked(p) {
			continue
		}
		result = append(result, p)
	}
	return result
}

func (q *Querier) traversesRevoked(p *snet.ResolvedPath) bool {
	if q.revoked.ItemCount() == 0 {
		return false
	}
	for _, iface := range p.Interfaces() {
		if _, ok := q.revoked.Get(revKey(iface.IA, iface.ID)); ok {
			return true
		}
	}
	return false
}

// Revoke removes all cached paths over the interface and avoids it in new
// results for the revocation TTL.
func (q *Querier) Revoke(ctx context.Context, ia addr.IA, ifID uint64) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	metrics.CounterInc(q.metrics.Revocations)
	q.revoked.DeleteExpired()
	q.revoked.SetDefault(revKey(ia, ifID), struct{}{})

	var removed int
	for key, item := range q.paths.Items() {
		paths := item.Object.([]*snet.ResolvedPath)
		remaining := q.usable(paths, 0)
		if len(remaining) == len(paths) {
			continue
		}
		removed += len(paths) - len(remaining)
		ttl := time.Until(time.Unix(0, item.Expiration))
		if len(remaining) == 0 || ttl <= 0 {
			q.paths.Delete(key)
			continue
		}
		q.paths.Set(key, remaining, ttl)
	}
	log.FromCtx(ctx).Debug("Revoked interface", "ia", ia, "if_id", ifID, "removed", removed)
	return nil
}

// Flush drops all cached paths. Revocations are kept.
func (q *Querier) Flush() {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.paths.Flush()
}

func revKey(ia addr.IA, ifID uint64) string {
	return fmt.Sprintf("%s#%d", ia, ifID)
}
