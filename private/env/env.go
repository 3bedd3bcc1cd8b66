// Copyright 2018 ETH Zurich, Anapaya Systems
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

// Package env contains the TOML configuration of the SCION client.
//
// The configuration consists of the tables [general], [log], [conn],
// [paths] and [metrics]. All tables are optional, unset values take their
// defaults.
package env

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/pathmgr"
	"github.com/scionproto/scion-client/pkg/pathpol"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/snet"
	"github.com/scionproto/scion-client/private/config"
)

const (
	// DefaultPathsFile is the default location of the static path file.
	DefaultPathsFile = "/etc/scion/paths.yml"

	// HandlerTimeout is the time after which the http handler gives up on a
	// request and returns an error instead.
	HandlerTimeout = time.Minute
)

var _ config.Config = (*Config)(nil)

// Config is the configuration of the SCION client.
type Config struct {
	General General    `toml:"general,omitempty"`
	Logging log.Config `toml:"log,omitempty"`
	Conn    Conn       `toml:"conn,omitempty"`
	Paths   Paths      `toml:"paths,omitempty"`
	Metrics Metrics    `toml:"metrics,omitempty"`
}

func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Conn,
		&cfg.Paths,
		&cfg.Metrics,
	)
}

func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Conn,
		&cfg.Paths,
		&cfg.Metrics,
	)
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteSample(dst, path, ctx,
		&cfg.General,
		logSampler{},
		&cfg.Conn,
		&cfg.Paths,
		&cfg.Metrics,
	)
}

// PathMgr returns the configuration of the path cache. Cached paths become
// stale at the same margin at which the snet.Conn refreshes them, so that a
// refresh reaches the path source.
func (cfg *Config) PathMgr() pathmgr.Config {
	pm := cfg.Paths.PathMgr()
	pm.ExpiryMargin = cfg.Conn.ExpiryMargin.Duration
	return pm
}

var _ config.Config = (*General)(nil)

// General contains the identity of the client.
type General struct {
	config.NoDefaulter
	// IA is the ISD-AS the client is located in. It may be left unset if it
	// is provided on the command line.
	IA addr.IA `toml:"isd_as,omitempty"`
}

func (cfg *General) Validate() error {
	if !cfg.IA.IsZero() && cfg.IA.IsWildcard() {
		return serrors.New("isd_as must not be a wildcard", "isd_as", cfg.IA)
	}
	return nil
}

func (cfg *General) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, generalSample)
}

func (cfg *General) ConfigName() string {
	return "general"
}

type logSampler struct{}

func (logSampler) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteSample(dst, path, ctx, config.StringSampler{Text: consoleSample, Name: "console"})
}

func (logSampler) ConfigName() string {
	return "log"
}

var _ config.Config = (*Conn)(nil)

// Conn configures the snet.Conn of the client.
type Conn struct {
	// Local is the local IP address to bind to. If unset, the client binds to
	// all interfaces and picks the source address per next hop.
	Local string `toml:"local,omitempty"`
	// Port is the local port to bind to. Zero picks an ephemeral port.
	Port uint16 `toml:"port,omitempty"`
	// StrictValidation makes receiving fail on malformed packets instead of
	// dropping them.
	StrictValidation bool `toml:"strict_validation,omitempty"`
	// NonBlocking makes receive calls return immediately if no packet is
	// waiting.
	NonBlocking bool `toml:"non_blocking,omitempty"`
	// ExpiryMargin is the time before the path expiry at which a path is
	// refreshed.
	ExpiryMargin Duration `toml:"expiry_margin,omitempty"`
}

func (cfg *Conn) InitDefaults() {
	cfg.ExpiryMargin.orDefault(snet.DefaultExpiryMargin)
}

func (cfg *Conn) Validate() error {
	if _, err := cfg.LocalAddr(); err != nil {
		return err
	}
	if cfg.ExpiryMargin.Duration < 0 {
		return serrors.New("expiry_margin must not be negative",
			"expiry_margin", cfg.ExpiryMargin)
	}
	return nil
}

// LocalAddr returns the local address to bind to.
func (cfg *Conn) LocalAddr() (netip.AddrPort, error) {
	if cfg.Local == "" {
		return netip.AddrPortFrom(netip.IPv4Unspecified(), cfg.Port), nil
	}
	ip, err := netip.ParseAddr(cfg.Local)
	if err != nil {
		return netip.AddrPort{}, serrors.Wrap("parsing local address", err, "local", cfg.Local)
	}
	return netip.AddrPortFrom(ip.Unmap(), cfg.Port), nil
}

// ConnConfig returns the configuration of the snet.Conn.
func (cfg *Conn) ConnConfig() snet.ConnConfig {
	return snet.ConnConfig{
		StrictValidation: cfg.StrictValidation,
		NonBlocking:      cfg.NonBlocking,
		ExpiryMargin:     cfg.ExpiryMargin.Duration,
	}
}

func (cfg *Conn) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, connSample)
}

func (cfg *Conn) ConfigName() string {
	return "conn"
}

var _ config.Config = (*Paths)(nil)

// Paths configures the path lookup of the client.
type Paths struct {
	// File is the static path file.
	File string `toml:"file,omitempty"`
	// Policy selects among the available paths, see pathpol.Parse.
	Policy string `toml:"policy,omitempty"`
	// CacheTTL is the time looked up paths are cached for.
	CacheTTL Duration `toml:"cache_ttl,omitempty"`
	// RevocationTTL is the time an interface reported down is avoided for.
	RevocationTTL Duration `toml:"revocation_ttl,omitempty"`
}

func (cfg *Paths) InitDefaults() {
	if cfg.File == "" {
		cfg.File = DefaultPathsFile
	}
	if cfg.Policy == "" {
		cfg.Policy = "first"
	}
	cfg.CacheTTL.orDefault(pathmgr.DefaultTTL)
	cfg.RevocationTTL.orDefault(pathmgr.DefaultRevocationTTL)
}

func (cfg *Paths) Validate() error {
	if _, err := cfg.PathPolicy(); err != nil {
		return err
	}
	if cfg.CacheTTL.Duration < 0 || cfg.RevocationTTL.Duration < 0 {
		return serrors.New("negative TTL", "cache_ttl", cfg.CacheTTL,
			"revocation_ttl", cfg.RevocationTTL)
	}
	return nil
}

// PathPolicy returns the parsed path policy.
func (cfg *Paths) PathPolicy() (pathpol.Policy, error) {
	return pathpol.Parse(cfg.Policy)
}

// PathMgr returns the configuration of the path cache.
func (cfg *Paths) PathMgr() pathmgr.Config {
	return pathmgr.Config{
		TTL:           cfg.CacheTTL.Duration,
		RevocationTTL: cfg.RevocationTTL.Duration,
	}
}

func (cfg *Paths) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, pathsSample)
}

func (cfg *Paths) ConfigName() string {
	return "paths"
}

var _ config.Config = (*Metrics)(nil)

// Metrics configures the export of prometheus metrics.
type Metrics struct {
	config.NoDefaulter
	// Prometheus contains the address to export prometheus metrics on. If
	// not set, metrics are not exported.
	Prometheus string `toml:"prometheus,omitempty"`
}

func (cfg *Metrics) Validate() error {
	if cfg.Prometheus == "" {
		return nil
	}
	if _, err := netip.ParseAddrPort(cfg.Prometheus); err != nil {
		return serrors.Wrap("parsing prometheus address", err, "prometheus", cfg.Prometheus)
	}
	return nil
}

func (cfg *Metrics) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, metricsSample)
}

func (cfg *Metrics) ConfigName() string {
	return "metrics"
}

// ServePrometheus serves the metrics of the registry until the context is
// canceled. A nil registry serves the default registry. It returns
// immediately if no address is configured.
func (cfg *Metrics) ServePrometheus(ctx context.Context, reg *prometheus.Registry) error {
	if cfg.Prometheus == "" {
		return nil
	}
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		registerer,
		promhttp.HandlerFor(
			gatherer,
			promhttp.HandlerOpts{Timeout: HandlerTimeout},
		),
	))
	log.FromCtx(ctx).Info("Exporting prometheus metrics", "addr", cfg.Prometheus)

	server := &http.Server{Addr: cfg.Prometheus, Handler: mux}
	stop := context.AfterFunc(ctx, func() { server.Close() })
	defer stop()
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return serrors.Wrap("serving prometheus metrics", err)
	}
	return nil
}
