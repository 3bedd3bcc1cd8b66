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

package main

import (
	"context"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/metrics"
	"github.com/scionproto/scion-client/pkg/pathmgr"
	"github.com/scionproto/scion-client/pkg/pathpol"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/scmp"
	scmpmetrics "github.com/scionproto/scion-client/pkg/scmp/metrics"
	"github.com/scionproto/scion-client/pkg/snet"
	snetmetrics "github.com/scionproto/scion-client/pkg/snet/metrics"
	"github.com/scionproto/scion-client/private/app/flag"
	"github.com/scionproto/scion-client/private/config"
	"github.com/scionproto/scion-client/private/env"
	"github.com/scionproto/scion-client/private/staticpaths"
)

const logLevelUsage = "Console logging level, overrides the configuration (debug|info|error)"

// clientFlags are the flags shared by the commands that send packets.
type clientFlags struct {
	env      flag.ClientEnvironment
	logLevel string
	policy   string
	timeout  time.Duration
	noColor  bool
}

func (f *clientFlags) register(fs *pflag.FlagSet, timeout time.Duration, timeoutUsage string) {
	f.env.Register(fs)
	fs.StringVar(&f.logLevel, "log.level", "", logLevelUsage)
	fs.StringVar(&f.policy, "policy", "",
		"Path policy, overrides the configuration (see the sample configuration)")
	fs.Var(flag.Duration(&f.timeout, timeout), "timeout", timeoutUsage)
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
}

// client holds the resources used by a single command run.
type client struct {
	cfg     env.Config
	localIA addr.IA
	querier *pathmgr.Querier
	router  snet.Router
	conn    *snet.Conn
	channel *scmp.Channel

	cancel context.CancelFunc
	bg     *errgroup.Group
}

// loadConfig loads the configuration and applies the command line overrides.
func loadConfig(flags *clientFlags) (env.Config, error) {
	var cfg env.Config
	if err := flags.env.LoadExternalVars(); err != nil {
		return cfg, err
	}
	file := flags.env.ConfigFile()
	if err := config.Load(file, &cfg); err != nil {
		return cfg, serrors.Wrap("loading configuration", err, "file", file)
	}
	if flags.logLevel != "" {
		cfg.Logging.Console.Level = flags.logLevel
	}
	if flags.policy != "" {
		cfg.Paths.Policy = flags.policy
	}
	if err := cfg.Validate(); err != nil {
		return cfg, serrors.Wrap("validating configuration", err)
	}
	return cfg, nil
}

// newClient sets up logging, path lookup and a bound connection. The client
// must be closed after use.
func newClient(ctx context.Context, flags *clientFlags) (*client, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if err := log.Setup(cfg.Logging); err != nil {
		return nil, serrors.Wrap("setting up logging", err)
	}
	localIA := flags.env.IA(cfg.General.IA)
	if localIA.IsZero() || localIA.IsWildcard() {
		return nil, serrors.New("local ISD-AS not set, use --isd-as or [general] isd_as",
			"isd_as", localIA)
	}
	local, err := cfg.Conn.LocalAddr()
	if err != nil {
		return nil, err
	}
	local = netip.AddrPortFrom(flags.env.Local(local.Addr()), local.Port())
	log.Debug("Resolved client environment",
		"isd_as", localIA, "local", local, "paths", cfg.Paths.File)

	static, err := staticpaths.FromFile(localIA, cfg.Paths.File)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Paths.PathPolicy()
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	withReg := metrics.WithRegistry(reg)
	querier := pathmgr.New(static, cfg.PathMgr(), pathmgr.NewMetrics(withReg))

	conn := snet.NewConn(&snet.UDPTransport{}, querier, snet.StaticLocalIA(localIA),
		snet.WithConfig(cfg.Conn.ConnConfig()),
		snet.WithPolicy(policy),
		snet.WithRevocationHandler(querier),
		snet.WithMetrics(snetmetrics.NewConnMetrics(withReg)),
	)
	if err := conn.Bind(ctx, local); err != nil {
		return nil, serrors.Wrap("binding connection", err, "local", local)
	}

	bgCtx, cancel := context.WithCancel(ctx)
	bg, bgCtx := errgroup.WithContext(bgCtx)
	bg.Go(func() error {
		defer log.HandlePanic()
		return cfg.Metrics.ServePrometheus(bgCtx, reg)
	})

	return &client{
		cfg:     cfg,
		localIA: localIA,
		querier: querier,
		router:  snet.Router{Querier: querier, Policy: policy},
		conn:    conn,
		channel: scmp.NewChannel(conn,
			scmp.WithTimeout(flags.timeout),
			scmp.WithMetrics(scmpmetrics.NewChannelMetrics(withReg)),
		),
		cancel: cancel,
		bg:     bg,
	}, nil
}

// route returns the path to the destination selected by the policy.
func (c *client) route(ctx context.Context, dst addr.UDPAddr) (*snet.ResolvedPath, error) {
	p, err := c.router.Route(ctx, dst)
	if err != nil {
		return nil, serrors.Wrap("looking up path", err, "file", c.cfg.Paths.File)
	}
	return p, nil
}

// paths returns all known paths to the destination AS, ordered by the
// policy.
func (c *client) paths(ctx context.Context, dst addr.IA) ([]*snet.ResolvedPath, error) {
	paths, err := c.querier.Query(ctx, dst)
	if err != nil {
		return nil, err
	}
	policy, err := c.cfg.Paths.PathPolicy()
	if err != nil {
		return nil, err
	}
	return pathpol.Sort(policy, paths), nil
}

// Close releases the connection and stops the metrics server.
func (c *client) Close() error {
	err := c.conn.Close()
	c.cancel()
	if bgErr := c.bg.Wait(); bgErr != nil {
		log.Error("Serving metrics failed", "err", bgErr)
	}
	return err
}
