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

package env_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/pkg/pathmgr"
	"github.com/scionproto/scion-client/pkg/pathpol"
	"github.com/scionproto/scion-client/pkg/snet"
	"github.com/scionproto/scion-client/private/config"
	"github.com/scionproto/scion-client/private/env"
)

func TestSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg env.Config
	cfg.Sample(&sample, nil, nil)

	var decoded env.Config
	require.NoError(t, config.Decode(sample.Bytes(), &decoded))
	decoded.InitDefaults()
	require.NoError(t, decoded.Validate())

	assert.Equal(t, addr.MustParseIA("1-ff00:0:110"), decoded.General.IA)
	assert.Equal(t, log.DefaultConsoleLevel, decoded.Logging.Console.Level)
	assert.Equal(t, log.DefaultConsoleFormat, decoded.Logging.Console.Format)

	local, err := decoded.Conn.LocalAddr()
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddrPort("127.0.0.1:0"), local)
	assert.Equal(t, snet.ConnConfig{ExpiryMargin: snet.DefaultExpiryMargin},
		decoded.Conn.ConnConfig())

	assert.Equal(t, env.DefaultPathsFile, decoded.Paths.File)
	assert.Equal(t, pathmgr.Config{
		TTL:           pathmgr.DefaultTTL,
		RevocationTTL: pathmgr.DefaultRevocationTTL,
	}, decoded.Paths.PathMgr())
	assert.Empty(t, decoded.Metrics.Prometheus)
}

func TestDefaults(t *testing.T) {
	var cfg env.Config
	require.NoError(t, config.Load("", &cfg))
	assert.True(t, cfg.General.IA.IsZero())

	local, err := cfg.Conn.LocalAddr()
	require.NoError(t, err)
	assert.True(t, local.Addr().IsUnspecified())
	assert.Equal(t, uint16(0), local.Port())

	policy, err := cfg.Paths.PathPolicy()
	require.NoError(t, err)
	assert.Equal(t, pathpol.First{}, policy)
}

func TestDecode(t *testing.T) {
	raw := `
[general]
isd_as = "2-ff00:0:220"

[conn]
local = "::1"
port = 31000
strict_validation = true
expiry_margin = "30s"

[paths]
file = "paths.yml"
policy = "isd-disallow=3;min-latency"
cache_ttl = "1m"
`
	var cfg env.Config
	require.NoError(t, config.Decode([]byte(raw), &cfg))
	cfg.InitDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, addr.MustParseIA("2-ff00:0:220"), cfg.General.IA)
	local, err := cfg.Conn.LocalAddr()
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddrPort("[::1]:31000"), local)
	assert.Equal(t, snet.ConnConfig{
		StrictValidation: true,
		ExpiryMargin:     30 * time.Second,
	}, cfg.Conn.ConnConfig())
	assert.Equal(t, "paths.yml", cfg.Paths.File)
	assert.Equal(t, pathmgr.Config{
		TTL:           time.Minute,
		RevocationTTL: pathmgr.DefaultRevocationTTL,
		ExpiryMargin:  30 * time.Second,
	}, cfg.PathMgr())

	policy, err := cfg.Paths.PathPolicy()
	require.NoError(t, err)
	assert.Equal(t, pathpol.Chain{
		Evaluators: []pathpol.Evaluator{pathpol.IsdDisallow{ISDs: []addr.ISD{3}}},
		Selector:   pathpol.MinLatency{},
	}, policy)
}

func TestValidate(t *testing.T) {
	testCases := map[string]string{
		"wildcard IA":    "[general]\nisd_as = \"1-0\"\n",
		"bad local":      "[conn]\nlocal = \"localhost\"\n",
		"bad policy":     "[paths]\npolicy = \"fastest\"\n",
		"bad prometheus": "[metrics]\nprometheus = \"localhost\"\n",
		"bad log level":  "[log.console]\nlevel = \"verbose\"\n",
	}
	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			var cfg env.Config
			require.NoError(t, config.Decode([]byte(raw), &cfg))
			cfg.InitDefaults()
			assert.Error(t, cfg.Validate())
		})
	}
	t.Run("unknown key", func(t *testing.T) {
		var cfg env.Config
		assert.Error(t, config.Decode([]byte("[conn]\nremote = \"x\"\n"), &cfg))
	})
	t.Run("negative duration", func(t *testing.T) {
		var cfg env.Config
		assert.Error(t, config.Decode([]byte("[paths]\ncache_ttl = \"-1s\"\n"), &cfg))
	})
}

func TestDuration(t *testing.T) {
	var cfg env.Config
	require.NoError(t, config.Decode([]byte("[conn]\nexpiry_margin = \"2d\"\n"), &cfg))
	assert.Equal(t, 48*time.Hour, cfg.Conn.ExpiryMargin.Duration)
	text, err := cfg.Conn.ExpiryMargin.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2d", string(text))

	cfg.InitDefaults()
	assert.Equal(t, 48*time.Hour, cfg.Conn.ExpiryMargin.Duration)
	assert.Equal(t, pathmgr.DefaultTTL, cfg.Paths.CacheTTL.Duration)

	var bad env.Duration
	assert.Error(t, bad.UnmarshalText([]byte("10 parsecs")))
}

func TestServePrometheus(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		var cfg env.Metrics
		assert.NoError(t, cfg.ServePrometheus(context.Background(), nil))
	})
	t.Run("serves registry", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		address := l.Addr().String()
		require.NoError(t, l.Close())

		reg := prometheus.NewRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "test_requests_total",
			Help: "Test counter.",
		})
		reg.MustRegister(counter)
		counter.Inc()

		cfg := env.Metrics{Prometheus: address}
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- cfg.ServePrometheus(ctx, reg) }()

		require.Eventually(t, func() bool {
			resp, err := http.Get("http://" + address + "/metrics")
			if err != nil {
				return false
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			return err == nil && bytes.Contains(body, []byte("test_requests_total 1"))
		}, 5*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})
}
