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

package config_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/private/config"
)

type inner struct {
	Level string `toml:"level,omitempty"`
}

func (c *inner) InitDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c *inner) Validate() error {
	if c.Level == "invalid" {
		return serrors.New("invalid level")
	}
	return nil
}

func (c *inner) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, "\nlevel = \"info\"\n")
}

func (c *inner) ConfigName() string { return "inner" }

type outer struct {
	Inner inner `toml:"inner,omitempty"`
}

func (c *outer) InitDefaults() { config.InitAll(&c.Inner) }

func (c *outer) Validate() error { return config.ValidateAll(&c.Inner) }

func (c *outer) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteSample(dst, path, ctx, &c.Inner)
}

func TestWriteSample(t *testing.T) {
	var cfg outer
	var buf bytes.Buffer
	cfg.Sample(&buf, config.Path{"root"}, nil)
	assert.Equal(t, "\n[root.inner]\n    level = \"info\"\n", buf.String())

	var sample outer
	var flat bytes.Buffer
	cfg.Sample(&flat, nil, nil)
	require.NoError(t, config.Decode(flat.Bytes(), &sample))
	assert.Equal(t, "info", sample.Inner.Level)
}

func TestLoad(t *testing.T) {
	write := func(t *testing.T, content string) string {
		file := filepath.Join(t.TempDir(), "cfg.toml")
		require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
		return file
	}
	t.Run("defaults", func(t *testing.T) {
		var cfg outer
		require.NoError(t, config.Load("", &cfg))
		assert.Equal(t, "info", cfg.Inner.Level)
	})
	t.Run("file", func(t *testing.T) {
		var cfg outer
		require.NoError(t, config.Load(write(t, "[inner]\nlevel = \"debug\"\n"), &cfg))
		assert.Equal(t, "debug", cfg.Inner.Level)
	})
	t.Run("unknown key", func(t *testing.T) {
		var cfg outer
		assert.Error(t, config.Load(write(t, "[inner]\nlvl = \"debug\"\n"), &cfg))
	})
	t.Run("invalid", func(t *testing.T) {
		var cfg outer
		assert.Error(t, config.Load(write(t, "[inner]\nlevel = \"invalid\"\n"), &cfg))
	})
	t.Run("missing file", func(t *testing.T) {
		var cfg outer
		err := config.Load(filepath.Join(t.TempDir(), "missing.toml"), &cfg)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
