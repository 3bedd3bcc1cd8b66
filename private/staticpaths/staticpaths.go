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

// Package staticpaths loads SCION paths from a YAML file and serves them as a
// snet.PathQuerier.
//
// The file lists the paths per destination ISD-AS:
//
//	paths:
//	  - destination: 1-ff00:0:111
//	    raw: "0000200000000000..."   # hex encoded SCION path
//	    next_hop: 10.0.0.1:30041
//	    interfaces: ["1-ff00:0:110#1", "1-ff00:0:111#2"]
//	    mtu: 1472
//	    latency: ["10ms"]
//	    bandwidth: [1000000]
//	    expiry: 2026-10-19T12:00:00Z
//
// Paths without raw bytes are paths inside the local AS.
package staticpaths

import (
	"context"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/scionproto/scion-client/pkg/addr"
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/private/util"
	"github.com/scionproto/scion-client/pkg/snet"
)

var _ snet.PathQuerier = (*Querier)(nil)

// File is the YAML representation of the path file.
type File struct {
	Paths []Path `yaml:"paths"`
}

// Path is the YAML representation of a single path.
type Path struct {
	Destination string   `yaml:"destination"`
	Raw         string   `yaml:"raw,omitempty"`
	NextHop     string   `yaml:"next_hop,omitempty"`
	Interfaces  []string `yaml:"interfaces,omitempty"`
	MTU         uint16   `yaml:"mtu,omitempty"`
	Latency     []string `yaml:"latency,omitempty"`
	Bandwidth   []uint64 `yaml:"bandwidth,omitempty"`
	Expiry      string   `yaml:"expiry,omitempty"`
	Notes       []string `yaml:"notes,omitempty"`
}

// Querier answers path queries from a fixed set of paths. Queries for the
// local AS are answered with the empty path.
type Querier struct {
	local addr.IA
	paths map[addr.IA][]*snet.ResolvedPath
}

// FromFile loads the paths from the YAML file.
func FromFile(local addr.IA, file string) (*Querier, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, serrors.Wrap("reading path file", err, "file", file)
	}
	q, err := FromBytes(local, raw)
	if err != nil {
		return nil, serrors.Wrap("loading path file", err, "file", file)
	}
	return q, nil
}

// FromBytes loads the paths from the YAML representation. Unknown keys are
// rejected.
func FromBytes(local addr.IA, raw []byte) (*Querier, error) {
	var f File
	if err := yaml.UnmarshalStrict(raw, &f); err != nil {
		return nil, serrors.Wrap("parsing yaml", err)
	}
	return New(local, f)
}

// New creates a Querier from the parsed file.
func New(local addr.IA, f File) (*Querier, error) {
	q := &Querier{
		local: local,
		paths: make(map[addr.IA][]*snet.ResolvedPath),
	}
	for i, entry := range f.Paths {
		p, err := entry.resolve()
		if err != nil {
			return nil, serrors.Wrap("invalid path", err, "index", i)
		}
		dst := p.Destination().IA
		q.paths[dst] = append(q.paths[dst], p)
	}
	return q, nil
}

// Query returns the paths to dst in file order. Expired paths are skipped.
func (q *Querier) Query(_ context.Context, dst addr.IA) ([]*snet.ResolvedPath, error) {
	if dst == q.local {
		p, err := snet.NewResolvedPath(dst, nil, "", snet.PathMetadata{})
		if err != nil {
			return nil, err
		}
		return []*snet.ResolvedPath{p}, nil
	}
	now := time.Now()
	var valid []*snet.ResolvedPath
	for _, p := range q.paths[dst] {
		if exp := p.Expiry(); !exp.IsZero() && !exp.After(now) {
			continue
		}
		valid = append(valid, p)
	}
	return valid, nil
}

// Destinations returns the number of known destination ASes.
func (q *Querier) Destinations() int {
	return len(q.paths)
}

func (p Path) resolve() (*snet.ResolvedPath, error) {
	dst, err := addr.ParseIA(p.Destination)
	if err != nil {
		return nil, serrors.Wrap("parsing destination", err)
	}
	if dst.IsWildcard() {
		return nil, serrors.New("destination must not be a wildcard", "destination", dst)
	}
	raw, err := hex.DecodeString(p.Raw)
	if err != nil {
		return nil, serrors.Wrap("decoding raw path", err, "destination", dst)
	}
	meta := snet.PathMetadata{
		MTU:       p.MTU,
		Bandwidth: p.Bandwidth,
		Notes:     p.Notes,
	}
	for _, s := range p.Interfaces {
		iface, err := parseInterface(s)
		if err != nil {
			return nil, serrors.Wrap("parsing interface", err, "destination", dst)
		}
		meta.Interfaces = append(meta.Interfaces, iface)
	}
	for _, s := range p.Latency {
		d, err := util.ParseDuration(s)
		if err != nil {
			return nil, serrors.Wrap("parsing latency", err, "destination", dst)
		}
		meta.Latency = append(meta.Latency, d)
	}
	if p.Expiry != "" {
		if meta.Expiry, err = time.Parse(time.RFC3339, p.Expiry); err != nil {
			return nil, serrors.Wrap("parsing expiry", err, "destination", dst)
		}
	}
	return snet.NewResolvedPath(dst, raw, p.NextHop, meta)
}

// parseInterface parses an interface in the format ISD-AS#ID.
func parseInterface(s string) (snet.PathInterface, error) {
	iaStr, idStr, ok := strings.Cut(s, "#")
	if !ok {
		return snet.PathInterface{}, serrors.New("missing '#'", "interface", s)
	}
	ia, err := addr.ParseIA(iaStr)
	if err != nil {
		return snet.PathInterface{}, err
	}
	id, err := strconv.ParseUint(idStr, 10, 16)
	if err != nil {
		return snet.PathInterface{}, serrors.Wrap("parsing interface ID", err, "interface", s)
	}
	return snet.PathInterface{IA: ia, ID: id}, nil
}

// Encode returns the YAML representation of the paths.
func Encode(paths []*snet.ResolvedPath) ([]byte, error) {
	var f File
	for _, p := range paths {
		meta := p.Metadata()
		entry := Path{
			Destination: p.Destination().IA.String(),
			Raw:         hex.EncodeToString(p.Dataplane().Raw),
			MTU:         meta.MTU,
			Bandwidth:   meta.Bandwidth,
			Notes:       meta.Notes,
		}
		if len(p.Dataplane().Raw) != 0 {
			entry.NextHop = p.UnderlayNextHop().String()
		}
		for _, iface := range meta.Interfaces {
			entry.Interfaces = append(entry.Interfaces, iface.String())
		}
		for _, l := range meta.Latency {
			entry.Latency = append(entry.Latency, util.FmtDuration(l))
		}
		if !meta.Expiry.IsZero() {
			entry.Expiry = meta.Expiry.UTC().Format(time.RFC3339)
		}
		f.Paths = append(f.Paths, entry)
	}
	return yaml.Marshal(f)
}
