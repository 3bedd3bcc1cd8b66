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

// Package empty implements the path of packets that never leave the local
// AS. The path has no fields and takes no bytes on the wire.
package empty

import (
	"github.com/scionproto/scion-client/pkg/private/serrors"
	"github.com/scionproto/scion-client/pkg/slayers/path"
)

const PathType = path.TypeEmpty

// Path is the empty path. The zero value is ready to use.
type Path struct{}

// DecodeFromBytes fails if b is not empty.
func (Path) DecodeFromBytes(b []byte) error {
	if len(b) > 0 {
		return serrors.New("bytes left for empty path", "len", len(b))
	}
	return nil
}

func (Path) SerializeTo([]byte) error { return nil }

// Reverse returns p: the way back inside the AS needs no path either.
func (p Path) Reverse() (path.Path, error) { return p, nil }

func (Path) Len() int { return 0 }

func (Path) Type() path.Type { return PathType }
