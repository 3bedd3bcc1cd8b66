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

// Package path contains the building blocks shared by the SCION path types:
// the Path interface implemented by every path type, and the info and hop
// fields the SCION and OneHop path types are made of.
package path

import (
	"fmt"
)

// Type indicates the type of the path contained in the SCION header.
type Type uint8

// Path type values as assigned in the SCION header specification. Only Empty,
// SCION and OneHop paths are implemented.
const (
	TypeEmpty  Type = 0
	TypeSCION  Type = 1
	TypeOneHop Type = 2
	TypeEPIC   Type = 3
)

func (t Type) String() string {
	switch t {
	case TypeEmpty:
		return "Empty (0)"
	case TypeSCION:
		return "SCION (1)"
	case TypeOneHop:
		return "OneHop (2)"
	case TypeEPIC:
		return "EPIC (3)"
	}
	return fmt.Sprintf("UNKNOWN (%d)", uint8(t))
}

// Path is the path contained in the SCION header.
type Path interface {
	// SerializeTo serializes the path into the provided buffer.
	SerializeTo(b []byte) error
	// DecodeFromBytes decodes the path from the provided buffer.
	DecodeFromBytes(b []byte) error
	// Reverse reverses a path such that it can be used in the reversed
	// direction. The receiver may be modified and must not be used after the
	// call.
	Reverse() (Path, error)
	// Len returns the length of a path in bytes.
	Len() int
	// Type returns the type of a path.
	Type() Type
}
