// Copyright 2016 ETH Zurich
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

package util

// Checksum calculates the RFC1071 checksum of the supplied data chunks. Every
// chunk is summed on its own, a chunk of odd length is padded with a 0.
func Checksum(srcs ...[]byte) uint16 {
	var sum uint32
	for _, src := range srcs {
		n := len(src)
		for i := 0; i+1 < n; i += 2 {
			sum += uint32(src[i])<<8 | uint32(src[i+1])
		}
		if n%2 != 0 {
			sum += uint32(src[n-1]) << 8
		}
	}
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return ^uint16(sum)
}
