// Copyright 2017 ETH Zurich
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

// Package addr holds the addresses the client sends to and receives from.
//
// An ISD-AS pair (IA) names a network: the isolation domain and the
// autonomous system within it. The host part is either an IP address or a
// service address (SVC). Addr combines the two into the destination of a
// packet; the UDP port travels separately in the layer-4 header.
//
// IA strings use the "<isd>-<as>" notation, where BGP-compatible AS numbers
// are decimal and all others are three colon-separated groups of hex digits,
// e.g. "1-ff00:0:110".
package addr
