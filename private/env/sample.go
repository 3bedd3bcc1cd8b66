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

package env

const generalSample = `
# The ISD-AS the client is located in. Can be overridden with --isd-as or
# SCION_ISD_AS.
isd_as = "1-ff00:0:110"
`

const consoleSample = `
# Console logging level (debug|info|error). (default info)
level = "info"

# Console logging format (human|json). (default human)
format = "human"

# Do not annotate log entries with the calling function. (default false)
disable_caller = false
`

const connSample = `
# Local IP address to bind to. Can be overridden with --local or
# SCION_LOCAL_ADDR. (default: all interfaces)
local = "127.0.0.1"

# Local port to bind to. (default: ephemeral port)
port = 0

# Fail on malformed packets instead of dropping them. (default false)
strict_validation = false

# Return immediately from receive calls if no packet is waiting. (default false)
non_blocking = false

# Time before the path expiry at which a path is refreshed. (default 10s)
expiry_margin = "10s"
`

const pathsSample = `
# The static path file. (default /etc/scion/paths.yml)
file = "/etc/scion/paths.yml"

# The path policy, terms separated by ';'. Selecting terms are first,
# max-bandwidth, min-latency and min-hops. Filtering terms are
# isd-allow=<isds> and isd-disallow=<isds>. (default first)
policy = "first"

# Time looked up paths are cached for. (default 5m)
cache_ttl = "5m"

# Time an interface reported down is avoided for. (default 10s)
revocation_ttl = "10s"
`

const metricsSample = `
# The address to export prometheus metrics on (ip:port). The metrics can be
# found under /metrics. If not set, metrics are not exported. (default "")
prometheus = ""
`
