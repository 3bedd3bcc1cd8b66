// Copyright 2018 ETH Zurich
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

import (
	"regexp"
	"strconv"
	"time"

	"github.com/scionproto/scion-client/pkg/private/serrors"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
	year = 365 * day
)

var durationRe = regexp.MustCompile(`^([0-9]+)(ns|us|µs|ms|s|m|h|d|w|y)$`)

var durationUnits = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  day,
	"w":  week,
	"y":  year,
}

// ParseDuration parses a duration consisting of a single integer and a single
// unit. Besides the units supported by time.ParseDuration, "d" (days), "w"
// (weeks) and "y" (365 days) are accepted.
func ParseDuration(s string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, serrors.New("invalid duration", "value", s)
	}
	v, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, serrors.Wrap("parsing duration value", err, "value", s)
	}
	return time.Duration(v) * durationUnits[m[2]], nil
}

// FmtDuration formats d with the largest unit that represents it exactly, in
// the format accepted by ParseDuration.
func FmtDuration(d time.Duration) string {
	for _, u := range []struct {
		unit string
		dur  time.Duration
	}{
		{"y", year}, {"w", week}, {"d", day}, {"h", time.Hour}, {"m", time.Minute},
		{"s", time.Second}, {"ms", time.Millisecond}, {"us", time.Microsecond},
	} {
		if d != 0 && d%u.dur == 0 {
			return strconv.FormatInt(int64(d/u.dur), 10) + u.unit
		}
	}
	return strconv.FormatInt(int64(d), 10) + "ns"
}
