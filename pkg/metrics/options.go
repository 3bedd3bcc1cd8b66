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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Option customizes how default metrics are created.
type Option func(*Options)

// Options are the options for creating default metrics.
type Options struct {
	registry prometheus.Registerer
}

// WithRegistry specifies the registerer used to create the metrics. A nil
// registerer creates unregistered metrics, which is useful in tests.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(o *Options) {
		o.registry = registry
	}
}

// ApplyOptions applies the options on top of the defaults. By default, metrics
// are registered with the prometheus default registerer.
func ApplyOptions(options ...Option) Options {
	opts := Options{registry: prometheus.DefaultRegisterer}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// Auto returns the promauto factory for the configured registerer.
func (o Options) Auto() promauto.Factory {
	return promauto.With(o.registry)
}
