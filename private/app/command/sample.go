// Copyright 2023 Anapaya Systems
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

package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scionproto/scion-client/private/config"
)

// NewSample creates a command that prints a sample configuration file.
func NewSample(pather Pather, sampler config.Sampler) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "sample",
		Short: "Display a sample configuration file",
		Example: fmt.Sprintf(`  %[1]s sample > client.toml
  %[1]s ping 1-ff00:0:110,10.0.0.1 --config client.toml`, pather.CommandPath()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sampler.Sample(cmd.OutOrStdout(), nil, nil)
			return nil
		},
	}
	return cmd
}
