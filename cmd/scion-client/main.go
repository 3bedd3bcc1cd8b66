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

// scion-client is a command line tool to probe SCION destinations over
// statically configured paths.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/scionproto/scion-client/pkg/log"
	"github.com/scionproto/scion-client/private/app/command"
	"github.com/scionproto/scion-client/private/env"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer log.Flush()
	defer log.HandlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRoot(filepath.Base(os.Args[0]))
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
		return exitCode(err)
	}
	return 0
}

func newRoot(executable string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           executable,
		Short:         "SCION path-aware client",
		Long:          "A client to send echo and traceroute probes over SCION paths.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	cmd.AddCommand(
		newPing(cmd),
		newTraceroute(cmd),
		newShowpaths(cmd),
		command.NewSample(cmd, &env.Config{}),
		command.NewGendocs(cmd),
	)
	return cmd
}
