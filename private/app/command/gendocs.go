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

// Package command contains cobra commands that are shared by the SCION client
// tools.
package command

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/scionproto/scion-client/pkg/private/serrors"
)

// Pather returns the path to a command.
type Pather interface {
	CommandPath() string
}

// NewGendocs creates a hidden command that writes one markdown page per
// available command of the tree into a directory.
func NewGendocs(pather Pather) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "gendocs <directory>",
		Short:   "Generate the markdown documentation of the command line tool",
		Example: fmt.Sprintf("  %[1]s gendocs doc/command", pather.CommandPath()),
		Args:    cobra.ExactArgs(1),
		Hidden:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Root().DisableAutoGenTag = true

			directory := args[0]
			if err := os.MkdirAll(directory, 0755); err != nil {
				return serrors.Wrap("creating directory", err, "directory", directory)
			}
			if err := genMarkdownTree(cmd.Root(), directory); err != nil {
				return serrors.Wrap("generating documentation", err, "directory", directory)
			}
			return nil
		},
	}
	return cmd
}

// docName is the base name of the page of cmd, without extension.
func docName(cmd *cobra.Command) string {
	return strings.ReplaceAll(cmd.CommandPath(), " ", "_")
}

func genMarkdownTree(cmd *cobra.Command, dir string) error {
	for _, c := range cmd.Commands() {
		if !c.IsAvailableCommand() || c.IsAdditionalHelpTopicCommand() {
			continue
		}
		if err := genMarkdownTree(c, dir); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!-- Generated by %s gendocs. Do not edit. -->\n\n",
		cmd.Root().Name())
	linkHandler := func(name string) string {
		return "./" + name
	}
	if err := doc.GenMarkdownCustom(cmd, &buf, linkHandler); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, docName(cmd)+".md"), buf.Bytes(), 0666)
}
