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

package main

import "errors"

// Exit codes of the tool. Commands report a negative outcome of a probe, e.g.
// no reply received, with exitNegative. All other failures exit with
// exitError.
const (
	exitNegative = 1
	exitError    = 2
)

type exitCodeError struct {
	err  error
	code int
}

func (e exitCodeError) Error() string { return e.err.Error() }
func (e exitCodeError) Unwrap() error { return e.err }

// withExitCode attaches the exit code to the error.
func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return exitCodeError{err: err, code: code}
}

// exitCode returns the exit code attached to err, or exitError.
func exitCode(err error) int {
	var withCode exitCodeError
	if errors.As(err, &withCode) {
		return withCode.code
	}
	return exitError
}
