// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package termio

import (
	"os"

	"golang.org/x/term"
)

// DEFAULT_WIDTH is used when the terminal width cannot be determined, e.g.
// when output is redirected into a pipe.
const DEFAULT_WIDTH = uint(80)

// IsTerminal reports whether standard output is attached to a terminal.
// When it is not (e.g. output piped to a file), ANSI escapes should be
// disabled.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Width returns the width (in characters) of the terminal attached to
// standard output, or DEFAULT_WIDTH if there is no such terminal.
func Width() uint {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	//
	if err != nil || width <= 0 {
		return DEFAULT_WIDTH
	}
	//
	return uint(width)
}
