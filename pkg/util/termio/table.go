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
	"fmt"
	"io"
	"strings"
)

// ALIGN_RIGHT pads cell contents on the left (the default).
const ALIGN_RIGHT = uint(0)

// ALIGN_LEFT pads cell contents on the right.
const ALIGN_LEFT = uint(1)

// TablePrinter is useful for printing tables to the terminal.  Rows are
// appended one at a time, and column widths adjust themselves to the widest
// cell seen so far.
type TablePrinter struct {
	widths        []uint
	aligns        []uint
	rows          [][]string
	escapes       [][]string
	enableEscapes bool
}

// NewTablePrinter constructs an empty table with the given number of columns.
func NewTablePrinter(ncols uint) *TablePrinter {
	return &TablePrinter{
		widths:        make([]uint, ncols),
		aligns:        make([]uint, ncols),
		enableEscapes: true,
	}
}

// AnsiEscapes enables or disables the use of ANSI escapes (e.g. for showing
// colour).  Disabling escapes is useful in environments which don't support
// them as, otherwise, a lot of visible escape characters get printed.
func (p *TablePrinter) AnsiEscapes(enable bool) {
	p.enableEscapes = enable
}

// SetAlignment sets the alignment used for every cell in a given column.
func (p *TablePrinter) SetAlignment(col uint, align uint) {
	p.aligns[col] = align
}

// SetMaxWidth puts an upper bound on the width of a given column.  Longer
// cell contents are truncated with a trailing ellipsis when printed.
func (p *TablePrinter) SetMaxWidth(col uint, width uint) {
	p.widths[col] = min(p.widths[col], width)
}

// Height returns the number of rows appended so far.
func (p *TablePrinter) Height() uint {
	return uint(len(p.rows))
}

// AddRow appends a row to this table, widening columns as necessary.
func (p *TablePrinter) AddRow(vals ...string) {
	if len(vals) != len(p.widths) {
		panic("incorrect number of columns")
	}
	// Update column widths
	for i := 0; i < len(p.widths); i++ {
		p.widths[i] = max(p.widths[i], uint(len(vals[i])))
	}
	// Done
	p.rows = append(p.rows, vals)
	p.escapes = append(p.escapes, make([]string, len(vals)))
}

// SetEscape sets the colour to use when printing the contents of a given
// cell of an already appended row.
func (p *TablePrinter) SetEscape(col uint, row uint, escape string) {
	p.escapes[row][col] = escape
}

// Print writes the table out.
func (p *TablePrinter) Print(out io.Writer) {
	for i, row := range p.rows {
		for j, col := range row {
			jth := col
			jth_width := p.widths[j]
			jth_escape := p.escapes[i][j]
			// Truncate overlong cells
			if uint(len(col)) > jth_width {
				jth = fmt.Sprintf("%s..", col[0:jth_width-2])
			}
			// Apply colour (if applicable)
			if p.enableEscapes && jth_escape != "" {
				jth = fmt.Sprintf("%s%s%s", jth_escape, pad(jth, jth_width, p.aligns[j]),
					ResetAnsiEscape().Build())
			} else {
				jth = pad(jth, jth_width, p.aligns[j])
			}
			//
			fmt.Fprintf(out, " %s |", jth)
		}
		//
		fmt.Fprintln(out)
	}
}

// Pad the given string out to the given width, respecting alignment.
func pad(str string, width uint, align uint) string {
	padding := strings.Repeat(" ", int(width)-len(str))
	//
	if align == ALIGN_LEFT {
		return str + padding
	}
	//
	return padding + str
}
