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
package stress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/consensys/go-vault/pkg/util/termio"
	"github.com/consensys/go-vault/pkg/vault"
)

// Dump writes a table of all occupied slots to out, visiting each slot
// through a view so that every record read is consistent.  Free slots are
// skipped; concurrent mutators will make the dump a best-effort snapshot.
func dump(cfg *Config, pool *vault.Vault[Record], out io.Writer) {
	table := termio.NewTablePrinter(3)
	table.AnsiEscapes(cfg.Ansi)
	table.SetAlignment(2, termio.ALIGN_LEFT)
	//
	table.AddRow("slot", "count", "tag")
	table.SetEscape(0, 0, termio.BoldAnsiEscape().Build())
	table.SetEscape(1, 0, termio.BoldAnsiEscape().Build())
	table.SetEscape(2, 0, termio.BoldAnsiEscape().Build())
	//
	for i := uint(0); i < pool.Capacity(); i++ {
		handle, err := pool.View(i)
		//
		if err != nil {
			// Free (or just released) slot.
			continue
		}
		//
		record := *handle.Payload()
		handle.Close()
		//
		table.AddRow(fmt.Sprintf("%d", i), fmt.Sprintf("%d", record.Count), record.Tag)
		// Highlight mutated records.
		if record.Count > 0 {
			table.SetEscape(1, table.Height()-1, termio.NewAnsiEscape().FgColour(termio.TERM_CYAN).Build())
		}
	}
	// Keep long tags within the terminal.  The probe only speaks for
	// standard output, so dumps going elsewhere are never clamped.
	if out == io.Writer(os.Stdout) && termio.IsTerminal() {
		table.SetMaxWidth(2, termio.Width()/2)
	}
	//
	table.Print(out)
	fmt.Fprintf(out, "%d occupied slots\n", table.Height()-1)
}

// WriteSummary renders a phase-by-phase summary table for a completed run.
func WriteSummary(summary *Summary, ansi bool, out io.Writer) {
	table := termio.NewTablePrinter(2)
	table.AnsiEscapes(ansi)
	table.SetAlignment(0, termio.ALIGN_LEFT)
	//
	table.AddRow("filled", fmt.Sprintf("%d", summary.Filled))
	table.AddRow("mutation sum", fmt.Sprintf("%d", summary.MutationSum))
	table.AddRow("released", fmt.Sprintf("%d", summary.Released))
	table.AddRow("refilled", fmt.Sprintf("%d", summary.Refilled))
	table.AddRow("drained", fmt.Sprintf("%d", summary.Drained))
	table.AddRow("backfilled", fmt.Sprintf("%d", summary.Backfilled))
	table.AddRow("occupied", fmt.Sprintf("%d", summary.FinalOccupied))
	table.AddRow("elapsed", summary.Elapsed.Round(time.Millisecond).String())
	//
	table.Print(out)
}
