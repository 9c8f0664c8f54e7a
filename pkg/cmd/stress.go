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
package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/go-vault/pkg/stress"
	"github.com/consensys/go-vault/pkg/util/termio"
)

// stressCmd represents the stress command
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Exercise a slot pool from many concurrent actors.",
	Long: `Run the full stress sequence (fill, mutate, striped release, refill,
predicate drain, backfill) against a fresh pool, checking conservation at
every phase boundary, and print a summary of what happened.`,
	Run: func(cmd *cobra.Command, args []string) {
		ansi := !GetFlag(cmd, "no-ansi") && termio.IsTerminal()
		//
		cfg := stress.Config{
			Capacity:  GetUint(cmd, "capacity"),
			Actors:    GetUint(cmd, "actors"),
			Mutations: GetUint(cmd, "mutations"),
			Pace:      GetDuration(cmd, "pace"),
			Seed:      GetUint64(cmd, "seed"),
			Dump:      GetFlag(cmd, "dump"),
			Ansi:      ansi,
		}
		//
		summary, err := stress.Run(cfg, os.Stdout)
		if err != nil {
			log.Error(err)
			os.Exit(1)
		}
		//
		stress.WriteSummary(&summary, ansi, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(stressCmd)
	stressCmd.Flags().Uint("capacity", 1024, "number of slots in the pool")
	stressCmd.Flags().Uint("actors", 8, "number of concurrent actors")
	stressCmd.Flags().Uint("mutations", 200, "number of mutations per actor")
	stressCmd.Flags().Duration("pace", 0, "pause between consecutive operations of one actor")
	stressCmd.Flags().Uint64("seed", 0, "seed for per-actor randomness (0 = from clock)")
	stressCmd.Flags().Bool("dump", false, "dump pool contents after fill and backfill")
	stressCmd.Flags().Bool("no-ansi", false, "disable ANSI colour in output")
}
