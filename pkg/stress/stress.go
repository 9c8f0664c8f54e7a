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

// Package stress exercises a vault from many concurrent actors through a
// fixed sequence of phases (fill, mutate, release, refill, drain,
// backfill), checking after each phase that nothing was lost or duplicated
// along the way.  Its purpose is to demonstrate, and to stress, the vault's
// concurrency contract; it has no other production role.
package stress

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-vault/pkg/util"
	"github.com/consensys/go-vault/pkg/vault"
)

// ErrCheckFailed is the sentinel wrapped by every conservation-check
// failure, allowing callers to distinguish a violated check from an
// operational error.
var ErrCheckFailed = errors.New("conservation check failed")

// Record is the payload every slot carries during a stress run: a mutation
// counter, and a tag identifying which actor wrote the slot (and which
// actors mutated it since).
type Record struct {
	// Number of times this record has been mutated.
	Count uint
	// Writer-assigned identity, of the form "<actor>_<item>".  Mutators
	// append "_<actor>" on each visit.
	Tag string
}

// Config parameterises a stress run.
type Config struct {
	// Capacity of the vault under test.
	Capacity uint
	// Number of concurrent actors.
	Actors uint
	// Number of mutations each actor performs.
	Mutations uint
	// Optional pause between consecutive operations of one actor, used to
	// widen the interleaving window.
	Pace time.Duration
	// Seed for the per-actor random streams.  Zero means derive one from
	// the clock.
	Seed uint64
	// Whether to print full vault contents after the fill and backfill
	// phases.
	Dump bool
	// Whether dumps may use ANSI colour.
	Ansi bool
}

// Validate checks this configuration is well-formed.  The striped release
// and fill phases divide the vault evenly between actors, hence the
// divisibility requirement.
func (c *Config) Validate() error {
	switch {
	case c.Capacity == 0:
		return errors.New("capacity must be positive")
	case c.Actors < 2:
		return errors.New("at least two actors required")
	case c.Capacity%c.Actors != 0:
		return fmt.Errorf("capacity %d not divisible by %d actors", c.Capacity, c.Actors)
	}
	//
	return nil
}

// Summary reports what a stress run did, phase by phase.
type Summary struct {
	// Slots allocated during the fill phase.
	Filled uint
	// Sum of all record counters after the mutation phase.
	MutationSum uint
	// Successful (true-returning) index releases during the striped
	// release phase.
	Released uint
	// Slots allocated during the refill phase.
	Refilled uint
	// Slots freed by the predicate drain phase.
	Drained uint
	// Slots allocated during the backfill phase.
	Backfilled uint
	// Occupied slots at the end of the run.
	FinalOccupied uint
	// Wall-clock duration of the whole run.
	Elapsed time.Duration
}

// Run executes the full phase sequence against a fresh vault, writing any
// dumps (and the final summary) to out.  It fails either on an operational
// error, or with an ErrCheckFailed-wrapping error when a conservation
// check does not hold.
func Run(cfg Config, out io.Writer) (Summary, error) {
	var summary Summary
	//
	if err := cfg.Validate(); err != nil {
		return summary, err
	}
	//
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	//
	pool := vault.New[Record](cfg.Capacity)
	start := time.Now()
	// Run phases in sequence, stopping at the first failure.
	err := runPhases(&cfg, pool, &summary, seed, out)
	//
	summary.FinalOccupied = pool.Occupancy().Count()
	summary.Elapsed = time.Since(start)
	//
	return summary, err
}

func runPhases(cfg *Config, pool *vault.Vault[Record], summary *Summary, seed uint64, out io.Writer) error {
	// Phase 1: concurrent fill to capacity.
	filled, err := fill(cfg, pool)
	summary.Filled = filled
	//
	if err != nil {
		return err
	} else if err := checkOccupied(pool, cfg.Capacity, "fill"); err != nil {
		return err
	}
	//
	if cfg.Dump {
		dump(cfg, pool, out)
	}
	// Phase 2: concurrent random mutations.
	sum, err := mutate(cfg, pool, seed)
	summary.MutationSum = sum
	//
	if err != nil {
		return err
	} else if expected := cfg.Actors * cfg.Mutations; sum != expected {
		return fmt.Errorf("%w: mutation sum %d, expected %d", ErrCheckFailed, sum, expected)
	}
	// Phase 3: striped release, with actors deliberately overlapping.
	released, err := stripedRelease(cfg, pool)
	summary.Released = released
	//
	if err != nil {
		return err
	} else if released != cfg.Capacity {
		return fmt.Errorf("%w: %d successful releases, expected %d", ErrCheckFailed, released, cfg.Capacity)
	}
	// Phase 4: refill to capacity.
	refilled, err := fill(cfg, pool)
	summary.Refilled = refilled
	//
	if err != nil {
		return err
	} else if err := checkOccupied(pool, cfg.Capacity, "refill"); err != nil {
		return err
	}
	// Phase 5: concurrent predicate drain of actor 2's records.
	drained, err := drain(cfg, pool)
	summary.Drained = drained
	//
	if err != nil {
		return err
	} else if expected := cfg.Capacity / cfg.Actors; drained != expected {
		return fmt.Errorf("%w: drained %d slots, expected %d", ErrCheckFailed, drained, expected)
	}
	// Phase 6: backfill the drained slots.
	backfilled, err := backfill(cfg, pool, drained)
	summary.Backfilled = backfilled
	//
	if err != nil {
		return err
	} else if err := checkOccupied(pool, cfg.Capacity, "backfill"); err != nil {
		return err
	}
	//
	if cfg.Dump {
		dump(cfg, pool, out)
	}
	//
	return nil
}

// Fill claims every free slot, dividing the work evenly between actors.
// Each actor tags its records with its own (1-based) identity so that
// subsequent phases can tell who wrote what.
func fill(cfg *Config, pool *vault.Vault[Record]) (uint, error) {
	stats := util.NewPerfStats()
	share := cfg.Capacity / cfg.Actors
	count := atomic.Uint64{}
	//
	err := util.ParForEach(cfg.Actors, func(actor uint) error {
		for i := uint(0); i < share; i++ {
			handle, err := pool.Allocate()
			if err != nil {
				return fmt.Errorf("actor %d filling: %w", actor+1, err)
			}
			//
			*handle.Payload() = Record{0, fmt.Sprintf("%d_%d", actor+1, i+1)}
			handle.Close()
			count.Add(1)
			pace(cfg)
		}
		//
		return nil
	})
	//
	stats.Log("fill", cfg.Capacity)
	//
	return uint(count.Load()), err
}

// Mutate has every actor visit randomly chosen slots, incrementing the
// counter and extending the tag under a single handle each visit.  Random
// streams are seeded per actor, so a run is reproducible given its seed.
// Returns the sum of all counters afterwards.
func mutate(cfg *Config, pool *vault.Vault[Record], seed uint64) (uint, error) {
	stats := util.NewPerfStats()
	//
	err := util.ParForEach(cfg.Actors, func(actor uint) error {
		rng := util.NewSeededRand(seed, uint64(actor))
		suffix := fmt.Sprintf("_%d", actor+1)
		//
		for i := uint(0); i < cfg.Mutations; i++ {
			handle, err := pool.View(rng.UintN(cfg.Capacity))
			if err != nil {
				return fmt.Errorf("actor %d mutating: %w", actor+1, err)
			}
			//
			handle.Payload().Count++
			handle.Payload().Tag += suffix
			handle.Close()
			pace(cfg)
		}
		//
		return nil
	})
	//
	if err != nil {
		return 0, err
	}
	//
	stats.Log("mutate", cfg.Actors*cfg.Mutations)
	// Sum counters across the (now quiescent) vault.
	sum := uint(0)
	//
	for i := uint(0); i < cfg.Capacity; i++ {
		handle, err := pool.View(i)
		if err != nil {
			return 0, err
		}
		//
		sum += handle.Payload().Count
		handle.Close()
	}
	//
	return sum, nil
}

// StripedRelease has actor a release indices a, a+2, a+4 and so on.  With
// more than two actors the stripes overlap, so several actors race to
// release the same slot; idempotence means exactly one of them observes
// true.  Returns the total number of true-returning releases.
func stripedRelease(cfg *Config, pool *vault.Vault[Record]) (uint, error) {
	stats := util.NewPerfStats()
	count := atomic.Uint64{}
	//
	err := util.ParForEach(cfg.Actors, func(actor uint) error {
		for i := actor; i < cfg.Capacity; i += 2 {
			was, err := pool.Release(i)
			if err != nil {
				return fmt.Errorf("actor %d releasing %d: %w", actor+1, i, err)
			}
			//
			if was {
				count.Add(1)
			}
			//
			pace(cfg)
		}
		//
		return nil
	})
	//
	stats.Log("striped release", cfg.Capacity)
	//
	return uint(count.Load()), err
}

// Drain has every actor loop a predicate release for records tagged by
// actor 2 until none remain.  Per-actor counts are collected and summed,
// since completeness means they total exactly actor 2's share.
func drain(cfg *Config, pool *vault.Vault[Record]) (uint, error) {
	stats := util.NewPerfStats()
	//
	counts, err := util.ParMapEach(cfg.Actors, func(uint) (uint, error) {
		n := pool.Drain(func(r Record) bool {
			return strings.HasPrefix(r.Tag, "2_")
		})
		//
		return n, nil
	})
	//
	if err != nil {
		return 0, err
	}
	//
	total := uint(0)
	for _, n := range counts {
		total += n
	}
	//
	stats.Log("drain", total)
	//
	return total, nil
}

// Backfill reclaims exactly n slots, shared between all actors via a
// countdown, tagging each new record as an extra.
func backfill(cfg *Config, pool *vault.Vault[Record], n uint) (uint, error) {
	stats := util.NewPerfStats()
	//
	var (
		remaining atomic.Int64
		count     atomic.Uint64
	)
	//
	remaining.Store(int64(n))
	//
	err := util.ParForEach(cfg.Actors, func(actor uint) error {
		for i := uint(0); remaining.Add(-1) >= 0; i++ {
			handle, err := pool.Allocate()
			if err != nil {
				return fmt.Errorf("actor %d backfilling: %w", actor+1, err)
			}
			//
			*handle.Payload() = Record{0, fmt.Sprintf("extra %d_%d", actor+1, i+1)}
			handle.Close()
			count.Add(1)
			pace(cfg)
		}
		//
		return nil
	})
	//
	stats.Log("backfill", n)
	//
	return uint(count.Load()), err
}

// Check the vault holds exactly the expected number of occupied slots at a
// phase boundary (all actors having joined, the snapshot is exact here).
func checkOccupied(pool *vault.Vault[Record], expected uint, phase string) error {
	if count := pool.Occupancy().Count(); count != expected {
		return fmt.Errorf("%w: %d occupied slots after %s, expected %d",
			ErrCheckFailed, count, phase, expected)
	}
	//
	log.Infof("%s complete (%d slots occupied)", phase, expected)
	//
	return nil
}

func pace(cfg *Config) {
	if cfg.Pace > 0 {
		time.Sleep(cfg.Pace)
	}
}
