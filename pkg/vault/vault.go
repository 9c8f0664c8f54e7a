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
package vault

import (
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
)

// Vault is a fixed-capacity pool of individually lockable slots, each of
// which holds one payload of type T.  Slots are claimed with Allocate,
// revisited with View and returned with Release (either by index or by
// predicate).  Every operation which touches a payload hands back a Handle
// owning that slot's lock, so payload access is mutually exclusive across
// all goroutines by construction.
//
// Two locking regimes coexist: each slot carries its own lock, under which
// all payload access and every occupancy change happens; on top of that, a
// single pool-wide lock serialises the scan phases of Allocate and
// ReleaseWhere.  The pool-wide lock is never held whilst a caller has
// access to a payload, so operations on distinct slots proceed in parallel.
type Vault[T any] struct {
	// Fixed sequence of slots, allocated once at construction and never
	// resized thereafter.
	slots []slot[T]
	// Pool-wide lock serialising scan-and-claim phases (Allocate,
	// ReleaseWhere) against each other.
	mux sync.Mutex
}

// slot pairs one payload with the machinery protecting it.
type slot[T any] struct {
	// Payload storage.  Contents are only meaningful whilst the slot is
	// occupied, though the storage itself is never torn down: a freshly
	// allocated slot retains whatever its previous occupant left behind.
	data T
	// Slot lock.  Guards data, and every mutation of inUse.
	mux sync.Mutex
	// Occupancy flag.  May be read without the slot lock as a hint (e.g.
	// by the allocation scan), but is only ever written under it.
	inUse atomic.Bool
}

// New constructs a vault with the given capacity, fixed for the lifetime of
// the vault.  Every slot begins free.
func New[T any](capacity uint) *Vault[T] {
	return &Vault[T]{slots: make([]slot[T], capacity)}
}

// Capacity returns the number of slots in this vault.
func (v *Vault[T]) Capacity() uint {
	return uint(len(v.slots))
}

// Occupancy returns a point-in-time snapshot of the occupancy flags as a
// bitset, where a set bit marks an occupied slot.  The snapshot is built
// from the lock-free hints and, hence, is advisory only: unless all
// mutators are externally quiesced, slots may be claimed or released whilst
// the snapshot is being taken.
func (v *Vault[T]) Occupancy() *bitset.BitSet {
	set := bitset.New(uint(len(v.slots)))
	//
	for i := range v.slots {
		if v.slots[i].inUse.Load() {
			set.Set(uint(i))
		}
	}
	//
	return set
}

// Allocate claims the first free slot, marks it occupied and returns a
// handle to it.  The handle already owns the slot's lock, so the caller's
// first payload access is protected without further ado.  Note that the
// payload is not reset on reuse: callers must overwrite any field they
// care about.  If every slot is occupied at the time of the scan, this
// fails with ErrPoolExhausted.
func (v *Vault[T]) Allocate() (*Handle[T], error) {
	// Serialise scan-and-claim against other allocations and against
	// predicate releases, ensuring no two claims land on the same slot.
	v.mux.Lock()
	defer v.mux.Unlock()
	//
	for i := range v.slots {
		ith := &v.slots[i]
		// Fast pre-check of the occupancy hint, avoiding the slot lock
		// for slots already in use.
		if ith.inUse.Load() {
			continue
		}
		// Acquire the slot lock to commit the claim.  Locks on free slots
		// are only ever held briefly, so this cannot block for long.
		ith.mux.Lock()
		// Re-validate occupancy now the lock is held, since the hint read
		// above is not authoritative.
		if ith.inUse.Load() {
			ith.mux.Unlock()
			continue
		}
		// Claim it.
		ith.inUse.Store(true)
		// Done, with the slot lock handed over to the caller.
		return &Handle[T]{slot: ith, index: uint(i)}, nil
	}
	//
	return nil, ErrPoolExhausted
}

// View returns a handle to the occupied slot at the given index, blocking
// until that slot's lock is acquired.  The pool-wide lock is deliberately
// not involved: views of distinct slots proceed fully in parallel, and only
// same-index operations serialise against each other.  Viewing a free slot
// fails with ErrNotAllocated (the slot lock having been released again
// beforehand), whilst an index at or beyond capacity fails with
// ErrIndexOutOfRange.
func (v *Vault[T]) View(index uint) (*Handle[T], error) {
	if index >= uint(len(v.slots)) {
		return nil, ErrIndexOutOfRange
	}
	//
	ith := &v.slots[index]
	// Block until exclusive access is obtained.
	ith.mux.Lock()
	// Occupancy is only authoritative under the slot lock.
	if !ith.inUse.Load() {
		ith.mux.Unlock()
		return nil, ErrNotAllocated
	}
	//
	return &Handle[T]{slot: ith, index: index}, nil
}

// Release frees the slot at the given index, reporting whether it was in
// fact occupied.  Releasing an already free slot is not an error: it simply
// reports false, making release idempotent under races between multiple
// releasers.  Only the slot's own lock is taken, so a release contends
// solely with operations on the same slot.  An index at or beyond capacity
// fails with ErrIndexOutOfRange.
func (v *Vault[T]) Release(index uint) (bool, error) {
	if index >= uint(len(v.slots)) {
		return false, ErrIndexOutOfRange
	}
	//
	ith := &v.slots[index]
	ith.mux.Lock()
	// Atomically read and clear occupancy, reporting the prior state.
	was := ith.inUse.Swap(false)
	ith.mux.Unlock()
	//
	return was, nil
}

// ReleaseWhere frees the first occupied slot (in index order) whose payload
// satisfies the given predicate, returning true if one was found and false
// otherwise.  A false return is a normal outcome rather than an error,
// since the intended usage is to poll in a loop until the vault holds no
// further matches (see Drain).
//
// The pool-wide lock is held for the entire scan, so concurrent allocations
// and predicate releases never race for the same candidate.  Each candidate
// is inspected under its own slot lock, and the matching slot's occupancy
// is cleared before that lock is let go.  The lock order is therefore fixed
// everywhere: pool-wide lock first, one slot lock second, pool-wide lock
// released last.
//
// The predicate receives a copy of the payload and must be free of side
// effects.  Note that this operation serialises against all allocations,
// making it considerably more expensive than an index-based release.
func (v *Vault[T]) ReleaseWhere(pred func(T) bool) bool {
	v.mux.Lock()
	defer v.mux.Unlock()
	//
	for i := range v.slots {
		ith := &v.slots[i]
		// Skip slots whose hint reports free.
		if !ith.inUse.Load() {
			continue
		}
		// Acquire the slot lock before inspecting the payload.  This may
		// block behind a live handle, in which case the scan (and hence
		// all allocation) waits for that handle to close.
		ith.mux.Lock()
		// Re-validate, since an index release may have got here first.
		if !ith.inUse.Load() {
			ith.mux.Unlock()
			continue
		}
		//
		if pred(ith.data) {
			ith.inUse.Store(false)
			ith.mux.Unlock()
			// Matched and released.
			return true
		}
		//
		ith.mux.Unlock()
	}
	// Nothing matched.
	return false
}

// Drain applies ReleaseWhere repeatedly until no occupied slot matches,
// returning the number of slots released.  With several goroutines draining
// the same predicate concurrently, the sum of their counts equals the
// number of matching slots.
func (v *Vault[T]) Drain(pred func(T) bool) uint {
	count := uint(0)
	//
	for v.ReleaseWhere(pred) {
		count++
	}
	//
	return count
}
