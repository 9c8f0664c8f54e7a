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

// Handle is a scoped accessor granting exclusive mutable access to one
// slot's payload.  A handle owns its slot's lock from the moment it is
// returned (by Allocate or View) until Close is called, and is the only way
// payloads are ever reached.  Hence, whilst a handle is open, no other
// operation can touch its slot.
//
// Handles are intended to be short lived: acquire, access the payload,
// close.  The canonical usage is to pair every acquisition with a deferred
// close, so the lock is let go on every exit path out of the enclosing
// function:
//
//	handle, err := pool.View(index)
//	if err != nil { ... }
//	defer handle.Close()
//	handle.Payload().Count++
//
// A handle must not be copied, and must not be shared between goroutines;
// passing the pointer on transfers ownership.  The zero value is unusable.
type Handle[T any] struct {
	noCopy noCopy
	// Slot this handle is bound to.  Fixed for the handle's lifetime, and
	// nil for the (unusable) zero value.
	slot *slot[T]
	// Index of the bound slot within its vault.
	index uint
	// Set once Close has run.
	closed bool
}

// Payload returns a pointer through which the slot's payload may be read
// and written freely for as long as the handle remains open.  The pointer
// must not be retained beyond Close, since the underlying storage is then
// no longer protected.  Calling Payload on a closed (or zero) handle is a
// programmer error, and panics.
func (h *Handle[T]) Payload() *T {
	if h.slot == nil || h.closed {
		panic("payload access via dead handle")
	}
	//
	return &h.slot.data
}

// Index returns the index of the slot this handle is bound to, suitable for
// a later View or Release.  Panics on a closed (or zero) handle.
func (h *Handle[T]) Index() uint {
	if h.slot == nil || h.closed {
		panic("index access via dead handle")
	}
	//
	return h.index
}

// noCopy makes "go vet" report any copy of a containing struct, since the
// copylocks check treats anything with Lock/Unlock methods as a lock.
// Handles must only ever move, so a copy is always a mistake.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Close releases the slot's lock, ending this handle's exclusive access.
// The release happens exactly once: closing an already closed handle is a
// no-op, making Close safe to defer alongside an explicit early close.
func (h *Handle[T]) Close() {
	if h.slot == nil || h.closed {
		return
	}
	//
	h.closed = true
	h.slot.mux.Unlock()
}
