package vault

import (
	"errors"
	"testing"
)

// ===================================================================
// Allocation
// ===================================================================

func Test_Vault_01(t *testing.T) {
	// Allocation claims the first free slot.
	pool := New[uint](4)
	//
	check_Allocate(t, pool, 0)
}

func Test_Vault_02(t *testing.T) {
	// Successive allocations claim distinct slots, in index order.
	pool := New[uint](4)
	//
	check_Allocate(t, pool, 0)
	check_Allocate(t, pool, 1)
	check_Allocate(t, pool, 2)
	check_Allocate(t, pool, 3)
}

func Test_Vault_03(t *testing.T) {
	// Allocating from a full vault fails with ErrPoolExhausted.
	pool := New[uint](2)
	//
	check_Allocate(t, pool, 0)
	check_Allocate(t, pool, 1)
	//
	if _, err := pool.Allocate(); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("expected ErrPoolExhausted, got %v", err)
	}
}

func Test_Vault_04(t *testing.T) {
	// Allocation reuses the lowest released index.
	pool := New[uint](4)
	//
	for i := uint(0); i < 4; i++ {
		check_Allocate(t, pool, i)
	}
	//
	check_Release(t, pool, 2, true)
	check_Release(t, pool, 1, true)
	check_Allocate(t, pool, 1)
	check_Allocate(t, pool, 2)
}

func Test_Vault_05(t *testing.T) {
	// Payloads are not reset on reuse.
	pool := New[uint](1)
	//
	func() {
		handle, err := pool.Allocate()
		if err != nil {
			t.Fatal(err)
		}
		defer handle.Close()
		*handle.Payload() = 42
	}()
	//
	check_Release(t, pool, 0, true)
	//
	handle, err := pool.Allocate()
	if err != nil {
		t.Fatal(err)
	}
	defer handle.Close()
	//
	if *handle.Payload() != 42 {
		t.Errorf("expected stale payload 42, got %d", *handle.Payload())
	}
}

// ===================================================================
// View
// ===================================================================

func Test_Vault_06(t *testing.T) {
	// Round-trip: write under one handle, observe under a view.
	pool := New[string](8)
	//
	handle, err := pool.Allocate()
	if err != nil {
		t.Fatal(err)
	}
	//
	index := handle.Index()
	*handle.Payload() = "hello"
	handle.Close()
	// Revisit via the recorded index.
	view, err := pool.View(index)
	if err != nil {
		t.Fatal(err)
	}
	defer view.Close()
	//
	if *view.Payload() != "hello" {
		t.Errorf("expected \"hello\", got %q", *view.Payload())
	}
}

func Test_Vault_07(t *testing.T) {
	// Viewing a free slot fails with ErrNotAllocated.
	pool := New[uint](4)
	//
	if _, err := pool.View(0); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("expected ErrNotAllocated, got %v", err)
	}
}

func Test_Vault_08(t *testing.T) {
	// Viewing out of range fails with ErrIndexOutOfRange.
	pool := New[uint](4)
	//
	if _, err := pool.View(4); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func Test_Vault_09(t *testing.T) {
	// A failed view must not leave the slot lock held.
	pool := New[uint](4)
	//
	if _, err := pool.View(1); err == nil {
		t.Fatal("expected failure viewing free slot")
	}
	// Were the lock leaked, this allocation would deadlock on slot 1
	// after claiming slot 0.
	check_Allocate(t, pool, 0)
	check_Allocate(t, pool, 1)
}

// ===================================================================
// Release
// ===================================================================

func Test_Vault_10(t *testing.T) {
	// Releasing an occupied slot reports true; again reports false.
	pool := New[uint](4)
	//
	check_Allocate(t, pool, 0)
	check_Release(t, pool, 0, true)
	check_Release(t, pool, 0, false)
}

func Test_Vault_11(t *testing.T) {
	// Releasing a never-allocated slot is a no-op, not an error.
	pool := New[uint](4)
	//
	check_Release(t, pool, 3, false)
}

func Test_Vault_12(t *testing.T) {
	// Releasing out of range fails with ErrIndexOutOfRange.
	pool := New[uint](4)
	//
	if _, err := pool.Release(4); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func Test_Vault_13(t *testing.T) {
	// A released slot can no longer be viewed.
	pool := New[uint](4)
	//
	check_Allocate(t, pool, 0)
	check_Release(t, pool, 0, true)
	//
	if _, err := pool.View(0); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("expected ErrNotAllocated, got %v", err)
	}
}

// ===================================================================
// Predicate release
// ===================================================================

func Test_Vault_14(t *testing.T) {
	// Predicate release frees the first match (in index order) only.
	pool := fill_Vault(t, 4, []uint{5, 7, 5, 9})
	//
	if !pool.ReleaseWhere(func(v uint) bool { return v == 5 }) {
		t.Fatal("expected a match")
	}
	// Slot 0 gone, slot 2 still live.
	check_Occupancy(t, pool, []uint{1, 2, 3})
}

func Test_Vault_15(t *testing.T) {
	// No occupied slot matching means false, not an error.
	pool := fill_Vault(t, 4, []uint{1, 2, 3, 4})
	//
	if pool.ReleaseWhere(func(v uint) bool { return v > 100 }) {
		t.Error("expected no match")
	}
	//
	check_Occupancy(t, pool, []uint{0, 1, 2, 3})
}

func Test_Vault_16(t *testing.T) {
	// Free slots are never offered to the predicate, even when their
	// stale payload would match.
	pool := fill_Vault(t, 4, []uint{5, 5, 5, 5})
	check_Release(t, pool, 1, true)
	//
	count := uint(0)
	matched := pool.Drain(func(v uint) bool {
		count++
		return v == 5
	})
	//
	if matched != 3 {
		t.Errorf("expected 3 released, got %d", matched)
	}
	// Predicate ran once per occupied slot.
	if count != 3 {
		t.Errorf("expected 3 predicate calls, got %d", count)
	}
}

func Test_Vault_17(t *testing.T) {
	// Drain releases exactly the matching slots.
	pool := fill_Vault(t, 8, []uint{1, 2, 1, 2, 1, 2, 1, 2})
	//
	if n := pool.Drain(func(v uint) bool { return v == 2 }); n != 4 {
		t.Errorf("expected 4 drained, got %d", n)
	}
	//
	check_Occupancy(t, pool, []uint{0, 2, 4, 6})
}

// ===================================================================
// Capacity & occupancy
// ===================================================================

func Test_Vault_18(t *testing.T) {
	pool := New[uint](1024)
	//
	if pool.Capacity() != 1024 {
		t.Errorf("expected capacity 1024, got %d", pool.Capacity())
	}
}

func Test_Vault_19(t *testing.T) {
	// Zero-capacity vault is legal, and permanently exhausted.
	pool := New[uint](0)
	//
	if _, err := pool.Allocate(); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("expected ErrPoolExhausted, got %v", err)
	}
	//
	if _, err := pool.View(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func Test_Vault_20(t *testing.T) {
	// Occupancy snapshot tracks allocate / release.
	pool := fill_Vault(t, 8, []uint{0, 1, 2})
	check_Release(t, pool, 1, true)
	//
	check_Occupancy(t, pool, []uint{0, 2})
}

// ===================================================================
// Helpers
// ===================================================================

// Allocate from the given pool, checking the claimed index.
func check_Allocate(t *testing.T, pool *Vault[uint], expected uint) {
	t.Helper()
	//
	handle, err := pool.Allocate()
	if err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	defer handle.Close()
	//
	if handle.Index() != expected {
		t.Errorf("expected slot %d, got %d", expected, handle.Index())
	}
}

// Release the given index, checking the reported prior occupancy.
func check_Release(t *testing.T, pool *Vault[uint], index uint, expected bool) {
	t.Helper()
	//
	was, err := pool.Release(index)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	//
	if was != expected {
		t.Errorf("releasing slot %d reported %v, expected %v", index, was, expected)
	}
}

// Check exactly the given indices are occupied.
func check_Occupancy(t *testing.T, pool *Vault[uint], expected []uint) {
	t.Helper()
	//
	occupancy := pool.Occupancy()
	//
	if occupancy.Count() != uint(len(expected)) {
		t.Errorf("expected %d occupied slots, got %d", len(expected), occupancy.Count())
	}
	//
	for _, i := range expected {
		if !occupancy.Test(i) {
			t.Errorf("expected slot %d to be occupied", i)
		}
	}
}

// Construct a pool of the given capacity with the given payloads written
// into slots 0..len(values).
func fill_Vault(t *testing.T, capacity uint, values []uint) *Vault[uint] {
	t.Helper()
	//
	pool := New[uint](capacity)
	//
	for _, v := range values {
		handle, err := pool.Allocate()
		if err != nil {
			t.Fatal(err)
		}
		//
		*handle.Payload() = v
		handle.Close()
	}
	//
	return pool
}
