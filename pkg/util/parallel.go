package util

import (
	"golang.org/x/sync/errgroup"
)

// ParForEach runs fn for every index 0..n in parallel, one go-routine per
// index, and blocks until all have finished.  The first non-nil error
// returned by any fn is reported; the remaining go-routines still run to
// completion.
func ParForEach(n uint, fn func(uint) error) error {
	var group errgroup.Group
	//
	for i := uint(0); i < n; i++ {
		group.Go(func() error {
			return fn(i)
		})
	}
	//
	return group.Wait()
}

// ParMapEach is like ParForEach, except each go-routine deposits a result
// into the returned slice at its own index.  Writes are disjoint, so no
// further synchronisation is needed.
func ParMapEach[T any](n uint, fn func(uint) (T, error)) ([]T, error) {
	var group errgroup.Group
	//
	results := make([]T, n)
	//
	for i := uint(0); i < n; i++ {
		group.Go(func() error {
			var err error
			results[i], err = fn(i)
			//
			return err
		})
	}
	//
	if err := group.Wait(); err != nil {
		return nil, err
	}
	//
	return results, nil
}
