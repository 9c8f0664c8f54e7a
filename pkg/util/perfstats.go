package util

import (
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

// PerfStats provides a snapshot of time and memory allocation at a given
// point, against which a later point can be compared.
type PerfStats struct {
	// Starting time
	startTime time.Time
	// Starting total memory allocation
	startMem uint64
	// Starting number of gc events
	startGc uint32
}

// NewPerfStats creates a new snapshot of the current time and amount of
// memory allocated.
func NewPerfStats() *PerfStats {
	var m runtime.MemStats

	startTime := time.Now()

	runtime.ReadMemStats(&m)

	return &PerfStats{startTime, m.TotalAlloc, m.NumGC}
}

// Log logs the difference between the state now and as it was when the
// PerfStats object was created, along with an operation rate when ops is
// non-zero.
func (p *PerfStats) Log(prefix string, ops uint) {
	var m runtime.MemStats

	runtime.ReadMemStats(&m)

	alloc := (m.TotalAlloc - p.startMem) / 1024 / 1024
	gcs := m.NumGC - p.startGc
	exectime := time.Since(p.startTime).Seconds()
	//
	if ops > 0 && exectime > 0 {
		log.Debugf("%s took %0.3fs using %v Mb (%v GC events) [%0.0f ops/s]",
			prefix, exectime, alloc, gcs, float64(ops)/exectime)
	} else {
		log.Debugf("%s took %0.3fs using %v Mb (%v GC events)", prefix, exectime, alloc, gcs)
	}
}
