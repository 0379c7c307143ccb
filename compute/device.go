// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compute models a bulk-parallel accelerator on the host CPU.
//
// A Device executes kernels as flat teams of independent workers, one
// logical worker per vector element or matrix row. Workers within a launch
// have no ordering guarantees; the only cross-worker communication allowed
// is atomic accumulation into a Scalar cell. A call to Launch returns only
// after every worker has finished, so return from Launch is the device-wide
// synchronization barrier: anything a kernel wrote, including Scalar cells,
// is visible to the host and to subsequent launches.
package compute

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// blockSize is the number of logical workers grouped into one schedulable
// block. Reductions produce one partial sum per block.
const blockSize = 256

// Device is a handle to the compute engine. Methods on Device issue kernel
// launches; the issuing goroutine plays the role of the host thread and
// must not overlap launches that share mutable buffers.
type Device struct {
	workers int
}

// New returns a Device that schedules blocks over the given number of
// concurrent workers. If workers is not positive, GOMAXPROCS is used.
func New(workers int) *Device {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Device{workers: workers}
}

// Default returns a Device sized to the available parallelism.
func Default() *Device {
	return New(0)
}

// Workers reports the scheduling width of the device.
func (d *Device) Workers() int {
	return d.workers
}

// Launch executes kernel once for every index in [0, grid) and returns
// after all of them have completed. Indices are grouped into blocks of
// blockSize and the blocks are drained by a team of goroutines; within a
// launch there is no ordering between workers.
func (d *Device) Launch(grid int, kernel func(i int)) {
	d.launchBlocks(grid, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			kernel(i)
		}
	})
}

// launchBlocks hands each team member contiguous index ranges
// [lo, hi) ⊂ [0, grid), one block at a time. Reductions use it directly so
// that each block accumulates a private partial result.
func (d *Device) launchBlocks(grid int, block func(lo, hi int)) {
	if grid <= 0 {
		return
	}
	nblocks := (grid + blockSize - 1) / blockSize
	team := d.workers
	if team > nblocks {
		team = nblocks
	}
	if team <= 1 {
		for b := 0; b < nblocks; b++ {
			lo := b * blockSize
			hi := min(lo+blockSize, grid)
			block(lo, hi)
		}
		return
	}

	var next int64
	var wg sync.WaitGroup
	wg.Add(team)
	for w := 0; w < team; w++ {
		go func() {
			defer wg.Done()
			for {
				b := int(atomic.AddInt64(&next, 1)) - 1
				if b >= nblocks {
					return
				}
				lo := b * blockSize
				hi := min(lo+blockSize, grid)
				block(lo, hi)
			}
		}()
	}
	wg.Wait()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
