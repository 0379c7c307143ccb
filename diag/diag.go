// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag reports compute capabilities of the host environment. It is
// consumed only for human-readable startup logging and is not part of the
// solver's functional contract.
package diag

import (
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/numerical-fun/ParGMRES/compute"
)

// CPUInfo describes the processor the solver's device model runs on.
type CPUInfo struct {
	Architecture string
	Cores        int

	HasSSE2   bool
	HasAVX    bool
	HasAVX2   bool
	HasAVX512 bool
	HasNEON   bool
}

// CPU reports the available CPU features for the current process.
func CPU() CPUInfo {
	return CPUInfo{
		Architecture: runtime.GOARCH,
		Cores:        runtime.NumCPU(),
		HasSSE2:      cpu.X86.HasSSE2,
		HasAVX:       cpu.X86.HasAVX,
		HasAVX2:      cpu.X86.HasAVX2,
		HasAVX512:    cpu.X86.HasAVX512,
		HasNEON:      cpu.ARM64.HasASIMD,
	}
}

// Fprint writes a human-readable capability report covering the CPU and
// any GPU adapters visible through WebGPU.
func Fprint(w io.Writer) {
	info := CPU()
	fmt.Fprintf(w, "CPU: %s, %d cores\n", info.Architecture, info.Cores)
	fmt.Fprintf(w, "  SSE2=%v AVX=%v AVX2=%v AVX512=%v NEON=%v\n",
		info.HasSSE2, info.HasAVX, info.HasAVX2, info.HasAVX512, info.HasNEON)

	adapters, err := GPUs()
	if err != nil {
		fmt.Fprintf(w, "GPU: unavailable (%v)\n", err)
		return
	}
	if len(adapters) == 0 {
		fmt.Fprintln(w, "GPU: no adapters")
		return
	}
	for _, a := range adapters {
		fmt.Fprintf(w, "GPU adapter: %s (%s, %s, vendor %s, device %s)\n",
			a.Name, a.Type, a.Backend, a.VendorID, a.DeviceID)
		if a.Driver != "" {
			fmt.Fprintf(w, "  driver: %s\n", a.Driver)
		}
	}
}

// DumpPrefix writes up to max leading elements of a device vector as one
// labeled line. It transfers only the requested prefix and is meant for
// debugging output, not for moving results.
func DumpPrefix(w io.Writer, label string, v *compute.Vector, max int) {
	n := v.Len()
	if max > n {
		max = n
	}
	buf := make([]float64, max)
	if max > 0 {
		v.View(0, max).CopyToHost(buf)
	}
	fmt.Fprintf(w, "%s[0:%d of %d] =", label, max, n)
	for _, x := range buf {
		fmt.Fprintf(w, " %.6g", x)
	}
	fmt.Fprintln(w)
}
