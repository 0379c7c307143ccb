// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diag

import (
	"fmt"
	"strings"

	"github.com/openfluke/webgpu/wgpu"
)

// AdapterInfo describes a GPU adapter visible through WebGPU.
type AdapterInfo struct {
	Name     string
	Driver   string
	Backend  string
	Type     string
	VendorID string
	DeviceID string
}

// GPUs probes the high-performance WebGPU adapter of the machine. Probe
// failure is reported, not fatal: the solver itself does not depend on an
// adapter being present.
func GPUs() ([]AdapterInfo, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, fmt.Errorf("diag: wgpu.CreateInstance returned nil")
	}
	defer inst.Release()

	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("diag: request adapter: %w", err)
	}
	if adapter == nil {
		return nil, fmt.Errorf("diag: no adapter")
	}
	defer adapter.Release()

	info := adapter.GetInfo()
	return []AdapterInfo{{
		Name:     strings.TrimSpace(info.Name),
		Driver:   strings.TrimSpace(info.DriverDescription),
		Backend:  info.BackendType.String(),
		Type:     info.AdapterType.String(),
		VendorID: fmt.Sprintf("0x%04x", info.VendorId),
		DeviceID: fmt.Sprintf("0x%04x", info.DeviceId),
	}}, nil
}
