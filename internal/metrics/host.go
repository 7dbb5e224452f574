// Package metrics collects run counters for the prometheus textfile collector and describes the
// host a run executed on.
package metrics

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo identifies the machine a run executed on.
type HostInfo struct {
	Hostname        string  `json:"hostname"`
	OS              string  `json:"os"`
	Platform        string  `json:"platform"`
	PlatformVersion string  `json:"platform_version"`
	MemoryUsed      float64 `json:"memory_used_percent"`
}

// GetHostInfo gathers host facts. Fields that cannot be read are left empty.
func GetHostInfo(ctx context.Context) HostInfo {
	var info HostInfo

	hostInfo, err := host.InfoWithContext(ctx)
	if err == nil {
		info.Hostname = hostInfo.Hostname
		info.OS = hostInfo.OS
		info.Platform = hostInfo.Platform
		info.PlatformVersion = hostInfo.PlatformVersion
	} else if name, herr := os.Hostname(); herr == nil {
		info.Hostname = name
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryUsed = vm.UsedPercent
	}

	return info
}

// Label renders the host for the run journal, e.g. "build-01 (linux ubuntu 22.04)".
func (h HostInfo) Label() string {
	if h.Hostname == "" {
		return "unknown"
	}
	if h.OS == "" {
		return h.Hostname
	}
	if h.Platform == "" {
		return fmt.Sprintf("%s (%s)", h.Hostname, h.OS)
	}
	return fmt.Sprintf("%s (%s %s %s)", h.Hostname, h.OS, h.Platform, h.PlatformVersion)
}
