package bridge

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mohaanymo/gpmfx/internal/config"
)

// LowMemoryThreshold is the available memory below which the in-context
// read uses config.LowMemoryChunkSize.
const LowMemoryThreshold = 256 * 1024 * 1024

// MemoryFunc reports host memory. mem.VirtualMemory in production.
type MemoryFunc func() (*mem.VirtualMemoryStat, error)

// FallbackChunkSize returns the chunk size for the in-context read.
// If memory cannot be queried the configured size is kept.
func FallbackChunkSize(configured int, ram MemoryFunc) int {
	if ram == nil {
		ram = mem.VirtualMemory
	}
	stat, err := ram()
	if err != nil || stat == nil {
		return configured
	}
	if stat.Available < LowMemoryThreshold {
		return min(configured, config.LowMemoryChunkSize)
	}
	return configured
}
