// Package provider exposes the process metrics a sampler needs as a single
// capability: given a process handle, return the CPU, memory, disk and
// connection counters of that process as of the call.
package provider

import (
	"context"
	"fmt"
	"time"

	"emperror.dev/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/net"
)

// Keys of the metrics reported by a Handle.
const (
	KeyCPUPercent     = "cpu_percent"
	KeyCPUTimes       = "cpu_times"
	KeyThreads        = "threads"
	KeyNumThreads     = "num_threads"
	KeyMemoryPercent  = "memory_percent"
	KeyMemoryFullInfo = "memory_full_info"
	KeyNumFDs         = "num_fds"
	KeyIOCounters     = "io_counters"
	KeyConnections    = "connections"
)

// Keys is the full key set, in the order a Handle reads it.
var Keys = []string{
	KeyCPUPercent, KeyCPUTimes, KeyThreads, KeyNumThreads,
	KeyMemoryPercent, KeyMemoryFullInfo,
	KeyNumFDs, KeyIOCounters,
	KeyConnections,
}

// ErrUnsupported is returned when the platform does not expose a metric.
const ErrUnsupported = errors.Sentinel("metric not supported on this platform")

// CPUTimes is (user, system, children_user, children_system, iowait), in seconds.
type CPUTimes [5]float64

const (
	CPUUser = iota
	CPUSystem
	CPUChildrenUser
	CPUChildrenSystem
	CPUIOWait
)

// MemoryFullInfo is (rss, vms, shared, text, lib, data, dirty, uss, pss, swap),
// in bytes.
type MemoryFullInfo [10]uint64

const (
	MemRSS = iota
	MemVMS
	MemShared
	MemText
	MemLib
	MemData
	MemDirty
	MemUSS
	MemPSS
	MemSwap
)

// IOCounters is (read_count, write_count, read_bytes, write_bytes, read_chars,
// write_chars).
type IOCounters [6]uint64

const (
	IOReadCount = iota
	IOWriteCount
	IOReadBytes
	IOWriteBytes
	IOReadChars
	IOWriteChars
)

// Raw is the undecoded result of one read of the key set.
type Raw struct {
	CPUPercent     float64
	CPUTimes       CPUTimes
	Threads        map[int32]*cpu.TimesStat
	NumThreads     int32
	MemoryPercent  float32
	MemoryFullInfo MemoryFullInfo
	NumFDs         int32
	IOCounters     IOCounters
	Connections    []net.ConnectionStat
}

// Handle reports metrics for one process. Sample is treated as atomic: every
// field of the returned Raw is read by the same call.
type Handle interface {
	Pid() int32
	CreateTime(ctx context.Context) (time.Time, error)
	Sample(ctx context.Context) (*Raw, error)
}

// ReadError reports a metric that could not be read. Partial results are never
// returned alongside it.
type ReadError struct {
	Pid int32
	Key string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s of pid %d: %v", e.Key, e.Pid, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// IsReadError reports whether err carries a ReadError and returns it.
func IsReadError(err error) (*ReadError, bool) {
	var re *ReadError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
