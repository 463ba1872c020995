//go:build linux

package provider

import (
	"context"
	"os"

	"github.com/prometheus/procfs"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// extras reads what gopsutil leaves out or only exposes on linux: children CPU
// times, rchar/wchar and the detailed memory breakdown.
type extras struct {
	proc procfs.Proc
}

// procRoot honors HOST_PROC the same way gopsutil does.
func procRoot() string {
	if v, ok := os.LookupEnv("HOST_PROC"); ok && v != "" {
		return v
	}
	return procfs.DefaultMountPoint
}

func openExtras(pid int32) (extras, error) {
	fs, err := procfs.NewFS(procRoot())
	if err != nil {
		return extras{}, err
	}
	proc, err := fs.Proc(int(pid))
	if err != nil {
		return extras{}, err
	}
	return extras{proc: proc}, nil
}

func (e extras) childrenTimes() (user, system float64, err error) {
	stat, err := e.proc.Stat()
	if err != nil {
		return 0, 0, err
	}
	ticks := cpu.ClocksPerSec
	if ticks <= 0 {
		ticks = 100
	}
	return float64(stat.CUTime) / ticks, float64(stat.CSTime) / ticks, nil
}

func (e extras) ioCounters() (IOCounters, error) {
	io, err := e.proc.IO()
	if err != nil {
		return IOCounters{}, err
	}
	return IOCounters{io.SyscR, io.SyscW, io.ReadBytes, io.WriteBytes, io.RChar, io.WChar}, nil
}

// memoryFullInfo combines the statm fields gopsutil reads with uss, pss and
// swap from the smaps rollup.
func (e extras) memoryFullInfo(ctx context.Context, proc *process.Process) (MemoryFullInfo, error) {
	mem, err := proc.MemoryInfoExWithContext(ctx)
	if err != nil {
		return MemoryFullInfo{}, err
	}
	r, err := e.proc.ProcSMapsRollup()
	if err != nil {
		return MemoryFullInfo{}, err
	}
	return MemoryFullInfo{
		mem.RSS, mem.VMS, mem.Shared, mem.Text, mem.Lib, mem.Data, mem.Dirty,
		r.PrivateClean + r.PrivateDirty, r.Pss, r.Swap,
	}, nil
}
