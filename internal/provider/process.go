package provider

import (
	"context"
	"os"
	"time"

	"emperror.dev/errors"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Process reads metrics through gopsutil, completed by procfs for the counters
// gopsutil does not expose.
type Process struct {
	proc   *process.Process
	extras extras
}

var _ Handle = (*Process)(nil)

// Self opens the current process.
func Self(ctx context.Context) (*Process, error) {
	return NewProcess(ctx, int32(os.Getpid()))
}

// NewProcess opens the process with the given pid. The handle is kept for the
// lifetime of the returned Process.
func NewProcess(ctx context.Context, pid int32) (*Process, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "opening process", "pid", pid)
	}
	ex, err := openExtras(pid)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "opening procfs entry", "pid", pid)
	}
	return &Process{proc: proc, extras: ex}, nil
}

func (p *Process) Pid() int32 { return p.proc.Pid }

func (p *Process) CreateTime(ctx context.Context) (time.Time, error) {
	ms, err := p.proc.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, p.readErr("create_time", err)
	}
	return time.UnixMilli(ms), nil
}

// Sample reads the whole key set. The first call reports a cpu_percent of 0,
// later calls report the usage since the previous call.
func (p *Process) Sample(ctx context.Context) (*Raw, error) {
	var (
		raw Raw
		err error
	)

	if raw.CPUPercent, err = p.proc.PercentWithContext(ctx, 0); err != nil {
		return nil, p.readErr(KeyCPUPercent, err)
	}
	times, err := p.proc.TimesWithContext(ctx)
	if err != nil {
		return nil, p.readErr(KeyCPUTimes, err)
	}
	childUser, childSystem, err := p.extras.childrenTimes()
	if err != nil {
		return nil, p.readErr(KeyCPUTimes, err)
	}
	raw.CPUTimes = CPUTimes{times.User, times.System, childUser, childSystem, times.Iowait}

	if raw.Threads, err = p.proc.ThreadsWithContext(ctx); err != nil {
		return nil, p.readErr(KeyThreads, err)
	}
	if raw.NumThreads, err = p.proc.NumThreadsWithContext(ctx); err != nil {
		return nil, p.readErr(KeyNumThreads, err)
	}

	if raw.MemoryPercent, err = p.proc.MemoryPercentWithContext(ctx); err != nil {
		return nil, p.readErr(KeyMemoryPercent, err)
	}
	if raw.MemoryFullInfo, err = p.extras.memoryFullInfo(ctx, p.proc); err != nil {
		return nil, p.readErr(KeyMemoryFullInfo, err)
	}

	if raw.NumFDs, err = p.proc.NumFDsWithContext(ctx); err != nil {
		return nil, p.readErr(KeyNumFDs, err)
	}
	if raw.IOCounters, err = p.extras.ioCounters(); err != nil {
		return nil, p.readErr(KeyIOCounters, err)
	}

	// TCP and UDP only: unix sockets are not network sessions.
	if raw.Connections, err = net.ConnectionsPidWithContext(ctx, "inet", p.proc.Pid); err != nil {
		return nil, p.readErr(KeyConnections, err)
	}
	return &raw, nil
}

func (p *Process) readErr(key string, err error) error {
	return &ReadError{Pid: p.proc.Pid, Key: key, Err: err}
}
