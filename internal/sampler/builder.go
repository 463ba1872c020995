package sampler

import (
	"context"
	"sort"
	"time"

	"k8s.io/utils/clock"

	"github.com/Dicklesworthstone/resmon/internal/model"
	"github.com/Dicklesworthstone/resmon/internal/provider"
)

// Counters are the manually reported cloud usage totals.
type Counters struct {
	ServiceInvocations uint64
	Download           uint64
	Upload             uint64
}

// Builder turns raw provider output into Snapshots.
type Builder struct {
	handle  provider.Handle
	clock   clock.PassiveClock
	created time.Time
	// anchor is taken from clock so that elapsed time is measured on the
	// monotonic clock after construction.
	anchor time.Time
}

func NewBuilder(ctx context.Context, handle provider.Handle, clk clock.PassiveClock) (*Builder, error) {
	created, err := handle.CreateTime(ctx)
	if err != nil {
		return nil, err
	}
	return &Builder{
		handle:  handle,
		clock:   clk,
		created: created,
		anchor:  clk.Now(),
	}, nil
}

// CreateTime is the creation time of the monitored process.
func (b *Builder) CreateTime() time.Time { return b.created }

// Pid of the monitored process.
func (b *Builder) Pid() int32 { return b.handle.Pid() }

func (b *Builder) elapsed(now time.Time) time.Duration {
	offset := b.anchor.Sub(b.created)
	if offset < 0 {
		offset = 0
	}
	return offset + now.Sub(b.anchor)
}

// Build reads the provider once and decodes the result. Read failures are
// returned as is; no field is ever zero-filled.
func (b *Builder) Build(ctx context.Context, c Counters) (model.Snapshot, error) {
	raw, err := b.handle.Sample(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	now := b.clock.Now()
	return model.Snapshot{
		Timestamp:           now,
		CPU:                 decodeCPU(raw, b.elapsed(now)),
		Memory:              decodeMemory(raw),
		Disk:                decodeDisk(raw),
		Network:             decodeNetwork(raw, c),
		CloudServiceTrigger: c.ServiceInvocations,
	}, nil
}

func decodeCPU(raw *provider.Raw, elapsed time.Duration) model.CPU {
	threads := make([]model.Thread, 0, len(raw.Threads))
	for id, t := range raw.Threads {
		if t == nil {
			continue
		}
		threads = append(threads, model.Thread{ID: id, UserTime: t.User, SystemTime: t.System})
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i].ID < threads[j].ID })

	return model.CPU{
		Percent: raw.CPUPercent,
		Times: model.CPUTimes{
			User:           raw.CPUTimes[provider.CPUUser],
			System:         raw.CPUTimes[provider.CPUSystem],
			ChildrenUser:   raw.CPUTimes[provider.CPUChildrenUser],
			ChildrenSystem: raw.CPUTimes[provider.CPUChildrenSystem],
			IOWait:         raw.CPUTimes[provider.CPUIOWait],
		},
		NumThreads:  raw.NumThreads,
		Threads:     threads,
		ElapsedTime: elapsed.Seconds(),
	}
}

func decodeMemory(raw *provider.Raw) model.Memory {
	m := raw.MemoryFullInfo
	return model.Memory{
		Percent: raw.MemoryPercent,
		RSS:     m[provider.MemRSS],
		VMS:     m[provider.MemVMS],
		Shared:  m[provider.MemShared],
		Text:    m[provider.MemText],
		Lib:     m[provider.MemLib],
		Data:    m[provider.MemData],
		Dirty:   m[provider.MemDirty],
		USS:     m[provider.MemUSS],
		PSS:     m[provider.MemPSS],
		Swap:    m[provider.MemSwap],
	}
}

func decodeDisk(raw *provider.Raw) model.Disk {
	io := raw.IOCounters
	return model.Disk{
		NumFDs:     raw.NumFDs,
		ReadCount:  io[provider.IOReadCount],
		WriteCount: io[provider.IOWriteCount],
		ReadBytes:  io[provider.IOReadBytes],
		WriteBytes: io[provider.IOWriteBytes],
		ReadChars:  io[provider.IOReadChars],
		WriteChars: io[provider.IOWriteChars],
	}
}

func decodeNetwork(raw *provider.Raw, c Counters) model.Network {
	session := make([]string, 0, len(raw.Connections))
	for _, conn := range raw.Connections {
		session = append(session, conn.Status)
	}
	return model.Network{
		Session:  session,
		Download: c.Download,
		Upload:   c.Upload,
	}
}
