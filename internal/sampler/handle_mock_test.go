package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/Dicklesworthstone/resmon/internal/provider"
)

// handleMock returns a fixed Raw on every call, unless an error has been
// configured for that call or ctx is already done.
type handleMock struct {
	pid       int32
	created   time.Time
	createErr error
	conns     []net.ConnectionStat

	mu      sync.Mutex
	calls   int
	failAt  map[int]error
	failAll error
}

var _ provider.Handle = (*handleMock)(nil)

func newHandleMock(created time.Time) *handleMock {
	return &handleMock{
		pid:     4242,
		created: created,
		conns:   []net.ConnectionStat{{Status: "ESTABLISHED"}, {Status: "LISTEN"}},
		failAt:  map[int]error{},
	}
}

func (h *handleMock) Pid() int32 { return h.pid }

func (h *handleMock) CreateTime(context.Context) (time.Time, error) {
	if h.createErr != nil {
		return time.Time{}, h.createErr
	}
	return h.created, nil
}

func (h *handleMock) Sample(ctx context.Context) (*provider.Raw, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := h.failAt[h.calls]; ok {
		return nil, err
	}
	if h.failAll != nil {
		return nil, h.failAll
	}
	return &provider.Raw{
		CPUPercent: 12.5,
		CPUTimes:   provider.CPUTimes{1.5, 0.5, 0.25, 0.125, 0.0625},
		Threads: map[int32]*cpu.TimesStat{
			4243: {User: 0.5, System: 0.25},
			4242: {User: 1, System: 0.25},
		},
		NumThreads:     2,
		MemoryPercent:  0.75,
		MemoryFullInfo: provider.MemoryFullInfo{100, 200, 30, 40, 50, 60, 7, 80, 90, 10},
		NumFDs:         6,
		IOCounters:     provider.IOCounters{11, 12, 4096, 8192, 15, 16},
		Connections:    h.conns,
	}, nil
}

func (h *handleMock) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}
