//go:build !linux

package provider

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"
)

type extras struct{}

func openExtras(int32) (extras, error) { return extras{}, nil }

func (extras) childrenTimes() (float64, float64, error) { return 0, 0, ErrUnsupported }

func (extras) ioCounters() (IOCounters, error) { return IOCounters{}, ErrUnsupported }

func (extras) memoryFullInfo(context.Context, *process.Process) (MemoryFullInfo, error) {
	return MemoryFullInfo{}, ErrUnsupported
}
