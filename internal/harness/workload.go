// Package harness runs small workloads under a sampler, each in its own
// process, and reports what the sampler observed.
package harness

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"emperror.dev/errors"

	"github.com/Dicklesworthstone/resmon/internal/config"
	"github.com/Dicklesworthstone/resmon/internal/sampler"
)

type Kind string

const (
	FileIO Kind = "file-io"
	Idle   Kind = "idle"
	Busy   Kind = "busy"
	Memory Kind = "memory"
)

// Workload is one monitored operation. Bytes and Duration are interpreted
// according to Kind.
type Workload struct {
	Kind     Kind          `json:"kind"`
	Bytes    int           `json:"bytes,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

func (w Workload) String() string {
	switch w.Kind {
	case FileIO:
		return fmt.Sprintf("%s(%dB)", w.Kind, w.Bytes)
	case Memory:
		return fmt.Sprintf("%s(%dB,%s)", w.Kind, w.Bytes, w.Duration)
	default:
		return fmt.Sprintf("%s(%s)", w.Kind, w.Duration)
	}
}

// Focus is the snapshot section the workload stresses.
func (w Workload) Focus() string {
	switch w.Kind {
	case FileIO:
		return config.FocusDisk
	case Memory:
		return config.FocusMemory
	default:
		return config.FocusCPU
	}
}

func (w Workload) Validate() error {
	switch w.Kind {
	case FileIO:
		if w.Bytes <= 0 {
			return errors.Errorf("%s needs a positive byte count", w.Kind)
		}
	case Memory:
		if w.Bytes <= 0 || w.Duration <= 0 {
			return errors.Errorf("%s needs a positive byte count and duration", w.Kind)
		}
	case Idle, Busy:
		if w.Duration <= 0 {
			return errors.Errorf("%s needs a positive duration", w.Kind)
		}
	default:
		return errors.Errorf("unknown workload %q", w.Kind)
	}
	return nil
}

// DefaultSuite mirrors the classic set: one file write, two idle waits, a busy
// loop and a large allocation.
func DefaultSuite() []Workload {
	return []Workload{
		{Kind: FileIO, Bytes: 256 * 1024},
		{Kind: Idle, Duration: 4 * time.Second},
		{Kind: Idle, Duration: 2 * time.Second},
		{Kind: Busy, Duration: 2 * time.Second},
		{Kind: Memory, Bytes: 128 * 1024 * 1024, Duration: 2 * time.Second},
	}
}

func (w Workload) run(s *sampler.Sampler) error {
	switch w.Kind {
	case FileIO:
		return writeFile(w.Bytes)
	case Idle:
		time.Sleep(w.Duration)
	case Busy:
		spin(s.CreateTime(), w.Duration)
	case Memory:
		hold(w.Bytes, w.Duration)
	default:
		return errors.Errorf("unknown workload %q", w.Kind)
	}
	return nil
}

func writeFile(n int) error {
	f, err := os.CreateTemp("", "resmon-file-io-*.txt")
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(make([]byte, n)); err != nil {
		f.Close()
		return errors.Wrap(err, "writing file")
	}
	return errors.Wrap(f.Close(), "closing file")
}

// spin keeps a core busy until the process is at least age old.
func spin(created time.Time, age time.Duration) {
	for time.Since(created) < age {
		j := 0
		for i := 0; i < 100000; i++ {
			j++
		}
		runtime.KeepAlive(j)
	}
}

// hold allocates n bytes, makes every page resident and keeps it for d.
func hold(n int, d time.Duration) {
	buf := make([]byte, n)
	for i := 0; i < len(buf); i += os.Getpagesize() {
		buf[i] = 1
	}
	time.Sleep(d)
	runtime.KeepAlive(buf)
}
