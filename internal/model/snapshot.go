package model

import "time"

// CPUTimes holds accumulated CPU time in seconds.
type CPUTimes struct {
	User           float64 `json:"user"`
	System         float64 `json:"system"`
	ChildrenUser   float64 `json:"children_user"`
	ChildrenSystem float64 `json:"children_system"`
	IOWait         float64 `json:"iowait"`
}

// Thread is the accumulated CPU time of a single thread.
type Thread struct {
	ID         int32   `json:"id"`
	UserTime   float64 `json:"user_time"`
	SystemTime float64 `json:"system_time"`
}

// CPU aggregates the process CPU usage.
type CPU struct {
	Percent     float64  `json:"cpu_percent"` // since the previous measurement
	Times       CPUTimes `json:"cpu_times"`
	NumThreads  int32    `json:"num_threads"`
	Threads     []Thread `json:"threads"`
	ElapsedTime float64  `json:"elapsed_time"` // seconds since process creation
}

// Memory captures the detailed memory breakdown in bytes.
type Memory struct {
	Percent float32 `json:"memory_percent"`
	RSS     uint64  `json:"rss"`
	VMS     uint64  `json:"vms"`
	Shared  uint64  `json:"shared"`
	Text    uint64  `json:"text"`
	Lib     uint64  `json:"lib"`
	Data    uint64  `json:"data"`
	Dirty   uint64  `json:"dirty"`
	USS     uint64  `json:"uss"`
	PSS     uint64  `json:"pss"`
	Swap    uint64  `json:"swap"`
}

// Disk holds the cumulative I/O counters. Chars are counted by the OS for every
// read/write call, including those served from the page cache.
type Disk struct {
	NumFDs     int32  `json:"num_fds"`
	ReadCount  uint64 `json:"read_count"`
	WriteCount uint64 `json:"write_count"`
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
	ReadChars  uint64 `json:"read_chars"`
	WriteChars uint64 `json:"write_chars"`
}

// Network holds connection states and the manually reported transfer volumes.
type Network struct {
	Session  []string `json:"session"`
	Download uint64   `json:"download"`
	Upload   uint64   `json:"upload"`
}

// Snapshot is the state of a process at one instant. Snapshots are values and
// are never modified after being built.
type Snapshot struct {
	Timestamp           time.Time `json:"timestamp"`
	CPU                 CPU       `json:"cpu"`
	Memory              Memory    `json:"memory"`
	Disk                Disk      `json:"disk"`
	Network             Network   `json:"network"`
	CloudServiceTrigger uint64    `json:"cloud-service-trigger"`
}

// Summary is produced once, when a sampler run ends.
type Summary struct {
	Records     []Snapshot `json:"runtime_samples"`
	FinalSample *Snapshot  `json:"final_sample"`

	// Partial is set when the final sample could not be taken.
	Partial bool   `json:"partial,omitempty"`
	Error   string `json:"error,omitempty"`
	// Skipped counts the loop ticks dropped because sampling failed.
	Skipped int `json:"skipped,omitempty"`
}

// Len returns the number of snapshots in the summary, final sample included.
func (s *Summary) Len() int {
	if s == nil {
		return 0
	}
	n := len(s.Records)
	if s.FinalSample != nil {
		n++
	}
	return n
}

// All returns the periodic records followed by the final sample, if any.
func (s *Summary) All() []Snapshot {
	if s == nil {
		return nil
	}
	all := make([]Snapshot, 0, s.Len())
	all = append(all, s.Records...)
	if s.FinalSample != nil {
		all = append(all, *s.FinalSample)
	}
	return all
}
