package harness

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Dicklesworthstone/resmon/internal/config"
	"github.com/Dicklesworthstone/resmon/internal/model"
)

var separator = strings.Repeat("*", 40)

// Projection is a summary reduced to one snapshot section.
type Projection struct {
	RuntimeSamples []interface{} `json:"runtime_samples"`
	FinalSample    interface{}   `json:"final_sample"`
	Partial        bool          `json:"partial,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Project keeps only the focus section of every snapshot. FocusAll keeps
// whole snapshots.
func Project(summary *model.Summary, focus string) Projection {
	p := Projection{
		RuntimeSamples: make([]interface{}, 0, len(summary.Records)),
		Partial:        summary.Partial,
		Error:          summary.Error,
	}
	for _, s := range summary.Records {
		p.RuntimeSamples = append(p.RuntimeSamples, section(s, focus))
	}
	if summary.FinalSample != nil {
		p.FinalSample = section(*summary.FinalSample, focus)
	}
	return p
}

func section(s model.Snapshot, focus string) interface{} {
	switch focus {
	case config.FocusCPU:
		return s.CPU
	case config.FocusMemory:
		return s.Memory
	case config.FocusDisk:
		return s.Disk
	case config.FocusNetwork:
		return s.Network
	default:
		return s
	}
}

func title(w Workload) string {
	switch w.Kind {
	case FileIO:
		return "FILE-IO TEST"
	case Idle:
		return "EXECUTION TIME TEST (WITH IDLE PROCESSOR)"
	case Busy:
		return "EXECUTION TIME TEST (WITH BUSY PROCESSOR)"
	case Memory:
		return "MEMORY USAGE TEST"
	default:
		return strings.ToUpper(string(w.Kind)) + " TEST"
	}
}

func params(w Workload) []string {
	switch w.Kind {
	case FileIO:
		return []string{fmt.Sprintf("bytes to write: %d", w.Bytes)}
	case Idle:
		return []string{fmt.Sprintf("expect execution time (wall-clock time): %f s", w.Duration.Seconds())}
	case Busy:
		return []string{fmt.Sprintf("min execution time (wall-clock time): %f s", w.Duration.Seconds())}
	case Memory:
		return []string{
			fmt.Sprintf("expected memory usage: %d", w.Bytes),
			fmt.Sprintf("min execution time (wall-clock time): %f s", w.Duration.Seconds()),
		}
	default:
		return nil
	}
}

// Digest prints a report. FocusAuto picks the section the workload stresses.
func Digest(out io.Writer, rep *Report, focus string, asJSON bool) error {
	if focus == config.FocusAuto {
		focus = rep.Workload.Focus()
	}
	proj := Project(rep.Summary, focus)

	var logs []byte
	var err error
	if asJSON {
		logs, err = json.MarshalIndent(proj, "", "  ")
	} else {
		logs, err = json.Marshal(proj)
	}
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", title(rep.Workload), separator)
	fmt.Fprintf(&b, "process-id: %d\n", rep.PID)
	for _, line := range params(rep.Workload) {
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "measured execution time: %f s\n", rep.Measured.Seconds())
	fmt.Fprintf(&b, "logs: %s\n\n", logs)
	_, err = io.WriteString(out, b.String())
	return err
}
