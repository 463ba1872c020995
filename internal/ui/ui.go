package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/resmon/internal/config"
	"github.com/Dicklesworthstone/resmon/internal/model"
	"github.com/Dicklesworthstone/resmon/internal/sampler"
)

// Model renders live snapshots of one process.
type Model struct {
	cfg       config.Config
	pid       int32
	latest    model.Snapshot
	lastErr   error
	samples   int
	stream    <-chan sampler.StreamEvent
	ctxCancel context.CancelFunc
	width     int
	height    int
}

func New(cfg config.Config, b *sampler.Builder) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	return &Model{
		cfg:       cfg,
		pid:       b.Pid(),
		stream:    sampler.Stream(ctx, b, cfg.StreamInterval),
		ctxCancel: cancel,
		width:     120,
		height:    40,
	}
}

type tickMsg struct{}

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctxCancel()
			return m, tea.Quit
		}
	case tickMsg:
		select {
		case ev, ok := <-m.stream:
			if ok {
				m.apply(ev)
			}
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) apply(ev sampler.StreamEvent) {
	if ev.Err != nil {
		m.lastErr = ev.Err
		return
	}
	m.lastErr = nil
	m.latest = ev.Snapshot
	m.samples++
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	header := titleStyle.Render(fmt.Sprintf("Resource Monitor  pid %d", m.pid)) + "  " +
		subtleStyle.Render(fmt.Sprintf("up %s  samples %d",
			(time.Duration(s.CPU.ElapsedTime*float64(time.Second))).Truncate(time.Second), m.samples))
	if m.lastErr != nil {
		header += "\n" + errorStyle.Render(truncate(m.lastErr.Error(), m.width))
	}

	cpu := s.CPU
	cpuCard := card("CPU",
		fmt.Sprintf("%s\nuser %.2fs  sys %.2fs  iowait %.2fs\nchildren user %.2fs  sys %.2fs\nthreads %d",
			gaugeBar(cpu.Percent, 28),
			cpu.Times.User, cpu.Times.System, cpu.Times.IOWait,
			cpu.Times.ChildrenUser, cpu.Times.ChildrenSystem,
			cpu.NumThreads))

	mem := s.Memory
	memCard := card("Memory",
		fmt.Sprintf("%s\nrss %s  vms %s\nuss %s  pss %s  swap %s",
			gaugeBar(float64(mem.Percent), 28),
			humanBytes(mem.RSS), humanBytes(mem.VMS),
			humanBytes(mem.USS), humanBytes(mem.PSS), humanBytes(mem.Swap)))

	d := s.Disk
	diskCard := card("Disk",
		fmt.Sprintf("fds %d\nread  %s in %d calls (%s chars)\nwrite %s in %d calls (%s chars)",
			d.NumFDs,
			humanBytes(d.ReadBytes), d.ReadCount, humanBytes(d.ReadChars),
			humanBytes(d.WriteBytes), d.WriteCount, humanBytes(d.WriteChars)))

	netCard := card("Network", renderSessions(s.Network.Session))

	threadTable := card("Threads by CPU time", renderThreads(cpu.Threads, 10))

	switch m.cfg.Focus {
	case config.FocusCPU:
		return lipgloss.JoinVertical(lipgloss.Left, header,
			lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, threadTable))
	case config.FocusMemory:
		return lipgloss.JoinVertical(lipgloss.Left, header, memCard)
	case config.FocusDisk:
		return lipgloss.JoinVertical(lipgloss.Left, header, diskCard)
	case config.FocusNetwork:
		return lipgloss.JoinVertical(lipgloss.Left, header, netCard)
	}

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, diskCard, netCard, threadTable)

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2)
}

// Helpers
func gaugeBar(pct float64, width int) string {
	label := pct
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		label)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

// renderSessions counts connections per status.
func renderSessions(session []string) string {
	if len(session) == 0 {
		return "no connections"
	}
	counts := make(map[string]int)
	for _, status := range session {
		if status == "" {
			status = "NONE"
		}
		counts[status]++
	}
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		if counts[statuses[i]] != counts[statuses[j]] {
			return counts[statuses[i]] > counts[statuses[j]]
		}
		return statuses[i] < statuses[j]
	})
	var b strings.Builder
	for _, status := range statuses {
		fmt.Fprintf(&b, "%-12s %4d\n", truncate(status, 12), counts[status])
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderThreads(threads []model.Thread, limit int) string {
	rows := make([]model.Thread, len(threads))
	copy(rows, threads)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UserTime+rows[i].SystemTime > rows[j].UserTime+rows[j].SystemTime
	})
	max := min(limit, len(rows))
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s %-8s %-8s\n", "tid", "user", "sys")
	for i := 0; i < max; i++ {
		r := rows[i]
		fmt.Fprintf(&b, "%-8d %8.2f %8.2f\n", r.ID, r.UserTime, r.SystemTime)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 1 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func humanBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// RunTUI starts the Bubble Tea program.
func RunTUI(cfg config.Config, b *sampler.Builder) error {
	prog := tea.NewProgram(New(cfg, b), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
