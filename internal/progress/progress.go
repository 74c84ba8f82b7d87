package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	barWidth       = 50
	renderInterval = 100 * time.Millisecond
)

// ProgressBar is a packet counter shared by all generate workers.
// Add may be called concurrently; rendering is throttled and serialized.
type ProgressBar struct {
	total       uint64
	current     atomic.Uint64
	description string
	output      io.Writer
	enabled     bool
	startTime   time.Time

	mu         sync.Mutex
	lastUpdate time.Time
	now        func() time.Time
}

// NewProgressBar creates a bar counting to total. A nil output disables it.
func NewProgressBar(output io.Writer, total uint64, description string) *ProgressBar {
	return newProgressBar(output, total, description, time.Now)
}

func newProgressBar(output io.Writer, total uint64, description string, now func() time.Time) *ProgressBar {
	return &ProgressBar{
		total:       total,
		description: description,
		output:      output,
		enabled:     output != nil,
		startTime:   now(),
		now:         now,
	}
}

// Add advances the bar by n.
func (p *ProgressBar) Add(n uint64) {
	if p == nil {
		return
	}
	cur := p.current.Add(n)
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if now.Sub(p.lastUpdate) < renderInterval && cur < p.total {
		return
	}
	p.lastUpdate = now
	fmt.Fprint(p.output, p.line(cur, now))
}

// Current returns the count so far.
func (p *ProgressBar) Current() uint64 {
	if p == nil {
		return 0
	}
	return p.current.Load()
}

// Finish renders the final state and ends the line. The count is left
// as is, so an interrupted run shows where it stopped.
func (p *ProgressBar) Finish() {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.output, p.line(p.current.Load(), p.now())+"\n")
}

func (p *ProgressBar) line(cur uint64, now time.Time) string {
	var percent float64
	if p.total > 0 {
		percent = float64(cur) / float64(p.total) * 100
	}
	elapsed := now.Sub(p.startTime)

	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat("-", barWidth-filled-1)
	}

	var b strings.Builder
	b.WriteString("\r")
	if p.description != "" {
		b.WriteString(p.description + " ")
	}
	fmt.Fprintf(&b, "[%s] %d/%d (%.1f%%) | Elapsed: %s", bar, cur, p.total, percent, formatDuration(elapsed))

	if cur > 0 && cur < p.total && elapsed > 0 {
		rate := float64(cur) / elapsed.Seconds()
		eta := time.Duration(float64(p.total-cur) / rate * float64(time.Second))
		fmt.Fprintf(&b, " | ETA: %s", formatDuration(eta))
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
