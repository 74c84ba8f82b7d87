package metrics

// Metrics collection for packet generation

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Metric represents one rendered packet
type Metric struct {
	Timestamp time.Time
	Flow      string
	Worker    int
	Index     uint64 // iteration index the packet was rendered at
	Bytes     int
	Success   bool
	RenderUs  float64 // time spent rendering and writing the frame
	Error     string
}

// Sink collects and aggregates metrics
type Sink struct {
	mu      sync.RWMutex
	metrics []Metric
	keep    bool
	summary *Summary
}

// Summary contains aggregated statistics
type Summary struct {
	TotalPackets  int
	Written       int
	Failed        int
	SizeLimitHits int
	TotalBytes    uint64
	MinBytes      int
	MaxBytes      int
	AvgBytes      float64
	MinRenderUs   float64
	MaxRenderUs   float64
	AvgRenderUs   float64
	P50RenderUs   float64
	P90RenderUs   float64
	P95RenderUs   float64
	P99RenderUs   float64
	SizeBuckets   map[string]int
	ByFlow        map[string]*FlowStats
	ByWorker      map[int]*FlowStats
	First         time.Time
	Last          time.Time
	renderSamples []float64
}

// FlowStats contains statistics for one flow or worker
type FlowStats struct {
	Packets int
	Failed  int
	Bytes   uint64
	MinSize int
	MaxSize int
}

func newSummary() *Summary {
	return &Summary{
		SizeBuckets: make(map[string]int),
		ByFlow:      make(map[string]*FlowStats),
		ByWorker:    make(map[int]*FlowStats),
	}
}

// NewSink creates a new metrics sink. When keep is false only the summary
// is maintained and GetMetrics returns nothing.
func NewSink(keep bool) *Sink {
	return &Sink{
		keep:    keep,
		summary: newSummary(),
	}
}

// Record records a new metric
func (s *Sink) Record(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keep {
		s.metrics = append(s.metrics, m)
	}
	s.updateSummary(m)
}

// GetMetrics returns a copy of all recorded metrics
func (s *Sink) GetMetrics() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := make([]Metric, len(s.metrics))
	copy(metrics, s.metrics)
	return metrics
}

// GetSummary returns the aggregated summary
func (s *Sink) GetSummary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := *s.summary
	summary.SizeBuckets = make(map[string]int, len(s.summary.SizeBuckets))
	summary.ByFlow = make(map[string]*FlowStats, len(s.summary.ByFlow))
	summary.ByWorker = make(map[int]*FlowStats, len(s.summary.ByWorker))
	summary.renderSamples = nil
	for k, v := range s.summary.SizeBuckets {
		summary.SizeBuckets[k] = v
	}
	for k, v := range s.summary.ByFlow {
		c := *v
		summary.ByFlow[k] = &c
	}
	for k, v := range s.summary.ByWorker {
		c := *v
		summary.ByWorker[k] = &c
	}

	p := computePercentiles(append([]float64(nil), s.summary.renderSamples...))
	summary.P50RenderUs = p[0]
	summary.P90RenderUs = p[1]
	summary.P95RenderUs = p[2]
	summary.P99RenderUs = p[3]
	return &summary
}

// Elapsed returns the span between the first and last recorded packet
func (s *Summary) Elapsed() time.Duration {
	if s.First.IsZero() || s.Last.Before(s.First) {
		return 0
	}
	return s.Last.Sub(s.First)
}

// updateSummary updates the summary statistics with a new metric
func (s *Sink) updateSummary(m Metric) {
	sum := s.summary
	sum.TotalPackets++

	if !m.Timestamp.IsZero() {
		if sum.First.IsZero() || m.Timestamp.Before(sum.First) {
			sum.First = m.Timestamp
		}
		if m.Timestamp.After(sum.Last) {
			sum.Last = m.Timestamp
		}
	}

	flow := statsFor(sum.ByFlow, m.Flow)
	worker := statsFor(sum.ByWorker, m.Worker)

	if !m.Success {
		sum.Failed++
		flow.Failed++
		worker.Failed++
		if m.Error == ErrorSizeLimit {
			sum.SizeLimitHits++
		}
		return
	}

	sum.Written++
	sum.TotalBytes += uint64(m.Bytes)
	if sum.MinBytes == 0 || m.Bytes < sum.MinBytes {
		sum.MinBytes = m.Bytes
	}
	if m.Bytes > sum.MaxBytes {
		sum.MaxBytes = m.Bytes
	}
	sum.AvgBytes = float64(sum.TotalBytes) / float64(sum.Written)
	incrementBucket(sum.SizeBuckets, m.Bytes)

	flow.add(m.Bytes)
	worker.add(m.Bytes)

	if m.RenderUs > 0 {
		if sum.MinRenderUs == 0 || m.RenderUs < sum.MinRenderUs {
			sum.MinRenderUs = m.RenderUs
		}
		if m.RenderUs > sum.MaxRenderUs {
			sum.MaxRenderUs = m.RenderUs
		}
		sum.renderSamples = append(sum.renderSamples, m.RenderUs)
		total := sum.AvgRenderUs * float64(len(sum.renderSamples)-1)
		sum.AvgRenderUs = (total + m.RenderUs) / float64(len(sum.renderSamples))
	}
}

// ErrorSizeLimit is recorded as the error of packets dropped because the
// output reached its size limit.
const ErrorSizeLimit = "size_limit"

func statsFor[K comparable](m map[K]*FlowStats, key K) *FlowStats {
	st, ok := m[key]
	if !ok {
		st = &FlowStats{}
		m[key] = st
	}
	return st
}

func (f *FlowStats) add(n int) {
	f.Packets++
	f.Bytes += uint64(n)
	if f.MinSize == 0 || n < f.MinSize {
		f.MinSize = n
	}
	if n > f.MaxSize {
		f.MaxSize = n
	}
}

func incrementBucket(buckets map[string]int, size int) {
	switch {
	case size < 64:
		buckets["lt_64"]++
	case size < 128:
		buckets["64_127"]++
	case size < 256:
		buckets["128_255"]++
	case size < 512:
		buckets["256_511"]++
	case size < 1024:
		buckets["512_1023"]++
	case size < 1519:
		buckets["1024_1518"]++
	default:
		buckets["gt_1518"]++
	}
}

func computePercentiles(values []float64) [4]float64 {
	var result [4]float64
	if len(values) == 0 {
		return result
	}
	sort.Float64s(values)
	result[0] = percentile(values, 0.50)
	result[1] = percentile(values, 0.90)
	result[2] = percentile(values, 0.95)
	result[3] = percentile(values, 0.99)
	return result
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
