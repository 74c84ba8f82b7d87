package metrics

// Metrics output (CSV/JSON) and summary formatting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
)

var csvHeader = []string{
	"timestamp",
	"flow",
	"worker",
	"index",
	"bytes",
	"success",
	"render_us",
	"error",
}

// Writer handles writing metrics to files
type Writer struct {
	csvFile   *os.File
	csvWriter *csv.Writer
	jsonFile  *os.File
	jsonCount int
}

// NewWriter creates a new metrics writer
func NewWriter(csvPath, jsonPath string) (*Writer, error) {
	w := &Writer{}

	if csvPath != "" {
		file, err := os.Create(csvPath)
		if err != nil {
			return nil, fmt.Errorf("create CSV file: %w", err)
		}
		w.csvFile = file
		w.csvWriter = csv.NewWriter(file)

		if err := w.csvWriter.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write CSV header: %w", err)
		}
	}

	if jsonPath != "" {
		file, err := os.Create(jsonPath)
		if err != nil {
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("create JSON file: %w", err)
		}
		w.jsonFile = file

		if _, err := file.WriteString("[\n"); err != nil {
			file.Close()
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("write JSON start: %w", err)
		}
	}

	return w, nil
}

// WriteMetric writes a single metric
func (w *Writer) WriteMetric(m Metric) error {
	if w.csvWriter != nil {
		record := []string{
			m.Timestamp.Format(time.RFC3339Nano),
			m.Flow,
			strconv.Itoa(m.Worker),
			strconv.FormatUint(m.Index, 10),
			strconv.Itoa(m.Bytes),
			strconv.FormatBool(m.Success),
			formatMicros(m.RenderUs),
			m.Error,
		}
		if err := w.csvWriter.Write(record); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
	}

	if w.jsonFile != nil {
		jsonData, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if w.jsonCount > 0 {
			if _, err := w.jsonFile.WriteString(",\n"); err != nil {
				return fmt.Errorf("write JSON comma: %w", err)
			}
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, jsonData, "", "  "); err != nil {
			return fmt.Errorf("indent JSON: %w", err)
		}
		if _, err := w.jsonFile.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		w.jsonCount++
	}

	return nil
}

// Close closes the writer and flushes all data
func (w *Writer) Close() error {
	var errs []error

	if w.csvWriter != nil {
		w.csvWriter.Flush()
		if err := w.csvWriter.Error(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.csvFile != nil {
		if err := w.csvFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if w.jsonFile != nil {
		if _, err := w.jsonFile.WriteString("\n]\n"); err != nil {
			errs = append(errs, err)
		}
		if err := w.jsonFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close writer: %v", errs)
	}

	return nil
}

// formatMicros formats a duration in microseconds for CSV (empty string if 0)
func formatMicros(us float64) string {
	if us == 0 {
		return ""
	}
	return fmt.Sprintf("%.3f", us)
}

// FormatSummary formats a summary for human-readable output
func FormatSummary(summary *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total Packets: %d\n", summary.TotalPackets)
	if summary.TotalPackets == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "Written: %d (%.1f%%)\n",
		summary.Written,
		float64(summary.Written)/float64(summary.TotalPackets)*100)
	if summary.Failed > 0 {
		fmt.Fprintf(&b, "Failed: %d\n", summary.Failed)
	}
	if summary.SizeLimitHits > 0 {
		fmt.Fprintf(&b, "Dropped at size limit: %d\n", summary.SizeLimitHits)
	}
	fmt.Fprintf(&b, "Bytes: %s\n", datasize.ByteSize(summary.TotalBytes).HumanReadable())
	if elapsed := summary.Elapsed(); elapsed > 0 {
		fmt.Fprintf(&b, "Capture span: %s\n", elapsed)
	}

	if summary.Written > 0 {
		fmt.Fprintf(&b, "\nFrame Sizes:\n")
		fmt.Fprintf(&b, "  Min: %d B\n", summary.MinBytes)
		fmt.Fprintf(&b, "  Max: %d B\n", summary.MaxBytes)
		fmt.Fprintf(&b, "  Avg: %.1f B\n", summary.AvgBytes)
		fmt.Fprintf(&b, "  Buckets: <64=%d 64-127=%d 128-255=%d 256-511=%d 512-1023=%d 1024-1518=%d >1518=%d\n",
			summary.SizeBuckets["lt_64"],
			summary.SizeBuckets["64_127"],
			summary.SizeBuckets["128_255"],
			summary.SizeBuckets["256_511"],
			summary.SizeBuckets["512_1023"],
			summary.SizeBuckets["1024_1518"],
			summary.SizeBuckets["gt_1518"],
		)
	}
	if summary.AvgRenderUs > 0 {
		fmt.Fprintf(&b, "\nRender Time:\n")
		fmt.Fprintf(&b, "  Min: %.3f us\n", summary.MinRenderUs)
		fmt.Fprintf(&b, "  Max: %.3f us\n", summary.MaxRenderUs)
		fmt.Fprintf(&b, "  Avg: %.3f us\n", summary.AvgRenderUs)
		fmt.Fprintf(&b, "  P50: %.3f us\n", summary.P50RenderUs)
		fmt.Fprintf(&b, "  P99: %.3f us\n", summary.P99RenderUs)
	}

	if len(summary.ByFlow) > 0 {
		fmt.Fprintf(&b, "\nPer-Flow Statistics:\n")
		names := make([]string, 0, len(summary.ByFlow))
		for name := range summary.ByFlow {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			writeStats(&b, name, summary.ByFlow[name])
		}
	}

	if len(summary.ByWorker) > 1 {
		fmt.Fprintf(&b, "\nPer-Worker Statistics:\n")
		ids := make([]int, 0, len(summary.ByWorker))
		for id := range summary.ByWorker {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			writeStats(&b, fmt.Sprintf("worker %d", id), summary.ByWorker[id])
		}
	}

	return b.String()
}

func writeStats(b *strings.Builder, label string, st *FlowStats) {
	fmt.Fprintf(b, "  %s: %d packets, %s", label, st.Packets, datasize.ByteSize(st.Bytes).HumanReadable())
	if st.Packets > 0 {
		fmt.Fprintf(b, " (frames %d-%d B)", st.MinSize, st.MaxSize)
	}
	if st.Failed > 0 {
		fmt.Fprintf(b, ", %d failed", st.Failed)
	}
	b.WriteString("\n")
}
