// Package artifact handles structured output artifacts for generate runs.
package artifact

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tturner/flowmod/internal/metrics"
)

// RunMetadata contains metadata about a generate run.
type RunMetadata struct {
	// Run identification
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  string    `json:"duration"`

	// Playlist
	Config     string   `json:"config,omitempty"`
	Seed       uint32   `json:"seed"`
	Flows      []string `json:"flows"`
	StartIndex uint64   `json:"start_index"`
	Packets    uint64   `json:"packets"`
	Workers    int      `json:"workers"`

	// Results
	Stats    RunStats `json:"stats"`
	ExitCode int      `json:"exit_code"`
	Error    string   `json:"error,omitempty"`

	Artifacts ArtifactPaths `json:"artifacts"`
}

// RunStats contains statistics from a generate run.
type RunStats struct {
	TotalPackets  int    `json:"total_packets"`
	Written       int    `json:"written"`
	Failed        int    `json:"failed"`
	SizeLimitHits int    `json:"size_limit_hits"`
	TotalBytes    uint64 `json:"total_bytes"`
	// render time in microseconds
	AvgRenderUs float64 `json:"avg_render_us"`
	P50RenderUs float64 `json:"p50_render_us"`
	P95RenderUs float64 `json:"p95_render_us"`
	P99RenderUs float64 `json:"p99_render_us"`
	MaxRenderUs float64 `json:"max_render_us"`
}

// ArtifactPaths lists the files a run produced. run.json and summary.txt
// are relative to the artifact directory; capture and metrics paths are
// as given on the command line or in the playlist.
type ArtifactPaths struct {
	RunJSON    string   `json:"run_json"`
	SummaryTxt string   `json:"summary_txt,omitempty"`
	PCAPFiles  []string `json:"pcap_files,omitempty"`
	MetricsCSV string   `json:"metrics_csv,omitempty"`
}

// OutputManager manages artifact output for a run.
type OutputManager struct {
	outputDir string
	metadata  *RunMetadata
}

// NewOutputManager creates the artifact directory and starts the run clock.
func NewOutputManager(outputDir string) (*OutputManager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	now := time.Now()
	return &OutputManager{
		outputDir: outputDir,
		metadata: &RunMetadata{
			RunID:     now.Format("20060102-150405"),
			StartTime: now,
			Artifacts: ArtifactPaths{
				RunJSON:    "run.json",
				SummaryTxt: "summary.txt",
			},
		},
	}, nil
}

func (m *OutputManager) OutputDir() string {
	return m.outputDir
}

func (m *OutputManager) RunID() string {
	return m.metadata.RunID
}

// SetPlaylist records what the run was asked to generate.
func (m *OutputManager) SetPlaylist(configPath string, seed uint32, flows []string, startIndex, packets uint64, workers int) {
	m.metadata.Config = configPath
	m.metadata.Seed = seed
	m.metadata.Flows = append([]string(nil), flows...)
	m.metadata.StartIndex = startIndex
	m.metadata.Packets = packets
	m.metadata.Workers = workers
}

func (m *OutputManager) SetPCAPFiles(paths []string) {
	m.metadata.Artifacts.PCAPFiles = append([]string(nil), paths...)
}

func (m *OutputManager) SetMetricsFile(path string) {
	m.metadata.Artifacts.MetricsCSV = path
}

func (m *OutputManager) SummaryPath() string {
	return filepath.Join(m.outputDir, m.metadata.Artifacts.SummaryTxt)
}

func (m *OutputManager) RunJSONPath() string {
	return filepath.Join(m.outputDir, m.metadata.Artifacts.RunJSON)
}

// Metadata returns the run metadata as it stands.
func (m *OutputManager) Metadata() RunMetadata {
	return *m.metadata
}

// Finalize stops the run clock and writes summary.txt and run.json.
// summary may be nil when the run failed before producing one.
func (m *OutputManager) Finalize(summary *metrics.Summary, runErr error) error {
	m.metadata.EndTime = time.Now()
	m.metadata.Duration = m.metadata.EndTime.Sub(m.metadata.StartTime).String()
	if runErr != nil {
		m.metadata.ExitCode = 1
		m.metadata.Error = runErr.Error()
	}

	if summary != nil {
		m.metadata.Stats = RunStats{
			TotalPackets:  summary.TotalPackets,
			Written:       summary.Written,
			Failed:        summary.Failed,
			SizeLimitHits: summary.SizeLimitHits,
			TotalBytes:    summary.TotalBytes,
			AvgRenderUs:   summary.AvgRenderUs,
			P50RenderUs:   summary.P50RenderUs,
			P95RenderUs:   summary.P95RenderUs,
			P99RenderUs:   summary.P99RenderUs,
			MaxRenderUs:   summary.MaxRenderUs,
		}
	}

	if err := m.writeSummary(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := WriteJSONFile(m.RunJSONPath(), m.metadata); err != nil {
		return fmt.Errorf("write run.json: %w", err)
	}
	return nil
}

func (m *OutputManager) writeSummary(summary *metrics.Summary) error {
	f, err := os.Create(m.SummaryPath())
	if err != nil {
		return err
	}
	defer f.Close()

	md := m.metadata
	fmt.Fprintf(f, "FLOWMOD Run Summary\n")
	fmt.Fprintf(f, "===================\n\n")

	fmt.Fprintf(f, "Run ID:     %s\n", md.RunID)
	fmt.Fprintf(f, "Start Time: %s\n", md.StartTime.Format(time.RFC3339))
	fmt.Fprintf(f, "End Time:   %s\n", md.EndTime.Format(time.RFC3339))
	fmt.Fprintf(f, "Duration:   %s\n\n", md.Duration)

	if md.Config != "" {
		fmt.Fprintf(f, "Playlist:   %s\n", md.Config)
	}
	fmt.Fprintf(f, "Seed:       0x%08x\n", md.Seed)
	fmt.Fprintf(f, "Iterations: %d..%d\n", md.StartIndex, md.StartIndex+md.Packets)
	fmt.Fprintf(f, "Workers:    %d\n\n", md.Workers)

	if summary != nil {
		fmt.Fprintf(f, "Results\n")
		fmt.Fprintf(f, "-------\n")
		fmt.Fprint(f, metrics.FormatSummary(summary))
		fmt.Fprintln(f)
	}

	if md.Error != "" {
		fmt.Fprintf(f, "Error: %s\n\n", md.Error)
	}

	fmt.Fprintf(f, "Artifacts\n")
	fmt.Fprintf(f, "---------\n")
	for _, p := range md.Artifacts.PCAPFiles {
		fmt.Fprintf(f, "PCAP:     %s\n", p)
	}
	if md.Artifacts.MetricsCSV != "" {
		fmt.Fprintf(f, "Metrics:  %s\n", md.Artifacts.MetricsCSV)
	}
	fmt.Fprintf(f, "Summary:  %s\n", md.Artifacts.SummaryTxt)
	fmt.Fprintf(f, "Run JSON: %s\n", md.Artifacts.RunJSON)
	return nil
}

// WriteJSONFile marshals v as indented JSON and writes it to path.
func WriteJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes v as indented JSON to w.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
