package app

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tturner/flowmod/internal/artifact"
	"github.com/tturner/flowmod/internal/config"
	flowmodErrors "github.com/tturner/flowmod/internal/errors"
	"github.com/tturner/flowmod/internal/logging"
	"github.com/tturner/flowmod/internal/metrics"
	"github.com/tturner/flowmod/internal/synth"
)

const testPlaylist = `
seed: 7
generate:
  packets: 23
  interval: 1ms
output:
  pcap: %s
flows:
  - name: web
    frame:
      src_mac: "02:00:00:00:00:01"
      dst_mac: "02:00:00:00:00:02"
      src_ip: 10.0.0.1
      dst_ip: 10.0.1.1
      protocol: tcp
      src_port: 40000
      dst_port: 80
      payload_size: 16
    variables:
      - {index: 0, name: src_ip, mode: increment, offset: 26, start: "0a000001", recycle: 5}
      - {index: 1, name: src_port, mode: random, offset: 34, mask: "ffff", recycle: 3, stutter: 1}
      - {index: 2, name: tag, mode: table, offset: 54, table: ["aa", "bbbb", "cccccc"], stutter: 2}
    links:
      - {parent: 0, child: 1}
  - name: dns
    frame:
      src_mac: "02:00:00:00:00:03"
      dst_mac: "02:00:00:00:00:04"
      src_ip: fd00::1
      dst_ip: fd00::53
      protocol: udp
      src_port: 5353
      dst_port: 53
      payload_size: 4
    variables:
      - {index: 0, mode: decrement, offset: 22, start: "fd000000000000000000000000000100", mask: "ffffffffffffffffffffffffffffffff"}
`

func loadTestConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out.pcap")
	cfg, err := config.ParseConfig([]byte(fmt.Sprintf(testPlaylist, out)))
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, config.ValidateConfig(cfg))
	return cfg
}

func silentLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(logging.LogLevelSilent, "")
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger
}

func readAll(t *testing.T, paths []string) []synth.Packet {
	t.Helper()
	var all []synth.Packet
	for _, p := range paths {
		packets, err := synth.ReadPCAPFile(p)
		require.NoError(t, err)
		all = append(all, packets...)
	}
	return all
}

func TestGenerateSingleWorker(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	result, err := Generate(context.Background(), cfg, silentLogger(t))
	require.NoError(t, err)
	require.Equal(t, []string{cfg.Output.PCAP}, result.Outputs)

	packets := readAll(t, result.Outputs)
	require.Len(t, packets, 46, "two flows per iteration")
	require.Equal(t, 46, result.Summary.Written)
	require.Equal(t, 23, result.Summary.ByFlow["web"].Packets)
	require.Equal(t, 23, result.Summary.ByFlow["dns"].Packets)

	// Iteration 6 of web: src ip wraps after 5 values.
	web6 := packets[12].Data
	require.Equal(t, []byte{10, 0, 0, 2}, web6[26:30])
	require.Equal(t, int64(6), packets[12].Timestamp.UnixMilli())

	// dns decrements the low bytes of the IPv6 source.
	dns1 := packets[3].Data
	require.Equal(t, []byte{0x00, 0xff}, dns1[36:38])
}

func TestGenerateWorkersMatchSingleWorker(t *testing.T) {
	single := loadTestConfig(t, func(c *config.Config) { c.Generate.StartIndex = 100 })
	want, err := Generate(context.Background(), single, silentLogger(t))
	require.NoError(t, err)
	wantPackets := readAll(t, want.Outputs)

	for _, workers := range []int{2, 3, 7} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			cfg := loadTestConfig(t, func(c *config.Config) {
				c.Generate.StartIndex = 100
				c.Generate.Workers = workers
			})
			got, err := Generate(context.Background(), cfg, silentLogger(t))
			require.NoError(t, err)
			require.Len(t, got.Outputs, workers)
			require.True(t, strings.HasSuffix(got.Outputs[1], ".w1.pcap"))

			gotPackets := readAll(t, got.Outputs)
			require.Equal(t, len(wantPackets), len(gotPackets))
			for i := range wantPackets {
				require.Equal(t, wantPackets[i].Data, gotPackets[i].Data, "packet %d", i)
				require.True(t, wantPackets[i].Timestamp.Equal(gotPackets[i].Timestamp), "packet %d", i)
			}
			require.Len(t, got.Summary.ByWorker, workers)
		})
	}
}

func TestGenerateFlowFilterKeepsSeeds(t *testing.T) {
	all := loadTestConfig(t, nil)
	full, err := Generate(context.Background(), all, silentLogger(t))
	require.NoError(t, err)
	fullPackets := readAll(t, full.Outputs)

	cfg := loadTestConfig(t, func(c *config.Config) { c.Generate.Flows = []string{"w*"} })
	filtered, err := Generate(context.Background(), cfg, silentLogger(t))
	require.NoError(t, err)
	packets := readAll(t, filtered.Outputs)
	require.Len(t, packets, 23)
	require.NotContains(t, filtered.Summary.ByFlow, "dns")
	for i := range packets {
		require.Equal(t, fullPackets[2*i].Data, packets[i].Data, "web iteration %d", i)
	}
}

func TestGenerateSizeLimit(t *testing.T) {
	cfg := loadTestConfig(t, func(c *config.Config) {
		c.Generate.Flows = []string{"web"}
		// file header plus three 16+70 byte records
		c.Output.MaxSize = 24 + 3*(16+70) + 10
	})
	result, err := Generate(context.Background(), cfg, silentLogger(t))
	require.NoError(t, err)
	require.Equal(t, 3, result.Summary.Written)
	require.Equal(t, 1, result.Summary.SizeLimitHits)
	require.Len(t, readAll(t, result.Outputs), 3)
}

func TestGenerateMetricsCSV(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "metrics.csv")
	cfg := loadTestConfig(t, func(c *config.Config) {
		c.Output.MetricsCSV = csvPath
		c.Generate.Workers = 2
	})
	_, err := Generate(context.Background(), cfg, silentLogger(t))
	require.NoError(t, err)

	rows, _, _, err := metrics.ReadMetricsCSV(csvPath)
	require.NoError(t, err)
	require.Len(t, rows, 46)
	for _, r := range rows {
		require.True(t, r.Success)
		require.Contains(t, []string{"web", "dns"}, r.Flow)
	}
}

func TestGenerateCancelled(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, cfg, silentLogger(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewPlanBuildError(t *testing.T) {
	cfg := loadTestConfig(t, func(c *config.Config) {
		c.Flows[0].Links = append(c.Flows[0].Links, config.LinkConfig{Parent: 1, Child: 0})
	})
	_, err := NewPlan(cfg, nil)
	require.Error(t, err)

	var ufe flowmodErrors.UserFriendlyError
	require.True(t, stderrors.As(err, &ufe))
	require.Contains(t, ufe.Message, `"web"`)
}

func TestNewPlanNoMatch(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	_, err := NewPlan(cfg, []string{"nothing*"})
	require.ErrorContains(t, err, "no flows match")
}

func TestSelectFlows(t *testing.T) {
	names := []string{"web-a", "web-b", "dns", "ntp"}
	tests := []struct {
		patterns []string
		want     []int
	}{
		{nil, []int{0, 1, 2, 3}},
		{[]string{"web-*"}, []int{0, 1}},
		{[]string{"dns", "web-b"}, []int{1, 2}},
		{[]string{"{dns,ntp}"}, []int{2, 3}},
		{[]string{"?tp"}, []int{3}},
		{[]string{"none"}, nil},
	}
	for _, tt := range tests {
		got, err := SelectFlows(names, tt.patterns)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "patterns %v", tt.patterns)
	}

	_, err := SelectFlows(names, []string{"[bad"})
	require.Error(t, err)
}

func TestSplitRange(t *testing.T) {
	tests := []struct {
		start   uint64
		count   uint64
		workers int
		want    []span
	}{
		{0, 10, 1, []span{{0, 0, 10}}},
		{5, 10, 3, []span{{0, 5, 4}, {1, 9, 3}, {2, 12, 3}}},
		{0, 2, 4, []span{{0, 0, 1}, {1, 1, 1}}},
		{0, 4, 0, []span{{0, 0, 4}}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, splitRange(tt.start, tt.count, tt.workers))
	}
}

func TestWorkerOutputPath(t *testing.T) {
	require.Equal(t, "out.pcap", workerOutputPath("out.pcap", 0, 1))
	require.Equal(t, "dir/out.w2.pcap", workerOutputPath("dir/out.pcap", 2, 4))
	require.Equal(t, "capture.w0", workerOutputPath("capture", 0, 2))
}

func TestRunGenerateArtifacts(t *testing.T) {
	path := writePlaylist(t)
	dir := filepath.Dir(path)
	artifacts := filepath.Join(dir, "run")
	out := filepath.Join(dir, "cli.pcap")

	err := RunGenerate(GenerateOptions{
		ConfigPath:   path,
		Output:       out,
		Packets:      4,
		Workers:      2,
		ArtifactsDir: artifacts,
		Progress:     true,
		LogFormat:    "json",
	})
	require.NoError(t, err)

	packets := readAll(t, []string{
		filepath.Join(dir, "cli.w0.pcap"),
		filepath.Join(dir, "cli.w1.pcap"),
	})
	require.Len(t, packets, 8)

	data, err := os.ReadFile(filepath.Join(artifacts, "run.json"))
	require.NoError(t, err)
	var meta artifact.RunMetadata
	require.NoError(t, json.Unmarshal(data, &meta))
	require.Equal(t, uint32(7), meta.Seed)
	require.Equal(t, uint64(4), meta.Packets)
	require.Equal(t, 2, meta.Workers)
	require.Equal(t, 8, meta.Stats.Written)
	require.Len(t, meta.Artifacts.PCAPFiles, 2)

	summary, err := os.ReadFile(filepath.Join(artifacts, "summary.txt"))
	require.NoError(t, err)
	require.Contains(t, string(summary), "Total Packets: 8")
}

func TestRunGenerateArtifactsOnFailure(t *testing.T) {
	path := writePlaylist(t)
	artifacts := filepath.Join(filepath.Dir(path), "run")

	err := RunGenerate(GenerateOptions{
		ConfigPath:   path,
		Output:       filepath.Join(filepath.Dir(path), "missing", "out.pcap"),
		ArtifactsDir: artifacts,
	})
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(artifacts, "run.json"))
	require.NoError(t, err)
	var meta artifact.RunMetadata
	require.NoError(t, json.Unmarshal(data, &meta))
	require.Equal(t, 1, meta.ExitCode)
	require.NotEmpty(t, meta.Error)
}

func TestGenerateFrameLengthIndependentOfRecompute(t *testing.T) {
	const playlist = `
seed: 1
generate: {packets: 2}
output: {pcap: %s}
flows:
  - name: arp-flip
    frame: {src_mac: "02:00:00:00:00:01", dst_mac: "02:00:00:00:00:02", src_ip: 10.0.0.1, dst_ip: 10.0.0.2, src_port: 1, dst_port: 2, payload_size: 4}
    variables:
      - {index: 0, name: ethertype, mode: table, offset: 12, table: ["0800", "0806"]}
`
	out := filepath.Join(t.TempDir(), "out.pcap")
	cfg, err := config.ParseConfig([]byte(fmt.Sprintf(playlist, out)))
	require.NoError(t, err)

	result, err := Generate(context.Background(), cfg, silentLogger(t))
	require.NoError(t, err)
	packets := readAll(t, result.Outputs)
	require.Len(t, packets, 2)

	// iteration 0 re-serializes as IPv4; iteration 1 no longer decodes
	// as IP and is written as rendered
	require.Equal(t, []byte{0x08, 0x00}, packets[0].Data[12:14])
	require.Equal(t, []byte{0x08, 0x06}, packets[1].Data[12:14])
	require.Len(t, packets[0].Data, 60)
	require.Len(t, packets[1].Data, len(packets[0].Data))
}
