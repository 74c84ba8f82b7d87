package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/c2h5oh/datasize"
	"golang.org/x/sync/errgroup"

	"github.com/tturner/flowmod/internal/artifact"
	"github.com/tturner/flowmod/internal/config"
	flowmodErrors "github.com/tturner/flowmod/internal/errors"
	"github.com/tturner/flowmod/internal/logging"
	"github.com/tturner/flowmod/internal/metrics"
	"github.com/tturner/flowmod/internal/modifier"
	"github.com/tturner/flowmod/internal/progress"
	"github.com/tturner/flowmod/internal/synth"
)

type GenerateOptions struct {
	ConfigPath   string
	Output       string
	Packets      uint64
	StartIndex   *uint64
	Workers      int
	Flows        []string
	MetricsFile  string
	ArtifactsDir string
	LogFile      string
	LogFormat    string
	Progress     bool
	Verbose      bool
	Debug        bool
}

// GenerateResult describes a finished run.
type GenerateResult struct {
	Outputs []string
	Summary *metrics.Summary
}

// span is a contiguous range of global iteration indices.
type span struct {
	worker int
	start  uint64
	count  uint64
}

func RunGenerate(opts GenerateOptions) error {
	cfg, err := config.LoadConfig(opts.ConfigPath, false)
	if err != nil {
		return err
	}
	applyGenerateOverrides(cfg, opts)
	if err := config.ValidateConfig(cfg); err != nil {
		return flowmodErrors.WrapConfigError(err, opts.ConfigPath)
	}

	logger, err := newLogger(cfg.Logging, opts.Verbose, opts.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.LogStartup(opts.ConfigPath, len(cfg.Flows), cfg.Generate.StartIndex, cfg.Generate.Packets,
		cfg.Generate.Workers, cfg.Output.PCAP)

	var artifacts *artifact.OutputManager
	if cfg.Output.ArtifactsDir != "" {
		artifacts, err = artifact.NewOutputManager(cfg.Output.ArtifactsDir)
		if err != nil {
			return flowmodErrors.WrapOutputError(err, cfg.Output.ArtifactsDir)
		}
		artifacts.SetPlaylist(opts.ConfigPath, cfg.Seed, cfg.Generate.Flows,
			cfg.Generate.StartIndex, cfg.Generate.Packets, cfg.Generate.Workers)
		artifacts.SetMetricsFile(cfg.Output.MetricsCSV)
	}

	var bar *progress.ProgressBar
	if opts.Progress {
		bar = progress.NewProgressBar(os.Stderr, cfg.Generate.Packets, "generate")
	}
	result, err := generate(ctx, cfg, logger, bar)
	bar.Finish()
	if artifacts != nil {
		var summary *metrics.Summary
		if result != nil {
			artifacts.SetPCAPFiles(result.Outputs)
			summary = result.Summary
		}
		if ferr := artifacts.Finalize(summary, err); ferr != nil {
			logger.Error("write run artifacts: %v", ferr)
		} else {
			logger.Verbose("run artifacts written to %s", artifacts.OutputDir())
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Wrote %d packets to %s\n", result.Summary.Written, strings.Join(result.Outputs, ", "))
	fmt.Fprint(os.Stdout, metrics.FormatSummary(result.Summary))
	return nil
}

func applyGenerateOverrides(cfg *config.Config, opts GenerateOptions) {
	if opts.Output != "" {
		cfg.Output.PCAP = opts.Output
	}
	if opts.Packets > 0 {
		cfg.Generate.Packets = opts.Packets
	}
	if opts.StartIndex != nil {
		cfg.Generate.StartIndex = *opts.StartIndex
	}
	if opts.Workers > 0 {
		cfg.Generate.Workers = opts.Workers
	}
	if len(opts.Flows) > 0 {
		cfg.Generate.Flows = opts.Flows
	}
	if opts.MetricsFile != "" {
		cfg.Output.MetricsCSV = opts.MetricsFile
	}
	if opts.ArtifactsDir != "" {
		cfg.Output.ArtifactsDir = opts.ArtifactsDir
	}
	if opts.LogFile != "" {
		cfg.Logging.LogFile = opts.LogFile
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = opts.LogFormat
	}
}

func newLogger(lc config.LoggingConfig, verbose, debug bool) (*logging.Logger, error) {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = logging.LogLevelDebug
	} else if verbose && level < logging.LogLevelVerbose {
		level = logging.LogLevelVerbose
	}
	return logging.NewLoggerWithOptions(level, lc.LogFile, lc.Format, lc.LogEveryN)
}

// Generate renders the configured iteration range of every selected flow.
// Each worker owns a clone of the block positioned at the start of its
// span, so the frames of iteration i are the same whatever the worker
// count. Frame timestamps are i * interval after the Unix epoch.
func Generate(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*GenerateResult, error) {
	return generate(ctx, cfg, logger, nil)
}

// generate is Generate reporting completed iterations to bar, which may be nil.
func generate(ctx context.Context, cfg *config.Config, logger *logging.Logger, bar *progress.ProgressBar) (*GenerateResult, error) {
	plan, err := NewPlan(cfg, cfg.Generate.Flows)
	if err != nil {
		return nil, err
	}

	rec, err := newRecorder(cfg.Output.MetricsCSV)
	if err != nil {
		return nil, flowmodErrors.WrapOutputError(err, cfg.Output.MetricsCSV)
	}

	spans := splitRange(cfg.Generate.StartIndex, cfg.Generate.Packets, cfg.Generate.Workers)
	outputs := make([]string, len(spans))
	for i, s := range spans {
		outputs[i] = workerOutputPath(cfg.Output.PCAP, s.worker, len(spans))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range spans {
		w := &worker{
			span:      s,
			plan:      plan,
			block:     plan.Block.Clone(),
			output:    outputs[i],
			limit:     cfg.Output.MaxSize,
			interval:  cfg.Generate.Interval,
			recompute: cfg.Output.RecomputeChecksums == nil || *cfg.Output.RecomputeChecksums,
			logger:    logger,
			rec:       rec,
			bar:       bar,
		}
		g.Go(func() error {
			return w.run(gctx)
		})
	}
	runErr := g.Wait()
	if err := rec.close(); err != nil && runErr == nil {
		runErr = flowmodErrors.WrapOutputError(err, cfg.Output.MetricsCSV)
	}
	if runErr != nil {
		return nil, runErr
	}

	summary := rec.sink.GetSummary()
	for _, tmpl := range plan.Templates {
		if st, ok := summary.ByFlow[tmpl.Name]; ok {
			logger.LogFlowSummary(tmpl.Name, uint64(st.Packets), st.Bytes)
		}
	}
	return &GenerateResult{Outputs: outputs, Summary: summary}, nil
}

// splitRange divides count iterations starting at start into at most
// workers contiguous spans, earlier spans taking the remainder.
func splitRange(start, count uint64, workers int) []span {
	if workers < 1 {
		workers = 1
	}
	if uint64(workers) > count {
		workers = int(count)
	}
	spans := make([]span, 0, workers)
	base := count / uint64(workers)
	rem := count % uint64(workers)
	pos := start
	for i := 0; i < workers; i++ {
		n := base
		if uint64(i) < rem {
			n++
		}
		spans = append(spans, span{worker: i, start: pos, count: n})
		pos += n
	}
	return spans
}

// workerOutputPath returns path itself for a single worker and
// <name>.w<N><ext> otherwise.
func workerOutputPath(path string, worker, workers int) string {
	if workers <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s.w%d%s", strings.TrimSuffix(path, ext), worker, ext)
}

type worker struct {
	span      span
	plan      *Plan
	block     *modifier.Block
	output    string
	limit     datasize.ByteSize
	interval  time.Duration
	recompute bool
	logger    *logging.Logger
	rec       *recorder
	bar       *progress.ProgressBar
}

func (w *worker) run(ctx context.Context) error {
	out, err := synth.CreatePCAP(w.output, w.limit)
	if err != nil {
		return flowmodErrors.WrapOutputError(err, w.output)
	}
	defer out.Close()

	w.logger.Verbose("worker %d: iterations %d..%d -> %s", w.span.worker, w.span.start, w.span.start+w.span.count, w.output)

	w.block.SetCursor(w.span.start)
	var buf []byte
	for i := uint64(0); i < w.span.count; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		index := w.span.start + i
		ts := time.Unix(0, 0).UTC().Add(time.Duration(index) * w.interval)
		for _, tmpl := range w.plan.Templates {
			began := time.Now()
			frame, end := tmpl.Render(w.block, buf)
			buf = frame
			if w.recompute {
				fixed, err := synth.RecomputeChecksums(frame[:end])
				if err != nil {
					w.logger.Debug("flow %s iteration %d: checksum recompute skipped: %v", tmpl.Name, index, err)
				} else {
					frame = fixed
				}
			}
			if w.logger.GetLevel() >= logging.LogLevelDebug {
				w.logger.LogHex(fmt.Sprintf("flow %s iteration %d", tmpl.Name, index), frame)
			}

			m := metrics.Metric{
				Timestamp: ts,
				Flow:      tmpl.Name,
				Worker:    w.span.worker,
				Index:     index,
				Bytes:     len(frame),
			}
			err := out.WritePacket(ts, frame)
			m.RenderUs = float64(time.Since(began).Nanoseconds()) / 1e3
			if stderrors.Is(err, synth.ErrSizeLimit) {
				m.Error = metrics.ErrorSizeLimit
				if rerr := w.rec.record(m); rerr != nil {
					return flowmodErrors.WrapOutputError(rerr, "metrics")
				}
				w.logger.Info("worker %d: %s reached its size limit at iteration %d", w.span.worker, w.output, index)
				return w.finish(out)
			}
			if err != nil {
				return flowmodErrors.WrapOutputError(err, w.output)
			}
			m.Success = true
			if err := w.rec.record(m); err != nil {
				return flowmodErrors.WrapOutputError(err, "metrics")
			}
		}
		w.block.Next()
		w.bar.Add(1)
	}
	return w.finish(out)
}

func (w *worker) finish(out *synth.PCAPWriter) error {
	if err := out.Close(); err != nil {
		return flowmodErrors.WrapOutputError(err, w.output)
	}
	w.logger.Verbose("worker %d: wrote %d packets (%d bytes) to %s", w.span.worker, out.Packets(), out.Written(), w.output)
	return nil
}

// recorder serializes metric recording across workers.
type recorder struct {
	mu     sync.Mutex
	sink   *metrics.Sink
	writer *metrics.Writer
}

func newRecorder(csvPath string) (*recorder, error) {
	r := &recorder{sink: metrics.NewSink(false)}
	if csvPath != "" {
		w, err := metrics.NewWriter(csvPath, "")
		if err != nil {
			return nil, err
		}
		r.writer = w
	}
	return r, nil
}

func (r *recorder) record(m metrics.Metric) error {
	r.sink.Record(m)
	if r.writer == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.WriteMetric(m)
}

func (r *recorder) close() error {
	if r.writer == nil {
		return nil
	}
	return r.writer.Close()
}
