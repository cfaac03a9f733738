package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/docket/internal/dataset"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/report"
)

// Loader loads one dataset source
type Loader interface {
	Load(ctx context.Context, source string) (*dataset.Snapshot, error)
}

// ReportJob loads one source and builds its term report
type ReportJob struct {
	Index   int
	Source  string
	Loader  Loader
	Limiter *Limiter
	Roster  model.Roster
}

// Execute executes the report job
func (j *ReportJob) Execute(ctx context.Context) *BatchResult {
	start := time.Now()
	res := &BatchResult{Source: j.Source, index: j.Index}

	if j.Limiter != nil && dataset.IsRemote(j.Source) {
		if host, err := HostKey(j.Source); err == nil {
			if err := j.Limiter.Wait(ctx, host); err != nil {
				res.Error = fmt.Errorf("rate limit: %w", err)
				res.Duration = time.Since(start)
				return res
			}
		}
	}

	snap, err := j.Loader.Load(ctx, j.Source)
	if err != nil {
		res.Error = err
	} else {
		res.Report = report.Build(snap, j.Roster)
	}
	res.Duration = time.Since(start)
	return res
}

// BatchResult is the outcome for one source
type BatchResult struct {
	Source   string
	Report   *report.TermReport
	Error    error
	Duration time.Duration
	index    int
}

// BatchProcessor builds reports for many sources concurrently
type BatchProcessor struct {
	loader      Loader
	roster      model.Roster
	concurrency int
	limiter     *Limiter
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor. requestsPerSecond and
// burst apply per remote host; zero disables limiting.
func NewBatchProcessor(loader Loader, roster model.Roster, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	return &BatchProcessor{
		loader:      loader,
		roster:      roster,
		concurrency: concurrency,
		limiter:     NewLimiter(requestsPerSecond, burst),
		logger:      zap.NewNop(),
	}
}

// WithLogger sets the logger
func (b *BatchProcessor) WithLogger(logger *zap.Logger) *BatchProcessor {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithHostRate overrides the fetch rate for one remote host
func (b *BatchProcessor) WithHostRate(host string, requestsPerSecond float64, burst int) *BatchProcessor {
	b.limiter.SetRate(host, requestsPerSecond, burst)
	return b
}

// ProcessSources builds a report per source. Results follow the order of
// sources; sources never reached because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*BatchResult {
	if len(sources) == 0 {
		return []*BatchResult{}
	}

	jobs := make([]Job[*BatchResult], len(sources))
	for i, source := range sources {
		jobs[i] = &ReportJob{
			Index:   i,
			Source:  source,
			Loader:  b.loader,
			Limiter: b.limiter,
			Roster:  b.roster,
		}
	}

	pool := NewPool[*BatchResult](ctx, b.concurrency)
	done := pool.Run(jobs)

	ordered := make([]*BatchResult, len(sources))
	for _, res := range done {
		ordered[res.index] = res
		if res.Error != nil {
			b.logger.Warn("source failed", zap.String("source", res.Source), zap.Error(res.Error))
		} else {
			b.logger.Debug("source done",
				zap.String("source", res.Source),
				zap.Int("records", res.Report.Load.Records),
				zap.Duration("took", res.Duration))
		}
	}

	for i, res := range ordered {
		if res != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		ordered[i] = &BatchResult{Source: sources[i], Error: err, index: i}
	}

	return ordered
}

// ProcessFile reads sources from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads dataset paths or URLs from a file (one per line)
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
