// Package dataset loads the case collection from a file or URL.
//
// Loading is lenient about individual records and strict about the
// document: a record with a wrong-shaped field is kept with that field
// absent, but a source that cannot be read, is not a JSON array, or
// exceeds the size limit fails the load.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/docket/internal/model"
)

var (
	// ErrNotArray means the document root is not a JSON array
	ErrNotArray = errors.New("dataset is not a JSON array")
	// ErrTooLarge means the source exceeds the configured size limit
	ErrTooLarge = errors.New("dataset exceeds size limit")
)

// LoadStats describes one load
type LoadStats struct {
	Records   int   `json:"records"`
	Malformed int   `json:"malformed"` // Array elements that were not objects
	Bytes     int64 `json:"bytes"`
	Remote    bool  `json:"remote"`
	Cached    bool  `json:"cached"`
}

// Snapshot is an immutable, reconciled case collection
type Snapshot struct {
	Source   string             `json:"source"`
	Records  []model.CaseRecord `json:"-"`
	Stats    LoadStats          `json:"stats"`
	LoadedAt time.Time          `json:"loaded_at"`
}

// IsRemote reports whether source is an http(s) URL
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Name derives a human-readable name for a source from its last path segment
func Name(source string) string {
	path := source
	if IsRemote(source) {
		parsed, err := url.Parse(source)
		if err != nil {
			return source
		}
		path = strings.Trim(parsed.Path, "/")
		if path == "" {
			return parsed.Host
		}
	}

	last := filepath.Base(path)
	if ext := filepath.Ext(last); ext != "" && len(ext) < len(last) {
		last = strings.TrimSuffix(last, ext)
	}
	return last
}

// Loader reads datasets from disk or over HTTP
type Loader struct {
	fetcher  *Fetcher
	maxBytes int64
	logger   *zap.Logger
}

// NewLoader creates a loader. fetcher may be nil when only local files are read.
func NewLoader(fetcher *Fetcher, maxBytes int64, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fetcher:  fetcher,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Load reads, decodes and reconciles the dataset at source
func (l *Loader) Load(ctx context.Context, source string) (*Snapshot, error) {
	var (
		data  []byte
		stats LoadStats
	)

	if IsRemote(source) {
		if l.fetcher == nil {
			return nil, fmt.Errorf("load %s: remote sources not enabled", source)
		}
		result, err := l.fetcher.FetchWithRetry(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", source, err)
		}
		data = result.Body
		stats.Remote = true
		stats.Cached = result.Cached
	} else {
		b, err := l.readFile(source)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", source, err)
		}
		data = b
	}

	records, malformed, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	stats.Records = len(records)
	stats.Malformed = malformed
	stats.Bytes = int64(len(data))

	l.logger.Info("dataset loaded",
		zap.String("source", source),
		zap.Int("records", stats.Records),
		zap.Int("malformed", stats.Malformed),
		zap.Bool("cached", stats.Cached))

	return &Snapshot{
		Source:   source,
		Records:  records,
		Stats:    stats,
		LoadedAt: time.Now().UTC(),
	}, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	return ReadFile(path, l.maxBytes)
}

// ReadFile reads a local dataset, failing with ErrTooLarge past maxBytes.
// maxBytes <= 0 disables the limit.
func ReadFile(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if maxBytes > 0 {
		if info, err := f.Stat(); err == nil && info.Size() > maxBytes {
			return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, info.Size(), maxBytes)
		}
	}
	return readLimited(f, maxBytes)
}

// Decode parses a JSON array of case records and reconciles each one.
// Elements that are not objects become empty records and are counted in
// malformed.
func Decode(data []byte) (records []model.CaseRecord, malformed int, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, 0, ErrNotArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, 0, fmt.Errorf("decode dataset: %w", err)
	}

	records = make([]model.CaseRecord, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			malformed++
			continue
		}
		if err := json.Unmarshal(elem, &records[i]); err != nil {
			records[i] = model.CaseRecord{}
			malformed++
			continue
		}
		records[i].Reconcile()
	}

	return records, malformed, nil
}
