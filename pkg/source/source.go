// Package source loads and validates raw bubble flow datasets.
//
// A dataset is a JSON document holding an entity list and one or more named
// flow lists:
//
//	{
//	  "entities": [{"id": 1, "label": "A", "absoluteSize": 10}],
//	  "flows": {
//	    "paired": [{"from": 1, "to": 2, "in": {"abs": 40}, "out": {"abs": 10}}]
//	  }
//	}
//
// [Parse] validates the whole document and reports every violation in one
// error. Sources ([FileSource], [BytesSource], [HTTPSource]) only differ in
// where the bytes come from.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/matzehuels/bubbleflow/pkg/cache"
	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/observability"
)

// Source produces a validated dataset.
type Source interface {
	// Name identifies the source in logs and cache keys.
	Name() string
	// Load reads and validates the dataset.
	Load(ctx context.Context) (*Dataset, error)
}

// Open returns an HTTPSource for http(s) URLs and a FileSource otherwise.
func Open(ref string) Source {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return &HTTPSource{URL: ref}
	}
	return &FileSource{Path: ref}
}

// =============================================================================
// FileSource
// =============================================================================

// FileSource reads a dataset from the local filesystem.
type FileSource struct {
	Path string
}

// Name returns the file path.
func (s *FileSource) Name() string { return s.Path }

// Load reads and parses the file.
func (s *FileSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "dataset %s", s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return Parse(data)
}

// =============================================================================
// BytesSource
// =============================================================================

// BytesSource parses an in-memory document.
type BytesSource struct {
	Label string
	Data  []byte
}

// Name returns the label, or "bytes".
func (s *BytesSource) Name() string {
	if s.Label == "" {
		return "bytes"
	}
	return s.Label
}

// Load parses the bytes.
func (s *BytesSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(s.Data)
}

// =============================================================================
// HTTPSource
// =============================================================================

// HTTP defaults.
const (
	DefaultHTTPAttempts = 3
	DefaultHTTPDelay    = time.Second
	DefaultHTTPTimeout  = 30 * time.Second
)

// maxDocumentBytes caps the size of a fetched dataset.
var maxDocumentBytes int64 = 64 << 20

// HTTPSource fetches a dataset over HTTP.
//
// Network errors, 429 and 5xx responses are retried with exponential backoff.
// Fetched documents are stored in Cache (when set) for TTL so repeated loads
// do not hit the network.
type HTTPSource struct {
	URL    string
	Client *http.Client

	Cache cache.Cache
	Keyer cache.Keyer
	TTL   time.Duration

	Attempts int
	Delay    time.Duration

	Logger *log.Logger
	Hooks  observability.Hooks
}

// Name returns the URL.
func (s *HTTPSource) Name() string { return s.URL }

// Load fetches, caches and parses the document.
func (s *HTTPSource) Load(ctx context.Context) (*Dataset, error) {
	logger := s.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	keyer := s.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	key := keyer.DatasetKey(s.URL)
	hooks := s.Hooks.OrNoop()

	if s.Cache != nil {
		if data, ok, err := s.Cache.Get(ctx, key); err != nil {
			logger.Warn("dataset cache read failed", "url", s.URL, "error", err)
		} else if ok {
			hooks.Cache.OnCacheHit(ctx, "dataset")
			return Parse(data)
		}
		hooks.Cache.OnCacheMiss(ctx, "dataset")
	}

	attempts := s.Attempts
	if attempts <= 0 {
		attempts = DefaultHTTPAttempts
	}
	delay := s.Delay
	if delay <= 0 {
		delay = DefaultHTTPDelay
	}

	var data []byte
	err := cache.Retry(ctx, attempts, delay, func() error {
		var err error
		data, err = s.fetch(ctx, hooks.HTTP)
		if err != nil && cache.IsRetryable(err) {
			logger.Debug("dataset fetch failed, retrying", "url", s.URL, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	ds, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		ttl := s.TTL
		if ttl <= 0 {
			ttl = cache.DefaultDatasetTTL
		}
		if err := s.Cache.Set(ctx, key, data, ttl); err != nil {
			logger.Warn("dataset cache write failed", "url", s.URL, "error", err)
		} else {
			hooks.Cache.OnCacheSet(ctx, "dataset", len(data))
		}
	}
	return ds, nil
}

func (s *HTTPSource) fetch(ctx context.Context, hooks observability.HTTPHooks) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "dataset url %q", s.URL)
	}
	req.Header.Set("Accept", "application/json")

	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", s.URL))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New(errors.ErrCodeNotFound, "dataset %s: 404 not found", s.URL)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, cache.Retryable(errors.New(errors.ErrCodeNetwork, "fetch %s: %s", s.URL, resp.Status))
	case resp.StatusCode != http.StatusOK:
		return nil, errors.New(errors.ErrCodeNetwork, "fetch %s: %s", s.URL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", s.URL))
	}
	if int64(len(data)) > maxDocumentBytes {
		return nil, errors.New(errors.ErrCodeInvalidData, "dataset exceeds %s", humanize.IBytes(uint64(maxDocumentBytes)))
	}
	return data, nil
}
