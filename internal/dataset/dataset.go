// Package dataset loads historical match results from a delimited file.
//
// The source is either a local path or an http(s) URL. The first row is a header
// that must name the Team1, Team2 and Winner columns; any other columns are ignored.
// Every failure is reported as a *FileLoadError so callers can tell a bad dataset
// apart from other errors.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rewired-gh/cricketoracle/internal/logger"
	"github.com/rewired-gh/cricketoracle/internal/models"
)

// Required column names.
const (
	ColumnTeam1  = "Team1"
	ColumnTeam2  = "Team2"
	ColumnWinner = "Winner"
)

// FileLoadError reports a missing, unreadable or malformed dataset.
type FileLoadError struct {
	Source string
	Err    error
}

func (e *FileLoadError) Error() string {
	return fmt.Sprintf("failed to load dataset %s: %v", e.Source, e.Err)
}

func (e *FileLoadError) Unwrap() error {
	return e.Err
}

// ErrMissingColumn is wrapped when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

type options struct {
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
	comma          rune
}

// Option configures Load.
type Option func(*options)

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout sets the request timeout for URL sources.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.httpClient = &http.Client{Timeout: d} }
}

// WithRetry sets how often a URL fetch is attempted and the linear backoff base.
func WithRetry(maxRetries int, delayBase time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.retryDelayBase = delayBase
	}
}

// WithComma sets the field delimiter. The default is ','.
func WithComma(r rune) Option {
	return func(o *options) { o.comma = r }
}

// IsURL reports whether src should be fetched over HTTP.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// ResolvePath turns a configured dataset path into the one to open.
// URLs and absolute paths are returned unchanged. Relative paths are joined to the
// directory of the running executable when relativeToExecutable is set, and kept
// relative to the working directory otherwise.
func ResolvePath(path string, relativeToExecutable bool) (string, error) {
	if IsURL(path) || filepath.IsAbs(path) || !relativeToExecutable {
		return path, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), path), nil
}

// Load reads every match record from src.
func Load(ctx context.Context, src string, opts ...Option) ([]models.MatchRecord, error) {
	o := options{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		maxRetries:     3,
		retryDelayBase: time.Second,
		comma:          ',',
	}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		body io.ReadCloser
		err  error
	)
	if IsURL(src) {
		body, err = fetch(ctx, o, src)
	} else {
		body, err = os.Open(src)
	}
	if err != nil {
		return nil, &FileLoadError{Source: src, Err: err}
	}
	defer body.Close()

	records, err := Parse(body, o.comma)
	if err != nil {
		return nil, &FileLoadError{Source: src, Err: err}
	}
	logger.Debug("Loaded %d match records from %s", len(records), src)
	return records, nil
}

// Parse decodes delimited match data with a header row.
// Every data row becomes a record; missing fields are left empty.
func Parse(r io.Reader, comma rune) ([]models.MatchRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("dataset is empty, header row required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	idx := [3]int{}
	for i, name := range []string{ColumnTeam1, ColumnTeam2, ColumnWinner} {
		pos, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[i] = pos
	}

	field := func(row []string, i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	var records []models.MatchRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(row) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(row))
		}

		records = append(records, models.MatchRecord{
			Team1:  field(row, idx[0]),
			Team2:  field(row, idx[1]),
			Winner: field(row, idx[2]),
		})
	}
	return records, nil
}

// fetch performs the GET with retry on transport errors and 5xx responses.
func fetch(ctx context.Context, o options, url string) (io.ReadCloser, error) {
	maxRetries := o.maxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.retryDelayBase * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/csv, text/plain, */*")

		resp, err := o.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp.Body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
