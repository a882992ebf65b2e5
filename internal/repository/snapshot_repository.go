package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lst-platform/internal/models"
)

// SnapshotSource fetches the raster of one julian day.
// A day that does not exist yields a *NotFoundError.
type SnapshotSource interface {
	FetchDay(ctx context.Context, day int) (*models.DaySnapshot, error)
	Describe() string
}

// dirSource reads <dir>/<year>_<ddd>_LST.json
type dirSource struct {
	dir string
	cal models.Calendar
}

// NewDirSource creates a source over a directory of per-day documents
func NewDirSource(dir string, cal models.Calendar) SnapshotSource {
	return &dirSource{dir: dir, cal: cal}
}

func (s *dirSource) FetchDay(ctx context.Context, day int) (*models.DaySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, s.cal.FileName(day))
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Resource: "day_file", ID: path}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return DecodeDayFile(f, s.cal, day)
}

func (s *dirSource) Describe() string {
	return "dir:" + s.dir
}

// httpSource fetches <baseURL>/<year>_<ddd>_LST.json
type httpSource struct {
	baseURL string
	client  *http.Client
	cal     models.Calendar
}

// NewHTTPSource creates a source that downloads per-day documents
func NewHTTPSource(baseURL string, client *http.Client, cal models.Calendar) SnapshotSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpSource{baseURL: strings.TrimRight(baseURL, "/"), client: client, cal: cal}
}

func (s *httpSource) FetchDay(ctx context.Context, day int) (*models.DaySnapshot, error) {
	url := s.baseURL + "/" + s.cal.FileName(day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Resource: "day_file", ID: url}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	return DecodeDayFile(resp.Body, s.cal, day)
}

func (s *httpSource) Describe() string {
	return "http:" + s.baseURL
}

// DecodeDayFile parses one per-day document. The embedded date, when present,
// must agree with day; every sample must be placeable on the map.
func DecodeDayFile(r io.Reader, cal models.Calendar, day int) (*models.DaySnapshot, error) {
	var file models.DayFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, &models.ValidationError{Field: "document", Message: fmt.Sprintf("malformed day document: %v", err)}
	}

	if file.Date != "" {
		fileDay, err := cal.ParseKey(file.Date)
		if err != nil {
			return nil, err
		}
		if fileDay != day {
			return nil, &models.ValidationError{
				Field:   "date",
				Value:   file.Date,
				Message: fmt.Sprintf("document is for day %d, expected %d", fileDay, day),
			}
		}
	}

	for i := range file.Data {
		if err := file.Data[i].Validate(); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}

	return &models.DaySnapshot{Day: day, Samples: file.Data}, nil
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// IsNotFound reports whether err wraps a *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
