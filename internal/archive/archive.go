// Package archive implements the timestamped snapshot store.
//
// Every persisted file is named
//
//	<prefix>_<YYYY-MM-DD_HHMMSS>.<ext>
//
// inside a single directory. The newest file for a prefix is the one with the
// greatest embedded timestamp, not the newest modification time.
//
// Two writes with the same prefix inside the same wall-clock second target the
// same filename and the second overwrites the first. The harness writes one
// baseline per scenario per run, so this is an accepted limitation.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// TimestampLayout is the time layout embedded in archive filenames.
const TimestampLayout = "2006-01-02_150405"

// ErrNotFound is returned (wrapped in NotFoundError) when no file matches.
var ErrNotFound = errors.New("archive: no matching file")

// NotFoundError reports that no archived file exists for a prefix.
type NotFoundError struct {
	Dir       string
	Prefix    string
	Extension string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no file matching %s_<timestamp>.%s in %s", e.Prefix, e.Extension, e.Dir)
}

// Unwrap lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Clock supplies wall-clock time for filenames.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Entry is one archived file.
type Entry struct {
	Path      string
	Timestamp time.Time
}

// Archive is a directory of timestamped files.
// It keeps no state between calls besides its configuration.
type Archive struct {
	dir   string
	clock Clock
}

// Option configures an Archive.
type Option func(*Archive)

// WithClock overrides the wall clock used for new filenames.
func WithClock(c Clock) Option {
	return func(a *Archive) { a.clock = c }
}

// New returns an archive rooted at dir. The directory is created on first write.
func New(dir string, opts ...Option) *Archive {
	a := &Archive{dir: dir, clock: systemClock{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dir returns the archive directory.
func (a *Archive) Dir() string {
	return a.dir
}

// PathFor builds the filename for prefix and ext at time ts.
func (a *Archive) PathFor(prefix, ext string, ts time.Time) string {
	return filepath.Join(a.dir, fmt.Sprintf("%s_%s.%s", prefix, ts.Format(TimestampLayout), ext))
}

// Write stores payload under a freshly timestamped name and returns its path.
func (a *Archive) Write(prefix, ext string, payload []byte) (string, error) {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	path := a.PathFor(prefix, ext, a.clock.Now())
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Read returns the contents of an archived file.
func (a *Archive) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// FindLatest returns the path of the newest file for prefix and ext.
// Returns *NotFoundError when nothing matches; a missing baseline is fatal to
// a comparison, so callers must not treat it as an empty result.
func (a *Archive) FindLatest(prefix, ext string) (string, error) {
	entries, err := a.List(prefix, ext)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", &NotFoundError{Dir: a.dir, Prefix: prefix, Extension: ext}
	}
	return entries[len(entries)-1].Path, nil
}

// List returns every file for prefix and ext, oldest first.
// Files whose timestamp component does not parse are skipped.
func (a *Archive) List(prefix, ext string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(a.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan archive directory: %w", err)
	}

	pattern := namePattern(prefix, ext)
	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ts, ok := parseName(pattern, de.Name())
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Path:      filepath.Join(a.dir, de.Name()),
			Timestamp: ts,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// ParseName extracts the timestamp from filename if it matches prefix and ext exactly.
func ParseName(prefix, ext, filename string) (time.Time, bool) {
	return parseName(namePattern(prefix, ext), filename)
}

func namePattern(prefix, ext string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_(\d{4}-\d{2}-\d{2}_\d{6})\.` + regexp.QuoteMeta(ext) + `$`)
}

func parseName(pattern *regexp.Regexp, filename string) (time.Time, bool) {
	m := pattern.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
