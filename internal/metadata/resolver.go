// Package metadata classifies camera files: it parses the sequence number and
// extension out of a filename and resolves the file's capture timestamp,
// either from the filesystem modification time or from the embedded EXIF
// DateTimeOriginal tag.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrMetadataUnavailable means the embedded capture time could not be read
// for one file. The file is excluded; the scan goes on.
var ErrMetadataUnavailable = errors.New("capture time metadata unavailable")

// Strategy selects the timestamp source.
type Strategy int

const (
	// FilesystemTime uses the file's last-modified time.
	FilesystemTime Strategy = iota
	// EmbeddedMetadata uses the DateTimeOriginal tag read by a TagReader.
	EmbeddedMetadata
)

func (s Strategy) String() string {
	switch s {
	case FilesystemTime:
		return "mtime"
	case EmbeddedMetadata:
		return "exif"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Entry is a source file that matched the naming convention and has a
// resolved capture time.
type Entry struct {
	Name     string // Base filename, e.g. IMG_0123.JPG.
	Sequence int    // 123 for IMG_0123.JPG.
	Ext      string // Extension without dot, case as found.
	Captured time.Time
	Size     int64
}

// Candidate is a directory entry handed to the resolver.
type Candidate struct {
	Path string // Path passed to the TagReader; its base name is parsed.
	Info fs.FileInfo
}

// Result pairs a candidate with its resolution outcome. Err is ErrNoMatch
// or wraps ErrMetadataUnavailable.
type Result struct {
	Candidate Candidate
	Entry     Entry
	Err       error
}

// Resolver maps files to Entries under one timestamp strategy.
type Resolver struct {
	strategy   Strategy
	convention Convention
	tags       TagReader
	loc        *time.Location
}

// NewResolver returns a Resolver. tags is required for EmbeddedMetadata and
// ignored for FilesystemTime.
func NewResolver(strategy Strategy, convention Convention, tags TagReader) (*Resolver, error) {
	switch strategy {
	case FilesystemTime:
	case EmbeddedMetadata:
		if tags == nil {
			return nil, errors.New("embedded metadata strategy requires a tag reader")
		}
	default:
		return nil, fmt.Errorf("unknown timestamp strategy %v", strategy)
	}
	if convention.re == nil {
		convention = NewConvention("")
	}
	return &Resolver{strategy: strategy, convention: convention, tags: tags, loc: time.Local}, nil
}

// Strategy reports the configured timestamp strategy.
func (r *Resolver) Strategy() Strategy {
	return r.strategy
}

// Parse applies the naming convention to a base filename. Captured and Size
// are left zero.
func (r *Resolver) Parse(name string) (Entry, error) {
	seq, ext, err := r.convention.Parse(name)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Name: name, Sequence: seq, Ext: ext}, nil
}

// ResolvePath stats path and resolves it.
func (r *Resolver) ResolvePath(ctx context.Context, path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	return r.Resolve(ctx, Candidate{Path: path, Info: info})
}

// Resolve parses and timestamps a single candidate.
func (r *Resolver) Resolve(ctx context.Context, c Candidate) (Entry, error) {
	results, err := r.ResolveBatch(ctx, []Candidate{c})
	if err != nil {
		return Entry{}, err
	}
	return results[0].Entry, results[0].Err
}

// ResolveBatch resolves many candidates with at most one TagReader call.
// Per-file failures are reported in each Result; the returned error is set
// only when the TagReader itself fails or ctx is done.
func (r *Resolver) ResolveBatch(ctx context.Context, cands []Candidate) ([]Result, error) {
	results := make([]Result, len(cands))
	var pending []int
	for i, c := range cands {
		results[i].Candidate = c
		entry, err := r.Parse(filepath.Base(c.Path))
		if err != nil {
			results[i].Err = err
			continue
		}
		if c.Info != nil {
			entry.Size = c.Info.Size()
		}
		results[i].Entry = entry

		if r.strategy == FilesystemTime {
			if c.Info == nil {
				results[i].Err = fmt.Errorf("%s: no file info for modification time", c.Path)
				continue
			}
			results[i].Entry.Captured = c.Info.ModTime().In(r.loc)
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return results, nil
	}

	paths := make([]string, len(pending))
	for j, i := range pending {
		paths[j] = cands[i].Path
	}
	tags, err := r.tags.ReadTags(ctx, paths)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if !errors.Is(err, ErrReaderFailed) {
			err = fmt.Errorf("%w: %v", ErrReaderFailed, err)
		}
		return nil, err
	}
	for _, i := range pending {
		ts, err := r.captureTime(tags[cands[i].Path])
		if err != nil {
			results[i].Err = fmt.Errorf("%s: %w", results[i].Entry.Name, err)
			continue
		}
		results[i].Entry.Captured = ts
	}
	return results, nil
}

func (r *Resolver) captureTime(tags Tags) (time.Time, error) {
	raw, ok := tags[TagDateTimeOriginal]
	if !ok || raw == "" {
		return time.Time{}, fmt.Errorf("%w: no %s tag", ErrMetadataUnavailable, TagDateTimeOriginal)
	}
	ts, err := ParseCaptureTime(raw, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	return ts, nil
}

// ParseCaptureTime parses an EXIF "YYYY:MM:DD HH:MM:SS" value in loc.
func ParseCaptureTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	ts, err := time.ParseInLocation(CaptureTimeLayout, cleanValue(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad capture time %q", raw)
	}
	return ts, nil
}
