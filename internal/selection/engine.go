// Package selection scans a memory-card directory, keeps the camera files
// that pass the sequence and date filters, and groups them by destination
// directory (<dest>/<ext>/<YYYY>/<MM>/<DD>). It never writes to disk.
package selection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"photocopy/internal/metadata"
)

// ErrSourceUnreadable is returned when the source directory cannot be
// listed. Nothing is returned alongside it.
var ErrSourceUnreadable = errors.New("source directory unreadable")

// Logger receives per-file exclusion notes.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Options describes one selection run.
type Options struct {
	Source string // Directory to scan, not descended into.
	Dest   string // Destination root; need not exist.
	Filter Filter
}

// Match is a selected file with its destination directory.
type Match struct {
	Entry metadata.Entry
	Dir   string
}

// Engine drives scan, resolve, filter and destination computation.
type Engine struct {
	resolver *metadata.Resolver
	log      Logger
	fsys     fs.FS
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for exclusion notes.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithFS lists and stats entries from fsys instead of the source directory
// on disk. Paths handed to the tag reader are still Source joined with the
// entry name.
func WithFS(fsys fs.FS) Option {
	return func(e *Engine) { e.fsys = fsys }
}

// NewEngine returns an Engine using resolver for naming and timestamps.
func NewEngine(resolver *metadata.Resolver, opts ...Option) *Engine {
	e := &Engine{resolver: resolver, log: nopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Select scans and groups in one call.
func (e *Engine) Select(ctx context.Context, opts Options) (Grouping, error) {
	matches, err := e.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}
	return Group(matches), nil
}

// Scan returns the selected files in directory-listing order.
func (e *Engine) Scan(ctx context.Context, opts Options) ([]Match, error) {
	fsys := e.fsys
	if fsys == nil {
		fsys = os.DirFS(opts.Source)
	}
	dirEntries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, opts.Source, err)
	}

	cands := make([]metadata.Candidate, 0, len(dirEntries))
	for _, d := range dirEntries {
		name := d.Name()
		if d.IsDir() {
			continue
		}
		entry, err := e.resolver.Parse(name)
		if err != nil {
			e.log.Debugf("skip %s: %v", name, err)
			continue
		}
		// Sequence bounds go first so out-of-range files are never sent to
		// the tag reader.
		if !opts.Filter.MatchSequence(entry.Sequence) {
			e.log.Debugf("skip %s: sequence %d outside %s", name, entry.Sequence, opts.Filter)
			continue
		}
		// Stat through symlinks so a linked photo carries its target's mtime.
		info, err := fs.Stat(fsys, name)
		if err != nil {
			e.log.Warnf("skip %s: %v", name, err)
			continue
		}
		if info.IsDir() {
			e.log.Debugf("skip %s: directory", name)
			continue
		}
		cands = append(cands, metadata.Candidate{
			Path: filepath.Join(opts.Source, name),
			Info: info,
		})
	}

	results, err := e.resolver.ResolveBatch(ctx, cands)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			e.log.Warnf("skip %s: %v", filepath.Base(r.Candidate.Path), r.Err)
			continue
		}
		if !opts.Filter.MatchTime(r.Entry.Captured) {
			e.log.Debugf("skip %s: captured %s outside %s",
				r.Entry.Name, r.Entry.Captured.Format(DateLayout), opts.Filter)
			continue
		}
		matches = append(matches, Match{
			Entry: r.Entry,
			Dir:   Destination(opts.Dest, r.Entry),
		})
	}
	return matches, nil
}

// Destination returns root/<ext>/<YYYY>/<MM>/<DD> for entry's capture date.
func Destination(root string, entry metadata.Entry) string {
	ts := entry.Captured
	return filepath.Join(root, entry.Ext, ts.Format("2006"), ts.Format("01"), ts.Format("02"))
}
