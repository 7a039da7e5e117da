package transfer

import (
	"bytes"
	"crypto/md5"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"photocopy/internal/selection"
)

// manifestHeader is written when the manifest is created.
var manifestHeader = []string{
	"filename",        // Base filename
	"relative_path",   // Path relative to the destination root
	"sequence",        // Camera sequence number
	"extension",       // Extension as found on the card
	"capture_date",    // Resolved capture timestamp
	"file_size_bytes", // Size in bytes
	"file_hash",       // MD5 of the first 64KiB of the copy
	"run_id",          // Run that copied the file
	"copied_date",     // When the row was recorded
}

// hashPrefixSize is how much of each copy is hashed.
const hashPrefixSize = 64 * 1024

// Manifest is a CSV record of every file photocopy has placed under Root.
// Rows are keyed by relative_path; re-copying a file keeps its first row.
type Manifest struct {
	Path  string
	Root  string
	RunID string

	now func() time.Time
}

// NewManifest returns a Manifest for path with a fresh run id.
func NewManifest(path, root string) *Manifest {
	return &Manifest{
		Path:  path,
		Root:  root,
		RunID: uuid.NewString(),
		now:   time.Now,
	}
}

// Record adds rows for matches whose destination directory is in done and
// returns how many rows were new. The manifest is locked for the whole
// read-modify-write and replaced atomically.
func (m *Manifest) Record(matches []selection.Match, done []string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create manifest directory: %w", err)
	}

	lock := flock.New(m.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("failed to acquire lock on %s: %w", m.Path, err)
	}
	defer lock.Unlock()

	header, existing, err := m.read()
	if err != nil {
		return 0, err
	}

	okDirs := make(map[string]bool, len(done))
	for _, d := range done {
		okDirs[d] = true
	}

	added := 0
	copied := m.now().Format("2006-01-02 15:04:05")
	for _, match := range matches {
		if !okDirs[match.Dir] {
			continue
		}
		dst := filepath.Join(match.Dir, match.Entry.Name)
		rel, err := filepath.Rel(m.Root, dst)
		if err != nil {
			rel = dst
		}
		if _, ok := existing[rel]; ok {
			continue
		}
		existing[rel] = []string{
			match.Entry.Name,
			rel,
			strconv.Itoa(match.Entry.Sequence),
			match.Entry.Ext,
			match.Entry.Captured.Format("2006:01:02 15:04:05"),
			strconv.FormatInt(match.Entry.Size, 10),
			fileHash(dst),
			m.RunID,
			copied,
		}
		added++
	}

	if err := m.write(header, existing); err != nil {
		return 0, err
	}
	return added, nil
}

// read loads the manifest, keyed by relative_path. A missing file yields the
// default header and no rows.
func (m *Manifest) read() ([]string, map[string][]string, error) {
	existing := make(map[string][]string)
	f, err := os.Open(m.Path)
	if errors.Is(err, os.ErrNotExist) {
		return manifestHeader, existing, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse manifest %s: %w", m.Path, err)
	}
	if len(records) == 0 {
		return manifestHeader, existing, nil
	}
	for _, row := range records[1:] {
		if len(row) > 1 {
			existing[row[1]] = row
		}
	}
	return records[0], existing, nil
}

func (m *Manifest) write(header []string, rows map[string][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.Write(rows[k]); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return atomicWrite(m.Path, buf.Bytes())
}

// atomicWrite replaces path with data via a temp file and rename.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}

// fileHash returns the hex MD5 of the first 64KiB of path, or "" when the
// file cannot be read.
func fileHash(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, io.LimitReader(f, hashPrefixSize)); err != nil {
		return ""
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
