package transfer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocopy/internal/metadata"
	"photocopy/internal/selection"
)

func readManifest(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func copiedMatch(t *testing.T, root, name, ext string, seq int, captured time.Time) selection.Match {
	t.Helper()
	e := metadata.Entry{Name: name, Sequence: seq, Ext: ext, Captured: captured, Size: 5}
	dir := selection.Destination(root, e)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("image"), 0o644))
	return selection.Match{Entry: e, Dir: dir}
}

func TestManifest_Record(t *testing.T) {
	root := t.TempDir()
	captured := time.Date(2022, 1, 5, 10, 11, 12, 0, time.Local)
	m1 := copiedMatch(t, root, "IMG_0101.JPG", "JPG", 101, captured)
	m2 := copiedMatch(t, root, "IMG_0100.JPG", "JPG", 100, captured)
	failed := copiedMatch(t, root, "IMG_0100.CR2", "CR2", 100, captured)

	path := filepath.Join(root, "_Manifest", "photocopy.csv")
	m := NewManifest(path, root)
	m.now = func() time.Time { return time.Date(2024, 2, 1, 8, 0, 0, 0, time.Local) }

	added, err := m.Record([]selection.Match{m1, m2, failed}, []string{m1.Dir})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	records := readManifest(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, manifestHeader, records[0])

	// Sorted by relative path.
	row := records[1]
	assert.Equal(t, "IMG_0100.JPG", row[0])
	assert.Equal(t, filepath.Join("JPG", "2022", "01", "05", "IMG_0100.JPG"), row[1])
	assert.Equal(t, "100", row[2])
	assert.Equal(t, "JPG", row[3])
	assert.Equal(t, "2022:01:05 10:11:12", row[4])
	assert.Equal(t, "5", row[5])
	assert.Len(t, row[6], 32, "md5 hex")
	assert.Equal(t, m.RunID, row[7])
	assert.Equal(t, "2024-02-01 08:00:00", row[8])
	assert.Equal(t, "IMG_0101.JPG", records[2][0])
}

func TestManifest_KeepsExistingRows(t *testing.T) {
	root := t.TempDir()
	captured := time.Date(2022, 1, 5, 10, 0, 0, 0, time.Local)
	first := copiedMatch(t, root, "IMG_0100.JPG", "JPG", 100, captured)
	second := copiedMatch(t, root, "IMG_0200.JPG", "JPG", 200, captured.AddDate(0, 2, 0))
	path := filepath.Join(root, "manifest.csv")

	run1 := NewManifest(path, root)
	added, err := run1.Record([]selection.Match{first}, []string{first.Dir})
	require.NoError(t, err)
	require.Equal(t, 1, added)

	run2 := NewManifest(path, root)
	assert.NotEqual(t, run1.RunID, run2.RunID)
	added, err = run2.Record([]selection.Match{first, second}, []string{first.Dir, second.Dir})
	require.NoError(t, err)
	assert.Equal(t, 1, added, "already-recorded file is not added twice")

	records := readManifest(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, run1.RunID, records[1][7], "first row keeps its original run id")
	assert.Equal(t, run2.RunID, records[2][7])

	// No temp files or stray outputs besides the lock file.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	assert.ElementsMatch(t, []string{"manifest.csv", "manifest.csv.lock"}, names)
}

func TestManifest_Malformed(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "manifest.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,\"b\n"), 0o644))

	_, err := NewManifest(path, root).Record(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse manifest")
}

func TestFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "IMG_0001.JPG")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", fileHash(path))
	assert.Equal(t, "", fileHash(filepath.Join(dir, "missing")))
}
