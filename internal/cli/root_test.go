package cli

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocopy/internal/selection"
)

// card lays out a small memory card: two JPGs and a CR2 on Jan 5, one JPG on
// Mar 10, plus files that must be ignored.
func card(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	jan := time.Date(2022, 1, 5, 9, 30, 0, 0, time.Local)
	mar := time.Date(2022, 3, 10, 18, 0, 0, 0, time.Local)
	for name, mtime := range map[string]time.Time{
		"IMG_0100.JPG":  jan,
		"IMG_0100.CR2":  jan,
		"IMG_0101.JPG":  jan,
		"IMG_0200.JPG":  mar,
		"MVI_0150.MOV":  jan,
		".IMG_0100.JPG": jan,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "IMG_0999.JPG"), 0o755))
	return dir
}

// execute runs the command with a config path that does not exist, so the
// user's own ~/.photocopy.yaml never leaks into a test.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	base := []string{
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--color", "never",
		"--timestamp", "mtime",
		"--copier", "builtin",
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "photocopy [start [end]]")
	assert.Contains(t, out, "--start-date")
	assert.Contains(t, out, "--dry-run")
}

func TestRootCommand_CopiesSelectedRange(t *testing.T) {
	src := card(t)
	dest := t.TempDir()
	manifest := filepath.Join(dest, "manifest.csv")

	out, _, err := execute(t, "--source", src, "--dest", dest, "--manifest", manifest, "100", "150")
	require.NoError(t, err)

	for _, rel := range []string{
		"JPG/2022/01/05/IMG_0100.JPG",
		"JPG/2022/01/05/IMG_0101.JPG",
		"CR2/2022/01/05/IMG_0100.CR2",
	} {
		_, err := os.Stat(filepath.Join(dest, rel))
		assert.NoError(t, err, rel)
	}
	_, err = os.Stat(filepath.Join(dest, "JPG", "2022", "03"))
	assert.ErrorIs(t, err, os.ErrNotExist, "IMG_0200 is outside the range")

	// Sources are left in place.
	_, err = os.Stat(filepath.Join(src, "IMG_0100.JPG"))
	assert.NoError(t, err)

	assert.Contains(t, out, "Source:      "+src)
	assert.Contains(t, out, "Copied 3 files into 2 folders")

	f, err := os.Open(manifest)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestRootCommand_DryRunCopiesNothing(t *testing.T) {
	src := card(t)
	dest := filepath.Join(t.TempDir(), "library")
	manifest := filepath.Join(t.TempDir(), "manifest.csv")

	out, _, err := execute(t, "--source", src, "--dest", dest, "--manifest", manifest, "-n")
	require.NoError(t, err)

	_, err = os.Stat(dest)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(manifest)
	assert.ErrorIs(t, err, os.ErrNotExist, "manifest is only written on real runs")
	assert.Contains(t, out, "[DRY RUN] Would copy 4 files into 3 folders")
}

func TestRootCommand_DateRange(t *testing.T) {
	src := card(t)
	dest := t.TempDir()

	_, _, err := execute(t, "--source", src, "--dest", dest, "--start-date", "2022-03-01")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dest, "JPG", "2022", "03", "10", "IMG_0200.JPG"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "JPG", "2022", "01"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRootCommand_NoMatches(t *testing.T) {
	src := card(t)
	out, _, err := execute(t, "--source", src, "--dest", t.TempDir(), "5000")
	require.NoError(t, err)
	assert.Contains(t, out, "No files matched")
}

func TestRootCommand_InvalidRange(t *testing.T) {
	_, _, err := execute(t, "--source", "/nonexistent", "--dest", t.TempDir(), "200", "100")
	assert.ErrorIs(t, err, selection.ErrInvalidFilterRange)

	_, _, err = execute(t, "--source", "/nonexistent", "--dest", t.TempDir(),
		"--start-date", "2022-02-01", "--end-date", "2022-01-01")
	assert.ErrorIs(t, err, selection.ErrInvalidFilterRange)
}

func TestRootCommand_BadArguments(t *testing.T) {
	_, _, err := execute(t, "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid start sequence number "abc"`)

	_, _, err = execute(t, "--start-date", "05/01/2022")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start-date")

	_, _, err = execute(t, "1", "2", "3")
	assert.Error(t, err)

	_, _, err = execute(t, "--jobs", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCommand_SourceUnreadable(t *testing.T) {
	_, _, err := execute(t, "--source", filepath.Join(t.TempDir(), "missing"), "--dest", t.TempDir())
	assert.ErrorIs(t, err, selection.ErrSourceUnreadable)
}

func TestRootCommand_ConfigFile(t *testing.T) {
	src := card(t)
	dest := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "photocopy.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"source: "+src+"\ndest: "+dest+"\ntimestamp: mtime\ncopier: builtin\ncolor: never\n"), 0o644))

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "200"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(dest, "JPG", "2022", "03", "10", "IMG_0200.JPG"))
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "Destination: "+dest)
}
