package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Builtin copies files in-process. Sources are never removed: the card is
// left as it was.
type Builtin struct {
	Jobs     int  // Concurrent copies within a group; values < 1 mean 1.
	Simulate bool // Log what would be copied, write nothing.
	Log      Logger
}

// Transfer implements Transferer. A destination file with the same size and
// mtime as its source is taken to be an earlier copy and skipped.
func (b *Builtin) Transfer(ctx context.Context, srcDir, destDir string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	if !b.Simulate {
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", destDir, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.Jobs, 1))
	for _, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return b.copyOne(filepath.Join(srcDir, name), filepath.Join(destDir, name))
		})
	}
	return g.Wait()
}

func (b *Builtin) copyOne(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if dstInfo, err := os.Stat(dst); err == nil && sameFile(srcInfo, dstInfo) {
		b.debugf("skip %s: already at %s", filepath.Base(src), dst)
		return nil
	}
	if b.Simulate {
		b.debugf("would copy %s -> %s", src, dst)
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	// Keep the capture-era mtime, as rsync -a does.
	return os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
}

// sameFile is rsync's quick check: equal size and mtime to the second.
func sameFile(src, dst os.FileInfo) bool {
	return src.Size() == dst.Size() && src.ModTime().Unix() == dst.ModTime().Unix()
}

func (b *Builtin) debugf(format string, args ...interface{}) {
	if b.Log != nil {
		b.Log.Debugf(format, args...)
	}
}

// copyFile copies src to dst through a temp file in dst's directory, so an
// interrupted copy never leaves a truncated file under the final name.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".photocopy-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
