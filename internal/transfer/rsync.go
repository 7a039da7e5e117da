package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Rsync transfers a group with a single rsync invocation. The file names are
// passed through a temporary --files-from list rather than on the command
// line.
type Rsync struct {
	Path     string // rsync binary; empty means "rsync" from PATH.
	Simulate bool   // Pass --dry-run and skip creating destDir.
	Verbose  bool   // Pass -v and tee rsync's output to Stdout.
	Stdout   io.Writer
}

// Transfer implements Transferer.
func (r *Rsync) Transfer(ctx context.Context, srcDir, destDir string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	if !r.Simulate {
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", destDir, err)
		}
	}

	list, err := writeFileList(files)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	bin := r.Path
	if bin == "" {
		bin = "rsync"
	}
	cmd := exec.CommandContext(ctx, bin, r.args(list, srcDir, destDir)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if r.Verbose && r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rsync: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (r *Rsync) args(list, srcDir, destDir string) []string {
	args := []string{"-a"}
	if r.Simulate {
		args = append(args, "--dry-run")
	}
	if r.Verbose {
		args = append(args, "-v")
	}
	return append(args, "--files-from="+list, withSlash(srcDir), withSlash(destDir))
}

// writeFileList writes one name per line to a temp file and returns its path.
func writeFileList(files []string) (string, error) {
	f, err := os.CreateTemp("", "photocopy-files-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create file list: %w", err)
	}
	if _, err := io.WriteString(f, strings.Join(files, "\n")+"\n"); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write file list: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close file list: %w", err)
	}
	return f.Name(), nil
}

func withSlash(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}
