// Package transfer copies grouped camera files into their destination
// directories and records what was copied.
//
// Two backends implement Transferer: Rsync shells out to rsync with a
// --files-from list, Builtin copies in-process. Run drives either one over
// a selection.Grouping, one call per destination directory.
package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"photocopy/internal/selection"
)

// Transferer copies files (base names inside srcDir) into destDir, creating
// destDir when it does not exist.
type Transferer interface {
	Transfer(ctx context.Context, srcDir, destDir string, files []string) error
}

// Logger is the subset of the application logger used here.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Successf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Stats summarizes a Run.
type Stats struct {
	Groups  int
	Files   int
	Failed  int // Groups whose transfer returned an error.
	Elapsed time.Duration
	// Done lists the destination directories that transferred cleanly.
	Done []string
}

// Run transfers every group in g from srcDir, in sorted destination order.
// A failed group is logged and counted; the remaining groups still run. Run
// stops early only when ctx is done.
func Run(ctx context.Context, g selection.Grouping, srcDir string, t Transferer, log Logger) (Stats, error) {
	var stats Stats
	start := time.Now()

	for _, dir := range g.Dirs() {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}
		files := g[dir]
		stats.Groups++

		log.Infof("Copying %d files to %s", len(files), dir)
		for _, f := range files {
			log.Debugf("  %s", f)
		}

		groupStart := time.Now()
		if err := t.Transfer(ctx, srcDir, dir, files); err != nil {
			stats.Failed++
			log.Errorf("Copy to %s failed: %v", dir, err)
			continue
		}
		stats.Files += len(files)
		stats.Done = append(stats.Done, dir)
		log.Successf("%s done in %s", dir, formatDuration(time.Since(groupStart)))
	}
	stats.Elapsed = time.Since(start)
	return stats, nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(100 * time.Millisecond).String()
}

// Summary renders a one-line description of stats for the final log line.
func Summary(stats Stats, simulate bool) string {
	var b strings.Builder
	if simulate {
		b.WriteString("[DRY RUN] Would copy ")
	} else {
		b.WriteString("Copied ")
	}
	fmt.Fprintf(&b, "%d files into %d folders in %s", stats.Files, stats.Groups-stats.Failed, formatDuration(stats.Elapsed))
	if stats.Failed > 0 {
		fmt.Fprintf(&b, " (%d folders failed)", stats.Failed)
	}
	return b.String()
}
