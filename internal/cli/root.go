// Package cli wires the photocopy command: flags and config file in, one
// scan of the card, one transfer per destination directory, and an optional
// manifest update.
package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"photocopy/internal/config"
	"photocopy/internal/logging"
	"photocopy/internal/metadata"
	"photocopy/internal/selection"
	"photocopy/internal/transfer"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

// NewRootCommand creates the photocopy command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photocopy [start [end]]",
		Short: "Copy camera files from a memory card into a date-based folder tree",
		Long: `Photocopy copies image files from a camera memory card into
<dest>/<EXT>/<YYYY>/<MM>/<DD>, using each file's capture time.

Files are selected by their camera sequence number (IMG_0123.JPG is 123) and
by capture date. start and end are inclusive sequence bounds; omit either to
leave that side open. Sources on the card are never modified.

Settings are read from ~/.photocopy.yaml when present; flags override them.

Examples:
  photocopy 100 250                     # IMG_0100 through IMG_0250
  photocopy 100                         # IMG_0100 onwards
  photocopy --start-date 2022-01-05     # Everything shot on or after Jan 5
  photocopy -n 100 250                  # Show what would be copied
  photocopy --timestamp mtime --copier builtin`,
		Args:          cobra.MaximumNArgs(2),
		RunE:          runCommand,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.Flags()
	f.String("config", "", "Path to config file (default: ~/.photocopy.yaml)")
	f.String("source", "", "Source directory on the card")
	f.String("dest", "", "Destination root")
	f.String("prefix", "", "Filename prefix before the sequence number (default IMG_)")
	f.String("timestamp", "", "Capture time source: exif or mtime")
	f.String("exif-reader", "", "EXIF tag reader: goexif or exiftool")
	f.String("exiftool", "", "Path to the exiftool binary")
	f.String("copier", "", "Copy backend: rsync or builtin")
	f.String("rsync", "", "Path to the rsync binary")
	f.Int("jobs", 0, "Concurrent copies per folder for the builtin copier")
	f.String("manifest", "", "CSV file recording every copied file")
	f.String("log-file", "", "Append log lines to this file")
	f.String("log-level", "", "Log level: debug, info, warn or error")
	f.String("color", "", "Color output: auto, always or never")
	f.String("start-date", "", "Earliest capture date to copy (YYYY-MM-DD, inclusive)")
	f.String("end-date", "", "Latest capture date to copy (YYYY-MM-DD, inclusive)")
	f.BoolP("dry-run", "n", false, "Show what would be copied without copying")
	f.BoolP("verbose", "v", false, "Debug logging and verbose copier output")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Bad ranges fail before the card is touched.
	filter, err := buildFilter(cmd, args)
	if err != nil {
		return err
	}

	log, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()
	log.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())

	return run(cmd, cfg, filter, log)
}

// loadConfig reads the config file and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("source", &cfg.Source)
	str("dest", &cfg.Dest)
	str("prefix", &cfg.Prefix)
	str("exiftool", &cfg.ExiftoolPath)
	str("rsync", &cfg.RsyncPath)
	str("manifest", &cfg.Manifest)
	str("log-file", &cfg.LogFile)
	str("log-level", &cfg.LogLevel)

	if flags.Changed("timestamp") {
		v, _ := flags.GetString("timestamp")
		cfg.Timestamp = config.TimestampSource(v)
	}
	if flags.Changed("exif-reader") {
		v, _ := flags.GetString("exif-reader")
		cfg.ExifReader = config.ExifReader(v)
	}
	if flags.Changed("copier") {
		v, _ := flags.GetString("copier")
		cfg.Copier = config.Copier(v)
	}
	if flags.Changed("color") {
		v, _ := flags.GetString("color")
		cfg.Color = config.ColorMode(v)
	}
	if flags.Changed("jobs") {
		cfg.Jobs, _ = flags.GetInt("jobs")
	}
	cfg.DryRun, _ = flags.GetBool("dry-run")
	cfg.Verbose, _ = flags.GetBool("verbose")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildFilter turns the positional sequence bounds and date flags into a
// selection.Filter.
func buildFilter(cmd *cobra.Command, args []string) (selection.Filter, error) {
	var b selection.Bounds
	names := []string{"start", "end"}
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return selection.Filter{}, fmt.Errorf("invalid %s sequence number %q", names[i], arg)
		}
		if i == 0 {
			b.MinSeq = &n
		} else {
			b.MaxSeq = &n
		}
	}

	if v, _ := cmd.Flags().GetString("start-date"); v != "" {
		d, err := selection.ParseDate(v)
		if err != nil {
			return selection.Filter{}, fmt.Errorf("invalid --start-date: %w", err)
		}
		b.StartDate = &d
	}
	if v, _ := cmd.Flags().GetString("end-date"); v != "" {
		d, err := selection.ParseDate(v)
		if err != nil {
			return selection.Filter{}, fmt.Errorf("invalid --end-date: %w", err)
		}
		b.EndDate = &d
	}
	return selection.NewFilter(b)
}

// newResolver builds the resolver for cfg's timestamp source.
func newResolver(cfg *config.Config) (*metadata.Resolver, error) {
	conv := metadata.NewConvention(cfg.Prefix)
	if cfg.Timestamp == config.TimestampMtime {
		return metadata.NewResolver(metadata.FilesystemTime, conv, nil)
	}
	var tags metadata.TagReader = metadata.GoexifReader{}
	if cfg.ExifReader == config.ReaderExiftool {
		tags = &metadata.ExifTool{Path: cfg.ExiftoolPath}
	}
	return metadata.NewResolver(metadata.EmbeddedMetadata, conv, tags)
}

// newTransferer builds the copy backend for cfg.
func newTransferer(cmd *cobra.Command, cfg *config.Config, log *logging.Logger) transfer.Transferer {
	if cfg.Copier == config.CopierBuiltin {
		return &transfer.Builtin{Jobs: cfg.Jobs, Simulate: cfg.DryRun, Log: log}
	}
	return &transfer.Rsync{
		Path:     cfg.RsyncPath,
		Simulate: cfg.DryRun,
		Verbose:  cfg.Verbose,
		Stdout:   cmd.OutOrStdout(),
	}
}

func run(cmd *cobra.Command, cfg *config.Config, filter selection.Filter, log *logging.Logger) error {
	ctx := cmd.Context()

	log.Infof("Source:      %s", cfg.Source)
	log.Infof("Destination: %s", cfg.Dest)
	log.Infof("Filter:      %s", filter)
	if cfg.DryRun {
		log.Warnf("[DRY RUN] nothing will be copied")
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	log.Debugf("Timestamp source: %s, copier: %s", resolver.Strategy(), cfg.Copier)

	engine := selection.NewEngine(resolver, selection.WithLogger(log))
	matches, err := engine.Scan(ctx, selection.Options{
		Source: cfg.Source,
		Dest:   cfg.Dest,
		Filter: filter,
	})
	if err != nil {
		return err
	}
	grouping := selection.Group(matches)
	if grouping.Count() == 0 {
		log.Infof("No files matched")
		return nil
	}
	log.Infof("Found %d files for %d folders", grouping.Count(), len(grouping))

	stats, err := transfer.Run(ctx, grouping, cfg.Source, newTransferer(cmd, cfg, log), log)
	if err != nil {
		return err
	}

	if cfg.Manifest != "" && !cfg.DryRun {
		m := transfer.NewManifest(cfg.Manifest, cfg.Dest)
		added, err := m.Record(matches, stats.Done)
		if err != nil {
			log.Errorf("Manifest update failed: %v", err)
		} else {
			log.Infof("Added %d entries to manifest %s", added, cfg.Manifest)
		}
	}

	log.Successf("%s", transfer.Summary(stats, cfg.DryRun))
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d folders failed to copy", stats.Failed, stats.Groups)
	}
	return nil
}
