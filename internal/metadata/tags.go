package metadata

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// EXIF tag names shared by every TagReader.
const (
	TagDateTimeOriginal  = "DateTimeOriginal"
	TagDateTimeDigitized = "DateTimeDigitized"
	TagDateTime          = "DateTime"
	TagMake              = "Make"
	TagModel             = "Model"
)

// CaptureTimeLayout is the EXIF date/time format, "YYYY:MM:DD HH:MM:SS".
const CaptureTimeLayout = "2006:01:02 15:04:05"

// ErrReaderFailed wraps failures of a TagReader as a whole, as opposed to
// a single file lacking a tag.
var ErrReaderFailed = errors.New("metadata reader failed")

// Tags maps a tag name to its string value for one file.
type Tags map[string]string

// TagReader reads embedded metadata for a batch of files. The result is
// keyed by the paths exactly as given; a path missing from the result has
// no readable tags. An error means the reader itself could not run.
type TagReader interface {
	ReadTags(ctx context.Context, paths []string) (map[string]Tags, error)
}

// TagReaderFunc adapts a plain function to TagReader.
type TagReaderFunc func(ctx context.Context, paths []string) (map[string]Tags, error)

// ReadTags calls f.
func (f TagReaderFunc) ReadTags(ctx context.Context, paths []string) (map[string]Tags, error) {
	return f(ctx, paths)
}

// goexifFields are the tags GoexifReader reports when present.
var goexifFields = map[string]exif.FieldName{
	TagDateTimeOriginal:  exif.DateTimeOriginal,
	TagDateTimeDigitized: exif.DateTimeDigitized,
	TagDateTime:          exif.DateTime,
	TagMake:              exif.Make,
	TagModel:             exif.Model,
}

// GoexifReader decodes EXIF in-process. Files without EXIF data (or that
// cannot be opened) are simply absent from the result.
type GoexifReader struct{}

// ReadTags decodes each file in turn.
func (GoexifReader) ReadTags(ctx context.Context, paths []string) (map[string]Tags, error) {
	result := make(map[string]Tags, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tags, err := decodeExif(path)
		if err != nil || len(tags) == 0 {
			continue
		}
		result[path] = tags
	}
	return result, nil
}

func decodeExif(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// A broken sub-IFD or maker note still leaves the main tags usable.
	x, err := exif.Decode(f)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return nil, err
	}

	tags := make(Tags, len(goexifFields))
	for name, field := range goexifFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			continue
		}
		if val = cleanValue(val); val != "" {
			tags[name] = val
		}
	}
	return tags, nil
}

// cleanValue strips the NUL padding and whitespace cameras leave in ASCII tags.
func cleanValue(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
