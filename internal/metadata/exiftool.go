package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// exiftoolBatchSize bounds the number of paths per exiftool invocation so a
// full card never overflows the argument list.
const exiftoolBatchSize = 256

// exiftoolTags are the tags requested from exiftool, the same set
// GoexifReader decodes.
var exiftoolTags = []string{TagDateTimeOriginal, TagDateTimeDigitized, TagMake, TagModel}

// ExifTool reads tags by running the external exiftool binary with -json,
// one invocation per batch of paths.
type ExifTool struct {
	// Path is the exiftool binary; empty means "exiftool" from PATH.
	Path string
}

// ReadTags runs exiftool over paths. exiftool exits non-zero when some files
// could not be read but still prints JSON for the rest; that output is used.
func (e *ExifTool) ReadTags(ctx context.Context, paths []string) (map[string]Tags, error) {
	result := make(map[string]Tags, len(paths))
	for start := 0; start < len(paths); start += exiftoolBatchSize {
		end := min(start+exiftoolBatchSize, len(paths))
		batch, err := e.run(ctx, paths[start:end])
		if err != nil {
			return nil, err
		}
		for path, tags := range batch {
			result[path] = tags
		}
	}
	return result, nil
}

func (e *ExifTool) run(ctx context.Context, paths []string) (map[string]Tags, error) {
	bin := e.Path
	if bin == "" {
		bin = "exiftool"
	}
	cmd := exec.CommandContext(ctx, bin, e.args(paths)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || len(bytes.TrimSpace(out)) == 0 {
			return nil, fmt.Errorf("%w: exiftool: %v: %s", ErrReaderFailed, err, strings.TrimSpace(stderr.String()))
		}
	}

	tags, err := ParseExifToolJSON(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReaderFailed, err)
	}
	return tags, nil
}

func (e *ExifTool) args(paths []string) []string {
	args := make([]string, 0, 3+len(exiftoolTags)+len(paths))
	args = append(args, "-json", "-charset", "filename=utf8")
	for _, t := range exiftoolTags {
		args = append(args, "-"+t)
	}
	return append(args, paths...)
}

// ParseExifToolJSON converts `exiftool -json` output into tag maps keyed by
// SourceFile. Non-string values are rendered with their JSON text.
// Exported for testing without a real exiftool binary.
func ParseExifToolJSON(data []byte) (map[string]Tags, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return map[string]Tags{}, nil
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse exiftool JSON: %w", err)
	}

	result := make(map[string]Tags, len(raw))
	for _, obj := range raw {
		var source string
		if err := json.Unmarshal(obj["SourceFile"], &source); err != nil || source == "" {
			continue
		}
		tags := make(Tags, len(obj))
		for name, val := range obj {
			if name == "SourceFile" {
				continue
			}
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				s = string(val)
			}
			if s = cleanValue(s); s != "" {
				tags[name] = s
			}
		}
		result[source] = tags
	}
	return result, nil
}
