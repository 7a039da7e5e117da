package metadata

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPrefix is the camera's filename prefix, as in IMG_0123.JPG.
const DefaultPrefix = "IMG_"

// ErrNoMatch is returned when a filename does not follow the naming
// convention. It is the normal exclusion path for sidecars, thumbnails and
// other strays, not a failure.
var ErrNoMatch = errors.New("filename does not match naming convention")

// Convention matches camera-generated names: <prefix><digits>.<ext>.
type Convention struct {
	re *regexp.Regexp
}

// NewConvention compiles the convention for prefix. An empty prefix
// selects DefaultPrefix.
func NewConvention(prefix string) Convention {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Convention{
		re: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d+)\.(\w+)$`),
	}
}

// Parse extracts the sequence number (leading zeros dropped) and the
// extension (case preserved, no dot) from name. Hidden files never match.
func (c Convention) Parse(name string) (seq int, ext string, err error) {
	if strings.HasPrefix(name, ".") {
		return 0, "", ErrNoMatch
	}
	m := c.re.FindStringSubmatch(name)
	if m == nil {
		return 0, "", ErrNoMatch
	}
	seq, err = strconv.Atoi(m[1])
	if err != nil {
		// Only reachable for digit runs that overflow int.
		return 0, "", fmt.Errorf("%w: sequence %q: %v", ErrNoMatch, m[1], err)
	}
	return seq, m[2], nil
}
