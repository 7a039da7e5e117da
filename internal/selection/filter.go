package selection

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFilterRange is returned by NewFilter when a lower bound exceeds
// the upper bound of the same dimension.
var ErrInvalidFilterRange = errors.New("invalid filter range")

// DateLayout is the accepted format for date bounds.
const DateLayout = "2006-01-02"

// Bounds is the raw caller input for a Filter. Nil means unbounded. Only the
// calendar date of StartDate/EndDate is used.
type Bounds struct {
	MinSeq    *int
	MaxSeq    *int
	StartDate *time.Time
	EndDate   *time.Time
}

// Filter holds inclusive sequence and capture-date bounds. The zero Filter
// accepts everything. Build one with NewFilter; it is not modified after.
type Filter struct {
	minSeq, maxSeq   int
	hasMin, hasMax   bool
	start, end       int // yyyymmdd
	hasStart, hasEnd bool
}

// NewFilter validates b and returns the corresponding Filter.
func NewFilter(b Bounds) (Filter, error) {
	var f Filter
	if b.MinSeq != nil {
		f.minSeq, f.hasMin = *b.MinSeq, true
	}
	if b.MaxSeq != nil {
		f.maxSeq, f.hasMax = *b.MaxSeq, true
	}
	if b.StartDate != nil {
		f.start, f.hasStart = dateKey(*b.StartDate), true
	}
	if b.EndDate != nil {
		f.end, f.hasEnd = dateKey(*b.EndDate), true
	}

	if f.hasMin && f.hasMax && f.minSeq > f.maxSeq {
		return Filter{}, fmt.Errorf("%w: sequence lower bound %d exceeds upper bound %d",
			ErrInvalidFilterRange, f.minSeq, f.maxSeq)
	}
	if f.hasStart && f.hasEnd && f.start > f.end {
		return Filter{}, fmt.Errorf("%w: start date %s is after end date %s",
			ErrInvalidFilterRange, b.StartDate.Format(DateLayout), b.EndDate.Format(DateLayout))
	}
	return f, nil
}

// ParseDate parses a YYYY-MM-DD date bound in the local zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func dateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// MatchSequence reports whether n lies within the sequence bounds. The lower
// bound is checked first.
func (f Filter) MatchSequence(n int) bool {
	if f.hasMin && n < f.minSeq {
		return false
	}
	if f.hasMax && n > f.maxSeq {
		return false
	}
	return true
}

// MatchTime reports whether the calendar date of ts lies within the date
// bounds. The lower bound is checked first.
func (f Filter) MatchTime(ts time.Time) bool {
	k := dateKey(ts)
	if f.hasStart && k < f.start {
		return false
	}
	if f.hasEnd && k > f.end {
		return false
	}
	return true
}

// HasSequenceBounds reports whether any sequence bound is set.
func (f Filter) HasSequenceBounds() bool {
	return f.hasMin || f.hasMax
}

// HasDateBounds reports whether any date bound is set.
func (f Filter) HasDateBounds() bool {
	return f.hasStart || f.hasEnd
}

// String renders the active bounds, e.g. "seq [100, 150], date [2022-01-01, *]".
func (f Filter) String() string {
	var parts []string
	if f.HasSequenceBounds() {
		parts = append(parts, fmt.Sprintf("seq [%s, %s]", bound(f.hasMin, f.minSeq), bound(f.hasMax, f.maxSeq)))
	}
	if f.HasDateBounds() {
		parts = append(parts, fmt.Sprintf("date [%s, %s]", dateBound(f.hasStart, f.start), dateBound(f.hasEnd, f.end)))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func bound(ok bool, v int) string {
	if !ok {
		return "*"
	}
	return fmt.Sprint(v)
}

func dateBound(ok bool, k int) string {
	if !ok {
		return "*"
	}
	return fmt.Sprintf("%04d-%02d-%02d", k/10000, k/100%100, k%100)
}
