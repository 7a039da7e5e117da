package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func datep(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return &d
}

func TestNewFilter_InvalidRange(t *testing.T) {
	_, err := NewFilter(Bounds{MinSeq: intp(200), MaxSeq: intp(100)})
	require.ErrorIs(t, err, ErrInvalidFilterRange)
	assert.Contains(t, err.Error(), "200")

	_, err = NewFilter(Bounds{StartDate: datep(t, "2022-03-01"), EndDate: datep(t, "2022-02-28")})
	require.ErrorIs(t, err, ErrInvalidFilterRange)

	// Equal bounds and one-sided bounds are fine.
	_, err = NewFilter(Bounds{MinSeq: intp(100), MaxSeq: intp(100)})
	assert.NoError(t, err)
	_, err = NewFilter(Bounds{MinSeq: intp(500)})
	assert.NoError(t, err)
	_, err = NewFilter(Bounds{StartDate: datep(t, "2022-03-01"), EndDate: datep(t, "2022-03-01")})
	assert.NoError(t, err)
}

func TestFilter_MatchSequence(t *testing.T) {
	f, err := NewFilter(Bounds{MinSeq: intp(100), MaxSeq: intp(150)})
	require.NoError(t, err)

	tests := []struct {
		n    int
		want bool
	}{
		{99, false},
		{100, true},
		{125, true},
		{150, true},
		{151, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.MatchSequence(tt.n), "n=%d", tt.n)
	}

	lowerOnly, err := NewFilter(Bounds{MinSeq: intp(10)})
	require.NoError(t, err)
	assert.False(t, lowerOnly.MatchSequence(9))
	assert.True(t, lowerOnly.MatchSequence(1<<30))

	var zero Filter
	assert.True(t, zero.MatchSequence(-5))
	assert.True(t, zero.MatchSequence(0))
}

func TestFilter_MatchTime(t *testing.T) {
	f, err := NewFilter(Bounds{StartDate: datep(t, "2022-01-05"), EndDate: datep(t, "2022-01-07")})
	require.NoError(t, err)

	tests := []struct {
		ts   time.Time
		want bool
	}{
		{time.Date(2022, 1, 4, 23, 59, 59, 0, time.Local), false},
		{time.Date(2022, 1, 5, 0, 0, 0, 0, time.Local), true},
		{time.Date(2022, 1, 7, 23, 59, 59, 0, time.Local), true},
		{time.Date(2022, 1, 8, 0, 0, 0, 0, time.Local), false},
		{time.Date(2021, 12, 31, 12, 0, 0, 0, time.Local), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.MatchTime(tt.ts), "ts=%s", tt.ts)
	}

	var zero Filter
	assert.True(t, zero.MatchTime(time.Time{}))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2023-07-04 ")
	require.NoError(t, err)
	assert.Equal(t, 2023, d.Year())
	assert.Equal(t, time.July, d.Month())
	assert.Equal(t, 4, d.Day())

	for _, bad := range []string{"", "2023/07/04", "04-07-2023", "2023-07-04T10:00:00"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestFilter_String(t *testing.T) {
	var zero Filter
	assert.Equal(t, "none", zero.String())

	f, err := NewFilter(Bounds{MinSeq: intp(100), StartDate: datep(t, "2022-01-05")})
	require.NoError(t, err)
	assert.Equal(t, "seq [100, *], date [2022-01-05, *]", f.String())
	assert.True(t, f.HasSequenceBounds())
	assert.True(t, f.HasDateBounds())
}
