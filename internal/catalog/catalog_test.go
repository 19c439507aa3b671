package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	csv := strings.Join([]string{
		"archivo,lec_p,magnitud",
		"00123,1681122030.5,4.2",
		"456,not-a-number,3.1",
		"789,,2.8",
		"oops,1681122030.5,1.0",
	}, "\n")

	res, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, res.Entries, 3)
	assert.Equal(t, 2, res.Missing)
	assert.Equal(t, 1, res.Skipped)

	first := res.Entries[0]
	assert.Equal(t, int64(123), first.EventID)
	require.NotNil(t, first.PArrival)
	assert.Equal(t, time.Unix(1681122030, 500000000).UTC(), *first.PArrival)

	assert.Equal(t, int64(456), res.Entries[1].EventID)
	assert.Nil(t, res.Entries[1].PArrival)
	assert.Nil(t, res.Entries[2].PArrival)
}

func TestParseMissingColumns(t *testing.T) {
	_, err := Parse(strings.NewReader("id,time\n1,2\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseEventID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"123", 123, false},
		{"00123", 123, false},
		{" 42 ", 42, false},
		{"000", 0, false},
		{"", 0, true},
		{"12a", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEventID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadEventID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventIDFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"00123.mseed", 123},
		{"00123_aug2.mseed", 123},
		{"data/events/456_aug.mseed", 456},
		{"789", 789},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := EventIDFromFilename(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := EventIDFromFilename("station_aug.mseed")
	assert.ErrorIs(t, err, ErrBadEventID)
}

func TestValidate(t *testing.T) {
	start := time.Date(2023, 4, 10, 10, 20, 30, 0, time.UTC)
	const dur = 80.0

	t.Run("pick inside window", func(t *testing.T) {
		at := start.Add(30 * time.Second)
		v := Validate(start, dur, &at)
		assert.True(t, v.IsValid)
		assert.True(t, v.HasPick)
		require.NotNil(t, v.RelativeSec)
		assert.InDelta(t, 30.0, *v.RelativeSec, 1e-9)
		assert.Empty(t, v.Note)
	})

	t.Run("pick before window", func(t *testing.T) {
		at := start.Add(-5 * time.Second)
		v := Validate(start, dur, &at)
		assert.False(t, v.IsValid)
		assert.True(t, v.HasPick)
		assert.Contains(t, v.Note, "outside signal duration")
	})

	t.Run("pick after window", func(t *testing.T) {
		at := start.Add(90 * time.Second)
		v := Validate(start, dur, &at)
		assert.False(t, v.IsValid)
	})

	t.Run("pick exactly at end", func(t *testing.T) {
		at := start.Add(80 * time.Second)
		v := Validate(start, dur, &at)
		assert.True(t, v.IsValid)
	})

	t.Run("missing pick is valid with note", func(t *testing.T) {
		v := Validate(start, dur, nil)
		assert.True(t, v.IsValid)
		assert.False(t, v.HasPick)
		assert.Nil(t, v.RelativeSec)
		assert.Contains(t, v.Note, "No P arrival")
	})
}
