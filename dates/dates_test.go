package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  DayMonth
	}{
		{"25/12", DayMonth{Day: 25, Month: time.December}},
		{"1/1", DayMonth{Day: 1, Month: time.January}},
		{" 09/03 ", DayMonth{Day: 9, Month: time.March}},
		{"29/02", DayMonth{Day: 29, Month: time.February}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{
		"32/01", "10/13", "abc", "", "00/05", "05/00",
		"31/02", "30/02", "31/04", "1/1/2000", "123/1", "12-25",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "05/03", DayMonth{Day: 5, Month: time.March}.String())
	assert.Equal(t, "25/12", DayMonth{Day: 25, Month: time.December}.String())
}

func TestDaysUntilNext(t *testing.T) {
	today := time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target DayMonth
		want   int
	}{
		{"today", DayMonth{Day: 10, Month: time.March}, 0},
		{"yesterday wraps to next year", DayMonth{Day: 9, Month: time.March}, 364},
		{"later this month", DayMonth{Day: 15, Month: time.March}, 5},
		{"new year", DayMonth{Day: 1, Month: time.January}, 297},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntilNext(today, tt.target))
		})
	}
}

func TestDaysUntilNext_LeapDay(t *testing.T) {
	leap := DayMonth{Day: 29, Month: time.February}

	// 2025 isn't a leap year, so the birthday is observed on 28/02.
	today := time.Date(2025, time.February, 27, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysUntilNext(today, leap))

	today = time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysUntilNext(today, leap))
}

func TestDaysUntilNext_FixedZone(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	// 01:00 UTC on the 11th is still the 10th in BRT.
	now := time.Date(2024, time.March, 11, 1, 0, 0, 0, time.UTC).In(brt)
	assert.Equal(t, 0, DaysUntilNext(now, DayMonth{Day: 10, Month: time.March}))
}

func TestOccursOn(t *testing.T) {
	leap := DayMonth{Day: 29, Month: time.February}

	assert.True(t, leap.OccursOn(time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC)))
	assert.False(t, leap.OccursOn(time.Date(2024, time.February, 28, 12, 0, 0, 0, time.UTC)))
	assert.True(t, leap.OccursOn(time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC)))

	d := DayMonth{Day: 10, Month: time.March}
	assert.True(t, d.OccursOn(time.Date(2030, time.March, 10, 23, 59, 0, 0, time.UTC)))
	assert.False(t, d.OccursOn(time.Date(2030, time.March, 11, 0, 0, 0, 0, time.UTC)))
}

func TestLess(t *testing.T) {
	jan := DayMonth{Day: 31, Month: time.January}
	feb := DayMonth{Day: 1, Month: time.February}

	assert.True(t, jan.Less(feb))
	assert.False(t, feb.Less(jan))
	assert.False(t, jan.Less(jan))
}
