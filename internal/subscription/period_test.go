package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMonth(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"mid month", date(2025, time.March, 15), date(2025, time.April, 15)},
		{"jan 31 non leap", date(2025, time.January, 31), date(2025, time.February, 28)},
		{"jan 31 leap", date(2024, time.January, 31), date(2024, time.February, 29)},
		{"jan 30 leap", date(2024, time.January, 30), date(2024, time.February, 29)},
		{"mar 31", date(2025, time.March, 31), date(2025, time.April, 30)},
		{"dec 31 rolls year", date(2025, time.December, 31), date(2026, time.January, 31)},
		{"feb 28 non leap", date(2025, time.February, 28), date(2025, time.March, 28)},
		{"aug 31", date(2025, time.August, 31), date(2025, time.September, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(AddMonth(tt.in)), "got %s", AddMonth(tt.in))
		})
	}
}

func TestAddMonth_KeepsClockAndZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2025, time.January, 31, 23, 45, 10, 500, ist)

	got := AddMonth(in)

	assert.Equal(t, time.Date(2025, time.February, 28, 23, 45, 10, 500, ist), got)
	assert.True(t, got.After(in))
}

func TestAddMonth_AlwaysAfterStart(t *testing.T) {
	start := date(2024, time.January, 1)
	for i := 0; i < 800; i++ {
		d := start.AddDate(0, 0, i)
		end := AddMonth(d)
		if !end.After(d) {
			t.Fatalf("AddMonth(%s) = %s", d, end)
		}
		if end.Sub(d) > 31*24*time.Hour || end.Sub(d) < 28*24*time.Hour {
			t.Fatalf("AddMonth(%s) = %s outside one month", d, end)
		}
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}
