package service

import (
	"testing"
	"time"
)

func TestParseMinuteOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 9 * 60, false},
		{"09:30:00", 9*60 + 30, false},
		{"00:00", 0, false},
		{"24:00", 24 * 60, false},
		{"23:59", 23*60 + 59, false},
		{"24:01", 0, true},
		{"25:00", 0, true},
		{"09:60", 0, true},
		{"9", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMinuteOfDay(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSpanDays(t *testing.T) {
	a := CivilDate{2025, time.April, 1}
	if got := spanDays(a, a); got != 1 {
		t.Errorf("same day span = %d, want 1", got)
	}
	b := CivilDate{2025, time.April, 30}
	if got := spanDays(a, b); got != 30 {
		t.Errorf("april span = %d, want 30", got)
	}
}

func TestCivilDateNextAcrossMonthAndYear(t *testing.T) {
	tests := []struct {
		in, want CivilDate
	}{
		{CivilDate{2025, time.April, 30}, CivilDate{2025, time.May, 1}},
		{CivilDate{2025, time.December, 31}, CivilDate{2026, time.January, 1}},
		{CivilDate{2024, time.February, 28}, CivilDate{2024, time.February, 29}},
		{CivilDate{2025, time.February, 28}, CivilDate{2025, time.March, 1}},
	}
	for _, tt := range tests {
		if got := tt.in.Next(); got != tt.want {
			t.Errorf("%v.Next() = %v, want %v", tt.in, got, tt.want)
		}
	}
}
