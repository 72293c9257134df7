package config

import (
	"errors"
	"testing"
	"time"

	"shiftledger/internal/common"
)

func TestNewShift(t *testing.T) {
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.Local)
	start := date.Add(8 * time.Hour)
	end := date.Add(32 * time.Hour)

	shift, err := NewShift(date, start, end, 7.10)
	if err != nil {
		t.Fatal(err)
	}
	if shift.Date.Day() != 15 {
		t.Fatalf("Date.Day() = %d", shift.Date.Day())
	}
	if !shift.ShiftEnd.After(shift.WorkStart) {
		t.Fatal("shift end not after work start")
	}

	cases := []struct {
		name  string
		date  time.Time
		start time.Time
		end   time.Time
		price float64
	}{
		{"zero date", time.Time{}, start, end, 7.10},
		{"zero start", date, time.Time{}, end, 7.10},
		{"zero end", date, start, time.Time{}, 7.10},
		{"zero price", date, start, end, 0},
		{"negative price", date, start, end, -1},
	}
	for _, tc := range cases {
		if _, err := NewShift(tc.date, tc.start, tc.end, tc.price); !errors.Is(err, common.ErrConfig) {
			t.Fatalf("%s: error = %v, want config error", tc.name, err)
		}
	}
}
