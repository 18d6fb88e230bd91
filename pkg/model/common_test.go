package model

import (
	"testing"
)

func TestWeekdayIndex(t *testing.T) {
	// 2025-08-04 是周一
	if got := WeekdayIndex("2025-08-04"); got != 0 {
		t.Errorf("Expected 0 (Monday), got %d", got)
	}
	// 2025-08-09 是周六
	if got := WeekdayIndex("2025-08-09"); got != 5 {
		t.Errorf("Expected 5 (Saturday), got %d", got)
	}
	// 2025-08-10 是周日
	if got := WeekdayIndex("2025-08-10"); got != 6 {
		t.Errorf("Expected 6 (Sunday), got %d", got)
	}
	if got := WeekdayIndex("bad-date"); got != -1 {
		t.Errorf("Expected -1 for invalid date, got %d", got)
	}
}

func TestIsWeekendDate(t *testing.T) {
	cases := []struct {
		date    string
		weekend bool
	}{
		{"2025-08-08", false}, // 周五
		{"2025-08-09", true},  // 周六
		{"2025-08-10", true},  // 周日
		{"2025-08-11", false}, // 周一
	}
	for _, c := range cases {
		if got := IsWeekendDate(c.date); got != c.weekend {
			t.Errorf("IsWeekendDate(%s) = %v, want %v", c.date, got, c.weekend)
		}
	}
}

func TestDateRange_Dates(t *testing.T) {
	r := DateRange{StartDate: "2025-08-04", EndDate: "2025-08-10"}
	dates := r.Dates()

	if len(dates) != 7 {
		t.Fatalf("Expected 7 dates, got %d", len(dates))
	}
	if dates[0] != "2025-08-04" || dates[6] != "2025-08-10" {
		t.Errorf("Unexpected boundary dates: %s, %s", dates[0], dates[6])
	}
}

func TestDateRange_Validate(t *testing.T) {
	bad := DateRange{StartDate: "2025-08-10", EndDate: "2025-08-04"}
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for reversed range")
	}

	ok := DateRange{StartDate: "2025-08-04", EndDate: "2025-08-31"}
	if err := ok.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween("2025-08-04", "2025-08-10"); got != 6 {
		t.Errorf("Expected 6, got %d", got)
	}
	if got := DaysBetween("2025-08-10", "2025-08-04"); got != -6 {
		t.Errorf("Expected -6, got %d", got)
	}
}
