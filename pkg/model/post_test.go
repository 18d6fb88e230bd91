package model

import (
	"testing"
)

func TestPostClassification(t *testing.T) {
	cases := []struct {
		name    string
		oncall  bool
		ed      bool
		ward    bool
		standby bool
	}{
		{"ED1", true, true, false, false},
		{"ED Cover A1", true, true, false, false},
		{"Ward3", true, false, true, false},
		{"Standby Oncall", true, false, false, true},
		{"clinic", false, false, false, false},
		{"Eye Clinic", false, false, false, false},
	}

	for _, c := range cases {
		if got := IsOncallName(c.name); got != c.oncall {
			t.Errorf("IsOncallName(%s) = %v, want %v", c.name, got, c.oncall)
		}
		if got := IsEDPost(c.name); got != c.ed {
			t.Errorf("IsEDPost(%s) = %v, want %v", c.name, got, c.ed)
		}
		if got := IsWardPost(c.name); got != c.ward {
			t.Errorf("IsWardPost(%s) = %v, want %v", c.name, got, c.ward)
		}
		if got := IsStandbyPost(c.name); got != c.standby {
			t.Errorf("IsStandbyPost(%s) = %v, want %v", c.name, got, c.standby)
		}
	}
}

func TestNameSuggestsED(t *testing.T) {
	// 历史统计的ED分类为不区分大小写的包含匹配
	if !NameSuggestsED("ed3") {
		t.Error("ed3 should be classified as ED")
	}
	if !NameSuggestsED("ED Cover A2") {
		t.Error("ED Cover A2 should be classified as ED")
	}
	if NameSuggestsED("Ward4") {
		t.Error("Ward4 should not be classified as ED")
	}
}

func TestPost_AppliesOn(t *testing.T) {
	weekday := &Post{Name: "ED1", Applicability: PostWeekday}
	weekend := &Post{Name: "Standby Oncall", Applicability: PostWeekend}
	both := &Post{Name: "ED2", Applicability: PostBoth}

	// 2025-08-08 周五, 2025-08-09 周六
	if !weekday.AppliesOn("2025-08-08") || weekday.AppliesOn("2025-08-09") {
		t.Error("Weekday post applicability incorrect")
	}
	if weekend.AppliesOn("2025-08-08") || !weekend.AppliesOn("2025-08-09") {
		t.Error("Weekend post applicability incorrect")
	}
	if !both.AppliesOn("2025-08-08") || !both.AppliesOn("2025-08-09") {
		t.Error("Both post applicability incorrect")
	}
}

func TestDoctor_StandbyEligible(t *testing.T) {
	d := &Doctor{Workload: &WorkloadCounters{StandbyLong: 0}}
	if !d.StandbyEligible() {
		t.Error("Doctor with zero long-window standby should be eligible")
	}

	d.Workload.StandbyLong = 1
	if d.StandbyEligible() {
		t.Error("Doctor with long-window standby should be excluded")
	}
}
