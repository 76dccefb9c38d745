package audience

import (
	"encoding/json"
	"testing"
)

func TestValueText(t *testing.T) {
	s := "  Paris "
	var nilStr *string
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"blank", "   ", ""},
		{"trimmed", " CTO ", "CTO"},
		{"uint32 id", uint32(42), "42"},
		{"json number id", float64(1234567), "1234567"},
		{"string slice", []string{"Sales", " ", "Marketing"}, "Sales, Marketing"},
		{"empty slice", []string{}, ""},
		{"any slice", []any{"Eng", nil, "Ops"}, "Eng, Ops"},
		{"pointer", &s, "Paris"},
		{"nil pointer", nilStr, ""},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValueText(tt.in); got != tt.want {
				t.Fatalf("ValueText(%#v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSnapshotFromStoredPayload(t *testing.T) {
	var row ContactRow
	raw := `{"id": 7, "job_title": "VP Sales", "company_name": "Acme", "location_city": "Austin",
		"location_state": "TX", "location_country": "US", "seniority": "vp", "company_industry": "Software",
		"departments": ["sales", ""], "sub_departments": null}`
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if row.ID() != "7" {
		t.Fatalf("ID = %q", row.ID())
	}
	snap := SnapshotFromRow(row)
	if snap.JobTitle != "VP Sales" || snap.LocationState != "TX" || snap.CompanyIndustry != "Software" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Departments) != 1 || snap.Departments[0] != "sales" {
		t.Fatalf("unexpected departments %v", snap.Departments)
	}
	if snap.SubDepartments == nil || len(snap.SubDepartments) != 0 {
		t.Fatalf("sub departments should be empty, got %#v", snap.SubDepartments)
	}
}

func TestNormalizeJudgement(t *testing.T) {
	for in, want := range map[string]string{"approve": "approve", "UPVOTE": "approve", "reject": "reject", "downvote": "reject"} {
		got, ok := NormalizeJudgement(in)
		if !ok || got != want {
			t.Fatalf("NormalizeJudgement(%q) = %q,%v", in, got, ok)
		}
	}
	if _, ok := NormalizeJudgement("meh"); ok {
		t.Fatalf("expected rejection of unknown judgement")
	}
}
