package admin

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"triage-backend/internal/tickets"
)

const sampleCSV = `ticket_no,date,problem_description,category,priority,solution_text,hours
TKT-1,2026-01-04,VPN drops hourly,VPN & Network,High,Reinstalled client,2
TKT-2,2026-01-05,Cannot print,,Low,,1.5
TKT-3,,Outlook asks for password,Email & Collaboration,Medium,Reset MFA token,3
`

func TestProfileReportsColumns(t *testing.T) {
	rows, cols, kb, err := profile(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected 3 rows, got %d", rows)
	}
	want := []ColumnReport{
		{Name: "ticket_no", Type: "string"},
		{Name: "date", Type: "datetime", Missing: 1},
		{Name: "problem_description", Type: "string"},
		{Name: "category", Type: "string", Missing: 1},
		{Name: "priority", Type: "string"},
		{Name: "solution_text", Type: "string", Missing: 1},
		{Name: "hours", Type: "float"},
	}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Fatalf("column report mismatch (-want +got):\n%s", diff)
	}

	if len(kb) != 2 {
		t.Fatalf("expected 2 importable rows, got %d", len(kb))
	}
	if kb[0].TicketNo != "TKT-1" || kb[0].Module != tickets.ModuleVPN {
		t.Fatalf("unexpected first row: %+v", kb[0])
	}
	if kb[1].TicketNo != "TKT-3" || kb[1].Module != tickets.ModuleEmail {
		t.Fatalf("unexpected second row: %+v", kb[1])
	}
}

func TestProfileWithoutKnowledgeBaseColumns(t *testing.T) {
	rows, cols, kb, err := profile(strings.NewReader("a,b\n1,true\n2,\n"))
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if rows != 2 || len(kb) != 0 {
		t.Fatalf("rows=%d kb=%d", rows, len(kb))
	}
	if cols[0].Type != "integer" || cols[1].Type != "boolean" || cols[1].Missing != 1 {
		t.Fatalf("unexpected columns: %+v", cols)
	}
}

func TestProfileShortRowsCountAsMissing(t *testing.T) {
	_, cols, _, err := profile(strings.NewReader("a,b,c\n1\n"))
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if cols[1].Missing != 1 || cols[2].Type != "empty" {
		t.Fatalf("unexpected columns: %+v", cols)
	}
}

func TestProfileRejectsEmptyFile(t *testing.T) {
	if _, _, _, err := profile(strings.NewReader("")); !errors.Is(err, ErrInvalidDataset) {
		t.Fatalf("expected ErrInvalidDataset, got %v", err)
	}
}

func TestWiden(t *testing.T) {
	cases := []struct{ a, b, want string }{
		{"", typeInteger, typeInteger},
		{typeInteger, typeFloat, typeFloat},
		{typeFloat, typeInteger, typeFloat},
		{typeInteger, typeDatetime, typeString},
		{typeBoolean, typeBoolean, typeBoolean},
	}
	for _, tc := range cases {
		if got := widen(tc.a, tc.b); got != tc.want {
			t.Fatalf("widen(%q,%q) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}
