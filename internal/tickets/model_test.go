package tickets

import (
	"errors"
	"testing"
)

func TestParseModule(t *testing.T) {
	cases := []struct {
		in   string
		want Module
		err  bool
	}{
		{in: "", want: ""},
		{in: "VPN & Network", want: ModuleVPN},
		{in: "  data & reporting ", want: ModuleData},
		{in: "Networking", err: true},
	}
	for _, tc := range cases {
		got, err := ParseModule(tc.in)
		if tc.err {
			if !errors.Is(err, ErrInvalidLabel) {
				t.Fatalf("ParseModule(%q) expected ErrInvalidLabel, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseModule(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	if p, err := ParsePriority("high"); err != nil || p != PriorityHigh {
		t.Fatalf("expected High, got %q %v", p, err)
	}
	if p, err := ParsePriority(""); err != nil || p != "" {
		t.Fatalf("expected unset priority, got %q %v", p, err)
	}
	if _, err := ParsePriority("Urgent"); !errors.Is(err, ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel, got %v", err)
	}
}

func TestAnalysisResultCloneIsDeep(t *testing.T) {
	score := 0.5
	orig := AnalysisResult{
		PredictedModule: ModuleVPN,
		SimilarIssues:   []SolvedTicket{{TicketNo: "TKT-1", Similarity: &score}},
	}
	cp := orig.Clone()
	*cp.SimilarIssues[0].Similarity = 0.9
	cp.SimilarIssues[0].TicketNo = "changed"

	if *orig.SimilarIssues[0].Similarity != 0.5 || orig.SimilarIssues[0].TicketNo != "TKT-1" {
		t.Fatalf("clone shares memory with original: %+v", orig.SimilarIssues[0])
	}
}
