package model

import (
	"reflect"
	"testing"
)

func TestRecencyDays(t *testing.T) {
	tests := []struct {
		mode ResearchMode
		days int
	}{
		{ModeOpenBook, 7},
		{ModeHybrid, 45},
		{ModeClosedBook, 3650},
		{ResearchMode("unknown"), 3650},
	}
	for _, tt := range tests {
		if got := tt.mode.RecencyDays(); got != tt.days {
			t.Errorf("%s: expected %d, got %d", tt.mode, tt.days, got)
		}
	}
}

func TestPlanNormalize(t *testing.T) {
	p := Plan{Tasks: []Task{{ID: 9, Title: "a"}, {ID: 1, Title: "b"}, {ID: 4, Title: "c"}}}
	p.Normalize()
	for i, task := range p.Tasks {
		if task.ID != i {
			t.Fatalf("expected contiguous ids, got %+v", p.Tasks)
		}
	}
	// Order preserved.
	if p.Tasks[0].Title != "a" || p.Tasks[2].Title != "c" {
		t.Fatalf("order changed: %+v", p.Tasks)
	}
}

func TestPlanTargetWords(t *testing.T) {
	p := Plan{Tasks: []Task{{TargetWords: 100}, {TargetWords: 250}}}
	if got := p.TargetWords(); got != 350 {
		t.Fatalf("expected 350, got %d", got)
	}
}

func TestDedupeEvidence(t *testing.T) {
	items := []EvidenceItem{
		{URL: "https://a", Snippet: "old"},
		{URL: "https://b", Snippet: "keep"},
		{URL: "", Snippet: "dropped"},
		{URL: "https://a", Snippet: "new"},
	}
	got := DedupeEvidence(items)

	want := []EvidenceItem{
		{URL: "https://a", Snippet: "new"},
		{URL: "https://b", Snippet: "keep"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	if JobStatusPending.Terminal() || JobStatusProcessing.Terminal() {
		t.Fatal("pending/processing must not be terminal")
	}
	if !JobStatusCompleted.Terminal() || !JobStatusFailed.Terminal() {
		t.Fatal("completed/failed must be terminal")
	}
}
