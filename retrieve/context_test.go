package retrieve

import (
	"strings"
	"testing"

	"github.com/craftedsignal/attackmap/chunk"
)

func candidateFixture() []Candidate {
	return []Candidate{
		{TechniqueID: "T1566", Name: "Phishing", Tactics: []string{"initial-access"}, Description: "Adversaries send phishing messages. Messages carry payloads.", Score: 0.82},
		{TechniqueID: "T1053.005", Name: "Scheduled Task", Tactics: []string{"execution", "persistence"}, Description: "Adversaries abuse the Windows Task Scheduler.", Score: 0.55},
	}
}

func TestContextBuilder_Build(t *testing.T) {
	b := NewContextBuilder()
	got := b.Build(candidateFixture())

	if got.Empty() {
		t.Fatal("Build() returned empty context for non-empty candidates")
	}
	text := got.Text()
	if !strings.Contains(text, "T1566: Phishing") {
		t.Errorf("context missing highest-scored entry:\n%s", text)
	}
	if !strings.Contains(text, "T1053.005: Scheduled Task") {
		t.Errorf("context missing second entry:\n%s", text)
	}
	// Highest score renders first.
	if strings.Index(text, "T1566:") > strings.Index(text, "T1053.005:") {
		t.Errorf("entries not ordered by descending score:\n%s", text)
	}
	if got.TokenCount <= 0 || got.TokenCount > b.TokenBudget {
		t.Errorf("TokenCount = %d, want in (0, %d]", got.TokenCount, b.TokenBudget)
	}
}

func TestContextBuilder_DedupeKeepsMaxScore(t *testing.T) {
	cands := []Candidate{
		{TechniqueID: "T1566", Name: "Phishing", Description: "Low score copy.", Score: 0.4},
		{TechniqueID: "T1566", Name: "Phishing", Description: "High score copy.", Score: 0.9},
	}
	b := NewContextBuilder()
	got := b.Build(cands)

	if len(got.Entries) != 1 {
		t.Fatalf("Build() kept %d entries, want 1 after dedupe", len(got.Entries))
	}
	if got.Entries[0].Score != 0.9 {
		t.Errorf("dedupe kept score %v, want 0.9", got.Entries[0].Score)
	}
}

func TestContextBuilder_BudgetStopsPacking(t *testing.T) {
	b := &ContextBuilder{TokenBudget: 30, Counter: chunk.HeuristicCounter{}}
	got := b.Build(candidateFixture())

	if len(got.Entries) != 1 {
		t.Fatalf("Build() kept %d entries under tight budget, want 1", len(got.Entries))
	}
	if got.Entries[0].TechniqueID != "T1566" {
		t.Errorf("budget kept %s, want the highest-scored T1566", got.Entries[0].TechniqueID)
	}
}

func TestContextBuilder_TieBreakByID(t *testing.T) {
	cands := []Candidate{
		{TechniqueID: "T1566", Name: "Phishing", Description: "B.", Score: 0.5},
		{TechniqueID: "T1053", Name: "Scheduled Task/Job", Description: "A.", Score: 0.5},
	}
	b := NewContextBuilder()
	got := b.Build(cands)

	if len(got.Entries) != 2 || got.Entries[0].TechniqueID != "T1053" {
		t.Errorf("equal scores not tie-broken by ascending ID: %+v", got.Entries)
	}
}

func TestContextBuilder_EmptyFallback(t *testing.T) {
	b := NewContextBuilder()
	got := b.Build(nil)

	if !got.Empty() {
		t.Error("Empty() = false for no candidates")
	}
	if !strings.Contains(got.Text(), "No relevant ATT&CK techniques") {
		t.Errorf("fallback text missing: %q", got.Text())
	}
}

func TestContextBuilder_Deterministic(t *testing.T) {
	b := NewContextBuilder()
	first := b.Build(candidateFixture()).Text()
	for i := 0; i < 5; i++ {
		if got := b.Build(candidateFixture()).Text(); got != first {
			t.Fatalf("Build() not deterministic on run %d", i)
		}
	}
}

func TestClipSentences(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"under limit unchanged", "One. Two.", 100, "One. Two."},
		{"clip at boundary", "First sentence here. Second sentence is much longer than the cap.", 25, "First sentence here."},
		{"first sentence always kept", "A single very long opening sentence that blows the cap.", 10, "A single very long opening sentence that blows the cap."},
		{"empty", "", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clipSentences(tt.text, tt.limit); got != tt.want {
				t.Errorf("clipSentences(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}
