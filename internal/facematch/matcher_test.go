package facematch

import "testing"

func TestMatchCandidates(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		wantState  State
		wantLabel  string
		wantDist   *float32
	}{
		{
			name:       "close nearest neighbour",
			candidates: []Candidate{{ID: "0", Label: "alice", Distance: 0.4}},
			wantState:  StateMatched,
			wantLabel:  "alice",
			wantDist:   ptr(0.4),
		},
		{
			name:       "too far",
			candidates: []Candidate{{ID: "0", Label: "alice", Distance: 1.2}},
			wantState:  StateUnknown,
			wantLabel:  UnknownLabel,
			wantDist:   ptr(1.2),
		},
		{
			name:       "threshold is exclusive",
			candidates: []Candidate{{ID: "0", Label: "alice", Distance: 1.0}},
			wantState:  StateUnknown,
			wantLabel:  UnknownLabel,
			wantDist:   ptr(1.0),
		},
		{
			name:       "close but wrong id",
			candidates: []Candidate{{ID: "7", Label: "bob", Distance: 0.1}},
			wantState:  StateUnknown,
			wantLabel:  UnknownLabel,
			wantDist:   ptr(0.1),
		},
		{
			name: "only the top candidate counts",
			candidates: []Candidate{
				{ID: "7", Label: "bob", Distance: 0.1},
				{ID: "0", Label: "alice", Distance: 0.2},
			},
			wantState: StateUnknown,
			wantLabel: UnknownLabel,
			wantDist:  ptr(0.1),
		},
		{
			name:       "no candidates",
			candidates: nil,
			wantState:  StateNoCandidates,
			wantLabel:  UnknownLabel,
			wantDist:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MatchCandidates(tt.candidates)
			if m.State != tt.wantState {
				t.Errorf("State = %q, want %q", m.State, tt.wantState)
			}
			if m.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", m.Label, tt.wantLabel)
			}
			switch {
			case tt.wantDist == nil && m.Distance != nil:
				t.Errorf("Distance = %v, want nil", *m.Distance)
			case tt.wantDist != nil && m.Distance == nil:
				t.Errorf("Distance = nil, want %v", *tt.wantDist)
			case tt.wantDist != nil && *m.Distance != *tt.wantDist:
				t.Errorf("Distance = %v, want %v", *m.Distance, *tt.wantDist)
			}
			if m.Matched() != (tt.wantState == StateMatched) {
				t.Errorf("Matched() = %v inconsistent with state %q", m.Matched(), m.State)
			}
		})
	}
}

func TestMatchCandidates_KeepsEmbedding(t *testing.T) {
	emb := []float32{0.1, 0.2, 0.3}
	m := MatchCandidates([]Candidate{{ID: "0", Label: "?", Distance: 3.4e38, Embedding: emb}})

	if m.Matched() {
		t.Fatal("placeholder candidate must not match")
	}
	if len(m.Embedding) != 3 {
		t.Errorf("Embedding length = %d, want 3", len(m.Embedding))
	}
}

func TestMatcher_IdentityChange(t *testing.T) {
	m := NewMatcher()
	if m.Previous() != "" {
		t.Fatalf("initial previous label = %q, want empty", m.Previous())
	}

	alice := []Candidate{{ID: "0", Label: "alice", Distance: 0.3}}
	bob := []Candidate{{ID: "0", Label: "bob", Distance: 0.3}}
	stranger := []Candidate{{ID: "0", Label: "carol", Distance: 1.5}}

	_, change := m.Match(alice)
	if change == nil || change.Label != "alice" || change.Previous != "" {
		t.Fatalf("first match change = %+v, want alice from empty", change)
	}

	if _, change = m.Match(alice); change != nil {
		t.Errorf("same label should not raise a change, got %+v", change)
	}

	if _, change = m.Match(stranger); change != nil {
		t.Errorf("rejected match should not raise a change, got %+v", change)
	}
	if m.Previous() != "alice" {
		t.Errorf("rejected match changed previous label to %q", m.Previous())
	}

	_, change = m.Match(bob)
	if change == nil || change.Label != "bob" || change.Previous != "alice" {
		t.Errorf("change = %+v, want bob from alice", change)
	}
}

func TestMatcher_BeginCommit(t *testing.T) {
	m := NewMatcher()
	alice := []Candidate{{ID: "0", Label: "alice", Distance: 0.3}}

	abandoned := m.Begin()
	if _, change := abandoned.Match(alice); change == nil {
		t.Fatal("expected a change on the cycle copy")
	}
	if m.Previous() != "" {
		t.Fatalf("uncommitted cycle moved previous label to %q", m.Previous())
	}

	cycle := m.Begin()
	_, change := cycle.Match(alice)
	if change == nil || change.Label != "alice" {
		t.Fatalf("retried cycle change = %+v, want alice", change)
	}
	m.Commit(cycle)
	if m.Previous() != "alice" {
		t.Errorf("previous label = %q after commit, want alice", m.Previous())
	}
}

func ptr(f float32) *float32 {
	return &f
}
