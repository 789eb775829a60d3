package facematch

// Match is the identity verdict for one face.
type Match struct {
	State State
	Label string
	// Distance of the top candidate, nil when there were no candidates.
	Distance *float32
	// Embedding of the top candidate, if the extractor returned one.
	Embedding []float32
}

// Matched reports whether a registered identity was accepted.
func (m Match) Matched() bool {
	return m.State == StateMatched
}

// MatchCandidates applies the acceptance policy to a ranked candidate list.
//
// Only the first candidate is considered; ranking is the extractor's job.
// A candidate is accepted when its distance is below MaxMatchDistance AND its
// id is NearestNeighborID. Both checks are required.
func MatchCandidates(candidates []Candidate) Match {
	if len(candidates) == 0 {
		return Match{State: StateNoCandidates, Label: UnknownLabel}
	}

	top := candidates[0]
	distance := top.Distance
	m := Match{
		State:     StateUnknown,
		Label:     UnknownLabel,
		Distance:  &distance,
		Embedding: top.Embedding,
	}

	if top.Distance >= MaxMatchDistance {
		return m
	}
	if top.ID != NearestNeighborID {
		return m
	}

	m.State = StateMatched
	m.Label = top.Label
	return m
}

// IdentityChange is raised when the accepted identity differs from the
// previously accepted one.
type IdentityChange struct {
	Label    string
	Previous string
}

// Matcher remembers the last accepted label across frames. It is owned by a
// single pipeline and is not safe for concurrent use.
type Matcher struct {
	previous string
}

// NewMatcher returns a matcher with an empty previous-label slot.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match resolves candidates and records the result, returning a change event
// when a newly accepted label differs from the previous one.
func (m *Matcher) Match(candidates []Candidate) (Match, *IdentityChange) {
	match := MatchCandidates(candidates)
	return match, m.Observe(match)
}

// Observe updates the previous-label slot. Rejected matches leave it alone.
func (m *Matcher) Observe(match Match) *IdentityChange {
	if !match.Matched() {
		return nil
	}
	if match.Label == m.previous {
		return nil
	}
	change := &IdentityChange{Label: match.Label, Previous: m.previous}
	m.previous = match.Label
	return change
}

// Begin returns a copy of the slot for one cycle. Changes recorded on the copy
// reach m only through Commit.
func (m *Matcher) Begin() *Matcher {
	return &Matcher{previous: m.previous}
}

// Commit adopts the slot of a finished cycle.
func (m *Matcher) Commit(cycle *Matcher) {
	m.previous = cycle.previous
}

// Previous returns the last accepted label.
func (m *Matcher) Previous() string {
	return m.previous
}
