// Package facematch decides who a detected face is and whether it wears a mask.
// It holds the acceptance policies applied to the ranked results returned by
// the embedding extractor and the mask classifier.
package facematch

// The embedding extractor and the mask classifier both reserve id "0", for
// unrelated meanings. They are kept as separate symbols on purpose.
const (
	// NearestNeighborID marks the extractor's nearest registered neighbour.
	NearestNeighborID = "0"

	// MaskClassID is the mask classifier's "mask present" class.
	MaskClassID = "0"
)

const (
	// MaxMatchDistance is the distance at or above which a candidate is rejected.
	MaxMatchDistance = 1.0

	// MinMaskConfidence is the minimum top-result confidence for a mask verdict.
	MinMaskConfidence = 0.6

	// UnknownLabel is shown for faces that matched no registered identity.
	UnknownLabel = "Unknown"
)

// Candidate is one ranked result of the embedding extractor.
type Candidate struct {
	ID       string
	Label    string
	Distance float32 // lower is better
	// Embedding is only set when the caller asked for the feature vector.
	Embedding []float32
}

// MaskResult is one ranked result of the mask classifier.
type MaskResult struct {
	ID         string
	Label      string
	Confidence float32
}

// State tags how a face was resolved.
type State string

const (
	StateMatched      State = "matched"       // registered identity within threshold
	StateUnknown      State = "unknown"       // candidates existed but were rejected
	StateNoCandidates State = "no-candidates" // extractor returned nothing
)
