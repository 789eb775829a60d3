package facematch

import (
	"sort"
	"strconv"
)

// Color is the render hint of a face box.
type Color string

const (
	ColorRed   Color = "red"
	ColorGreen Color = "green"
)

// DecideMask thresholds the classifier's top result. The face is masked only
// when the top result reaches MinMaskConfidence and is the mask class.
func DecideMask(results []MaskResult) bool {
	if len(results) == 0 {
		return false
	}
	top := results[0]
	if top.Confidence < MinMaskConfidence {
		return false
	}
	return top.ID == MaskClassID
}

// ColorFor returns the box colour. The mask verdict alone decides it: a masked
// face is green and an unmasked one red, whether or not it was identified.
func ColorFor(masked bool) Color {
	if masked {
		return ColorGreen
	}
	return ColorRed
}

// RankMaskScores turns per-class scores into a ranked result list. The id of
// each result is its class index; labels are optional.
func RankMaskScores(scores []float32, labels []string) []MaskResult {
	results := make([]MaskResult, len(scores))
	for i, score := range scores {
		label := strconv.Itoa(i)
		if i < len(labels) {
			label = labels[i]
		}
		results[i] = MaskResult{ID: strconv.Itoa(i), Label: label, Confidence: score}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}
