package biz

import "math"

// QualityScore rates a collection between 0 and 1 from the number of
// unique results, the extraction success rate (percent) and the length of
// the analysis in runes.
func QualityScore(totalResults int, successRate float64, analysisLen int) float64 {
	var score float64

	switch {
	case totalResults > 20:
		score += 0.3
	case totalResults > 10:
		score += 0.2
	case totalResults > 5:
		score += 0.1
	}

	score += successRate / 100 * 0.4

	switch {
	case analysisLen > 1000:
		score += 0.3
	case analysisLen > 500:
		score += 0.2
	case analysisLen > 100:
		score += 0.1
	}

	return math.Min(score, 1.0)
}

const emergencyQuality = 0.1
