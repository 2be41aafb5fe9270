package service

import (
	"strings"

	"github.com/cloo-solutions/corpora/internal/domain"
)

// Classification is the classifier's verdict for a piece of content
type Classification struct {
	Tier       domain.SensitivityTier
	Confidence float64
}

// restrictedMarkers force the restricted tier on any hit.
var restrictedMarkers = []string{
	"confidential",
	"restricted",
	"nda",
	"secret",
	"classified",
}

// confidentialMarkers raise content to confidential when no restricted
// marker is present.
var confidentialMarkers = []string{
	"internal only",
	"do not distribute",
	"do not share",
	"proprietary",
	"private",
}

const (
	markerConfidenceBonus = 0.45
	maxConfidence         = 0.99
	baselineLengthDivisor = 4096
)

// ClassifyContent scans canonical text for risk markers and combines any hit
// with a length-derived baseline score. The result is deterministic for
// identical input and monotonic in detected risk signals.
func ClassifyContent(content string) Classification {
	lowered := strings.ToLower(content)

	baseline := float64(len(content)) / baselineLengthDivisor * 0.5
	if baseline > 0.5 {
		baseline = 0.5
	}

	for _, marker := range restrictedMarkers {
		if strings.Contains(lowered, marker) {
			return Classification{
				Tier:       domain.TierRestricted,
				Confidence: clampConfidence(baseline + markerConfidenceBonus),
			}
		}
	}

	for _, marker := range confidentialMarkers {
		if strings.Contains(lowered, marker) {
			return Classification{
				Tier:       domain.TierConfidential,
				Confidence: clampConfidence(baseline + markerConfidenceBonus/2),
			}
		}
	}

	return Classification{
		Tier:       domain.TierStandard,
		Confidence: clampConfidence(baseline),
	}
}

func clampConfidence(c float64) float64 {
	if c > maxConfidence {
		return maxConfidence
	}
	if c < 0 {
		return 0
	}
	return c
}
