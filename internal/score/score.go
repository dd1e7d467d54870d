// Package score holds the presentation and comparison rules applied to
// match scores after they come back from the analysis gateway.
package score

import (
	"encoding/json"
	"fmt"
	"strings"

	"applypilot/internal/errors"
	"applypilot/internal/types"
)

// Band is the presentational bucket for a percentage score
type Band string

const (
	BandGreen  Band = "green"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

// Boundaries between bands, and the cutoff above which enhancement is no
// longer solicited by default.
const (
	GreenThreshold       = 80.0
	YellowThreshold      = 60.0
	EnhancementThreshold = 80.0
)

// MatchReport pairs a similarity result with its presentation band and the
// enhancement offer decision. It is the payload CLI commands print.
type MatchReport struct {
	Result           types.ScoreResult `json:"result"`
	Band             Band              `json:"band"`
	OfferEnhancement bool              `json:"offer_enhancement"`
}

// NewMatchReport derives the band and enhancement offer from the overall score
func NewMatchReport(result types.ScoreResult) MatchReport {
	return MatchReport{
		Result:           result,
		Band:             BandFor(result.OverallScore),
		OfferEnhancement: ShouldOfferEnhancement(result.OverallScore),
	}
}

// EnhancementReport is the outcome of an enhancement run. The original
// scores are always retained so a regressed rewrite never hides the
// better baseline.
type EnhancementReport struct {
	Result    types.EnhancementResult `json:"result"`
	Original  types.ScoreResult       `json:"original_scores"`
	Delta     float64                 `json:"delta"`
	Regressed bool                    `json:"regressed"`
}

// NewEnhancementReport computes the delta and regression flag for an
// enhancement result against the original scores.
func NewEnhancementReport(result types.EnhancementResult, original types.ScoreResult) EnhancementReport {
	delta := Delta(original, result.NewScores)
	return EnhancementReport{
		Result:    result,
		Original:  original,
		Delta:     delta,
		Regressed: delta < 0,
	}
}

// BandFor buckets a percentage: >=80 green, >=60 yellow, else red
func BandFor(score float64) Band {
	switch {
	case score >= GreenThreshold:
		return BandGreen
	case score >= YellowThreshold:
		return BandYellow
	default:
		return BandRed
	}
}

// ShouldOfferEnhancement reports whether the workflow solicits an
// enhancement run for the given overall score. Enhancement stays available
// on demand either way.
func ShouldOfferEnhancement(overall float64) bool {
	return overall < EnhancementThreshold
}

// Delta returns the improvement of the new overall score over the old one.
// Negative values mean the rewrite regressed.
func Delta(oldScores, newScores types.ScoreResult) float64 {
	return newScores.OverallScore - oldScores.OverallScore
}

// Validate checks that every percentage in the result is within [0,100]
func Validate(s types.ScoreResult) error {
	checks := []struct {
		name  string
		value float64
	}{
		{"overall_score", s.OverallScore},
		{"skill_match_score", s.SkillMatchScore},
		{"experience_match_score", s.ExperienceMatchScore},
		{"keyword_match_score", s.KeywordMatchScore},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > 100 {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("%s out of range: %.2f", c.name, c.value), nil)
		}
	}
	return nil
}

// JobComparisonText produces the text sent to the similarity endpoint for a
// job. The description is used when present; a job with only structured
// fields still has to yield a usable comparison string, so the whole record
// is serialized as compact JSON in that case.
func JobComparisonText(job types.JobRecord) (string, error) {
	if desc := strings.TrimSpace(job.Description); desc != "" {
		return desc, nil
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInvalidRequest,
			"failed to serialize job record for comparison", err)
	}
	return string(raw), nil
}
