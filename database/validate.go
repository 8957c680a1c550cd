package database

import (
	"strings"
	"time"

	"github.com/mbolis/santas-scanner/model"
)

const (
	minScore = 0
	maxScore = 100
)

// Prepare turns a candidate into the record to be written: required fields
// are checked, the verdict must be known, the score is clamped and a missing
// timestamp becomes now.
func Prepare(c model.ScanCandidate, now time.Time) (model.ScanResult, error) {
	verr := &model.ValidationError{}

	requireText(verr, "name", c.Name)
	if c.Verdict == nil {
		verr.Add("verdict", model.ReasonMissing)
	}
	requireText(verr, "message", c.Message)
	if c.Score == nil {
		verr.Add("score", model.ReasonMissing)
	}
	if c.Verdict != nil && !model.Verdict(*c.Verdict).Valid() {
		verr.Add("verdict", "must be one of NAUGHTY, NICE")
	}
	if err := verr.ErrOrNil(); err != nil {
		return model.ScanResult{}, err
	}

	res := model.ScanResult{
		Name:      *c.Name,
		Verdict:   model.Verdict(*c.Verdict),
		Message:   *c.Message,
		Score:     clampScore(*c.Score),
		Timestamp: now,
	}
	if c.Country != nil {
		res.Country = strings.TrimSpace(*c.Country)
	}
	if c.Timestamp != nil && !c.Timestamp.IsZero() {
		res.Timestamp = *c.Timestamp
	}
	// both backends keep millisecond precision
	res.Timestamp = res.Timestamp.UTC().Truncate(time.Millisecond)
	return res, nil
}

func requireText(verr *model.ValidationError, field string, value *string) {
	if value == nil || strings.TrimSpace(*value) == "" {
		verr.Add(field, model.ReasonMissing)
	}
}

func clampScore(score float64) float64 {
	switch {
	case score < minScore:
		return minScore
	case score > maxScore:
		return maxScore
	}
	return score
}
