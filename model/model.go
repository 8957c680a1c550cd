package model

import "time"

type Question struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type Verdict string

const (
	Naughty Verdict = "NAUGHTY"
	Nice    Verdict = "NICE"
)

func (v Verdict) Valid() bool {
	return v == Naughty || v == Nice
}

// ScanCandidate is a submission as decoded from a request. Nil fields were
// absent from the body.
type ScanCandidate struct {
	Name      *string    `json:"name"`
	Verdict   *string    `json:"verdict"`
	Message   *string    `json:"message"`
	Score     *float64   `json:"score"`
	Country   *string    `json:"country"`
	Timestamp *time.Time `json:"timestamp"`
}

type ScanResult struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Verdict   Verdict   `json:"verdict"`
	Message   string    `json:"message"`
	Score     float64   `json:"score"`
	Country   string    `json:"country,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
