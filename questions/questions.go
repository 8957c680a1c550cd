// Package questions holds the static quiz served by the scanner.
package questions

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/mbolis/santas-scanner/model"
)

//go:embed questions.json
var embedded []byte

var ErrEmpty = errors.New("question set is empty")

// Load reads the question set from path, or the embedded set when path is
// empty. The result is meant to be loaded once and never modified.
func Load(path string) ([]model.Question, error) {
	data := embedded
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return Parse(data)
}

func Parse(data []byte) ([]model.Question, error) {
	var qs []model.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions JSON: %w", err)
	}
	if len(qs) == 0 {
		return nil, ErrEmpty
	}

	seen := make(map[int]bool, len(qs))
	for _, q := range qs {
		if seen[q.ID] {
			return nil, fmt.Errorf("question %d: duplicate id", q.ID)
		}
		seen[q.ID] = true

		if len(q.Options) == 0 {
			return nil, fmt.Errorf("question %d: no options", q.ID)
		}
		if !slices.Contains(q.Options, q.CorrectAnswer) {
			return nil, fmt.Errorf("question %d: correct answer %q is not an option", q.ID, q.CorrectAnswer)
		}
	}
	return qs, nil
}
