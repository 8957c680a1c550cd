package database

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/santas-scanner/model"
)

func ptr[T any](v T) *T { return &v }

func candidate(name, verdict, message string, score float64) model.ScanCandidate {
	return model.ScanCandidate{
		Name:    ptr(name),
		Verdict: ptr(verdict),
		Message: ptr(message),
		Score:   ptr(score),
	}
}

func TestPrepareClampsScore(t *testing.T) {
	now := time.Date(2024, 12, 24, 20, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		in, want float64
	}{
		{-50, 0},
		{-0.5, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{100.1, 100},
		{150, 100},
	} {
		res, err := Prepare(candidate("Alice", "NICE", "Ho ho ho", tc.in), now)
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Score, "score %v", tc.in)
	}
}

func TestPrepareDefaultsTimestamp(t *testing.T) {
	now := time.Date(2024, 12, 24, 20, 0, 0, 0, time.UTC)

	res, err := Prepare(candidate("Alice", "NICE", "Ho ho ho", 10), now)
	require.NoError(t, err)
	assert.Equal(t, now, res.Timestamp)

	given := time.Date(2023, 12, 1, 8, 30, 0, 0, time.UTC)
	c := candidate("Alice", "NICE", "Ho ho ho", 10)
	c.Timestamp = &given
	res, err = Prepare(c, now)
	require.NoError(t, err)
	assert.Equal(t, given, res.Timestamp)
}

func TestPrepareKeepsCountry(t *testing.T) {
	c := candidate("Alice", "NAUGHTY", "Coal for you", 3)
	c.Country = ptr("AT")

	res, err := Prepare(c, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "AT", res.Country)
	assert.Equal(t, model.Naughty, res.Verdict)
}

func TestPrepareRejectsMissingFields(t *testing.T) {
	_, err := Prepare(model.ScanCandidate{Name: ptr("Bob"), Score: ptr(50.0)}, time.Now())

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ElementsMatch(t, []model.FieldError{
		{Field: "verdict", Reason: model.ReasonMissing},
		{Field: "message", Reason: model.ReasonMissing},
	}, verr.Fields)
	assert.Contains(t, err.Error(), "missing required fields: verdict, message")
}

func TestPrepareRejectsBlankText(t *testing.T) {
	_, err := Prepare(candidate("  ", "NICE", "", 10), time.Now())

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "message")
}

func TestPrepareRejectsUnknownVerdict(t *testing.T) {
	for _, verdict := range []string{"", "nice", "MAYBE"} {
		_, err := Prepare(candidate("Carol", verdict, "Hmm", 50), time.Now())

		var verr *model.ValidationError
		require.True(t, errors.As(err, &verr), "verdict %q", verdict)
		assert.Equal(t, "verdict", verr.Fields[0].Field)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, normalizeLimit(0))
	assert.Equal(t, DefaultLimit, normalizeLimit(-1))
	assert.Equal(t, 5, normalizeLimit(5))
}
