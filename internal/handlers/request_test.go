package handlers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFromValues(t *testing.T) {
	v := url.Values{
		"exam":      {"jee-main"},
		"rank":      {"2500"},
		"category":  {"OBC"},
		"gender":    {"Female"},
		"quota":     {"Home State"},
		"tolerance": {"7.5"},
		"limit":     {"40"},
		"full":      {"true"},
	}

	q, err := QueryFromValues(v)
	require.NoError(t, err)

	assert.Equal(t, "jee-main", q.ExamType)
	assert.Equal(t, 2500, q.Rank)
	assert.Equal(t, "OBC", q.Category)
	assert.Equal(t, "Female", q.Gender)
	assert.Equal(t, "Home State", q.Quota)
	assert.Equal(t, 7.5, q.TolerancePercent)
	assert.Equal(t, 40, q.Limit)
	assert.True(t, q.ForceFullLoad)
	assert.Empty(t, q.States)
}

func TestQueryFromValues_AlternateKeys(t *testing.T) {
	v := url.Values{
		"exam_type":         {"neet"},
		"rank":              {" 120 "},
		"tolerance_percent": {"5"},
		"force_full_load":   {"1"},
	}

	q, err := QueryFromValues(v)
	require.NoError(t, err)
	assert.Equal(t, "neet", q.ExamType)
	assert.Equal(t, 120, q.Rank)
	assert.Equal(t, 5.0, q.TolerancePercent)
	assert.True(t, q.ForceFullLoad)
}

func TestQueryFromValues_States(t *testing.T) {
	v := url.Values{
		"exam":   {"jee-main"},
		"rank":   {"100"},
		"state":  {"Karnataka", "Kerala"},
		"states": {"Tamil Nadu, Goa,,"},
	}

	q, err := QueryFromValues(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"Karnataka", "Kerala", "Tamil Nadu", "Goa"}, q.States)
}

func TestQueryFromValues_BadNumbers(t *testing.T) {
	tests := []struct {
		name string
		v    url.Values
	}{
		{"rank", url.Values{"rank": {"first"}}},
		{"decimal rank", url.Values{"rank": {"10.5"}}},
		{"tolerance", url.Values{"tolerance": {"ten"}}},
		{"limit", url.Values{"limit": {"all"}}},
		{"full", url.Values{"full": {"maybe"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := QueryFromValues(tt.v)
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestQueryFromJSON(t *testing.T) {
	body := []byte(`{"exam": "neet", "rank": 500, "category": "SC", "states": ["Delhi"], "limit": 5, "force_full_load": true}`)

	q, err := QueryFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, "neet", q.ExamType)
	assert.Equal(t, 500, q.Rank)
	assert.Equal(t, "SC", q.Category)
	assert.Equal(t, []string{"Delhi"}, q.States)
	assert.Equal(t, 5, q.Limit)
	assert.True(t, q.ForceFullLoad)

	_, err = QueryFromJSON([]byte(`{"rank": "high"}`))
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = QueryFromJSON([]byte(`{`))
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestParsePredictRequest_PrefersBody(t *testing.T) {
	v := url.Values{"exam": {"neet"}, "rank": {"1"}}

	q, err := ParsePredictRequest(v, []byte(`{"exam": "jee-main", "rank": 99}`))
	require.NoError(t, err)
	assert.Equal(t, "jee-main", q.ExamType)
	assert.Equal(t, 99, q.Rank)

	q, err = ParsePredictRequest(v, []byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, "neet", q.ExamType)
	assert.Equal(t, 1, q.Rank)
}

func TestLambdaValues(t *testing.T) {
	v := lambdaValues(
		map[string]string{"exam": "neet", "state": "Goa"},
		map[string][]string{"state": {"Goa", "Kerala"}},
	)

	assert.Equal(t, "neet", v.Get("exam"))
	assert.Equal(t, []string{"Goa", "Kerala"}, v["state"], "multi-value parameters win")
}
