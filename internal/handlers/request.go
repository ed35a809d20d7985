// Package handlers provides the Lambda and HTTP handlers for the college predictor.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"college-predictor/internal/models"
)

// ErrBadRequest marks a request that could not be decoded.
var ErrBadRequest = errors.New("malformed request")

// QueryFromValues builds a query from URL parameters. States may be repeated or
// comma-separated.
func QueryFromValues(v url.Values) (models.PredictionQuery, error) {
	q := models.PredictionQuery{
		ExamType: first(v, "exam", "exam_type"),
		Category: first(v, "category"),
		Gender:   first(v, "gender"),
		Quota:    first(v, "quota"),
	}

	if s := first(v, "rank"); s != "" {
		rank, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("%w: rank %q is not an integer", ErrBadRequest, s)
		}
		q.Rank = rank
	}
	if s := first(v, "tolerance", "tolerance_percent"); s != "" {
		tol, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, fmt.Errorf("%w: tolerance %q is not a number", ErrBadRequest, s)
		}
		q.TolerancePercent = tol
	}
	if s := first(v, "limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("%w: limit %q is not an integer", ErrBadRequest, s)
		}
		q.Limit = limit
	}
	if s := first(v, "full", "force_full_load"); s != "" {
		full, err := strconv.ParseBool(s)
		if err != nil {
			return q, fmt.Errorf("%w: full %q is not a boolean", ErrBadRequest, s)
		}
		q.ForceFullLoad = full
	}

	for _, key := range []string{"state", "states"} {
		for _, raw := range v[key] {
			for _, s := range strings.Split(raw, ",") {
				if s = strings.TrimSpace(s); s != "" {
					q.States = append(q.States, s)
				}
			}
		}
	}
	return q, nil
}

// QueryFromJSON decodes a JSON query body.
func QueryFromJSON(body []byte) (models.PredictionQuery, error) {
	var q models.PredictionQuery
	if err := json.Unmarshal(body, &q); err != nil {
		return q, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return q, nil
}

// ParsePredictRequest reads a query from the JSON body when there is one, otherwise
// from the URL parameters.
func ParsePredictRequest(v url.Values, body []byte) (models.PredictionQuery, error) {
	if len(strings.TrimSpace(string(body))) > 0 {
		return QueryFromJSON(body)
	}
	return QueryFromValues(v)
}

func first(v url.Values, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

// lambdaValues merges single and multi-value query parameters of an API Gateway event.
func lambdaValues(single map[string]string, multi map[string][]string) url.Values {
	v := make(url.Values, len(single)+len(multi))
	for k, vals := range multi {
		v[k] = append(v[k], vals...)
	}
	for k, val := range single {
		if _, ok := v[k]; !ok {
			v.Set(k, val)
		}
	}
	return v
}
