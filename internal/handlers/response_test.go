package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"college-predictor/internal/models"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"bad request", fmt.Errorf("%w: rank", ErrBadRequest), http.StatusBadRequest},
		{"invalid rank", fmt.Errorf("invalid query: %w", models.ErrInvalidRank), http.StatusBadRequest},
		{"unknown exam", models.ErrUnknownExam, http.StatusBadRequest},
		{"mailer disabled", ErrMailerDisabled, http.StatusServiceUnavailable},
		{"log disabled", ErrLogDisabled, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"canceled", fmt.Errorf("load: %w", context.Canceled), http.StatusGatewayTimeout},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	status, body := ErrorResponse(fmt.Errorf("invalid query: %w", models.ErrInvalidRank))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, models.ErrInvalidRank.Error())

	status, body = ErrorResponse(errors.New("connection refused: 10.0.0.5:5432"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body.Error, "internal details stay hidden")
}

func TestApiResponse(t *testing.T) {
	resp := apiResponse(http.StatusOK, Response{Success: true, Message: "ok"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.JSONEq(t, `{"success": true, "message": "ok"}`, resp.Body)
}

func TestEventBody(t *testing.T) {
	body, err := eventBody(events.APIGatewayProxyRequest{Body: `{"rank": 1}`})
	require.NoError(t, err)
	assert.Equal(t, `{"rank": 1}`, string(body))

	encoded := base64.StdEncoding.EncodeToString([]byte(`{"rank": 2}`))
	body, err = eventBody(events.APIGatewayProxyRequest{Body: encoded, IsBase64Encoded: true})
	require.NoError(t, err)
	assert.Equal(t, `{"rank": 2}`, string(body))

	_, err = eventBody(events.APIGatewayProxyRequest{Body: "%%%", IsBase64Encoded: true})
	assert.ErrorIs(t, err, ErrBadRequest)
}
