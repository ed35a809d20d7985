package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"college-predictor/internal/models"
	"college-predictor/internal/services/predictor"
	"college-predictor/internal/services/ses"
	"college-predictor/internal/utils"
)

// Errors for optional backends.
var (
	ErrMailerDisabled = errors.New("shortlist email is not configured")
	ErrLogDisabled    = errors.New("prediction log is not configured")
)

// Predictor serves prediction queries. *predictor.Service implements it.
type Predictor interface {
	PredictDetailed(ctx context.Context, q models.PredictionQuery) (*predictor.Report, error)
}

// LogRecorder receives an entry for every served prediction.
type LogRecorder interface {
	Record(e models.PredictionLogEntry)
}

// Mailer sends shortlist emails. *ses.Service implements it.
type Mailer interface {
	SendShortlist(ctx context.Context, params ses.ShortlistParams) (*ses.SendEmailResult, error)
}

// PredictResponse is a prediction report tagged with its request ID.
type PredictResponse struct {
	RequestID string `json:"request_id"`
	*predictor.Report
}

// ShortlistRequest asks for the predictions of a query to be emailed.
type ShortlistRequest struct {
	Email string `json:"email"`
	models.PredictionQuery
}

// ShortlistResponse reports a sent shortlist.
type ShortlistResponse struct {
	RequestID   string               `json:"request_id"`
	Email       string               `json:"email"`
	Predictions int                  `json:"predictions"`
	Sent        *ses.SendEmailResult `json:"sent"`
}

// PredictHandler serves predictions over API Gateway and plain HTTP.
type PredictHandler struct {
	svc          Predictor
	recorder     LogRecorder
	mailer       Mailer
	dashboardURL string
}

// NewPredictHandler creates a predict handler. recorder and mailer may be nil.
func NewPredictHandler(svc Predictor, recorder LogRecorder, mailer Mailer, dashboardURL string) *PredictHandler {
	return &PredictHandler{
		svc:          svc,
		recorder:     recorder,
		mailer:       mailer,
		dashboardURL: dashboardURL,
	}
}

// Predict runs one query and records it in the prediction log.
func (h *PredictHandler) Predict(ctx context.Context, q models.PredictionQuery) (*PredictResponse, error) {
	report, err := h.svc.PredictDetailed(ctx, q)
	if err != nil {
		return nil, err
	}

	entry := models.NewPredictionLogEntry(report.Query, string(report.Tier), len(report.Predictions),
		report.StageCounts, report.DurationMs)
	if h.recorder != nil {
		h.recorder.Record(entry)
	}

	utils.GetLogger().Info("Prediction request served",
		utils.String("requestId", entry.ID.String()),
		utils.String("exam", report.Query.ExamType),
		utils.Int("rank", report.Query.Rank),
		utils.Int("results", len(report.Predictions)),
		utils.Float64("durationMs", report.DurationMs),
	)

	return &PredictResponse{RequestID: entry.ID.String(), Report: report}, nil
}

// SendShortlist predicts for the request's query and emails the result.
func (h *PredictHandler) SendShortlist(ctx context.Context, req ShortlistRequest) (*ShortlistResponse, error) {
	if h.mailer == nil {
		return nil, ErrMailerDisabled
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrBadRequest)
	}

	resp, err := h.Predict(ctx, req.PredictionQuery)
	if err != nil {
		return nil, err
	}

	sent, err := h.mailer.SendShortlist(ctx, ses.ShortlistParams{
		To:           addr.Address,
		Exam:         resp.Query.ExamType,
		Rank:         resp.Query.Rank,
		Category:     resp.Query.Category,
		Predictions:  resp.Predictions,
		DashboardURL: h.dashboardURL,
	})
	if err != nil {
		return nil, err
	}

	return &ShortlistResponse{
		RequestID:   resp.RequestID,
		Email:       addr.Address,
		Predictions: len(resp.Predictions),
		Sent:        sent,
	}, nil
}

// Handle processes API Gateway prediction requests (GET with query parameters or
// POST with a JSON body).
func (h *PredictHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body, err := eventBody(request)
	if err != nil {
		return apiError(err), nil
	}
	q, err := ParsePredictRequest(lambdaValues(request.QueryStringParameters, request.MultiValueQueryStringParameters), body)
	if err != nil {
		return apiError(err), nil
	}

	resp, err := h.Predict(ctx, q)
	if err != nil {
		logRequestError("Prediction failed", err)
		return apiError(err), nil
	}
	return apiResponse(StatusFor(nil), Response{Success: true, Data: resp}), nil
}

// HandleShortlist processes API Gateway shortlist email requests.
func (h *PredictHandler) HandleShortlist(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body, err := eventBody(request)
	if err != nil {
		return apiError(err), nil
	}
	var req ShortlistRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apiError(fmt.Errorf("%w: %v", ErrBadRequest, err)), nil
	}

	resp, err := h.SendShortlist(ctx, req)
	if err != nil {
		logRequestError("Shortlist email failed", err)
		return apiError(err), nil
	}
	return apiResponse(StatusFor(nil), Response{Success: true, Message: "Shortlist sent", Data: resp}), nil
}

func logRequestError(msg string, err error) {
	if StatusFor(err) >= 500 {
		utils.GetLogger().Error(msg, utils.Error(err))
		return
	}
	utils.GetLogger().Debug(msg, utils.Error(err))
}
