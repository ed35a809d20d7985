package handlers

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"college-predictor/internal/config"
	"college-predictor/internal/services/store"
	"college-predictor/internal/utils"
)

// CutoffUploadHandler checks cutoff files uploaded to S3 before they are referenced
// from the exam catalog. The exam is the name of the object's parent folder, so
// cutoffs/jee-main/2024-round6.csv is checked as a jee-main file.
type CutoffUploadHandler struct {
	opener  store.Opener
	catalog *config.Catalog
}

// NewCutoffUploadHandler creates an upload checker reading objects through opener.
func NewCutoffUploadHandler(opener store.Opener, catalog *config.Catalog) *CutoffUploadHandler {
	return &CutoffUploadHandler{opener: opener, catalog: catalog}
}

// UploadCheck is the outcome for one uploaded object.
type UploadCheck struct {
	Location string `json:"location"`
	Exam     string `json:"exam,omitempty"`
	Valid    bool   `json:"valid"`
	Records  int    `json:"records"`
	Dropped  int    `json:"dropped"`
	Error    string `json:"error,omitempty"`
}

// UploadCheckResult is the outcome for one S3 event.
type UploadCheckResult struct {
	Message string        `json:"message"`
	Checked int           `json:"checked"`
	Invalid int           `json:"invalid"`
	Files   []UploadCheck `json:"files"`
}

// Handle processes S3 events for uploaded cutoff files.
func (h *CutoffUploadHandler) Handle(ctx context.Context, s3Event events.S3Event) (UploadCheckResult, error) {
	logger := utils.GetLogger()

	result := UploadCheckResult{Files: make([]UploadCheck, 0, len(s3Event.Records))}
	if len(s3Event.Records) == 0 {
		result.Message = "No records to process"
		return result, nil
	}

	for _, record := range s3Event.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return result, fmt.Errorf("failed to decode S3 key: %w", err)
		}
		check := h.check(ctx, record.S3.Bucket.Name, key)
		result.Checked++
		if !check.Valid {
			result.Invalid++
		}

		logger.Info("Checked cutoff upload",
			utils.String("location", check.Location),
			utils.String("exam", check.Exam),
			utils.Bool("valid", check.Valid),
			utils.Int("records", check.Records),
			utils.Int("dropped", check.Dropped),
		)
		result.Files = append(result.Files, check)
	}

	result.Message = fmt.Sprintf("Checked %d file(s), %d invalid", result.Checked, result.Invalid)
	return result, nil
}

func (h *CutoffUploadHandler) check(ctx context.Context, bucket, key string) UploadCheck {
	check := UploadCheck{Location: "s3://" + bucket + "/" + key}

	examDir := path.Base(path.Dir(key))
	exam, ok := h.catalog.Lookup(examDir)
	if !ok {
		check.Error = fmt.Sprintf("unknown exam folder %q (known: %s)", examDir, strings.Join(h.catalog.Names(), ", "))
		return check
	}
	check.Exam = exam.Name

	report, err := store.CheckSource(ctx, h.opener, check.Location, exam.Name)
	if err != nil {
		utils.GetLogger().Warn("Cutoff upload rejected", utils.String("location", check.Location), utils.Error(err))
		check.Error = err.Error()
		return check
	}
	check.Records = report.Records
	check.Dropped = report.Dropped
	check.Valid = report.Records > 0
	if !check.Valid {
		check.Error = "no valid cutoff records"
	}
	return check
}
