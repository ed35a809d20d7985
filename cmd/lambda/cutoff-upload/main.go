// Cutoff upload check Lambda entry point, triggered by S3 object creation
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"college-predictor/internal/config"
	"college-predictor/internal/handlers"
	s3service "college-predictor/internal/services/s3"
	"college-predictor/internal/services/store"
	"college-predictor/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	s3Svc, err := s3service.NewService(context.Background(), cfg.AWSRegion)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	handler := handlers.NewCutoffUploadHandler(store.LocalOpener{S3: s3Svc}, cfg.Exams)
	lambda.Start(handler.Handle)
}
