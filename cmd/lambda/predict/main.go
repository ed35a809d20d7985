// Prediction Lambda entry point
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"college-predictor/internal/app"
	"college-predictor/internal/config"
	"college-predictor/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	// The essential tier loads during init so warm invocations skip it.
	a, err := app.New(context.Background(), cfg, app.Options{Preload: true})
	if err != nil {
		log.Fatalf("Failed to create handler: %v", err)
	}
	defer a.Close()

	// lambda.Start does not return, so entries are flushed per invocation.
	lambda.Start(a.FlushAfter(a.Predict.Handle))
}
