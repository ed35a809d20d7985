// Package app wires configuration, the record store and the optional AWS and
// PostgreSQL backends into the handlers shared by the server and the Lambdas.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"college-predictor/internal/config"
	"college-predictor/internal/handlers"
	"college-predictor/internal/metrics"
	"college-predictor/internal/services/database"
	"college-predictor/internal/services/predictor"
	s3service "college-predictor/internal/services/s3"
	"college-predictor/internal/services/ses"
	"college-predictor/internal/services/store"
	"college-predictor/internal/utils"
)

// App holds the long-lived components of one process.
type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Store    *store.Store
	Service  *predictor.Service
	DB       *database.DB
	LogRepo  *database.PredictionLogRepository
	Recorder *database.Recorder
	Mailer   *ses.Service

	Predict *handlers.PredictHandler
	Health  *handlers.HealthHandler
	Log     *handlers.LogHandler
}

// Options selects optional parts of the wiring.
type Options struct {
	// Registerer receives the engine metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// Preload loads the essential tier of every exam before returning.
	Preload bool
}

// New builds an App. Backends that fail to initialize are logged and left disabled;
// only a bad metrics registration is fatal.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := utils.GetLogger()
	a := &App{Config: cfg}

	if opts.Registerer != nil {
		a.Metrics = metrics.NewMetrics()
		if err := a.Metrics.Register(opts.Registerer); err != nil {
			return nil, err
		}
	}

	opener := store.LocalOpener{}
	if needsS3(cfg.Exams) {
		s3Svc, err := s3service.NewService(ctx, cfg.AWSRegion)
		if err != nil {
			logger.Warn("S3 client unavailable, s3:// sources will be skipped", zap.Error(err))
		} else {
			opener.S3 = s3Svc
		}
	}

	a.Store = store.New(cfg.Exams, store.Options{
		Opener:  opener,
		Logger:  logger,
		Metrics: a.Metrics,
	})

	svcOpts := predictor.OptionsFromConfig(cfg)
	svcOpts.Logger = logger
	svcOpts.Metrics = a.Metrics
	a.Service = predictor.NewService(a.Store, svcOpts)

	if cfg.DBEnabled {
		db, err := database.New(ctx, cfg)
		if err != nil {
			logger.Warn("Prediction log disabled, database unavailable", zap.Error(err))
		} else if err := db.Migrate(ctx); err != nil {
			logger.Warn("Prediction log disabled, schema migration failed", zap.Error(err))
			db.Close()
		} else {
			a.DB = db
			a.LogRepo = database.NewPredictionLogRepository(db)
			a.Recorder = database.NewRecorder(a.LogRepo, 0, 0, 0)
		}
	}

	if cfg.SESSenderEmail != "" {
		mailer, err := ses.NewService(ctx, cfg.AWSRegion, cfg.SESSenderEmail)
		if err != nil {
			logger.Warn("Shortlist email disabled", zap.Error(err))
		} else {
			a.Mailer = mailer
		}
	}

	a.Predict = handlers.NewPredictHandler(a.Service, a.recorder(), a.mailer(), cfg.DashboardURL)
	a.Health = handlers.NewHealthHandler(a.healthChecker(), a.Store)
	a.Log = handlers.NewLogHandler(a.logReader())

	if opts.Preload {
		start := time.Now()
		a.Store.LoadAllEssential(ctx)
		logger.Info("Essential tier loaded",
			zap.Strings("exams", cfg.Exams.Names()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	return a, nil
}

// The accessors below return untyped nils so handlers can test their interfaces
// against nil.

func (a *App) recorder() handlers.LogRecorder {
	if a.Recorder == nil {
		return nil
	}
	return a.Recorder
}

func (a *App) mailer() handlers.Mailer {
	if a.Mailer == nil {
		return nil
	}
	return a.Mailer
}

func (a *App) healthChecker() handlers.HealthChecker {
	if a.DB == nil {
		return nil
	}
	return a.DB
}

func (a *App) logReader() handlers.LogReader {
	if a.LogRepo == nil {
		return nil
	}
	return a.LogRepo
}

// APIHandler is an API Gateway Lambda handler.
type APIHandler func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// FlushAfter writes the prediction log at the end of every invocation. A Lambda
// environment can freeze or shut down before the background flush runs.
func (a *App) FlushAfter(h APIHandler) APIHandler {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := h(ctx, req)
		a.FlushLog(ctx)
		return resp, err
	}
}

// FlushLog writes queued prediction log entries.
func (a *App) FlushLog(ctx context.Context) {
	if a.Recorder == nil {
		return
	}
	if err := a.Recorder.Flush(ctx); err != nil {
		utils.GetLogger().Warn("Prediction log flush interrupted", zap.Error(err))
	}
}

// Close flushes the prediction log and releases connections.
func (a *App) Close() {
	if a.Recorder != nil {
		a.Recorder.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func needsS3(catalog *config.Catalog) bool {
	for _, name := range catalog.Names() {
		exam, _ := catalog.Lookup(name)
		for _, files := range [][]string{exam.Essential, exam.Full} {
			for _, f := range files {
				if strings.HasPrefix(f, "s3://") {
					return true
				}
			}
		}
	}
	return false
}
