// Package main provides the HTTP server for the college predictor API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"college-predictor/internal/app"
	"college-predictor/internal/config"
	"college-predictor/internal/handlers"
	"college-predictor/internal/utils"
)

const maxBodyBytes = 1 << 20

// Server holds all dependencies
type Server struct {
	app    *app.App
	logger *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Registerer: reg, Preload: true})
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	server := &Server{app: a, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.healthHandler)
	mux.HandleFunc("/api/health", server.healthHandler)
	mux.HandleFunc("/api/predict", server.predictHandler)
	mux.HandleFunc("/api/status", server.statusHandler)
	mux.HandleFunc("/api/load", server.loadHandler)
	mux.HandleFunc("/api/shortlist/email", server.shortlistHandler)
	mux.HandleFunc("/api/log/recent", server.recentLogHandler)
	mux.HandleFunc("/api/log/usage", server.usageLogHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("College predictor API server listening",
		zap.String("addr", addr),
		zap.String("stage", cfg.Stage),
		zap.String("dataDir", cfg.DataDir),
		zap.Strings("exams", cfg.Exams.Names()),
		zap.Bool("predictionLog", a.DB != nil),
		zap.Bool("shortlistEmail", a.Mailer != nil),
	)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, health := s.app.Health.Check(r.Context())
	writeJSON(w, status, handlers.Response{
		Success: status == http.StatusOK,
		Data:    health,
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, handlers.Response{Success: true, Data: s.app.Health.Status()})
}

func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body []byte
	if r.Method == http.MethodPost {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", handlers.ErrBadRequest, err))
			return
		}
	}

	q, err := handlers.ParsePredictRequest(r.URL.Query(), body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp, err := s.app.Predict.Predict(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handlers.Response{Success: true, Data: resp})
}

// loadHandler forces the full tier of ?exam= to load.
func (s *Server) loadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	exam := r.URL.Query().Get("exam")
	start := time.Now()
	if err := s.app.Service.EnsureFull(r.Context(), exam); err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("Full tier load requested",
		zap.String("exam", exam),
		zap.Duration("elapsed", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, handlers.Response{
		Success: true,
		Message: "Full tier loaded",
		Data:    s.app.Health.Status(),
	})
}

func (s *Server) shortlistHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req handlers.ShortlistRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", handlers.ErrBadRequest, err))
		return
	}

	resp, err := s.app.Predict.SendShortlist(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handlers.Response{Success: true, Message: "Shortlist sent", Data: resp})
}

func (s *Server) recentLogHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.app.Log.Recent(r.Context(), r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handlers.Response{Success: true, Data: entries})
}

func (s *Server) usageLogHandler(w http.ResponseWriter, r *http.Request) {
	usage, err := s.app.Log.Usage(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handlers.Response{Success: true, Data: usage})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, body := handlers.ErrorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
