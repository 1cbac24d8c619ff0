package reports

import (
	"SheetReports/internal/serviceiface"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const (
	defaultPort           = 7143
	defaultRequestTimeout = 2 * time.Minute
)

type ReportsService struct {
	config map[string]interface{}
	engine ReportEngine
	server *http.Server
}

func NewReportsService(cfg map[string]interface{}, engine ReportEngine) serviceiface.Service {
	return &ReportsService{config: cfg, engine: engine}
}

func (s *ReportsService) Name() string {
	return "reports"
}

func (s *ReportsService) Start() error {
	port := defaultPort
	if p, ok := s.config["port"].(int); ok && p > 0 {
		port = p
	}
	timeout := s.requestTimeout()
	router := NewRouter(s.engine)
	router.Use(RequestTimeout(timeout))
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeout + 10*time.Second,
	}
	go func() {
		log.Printf("Reports service started on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Reports server failed: %v", err)
		}
	}()
	return nil
}

// requestTimeout reads request_timeout_seconds from services.yaml.
func (s *ReportsService) requestTimeout() time.Duration {
	switch v := s.config["request_timeout_seconds"].(type) {
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	}
	return defaultRequestTimeout
}

// RequestTimeout bounds every request's context, so a stalled data store
// aborts the run instead of holding its workers.
func RequestTimeout(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *ReportsService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
