package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"health-records/internal/models"
	"health-records/internal/service"
)

// Services is everything the HTTP API serves.
type Services struct {
	Departments     *service.DepartmentService
	ExamTypes       *service.ExaminationTypeService
	Classifications *service.HealthClassificationService
	Employees       *service.EmployeeService
	Records         *service.HealthRecordService
	RecordImport    *service.RecordImportService
	EmployeeImport  *service.EmployeeImportService
}

type Options struct {
	MetricsPath    string
	AllowedOrigins []string
	MaxUploadBytes int64
}

// NewRouter mounts the JSON API under /api plus liveness and metrics.
func NewRouter(svc Services, opts Options, logger *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(logger))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	newImportHandlers[service.RecordPreview]("records", svc.RecordImport, opts.MaxUploadBytes, logger).register(api)
	newImportHandlers[service.EmployeePreview]("employees", svc.EmployeeImport, opts.MaxUploadBytes, logger).register(api)

	newCatalogHandlers[models.Department]("departments", svc.Departments, logger).register(api)
	newCatalogHandlers[models.ExaminationType]("examination-types", svc.ExamTypes, logger).register(api)
	newCatalogHandlers[models.HealthClassification]("health-classifications", svc.Classifications, logger).register(api)

	(&employeeHandlers{svc: svc.Employees, logger: logger}).register(api)
	(&recordHandlers{svc: svc.Records, logger: logger}).register(api)

	return cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)
}

func requestLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Debug("HTTP request")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Serve runs the API on addr until ctx is cancelled, then drains
// in-flight requests.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *logrus.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
