package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"weather-history/internal/models"
	"weather-history/internal/services"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

// HistoryHandler serves the stored weather history and the ingest API
type HistoryHandler struct {
	historyService   *services.HistoryService
	ingestionService *services.IngestionService
	exportService    *services.ExportService
	logger           *logging.StructuredLogger
	metrics          *metrics.Collector
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(
	historyService *services.HistoryService,
	ingestionService *services.IngestionService,
	exportService *services.ExportService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *HistoryHandler {
	return &HistoryHandler{
		historyService:   historyService,
		ingestionService: ingestionService,
		exportService:    exportService,
		logger:           logger,
		metrics:          metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// IngestRequest is the POST /api/ingest payload
type IngestRequest struct {
	Locations []models.Coordinate `json:"locations"`
}

// IngestResponse wraps the batch entries produced for a request
type IngestResponse struct {
	Entries []models.BatchEntry `json:"entries"`
}

// GetHistory handles GET /api/history
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/history").Observe(duration.Seconds())
	}()

	records, err := h.historyService.QueryAll(ctx)
	if err != nil {
		h.logger.Error(ctx, "[API_HISTORY_ERROR] Failed to read history", logging.Fields{}, err)
		h.sendError(w, r, "failed to retrieve history", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/history", r.Method, "200")
	h.sendJSON(w, records, http.StatusOK)
}

// ExportHistory handles GET /api/history/export
func (h *HistoryHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/history/export").Observe(duration.Seconds())
	}()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="weather_history.csv"`)

	rows, err := h.exportService.WriteCSV(ctx, w)
	if err != nil {
		// Headers may already be gone; log and give up on this response.
		h.logger.Error(ctx, "[API_EXPORT_ERROR] CSV export failed", logging.Fields{}, err)
		h.metrics.RecordAPIError("export_error", "/api/history/export")
		return
	}

	h.metrics.RecordAPIRequest("/api/history/export", r.Method, "200")
	h.logger.Info(ctx, "[API_EXPORT] History exported", logging.Fields{
		"rows": rows,
	})
}

// Ingest handles POST /api/ingest
func (h *HistoryHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/ingest").Observe(duration.Seconds())
	}()

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordAPIError("bad_request", "/api/ingest")
		h.sendError(w, r, "invalid request body, expected {\"locations\":[{\"latitude\":..,\"longitude\":..}]}", http.StatusBadRequest)
		return
	}

	if len(req.Locations) == 0 {
		h.metrics.RecordAPIError("bad_request", "/api/ingest")
		h.sendError(w, r, "locations must not be empty", http.StatusBadRequest)
		return
	}

	entries := h.ingestionService.Ingest(ctx, req.Locations)

	h.metrics.RecordAPIRequest("/api/ingest", r.Method, "200")
	h.sendJSON(w, IngestResponse{Entries: entries}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *HistoryHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.historyService.HealthCheck(r.Context()); err != nil {
		status["status"] = "unhealthy"
		h.sendJSON(w, status, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, status, http.StatusOK)
}

var historyPage = template.Must(template.New("history").Funcs(template.FuncMap{
	"cell": func(v *float64) string {
		if v == nil {
			return "–"
		}
		return strconv.FormatFloat(*v, 'f', 1, 64)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Weather History</title>
	<style>
		body { font-family: sans-serif; margin: 2rem; }
		table { border-collapse: collapse; }
		th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: right; }
		th { background: #f0f0f0; }
		td:first-child, th:first-child, td:nth-child(2) { text-align: left; }
	</style>
</head>
<body>
	<h1>Weather History</h1>
	<table>
		<tr>
			<th>ID</th><th>City</th><th>Latitude</th><th>Longitude</th>
			<th>Temperature</th><th>Humidity</th><th>Wind Speed</th><th>UV Index</th><th>Timestamp</th>
		</tr>
		{{range .}}
		<tr>
			<td>{{.ID}}</td>
			<td>{{.City}}</td>
			<td>{{printf "%.2f" .Latitude}}</td>
			<td>{{printf "%.2f" .Longitude}}</td>
			<td>{{cell .Temperature}}</td>
			<td>{{cell .Humidity}}</td>
			<td>{{cell .WindSpeed}}</td>
			<td>{{cell .UVIndex}}</td>
			<td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td>
		</tr>
		{{end}}
	</table>
</body>
</html>
`))

// HistoryPage handles GET / with a rendered HTML table
func (h *HistoryHandler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.historyService.QueryAll(ctx)
	if err != nil {
		h.logger.Error(ctx, "[PAGE_HISTORY_ERROR] Failed to read history", logging.Fields{}, err)
		http.Error(w, "failed to retrieve history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := historyPage.Execute(w, records); err != nil {
		h.logger.Error(ctx, "[PAGE_RENDER_ERROR] Failed to render history page", logging.Fields{}, err)
	}
}

// sendJSON sends a JSON response
func (h *HistoryHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *HistoryHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))
	h.sendJSON(w, response, statusCode)
}

// RequestIDMiddleware tags every request with a request id for the logger.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RegisterRoutes registers all history routes
func (h *HistoryHandler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestIDMiddleware)
	router.HandleFunc("/", h.HistoryPage).Methods("GET")
	router.HandleFunc("/api/history", h.GetHistory).Methods("GET")
	router.HandleFunc("/api/history/export", h.ExportHistory).Methods("GET")
	router.HandleFunc("/api/ingest", h.Ingest).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
