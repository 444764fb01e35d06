package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// MetricsProvider exposes component counters for GET /metrics
type MetricsProvider interface {
	Metrics(ctx context.Context) map[string]any
}

// Handlers contains all HTTP handlers for the chatfiles API
type Handlers struct {
	processor     domain.Processor
	store         domain.FileStore
	healthChecker domain.HealthChecker
	metrics       MetricsProvider
	startTime     time.Time
}

// NewHandlers creates a new instance of API handlers. metrics may be nil.
func NewHandlers(processor domain.Processor, store domain.FileStore, healthChecker domain.HealthChecker, metrics MetricsProvider) *Handlers {
	return &Handlers{
		processor:     processor,
		store:         store,
		healthChecker: healthChecker,
		metrics:       metrics,
		startTime:     time.Now(),
	}
}

// ExtractRequest is the payload for the extract and preview endpoints
// @Description Assistant message to scan for files
type ExtractRequest struct {
	Text string `json:"text" example:"Create app.js with the following content"`
}

// ErrorResponse represents the standard error response format
// @Description Standard error response format
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Invalid input provided"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse represents the standard success response format
// @Description Standard success response format
type SuccessResponse struct {
	Status string `json:"status" example:"success"`
	Data   any    `json:"data"`
}

// FileListResponse is the payload of GET /v1/files
type FileListResponse struct {
	Files []domain.File `json:"files"`
	Count int           `json:"count" example:"3"`
}

// PreviewResponse is the payload of POST /v1/extract/preview
type PreviewResponse struct {
	Files []domain.PlannedFile `json:"files"`
	Count int                  `json:"count" example:"2"`
}

// ExtractHandler handles POST /v1/extract requests
// @Summary      Extract files from assistant text
// @Description  Finds fenced code in the text and creates or updates the files it names
// @Tags         Extraction
// @Accept       json
// @Produce      json
// @Param        request body ExtractRequest true "Assistant text"
// @Success      200 {object} SuccessResponse{data=domain.Summary} "Per-file outcomes"
// @Failure      400 {object} ErrorResponse "Invalid request payload"
// @Failure      422 {object} ErrorResponse "Validation failed"
// @Router       /v1/extract [post]
func (h *Handlers) ExtractHandler(c *fiber.Ctx) error {
	ctx := requestContext(c)

	req, appErr := parseExtractRequest(ctx, c, "extract_request_parsing")
	if appErr != nil {
		return h.sendError(c, appErr)
	}

	summary := h.processor.ProcessAssistantText(ctx, req.Text)

	log.Info().
		Str("request_id", requestID(c)).
		Int("created", len(summary.Created)).
		Int("updated", len(summary.Updated)).
		Int("errors", len(summary.Errors)).
		Msg("Assistant text processed")

	return c.Status(fiber.StatusOK).JSON(SuccessResponse{
		Status: "success",
		Data:   summary,
	})
}

// PreviewHandler handles POST /v1/extract/preview requests
// @Summary      Preview extraction
// @Description  Reports which files the text would create or update without writing anything
// @Tags         Extraction
// @Accept       json
// @Produce      json
// @Param        request body ExtractRequest true "Assistant text"
// @Success      200 {object} SuccessResponse{data=PreviewResponse} "Planned files"
// @Failure      400 {object} ErrorResponse "Invalid request payload"
// @Router       /v1/extract/preview [post]
func (h *Handlers) PreviewHandler(c *fiber.Ctx) error {
	ctx := requestContext(c)

	req, appErr := parseExtractRequest(ctx, c, "preview_request_parsing")
	if appErr != nil {
		return h.sendError(c, appErr)
	}

	planned := h.processor.Preview(req.Text)

	return c.Status(fiber.StatusOK).JSON(SuccessResponse{
		Status: "success",
		Data: PreviewResponse{
			Files: planned,
			Count: len(planned),
		},
	})
}

// ListFilesHandler handles GET /v1/files requests
// @Summary      List files
// @Description  Returns the stored files; content is included only with ?content=true
// @Tags         Files
// @Produce      json
// @Success      200 {object} SuccessResponse{data=FileListResponse} "Stored files"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /v1/files [get]
func (h *Handlers) ListFilesHandler(c *fiber.Ctx) error {
	ctx := requestContext(c)

	files, err := h.store.ListFiles(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID(c)).
			Msg("Failed to list files")

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return h.sendError(c, appErr)
		}
		return h.sendError(c, domain.NewAppErrorWithCause(
			domain.ErrStorage,
			"Failed to list files",
			http.StatusInternalServerError,
			err,
			nil,
		).WithContext(ctx, "list_files"))
	}

	if c.Query("content") != "true" {
		for i := range files {
			files[i].Content = ""
		}
	}

	return c.Status(fiber.StatusOK).JSON(SuccessResponse{
		Status: "success",
		Data: FileListResponse{
			Files: files,
			Count: len(files),
		},
	})
}

// HealthHandler handles GET /health requests
// @Summary      Health check
// @Description  Aggregated health of storage, extractor and cache
// @Tags         System
// @Produce      json
// @Success      200 {object} map[string]any "Service is healthy"
// @Failure      503 {object} map[string]any "Service is degraded or unhealthy"
// @Router       /health [get]
func (h *Handlers) HealthHandler(c *fiber.Ctx) error {
	health := h.healthChecker.CheckHealth(requestContext(c))

	status := fiber.StatusOK
	if health.Status != domain.HealthStatusHealthy {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":     health.Status,
		"timestamp":  health.Timestamp.Format(time.RFC3339),
		"components": health.Components,
		"uptime":     health.Uptime.String(),
	})
}

// MetricsHandler handles GET /metrics requests
// @Summary      System metrics
// @Description  Extraction, storage and cache counters
// @Tags         System
// @Produce      json
// @Success      200 {object} SuccessResponse "Metrics"
// @Router       /metrics [get]
func (h *Handlers) MetricsHandler(c *fiber.Ctx) error {
	data := map[string]any{}
	if h.metrics != nil {
		for k, v := range h.metrics.Metrics(requestContext(c)) {
			data[k] = v
		}
	}
	data["uptime"] = map[string]any{
		"seconds":   time.Since(h.startTime).Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	return c.Status(fiber.StatusOK).JSON(SuccessResponse{
		Status: "success",
		Data:   data,
	})
}

func parseExtractRequest(ctx context.Context, c *fiber.Ctx, operation string) (ExtractRequest, *domain.AppError) {
	var req ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return req, domain.NewAppError(
			domain.ErrInvalidInput,
			"Invalid JSON payload",
			http.StatusBadRequest,
			map[string]string{"error": err.Error()},
		).WithContext(ctx, operation)
	}

	if strings.TrimSpace(req.Text) == "" {
		return req, domain.NewAppError(
			domain.ErrValidationFailed,
			"Text is required",
			http.StatusUnprocessableEntity,
			map[string]string{"field": "text"},
		).WithContext(ctx, operation)
	}

	return req, nil
}

// requestContext carries the request ID into domain calls so AppErrors can report it
func requestContext(c *fiber.Ctx) context.Context {
	return context.WithValue(c.UserContext(), domain.RequestIDKey, requestID(c))
}

func requestID(c *fiber.Ctx) string {
	if rid, ok := c.Locals("requestid").(string); ok {
		return rid
	}
	return ""
}

// sendError sends a standardized error response
func (h *Handlers) sendError(c *fiber.Ctx, appErr *domain.AppError) error {
	return c.Status(appErr.StatusCode).JSON(ErrorResponse{
		Status:  "error",
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}
