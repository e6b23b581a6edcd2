package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/satyamkes/JanSahyog/internal/database"
	"github.com/satyamkes/JanSahyog/internal/features"
	"github.com/satyamkes/JanSahyog/internal/models"
	"github.com/satyamkes/JanSahyog/internal/service"
	"github.com/satyamkes/JanSahyog/internal/validation"
)

const (
	msgMissingFields    = "Please provide all required fields: age, income, category, and state"
	msgInvalidJSON      = "invalid JSON in request body"
	msgBodyTooLarge     = "request body too large"
	msgSchemeNotFound   = "Scheme not found"
	msgFetchSchemes     = "Error fetching schemes"
	msgFetchScheme      = "Error fetching scheme"
	msgCreateScheme     = "Error creating scheme"
	msgSchemeCreated    = "Scheme created successfully"
	msgCheckFailed      = "Error checking eligibility"
	msgAICheckFailed    = "Failed to check eligibility. Please try again."
	msgRouteNotFound    = "Route not found"
	msgMethodNotAllowed = "Method not allowed"
	msgHealthy          = "Welfare API is running"
	msgStoreUnreachable = "Catalog store unreachable"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
	logger      *zap.Logger
	now         func() time.Time
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
	Logger      *zap.Logger
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 10 << 20, // 10MB default
		Logger:      zap.NewNop(),
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
		logger:      opts.Logger,
		now:         time.Now,
	}
}

// Routes registers the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/features", h.Features)

		r.Route("/schemes", func(r chi.Router) {
			r.Get("/", h.ListSchemes)
			r.Post("/", h.CreateScheme)
			r.Get("/{id}", h.GetScheme)
		})

		r.Route("/eligibility", func(r chi.Router) {
			r.Post("/check", h.CheckEligibility)
			r.Post("/ai-check", h.CheckEligibilityAI)
		})
	})
}

// ListSchemes handles GET /api/schemes
func (h *Handler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	schemes, err := h.service.ListSchemes(r.Context())
	if err != nil {
		h.logger.Error("failed to list schemes", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, msgFetchSchemes)
		return
	}

	h.respondJSON(w, http.StatusOK, models.SchemeListResponse{
		Success: true,
		Count:   len(schemes),
		Schemes: schemes,
	})
}

// GetScheme handles GET /api/schemes/{id}
func (h *Handler) GetScheme(w http.ResponseWriter, r *http.Request) {
	id := validation.SanitizeString(chi.URLParam(r, "id"))

	scheme, err := h.service.GetScheme(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, msgSchemeNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get scheme", zap.String("id", id), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, msgFetchScheme)
		return
	}

	h.respondJSON(w, http.StatusOK, models.SchemeResponse{Success: true, Scheme: scheme})
}

// CreateScheme handles POST /api/schemes
func (h *Handler) CreateScheme(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSchemeRequest
	if status, msg, ok := h.decode(w, r, &req); !ok {
		if status == http.StatusBadRequest && msg == "" {
			msg = "request body is required"
		}
		h.respondError(w, status, msg)
		return
	}

	req.Name = validation.SanitizeString(req.Name)
	req.Category = validation.SanitizeString(req.Category)
	req.OfficialWebsite = validation.SanitizeString(req.OfficialWebsite)
	req.EligibilityCriteria.Gender = validation.SanitizeString(req.EligibilityCriteria.Gender)
	for i := range req.EligibilityCriteria.Categories {
		req.EligibilityCriteria.Categories[i] = validation.SanitizeString(req.EligibilityCriteria.Categories[i])
	}
	for i := range req.EligibilityCriteria.States {
		req.EligibilityCriteria.States[i] = validation.SanitizeString(req.EligibilityCriteria.States[i])
	}

	scheme, err := h.service.CreateScheme(r.Context(), req)
	if err != nil {
		var verr *validation.ValidationError
		switch {
		case errors.As(err, &verr), errors.Is(err, database.ErrDuplicateName):
			h.respondError(w, http.StatusInternalServerError, err.Error())
		default:
			h.logger.Error("failed to create scheme", zap.Error(err))
			h.respondError(w, http.StatusInternalServerError, msgCreateScheme)
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, models.SchemeResponse{
		Success: true,
		Message: msgSchemeCreated,
		Scheme:  scheme,
	})
}

// CheckEligibility handles POST /api/eligibility/check
func (h *Handler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.readProfile(w, r)
	if !ok {
		return
	}

	result, err := h.service.CheckEligibility(r.Context(), profile)
	if err != nil {
		h.logger.Error("eligibility check failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, msgCheckFailed)
		return
	}

	h.respondJSON(w, http.StatusOK, eligibilityResponse(result))
}

// CheckEligibilityAI handles POST /api/eligibility/ai-check
func (h *Handler) CheckEligibilityAI(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.readProfile(w, r)
	if !ok {
		return
	}

	result, err := h.service.CheckEligibilityAI(r.Context(), profile)
	if err != nil {
		h.logger.Error("ai eligibility check failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, msgAICheckFailed)
		return
	}

	if result.Body != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(result.Body); err != nil {
			h.logger.Warn("failed to write response", zap.Error(err))
		}
		return
	}

	h.respondJSON(w, http.StatusOK, eligibilityResponse(*result.Local))
}

type featuresResponse struct {
	Success  bool                   `json:"success"`
	Features []features.FeatureFlag `json:"features"`
}

// Features handles GET /api/features
func (h *Handler) Features(w http.ResponseWriter, r *http.Request) {
	flags := h.service.Features()
	if flags == nil {
		flags = []features.FeatureFlag{}
	}
	h.respondJSON(w, http.StatusOK, featuresResponse{Success: true, Features: flags})
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		h.respondJSON(w, http.StatusServiceUnavailable, models.HealthResponse{
			Status:    "error",
			Message:   msgStoreUnreachable,
			Timestamp: h.now().UTC(),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Message:   msgHealthy,
		Timestamp: h.now().UTC(),
	})
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, http.StatusNotFound, msgRouteNotFound)
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

// readProfile decodes and checks an eligibility request, writing the error
// response itself when the request is unusable.
func (h *Handler) readProfile(w http.ResponseWriter, r *http.Request) (models.ApplicantProfile, bool) {
	var req models.CheckEligibilityRequest
	if status, msg, ok := h.decode(w, r, &req); !ok {
		if status == http.StatusBadRequest && msg == "" {
			msg = msgMissingFields
		}
		h.respondError(w, status, msg)
		return models.ApplicantProfile{}, false
	}

	req.Category = validation.SanitizeString(req.Category)
	req.State = validation.SanitizeString(req.State)
	req.Gender = validation.SanitizeString(req.Gender)

	if req.Age == nil || req.Income == nil || req.Category == "" || req.State == "" {
		h.respondError(w, http.StatusBadRequest, msgMissingFields)
		return models.ApplicantProfile{}, false
	}

	profile := models.ApplicantProfile{
		Age:      *req.Age,
		Income:   *req.Income,
		Category: req.Category,
		Gender:   req.Gender,
		State:    req.State,
	}

	if err := validation.ValidateProfile(profile); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return models.ApplicantProfile{}, false
	}

	return profile, true
}

// decode reads a JSON body into dst. On failure it returns the status and
// message to answer with; an empty message means the body was empty.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) (int, string, bool) {
	// Limit request body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return http.StatusRequestEntityTooLarge, msgBodyTooLarge, false
		case errors.Is(err, io.EOF):
			return http.StatusBadRequest, "", false
		default:
			return http.StatusBadRequest, msgInvalidJSON, false
		}
	}
	return 0, "", true
}

func eligibilityResponse(result models.EligibilityResult) models.EligibilityResponse {
	return models.EligibilityResponse{
		Success:     true,
		Count:       result.Count,
		Schemes:     result.Schemes,
		UserProfile: result.UserProfile,
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Success: false, Message: message})
}
