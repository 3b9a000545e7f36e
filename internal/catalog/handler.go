// Package catalog manages the org-scoped service catalog that incidents
// reference.
package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/JVK-PAGE/status-page-plivo/internal/domain"
	"github.com/JVK-PAGE/status-page-plivo/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for the catalog module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/services", func(r chi.Router) {
		r.Post("/", h.CreateService)
		r.Get("/", h.ListServices)
		r.Get("/{id}", h.GetService)
		r.Patch("/{id}", h.UpdateService)
		r.Delete("/{id}", h.DeleteService)
	})
}

// ServiceRequest is the request body for creating or updating a service.
type ServiceRequest struct {
	Name           string `json:"name" validate:"required,min=1,max=255"`
	Description    string `json:"description" validate:"max=1000"`
	OrganizationID string `json:"organizationId" validate:"required,uuid"`
}

// CreateService handles POST /services.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	session, ok := httputil.SessionFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	service := &domain.Service{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
	}
	if err := h.service.CreateService(r.Context(), session, service); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, service)
}

// GetService handles GET /services/{id}.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	session, ok := httputil.SessionFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	organizationID := r.URL.Query().Get("organizationId")
	if _, err := uuid.Parse(organizationID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid organizationId")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrServiceNotFound.Error())
		return
	}

	service, err := h.service.GetService(r.Context(), session, organizationID, id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

// ListServices handles GET /services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	session, ok := httputil.SessionFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	organizationID := r.URL.Query().Get("organizationId")
	if _, err := uuid.Parse(organizationID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid organizationId")
		return
	}

	services, err := h.service.ListServices(r.Context(), session, organizationID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, services)
}

// UpdateService handles PATCH /services/{id}.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	session, ok := httputil.SessionFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrServiceNotFound.Error())
		return
	}

	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	service := &domain.Service{
		ID:             id,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
	}
	if err := h.service.UpdateService(r.Context(), session, service); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

// DeleteService handles DELETE /services/{id}.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	session, ok := httputil.SessionFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	organizationID := r.URL.Query().Get("organizationId")
	if _, err := uuid.Parse(organizationID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid organizationId")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrServiceNotFound.Error())
		return
	}

	if err := h.service.DeleteService(r.Context(), session, organizationID, id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrOrganizationNotFound, Status: http.StatusNotFound},
		{Error: ErrServiceNotFound, Status: http.StatusNotFound},
		{Error: ErrServiceInUse, Status: http.StatusConflict},
	})
}
