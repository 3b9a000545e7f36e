// Package incidents implements the incident write path: validated intake,
// tenant-scoped authorization, the atomic incident/service-association
// write, and post-commit fan-out to the organization channel.
package incidents

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/JVK-PAGE/status-page-plivo/internal/domain"
	"github.com/JVK-PAGE/status-page-plivo/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Pagination limits for listing.
const (
	DefaultIncidentsLimit = 20
	MaxIncidentsLimit     = 100
)

// Handler handles HTTP requests for the incidents module. Each request runs
// the full intake sequence: decode, validate, authorize, write, notify,
// respond; every stage short-circuits to an error response.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers incident routes. All of them require an
// authenticated session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Post("/", h.CreateIncident)
		r.Get("/", h.ListIncidents)
		r.Get("/{id}", h.GetIncident)
		r.Put("/{id}", h.UpdateIncident)
	})
}

// IncidentRequest is the request body for creating or updating an incident.
// Field names follow the public API surface; validation tags itemize every
// violated constraint at once.
type IncidentRequest struct {
	Title          string   `json:"title" validate:"required,max=100"`
	Description    string   `json:"description" validate:"required,min=10,max=1000"`
	Status         string   `json:"status" validate:"required,oneof=investigating identified monitoring resolved"`
	Impact         string   `json:"impact" validate:"required,oneof=minor major critical"`
	Type           string   `json:"type" validate:"omitempty,oneof=incident maintenance"`
	ServiceIDs     []string `json:"serviceIds" validate:"required,min=1,dive,uuid"`
	OrganizationID string   `json:"organizationId" validate:"required,uuid"`
}

// ToInput converts the request to a validated intent. The type defaults to
// "incident" when absent and service ids are deduplicated preserving order.
func (r *IncidentRequest) ToInput() IncidentInput {
	incidentType := domain.IncidentType(r.Type)
	if incidentType == "" {
		incidentType = domain.IncidentTypeIncident
	}

	seen := make(map[string]struct{}, len(r.ServiceIDs))
	serviceIDs := make([]string, 0, len(r.ServiceIDs))
	for _, id := range r.ServiceIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		serviceIDs = append(serviceIDs, id)
	}

	return IncidentInput{
		Title:          r.Title,
		Description:    r.Description,
		Status:         domain.IncidentStatus(r.Status),
		Impact:         domain.IncidentImpact(r.Impact),
		Type:           incidentType,
		OrganizationID: r.OrganizationID,
		ServiceIDs:     serviceIDs,
	}
}

// CreateIncident handles POST /incidents.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	session, ok := httputil.SessionFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), session, req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// UpdateIncident handles PUT /incidents/{id}.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	session, ok := httputil.SessionFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	incidentID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(incidentID); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrIncidentNotFound.Error())
		return
	}

	var req IncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.UpdateIncident(r.Context(), session, incidentID, req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
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

	incidentID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(incidentID); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrIncidentNotFound.Error())
		return
	}

	incident, err := h.service.GetIncident(r.Context(), session, organizationID, incidentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// ListIncidents handles GET /incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
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

	filters := IncidentFilters{Limit: DefaultIncidentsLimit}

	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.IncidentStatus(status)
		if !s.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filters.Status = &s
	}

	if incidentType := r.URL.Query().Get("type"); incidentType != "" {
		t := domain.IncidentType(incidentType)
		if !t.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid type filter")
			return
		}
		filters.Type = &t
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > MaxIncidentsLimit {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filters.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			httputil.Error(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filters.Offset = offset
	}

	incidents, err := h.service.ListIncidents(r.Context(), session, organizationID, filters)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incidents)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrOrganizationNotFound, Status: http.StatusNotFound},
		{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
		{Error: ErrServicesNotFound, Status: http.StatusBadRequest},
	})
}
