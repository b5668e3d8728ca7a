// Package handler exposes the patient REST surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"patientflow/internal/patient/models"
	id "patientflow/pkg/domain"
	"patientflow/pkg/platform/httputil"
	"patientflow/pkg/requestcontext"
)

// Service defines the patient operations the HTTP layer depends on.
type Service interface {
	Create(ctx context.Context, data models.PatientData) (*models.Patient, error)
	Update(ctx context.Context, patientID id.PatientID, data models.PatientData) (*models.Patient, error)
	Delete(ctx context.Context, patientID id.PatientID) error
	Get(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	List(ctx context.Context) ([]*models.Patient, error)
}

// Handler wires patient endpoints to the patient service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a patient handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts patient endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/patients", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{patientID}", h.HandleGet)
		r.Put("/{patientID}", h.HandleUpdate)
		r.Delete("/{patientID}", h.HandleDelete)
	})
}

// HandleCreate handles POST /patients requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreatePatientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	patient, err := h.service.Create(ctx, req.ParsedData())
	if err != nil {
		h.logger.ErrorContext(ctx, "patient creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "patient created",
		"request_id", requestID,
		"patient_id", patient.ID.String(),
		"billing_status", string(patient.BillingStatus),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromPatient(patient))
}

// HandleGet handles GET /patients/{patientID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	patient, err := h.service.Get(ctx, patientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPatient(patient))
}

// HandleList handles GET /patients requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patients, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "patient list failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPatients(patients))
}

// HandleUpdate handles PUT /patients/{patientID} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdatePatientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	patient, err := h.service.Update(ctx, patientID, req.ParsedData())
	if err != nil {
		h.logger.ErrorContext(ctx, "patient update failed",
			"request_id", requestID,
			"patient_id", patientID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "patient updated",
		"request_id", requestID,
		"patient_id", patientID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromPatient(patient))
}

// HandleDelete handles DELETE /patients/{patientID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, patientID); err != nil {
		h.logger.ErrorContext(ctx, "patient delete failed",
			"request_id", requestID,
			"patient_id", patientID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "patient deleted",
		"request_id", requestID,
		"patient_id", patientID.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}
