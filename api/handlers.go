/*
handlers.go - HTTP API handlers for the work-time engine

PURPOSE:
  Exposes the session timer, the session ledger and the certification
  plan book via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Config:
    GET    /api/config                     Current wage configuration
    PUT    /api/config                     Partial update (optional derive_hourly)

  Session:
    GET    /api/session                    Idle, or the active session with a live snapshot
    POST   /api/session/start              Start working
    POST   /api/session/end                End working ({"classification": "paid"|"service"})
    POST   /api/session/service-overtime   End working, excess is unpaid
    GET    /api/session/live               Websocket feed (see live.go)

  History:
    GET    /api/sessions?period=today|week|month|all   Sessions and aggregate
    GET    /api/sessions/daily?period=...               Grouped by local day

  Certification plans:
    GET    /api/plans                      List with ROI
    POST   /api/plans                      Create
    GET    /api/plans/summary              Totals over non-cancelled plans
    GET    /api/plans/{id}                 One plan with ROI
    PUT    /api/plans/{id}                 Replace editable fields
    DELETE /api/plans/{id}                 Remove
    POST   /api/plans/{id}/status          Move to a status
    GET    /api/plans/{id}/roi             ROI only

  Admin:
    POST   /api/reset                      Remove sessions and plans (config kept)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Plan not found
  - 409: Start while working, end while idle
  - 500: Persistence and internal errors

SECURITY NOTE:
  No authentication. The server is meant to run on the user's own machine.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/worktime-engine/certification"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *worktime.Engine
	Plans  *certification.PlanBook
	Live   *LiveHub

	// Scheduler is optional; when set, config changes move the shift-end job.
	Scheduler *ShiftScheduler

	log zerolog.Logger
}

// NewHandler creates a new handler. live may be nil when the websocket feed is not served.
func NewHandler(engine *worktime.Engine, plans *certification.PlanBook, live *LiveHub, log zerolog.Logger) *Handler {
	return &Handler{
		Engine: engine,
		Plans:  plans,
		Live:   live,
		log:    log.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toWageConfigDTO(h.Engine.Config()))
}

func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateWageConfigRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.Engine.UpdateConfig(r.Context(), req.toUpdate(), req.DeriveHourly)
	if err != nil {
		writeDomainError(w, "Failed to update config", err)
		return
	}

	if h.Scheduler != nil {
		if err := h.Scheduler.Reschedule(cfg.EndHour); err != nil {
			h.log.Warn().Err(err).Int("end_hour", cfg.EndHour).Msg("Shift-end reminder not rescheduled")
		}
	}
	writeJSON(w, http.StatusOK, toWageConfigDTO(cfg))
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionState())
}

func (h *Handler) StartWork(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Engine.StartWork(r.Context()); err != nil {
		writeDomainError(w, "Failed to start work", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.sessionState())
}

func (h *Handler) EndWork(w http.ResponseWriter, r *http.Request) {
	var req EndWorkRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	class, err := worktime.ParseClassification(req.Classification)
	if err != nil {
		writeDomainError(w, "Invalid classification", err)
		return
	}
	h.endWork(w, r, class)
}

func (h *Handler) MarkServiceOvertime(w http.ResponseWriter, r *http.Request) {
	h.endWork(w, r, worktime.ClassificationService)
}

func (h *Handler) endWork(w http.ResponseWriter, r *http.Request, class worktime.Classification) {
	done, err := h.Engine.EndWork(r.Context(), class)
	if err != nil {
		writeDomainError(w, "Failed to end work", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(done))
}

func (h *Handler) sessionState() SessionStateResponse {
	active, ok := h.Engine.Active()
	if !ok {
		return SessionStateResponse{Working: false}
	}
	s := toSessionDTO(active)
	snap, _ := h.Engine.Snapshot()
	sd := toSnapshotDTO(snap)
	return SessionStateResponse{Working: true, Session: &s, Snapshot: &sd}
}

// =============================================================================
// HISTORY HANDLERS
// =============================================================================

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	pt, err := generic.ParsePeriodType(r.URL.Query().Get("period"))
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}
	now := h.Engine.Clock().Now()
	sessions := h.Engine.Ledger().FilterByPeriod(pt, now)
	writeJSON(w, http.StatusOK, toSessionsResponse(pt, pt.PeriodFor(now), sessions))
}

func (h *Handler) ListDailySummaries(w http.ResponseWriter, r *http.Request) {
	pt, err := generic.ParsePeriodType(r.URL.Query().Get("period"))
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}
	now := h.Engine.Clock().Now()
	sessions := h.Engine.Ledger().FilterByPeriod(pt, now)
	writeJSON(w, http.StatusOK, toDailySummaryDTOs(worktime.GroupByDay(sessions, now.Location())))
}

// =============================================================================
// CERTIFICATION PLAN HANDLERS
// =============================================================================

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans := h.Plans.List()
	dtos := make([]PlanDTO, len(plans))
	for i, p := range plans {
		dtos[i] = toPlanDTO(p, true)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := planFromRequest(req)
	if err != nil {
		writeDomainError(w, "Invalid plan", err)
		return
	}

	created, err := h.Plans.Add(r.Context(), p)
	if err != nil {
		writeDomainError(w, "Failed to create plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(created, true))
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.Plans.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Plan not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(p, true))
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := planFromRequest(req.CreatePlanRequest)
	if err != nil {
		writeDomainError(w, "Invalid plan", err)
		return
	}
	p.ID = chi.URLParam(r, "id")
	if req.Status != "" {
		st, err := certification.ParseStatus(req.Status)
		if err != nil {
			writeDomainError(w, "Invalid status", err)
			return
		}
		p.Status = st
	}
	if req.AcquiredDate != nil {
		at, err := parseDate("acquired_date", *req.AcquiredDate)
		if err != nil {
			writeDomainError(w, "Invalid plan", err)
			return
		}
		p.AcquiredDate = &at
	}

	updated, err := h.Plans.Update(r.Context(), p)
	if err != nil {
		writeDomainError(w, "Failed to update plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(updated, true))
}

func (h *Handler) SetPlanStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	st, err := certification.ParseStatus(req.Status)
	if err != nil {
		writeDomainError(w, "Invalid status", err)
		return
	}

	p, err := h.Plans.SetStatus(r.Context(), chi.URLParam(r, "id"), st)
	if err != nil {
		writeDomainError(w, "Failed to change status", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(p, true))
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Plans.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete plan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetPlanROI(w http.ResponseWriter, r *http.Request) {
	p, err := h.Plans.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Plan not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toROIDTO(certification.Calculate(p)))
}

func (h *Handler) GetPlanSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toPlanSummaryDTO(h.Plans.Summary()))
}

func planFromRequest(req CreatePlanRequest) (certification.Plan, error) {
	target, err := parseDate("target_date", req.TargetDate)
	if err != nil {
		return certification.Plan{}, err
	}
	return certification.Plan{
		Name:                   strings.TrimSpace(req.Name),
		Cost:                   req.Cost,
		StudyHours:             req.StudyHours,
		CompanySalaryIncrease:  req.CompanySalaryIncrease,
		TransferSalaryIncrease: req.TransferSalaryIncrease,
		TargetDate:             target,
	}, nil
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Reset removes every session and plan. The wage configuration survives.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	resp := ResetResponse{
		Status:          "reset",
		SessionsRemoved: h.Engine.Ledger().Len(),
		PlansRemoved:    len(h.Plans.List()),
	}
	if _, ok := h.Engine.Active(); ok {
		resp.SessionsRemoved++
	}

	if err := h.Engine.Reset(r.Context()); err != nil {
		writeDomainError(w, "Failed to reset sessions", err)
		return
	}
	if err := h.Plans.RemoveAll(r.Context()); err != nil {
		writeDomainError(w, "Failed to reset plans", err)
		return
	}
	h.log.Warn().Int("sessions", resp.SessionsRemoved).Int("plans", resp.PlansRemoved).Msg("Data reset")
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseDate accepts RFC3339 or a plain local date (2006-01-02).
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &generic.ValidationError{Field: field, Message: "required"}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, &generic.ValidationError{Field: field, Message: fmt.Sprintf("invalid date %q", s)}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error category.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, generic.ErrPersistence):
		status, code = http.StatusInternalServerError, "persistence"
	case generic.IsClientError(err):
		status, code = http.StatusBadRequest, "validation"
	case generic.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, generic.ErrAlreadyWorking):
		status, code = http.StatusConflict, "already_working"
	case errors.Is(err, generic.ErrNotWorking):
		status, code = http.StatusConflict, "not_working"
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}
