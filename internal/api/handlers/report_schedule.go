package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/api/dto"
	"github.com/ledgerly/reportflow/internal/api/middleware"
	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/domain/repositories"
	"github.com/ledgerly/reportflow/internal/domain/services"
	"github.com/ledgerly/reportflow/internal/pkg/validator"
	"github.com/ledgerly/reportflow/internal/scheduler/guard"
)

type ReportScheduleHandler struct {
	scheduleSvc *services.ScheduleService
}

func NewReportScheduleHandler(scheduleSvc *services.ScheduleService) *ReportScheduleHandler {
	return &ReportScheduleHandler{scheduleSvc: scheduleSvc}
}

func (h *ReportScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())

	schedules, err := h.scheduleSvc.List(r.Context(), ownerID)
	if err != nil {
		dto.HandleServiceError(w, err)
		return
	}

	response := make([]dto.ReportScheduleResponse, 0, len(schedules))
	for i := range schedules {
		response = append(response, dto.NewReportScheduleResponse(&schedules[i]))
	}

	dto.OK(w, response)
}

func (h *ReportScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())

	var req dto.CreateReportScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.BadRequest(w, "invalid request body")
		return
	}

	if err := validator.Validate(&req); err != nil {
		dto.ValidationErrorResponse(w, err)
		return
	}

	deliverByEmail := true
	if req.DeliverByEmail != nil {
		deliverByEmail = *req.DeliverByEmail
	}

	schedule, err := h.scheduleSvc.Create(r.Context(), services.CreateScheduleInput{
		OwnerID:        ownerID,
		ReportType:     models.ReportType(req.ReportType),
		Frequency:      models.Frequency(req.Frequency),
		Format:         models.Format(req.Format),
		DeliverByEmail: deliverByEmail,
		Timing:         timing(req.Timing),
		Timezone:       req.Timezone,
	})
	if err != nil {
		dto.HandleServiceError(w, err)
		return
	}

	dto.Created(w, dto.NewReportScheduleResponse(schedule))
}

func (h *ReportScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.Get(r.Context(), middleware.OwnerIDFromContext(r.Context()), id)
	if err != nil {
		dto.HandleServiceError(w, err)
		return
	}

	dto.OK(w, dto.NewReportScheduleResponse(schedule))
}

func (h *ReportScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateReportScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.BadRequest(w, "invalid request body")
		return
	}

	if err := validator.Validate(&req); err != nil {
		dto.ValidationErrorResponse(w, err)
		return
	}

	input := services.UpdateScheduleInput{
		DeliverByEmail: req.DeliverByEmail,
		Timezone:       req.Timezone,
	}
	if req.ReportType != nil {
		t := models.ReportType(*req.ReportType)
		input.ReportType = &t
	}
	if req.Frequency != nil {
		f := models.Frequency(*req.Frequency)
		input.Frequency = &f
	}
	if req.Format != nil {
		f := models.Format(*req.Format)
		input.Format = &f
	}
	if req.Timing != nil {
		t := timing(req.Timing)
		input.Timing = &t
	}

	schedule, err := h.scheduleSvc.Update(r.Context(), middleware.OwnerIDFromContext(r.Context()), id, input)
	if err != nil {
		dto.HandleServiceError(w, err)
		return
	}

	dto.OK(w, dto.NewReportScheduleResponse(schedule))
}

func (h *ReportScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	if err := h.scheduleSvc.Delete(r.Context(), middleware.OwnerIDFromContext(r.Context()), id); err != nil {
		dto.HandleServiceError(w, err)
		return
	}

	dto.NoContent(w)
}

func (h *ReportScheduleHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.Toggle(r.Context(), middleware.OwnerIDFromContext(r.Context()), id)
	if err != nil {
		dto.HandleServiceError(w, err)
		return
	}

	dto.OK(w, dto.NewReportScheduleResponse(schedule))
}

func (h *ReportScheduleHandler) SendNow(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}
	ownerID := middleware.OwnerIDFromContext(r.Context())

	err := h.scheduleSvc.SendNow(r.Context(), ownerID, id)
	if err != nil {
		var cooldown *guard.CooldownError
		if errors.As(err, &cooldown) || errors.Is(err, services.ErrScheduleNotFound) {
			dto.HandleServiceError(w, err)
			return
		}
		log.Error().Err(err).
			Str("schedule_id", id.String()).
			Str("owner_id", ownerID.String()).
			Msg("Manual report send failed")
		dto.ErrorResponse(w, http.StatusBadGateway, "failed to send report")
		return
	}

	dto.Accepted(w, map[string]string{
		"schedule_id": id.String(),
		"status":      "sent",
	})
}

func (h *ReportScheduleHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	opts := repositories.NewListOptions(page, perPage)

	runs, total, err := h.scheduleSvc.ListRuns(r.Context(), middleware.OwnerIDFromContext(r.Context()), id, opts)
	if err != nil {
		dto.HandleServiceError(w, err)
		return
	}

	response := make([]dto.ReportRunResponse, 0, len(runs))
	for i := range runs {
		response = append(response, dto.NewReportRunResponse(&runs[i]))
	}

	totalPages := int(total) / opts.Limit
	if int(total)%opts.Limit > 0 {
		totalPages++
	}

	dto.JSONWithMeta(w, http.StatusOK, response, &dto.Meta{
		Page:       opts.Offset/opts.Limit + 1,
		PerPage:    opts.Limit,
		Total:      total,
		TotalPages: totalPages,
	})
}

// scheduleID parses the {id} URL parameter. Malformed ids are reported as
// not found so they are indistinguishable from foreign ones.
func scheduleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.NotFound(w, "Report schedule")
		return uuid.Nil, false
	}
	return id, true
}

func timing(req *dto.TimingRequest) services.Timing {
	if req == nil {
		return services.Timing{}
	}
	return services.Timing{
		Hour:       req.Hour,
		Minute:     req.Minute,
		DayOfWeek:  req.DayOfWeek,
		DayOfMonth: req.DayOfMonth,
	}
}
