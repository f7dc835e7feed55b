package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/domain/services"
	"github.com/ledgerly/reportflow/internal/pkg/validator"
	"github.com/ledgerly/reportflow/internal/scheduler/guard"
)

// Error codes for consistent API responses
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
	ErrCodeTooManyRequest = "TOO_MANY_REQUESTS"
	ErrCodeServiceUnavail = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout        = "TIMEOUT"
)

type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *ErrorData  `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type ErrorData struct {
	Code             string                      `json:"code"`
	Message          string                      `json:"message"`
	Details          []validator.ValidationError `json:"details,omitempty"`
	RemainingSeconds *int                        `json:"remaining_seconds,omitempty"`
}

type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// getRequestID extracts request ID from response header if set
func getRequestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-ID")
}

func write(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response.RequestID = getRequestID(w)
	response.Timestamp = time.Now().Unix()

	_ = json.NewEncoder(w).Encode(response)
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func JSONWithMeta(w http.ResponseWriter, status int, data interface{}, meta *Meta) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	})
}

func errorWithCode(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Response{
		Error: &ErrorData{Code: code, Message: message},
	})
}

func ErrorResponse(w http.ResponseWriter, status int, message string) {
	errorWithCode(w, status, statusToErrorCode(status), message)
}

func ValidationErrorResponse(w http.ResponseWriter, err error) {
	write(w, http.StatusBadRequest, Response{
		Error: &ErrorData{
			Code:    ErrCodeValidation,
			Message: "Validation failed",
			Details: validator.FormatErrors(err),
		},
	})
}

func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

func Accepted(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusAccepted, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func BadRequest(w http.ResponseWriter, message string) {
	errorWithCode(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	errorWithCode(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func NotFound(w http.ResponseWriter, resource string) {
	errorWithCode(w, http.StatusNotFound, ErrCodeNotFound, resource+" not found")
}

// TooManyRequests reports how long the caller has to wait, both in the body
// and in Retry-After.
func TooManyRequests(w http.ResponseWriter, message string, remainingSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(remainingSeconds))
	write(w, http.StatusTooManyRequests, Response{
		Error: &ErrorData{
			Code:             ErrCodeTooManyRequest,
			Message:          message,
			RemainingSeconds: &remainingSeconds,
		},
	})
}

func InternalServerError(w http.ResponseWriter, message string) {
	errorWithCode(w, http.StatusInternalServerError, ErrCodeInternalServer, message)
}

// HandleServiceError maps service-layer errors to appropriate HTTP responses
func HandleServiceError(w http.ResponseWriter, err error) {
	var cooldown *guard.CooldownError

	switch {
	case errors.As(err, &cooldown):
		TooManyRequests(w, "Report was sent recently, try again later", cooldown.RemainingSeconds())
	case errors.Is(err, services.ErrScheduleNotFound):
		NotFound(w, "Report schedule")
	case errors.Is(err, services.ErrInvalidSchedule):
		BadRequest(w, err.Error())
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}

// statusToErrorCode maps HTTP status codes to error codes
func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeBadRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusTooManyRequests:
		return ErrCodeTooManyRequest
	case http.StatusInternalServerError:
		return ErrCodeInternalServer
	case http.StatusServiceUnavailable:
		return ErrCodeServiceUnavail
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ErrCodeTimeout
	default:
		return http.StatusText(status)
	}
}

// Report schedule responses
type TimingResponse struct {
	Hour       *int `json:"hour,omitempty"`
	Minute     *int `json:"minute,omitempty"`
	DayOfWeek  *int `json:"day_of_week,omitempty"`
	DayOfMonth *int `json:"day_of_month,omitempty"`
}

type ReportScheduleResponse struct {
	ID               string         `json:"id"`
	ReportType       string         `json:"report_type"`
	Frequency        string         `json:"frequency"`
	Format           string         `json:"format"`
	DeliverByEmail   bool           `json:"deliver_by_email"`
	IsActive         bool           `json:"is_active"`
	Timing           TimingResponse `json:"timing"`
	Timezone         string         `json:"timezone"`
	NextRunAt        *int64         `json:"next_run_at,omitempty"`
	LastRunAt        *int64         `json:"last_run_at,omitempty"`
	LastManualSendAt *int64         `json:"last_manual_send_at,omitempty"`
	RunCount         int64          `json:"run_count"`
	CreatedAt        int64          `json:"created_at"`
	UpdatedAt        int64          `json:"updated_at"`
}

type ReportRunResponse struct {
	ID           string  `json:"id"`
	Trigger      string  `json:"trigger"`
	Status       string  `json:"status"`
	Period       string  `json:"period,omitempty"`
	Format       string  `json:"format,omitempty"`
	FileName     string  `json:"file_name,omitempty"`
	SizeBytes    int64   `json:"size_bytes"`
	Delivered    bool    `json:"delivered"`
	ErrorMessage *string `json:"error_message,omitempty"`
	StartedAt    int64   `json:"started_at"`
	FinishedAt   *int64  `json:"finished_at,omitempty"`
	DurationMs   int64   `json:"duration_ms"`
}

func unix(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ts := t.Unix()
	return &ts
}

func NewReportScheduleResponse(s *models.ReportSchedule) ReportScheduleResponse {
	return ReportScheduleResponse{
		ID:             s.ID.String(),
		ReportType:     string(s.ReportType),
		Frequency:      string(s.Frequency),
		Format:         string(s.Format),
		DeliverByEmail: s.DeliverByEmail,
		IsActive:       s.IsActive,
		Timing: TimingResponse{
			Hour:       s.ScheduledHour,
			Minute:     s.ScheduledMinute,
			DayOfWeek:  s.ScheduledDayOfWeek,
			DayOfMonth: s.ScheduledDayOfMonth,
		},
		Timezone:         s.Timezone,
		NextRunAt:        unix(s.NextRunAt),
		LastRunAt:        unix(s.LastRunAt),
		LastManualSendAt: unix(s.LastManualSendAt),
		RunCount:         s.RunCount,
		CreatedAt:        s.CreatedAt.Unix(),
		UpdatedAt:        s.UpdatedAt.Unix(),
	}
}

func NewReportRunResponse(r *models.ReportRun) ReportRunResponse {
	return ReportRunResponse{
		ID:           r.ID.String(),
		Trigger:      r.Trigger,
		Status:       r.Status,
		Period:       r.Period,
		Format:       string(r.Format),
		FileName:     r.FileName,
		SizeBytes:    r.SizeBytes,
		Delivered:    r.Delivered,
		ErrorMessage: r.ErrorMessage,
		StartedAt:    r.StartedAt.Unix(),
		FinishedAt:   unix(r.FinishedAt),
		DurationMs:   r.DurationMs,
	}
}
