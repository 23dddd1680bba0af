package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/testlane/testlane-backend/internal/config"
	"github.com/testlane/testlane-backend/internal/middleware"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/response"
	"github.com/testlane/testlane-backend/internal/service"
	"github.com/testlane/testlane-backend/internal/validator"
)

// AttemptHandler handles the attempt lifecycle endpoints: open, submit,
// state recovery and the post-submission summary.
type AttemptHandler struct {
	cfg            *config.Config
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(cfg *config.Config, attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{cfg: cfg, attemptService: attemptService}
}

// Open godoc
// POST /api/v1/student/tests/:test_id/attempt
// Opens the student's single attempt and returns the authoritative start
// time, duration and frozen total marks.
func (h *AttemptHandler) Open(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	result, err := h.attemptService.Open(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"attempt": result})
}

// Submit godoc
// POST /api/v1/student/tests/:test_id/attempt/submit
// Grades and closes the attempt. Runs under a bounded timeout: if the
// outcome cannot be confirmed in time the client is told to check the
// summary rather than blindly retry.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.SubmitTimeout)
	defer cancel()

	result, err := h.attemptService.Submit(ctx, testID, claims.UserID, &req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			response.Fail(c, http.StatusGatewayTimeout, response.ErrOutcomeUnknown)
			return
		}
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// State godoc
// GET /api/v1/student/tests/:test_id/attempt
// Returns the recoverable attempt state, including server-computed
// remaining seconds, for page reloads and reconnects.
func (h *AttemptHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// Summary godoc
// GET /api/v1/student/attempts/:attempt_id/summary
// Returns the frozen post-submission record with per-answer review.
func (h *AttemptHandler) Summary(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	summary, err := h.attemptService.Summary(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// ListMine godoc
// GET /api/v1/student/attempts
// Lists the student's attempts for their dashboard.
func (h *AttemptHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attempts, err := h.attemptService.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTestNotFound), errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrTestNotActive):
		response.Fail(c, http.StatusForbidden, response.ErrTestNotActive)
	case errors.Is(err, service.ErrNotEnrolled):
		response.Fail(c, http.StatusForbidden, response.ErrNotEnrolled)
	case errors.Is(err, service.ErrInvalidTestConfig):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidTestConfig)
	case errors.Is(err, service.ErrAlreadyAttempted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAttempted)
	case errors.Is(err, service.ErrNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrNotStarted)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrNotSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrNotSubmitted)
	case errors.Is(err, service.ErrNotAttemptOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
