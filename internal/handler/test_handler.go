package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/testlane/testlane-backend/internal/middleware"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/response"
	"github.com/testlane/testlane-backend/internal/service"
	"github.com/testlane/testlane-backend/internal/validator"
)

// TestHandler handles test management (teacher) and test discovery
// (student) endpoints.
type TestHandler struct {
	testService *service.TestService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService) *TestHandler {
	return &TestHandler{testService: testService}
}

// Create godoc
// POST /api/v1/teacher/tests
func (h *TestHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// List godoc
// GET /api/v1/teacher/tests
func (h *TestHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	tests, err := h.testService.ListByTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// Get godoc
// GET /api/v1/teacher/tests/:test_id
func (h *TestHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	test, err := h.testService.Get(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		failTestError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// Update godoc
// PUT /api/v1/teacher/tests/:test_id
func (h *TestHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Update(c.Request.Context(), testID, claims.UserID, &req)
	if err != nil {
		failTestError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// SetActive godoc
// PATCH /api/v1/teacher/tests/:test_id/active
func (h *TestHandler) SetActive(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.SetActive(c.Request.Context(), testID, claims.UserID, *req.Active)
	if err != nil {
		failTestError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// Delete godoc
// DELETE /api/v1/teacher/tests/:test_id
func (h *TestHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), testID, claims.UserID); err != nil {
		failTestError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ListAvailable godoc
// GET /api/v1/student/tests
// Lists active tests of teachers the student is enrolled with.
func (h *TestHandler) ListAvailable(c *gin.Context) {
	claims := middleware.GetClaims(c)
	tests, err := h.testService.ListActiveForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// GetPayload godoc
// GET /api/v1/student/tests/:test_id
// Returns the answer-stripped question payload for an active test. Gated
// on enrollment with the test's teacher, same as opening an attempt.
func (h *TestHandler) GetPayload(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	payload, err := h.testService.GetPayloadForStudent(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		failTestError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": payload})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func failTestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTestNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotTestOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrTestNotActive):
		response.Fail(c, http.StatusForbidden, response.ErrTestNotActive)
	case errors.Is(err, service.ErrNotEnrolled):
		response.Fail(c, http.StatusForbidden, response.ErrNotEnrolled)
	case errors.Is(err, service.ErrInvalidTestConfig):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidTestConfig)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
