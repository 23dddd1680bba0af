package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/testlane/testlane-backend/internal/middleware"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/response"
	"github.com/testlane/testlane-backend/internal/service"
	"github.com/testlane/testlane-backend/internal/validator"
)

// EnrollmentHandler handles student-teacher enrollment endpoints.
type EnrollmentHandler struct {
	enrollmentService *service.EnrollmentService
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(enrollmentService *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService}
}

// Enroll godoc
// POST /api/v1/student/enrollments
// Links the student to the teacher owning the submitted four-digit code.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := middleware.GetClaims(c)
	var req model.EnrollRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	teacher, err := h.enrollmentService.Enroll(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		if errors.Is(err, service.ErrTeacherCodeNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"teacher": gin.H{"id": teacher.ID, "name": teacher.Name},
	})
}

// List godoc
// GET /api/v1/student/enrollments
func (h *EnrollmentHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	enrollments, err := h.enrollmentService.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"enrollments": enrollments})
}
