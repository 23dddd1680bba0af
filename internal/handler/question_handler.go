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

// QuestionHandler handles a test's question bank endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// Add godoc
// POST /api/v1/teacher/tests/:test_id/questions
func (h *QuestionHandler) Add(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Add(c.Request.Context(), testID, claims.UserID, &req)
	if err != nil {
		failQuestionError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// List godoc
// GET /api/v1/teacher/tests/:test_id/questions
// Returns questions with answer keys; teacher only.
func (h *QuestionHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	questions, err := h.questionService.ListByTest(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		failQuestionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Update godoc
// PUT /api/v1/teacher/questions/:question_id
func (h *QuestionHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)
	questionID, ok := parseUUIDParam(c, "question_id")
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), questionID, claims.UserID, &req)
	if err != nil {
		failQuestionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// Delete godoc
// DELETE /api/v1/teacher/questions/:question_id
func (h *QuestionHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	questionID, ok := parseUUIDParam(c, "question_id")
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), questionID, claims.UserID); err != nil {
		failQuestionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

func failQuestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTestNotFound), errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotTestOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrInvalidQuestion):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrValidation)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
