package controller

import (
	"assessly_backend/internal/service"
	"assessly_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service *service.AssessmentService
}

func NewAssessmentController(svc *service.AssessmentService) *AssessmentController {
	return &AssessmentController{Service: svc}
}

func paramUint(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// @Summary Create an assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateAssessmentRequest true "assessment definition"
// @Success 201 {object} util.Response
// @Router /api/teacher/assessments [post]
func (c *AssessmentController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.CreateAssessment(req, user.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary Get one assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "assessment id"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) Get(ctx *gin.Context) {
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	a, err := c.Service.GetAssessment(id)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary List assessments
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} util.Response
// @Router /api/assessments [get]
func (c *AssessmentController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	list, total, err := c.Service.ListAssessments(page, limit, user.Role)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

// @Summary Update an assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "assessment id"
// @Param body body service.CreateAssessmentRequest true "assessment definition"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id} [put]
func (c *AssessmentController) Update(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	var req service.CreateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.UpdateAssessment(id, req, user.UserID, user.Role)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary Delete an assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "assessment id"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id} [delete]
func (c *AssessmentController) Delete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	if err := c.Service.DeleteAssessment(id, user.UserID, user.Role); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Publish an assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "assessment id"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/publish [post]
func (c *AssessmentController) Publish(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	a, err := c.Service.Publish(id, user.UserID, user.Role)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary Unpublish an assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "assessment id"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/unpublish [post]
func (c *AssessmentController) Unpublish(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	a, err := c.Service.Unpublish(id, user.UserID, user.Role)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary Create a bank question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.QuestionRequest true "question definition"
// @Success 201 {object} util.Response
// @Router /api/teacher/questions [post]
func (c *AssessmentController) CreateQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.CreateQuestion(req, user.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary Update a bank question
// @Tags questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "question id"
// @Param body body service.QuestionRequest true "question definition"
// @Success 200 {object} util.Response
// @Router /api/teacher/questions/{id} [put]
func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.UpdateQuestion(id, req, user.UserID, user.Role)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary Delete a bank question
// @Tags questions
// @Produce json
// @Security BearerAuth
// @Param id path int true "question id"
// @Success 200 {object} util.Response
// @Router /api/teacher/questions/{id} [delete]
func (c *AssessmentController) DeleteQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	if err := c.Service.DeleteQuestion(id, user.UserID, user.Role); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Attach a question to an assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "assessment id"
// @Param body body service.AttachQuestionRequest true "attachment"
// @Success 201 {object} util.Response
// @Router /api/teacher/assessments/{id}/questions [post]
func (c *AssessmentController) AttachQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	var req service.AttachQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.AttachQuestion(id, req, user.UserID, user.Role); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, nil)
}

// @Summary Detach a question from an assessment
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "assessment id"
// @Param questionId path int true "question id"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/questions/{questionId} [delete]
func (c *AssessmentController) DetachQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := paramUint(ctx, "questionId")
	if !ok {
		return
	}

	if err := c.Service.DetachQuestion(id, questionID, user.UserID, user.Role); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary List an assessment's questions with answers
// @Tags assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "assessment id"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/questions [get]
func (c *AssessmentController) ListQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	qs, err := c.Service.ListQuestions(id, user.UserID, user.Role)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}
