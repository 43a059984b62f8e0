package controller

import (
	"assessly_backend/internal/service"
	"assessly_backend/internal/util"
	"encoding/json"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	Service *service.SubmissionService
	Storage *service.StorageService
}

func NewSubmissionController(svc *service.SubmissionService, storage *service.StorageService) *SubmissionController {
	return &SubmissionController{Service: svc, Storage: storage}
}

func requestMeta(ctx *gin.Context) service.AttemptMeta {
	return service.AttemptMeta{
		IPAddress: ctx.ClientIP(),
		UserAgent: ctx.GetHeader("User-Agent"),
	}
}

// @Summary Start or resume an attempt
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path int true "assessment id"
// @Success 201 {object} util.Response
// @Router /api/assessments/{id}/start [post]
func (c *SubmissionController) Start(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := paramUint(ctx, "id")
	if !ok {
		return
	}

	result, err := c.Service.StartAssessment(assessmentID, user.UserID, requestMeta(ctx))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	if result.Resumed {
		util.Success(ctx, result)
		return
	}
	util.Created(ctx, result)
}

type saveAnswerRequest struct {
	QuestionID uint            `json:"questionId" binding:"required"`
	Answer     json.RawMessage `json:"answer"`
	TimeSpent  int             `json:"timeSpent"`
	Flagged    bool            `json:"flagged"`
}

// @Summary Save one answer
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Param body body controller.saveAnswerRequest true "answer payload"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/answers [put]
func (c *SubmissionController) SaveAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req saveAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.Service.SaveAnswer(ctx.Param("id"), req.QuestionID, req.Answer, req.TimeSpent, req.Flagged, user.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// @Summary Submit an attempt for scoring
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Param body body service.SubmitRequest false "trailing answers"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/submit [post]
func (c *SubmissionController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	result, err := c.Service.SubmitAssessment(ctx.Param("id"), req, user.UserID, requestMeta(ctx))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Get scored results of a submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/results [get]
func (c *SubmissionController) Results(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Service.GetResults(ctx.Param("id"), user.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary List own attempt history
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param assessmentId query int false "filter by assessment"
// @Success 200 {object} util.Response
// @Router /api/submissions [get]
func (c *SubmissionController) History(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	assessmentID := uint(0)
	if idStr := ctx.Query("assessmentId"); idStr != "" {
		assessmentID = util.MustParseUint(idStr)
	}

	subs, err := c.Service.GetHistory(assessmentID, user.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}

// @Summary Upload a file answer
// @Tags submissions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Param questionId formData int true "question id"
// @Param file formData file true "answer file"
// @Success 201 {object} util.Response
// @Router /api/submissions/{id}/files [post]
func (c *SubmissionController) UploadFile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	questionID := util.MustParseUint(ctx.PostForm("questionId"))
	if questionID == 0 {
		util.BadRequest(ctx, "invalid questionId")
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	defer file.Close()

	key, url, err := c.Storage.StoreAnswerFile(ctx.Request.Context(),
		ctx.Param("id"), questionID, fileHeader.Filename, file,
		fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	answer, _ := json.Marshal(gin.H{"file_key": key})
	resp, err := c.Service.SaveAnswer(ctx.Param("id"), questionID, answer, 0, false, user.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"fileKey": key, "url": url, "response": resp})
}
