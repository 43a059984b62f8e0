package controller

import (
	"assessly_backend/internal/service"
	"assessly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradingController struct {
	Service *service.GradingService
}

func NewGradingController(svc *service.GradingService) *GradingController {
	return &GradingController{Service: svc}
}

// @Summary Manually grade a response
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Param body body service.GradeRequest true "grade"
// @Success 200 {object} util.Response
// @Router /api/teacher/submissions/{id}/grade [post]
func (c *GradingController) Grade(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Service.GradeResponse(ctx.Param("id"), req, user.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary List responses awaiting manual grading
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/teacher/submissions/{id}/pending [get]
func (c *GradingController) Pending(ctx *gin.Context) {
	pending, err := c.Service.PendingResponses(ctx.Param("id"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, pending)
}
