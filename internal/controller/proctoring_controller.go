package controller

import (
	"assessly_backend/internal/service"
	"assessly_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProctoringController struct {
	Service *service.ProctoringService
}

func NewProctoringController(svc *service.ProctoringService) *ProctoringController {
	return &ProctoringController{Service: svc}
}

// @Summary Report a proctoring event
// @Tags proctoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Param body body service.ProctoringEventRequest true "event"
// @Success 201 {object} util.Response
// @Router /api/submissions/{id}/events [post]
func (c *ProctoringController) Report(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ProctoringEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	event, err := c.Service.ReportEvent(ctx.Param("id"), req, user.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, event)
}

// @Summary List proctoring events of a submission
// @Tags proctoring
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/events [get]
func (c *ProctoringController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	events, err := c.Service.ListEvents(ctx.Param("id"), user.UserID, user.Role)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, events)
}
