package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/internal/gift/service"
	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	plannerSvc *service.PlannerService
	qcSvc      *service.QCService
}

func NewPlanHandler(plannerSvc *service.PlannerService, qcSvc *service.QCService) *PlanHandler {
	return &PlanHandler{plannerSvc: plannerSvc, qcSvc: qcSvc}
}

// GroupSubmitted 手动触发排产分组，幂等
// POST /plan/group-submitted
func (h *PlanHandler) GroupSubmitted(c *gin.Context) {
	report, err := h.plannerSvc.GroupSubmitted(c.Request.Context(), time.Now(), c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, report)
}

// UpdateStatus 车间状态推进，状态以数值编码传入
// PUT /plan/update-status/:planDetailId?newStatus=7
func (h *PlanHandler) UpdateStatus(c *gin.Context) {
	raw := c.Query("newStatus")
	if raw == "" {
		badRequest(c, "newStatus 不能为空")
		return
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "newStatus 必须是数值编码")
		return
	}
	status, valid := entity.ParseStatus(code)
	if !valid {
		badRequest(c, "未知状态编码: "+raw)
		return
	}
	detail, err := h.qcSvc.UpdateFloorStatus(c.Request.Context(),
		c.Param("planDetailId"), status, c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, detail)
}

// RecordQCCheck 记录质检结果
// POST /plan/details/:planDetailId/qc-check
func (h *PlanHandler) RecordQCCheck(c *gin.Context) {
	var req struct {
		Checked int    `json:"checked" binding:"required,gt=0"`
		Passed  int    `json:"passed" binding:"min=0"`
		Failed  int    `json:"failed" binding:"min=0"`
		Remark  string `json:"remark"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	check, err := h.qcSvc.RecordQCCheck(c.Request.Context(), c.Param("planDetailId"),
		req.Checked, req.Passed, req.Failed, req.Remark, c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, check)
}

// ProductionView 车间生产视图
// GET /plan/production-view?category_id=&selected_date=&status=
func (h *PlanHandler) ProductionView(c *gin.Context) {
	params, errMsg := h.viewParams(c)
	if errMsg != "" {
		badRequest(c, errMsg)
		return
	}
	groups, err := h.plannerSvc.ProductionView(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, groups)
}

// ExportProductionView 导出生产视图 Excel
// GET /plan/production-view/export
func (h *PlanHandler) ExportProductionView(c *gin.Context) {
	params, errMsg := h.viewParams(c)
	if errMsg != "" {
		badRequest(c, errMsg)
		return
	}
	f, err := h.plannerSvc.ExportProductionSheet(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	filename := fmt.Sprintf("production-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func (h *PlanHandler) viewParams(c *gin.Context) (repository.ProductionViewParams, string) {
	params := repository.ProductionViewParams{
		CategoryID:   c.Query("category_id"),
		SelectedDate: c.Query("selected_date"),
	}
	if raw := c.Query("status"); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil {
			return params, "status 必须是数值编码"
		}
		status, valid := entity.ParseStatus(code)
		if !valid {
			return params, "未知状态编码: " + raw
		}
		params.Status = &status
	}
	return params, ""
}
