package handler

import (
	"strconv"

	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/internal/gift/service"
	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	svc *service.RequestService
}

func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// Create 创建退款/重印申请
// POST /requests
func (h *RequestHandler) Create(c *gin.Context) {
	var input service.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	req, err := h.svc.CreateRequest(c.Request.Context(), input, c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, req)
}

// Get 申请详情
// GET /requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, req)
}

// List 申请列表
// GET /requests
func (h *RequestHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	requests, total, err := h.svc.List(c.Request.Context(), repository.RequestListParams{
		OrderID: c.Query("order_id"),
		Kind:    c.Query("kind"),
		Status:  c.Query("status"),
		Page:    page,
		Size:    size,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": requests, "total": total, "page": page, "size": size})
}

// Review 终审申请
// POST /requests/:id/review
func (h *RequestHandler) Review(c *gin.Context) {
	var req struct {
		Approved *bool  `json:"approved" binding:"required"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := h.svc.Review(c.Request.Context(), c.Param("id"),
		*req.Approved, req.Reason, c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}
