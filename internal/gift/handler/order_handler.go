package handler

import (
	"strconv"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/internal/gift/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderSvc  *service.OrderService
	statusSvc *service.StatusService
	qcSvc     *service.QCService
}

func NewOrderHandler(orderSvc *service.OrderService, statusSvc *service.StatusService, qcSvc *service.QCService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, statusSvc: statusSvc, qcSvc: qcSvc}
}

// Create 创建订单
// POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var input service.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	order, err := h.orderSvc.Create(c.Request.Context(), input, c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// Get 订单详情
// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orderSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// List 订单列表
// GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := repository.OrderListParams{
		SellerID: c.Query("seller_id"),
		Keyword:  c.Query("keyword"),
		Page:     page,
		Size:     size,
	}
	if raw := c.Query("status"); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "status 必须是数值编码")
			return
		}
		status, valid := entity.ParseStatus(code)
		if !valid {
			badRequest(c, "未知状态编码: "+raw)
			return
		}
		params.Status = &status
	}
	orders, total, err := h.orderSvc.List(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": orders, "total": total, "page": page, "size": size})
}

// UpdateDetailStatus 明细状态流转
// PUT /order-details/:detailId/status
func (h *OrderHandler) UpdateDetailStatus(c *gin.Context) {
	var req struct {
		NewStatus int    `json:"new_status" binding:"min=0"`
		Reason    string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	status, valid := entity.ParseStatus(req.NewStatus)
	if !valid {
		badRequest(c, "未知状态编码")
		return
	}
	detail, err := h.statusSvc.ApplyDetailTransition(c.Request.Context(),
		c.Param("detailId"), status, c.GetString("user_id"), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, detail)
}

// StatusHistory 明细状态审计历史
// GET /order-details/:detailId/history
func (h *OrderHandler) StatusHistory(c *gin.Context) {
	logs, err := h.orderSvc.StatusHistory(c.Request.Context(), c.Param("detailId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, logs)
}

// ApproveShipping 整单放行发货
// POST /orders/:id/approve-shipping
func (h *OrderHandler) ApproveShipping(c *gin.Context) {
	if err := h.qcSvc.ApproveForShipping(c.Request.Context(), c.Param("id"), c.GetString("user_id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}
