package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dyann2003/cbgift/internal/gift/service"
	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	svc *service.InvoiceService
}

func NewInvoiceHandler(svc *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// Run 手动触发月度结算，默认上一个自然月
// POST /invoices/run?year=&month=
func (h *InvoiceHandler) Run(c *gin.Context) {
	prev := time.Now().AddDate(0, -1, 0)
	year, _ := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(prev.Year())))
	month, _ := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(prev.Month()))))
	if month < 1 || month > 12 {
		badRequest(c, "month 必须在 1-12 之间")
		return
	}
	created, err := h.svc.RunMonthly(c.Request.Context(), year, time.Month(month))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"created": created})
}

// List 结算单列表
// GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	invoices, total, err := h.svc.List(c.Request.Context(), c.Query("seller_id"), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": invoices, "total": total, "page": page, "size": size})
}

// Export 导出结算单 Excel
// GET /invoices/:id/export
func (h *InvoiceHandler) Export(c *gin.Context) {
	f, err := h.svc.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	filename := fmt.Sprintf("invoice-%s.xlsx", c.Param("id"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
