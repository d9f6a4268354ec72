package handler

import (
	"errors"
	"net/http"

	"github.com/dyann2003/cbgift/internal/gift/service"
	"github.com/dyann2003/cbgift/internal/storage"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// Handlers HTTP处理器集合
type Handlers struct {
	Order   *OrderHandler
	Plan    *PlanHandler
	Request *RequestHandler
	Invoice *InvoiceHandler
	File    *FileHandler
}

func NewHandlers(services *service.Services, store *storage.FileStore) *Handlers {
	return &Handlers{
		Order:   NewOrderHandler(services.Order, services.Status, services.QC),
		Plan:    NewPlanHandler(services.Planner, services.QC),
		Request: NewRequestHandler(services.Request),
		Invoice: NewInvoiceHandler(services.Invoice),
		File:    NewFileHandler(store),
	}
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": message})
}

// fail 按错误类型映射响应码，前置条件错误附带阻塞明细清单
func fail(c *gin.Context, err error) {
	var notFound *apperr.ErrNotFound
	var invalidTransition *apperr.ErrInvalidStateTransition
	var alreadyDecided *apperr.ErrAlreadyDecided
	var precondition *apperr.ErrPreconditionFailed
	var validation *apperr.ErrValidation

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
	case errors.As(err, &invalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10003, "message": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
	case errors.As(err, &alreadyDecided):
		c.JSON(http.StatusConflict, gin.H{"code": 10005, "message": err.Error()})
	case errors.As(err, &precondition):
		c.JSON(http.StatusConflict, gin.H{
			"code":    10006,
			"message": precondition.Message,
			"data":    gin.H{"blocking_detail_ids": precondition.BlockingIDs},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}
