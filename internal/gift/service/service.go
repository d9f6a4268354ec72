package service

import (
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Order   *OrderService
	Status  *StatusService
	Planner *PlannerService
	QC      *QCService
	Request *RequestService
	Invoice *InvoiceService
}

func NewServices(repos *repository.Repositories, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *Services {
	statusSvc := NewStatusService(repos.Order, repos.Plan, repos.StatusLog, db)
	return &Services{
		Order:   NewOrderService(repos.Order, repos.StatusLog),
		Status:  statusSvc,
		Planner: NewPlannerService(repos.Order, repos.Plan, repos.StatusLog, statusSvc, rdb, db, logger),
		QC:      NewQCService(repos.Order, repos.Plan, repos.StatusLog, statusSvc, db),
		Request: NewRequestService(repos.Request, repos.Order, repos.StatusLog, statusSvc, db, logger),
		Invoice: NewInvoiceService(repos.Invoice, repos.Order, logger),
	}
}
