package repository

import "gorm.io/gorm"

// Repositories 仓库集合
type Repositories struct {
	Order     *OrderRepository
	Plan      *PlanRepository
	Request   *RequestRepository
	Invoice   *InvoiceRepository
	StatusLog *StatusLogRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:     NewOrderRepository(db),
		Plan:      NewPlanRepository(db),
		Request:   NewRequestRepository(db),
		Invoice:   NewInvoiceRepository(db),
		StatusLog: NewStatusLogRepository(db),
	}
}
