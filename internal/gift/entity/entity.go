package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有订单生产表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 订单
		&Order{},
		&OrderDetail{},

		// 生产批次
		&Plan{},
		&PlanDetail{},
		&PlanClaim{},
		&QCCheck{},

		// 售后
		&AfterSaleRequest{},
		&AfterSaleItem{},

		// 结算
		&SellerInvoice{},
		&SellerInvoiceItem{},

		// 审计
		&StatusLog{},
	)
}
