package entity

import "time"

// 结算单状态
const (
	InvoiceStatusDraft  = "DRAFT"
	InvoiceStatusIssued = "ISSUED"
)

// SellerInvoice 销售月度结算单
// 每月 10 日按上月已发货订单汇总，每（销售，账期）至多一张
type SellerInvoice struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Code        string    `json:"code" gorm:"size:32;uniqueIndex;not null"` // INV-202401-S001
	SellerID    string    `json:"seller_id" gorm:"size:64;not null;uniqueIndex:idx_invoice_period"`
	PeriodYear  int       `json:"period_year" gorm:"not null;uniqueIndex:idx_invoice_period"`
	PeriodMonth int       `json:"period_month" gorm:"not null;uniqueIndex:idx_invoice_period"`
	OrderCount  int       `json:"order_count" gorm:"default:0"`
	TotalAmount float64   `json:"total_amount" gorm:"type:decimal(12,2);default:0"`
	Status      string    `json:"status" gorm:"size:20;not null;default:DRAFT"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Items []SellerInvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
}

func (SellerInvoice) TableName() string {
	return "gift_seller_invoices"
}

// SellerInvoiceItem 结算单明细行
type SellerInvoiceItem struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	InvoiceID string    `json:"invoice_id" gorm:"size:32;not null;index"`
	OrderID   string    `json:"order_id" gorm:"size:32;not null"`
	OrderCode string    `json:"order_code" gorm:"size:50"`
	Amount    float64   `json:"amount" gorm:"type:decimal(12,2)"`
	CreatedAt time.Time `json:"created_at"`
}

func (SellerInvoiceItem) TableName() string {
	return "gift_seller_invoice_items"
}
