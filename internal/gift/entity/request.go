package entity

import (
	"time"
)

// 售后申请类型
const (
	RequestKindRefund  = "REFUND"
	RequestKindReprint = "REPRINT"
)

// 售后申请范围
const (
	RequestScopeOrder  = "ORDER_WIDE" // 整单
	RequestScopeDetail = "DETAIL"     // 指定明细
)

// 售后申请状态：单次终审，审批后不再变更
const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusRejected = "REJECTED"
)

// AfterSaleRequest 退款/重印申请
// 明细范围的退款金额不得超过明细原价之和；整单退款不得超过全部明细原价之和
type AfterSaleRequest struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	Code    string `json:"code" gorm:"size:32;uniqueIndex;not null"` // RFD-/RPT-2024-0001
	Kind    string `json:"kind" gorm:"size:20;not null;index"`
	OrderID string `json:"order_id" gorm:"size:32;not null;index"`
	Scope   string `json:"scope" gorm:"size:20;not null"`

	Amount            float64 `json:"amount" gorm:"type:decimal(12,2);default:0"` // 仅退款
	Reason            string  `json:"reason" gorm:"type:text;not null"`
	ProofFileURL      string  `json:"proof_file_url" gorm:"size:500"`
	NeedsDesignChange bool    `json:"needs_design_change" gorm:"default:false"` // 仅重印
	DesignFileURL     string  `json:"design_file_url" gorm:"size:500"`

	Status         string     `json:"status" gorm:"size:20;not null;default:PENDING;index"`
	RequestedBy    string     `json:"requested_by" gorm:"size:64;not null"`
	ReviewerID     *string    `json:"reviewer_id" gorm:"size:64"`
	ReviewerReason string     `json:"reviewer_reason" gorm:"type:text"`
	DecidedAt      *time.Time `json:"decided_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Items []AfterSaleItem `json:"items,omitempty" gorm:"foreignKey:RequestID"`
	Order *Order          `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}

func (AfterSaleRequest) TableName() string {
	return "gift_after_sale_requests"
}

// AfterSaleItem 明细范围申请所指向的订单明细
type AfterSaleItem struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	RequestID     string    `json:"request_id" gorm:"size:32;not null;index"`
	OrderDetailID string    `json:"order_detail_id" gorm:"size:32;not null;index"`
	UnitPrice     float64   `json:"unit_price" gorm:"type:decimal(12,2)"` // 申请时的原价快照
	Quantity      int       `json:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

func (AfterSaleItem) TableName() string {
	return "gift_after_sale_items"
}
