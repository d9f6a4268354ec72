package entity

import (
	"time"
)

// Order 礼品定制订单
// 聚合状态 Status 永远由明细状态推导，不单独修改；订单不物理删除，取消为终态
type Order struct {
	ID          string           `json:"id" gorm:"primaryKey;size:32"`
	OrderCode   string           `json:"order_code" gorm:"size:50;not null;uniqueIndex"`
	SellerID    string           `json:"seller_id" gorm:"size:64;not null;index"`
	CustomerID  string           `json:"customer_id" gorm:"size:64;not null;index"`
	Status      ProductionStatus `json:"status" gorm:"not null;default:0;index"`
	TotalAmount float64          `json:"total_amount" gorm:"type:decimal(12,2);default:0"`
	ShippingFee float64          `json:"shipping_fee" gorm:"type:decimal(12,2);default:0"`
	Currency    string           `json:"currency" gorm:"size:10;not null;default:USD"`
	ShippedAt   *time.Time       `json:"shipped_at"`
	Notes       string           `json:"notes" gorm:"type:text"`
	CreatedBy   string           `json:"created_by" gorm:"size:64;not null"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	Details []OrderDetail `json:"details,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "gift_orders"
}

// OrderDetail 订单明细（一个产品变体 + 数量）
// 生产开始后不再删除；同一时刻至多被一个未关闭的 PlanDetail 认领
type OrderDetail struct {
	ID           string           `json:"id" gorm:"primaryKey;size:32"`
	OrderID      string           `json:"order_id" gorm:"size:32;not null;index"`
	ProductID    string           `json:"product_id" gorm:"size:32;not null"`
	ProductName  string           `json:"product_name" gorm:"size:200"`
	VariantDesc  string           `json:"variant_desc" gorm:"size:200"`
	CategoryID   string           `json:"category_id" gorm:"size:32;not null;index"`
	CategoryName string           `json:"category_name" gorm:"size:100"`
	Quantity     int              `json:"quantity" gorm:"not null"`
	UnitPrice    float64          `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Amount       float64          `json:"amount" gorm:"type:decimal(12,2);not null"`
	Status       ProductionStatus `json:"status" gorm:"not null;default:0;index"`
	HeldFrom     *ProductionStatus `json:"held_from"` // 挂起前的状态，恢复目标
	DesignerID   string           `json:"designer_id" gorm:"size:64"`
	ReworkCount  int              `json:"rework_count" gorm:"default:0"`

	// 文件链接由文件存储协作方提供，本核心不解释其内容
	DesignFileURL     string `json:"design_file_url" gorm:"size:500"`
	ReferenceFileURL  string `json:"reference_file_url" gorm:"size:500"`
	ProductionFileURL string `json:"production_file_url" gorm:"size:500"`
	ThankYouCardURL   string `json:"thank_you_card_url" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Order *Order `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}

func (OrderDetail) TableName() string {
	return "gift_order_details"
}
