package entity

import (
	"time"
)

// PlanStatus 生产批次状态
const (
	PlanStatusOpen   = "OPEN"
	PlanStatusClosed = "CLOSED"
)

// Plan 生产批次，按（品类，生产日期）分组创建
// 同一（品类，日期）键唯一，并发首次认领依赖该唯一索引做 find-or-create
type Plan struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	PlanCode       string    `json:"plan_code" gorm:"size:50;not null;uniqueIndex"`
	CategoryID     string    `json:"category_id" gorm:"size:32;not null;uniqueIndex:idx_plan_partition"`
	CategoryName   string    `json:"category_name" gorm:"size:100"`
	ProductionDate string    `json:"production_date" gorm:"size:10;not null;uniqueIndex:idx_plan_partition"` // YYYY-MM-DD
	Status         string    `json:"status" gorm:"size:20;not null;default:OPEN"`
	TotalItems     int       `json:"total_items" gorm:"default:0"`
	CreatedBy      string    `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Details []PlanDetail `json:"details,omitempty" gorm:"foreignKey:PlanID"`
}

func (Plan) TableName() string {
	return "gift_plans"
}

// PlanDetail 认领记录，关联一条订单明细与一个生产批次
// 返工重新认领时创建新记录并关闭旧记录，保留返工历史；不删除
type PlanDetail struct {
	ID            string           `json:"id" gorm:"primaryKey;size:32"`
	PlanID        string           `json:"plan_id" gorm:"size:32;not null;index"`
	OrderDetailID string           `json:"order_detail_id" gorm:"size:32;not null;index"`
	FloorStatus   ProductionStatus `json:"floor_status" gorm:"not null;default:6"` // 车间状态
	FinishedQty   int              `json:"finished_qty" gorm:"default:0"`
	Round         int              `json:"round" gorm:"default:1"` // 第几轮生产（含返工）
	Closed        bool             `json:"closed" gorm:"default:false;index"`
	ClosedAt      *time.Time       `json:"closed_at"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	Plan        *Plan        `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
	OrderDetail *OrderDetail `json:"order_detail,omitempty" gorm:"foreignKey:OrderDetailID"`
	QCChecks    []QCCheck    `json:"qc_checks,omitempty" gorm:"foreignKey:PlanDetailID"`
}

func (PlanDetail) TableName() string {
	return "gift_plan_details"
}

// PlanClaim 订单明细 → 活跃认领记录 索引
// order_detail_id 上的唯一索引使重复认领在结构上不可能发生；
// 认领记录关闭（质检不合格、取消）时删除对应行
type PlanClaim struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	OrderDetailID string    `json:"order_detail_id" gorm:"size:32;not null;uniqueIndex"`
	PlanDetailID  string    `json:"plan_detail_id" gorm:"size:32;not null"`
	PlanID        string    `json:"plan_id" gorm:"size:32;not null;index"`
	CreatedAt     time.Time `json:"created_at"`
}

func (PlanClaim) TableName() string {
	return "gift_plan_claims"
}

// QCCheck 质检记录，创建后不可变更
type QCCheck struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	PlanDetailID string    `json:"plan_detail_id" gorm:"size:32;not null;index"`
	CheckedQty   int       `json:"checked_qty" gorm:"not null"`
	PassedQty    int       `json:"passed_qty" gorm:"not null"`
	FailedQty    int       `json:"failed_qty" gorm:"not null"`
	Remark       string    `json:"remark" gorm:"type:text"`
	InspectorID  string    `json:"inspector_id" gorm:"size:64;not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (QCCheck) TableName() string {
	return "gift_qc_checks"
}
