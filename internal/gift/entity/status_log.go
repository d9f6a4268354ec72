package entity

import "time"

// 审计对象类型
const (
	LogEntityOrderDetail = "order_detail"
	LogEntityPlanDetail  = "plan_detail"
	LogEntityRequest     = "request"
)

// 审计动作
const (
	LogActionStatusChange  = "status_change"
	LogActionClaim         = "claim"
	LogActionQCCheck       = "qc_check"
	LogActionReview        = "review"
	LogActionReprintReopen = "reprint_reopen"
)

// StatusLog 状态变更审计日志
// 同一明细的日志顺序即其状态流转顺序；质检驳回历史展示给设计/销售依赖此表
type StatusLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:30;not null;index:idx_status_log_entity"`
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_status_log_entity"`
	Action     string `json:"action" gorm:"size:30;not null"`
	FromStatus *ProductionStatus `json:"from_status"`
	ToStatus   *ProductionStatus `json:"to_status"`
	Reason     string    `json:"reason" gorm:"type:text"`
	ActorID    string    `json:"actor_id" gorm:"size:64;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (StatusLog) TableName() string {
	return "gift_status_logs"
}
