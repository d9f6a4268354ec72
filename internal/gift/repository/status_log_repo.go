package repository

import (
	"context"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusLogRepository 状态审计日志仓库
type StatusLogRepository struct {
	db *gorm.DB
}

func NewStatusLogRepository(db *gorm.DB) *StatusLogRepository {
	return &StatusLogRepository{db: db}
}

func (r *StatusLogRepository) Create(ctx context.Context, log *entity.StatusLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// LogTransition 在事务内记录一次状态流转
func (r *StatusLogRepository) LogTransition(tx *gorm.DB, entityType, entityID, action string, from, to *entity.ProductionStatus, reason, actorID string) error {
	log := &entity.StatusLog{
		ID:         uuid.New().String()[:32],
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		ActorID:    actorID,
	}
	return tx.Create(log).Error
}

// FindByEntity 查询某实体的审计日志，按时间升序（即流转顺序）
func (r *StatusLogRepository) FindByEntity(ctx context.Context, entityType, entityID string) ([]entity.StatusLog, error) {
	var logs []entity.StatusLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
