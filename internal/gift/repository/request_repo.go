package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"gorm.io/gorm"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, req *entity.AfterSaleRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.AfterSaleRequest, error) {
	var req entity.AfterSaleRequest
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.ErrNotFound{Resource: "after-sale request", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

type RequestListParams struct {
	OrderID string
	Kind    string
	Status  string
	Page    int
	Size    int
}

func (r *RequestRepository) List(ctx context.Context, params RequestListParams) ([]entity.AfterSaleRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.AfterSaleRequest{})
	if params.OrderID != "" {
		query = query.Where("order_id = ?", params.OrderID)
	}
	if params.Kind != "" {
		query = query.Where("kind = ?", params.Kind)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var requests []entity.AfterSaleRequest
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&requests).Error
	return requests, total, err
}

// Decide 乐观终审：仅当仍为 PENDING 时写入决定
// 两个审阅人并发提交时只有一方的条件更新生效
func (r *RequestRepository) Decide(tx *gorm.DB, id, newStatus, reviewerID, reviewerReason string) error {
	now := time.Now()
	res := tx.Model(&entity.AfterSaleRequest{}).
		Where("id = ? AND status = ?", id, entity.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":          newStatus,
			"reviewer_id":     reviewerID,
			"reviewer_reason": reviewerReason,
			"decided_at":      now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var existing entity.AfterSaleRequest
		if err := tx.Where("id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperr.ErrNotFound{Resource: "after-sale request", ID: id}
			}
			return err
		}
		return &apperr.ErrAlreadyDecided{RequestID: id, Status: existing.Status}
	}
	return nil
}

// DB 返回底层db用于事务
func (r *RequestRepository) DB() *gorm.DB {
	return r.db
}
