package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// FindOrCreateOpen 按（品类，日期）键查找或创建生产批次
// 键上有唯一索引，并发首次认领用 ON CONFLICT DO NOTHING 落败后重查；
// postgres 下失败的 INSERT 会让整个事务进入中止态，不能靠捕获冲突错误兜底
func (r *PlanRepository) FindOrCreateOpen(tx *gorm.DB, categoryID, categoryName, productionDate, createdBy string) (*entity.Plan, error) {
	var plan entity.Plan
	err := tx.Where("category_id = ? AND production_date = ?", categoryID, productionDate).
		First(&plan).Error
	if err == nil {
		if plan.Status == entity.PlanStatusClosed {
			plan.Status = entity.PlanStatusOpen
			if err := tx.Save(&plan).Error; err != nil {
				return nil, err
			}
		}
		return &plan, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	plan = entity.Plan{
		ID:             uuid.New().String()[:32],
		PlanCode:       fmt.Sprintf("PLAN-%s-%s", productionDate, uuid.New().String()[:8]),
		CategoryID:     categoryID,
		CategoryName:   categoryName,
		ProductionDate: productionDate,
		Status:         entity.PlanStatusOpen,
		CreatedBy:      createdBy,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&plan)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// 被并发认领方抢先创建，重查取用
		var existing entity.Plan
		if err := tx.Where("category_id = ? AND production_date = ?", categoryID, productionDate).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return &plan, nil
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*entity.Plan, error) {
	var plan entity.Plan
	err := r.db.WithContext(ctx).Preload("Details").Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.ErrNotFound{Resource: "plan", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) Update(ctx context.Context, plan *entity.Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *PlanRepository) CreateDetail(tx *gorm.DB, detail *entity.PlanDetail) error {
	return tx.Create(detail).Error
}

func (r *PlanRepository) GetDetailByID(ctx context.Context, id string) (*entity.PlanDetail, error) {
	var detail entity.PlanDetail
	err := r.db.WithContext(ctx).Preload("Plan").Preload("OrderDetail").Preload("QCChecks").
		Where("id = ?", id).First(&detail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.ErrNotFound{Resource: "plan detail", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *PlanRepository) UpdateDetail(ctx context.Context, detail *entity.PlanDetail) error {
	return r.db.WithContext(ctx).Save(detail).Error
}

// CloseDetail 关闭认领记录并移除活跃认领索引行
func (r *PlanRepository) CloseDetail(tx *gorm.DB, detail *entity.PlanDetail) error {
	now := time.Now()
	detail.Closed = true
	detail.ClosedAt = &now
	if err := tx.Save(detail).Error; err != nil {
		return err
	}
	return tx.Where("order_detail_id = ?", detail.OrderDetailID).
		Delete(&entity.PlanClaim{}).Error
}

// CreateClaim 写入活跃认领索引，唯一索引冲突返回 ErrAlreadyClaimed
// 同样用 ON CONFLICT DO NOTHING，冲突不污染所在事务
func (r *PlanRepository) CreateClaim(tx *gorm.DB, claim *entity.PlanClaim) error {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(claim)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var existing entity.PlanClaim
		if err := tx.Where("order_detail_id = ?", claim.OrderDetailID).
			First(&existing).Error; err != nil {
			return err
		}
		return &apperr.ErrAlreadyClaimed{
			OrderDetailID: claim.OrderDetailID,
			PlanDetailID:  existing.PlanDetailID,
		}
	}
	return nil
}

func (r *PlanRepository) GetClaimByOrderDetail(ctx context.Context, orderDetailID string) (*entity.PlanClaim, error) {
	var claim entity.PlanClaim
	err := r.db.WithContext(ctx).Where("order_detail_id = ?", orderDetailID).First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// ListDetailsByOrderDetail 返回某明细的全部认领记录（含历史），按创建时间升序
func (r *PlanRepository) ListDetailsByOrderDetail(ctx context.Context, orderDetailID string) ([]entity.PlanDetail, error) {
	var details []entity.PlanDetail
	err := r.db.WithContext(ctx).Where("order_detail_id = ?", orderDetailID).
		Order("created_at ASC").Find(&details).Error
	return details, err
}

func (r *PlanRepository) CreateQCCheck(tx *gorm.DB, check *entity.QCCheck) error {
	return tx.Create(check).Error
}

type ProductionViewParams struct {
	CategoryID   string
	SelectedDate string
	Status       *entity.ProductionStatus
}

// ProductionView 车间生产视图：活跃认领记录及其批次、订单明细
func (r *PlanRepository) ProductionView(ctx context.Context, params ProductionViewParams) ([]entity.PlanDetail, error) {
	query := r.db.WithContext(ctx).Model(&entity.PlanDetail{}).
		Preload("Plan").Preload("OrderDetail").
		Joins("JOIN gift_plans ON gift_plans.id = gift_plan_details.plan_id").
		Where("gift_plan_details.closed = ?", false)
	if params.CategoryID != "" {
		query = query.Where("gift_plans.category_id = ?", params.CategoryID)
	}
	if params.SelectedDate != "" {
		query = query.Where("gift_plans.production_date = ?", params.SelectedDate)
	}
	if params.Status != nil {
		query = query.Where("gift_plan_details.floor_status = ?", *params.Status)
	}
	var details []entity.PlanDetail
	err := query.Order("gift_plans.production_date ASC, gift_plan_details.created_at ASC").
		Find(&details).Error
	return details, err
}

// CountOpenDetails 批次内未关闭且未到达终点车间状态的认领记录数
func (r *PlanRepository) CountOpenDetails(tx *gorm.DB, planID string) (int64, error) {
	var count int64
	err := tx.Model(&entity.PlanDetail{}).
		Where("plan_id = ? AND closed = ? AND floor_status NOT IN ?",
			planID, false, []entity.ProductionStatus{entity.StatusQCDone, entity.StatusPacking}).
		Count(&count).Error
	return count, err
}

// DB 返回底层db用于事务
func (r *PlanRepository) DB() *gorm.DB {
	return r.db
}
