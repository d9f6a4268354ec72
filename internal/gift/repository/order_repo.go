package repository

import (
	"context"
	"errors"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).Preload("Details").Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.ErrNotFound{Resource: "order", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) Update(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

type OrderListParams struct {
	SellerID string
	Status   *entity.ProductionStatus
	Keyword  string
	Page     int
	Size     int
}

func (r *OrderRepository) List(ctx context.Context, params OrderListParams) ([]entity.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{})
	if params.SellerID != "" {
		query = query.Where("seller_id = ?", params.SellerID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Keyword != "" {
		query = query.Where("order_code LIKE ?", "%"+params.Keyword+"%")
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
	var orders []entity.Order
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&orders).Error
	return orders, total, err
}

func (r *OrderRepository) GetDetailByID(ctx context.Context, id string) (*entity.OrderDetail, error) {
	var detail entity.OrderDetail
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&detail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.ErrNotFound{Resource: "order detail", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetDetailForUpdate 行锁加载明细，用于串行化同一明细的并发状态流转
// sqlite 不支持 FOR UPDATE，退化为普通读（单连接场景下等价）
func (r *OrderRepository) GetDetailForUpdate(tx *gorm.DB, id string) (*entity.OrderDetail, error) {
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var detail entity.OrderDetail
	err := tx.Where("id = ?", id).First(&detail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.ErrNotFound{Resource: "order detail", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *OrderRepository) UpdateDetail(ctx context.Context, detail *entity.OrderDetail) error {
	return r.db.WithContext(ctx).Save(detail).Error
}

func (r *OrderRepository) ListDetailsByOrder(ctx context.Context, orderID string) ([]entity.OrderDetail, error) {
	var details []entity.OrderDetail
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).
		Order("created_at ASC").Find(&details).Error
	return details, err
}

// FindEligibleForGrouping 查询可排产的明细（认领谓词）：
// 待生产或生产返工，且未被任何活跃认领记录占用
func (r *OrderRepository) FindEligibleForGrouping(ctx context.Context) ([]entity.OrderDetail, error) {
	var details []entity.OrderDetail
	err := r.db.WithContext(ctx).
		Where("status IN ?", []entity.ProductionStatus{entity.StatusReadyProd, entity.StatusProdRework}).
		Where("id NOT IN (?)",
			r.db.Model(&entity.PlanClaim{}).Select("order_detail_id")).
		Order("created_at ASC").
		Find(&details).Error
	return details, err
}

// ListShippedBySeller 查询某销售在指定时间段内进入打包/发货的订单
func (r *OrderRepository) ListShippedBySeller(ctx context.Context, sellerID string, from, to string) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND status = ? AND updated_at >= ? AND updated_at < ?",
			sellerID, entity.StatusPacking, from, to).
		Find(&orders).Error
	return orders, err
}

// ListSellersWithShipped 指定时间段内有发货订单的销售
func (r *OrderRepository) ListSellersWithShipped(ctx context.Context, from, to string) ([]string, error) {
	var sellers []string
	err := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("status = ? AND updated_at >= ? AND updated_at < ?", entity.StatusPacking, from, to).
		Distinct("seller_id").
		Pluck("seller_id", &sellers).Error
	return sellers, err
}

// DB 返回底层db用于事务
func (r *OrderRepository) DB() *gorm.DB {
	return r.db
}
