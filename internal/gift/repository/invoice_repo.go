package repository

import (
	"context"
	"errors"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"gorm.io/gorm"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.SellerInvoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.SellerInvoice, error) {
	var invoice entity.SellerInvoice
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.ErrNotFound{Resource: "seller invoice", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ExistsForPeriod 指定销售与账期是否已生成结算单
func (r *InvoiceRepository) ExistsForPeriod(ctx context.Context, sellerID string, year, month int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.SellerInvoice{}).
		Where("seller_id = ? AND period_year = ? AND period_month = ?", sellerID, year, month).
		Count(&count).Error
	return count > 0, err
}

func (r *InvoiceRepository) List(ctx context.Context, sellerID string, page, size int) ([]entity.SellerInvoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.SellerInvoice{})
	if sellerID != "" {
		query = query.Where("seller_id = ?", sellerID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	var invoices []entity.SellerInvoice
	err := query.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&invoices).Error
	return invoices, total, err
}
