package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"github.com/google/uuid"
)

// OrderService 订单创建与查询
type OrderService struct {
	orderRepo *repository.OrderRepository
	logRepo   *repository.StatusLogRepository
}

func NewOrderService(orderRepo *repository.OrderRepository, logRepo *repository.StatusLogRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo, logRepo: logRepo}
}

// CreateOrderDetailInput 订单明细
type CreateOrderDetailInput struct {
	ProductID        string  `json:"product_id" binding:"required"`
	ProductName      string  `json:"product_name" binding:"required"`
	VariantDesc      string  `json:"variant_desc"`
	CategoryID       string  `json:"category_id" binding:"required"`
	CategoryName     string  `json:"category_name"`
	Quantity         int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice        float64 `json:"unit_price" binding:"required,gt=0"`
	DesignerID       string  `json:"designer_id"`
	ReferenceFileURL string  `json:"reference_file_url"`
}

// CreateOrderInput 创建订单
type CreateOrderInput struct {
	SellerID    string                   `json:"seller_id" binding:"required"`
	CustomerID  string                   `json:"customer_id" binding:"required"`
	Currency    string                   `json:"currency"`
	ShippingFee float64                  `json:"shipping_fee"`
	Notes       string                   `json:"notes"`
	Details     []CreateOrderDetailInput `json:"details" binding:"required,min=1,dive"`
}

// Create 创建订单及其明细，初始状态为已创建
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput, actor string) (*entity.Order, error) {
	if len(input.Details) == 0 {
		return nil, &apperr.ErrValidation{Message: "订单必须至少包含一条明细"}
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}
	order := &entity.Order{
		ID:          uuid.New().String()[:32],
		OrderCode:   fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), uuid.New().String()[:8]),
		SellerID:    input.SellerID,
		CustomerID:  input.CustomerID,
		Status:      entity.StatusCreated,
		ShippingFee: input.ShippingFee,
		Currency:    currency,
		Notes:       input.Notes,
		CreatedBy:   actor,
	}

	var total float64
	for _, d := range input.Details {
		amount := float64(d.Quantity) * d.UnitPrice
		total += amount
		order.Details = append(order.Details, entity.OrderDetail{
			ID:               uuid.New().String()[:32],
			OrderID:          order.ID,
			ProductID:        d.ProductID,
			ProductName:      d.ProductName,
			VariantDesc:      d.VariantDesc,
			CategoryID:       d.CategoryID,
			CategoryName:     d.CategoryName,
			Quantity:         d.Quantity,
			UnitPrice:        d.UnitPrice,
			Amount:           amount,
			Status:           entity.StatusCreated,
			DesignerID:       d.DesignerID,
			ReferenceFileURL: d.ReferenceFileURL,
		})
	}
	order.TotalAmount = total + input.ShippingFee

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("创建订单失败: %w", err)
	}
	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return s.orderRepo.GetByID(ctx, id)
}

func (s *OrderService) List(ctx context.Context, params repository.OrderListParams) ([]entity.Order, int64, error) {
	return s.orderRepo.List(ctx, params)
}

// StatusHistory 明细状态审计历史
func (s *OrderService) StatusHistory(ctx context.Context, detailID string) ([]entity.StatusLog, error) {
	if _, err := s.orderRepo.GetDetailByID(ctx, detailID); err != nil {
		return nil, err
	}
	return s.logRepo.FindByEntity(ctx, entity.LogEntityOrderDetail, detailID)
}
