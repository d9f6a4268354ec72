package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// InvoiceService 销售月度结算
// 每月 10 日汇总上月进入打包/发货的订单，每（销售，账期）只生成一张
type InvoiceService struct {
	invoiceRepo *repository.InvoiceRepository
	orderRepo   *repository.OrderRepository
	logger      *zap.Logger
}

func NewInvoiceService(invoiceRepo *repository.InvoiceRepository, orderRepo *repository.OrderRepository, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{invoiceRepo: invoiceRepo, orderRepo: orderRepo, logger: logger}
}

// RunMonthly 生成指定账期的全部销售结算单，已存在的跳过
func (s *InvoiceService) RunMonthly(ctx context.Context, year int, month time.Month) (int, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	to := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0).Format("2006-01-02")

	sellers, err := s.orderRepo.ListSellersWithShipped(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("查询发货销售失败: %w", err)
	}

	created := 0
	for _, sellerID := range sellers {
		exists, err := s.invoiceRepo.ExistsForPeriod(ctx, sellerID, year, int(month))
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		orders, err := s.orderRepo.ListShippedBySeller(ctx, sellerID, from, to)
		if err != nil {
			return created, err
		}
		if len(orders) == 0 {
			continue
		}

		invoice := &entity.SellerInvoice{
			ID:          uuid.New().String()[:32],
			Code:        fmt.Sprintf("INV-%04d%02d-%s", year, int(month), sellerID),
			SellerID:    sellerID,
			PeriodYear:  year,
			PeriodMonth: int(month),
			Status:      entity.InvoiceStatusDraft,
		}
		for _, order := range orders {
			invoice.OrderCount++
			invoice.TotalAmount += order.TotalAmount
			invoice.Items = append(invoice.Items, entity.SellerInvoiceItem{
				ID:        uuid.New().String()[:32],
				InvoiceID: invoice.ID,
				OrderID:   order.ID,
				OrderCode: order.OrderCode,
				Amount:    order.TotalAmount,
			})
		}
		if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
			return created, fmt.Errorf("创建结算单失败: %w", err)
		}
		created++
		s.logger.Info("seller invoice created",
			zap.String("seller_id", sellerID),
			zap.String("code", invoice.Code),
			zap.Int("orders", invoice.OrderCount),
			zap.Float64("total", invoice.TotalAmount))
	}
	return created, nil
}

// Export 导出结算单 Excel
func (s *InvoiceService) Export(ctx context.Context, invoiceID string) (*excelize.File, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Invoice"
	f.SetSheetName("Sheet1", sheet)
	f.SetCellValue(sheet, "A1", "结算单号")
	f.SetCellValue(sheet, "B1", invoice.Code)
	f.SetCellValue(sheet, "A2", "销售")
	f.SetCellValue(sheet, "B2", invoice.SellerID)
	f.SetCellValue(sheet, "A3", "账期")
	f.SetCellValue(sheet, "B3", fmt.Sprintf("%04d-%02d", invoice.PeriodYear, invoice.PeriodMonth))

	headers := []string{"订单号", "金额"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 5)
		f.SetCellValue(sheet, cell, h)
	}
	row := 6
	for _, item := range invoice.Items {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.OrderCode)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.Amount)
		row++
	}
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "合计")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), invoice.TotalAmount)
	return f, nil
}

func (s *InvoiceService) List(ctx context.Context, sellerID string, page, size int) ([]entity.SellerInvoice, int64, error) {
	return s.invoiceRepo.List(ctx, sellerID, page, size)
}
