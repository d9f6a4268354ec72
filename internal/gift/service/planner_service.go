package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 排产运行锁，定时任务与手动触发共用，避免同一逻辑任务重叠执行
const groupingLockTTL = 5 * time.Minute

// PlannerService 排产分组服务
// 选出待生产且未被认领的明细，按（品类，生产日期）分组，
// 为每个分组 find-or-create 生产批次并逐条认领；分组之间互不影响
type PlannerService struct {
	orderRepo *repository.OrderRepository
	planRepo  *repository.PlanRepository
	logRepo   *repository.StatusLogRepository
	statusSvc *StatusService
	rdb       *redis.Client
	db        *gorm.DB
	logger    *zap.Logger
}

func NewPlannerService(orderRepo *repository.OrderRepository, planRepo *repository.PlanRepository, logRepo *repository.StatusLogRepository, statusSvc *StatusService, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *PlannerService {
	return &PlannerService{
		orderRepo: orderRepo,
		planRepo:  planRepo,
		logRepo:   logRepo,
		statusSvc: statusSvc,
		rdb:       rdb,
		db:        db,
		logger:    logger,
	}
}

// PartitionResult 单个分组的排产结果
type PartitionResult struct {
	CategoryID     string `json:"category_id"`
	CategoryName   string `json:"category_name"`
	ProductionDate string `json:"production_date"`
	PlanID         string `json:"plan_id,omitempty"`
	Claimed        int    `json:"claimed"`
	Skipped        int    `json:"skipped"`
	Error          string `json:"error,omitempty"`
}

// GroupingReport 一次排产运行的汇总
type GroupingReport struct {
	RunAt        time.Time         `json:"run_at"`
	TargetDate   string            `json:"target_date"`
	Locked       bool              `json:"locked"` // 已有运行持锁，本次未执行
	TotalClaimed int               `json:"total_claimed"`
	Partitions   []PartitionResult `json:"partitions"`
}

// GroupSubmitted 执行一次排产分组
// 候选集在运行开始时一次性取出，运行中途不重查；
// 各分组独立提交，单个分组失败不影响其余分组
func (s *PlannerService) GroupSubmitted(ctx context.Context, targetDate time.Time, actor string) (*GroupingReport, error) {
	report := &GroupingReport{
		RunAt:      time.Now(),
		TargetDate: targetDate.Format("2006-01-02"),
	}

	if s.rdb != nil {
		lockKey := "planner:group:" + report.TargetDate
		ok, err := s.rdb.SetNX(ctx, lockKey, actor, groupingLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("获取排产锁失败: %w", err)
		}
		if !ok {
			report.Locked = true
			s.logger.Info("grouping run already in progress, skipping",
				zap.String("target_date", report.TargetDate))
			return report, nil
		}
		defer s.rdb.Del(context.WithoutCancel(ctx), lockKey)
	}

	eligible, err := s.orderRepo.FindEligibleForGrouping(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询待排产明细失败: %w", err)
	}
	if len(eligible) == 0 {
		return report, nil
	}

	type partitionKey struct {
		CategoryID string
		Date       string
	}
	partitions := make(map[partitionKey][]entity.OrderDetail)
	names := make(map[partitionKey]string)
	var order []partitionKey
	for _, detail := range eligible {
		key := partitionKey{CategoryID: detail.CategoryID, Date: report.TargetDate}
		if _, seen := partitions[key]; !seen {
			order = append(order, key)
			names[key] = detail.CategoryName
		}
		partitions[key] = append(partitions[key], detail)
	}

	for _, key := range order {
		result := s.groupPartition(ctx, key.CategoryID, names[key], key.Date, partitions[key], actor)
		report.Partitions = append(report.Partitions, result)
		report.TotalClaimed += result.Claimed
	}

	s.logger.Info("grouping run finished",
		zap.String("target_date", report.TargetDate),
		zap.Int("eligible", len(eligible)),
		zap.Int("claimed", report.TotalClaimed),
		zap.Int("partitions", len(report.Partitions)))
	return report, nil
}

// groupPartition 单分组事务：find-or-create 批次，逐条创建认领记录
func (s *PlannerService) groupPartition(ctx context.Context, categoryID, categoryName, date string, details []entity.OrderDetail, actor string) PartitionResult {
	result := PartitionResult{
		CategoryID:     categoryID,
		CategoryName:   categoryName,
		ProductionDate: date,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := s.planRepo.FindOrCreateOpen(tx, categoryID, categoryName, date, actor)
		if err != nil {
			return fmt.Errorf("创建生产批次失败: %w", err)
		}
		result.PlanID = plan.ID

		for _, detail := range details {
			// 候选集取出后状态可能已被并发操作改变，认领前复核
			current, err := s.orderRepo.GetDetailForUpdate(tx, detail.ID)
			if err != nil {
				return err
			}
			if current.Status != entity.StatusReadyProd && current.Status != entity.StatusProdRework {
				result.Skipped++
				continue
			}
			// 返工明细重新认领时回到待生产
			if current.Status == entity.StatusProdRework {
				if _, err := s.statusSvc.applyDetailTransitionTx(tx, current.ID, entity.StatusReadyProd, actor, "rework re-claimed"); err != nil {
					return err
				}
			}

			planDetail := &entity.PlanDetail{
				ID:            uuid.New().String()[:32],
				PlanID:        plan.ID,
				OrderDetailID: current.ID,
				FloorStatus:   entity.StatusReadyProd,
				Round:         current.ReworkCount + 1,
			}
			if err := s.planRepo.CreateDetail(tx, planDetail); err != nil {
				return fmt.Errorf("创建认领记录失败: %w", err)
			}

			claim := &entity.PlanClaim{
				ID:            uuid.New().String()[:32],
				OrderDetailID: current.ID,
				PlanDetailID:  planDetail.ID,
				PlanID:        plan.ID,
			}
			if err := s.planRepo.CreateClaim(tx, claim); err != nil {
				var claimed *apperr.ErrAlreadyClaimed
				if errors.As(err, &claimed) {
					// 并发运行抢先认领，按无操作跳过
					result.Skipped++
					if derr := tx.Delete(planDetail).Error; derr != nil {
						return derr
					}
					continue
				}
				return err
			}

			status := entity.StatusReadyProd
			if err := s.logRepo.LogTransition(tx, entity.LogEntityPlanDetail, planDetail.ID,
				entity.LogActionClaim, nil, &status,
				fmt.Sprintf("claimed into plan %s", plan.PlanCode), actor); err != nil {
				return err
			}
			result.Claimed++
		}

		if result.Claimed > 0 {
			plan.TotalItems += result.Claimed
			if err := tx.Save(plan).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		result.Error = err.Error()
		s.logger.Error("partition grouping failed",
			zap.String("category_id", categoryID),
			zap.String("production_date", date),
			zap.Error(err))
	}
	return result
}

// CategoryGroup 生产视图：品类 → 日期 → 明细行
type CategoryGroup struct {
	CategoryID   string      `json:"category_id"`
	CategoryName string      `json:"category_name"`
	Dates        []DateGroup `json:"dates"`
}

type DateGroup struct {
	ProductionDate string           `json:"production_date"`
	Items          []ProductionLine `json:"items"`
}

type ProductionLine struct {
	PlanDetailID      string                  `json:"plan_detail_id"`
	OrderDetailID     string                  `json:"order_detail_id"`
	ProductName       string                  `json:"product_name"`
	VariantDesc       string                  `json:"variant_desc"`
	Quantity          int                     `json:"quantity"`
	FloorStatus       entity.ProductionStatus `json:"floor_status"`
	FloorStatusName   string                  `json:"floor_status_name"`
	FinishedQty       int                     `json:"finished_qty"`
	Round             int                     `json:"round"`
	ProductionFileURL string                  `json:"production_file_url"`
	ThankYouCardURL   string                  `json:"thank_you_card_url"`
}

// ProductionView 车间生产视图，按品类再按日期分组
func (s *PlannerService) ProductionView(ctx context.Context, params repository.ProductionViewParams) ([]CategoryGroup, error) {
	details, err := s.planRepo.ProductionView(ctx, params)
	if err != nil {
		return nil, err
	}

	var groups []CategoryGroup
	catIndex := make(map[string]int)
	dateIndex := make(map[string]int)
	for _, pd := range details {
		if pd.Plan == nil || pd.OrderDetail == nil {
			continue
		}
		ci, ok := catIndex[pd.Plan.CategoryID]
		if !ok {
			groups = append(groups, CategoryGroup{
				CategoryID:   pd.Plan.CategoryID,
				CategoryName: pd.Plan.CategoryName,
			})
			ci = len(groups) - 1
			catIndex[pd.Plan.CategoryID] = ci
		}
		dateKey := pd.Plan.CategoryID + "|" + pd.Plan.ProductionDate
		di, ok := dateIndex[dateKey]
		if !ok {
			groups[ci].Dates = append(groups[ci].Dates, DateGroup{
				ProductionDate: pd.Plan.ProductionDate,
			})
			di = len(groups[ci].Dates) - 1
			dateIndex[dateKey] = di
		}
		groups[ci].Dates[di].Items = append(groups[ci].Dates[di].Items, ProductionLine{
			PlanDetailID:      pd.ID,
			OrderDetailID:     pd.OrderDetailID,
			ProductName:       pd.OrderDetail.ProductName,
			VariantDesc:       pd.OrderDetail.VariantDesc,
			Quantity:          pd.OrderDetail.Quantity,
			FloorStatus:       pd.FloorStatus,
			FloorStatusName:   pd.FloorStatus.String(),
			FinishedQty:       pd.FinishedQty,
			Round:             pd.Round,
			ProductionFileURL: pd.OrderDetail.ProductionFileURL,
			ThankYouCardURL:   pd.OrderDetail.ThankYouCardURL,
		})
	}
	return groups, nil
}

// ExportProductionSheet 导出生产视图 Excel
func (s *PlannerService) ExportProductionSheet(ctx context.Context, params repository.ProductionViewParams) (*excelize.File, error) {
	groups, err := s.ProductionView(ctx, params)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Production"
	f.SetSheetName("Sheet1", sheet)
	headers := []string{"品类", "生产日期", "产品", "规格", "数量", "状态", "完成数", "轮次", "生产文件"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	row := 2
	for _, cat := range groups {
		for _, date := range cat.Dates {
			for _, item := range date.Items {
				values := []interface{}{
					cat.CategoryName, date.ProductionDate, item.ProductName, item.VariantDesc,
					item.Quantity, item.FloorStatusName, item.FinishedQty, item.Round,
					item.ProductionFileURL,
				}
				for i, v := range values {
					cell, _ := excelize.CoordinatesToCellName(i+1, row)
					f.SetCellValue(sheet, cell, v)
				}
				row++
			}
		}
	}
	return f, nil
}
