package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"gorm.io/gorm"
)

// StatusService 订单状态引擎
// 所有明细状态变更的唯一入口：先经状态表校验，再落库并追加审计日志，
// 最后重算父订单聚合状态。同一明细的并发流转靠行锁串行化
type StatusService struct {
	orderRepo *repository.OrderRepository
	planRepo  *repository.PlanRepository
	logRepo   *repository.StatusLogRepository
	db        *gorm.DB
}

func NewStatusService(orderRepo *repository.OrderRepository, planRepo *repository.PlanRepository, logRepo *repository.StatusLogRepository, db *gorm.DB) *StatusService {
	return &StatusService{orderRepo: orderRepo, planRepo: planRepo, logRepo: logRepo, db: db}
}

// ApplyDetailTransition 应用一次明细状态流转
func (s *StatusService) ApplyDetailTransition(ctx context.Context, detailID string, newStatus entity.ProductionStatus, actor, reason string) (*entity.OrderDetail, error) {
	var result *entity.OrderDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		detail, err := s.applyDetailTransitionTx(tx, detailID, newStatus, actor, reason)
		if err != nil {
			return err
		}
		result = detail
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyDetailTransitionTx 在既有事务内应用流转，排产/质检复用
func (s *StatusService) applyDetailTransitionTx(tx *gorm.DB, detailID string, newStatus entity.ProductionStatus, actor, reason string) (*entity.OrderDetail, error) {
	detail, err := s.orderRepo.GetDetailForUpdate(tx, detailID)
	if err != nil {
		return nil, err
	}

	if err := entity.ValidateTransition(detail.Status, newStatus); err != nil {
		return nil, err
	}

	// 挂起恢复目标必须等于挂起前状态
	if detail.Status == entity.StatusHold {
		if detail.HeldFrom == nil || newStatus != *detail.HeldFrom {
			return nil, &apperr.ErrInvalidStateTransition{
				From: detail.Status.String(),
				To:   newStatus.String(),
			}
		}
		detail.HeldFrom = nil
	}

	from := detail.Status
	switch newStatus {
	case entity.StatusHold:
		held := detail.Status
		detail.HeldFrom = &held
	case entity.StatusCancelled:
		detail.HeldFrom = nil
		// 取消立刻退出排产认领池
		if err := s.releaseClaimTx(tx, detail.ID); err != nil {
			return nil, err
		}
	}
	detail.Status = newStatus

	if err := tx.Save(detail).Error; err != nil {
		return nil, fmt.Errorf("更新明细状态失败: %w", err)
	}

	if err := s.logRepo.LogTransition(tx, entity.LogEntityOrderDetail, detail.ID,
		entity.LogActionStatusChange, &from, &newStatus, reason, actor); err != nil {
		return nil, fmt.Errorf("写入审计日志失败: %w", err)
	}

	if err := s.recomputeOrderStatusTx(tx, detail.OrderID); err != nil {
		return nil, err
	}
	return detail, nil
}

// releaseClaimTx 关闭明细的活跃认领记录并移除索引行
func (s *StatusService) releaseClaimTx(tx *gorm.DB, orderDetailID string) error {
	var claim entity.PlanClaim
	err := tx.Where("order_detail_id = ?", orderDetailID).First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var planDetail entity.PlanDetail
	if err := tx.Where("id = ?", claim.PlanDetailID).First(&planDetail).Error; err != nil {
		return err
	}
	return s.planRepo.CloseDetail(tx, &planDetail)
}

// recomputeOrderStatusTx 重算并持久化父订单聚合状态
func (s *StatusService) recomputeOrderStatusTx(tx *gorm.DB, orderID string) error {
	var details []entity.OrderDetail
	if err := tx.Where("order_id = ?", orderID).Find(&details).Error; err != nil {
		return err
	}
	statuses := make([]entity.ProductionStatus, 0, len(details))
	for _, d := range details {
		statuses = append(statuses, d.Status)
	}
	derived := entity.DeriveOrderStatus(statuses)
	return tx.Model(&entity.Order{}).Where("id = ?", orderID).
		Update("status", derived).Error
}

// DeriveOrderStatus 按当前明细状态推导订单聚合状态（只读，用于一致性校验）
func (s *StatusService) DeriveOrderStatus(ctx context.Context, orderID string) (entity.ProductionStatus, error) {
	if _, err := s.orderRepo.GetByID(ctx, orderID); err != nil {
		return 0, err
	}
	details, err := s.orderRepo.ListDetailsByOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	statuses := make([]entity.ProductionStatus, 0, len(details))
	for _, d := range details {
		statuses = append(statuses, d.Status)
	}
	return entity.DeriveOrderStatus(statuses), nil
}

// ReopenForReprint 重印审批通过后重开明细
// 不走正向流转表：发货后的明细回到待生产（需改设计时回到设计中），
// 以 reprint_reopen 动作入审计日志
func (s *StatusService) ReopenForReprint(ctx context.Context, detailIDs []string, needsDesignChange bool, actor, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.reopenForReprintTx(tx, detailIDs, needsDesignChange, actor, reason)
	})
}

// reopenForReprintTx 在既有事务内重开明细，审批终审与重开同事务提交
func (s *StatusService) reopenForReprintTx(tx *gorm.DB, detailIDs []string, needsDesignChange bool, actor, reason string) error {
	target := entity.StatusReadyProd
	if needsDesignChange {
		target = entity.StatusDesigning
	}
	var orderID string
	for _, id := range detailIDs {
		detail, err := s.orderRepo.GetDetailForUpdate(tx, id)
		if err != nil {
			return err
		}
		if detail.Status == entity.StatusCancelled {
			continue
		}
		from := detail.Status
		detail.Status = target
		detail.HeldFrom = nil
		if err := tx.Save(detail).Error; err != nil {
			return fmt.Errorf("重开明细失败: %w", err)
		}
		if err := s.logRepo.LogTransition(tx, entity.LogEntityOrderDetail, detail.ID,
			entity.LogActionReprintReopen, &from, &target, reason, actor); err != nil {
			return err
		}
		orderID = detail.OrderID
	}
	if orderID != "" {
		return s.recomputeOrderStatusTx(tx, orderID)
	}
	return nil
}
