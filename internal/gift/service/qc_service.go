package service

import (
	"context"
	"fmt"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QCService 生产完工与质检处理
// 车间状态与订单明细状态同步推进；质检不合格关闭当前认领记录，
// 明细回到待生产并等待下一次排产重新认领
type QCService struct {
	orderRepo *repository.OrderRepository
	planRepo  *repository.PlanRepository
	logRepo   *repository.StatusLogRepository
	statusSvc *StatusService
	db        *gorm.DB
}

func NewQCService(orderRepo *repository.OrderRepository, planRepo *repository.PlanRepository, logRepo *repository.StatusLogRepository, statusSvc *StatusService, db *gorm.DB) *QCService {
	return &QCService{
		orderRepo: orderRepo,
		planRepo:  planRepo,
		logRepo:   logRepo,
		statusSvc: statusSvc,
		db:        db,
	}
}

// UpdateFloorStatus 车间状态推进（/plan/update-status 的落点）
// 经状态表校验后同时推进认领记录与订单明细；质检结论不走该入口
func (s *QCService) UpdateFloorStatus(ctx context.Context, planDetailID string, newStatus entity.ProductionStatus, actor string) (*entity.PlanDetail, error) {
	planDetail, err := s.planRepo.GetDetailByID(ctx, planDetailID)
	if err != nil {
		return nil, err
	}
	if planDetail.Closed {
		return nil, &apperr.ErrValidation{Message: fmt.Sprintf("认领记录 %s 已关闭", planDetailID)}
	}
	// 质检结论必须携带数量并处理认领关闭，只能走质检接口提交
	switch newStatus {
	case entity.StatusQCDone, entity.StatusQCFail, entity.StatusProdRework:
		return nil, &apperr.ErrValidation{Message: "质检结论需通过质检接口提交"}
	}
	if err := entity.ValidateTransition(planDetail.FloorStatus, newStatus); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		from := planDetail.FloorStatus
		planDetail.FloorStatus = newStatus
		if err := tx.Save(planDetail).Error; err != nil {
			return err
		}
		if err := s.logRepo.LogTransition(tx, entity.LogEntityPlanDetail, planDetail.ID,
			entity.LogActionStatusChange, &from, &newStatus, "", actor); err != nil {
			return err
		}
		_, err := s.statusSvc.applyDetailTransitionTx(tx, planDetail.OrderDetailID, newStatus, actor, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return planDetail, nil
}

// MarkProduced 报完工：生产中 → 生产完成
func (s *QCService) MarkProduced(ctx context.Context, planDetailID, actor string) (*entity.PlanDetail, error) {
	planDetail, err := s.planRepo.GetDetailByID(ctx, planDetailID)
	if err != nil {
		return nil, err
	}
	if planDetail.FloorStatus != entity.StatusInProd {
		return nil, &apperr.ErrInvalidStateTransition{
			From: planDetail.FloorStatus.String(),
			To:   entity.StatusFinished.String(),
		}
	}
	return s.UpdateFloorStatus(ctx, planDetailID, entity.StatusFinished, actor)
}

// RecordQCCheck 记录一次质检
// 全部合格：认领记录与明细进入质检通过；
// 存在不合格：质检不合格 → 生产返工，认领记录关闭，明细重新进入认领池
func (s *QCService) RecordQCCheck(ctx context.Context, planDetailID string, checked, passed, failed int, remark, actor string) (*entity.QCCheck, error) {
	if checked <= 0 {
		return nil, &apperr.ErrValidation{Message: "送检数量必须大于 0"}
	}
	if passed < 0 || failed < 0 || passed+failed != checked {
		return nil, &apperr.ErrValidation{Message: "合格数与不合格数之和必须等于送检数"}
	}

	planDetail, err := s.planRepo.GetDetailByID(ctx, planDetailID)
	if err != nil {
		return nil, err
	}
	if planDetail.Closed {
		return nil, &apperr.ErrValidation{Message: fmt.Sprintf("认领记录 %s 已关闭", planDetailID)}
	}
	if planDetail.FloorStatus != entity.StatusFinished {
		return nil, &apperr.ErrInvalidStateTransition{
			From: planDetail.FloorStatus.String(),
			To:   entity.StatusQCDone.String(),
		}
	}

	check := &entity.QCCheck{
		ID:           uuid.New().String()[:32],
		PlanDetailID: planDetail.ID,
		CheckedQty:   checked,
		PassedQty:    passed,
		FailedQty:    failed,
		Remark:       remark,
		InspectorID:  actor,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.planRepo.CreateQCCheck(tx, check); err != nil {
			return fmt.Errorf("创建质检记录失败: %w", err)
		}

		if failed == 0 {
			from := planDetail.FloorStatus
			to := entity.StatusQCDone
			planDetail.FloorStatus = to
			planDetail.FinishedQty += passed
			if err := tx.Save(planDetail).Error; err != nil {
				return err
			}
			if err := s.logRepo.LogTransition(tx, entity.LogEntityPlanDetail, planDetail.ID,
				entity.LogActionQCCheck, &from, &to, remark, actor); err != nil {
				return err
			}
			_, err := s.statusSvc.applyDetailTransitionTx(tx, planDetail.OrderDetailID, to, actor, remark)
			return err
		}

		// 不合格：QC_FAIL → PROD_REWORK，关闭认领记录供下次排产重新认领
		from := planDetail.FloorStatus
		fail := entity.StatusQCFail
		rework := entity.StatusProdRework
		planDetail.FloorStatus = rework
		planDetail.FinishedQty += passed
		if err := s.planRepo.CloseDetail(tx, planDetail); err != nil {
			return err
		}
		if err := s.logRepo.LogTransition(tx, entity.LogEntityPlanDetail, planDetail.ID,
			entity.LogActionQCCheck, &from, &fail, remark, actor); err != nil {
			return err
		}
		if err := s.logRepo.LogTransition(tx, entity.LogEntityPlanDetail, planDetail.ID,
			entity.LogActionStatusChange, &fail, &rework, "qc rework", actor); err != nil {
			return err
		}

		if _, err := s.statusSvc.applyDetailTransitionTx(tx, planDetail.OrderDetailID, fail, actor, remark); err != nil {
			return err
		}
		// 明细停在生产返工，等待下一次排产重新认领
		if _, err := s.statusSvc.applyDetailTransitionTx(tx, planDetail.OrderDetailID, rework, actor, "qc rework"); err != nil {
			return err
		}
		return tx.Model(&entity.OrderDetail{}).Where("id = ?", planDetail.OrderDetailID).
			UpdateColumn("rework_count", gorm.Expr("rework_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

// ApproveForShipping 整单放行发货
// 要求所有未取消明细均已质检通过，否则返回带阻塞明细清单的前置条件错误；
// 放行后明细进入打包
func (s *QCService) ApproveForShipping(ctx context.Context, orderID, actor string) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	var blocking []string
	for _, detail := range order.Details {
		if detail.Status == entity.StatusCancelled {
			continue
		}
		if detail.Status != entity.StatusQCDone {
			blocking = append(blocking, detail.ID)
		}
	}
	if len(blocking) > 0 {
		return &apperr.ErrPreconditionFailed{
			Message:     "存在未通过质检的明细，不能放行发货",
			BlockingIDs: blocking,
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, detail := range order.Details {
			if detail.Status == entity.StatusCancelled {
				continue
			}
			if _, err := s.statusSvc.applyDetailTransitionTx(tx, detail.ID, entity.StatusPacking, actor, "approved for shipping"); err != nil {
				return err
			}
			// 同步车间状态并结清活跃认领
			var claim entity.PlanClaim
			if err := tx.Where("order_detail_id = ?", detail.ID).First(&claim).Error; err == nil {
				var planDetail entity.PlanDetail
				if err := tx.Where("id = ?", claim.PlanDetailID).First(&planDetail).Error; err != nil {
					return err
				}
				from := planDetail.FloorStatus
				to := entity.StatusPacking
				planDetail.FloorStatus = to
				if err := s.planRepo.CloseDetail(tx, &planDetail); err != nil {
					return err
				}
				if err := s.logRepo.LogTransition(tx, entity.LogEntityPlanDetail, planDetail.ID,
					entity.LogActionStatusChange, &from, &to, "approved for shipping", actor); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
