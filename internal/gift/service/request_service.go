package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 驳回理由最短长度
const minRejectReasonLen = 5

// RequestService 退款/重印申请工作流
// 每个申请 PENDING → APPROVED/REJECTED 单次终审；
// 终审用乐观条件更新防止两个审阅人同时生效
type RequestService struct {
	requestRepo *repository.RequestRepository
	orderRepo   *repository.OrderRepository
	logRepo     *repository.StatusLogRepository
	statusSvc   *StatusService
	db          *gorm.DB
	logger      *zap.Logger
}

func NewRequestService(requestRepo *repository.RequestRepository, orderRepo *repository.OrderRepository, logRepo *repository.StatusLogRepository, statusSvc *StatusService, db *gorm.DB, logger *zap.Logger) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		orderRepo:   orderRepo,
		logRepo:     logRepo,
		statusSvc:   statusSvc,
		db:          db,
		logger:      logger,
	}
}

// CreateRequestInput 创建售后申请
type CreateRequestInput struct {
	Kind              string   `json:"kind" binding:"required,oneof=REFUND REPRINT"`
	OrderID           string   `json:"order_id" binding:"required"`
	Scope             string   `json:"scope" binding:"required,oneof=ORDER_WIDE DETAIL"`
	OrderDetailIDs    []string `json:"order_detail_ids"`
	Amount            float64  `json:"amount"`
	Reason            string   `json:"reason" binding:"required"`
	ProofFileURL      string   `json:"proof_file_url"`
	NeedsDesignChange bool     `json:"needs_design_change"`
	DesignFileURL     string   `json:"design_file_url"`
}

// CreateRequest 创建退款/重印申请
// 退款金额不得超过范围内明细原价之和；需改设计的重印必须附新设计文件
func (s *RequestService) CreateRequest(ctx context.Context, input CreateRequestInput, actor string) (*entity.AfterSaleRequest, error) {
	order, err := s.orderRepo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	detailsByID := make(map[string]entity.OrderDetail, len(order.Details))
	for _, d := range order.Details {
		detailsByID[d.ID] = d
	}

	var scoped []entity.OrderDetail
	switch input.Scope {
	case entity.RequestScopeOrder:
		scoped = order.Details
	case entity.RequestScopeDetail:
		if len(input.OrderDetailIDs) == 0 {
			return nil, &apperr.ErrValidation{Message: "明细范围申请必须指定订单明细"}
		}
		for _, id := range input.OrderDetailIDs {
			d, ok := detailsByID[id]
			if !ok {
				return nil, &apperr.ErrValidation{
					Message: fmt.Sprintf("订单明细 %s 不属于订单 %s", id, input.OrderID),
				}
			}
			scoped = append(scoped, d)
		}
	}

	if input.Kind == entity.RequestKindRefund {
		if input.Amount <= 0 {
			return nil, &apperr.ErrValidation{Message: "退款金额必须大于 0"}
		}
		var limit float64
		for _, d := range scoped {
			limit += d.Amount
		}
		if input.Amount > limit {
			return nil, &apperr.ErrValidation{
				Message: fmt.Sprintf("退款金额 %.2f 超过范围内明细原价之和 %.2f", input.Amount, limit),
			}
		}
	}
	if input.Kind == entity.RequestKindReprint && input.NeedsDesignChange && input.DesignFileURL == "" {
		return nil, &apperr.ErrValidation{Message: "需变更设计的重印申请必须附新设计文件"}
	}

	prefix := "RFD"
	if input.Kind == entity.RequestKindReprint {
		prefix = "RPT"
	}
	req := &entity.AfterSaleRequest{
		ID:                uuid.New().String()[:32],
		Code:              fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("200601"), uuid.New().String()[:8]),
		Kind:              input.Kind,
		OrderID:           input.OrderID,
		Scope:             input.Scope,
		Amount:            input.Amount,
		Reason:            input.Reason,
		ProofFileURL:      input.ProofFileURL,
		NeedsDesignChange: input.NeedsDesignChange,
		DesignFileURL:     input.DesignFileURL,
		Status:            entity.RequestStatusPending,
		RequestedBy:       actor,
	}
	if input.Scope == entity.RequestScopeDetail {
		for _, d := range scoped {
			req.Items = append(req.Items, entity.AfterSaleItem{
				ID:            uuid.New().String()[:32],
				RequestID:     req.ID,
				OrderDetailID: d.ID,
				UnitPrice:     d.UnitPrice,
				Quantity:      d.Quantity,
			})
		}
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("创建售后申请失败: %w", err)
	}
	return req, nil
}

// Review 终审申请
// 驳回必须附不少于 5 个字符的理由；重复审批返回 AlreadyDecided；
// 通过的重印按范围重开明细使其重回认领池
func (s *RequestService) Review(ctx context.Context, requestID string, approved bool, reviewerReason, reviewer string) (*entity.AfterSaleRequest, error) {
	if !approved && utf8.RuneCountInString(reviewerReason) < minRejectReasonLen {
		return nil, &apperr.ErrValidation{
			Message: fmt.Sprintf("驳回理由不得少于 %d 个字符", minRejectReasonLen),
		}
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	newStatus := entity.RequestStatusRejected
	if approved {
		newStatus = entity.RequestStatusApproved
	}

	// 重开范围先行解析，终审与重开在同一事务内提交：
	// 重开失败时申请回滚到 PENDING，可重新审批
	var reopenIDs []string
	if approved && req.Kind == entity.RequestKindReprint {
		if reopenIDs, err = s.scopedDetailIDs(ctx, req); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requestRepo.Decide(tx, requestID, newStatus, reviewer, reviewerReason); err != nil {
			return err
		}
		if err := s.logRepo.LogTransition(tx, entity.LogEntityRequest, requestID,
			entity.LogActionReview, nil, nil,
			fmt.Sprintf("%s: %s", newStatus, reviewerReason), reviewer); err != nil {
			return err
		}
		if approved && req.Kind == entity.RequestKindReprint {
			return s.statusSvc.reopenForReprintTx(tx, reopenIDs, req.NeedsDesignChange,
				reviewer, "reprint approved: "+req.Code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if approved && req.Kind == entity.RequestKindRefund {
		// 资金调整由支付协作方完成，这里只落审计
		s.logger.Info("refund approved, dispatching monetary adjustment",
			zap.String("request_id", req.ID),
			zap.String("order_id", req.OrderID),
			zap.Float64("amount", req.Amount))
	}

	return s.requestRepo.GetByID(ctx, requestID)
}

func (s *RequestService) scopedDetailIDs(ctx context.Context, req *entity.AfterSaleRequest) ([]string, error) {
	if req.Scope == entity.RequestScopeDetail {
		ids := make([]string, 0, len(req.Items))
		for _, item := range req.Items {
			ids = append(ids, item.OrderDetailID)
		}
		return ids, nil
	}
	details, err := s.orderRepo.ListDetailsByOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *RequestService) GetByID(ctx context.Context, id string) (*entity.AfterSaleRequest, error) {
	return s.requestRepo.GetByID(ctx, id)
}

func (s *RequestService) List(ctx context.Context, params repository.RequestListParams) ([]entity.AfterSaleRequest, int64, error) {
	return s.requestRepo.List(ctx, params)
}
