package entity

import (
	"fmt"

	"github.com/dyann2003/cbgift/pkg/apperr"
)

// ProductionStatus 生产状态
// 数值编码对外持久化（数据库、接口、历史数据），不允许重排
type ProductionStatus int

const (
	StatusDraft       ProductionStatus = 0  // 草稿
	StatusCreated     ProductionStatus = 1  // 已创建
	StatusNeedDesign  ProductionStatus = 2  // 待设计
	StatusDesigning   ProductionStatus = 3  // 设计中
	StatusCheckDesign ProductionStatus = 4  // 设计审核
	StatusDesignRedo  ProductionStatus = 5  // 设计返工
	StatusReadyProd   ProductionStatus = 6  // 待生产
	StatusInProd      ProductionStatus = 7  // 生产中
	StatusFinished    ProductionStatus = 8  // 生产完成
	StatusQCDone      ProductionStatus = 9  // 质检通过
	StatusQCFail      ProductionStatus = 10 // 质检不合格
	StatusProdRework  ProductionStatus = 11 // 生产返工
	StatusPacking     ProductionStatus = 12 // 打包
	StatusHold        ProductionStatus = 13 // 挂起
	StatusCancelled   ProductionStatus = 14 // 已取消
)

var statusNames = map[ProductionStatus]string{
	StatusDraft:       "DRAFT",
	StatusCreated:     "CREATED",
	StatusNeedDesign:  "NEED_DESIGN",
	StatusDesigning:   "DESIGNING",
	StatusCheckDesign: "CHECK_DESIGN",
	StatusDesignRedo:  "DESIGN_REDO",
	StatusReadyProd:   "READY_PROD",
	StatusInProd:      "IN_PROD",
	StatusFinished:    "FINISHED",
	StatusQCDone:      "QC_DONE",
	StatusQCFail:      "QC_FAIL",
	StatusProdRework:  "PROD_REWORK",
	StatusPacking:     "PACKING",
	StatusHold:        "HOLD",
	StatusCancelled:   "CANCELLED",
}

func (s ProductionStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// IsValid 是否为已登记的状态编码
func (s ProductionStatus) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal 终态，不再参与任何流转
func (s ProductionStatus) IsTerminal() bool {
	return s == StatusCancelled
}

// ParseStatus 按数值编码解析状态
func ParseStatus(code int) (ProductionStatus, bool) {
	s := ProductionStatus(code)
	return s, s.IsValid()
}

// forwardEdges 正向流转表，状态合法性的唯一依据
var forwardEdges = map[ProductionStatus][]ProductionStatus{
	StatusDraft:       {StatusCreated},
	StatusCreated:     {StatusNeedDesign},
	StatusNeedDesign:  {StatusDesigning},
	StatusDesigning:   {StatusCheckDesign},
	StatusCheckDesign: {StatusReadyProd, StatusDesignRedo},
	StatusDesignRedo:  {StatusDesigning},
	StatusReadyProd:   {StatusInProd},
	StatusInProd:      {StatusFinished},
	StatusFinished:    {StatusQCDone, StatusQCFail},
	StatusQCDone:      {StatusPacking},
	StatusQCFail:      {StatusProdRework},
	StatusProdRework:  {StatusReadyProd},
}

// ValidateTransition 校验 current → requested 是否合法
// HOLD/CANCELLED 可从任意非终态进入；HOLD 可恢复到任意非终态，
// 恢复目标是否等于挂起前状态由状态引擎结合 HeldFrom 收紧
func ValidateTransition(current, requested ProductionStatus) error {
	if !current.IsValid() || !requested.IsValid() {
		return &apperr.ErrInvalidStateTransition{From: current.String(), To: requested.String()}
	}
	if current == requested {
		return &apperr.ErrInvalidStateTransition{From: current.String(), To: requested.String()}
	}
	if current.IsTerminal() {
		return &apperr.ErrInvalidStateTransition{From: current.String(), To: requested.String()}
	}

	// 任意非终态可挂起或取消
	if requested == StatusHold || requested == StatusCancelled {
		return nil
	}

	// 挂起恢复
	if current == StatusHold {
		if requested.IsTerminal() || requested == StatusHold {
			return &apperr.ErrInvalidStateTransition{From: current.String(), To: requested.String()}
		}
		return nil
	}

	for _, next := range forwardEdges[current] {
		if next == requested {
			return nil
		}
	}
	return &apperr.ErrInvalidStateTransition{From: current.String(), To: requested.String()}
}

// progressRank 推进度排名，用于订单聚合状态推导
// 排名 = 主流程上的位置；DESIGN_REDO 视同设计中，
// QC_FAIL/PROD_REWORK 重新进入认领池，视同待生产
var progressRank = map[ProductionStatus]int{
	StatusDraft:       0,
	StatusCreated:     1,
	StatusNeedDesign:  2,
	StatusDesigning:   3,
	StatusDesignRedo:  3,
	StatusCheckDesign: 4,
	StatusReadyProd:   5,
	StatusQCFail:      5,
	StatusProdRework:  5,
	StatusInProd:      6,
	StatusFinished:    7,
	StatusQCDone:      8,
	StatusPacking:     9,
}

// DeriveOrderStatus 由明细状态推导订单聚合状态
// 规则：取推进度最低的活跃明细；全部取消 → CANCELLED；全部挂起 → HOLD
func DeriveOrderStatus(statuses []ProductionStatus) ProductionStatus {
	if len(statuses) == 0 {
		return StatusDraft
	}

	allCancelled := true
	allHold := true
	for _, s := range statuses {
		if s != StatusCancelled {
			allCancelled = false
		}
		if s != StatusHold {
			allHold = false
		}
	}
	if allCancelled {
		return StatusCancelled
	}
	if allHold {
		return StatusHold
	}

	lowest := ProductionStatus(-1)
	lowestRank := -1
	for _, s := range statuses {
		if s == StatusCancelled || s == StatusHold {
			continue
		}
		rank, ok := progressRank[s]
		if !ok {
			continue
		}
		// 同名次取编码较小者，保证推导结果确定
		if lowestRank == -1 || rank < lowestRank || (rank == lowestRank && s < lowest) {
			lowest = s
			lowestRank = rank
		}
	}
	if lowestRank == -1 {
		// 活跃明细全部不可排名（理论上不可达），保守返回 HOLD
		return StatusHold
	}
	return lowest
}
