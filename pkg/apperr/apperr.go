package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound 资源不存在
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrInvalidStateTransition 非法状态流转
type ErrInvalidStateTransition struct {
	From string
	To   string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrAlreadyClaimed 明细已被某个生产批次认领
// 排产过程中视作跳过，不作为调用方错误暴露
type ErrAlreadyClaimed struct {
	OrderDetailID string
	PlanDetailID  string
}

func (e *ErrAlreadyClaimed) Error() string {
	return fmt.Sprintf("order detail %s already claimed by plan detail %s", e.OrderDetailID, e.PlanDetailID)
}

// ErrAlreadyDecided 售后申请已被审批
type ErrAlreadyDecided struct {
	RequestID string
	Status    string
}

func (e *ErrAlreadyDecided) Error() string {
	return fmt.Sprintf("request %s already decided: %s", e.RequestID, e.Status)
}

// ErrPreconditionFailed 前置条件不满足，附带阻塞项清单
type ErrPreconditionFailed struct {
	Message     string
	BlockingIDs []string
}

func (e *ErrPreconditionFailed) Error() string {
	if len(e.BlockingIDs) > 0 {
		return fmt.Sprintf("%s: blocked by %v", e.Message, e.BlockingIDs)
	}
	return e.Message
}

// ErrValidation 参数校验失败
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// IsNotFound 判断是否为资源不存在错误
func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

// IsInvalidTransition 判断是否为非法状态流转错误
func IsInvalidTransition(err error) bool {
	var target *ErrInvalidStateTransition
	return errors.As(err, &target)
}
