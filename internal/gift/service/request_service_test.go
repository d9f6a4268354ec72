package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/testutil"
	"github.com/dyann2003/cbgift/pkg/apperr"
)

func refundInput(orderID string, amount float64) CreateRequestInput {
	return CreateRequestInput{
		Kind:    entity.RequestKindRefund,
		OrderID: orderID,
		Scope:   entity.RequestScopeOrder,
		Amount:  amount,
		Reason:  "damaged in transit",
	}
}

func TestCreateRefundRequestEnforcesAmountCeiling(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	// 两条明细各 25，整单上限 50
	order := testutil.SeedOrder(t, db, "ord-301", "seller-01",
		entity.StatusPacking, entity.StatusPacking)

	var validation *apperr.ErrValidation
	if _, err := svc.Request.CreateRequest(ctx, refundInput(order.ID, 60), "seller-01"); !errors.As(err, &validation) {
		t.Errorf("amount above ceiling should fail, got %v", err)
	}
	if _, err := svc.Request.CreateRequest(ctx, refundInput(order.ID, 0), "seller-01"); !errors.As(err, &validation) {
		t.Errorf("zero amount should fail, got %v", err)
	}

	req, err := svc.Request.CreateRequest(ctx, refundInput(order.ID, 50), "seller-01")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if req.Status != entity.RequestStatusPending {
		t.Errorf("status = %s, want PENDING", req.Status)
	}
	if !strings.HasPrefix(req.Code, "RFD-") {
		t.Errorf("code = %s, want RFD- prefix", req.Code)
	}
}

func TestCreateDetailScopedRefund(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-302", "seller-01",
		entity.StatusPacking, entity.StatusPacking)

	input := CreateRequestInput{
		Kind:           entity.RequestKindRefund,
		OrderID:        order.ID,
		Scope:          entity.RequestScopeDetail,
		OrderDetailIDs: []string{order.Details[0].ID},
		Amount:         25,
		Reason:         "wrong color",
	}
	req, err := svc.Request.CreateRequest(ctx, input, "seller-01")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(req.Items) != 1 || req.Items[0].OrderDetailID != order.Details[0].ID {
		t.Errorf("unexpected items snapshot: %+v", req.Items)
	}
	if req.Items[0].UnitPrice != 2.5 {
		t.Errorf("unit price snapshot = %v, want 2.5", req.Items[0].UnitPrice)
	}

	// 单条明细上限 25
	input.Amount = 30
	var validation *apperr.ErrValidation
	if _, err := svc.Request.CreateRequest(ctx, input, "seller-01"); !errors.As(err, &validation) {
		t.Errorf("amount above detail ceiling should fail, got %v", err)
	}

	// 不属于订单的明细
	input.Amount = 10
	input.OrderDetailIDs = []string{"stranger"}
	if _, err := svc.Request.CreateRequest(ctx, input, "seller-01"); !errors.As(err, &validation) {
		t.Errorf("foreign detail id should fail, got %v", err)
	}
}

func TestCreateReprintRequiresDesignFileOnDesignChange(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-303", "seller-01", entity.StatusPacking)

	input := CreateRequestInput{
		Kind:              entity.RequestKindReprint,
		OrderID:           order.ID,
		Scope:             entity.RequestScopeOrder,
		Reason:            "misaligned print",
		NeedsDesignChange: true,
	}
	var validation *apperr.ErrValidation
	if _, err := svc.Request.CreateRequest(ctx, input, "seller-01"); !errors.As(err, &validation) {
		t.Errorf("design change without file should fail, got %v", err)
	}

	input.DesignFileURL = "https://files.example.com/new-design.pdf"
	req, err := svc.Request.CreateRequest(ctx, input, "seller-01")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(req.Code, "RPT-") {
		t.Errorf("code = %s, want RPT- prefix", req.Code)
	}
}

func TestReviewRejectRequiresReason(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-304", "seller-01", entity.StatusPacking)
	req, err := svc.Request.CreateRequest(ctx, refundInput(order.ID, 10), "seller-01")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var validation *apperr.ErrValidation
	if _, err := svc.Request.Review(ctx, req.ID, false, "bad", "reviewer"); !errors.As(err, &validation) {
		t.Errorf("short reject reason should fail, got %v", err)
	}

	decided, err := svc.Request.Review(ctx, req.ID, false, "insufficient evidence", "reviewer")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if decided.Status != entity.RequestStatusRejected {
		t.Errorf("status = %s, want REJECTED", decided.Status)
	}
	if decided.ReviewerID == nil || *decided.ReviewerID != "reviewer" || decided.DecidedAt == nil {
		t.Errorf("reviewer fields not recorded: %+v", decided)
	}
}

func TestReviewIsSingleShot(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-305", "seller-01", entity.StatusPacking)
	req, err := svc.Request.CreateRequest(ctx, refundInput(order.ID, 10), "seller-01")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Request.Review(ctx, req.ID, true, "", "reviewer-a"); err != nil {
		t.Fatalf("first review failed: %v", err)
	}
	_, err = svc.Request.Review(ctx, req.ID, true, "", "reviewer-b")
	var already *apperr.ErrAlreadyDecided
	if !errors.As(err, &already) {
		t.Fatalf("second review should return AlreadyDecided, got %v", err)
	}
	if already.Status != entity.RequestStatusApproved {
		t.Errorf("decided status = %s, want APPROVED", already.Status)
	}
}

func TestApprovedReprintReopensScopedDetails(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-306", "seller-01",
		entity.StatusPacking, entity.StatusPacking)

	input := CreateRequestInput{
		Kind:           entity.RequestKindReprint,
		OrderID:        order.ID,
		Scope:          entity.RequestScopeDetail,
		OrderDetailIDs: []string{order.Details[0].ID},
		Reason:         "misaligned print",
	}
	req, err := svc.Request.CreateRequest(ctx, input, "seller-01")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Request.Review(ctx, req.ID, true, "", "reviewer"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if got := getDetail(t, db, order.Details[0].ID); got.Status != entity.StatusReadyProd {
		t.Errorf("scoped detail = %s, want READY_PROD", got.Status)
	}
	if got := getDetail(t, db, order.Details[1].ID); got.Status != entity.StatusPacking {
		t.Errorf("out-of-scope detail = %s, want PACKING untouched", got.Status)
	}

	// 重回认领池：下一次排产会重新认领
	report, err := svc.Planner.GroupSubmitted(ctx, dayDate(t, "2024-02-01"), "planner")
	if err != nil {
		t.Fatalf("grouping failed: %v", err)
	}
	if report.TotalClaimed != 1 {
		t.Errorf("claimed = %d, want 1", report.TotalClaimed)
	}
}

func TestReviewRollsBackWhenReopenFails(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-308", "seller-01", entity.StatusPacking)

	input := CreateRequestInput{
		Kind:           entity.RequestKindReprint,
		OrderID:        order.ID,
		Scope:          entity.RequestScopeDetail,
		OrderDetailIDs: []string{order.Details[0].ID},
		Reason:         "misaligned print",
	}
	req, err := svc.Request.CreateRequest(ctx, input, "seller-01")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// 明细消失导致重开失败，终审必须随之回滚
	if err := db.Delete(&entity.OrderDetail{}, "id = ?", order.Details[0].ID).Error; err != nil {
		t.Fatalf("delete detail: %v", err)
	}
	if _, err := svc.Request.Review(ctx, req.ID, true, "", "reviewer"); err == nil {
		t.Fatal("review should fail when reopen fails")
	}

	reloaded, err := svc.Request.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != entity.RequestStatusPending {
		t.Errorf("status = %s, want PENDING after rollback", reloaded.Status)
	}
	if reloaded.ReviewerID != nil || reloaded.DecidedAt != nil {
		t.Errorf("decision fields must be rolled back: %+v", reloaded)
	}
}

func TestApprovedReprintWithDesignChange(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-307", "seller-01", entity.StatusPacking)

	input := CreateRequestInput{
		Kind:              entity.RequestKindReprint,
		OrderID:           order.ID,
		Scope:             entity.RequestScopeOrder,
		Reason:            "typo in engraving",
		NeedsDesignChange: true,
		DesignFileURL:     "https://files.example.com/fixed.pdf",
	}
	req, err := svc.Request.CreateRequest(ctx, input, "seller-01")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Request.Review(ctx, req.ID, true, "", "reviewer"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if got := getDetail(t, db, order.Details[0].ID); got.Status != entity.StatusDesigning {
		t.Errorf("detail = %s, want DESIGNING", got.Status)
	}
}
