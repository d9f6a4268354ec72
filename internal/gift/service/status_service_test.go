package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/internal/gift/testutil"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServices(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewServices(repos, nil, db, zap.NewNop()), db
}

func getDetail(t *testing.T, db *gorm.DB, id string) *entity.OrderDetail {
	t.Helper()
	var detail entity.OrderDetail
	if err := db.Where("id = ?", id).First(&detail).Error; err != nil {
		t.Fatalf("load detail %s: %v", id, err)
	}
	return &detail
}

func getOrder(t *testing.T, db *gorm.DB, id string) *entity.Order {
	t.Helper()
	var order entity.Order
	if err := db.Where("id = ?", id).First(&order).Error; err != nil {
		t.Fatalf("load order %s: %v", id, err)
	}
	return &order
}

func TestApplyDetailTransition(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-001", "seller-01", entity.StatusCreated)
	detailID := order.Details[0].ID

	detail, err := svc.Status.ApplyDetailTransition(ctx, detailID, entity.StatusNeedDesign, "u1", "intake done")
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if detail.Status != entity.StatusNeedDesign {
		t.Errorf("detail status = %s, want NEED_DESIGN", detail.Status)
	}
	if got := getOrder(t, db, order.ID); got.Status != entity.StatusNeedDesign {
		t.Errorf("order status = %s, want NEED_DESIGN", got.Status)
	}

	var logs []entity.StatusLog
	db.Where("entity_type = ? AND entity_id = ?", entity.LogEntityOrderDetail, detailID).
		Order("created_at ASC").Find(&logs)
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit log, got %d", len(logs))
	}
	if logs[0].Action != entity.LogActionStatusChange || logs[0].Reason != "intake done" {
		t.Errorf("unexpected log entry: %+v", logs[0])
	}
	if *logs[0].FromStatus != entity.StatusCreated || *logs[0].ToStatus != entity.StatusNeedDesign {
		t.Errorf("log from/to = %s/%s", *logs[0].FromStatus, *logs[0].ToStatus)
	}
}

func TestApplyDetailTransitionRejectsInvalid(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-002", "seller-01", entity.StatusCreated)
	detailID := order.Details[0].ID

	_, err := svc.Status.ApplyDetailTransition(ctx, detailID, entity.StatusInProd, "u1", "")
	var invalid *apperr.ErrInvalidStateTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	if got := getDetail(t, db, detailID); got.Status != entity.StatusCreated {
		t.Errorf("detail status changed on rejected transition: %s", got.Status)
	}
	var count int64
	db.Model(&entity.StatusLog{}).Where("entity_id = ?", detailID).Count(&count)
	if count != 0 {
		t.Errorf("rejected transition must not be logged, got %d entries", count)
	}
}

func TestApplyDetailTransitionNotFound(t *testing.T) {
	svc, _ := newTestServices(t)
	_, err := svc.Status.ApplyDetailTransition(context.Background(), "missing", entity.StatusCreated, "u1", "")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestHoldResumesOnlyToHeldFrom(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-003", "seller-01", entity.StatusInProd)
	detailID := order.Details[0].ID

	if _, err := svc.Status.ApplyDetailTransition(ctx, detailID, entity.StatusHold, "u1", "customer pause"); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	held := getDetail(t, db, detailID)
	if held.Status != entity.StatusHold {
		t.Fatalf("status = %s, want HOLD", held.Status)
	}
	if held.HeldFrom == nil || *held.HeldFrom != entity.StatusInProd {
		t.Fatalf("held_from = %v, want IN_PROD", held.HeldFrom)
	}

	// 恢复目标不等于挂起前状态必须被拒绝
	if _, err := svc.Status.ApplyDetailTransition(ctx, detailID, entity.StatusPacking, "u1", ""); err == nil {
		t.Fatal("resume to a different status should fail")
	}

	resumed, err := svc.Status.ApplyDetailTransition(ctx, detailID, entity.StatusInProd, "u1", "resumed")
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.Status != entity.StatusInProd || resumed.HeldFrom != nil {
		t.Errorf("resumed status = %s, held_from = %v", resumed.Status, resumed.HeldFrom)
	}
}

func TestCancelReleasesActiveClaim(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-004", "seller-01", entity.StatusReadyProd)
	detailID := order.Details[0].ID

	report, err := svc.Planner.GroupSubmitted(ctx, dayDate(t, "2024-01-15"), "planner")
	if err != nil {
		t.Fatalf("grouping failed: %v", err)
	}
	if report.TotalClaimed != 1 {
		t.Fatalf("claimed = %d, want 1", report.TotalClaimed)
	}

	if _, err := svc.Status.ApplyDetailTransition(ctx, detailID, entity.StatusCancelled, "u1", "customer cancelled"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	var claims int64
	db.Model(&entity.PlanClaim{}).Where("order_detail_id = ?", detailID).Count(&claims)
	if claims != 0 {
		t.Errorf("claim should be released on cancel, found %d", claims)
	}
	var planDetail entity.PlanDetail
	if err := db.Where("order_detail_id = ?", detailID).First(&planDetail).Error; err != nil {
		t.Fatalf("load plan detail: %v", err)
	}
	if !planDetail.Closed {
		t.Error("plan detail should be closed on cancel")
	}
	if got := getOrder(t, db, order.ID); got.Status != entity.StatusCancelled {
		t.Errorf("order status = %s, want CANCELLED", got.Status)
	}
}

func TestOrderStatusDerivedFromDetails(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-005", "seller-01",
		entity.StatusCreated, entity.StatusCreated)

	// 一条明细推进后，订单聚合状态停在进度最低的明细
	if _, err := svc.Status.ApplyDetailTransition(ctx, order.Details[0].ID, entity.StatusNeedDesign, "u1", ""); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if got := getOrder(t, db, order.ID); got.Status != entity.StatusCreated {
		t.Errorf("order status = %s, want CREATED", got.Status)
	}

	derived, err := svc.Status.DeriveOrderStatus(ctx, order.ID)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if derived != entity.StatusCreated {
		t.Errorf("derived = %s, want CREATED", derived)
	}
}

func TestReopenForReprint(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-006", "seller-01",
		entity.StatusPacking, entity.StatusCancelled)
	reopenID := order.Details[0].ID
	cancelledID := order.Details[1].ID

	err := svc.Status.ReopenForReprint(ctx, []string{reopenID, cancelledID}, false, "reviewer", "reprint approved")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := getDetail(t, db, reopenID); got.Status != entity.StatusReadyProd {
		t.Errorf("reopened detail = %s, want READY_PROD", got.Status)
	}
	if got := getDetail(t, db, cancelledID); got.Status != entity.StatusCancelled {
		t.Errorf("cancelled detail must stay CANCELLED, got %s", got.Status)
	}

	var logs []entity.StatusLog
	db.Where("entity_id = ? AND action = ?", reopenID, entity.LogActionReprintReopen).Find(&logs)
	if len(logs) != 1 {
		t.Errorf("expected 1 reprint_reopen log, got %d", len(logs))
	}
}

func TestReopenForReprintWithDesignChange(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, db, "ord-007", "seller-01", entity.StatusPacking)

	err := svc.Status.ReopenForReprint(ctx, []string{order.Details[0].ID}, true, "reviewer", "reprint approved")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := getDetail(t, db, order.Details[0].ID); got.Status != entity.StatusDesigning {
		t.Errorf("detail = %s, want DESIGNING", got.Status)
	}
}
