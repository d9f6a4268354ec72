package repository

import (
	"errors"
	"testing"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/testutil"
	"github.com/dyann2003/cbgift/pkg/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestCreateClaimConflictKeepsTransactionUsable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPlanRepository(db)
	order := testutil.SeedOrder(t, db, "ord-r01", "seller-01",
		entity.StatusReadyProd, entity.StatusReadyProd)

	err := db.Transaction(func(tx *gorm.DB) error {
		plan, err := repo.FindOrCreateOpen(tx, "cat-keychain", "Keychains", "2024-01-15", "planner")
		if err != nil {
			t.Fatalf("find-or-create failed: %v", err)
		}
		pd := &entity.PlanDetail{
			ID:            uuid.New().String()[:32],
			PlanID:        plan.ID,
			OrderDetailID: order.Details[0].ID,
			FloorStatus:   entity.StatusReadyProd,
			Round:         1,
		}
		if err := repo.CreateDetail(tx, pd); err != nil {
			t.Fatalf("create plan detail failed: %v", err)
		}
		claim := &entity.PlanClaim{
			ID:            uuid.New().String()[:32],
			OrderDetailID: order.Details[0].ID,
			PlanDetailID:  pd.ID,
			PlanID:        plan.ID,
		}
		if err := repo.CreateClaim(tx, claim); err != nil {
			t.Fatalf("first claim failed: %v", err)
		}

		dup := &entity.PlanClaim{
			ID:            uuid.New().String()[:32],
			OrderDetailID: order.Details[0].ID,
			PlanDetailID:  pd.ID,
			PlanID:        plan.ID,
		}
		var already *apperr.ErrAlreadyClaimed
		if err := repo.CreateClaim(tx, dup); !errors.As(err, &already) {
			t.Fatalf("duplicate claim should return AlreadyClaimed, got %v", err)
		}
		if already.PlanDetailID != pd.ID {
			t.Errorf("claimed by plan detail %s, want %s", already.PlanDetailID, pd.ID)
		}

		// 冲突之后同一事务仍可继续写入
		other := &entity.PlanClaim{
			ID:            uuid.New().String()[:32],
			OrderDetailID: order.Details[1].ID,
			PlanDetailID:  pd.ID,
			PlanID:        plan.ID,
		}
		return repo.CreateClaim(tx, other)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	var claims int64
	db.Model(&entity.PlanClaim{}).Count(&claims)
	if claims != 2 {
		t.Errorf("claims = %d, want 2", claims)
	}
}

func TestFindOrCreateOpenReusesExistingPlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPlanRepository(db)

	var firstID string
	err := db.Transaction(func(tx *gorm.DB) error {
		first, err := repo.FindOrCreateOpen(tx, "cat-mug", "Mugs", "2024-01-15", "planner")
		if err != nil {
			return err
		}
		firstID = first.ID
		second, err := repo.FindOrCreateOpen(tx, "cat-mug", "Mugs", "2024-01-15", "planner")
		if err != nil {
			return err
		}
		if second.ID != firstID {
			t.Errorf("second call returned %s, want %s", second.ID, firstID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	var plans int64
	db.Model(&entity.Plan{}).Where("category_id = ?", "cat-mug").Count(&plans)
	if plans != 1 {
		t.Errorf("plans = %d, want 1", plans)
	}
}
