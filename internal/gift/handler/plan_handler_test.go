package handler

import (
	"net/http"
	"testing"

	"github.com/dyann2003/cbgift/internal/gift/entity"
	"github.com/dyann2003/cbgift/internal/gift/repository"
	"github.com/dyann2003/cbgift/internal/gift/service"
	"github.com/dyann2003/cbgift/internal/gift/testutil"
	"go.uber.org/zap"
)

func setupPlanTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, nil, db, zap.NewNop())
	handlers := NewHandlers(services, nil)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/plan/group-submitted", handlers.Plan.GroupSubmitted)
	api.PUT("/plan/update-status/:planDetailId", handlers.Plan.UpdateStatus)
	api.POST("/plan/details/:planDetailId/qc-check", handlers.Plan.RecordQCCheck)
	api.GET("/plan/production-view", handlers.Plan.ProductionView)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestPlanGroupAndUpdateStatusFlow(t *testing.T) {
	env := setupPlanTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedOrder(t, env.DB, "ord-h01", "seller-01", entity.StatusReadyProd)

	// 触发排产
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/plan/group-submitted", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var planDetail entity.PlanDetail
	if err := env.DB.Where("order_detail_id = ?", "ord-h01-d1").First(&planDetail).Error; err != nil {
		t.Fatalf("plan detail not created: %v", err)
	}

	// 状态以数值编码推进：7 = 生产中
	w2 := testutil.DoRequest(env.Router, "PUT",
		"/api/v1/plan/update-status/"+planDetail.ID+"?newStatus=7", nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	resp := testutil.ParseResponse(w2)
	data := resp["data"].(map[string]interface{})
	if data["floor_status"].(float64) != float64(entity.StatusInProd) {
		t.Errorf("floor_status = %v, want %d", data["floor_status"], entity.StatusInProd)
	}

	// 非法流转：生产中 → 打包
	w3 := testutil.DoRequest(env.Router, "PUT",
		"/api/v1/plan/update-status/"+planDetail.ID+"?newStatus=12", nil, token)
	if w3.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w3.Code, w3.Body.String())
	}
	resp3 := testutil.ParseResponse(w3)
	if resp3["code"].(float64) != 10003 {
		t.Errorf("code = %v, want 10003", resp3["code"])
	}

	// 未知编码
	w4 := testutil.DoRequest(env.Router, "PUT",
		"/api/v1/plan/update-status/"+planDetail.ID+"?newStatus=99", nil, token)
	if w4.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w4.Code, w4.Body.String())
	}
}

func TestPlanQCCheckEndpoint(t *testing.T) {
	env := setupPlanTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedOrder(t, env.DB, "ord-h02", "seller-01", entity.StatusReadyProd)

	testutil.DoRequest(env.Router, "POST", "/api/v1/plan/group-submitted", nil, token)
	var planDetail entity.PlanDetail
	if err := env.DB.Where("order_detail_id = ?", "ord-h02-d1").First(&planDetail).Error; err != nil {
		t.Fatalf("plan detail not created: %v", err)
	}

	testutil.DoRequest(env.Router, "PUT",
		"/api/v1/plan/update-status/"+planDetail.ID+"?newStatus=7", nil, token)
	testutil.DoRequest(env.Router, "PUT",
		"/api/v1/plan/update-status/"+planDetail.ID+"?newStatus=8", nil, token)

	w := testutil.DoRequest(env.Router, "POST",
		"/api/v1/plan/details/"+planDetail.ID+"/qc-check",
		map[string]interface{}{"checked": 10, "passed": 10, "failed": 0, "remark": "ok"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var detail entity.OrderDetail
	env.DB.Where("id = ?", "ord-h02-d1").First(&detail)
	if detail.Status != entity.StatusQCDone {
		t.Errorf("detail = %s, want QC_DONE", detail.Status)
	}
}

func TestPlanEndpointsRequireAuth(t *testing.T) {
	env := setupPlanTest(t)
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/plan/group-submitted", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
}
