package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	adminkeydomain "github.com/nivala/pricing/internal/adminkey/domain"
	recommendationdomain "github.com/nivala/pricing/internal/recommendation/domain"
	"github.com/nivala/pricing/internal/scheduler"
)

type fakeRecommendationService struct {
	decideCalls int
	lastDecide  recommendationdomain.DecideRequest
	decideErr   error

	getErr error
	rec    *recommendationdomain.PriceRecommendation
}

func (f *fakeRecommendationService) Submit(ctx context.Context, rec *recommendationdomain.PriceRecommendation) (snowflake.ID, error) {
	_ = ctx
	_ = rec
	return 0, nil
}

func (f *fakeRecommendationService) Decide(ctx context.Context, req recommendationdomain.DecideRequest) (*recommendationdomain.DecideResult, error) {
	f.decideCalls++
	f.lastDecide = req
	_ = ctx
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	return &recommendationdomain.DecideResult{Recommendation: f.rec}, nil
}

func (f *fakeRecommendationService) Get(ctx context.Context, id string) (*recommendationdomain.PriceRecommendation, error) {
	_ = ctx
	_ = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.rec, nil
}

func (f *fakeRecommendationService) List(ctx context.Context, status string, limit int) ([]recommendationdomain.PriceRecommendation, error) {
	_ = ctx
	_ = status
	_ = limit
	return nil, nil
}

func (f *fakeRecommendationService) ExpireStale(ctx context.Context) (int64, error) {
	_ = ctx
	return 0, nil
}

type fakeAdminKeyService struct {
	key       *adminkeydomain.AdminAPIKey
	verifyErr error
	lastRaw   string
}

func (f *fakeAdminKeyService) Verify(ctx context.Context, rawKey string) (*adminkeydomain.AdminAPIKey, error) {
	f.lastRaw = rawKey
	_ = ctx
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.key, nil
}

func (f *fakeAdminKeyService) Create(ctx context.Context, name string) (*adminkeydomain.AdminAPIKey, string, error) {
	_ = ctx
	_ = name
	return nil, "", nil
}

type fakeAnalysisRunner struct {
	result *scheduler.CycleResult
	err    error
}

func (f *fakeAnalysisRunner) RunOnce(ctx context.Context) (*scheduler.CycleResult, error) {
	_ = ctx
	return f.result, f.err
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	return r
}

func TestDecideRecommendationRequiresApprove(t *testing.T) {
	recSvc := &fakeRecommendationService{}
	srv := &Server{recSvc: recSvc}

	router := newTestRouter()
	router.POST("/admin/recommendations/:id/decide", srv.DecideRecommendation)

	req := httptest.NewRequest(http.MethodPost, "/admin/recommendations/123/decide", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if recSvc.decideCalls != 0 {
		t.Fatal("expected decide service not to be called")
	}
}

func TestDecideRecommendationAlreadyDecidedConflicts(t *testing.T) {
	recSvc := &fakeRecommendationService{decideErr: recommendationdomain.ErrAlreadyDecided}
	srv := &Server{recSvc: recSvc}

	router := newTestRouter()
	router.POST("/admin/recommendations/:id/decide", srv.DecideRecommendation)

	req := httptest.NewRequest(http.MethodPost, "/admin/recommendations/123/decide", bytes.NewBufferString(`{"approve":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	if !recSvc.lastDecide.Approve {
		t.Fatal("expected approve to be forwarded")
	}
}

func TestGetRecommendationNotFound(t *testing.T) {
	recSvc := &fakeRecommendationService{getErr: recommendationdomain.ErrNotFound}
	srv := &Server{recSvc: recSvc}

	router := newTestRouter()
	router.GET("/admin/recommendations/:id", srv.GetRecommendationByID)

	req := httptest.NewRequest(http.MethodGet, "/admin/recommendations/123", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestAdminKeyRequiredRejectsMissingKey(t *testing.T) {
	keySvc := &fakeAdminKeyService{verifyErr: adminkeydomain.ErrUnauthorized}
	srv := &Server{adminKeySvc: keySvc}

	router := newTestRouter()
	router.GET("/admin/ping", srv.AdminKeyRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	if keySvc.lastRaw != "" {
		t.Fatal("expected verify not to be called without a key")
	}
}

func TestAdminKeyRequiredSetsActorForDecide(t *testing.T) {
	keySvc := &fakeAdminKeyService{key: &adminkeydomain.AdminAPIKey{ID: snowflake.ID(42), Name: "ops", IsActive: true}}
	recSvc := &fakeRecommendationService{rec: &recommendationdomain.PriceRecommendation{ID: snowflake.ID(123)}}
	srv := &Server{adminKeySvc: keySvc, recSvc: recSvc}

	router := newTestRouter()
	router.POST("/admin/recommendations/:id/decide", srv.AdminKeyRequired(), srv.DecideRecommendation)

	req := httptest.NewRequest(http.MethodPost, "/admin/recommendations/123/decide", bytes.NewBufferString(`{"approve":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer pk_test")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if keySvc.lastRaw != "pk_test" {
		t.Fatalf("expected raw key to reach verify, got %q", keySvc.lastRaw)
	}
	if recSvc.lastDecide.AdminID != snowflake.ID(42).String() {
		t.Fatalf("expected admin id %q, got %q", snowflake.ID(42).String(), recSvc.lastDecide.AdminID)
	}
}

func TestRunAnalysisPartialFailureReturnsCounts(t *testing.T) {
	runner := &fakeAnalysisRunner{
		result: &scheduler.CycleResult{ServiceTypes: 3, Generated: 1, Failed: 2},
		err:    errors.New("service type 7 aggregation failed"),
	}
	srv := &Server{scheduler: runner}

	router := newTestRouter()
	router.POST("/admin/pricing/run-analysis", srv.RunAnalysis)

	req := httptest.NewRequest(http.MethodPost, "/admin/pricing/run-analysis", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var body struct {
		Data scheduler.CycleResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data.Failed != 2 || body.Data.Generated != 1 {
		t.Fatalf("expected counts {generated:1 failed:2}, got %+v", body.Data)
	}
}

func TestRunAnalysisOverlapConflicts(t *testing.T) {
	runner := &fakeAnalysisRunner{err: scheduler.ErrCycleInProgress}
	srv := &Server{scheduler: runner}

	router := newTestRouter()
	router.POST("/admin/pricing/run-analysis", srv.RunAnalysis)

	req := httptest.NewRequest(http.MethodPost, "/admin/pricing/run-analysis", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}
