package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/unionbase/jibun/api/internal/conflict"
	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/middleware"
	"github.com/unionbase/jibun/api/internal/models"
	"github.com/unionbase/jibun/api/internal/services"
)

// setupTestRouter creates a test router with the standard middleware chain and
// all routes registered, backed by the given handlers.
func setupTestRouter(upload *UploadHandler, job *JobHandler, member *MemberHandler, conflictH *ConflictHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	log := logger.New("test")
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))

	v1 := router.Group("/api/v1")
	{
		tenants := v1.Group("/tenants/:tenantID")
		{
			if upload != nil {
				tenants.POST("/pre-register", upload.PreRegister)
				tenants.POST("/sync-properties", upload.SyncProperties)
			}
			if member != nil {
				tenants.DELETE("/members", member.ResetTenant)
			}
		}

		if job != nil {
			jobs := v1.Group("/jobs")
			{
				jobs.GET("/:jobID", job.Status)
				jobs.DELETE("/:jobID", job.Delete)
				jobs.POST("/:jobID/publish", job.Publish)
			}
		}

		if member != nil {
			members := v1.Group("/members")
			{
				members.POST("/:memberID/rematch", member.Rematch)
				members.DELETE("/:memberID", member.Delete)
			}
		}

		if conflictH != nil {
			conflicts := v1.Group("/conflicts")
			{
				conflicts.POST("/units", conflictH.EnsureUnit)
				conflicts.POST("/check", conflictH.Check)
				conflicts.POST("/resolve", conflictH.Resolve)
			}
		}
	}

	return router
}

// doJSON performs a request with an optional JSON body and returns the
// recorder.
func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a recorder's JSON body into out.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// Fake services. Each returns canned values or errors set per test.

type fakePreRegisterService struct {
	jobID    uuid.UUID
	err      error
	lastRows []models.RawOwnershipRow
}

func (f *fakePreRegisterService) SubmitUpload(_ context.Context, _ int64, rows []models.RawOwnershipRow) (uuid.UUID, error) {
	f.lastRows = rows
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.jobID, nil
}

type fakeSyncService struct {
	jobID uuid.UUID
	err   error
}

func (f *fakeSyncService) SubmitSync(context.Context, int64) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.jobID, nil
}

type fakeJobService struct {
	job        *models.SyncJob
	statusErr  error
	deleteErr  error
	publishErr error
}

func (f *fakeJobService) Status(context.Context, uuid.UUID) (*models.SyncJob, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.job, nil
}

func (f *fakeJobService) Delete(context.Context, uuid.UUID) error  { return f.deleteErr }
func (f *fakeJobService) Publish(context.Context, uuid.UUID) error { return f.publishErr }

type fakeMemberService struct {
	rematch    services.RematchResult
	rematchErr error
	deleteErr  error
	removed    int64
	resetErr   error
	lastInput  services.RematchInput
}

func (f *fakeMemberService) Rematch(_ context.Context, _ int64, input services.RematchInput) (services.RematchResult, error) {
	f.lastInput = input
	if f.rematchErr != nil {
		return services.RematchResult{}, f.rematchErr
	}
	return f.rematch, nil
}

func (f *fakeMemberService) Delete(context.Context, int64) error { return f.deleteErr }

func (f *fakeMemberService) ResetTenant(context.Context, int64) (int64, error) {
	if f.resetErr != nil {
		return 0, f.resetErr
	}
	return f.removed, nil
}

type fakeConflictService struct {
	check      conflict.CheckResult
	checkErr   error
	resolved   int64
	resolveErr error
	lastReq    conflict.Request
	ensured    *models.PropertyUnit
	ensureErr  error
	lastUnit   models.PropertyUnit
}

func (f *fakeConflictService) Check(_ context.Context, pending conflict.PendingIdentity, _ int64) (conflict.CheckResult, error) {
	if f.checkErr != nil {
		return conflict.CheckResult{}, f.checkErr
	}
	result := f.check
	result.PendingUser = pending
	return result, nil
}

func (f *fakeConflictService) Resolve(_ context.Context, req conflict.Request) (int64, error) {
	f.lastReq = req
	if f.resolveErr != nil {
		return 0, f.resolveErr
	}
	return f.resolved, nil
}

func (f *fakeConflictService) EnsureUnit(_ context.Context, unit models.PropertyUnit) (*models.PropertyUnit, error) {
	f.lastUnit = unit
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if f.ensured != nil {
		return f.ensured, nil
	}
	out := unit
	out.ID = 1
	return &out, nil
}
