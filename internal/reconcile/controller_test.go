package reconcile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cineseat/internal/shared/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
}

func serve(t *testing.T, e *Engine, method, path, body string) (int, apiResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupReconcileRoutes(r.Group("/api/v1"), NewController(e))

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestController_ReconcileSession(t *testing.T) {
	f := newEngineFixture(t)
	sessionID := f.newSession(t, f.auditorium)
	e, _ := f.engine(nil, nil)

	code, resp := serve(t, e, http.MethodPost, "/api/v1/admin/reconcile/"+sessionID.String(), `{"dry_run":true}`)
	require.Equal(t, http.StatusOK, code)

	var report Report
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.True(t, report.DryRun)
	assert.Equal(t, 8, report.Inserted)
	assert.Zero(t, f.seatCount(t, sessionID), "dry run writes nothing")

	code, resp = serve(t, e, http.MethodPost, "/api/v1/admin/reconcile/"+sessionID.String(), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(8), f.seatCount(t, sessionID))
}

func TestController_Errors(t *testing.T) {
	f := newEngineFixture(t)
	sessionID := f.newSession(t, f.auditorium)
	e, _ := f.engine(nil, func(rc *config.ReconcileConfig) { rc.TxSupported = false })

	code, resp := serve(t, e, http.MethodPost, "/api/v1/admin/reconcile/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", resp.Code)

	code, resp = serve(t, e, http.MethodPost, "/api/v1/admin/reconcile/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "SESSION_NOT_FOUND", resp.Code)

	code, resp = serve(t, e, http.MethodPost, "/api/v1/admin/reconcile", `{"tx_policy":"sometimes"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", resp.Code)

	code, resp = serve(t, e, http.MethodPost, "/api/v1/admin/reconcile/"+sessionID.String(), `{"tx_policy":"required"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, CodeTransactionsRequired, resp.Code)
	assert.Zero(t, f.seatCount(t, sessionID))
}

func TestController_ReconcileAll(t *testing.T) {
	f := newEngineFixture(t)
	f.newSession(t, f.auditorium)
	f.newSession(t, f.newAuditorium(t, nil))
	e, _ := f.engine(nil, nil)

	code, resp := serve(t, e, http.MethodPost, "/api/v1/admin/reconcile", `{"batch_size":1}`)
	require.Equal(t, http.StatusOK, code)

	var batch BatchReport
	require.NoError(t, json.Unmarshal(resp.Data, &batch))
	assert.Equal(t, 2, batch.Totals.Sessions)
	assert.Equal(t, 1, batch.Totals.MissingLayout)
	assert.Equal(t, 8, batch.Totals.Inserted)
	assert.Zero(t, batch.Totals.Failed)
}
