package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalauth "inspection_log/internal/auth"
	"inspection_log/internal/docno"
	"inspection_log/internal/httpx"
	"inspection_log/internal/model"
	"inspection_log/internal/report"
	"inspection_log/internal/repository"
	"inspection_log/internal/service"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	router *gin.Engine
	users  *service.UserService
	issuer *internalauth.TokenIssuer
}

func newTestAPI(t *testing.T, authRequired bool) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, _ := test.NewNullLogger()
	entry := logrus.NewEntry(logger)
	clock := func() time.Time { return time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC) }

	forms := service.NewFormService(service.FormServiceConfig{
		Repo:     repository.NewMemoryFormRepository(),
		Policy:   docno.NewPolicy("AGI-APR"),
		Renderer: report.NewPDFRenderer(t.TempDir(), entry),
		Logger:   entry,
		Now:      clock,
	})
	users := service.NewUserService(repository.NewMemoryUserRepository(), nil, entry)
	issuer, err := internalauth.NewTokenIssuer("test-secret", "inspection_log", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	SetupRouter(r, Deps{
		Forms:        forms,
		Users:        users,
		Issuer:       issuer,
		AuthRequired: authRequired,
		CORSOrigin:   "*",
		Logger:       entry,
	})
	return &testAPI{router: r, users: users, issuer: issuer}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, header ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeForm(t *testing.T, env envelope) model.InspectionForm {
	t.Helper()
	var f model.InspectionForm
	require.NoError(t, json.Unmarshal(env.Data, &f))
	return f
}

func decodeForms(t *testing.T, env envelope) []model.InspectionForm {
	t.Helper()
	var fs []model.InspectionForm
	require.NoError(t, json.Unmarshal(env.Data, &fs))
	return fs
}

func sampleBody() map[string]interface{} {
	return map[string]interface{}{
		"product":        "100 mL Bag Pke.",
		"variant":        "Pink matt",
		"inspectionDate": "2025-03-08",
		"lacquers": []map[string]interface{}{
			{"id": 1, "name": "Clear Extn", "weight": "11.74", "batchNo": "2634", "expiryDate": "2025-10-24"},
		},
		"characteristics": []map[string]interface{}{
			{"id": 6, "name": "Coating Thickness", "bodyThickness": "20 mic", "bottomThickness": "10.2 mic"},
		},
	}
}

func TestPing(t *testing.T) {
	api := newTestAPI(t, false)
	w, env := api.do(t, http.MethodGet, "/api/v1/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, httpx.CodeSuccess, env.Code)
}

func TestFormWorkflow(t *testing.T) {
	api := newTestAPI(t, false)

	w, env := api.do(t, http.MethodPost, "/api/v1/forms", sampleBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeForm(t, env)
	assert.Equal(t, "AGI-APR-25-1", created.DocumentNo)
	assert.Equal(t, model.FormStatusDraft, created.Status)
	assert.Equal(t, "00", created.IssuanceNo)
	require.Len(t, created.Characteristics, 1)
	assert.Equal(t, "10.2 mic", created.Characteristics[0].BottomThickness)

	w, env = api.do(t, http.MethodPost, "/api/v1/forms/1/submit?submittedBy=John%20Operator", nil)
	require.Equal(t, http.StatusOK, w.Code)
	submitted := decodeForm(t, env)
	assert.Equal(t, model.FormStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	w, env = api.do(t, http.MethodPost, "/api/v1/forms/1/approve?reviewedBy=Sarah%20AVP", nil)
	require.Equal(t, http.StatusOK, w.Code)
	approved := decodeForm(t, env)
	assert.Equal(t, model.FormStatusApproved, approved.Status)
	assert.Equal(t, "Sarah AVP", approved.ReviewedBy)
	assert.False(t, approved.ReviewedAt.Before(*approved.SubmittedAt))

	w, env = api.do(t, http.MethodGet, "/api/v1/forms/status/approved", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeForms(t, env), 1)

	w, env = api.do(t, http.MethodGet, "/api/v1/forms/reviewer/Sarah%20AVP", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeForms(t, env), 1)

	w, env = api.do(t, http.MethodGet, "/api/v1/forms/submitter/John%20Operator", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeForms(t, env), 1)
}

func TestFormErrors(t *testing.T) {
	api := newTestAPI(t, false)
	w, _ := api.do(t, http.MethodPost, "/api/v1/forms", sampleBody())
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"bad status", http.MethodGet, "/api/v1/forms/status/PENDING", nil, http.StatusBadRequest},
		{"missing form", http.MethodGet, "/api/v1/forms/99", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/forms/abc", nil, http.StatusBadRequest},
		{"duplicate number", http.MethodPost, "/api/v1/forms", map[string]interface{}{"documentNo": "AGI-APR-25-1"}, http.StatusConflict},
		{"reject without comments", http.MethodPost, "/api/v1/forms/1/reject?reviewedBy=qa", nil, http.StatusBadRequest},
		{"submit without actor", http.MethodPost, "/api/v1/forms/1/submit", nil, http.StatusBadRequest},
		{"date range missing", http.MethodGet, "/api/v1/forms/date-range?startDate=2025-01-01", nil, http.StatusBadRequest},
		{"date range malformed", http.MethodGet, "/api/v1/forms/date-range?startDate=01-01-2025&endDate=2025-02-01", nil, http.StatusBadRequest},
		{"search without product", http.MethodGet, "/api/v1/forms/search", nil, http.StatusBadRequest},
		{"pdf of missing form", http.MethodGet, "/api/v1/forms/42/pdf", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestFormQueriesAndDelete(t *testing.T) {
	api := newTestAPI(t, false)
	w, _ := api.do(t, http.MethodPost, "/api/v1/forms", sampleBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := api.do(t, http.MethodGet, "/api/v1/forms/date-range?startDate=2025-03-08&endDate=2025-03-08", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeForms(t, env), 1)

	w, env = api.do(t, http.MethodGet, "/api/v1/forms/date-range?startDate=2025-04-01&endDate=2025-03-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeForms(t, env))

	w, env = api.do(t, http.MethodGet, "/api/v1/forms/search?product=bag", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeForms(t, env), 1)

	w, env = api.do(t, http.MethodGet, "/api/v1/forms/variant/Pink%20matt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeForms(t, env), 1)

	w, env = api.do(t, http.MethodGet, "/api/v1/forms/document/AGI-APR-25-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeForm(t, env).ID)

	update := sampleBody()
	update["documentNo"] = "AGI-APR-25-1"
	update["product"] = "200 mL Bottle"
	w, env = api.do(t, http.MethodPut, "/api/v1/forms/1", update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "200 mL Bottle", decodeForm(t, env).Product)

	w, _ = api.do(t, http.MethodDelete, "/api/v1/forms/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = api.do(t, http.MethodDelete, "/api/v1/forms/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = api.do(t, http.MethodGet, "/api/v1/forms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeForms(t, env))
}

func TestFormPDFAndExport(t *testing.T) {
	api := newTestAPI(t, false)
	w, _ := api.do(t, http.MethodPost, "/api/v1/forms", sampleBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = api.do(t, http.MethodGet, "/api/v1/forms/1/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="inspection_form_AGI-APR-25-1.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "must-revalidate, post-check=0, pre-check=0", w.Header().Get("Cache-Control"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w, _ = api.do(t, http.MethodGet, "/api/v1/forms/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, report.XLSXContentType, w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w, _ = api.do(t, http.MethodGet, "/api/v1/forms/export?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsersAndLogin(t *testing.T) {
	api := newTestAPI(t, false)

	w, env := api.do(t, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"username": "qa", "password": "qa123", "name": "Mike QA", "role": "qa",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, string(env.Data), "qa123")

	w, _ = api.do(t, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"username": "qa", "password": "x", "role": "QA",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(t, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"username": "boss", "password": "x", "role": "CEO",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, http.MethodGet, "/api/v1/users/role/QA", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodGet, "/api/v1/users/role/nobody", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = api.do(t, http.MethodPost, "/api/v1/users/login?username=qa&password=qa123", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "Mike QA", login.User.Name)

	w, _ = api.do(t, http.MethodPost, "/api/v1/users/login", map[string]string{"username": "qa", "password": "qa123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodPost, "/api/v1/users/login?username=qa&password=wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid username or password", env.Message)

	w, env = api.do(t, http.MethodPut, "/api/v1/users/1/toggle-active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, envFail := api.do(t, http.MethodPost, "/api/v1/users/login?username=qa&password=qa123", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid username or password", envFail.Message)

	w, _ = api.do(t, http.MethodPut, "/api/v1/users/1", map[string]interface{}{"name": "Mike Q."})
	assert.Equal(t, http.StatusBadRequest, w.Code, "role is required on update")
	w, _ = api.do(t, http.MethodPut, "/api/v1/users/1", map[string]interface{}{"name": "Mike Q.", "role": "QA", "active": true})
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = api.do(t, http.MethodGet, "/api/v1/users/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Mike Q.")

	w, _ = api.do(t, http.MethodDelete, "/api/v1/users/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = api.do(t, http.MethodGet, "/api/v1/users/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRequiredRoutes(t *testing.T) {
	api := newTestAPI(t, true)
	_, err := api.users.Create(context.Background(), service.UserInput{
		Username: "avp", Password: "avp123", Name: "Sarah AVP", Role: "AVP",
	})
	require.NoError(t, err)

	w, _ := api.do(t, http.MethodGet, "/api/v1/forms", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = api.do(t, http.MethodGet, "/api/v1/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := api.do(t, http.MethodPost, "/api/v1/users/login?username=avp&password=avp123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))

	w, env = api.do(t, http.MethodGet, "/api/v1/me", nil, "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"username":"avp"`)

	w, _ = api.do(t, http.MethodPost, "/api/v1/forms", sampleBody(), "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusCreated, w.Code)

	// the reviewer falls back to the token user
	w, _ = api.do(t, http.MethodPost, "/api/v1/forms/1/submit", nil, "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = api.do(t, http.MethodPost, "/api/v1/forms/1/approve", nil, "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "avp", decodeForm(t, env).ReviewedBy)
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t, false)
	api.do(t, http.MethodGet, "/api/v1/ping", nil)

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inspection_http_requests_total")
}
