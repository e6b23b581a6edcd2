package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/satyamkes/JanSahyog/internal/aiclient"
	"github.com/satyamkes/JanSahyog/internal/config"
	"github.com/satyamkes/JanSahyog/internal/database"
	"github.com/satyamkes/JanSahyog/internal/features"
	"github.com/satyamkes/JanSahyog/internal/models"
	"github.com/satyamkes/JanSahyog/internal/service"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test_handler.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupRouter(t *testing.T, opts ...service.Option) (*chi.Mux, *database.DB) {
	t.Helper()
	db := setupTestDB(t)
	h := NewHandler(service.NewService(db, opts...))
	r := chi.NewRouter()
	h.Routes(r)
	return r, db
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

const openScheme = `{
	"name": "Open Scheme",
	"description": "Support for everyone",
	"category": "Social Welfare",
	"benefits": "Monthly pension",
	"eligibilityCriteria": {
		"minAge": 18, "maxAge": 60, "minIncome": 0, "maxIncome": 200000,
		"categories": ["All"], "gender": "All", "states": ["All"]
	}
}`

const punjabProfile = `{"age": 45, "income": 150000, "category": "General", "gender": "Male", "state": "Punjab"}`

func createScheme(t *testing.T, r http.Handler, body string) models.Scheme {
	t.Helper()
	rr := do(t, r, http.MethodPost, "/api/schemes", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp models.SchemeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Scheme
}

func TestHealthCheck(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Welfare API is running", resp.Message)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestUnknownRoute(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"Route not found"}`, rr.Body.String())

	rr = do(t, r, http.MethodDelete, "/api/schemes", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCreateScheme_Success(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodPost, "/api/schemes", openScheme)
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp models.SchemeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Scheme created successfully", resp.Message)
	assert.NotEmpty(t, resp.Scheme.ID)
	assert.Equal(t, "Open Scheme", resp.Scheme.Name)
	assert.Equal(t, "Ongoing", resp.Scheme.Duration)
	assert.True(t, resp.Scheme.IsActive)
}

func TestCreateScheme_ValidationErrorIs500(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodPost, "/api/schemes", `{"description":"d","category":"Housing","benefits":"b"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Scheme name is required")
}

func TestCreateScheme_Duplicate(t *testing.T) {
	r, _ := setupRouter(t)
	createScheme(t, r, openScheme)

	rr := do(t, r, http.MethodPost, "/api/schemes", openScheme)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), database.ErrDuplicateName.Error())
}

func TestCreateScheme_InvalidJSON(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodPost, "/api/schemes", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, http.MethodPost, "/api/schemes", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListSchemes(t *testing.T) {
	r, db := setupRouter(t)

	rr := do(t, r, http.MethodGet, "/api/schemes", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"count":0,"schemes":[]}`, rr.Body.String())

	createScheme(t, r, openScheme)
	createScheme(t, r, strings.Replace(openScheme, "Open Scheme", "Second Scheme", 1))

	inactive := models.CreateSchemeRequest{Name: "Inactive", Description: "d", Category: models.CategoryOther, Benefits: "b"}.ToScheme()
	inactive.IsActive = false
	_, err := db.CreateScheme(context.Background(), inactive)
	require.NoError(t, err)

	rr = do(t, r, http.MethodGet, "/api/schemes", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.SchemeListResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Schemes, 2)
	assert.Equal(t, "Second Scheme", resp.Schemes[0].Name)
}

func TestGetScheme(t *testing.T) {
	r, _ := setupRouter(t)
	created := createScheme(t, r, openScheme)

	rr := do(t, r, http.MethodGet, "/api/schemes/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.SchemeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, created.ID, resp.Scheme.ID)

	rr = do(t, r, http.MethodGet, "/api/schemes/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"Scheme not found"}`, rr.Body.String())
}

func TestCheckEligibility_Success(t *testing.T) {
	r, _ := setupRouter(t)
	created := createScheme(t, r, openScheme)
	createScheme(t, r, strings.Replace(
		strings.Replace(openScheme, "Open Scheme", "Low Income", 1),
		`"maxIncome": 200000`, `"maxIncome": 100000`, 1))

	rr := do(t, r, http.MethodPost, "/api/eligibility/check", punjabProfile)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.EligibilityResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Schemes, 1)
	assert.Equal(t, created.ID, resp.Schemes[0].ID)
	assert.GreaterOrEqual(t, resp.Schemes[0].MatchScore, 85)
	assert.LessOrEqual(t, resp.Schemes[0].MatchScore, 99)
	assert.Equal(t, "Punjab", resp.UserProfile.State)
	assert.Equal(t, 45, resp.UserProfile.Age)
}

func TestCheckEligibility_ZeroIncomeIsPresent(t *testing.T) {
	r, _ := setupRouter(t)
	createScheme(t, r, openScheme)

	rr := do(t, r, http.MethodPost, "/api/eligibility/check",
		`{"age": 30, "income": 0, "category": "SC", "state": "Bihar"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":1`)
}

func TestCheckEligibility_BadRequests(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty body", "", "Please provide all required fields: age, income, category, and state"},
		{"missing age", `{"income": 1, "category": "General", "state": "Punjab"}`, "Please provide all required fields: age, income, category, and state"},
		{"missing income", `{"age": 30, "category": "General", "state": "Punjab"}`, "Please provide all required fields: age, income, category, and state"},
		{"missing category", `{"age": 30, "income": 1, "state": "Punjab"}`, "Please provide all required fields: age, income, category, and state"},
		{"blank state", `{"age": 30, "income": 1, "category": "General", "state": "  "}`, "Please provide all required fields: age, income, category, and state"},
		{"malformed", `{"age": "thirty"`, "invalid JSON in request body"},
		{"negative income", `{"age": 30, "income": -5, "category": "General", "state": "Punjab"}`, ""},
		{"zero age", `{"age": 0, "income": 5, "category": "General", "state": "Punjab"}`, ""},
		{"unknown category", `{"age": 30, "income": 5, "category": "Minority", "state": "Punjab"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, r, http.MethodPost, "/api/eligibility/check", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.False(t, resp.Success)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Message)
			} else {
				assert.NotEmpty(t, resp.Message)
			}
		})
	}
}

func TestCheckEligibility_BodyTooLarge(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandlerWithOptions(service.NewService(db), NewHandlerOptions{MaxBodySize: 16})
	r := chi.NewRouter()
	h.Routes(r)

	rr := do(t, r, http.MethodPost, "/api/eligibility/check", punjabProfile)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestCheckEligibilityAI_RelaysUpstream(t *testing.T) {
	const upstream = `{"success":true,"count":2,"schemes":[{"name":"A"},{"name":"B"}],"model":"v2"}`
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstream))
	}))
	defer ai.Close()

	r, _ := setupRouter(t, service.WithAIClient(aiclient.New(ai.URL, time.Second)))

	rr := do(t, r, http.MethodPost, "/api/eligibility/ai-check", punjabProfile)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, upstream, rr.Body.String())
}

func TestCheckEligibilityAI_FallsBackWhenRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	r, _ := setupRouter(t, service.WithAIClient(aiclient.New("http://"+addr, time.Second)))
	createScheme(t, r, openScheme)

	rr := do(t, r, http.MethodPost, "/api/eligibility/ai-check", punjabProfile)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.EligibilityResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Count)
}

func TestCheckEligibilityAI_UpstreamFailure(t *testing.T) {
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ai.Close()

	r, _ := setupRouter(t, service.WithAIClient(aiclient.New(ai.URL, time.Second)))

	rr := do(t, r, http.MethodPost, "/api/eligibility/ai-check", punjabProfile)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to check eligibility. Please try again."}`, rr.Body.String())
}

func TestCheckEligibilityAI_MissingFields(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodPost, "/api/eligibility/ai-check", `{"age": 30}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (b brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestCheckEligibilityAI_RelayWriteFailureLogged(t *testing.T) {
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"count":0,"schemes":[]}`))
	}))
	defer ai.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	svc := service.NewService(setupTestDB(t), service.WithAIClient(aiclient.New(ai.URL, time.Second)))
	h := NewHandlerWithOptions(svc, NewHandlerOptions{Logger: zap.New(core)})
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/api/eligibility/ai-check", strings.NewReader(punjabProfile))
	w := brokenWriter{httptest.NewRecorder()}
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	entries := logs.FilterMessage("failed to write response").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestFeatures(t *testing.T) {
	flags := features.NewManagerFromConfig(config.FeaturesConfig{CacheEnabled: true, AIMatching: false})
	r, _ := setupRouter(t, service.WithFeatures(flags))

	rr := do(t, r, http.MethodGet, "/api/features", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success  bool                   `json:"success"`
		Features []features.FeatureFlag `json:"features"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Features, 3)
	assert.Equal(t, features.FeatureAIMatching, resp.Features[0].Name)
	assert.False(t, resp.Features[0].Enabled)
	assert.Equal(t, features.FeatureCacheEnabled, resp.Features[1].Name)
	assert.True(t, resp.Features[1].Enabled)

	rr = do(t, r, http.MethodPost, "/api/features", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestFeatures_NoneWired(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodGet, "/api/features", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"features":[]}`, rr.Body.String())
}
