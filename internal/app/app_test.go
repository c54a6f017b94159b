package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"servicehub/internal/config"
	"servicehub/internal/database"
	"servicehub/internal/domain/notification"
	jwtsvc "servicehub/internal/pkg/jwt"
)

const internalToken = "test-internal-token"

// Sunday noon; Monday 2026-10-19 is the next day.
var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type suite struct {
	t        *testing.T
	app      *App
	recorder *notification.Recorder
}

type testResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func setupSuite(t *testing.T) *suite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.OpenSQLite(fmt.Sprintf("file:app_test_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, zap.NewNop(), Models()...))

	recorder := &notification.Recorder{}
	cfg := &config.Config{
		AppEnv:            "test",
		JWTSecret:         "test-secret",
		JWTTTL:            time.Hour,
		InternalToken:     internalToken,
		CommissionRateBPS: 1000,
		BookingWindowDays: 7,
	}

	a := New(Deps{
		Config:     cfg,
		DB:         db,
		Logger:     zap.NewNop(),
		Dispatcher: recorder,
		Now:        func() time.Time { return testNow },
	})
	return &suite{t: t, app: a, recorder: recorder}
}

func (s *suite) token(userID int64, role string) string {
	s.t.Helper()
	tok, err := s.app.JWT.GenerateToken(userID, role)
	require.NoError(s.t, err)
	return "Bearer " + tok
}

func (s *suite) do(method, path, auth string, body any) (int, testResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	rr := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rr, req)

	var resp testResponse
	if rr.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	}
	return rr.Code, resp
}

func errorCode(r testResponse) string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

func TestFullBookingAndPayoutFlow(t *testing.T) {
	s := setupSuite(t)
	admin := s.token(1, jwtsvc.RoleAdmin)
	workerAuth := s.token(10, jwtsvc.RoleWorker)
	customer := s.token(100, jwtsvc.RoleCustomer)
	otherCustomer := s.token(101, jwtsvc.RoleCustomer)

	code, _ := s.do(http.MethodPost, "/api/v1/admin/workers", admin, map[string]any{
		"id": 10, "name": "Aida", "service_name": "Plumbing",
	})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(http.MethodPut, "/api/v1/workers/me/availability/fixed", workerAuth, map[string]any{
		"slots": []map[string]any{{"day": "monday", "time_range": "09:00-11:00", "enabled": true}},
	})
	require.Equal(t, http.StatusOK, code)

	code, resp := s.do(http.MethodGet, "/api/v1/workers/10/slots?date=2026-10-19", "", nil)
	require.Equal(t, http.StatusOK, code)
	slots := resp.Data["slots"].([]any)
	require.Len(t, slots, 1)
	assert.Equal(t, "fixed-09:00-11:00", slots[0].(map[string]any)["slot_id"])

	reserve := map[string]any{
		"worker_id":      10,
		"date":           "2026-10-19",
		"slot_id":        "fixed-09:00-11:00",
		"service_name":   "Pipe repair",
		"amount":         1000,
		"payment_method": "online",
	}
	code, resp = s.do(http.MethodPost, "/api/v1/bookings", customer, reserve)
	require.Equal(t, http.StatusCreated, code)
	bookingID := int64(resp.Data["booking"].(map[string]any)["id"].(float64))

	code, resp = s.do(http.MethodPost, "/api/v1/bookings", otherCustomer, reserve)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SLOT_UNAVAILABLE", errorCode(resp))

	confirm := map[string]any{"booking_id": bookingID, "amount": 1000, "external_ref": "pi_42"}
	code, _ = s.do(http.MethodPost, "/internal/v1/payments/confirm", "", confirm)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(http.MethodPost, "/internal/v1/payments/confirm", "Bearer "+internalToken, confirm)
	require.Equal(t, http.StatusOK, code)

	path := fmt.Sprintf("/api/v1/bookings/%d", bookingID)
	code, _ = s.do(http.MethodPost, path+"/accept", customer, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodPost, path+"/accept", workerAuth, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodPost, path+"/complete", workerAuth, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodGet, "/api/v1/workers/me/wallet", workerAuth, nil)
	require.Equal(t, http.StatusOK, code)
	wallet := resp.Data["wallet"].(map[string]any)
	assert.EqualValues(t, 900, wallet["balance_amount"])

	code, resp = s.do(http.MethodPost, "/api/v1/workers/me/withdrawals", workerAuth, map[string]any{"amount": 901})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INSUFFICIENT_BALANCE", errorCode(resp))
	code, _ = s.do(http.MethodPost, "/api/v1/workers/me/withdrawals", workerAuth, map[string]any{"amount": 900})
	require.Equal(t, http.StatusCreated, code)

	code, resp = s.do(http.MethodGet, "/api/v1/admin/workers/10/audit", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp.Data["balanced"])

	code, resp = s.do(http.MethodGet, "/api/v1/admin/wallet", admin, nil)
	require.Equal(t, http.StatusOK, code)
	platform := resp.Data["wallet"].(map[string]any)["wallet"].(map[string]any)
	assert.EqualValues(t, 100, platform["balance_amount"])

	assert.Equal(t, []notification.Type{
		notification.TypeBookingReserved,
		notification.TypePaymentConfirmed,
		notification.TypeBookingAccepted,
		notification.TypeBookingCompleted,
		notification.TypeWalletWithdrawn,
	}, s.recorder.Types())
}

func TestRoleGuards(t *testing.T) {
	s := setupSuite(t)
	customer := s.token(100, jwtsvc.RoleCustomer)
	workerAuth := s.token(10, jwtsvc.RoleWorker)

	code, _ := s.do(http.MethodGet, "/api/v1/workers/me/wallet", customer, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodPost, "/api/v1/bookings", workerAuth, map[string]any{})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodGet, "/api/v1/admin/wallet", workerAuth, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := s.do(http.MethodGet, "/api/v1/bookings/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_HEADER_MISSING", errorCode(resp))

	code, _ = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}
