package ledger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicehub/internal/domain/booking"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *testEnv) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := setupTestEnv(t)
	h := NewHandler(env.svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User-ID"); userID != "" {
			id, _ := strconv.ParseInt(userID, 10, 64)
			c.Set("user_id", id)
		}
		c.Next()
	})

	h.RegisterWorkerRoutes(r.Group("/api/v1"))
	h.RegisterAdminRoutes(r.Group("/api/v1/admin"))
	h.RegisterInternalRoutes(r.Group("/internal/v1"))
	return r, env
}

func doJSONRequest(r http.Handler, method, path string, body any, userID int64) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User-ID", strconv.FormatInt(userID, 10))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	return e
}

func TestConfirmThenWithdraw_OverHTTP(t *testing.T) {
	r, env := setupTestRouter(t)
	b := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusPending)

	confirm := map[string]any{"booking_id": b.ID, "amount": 1000, "external_ref": "pi_1"}
	rr := doJSONRequest(r, http.MethodPost, "/internal/v1/payments/confirm", confirm, 0)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSONRequest(r, http.MethodPost, "/internal/v1/payments/confirm", confirm, 0)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSONRequest(r, http.MethodGet, "/api/v1/workers/me/wallet", nil, testWorkerID)
	require.Equal(t, http.StatusOK, rr.Code)
	var wallet struct {
		Wallet struct {
			BalanceAmount int64 `json:"balance_amount"`
		} `json:"wallet"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &wallet))
	assert.Equal(t, int64(900), wallet.Wallet.BalanceAmount)

	rr = doJSONRequest(r, http.MethodPost, "/api/v1/workers/me/withdrawals", map[string]any{"amount": 1000}, testWorkerID)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "INSUFFICIENT_BALANCE", decode(t, rr).Error.Code)

	rr = doJSONRequest(r, http.MethodPost, "/api/v1/workers/me/withdrawals", map[string]any{"amount": 900}, testWorkerID)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSONRequest(r, http.MethodGet, "/api/v1/workers/me/payments", nil, testWorkerID)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &list))
	assert.Equal(t, int64(2), list.Total)

	rr = doJSONRequest(r, http.MethodGet, "/api/v1/admin/workers/1/audit", nil, 0)
	require.Equal(t, http.StatusOK, rr.Code)
	var audit struct {
		Balanced bool `json:"balanced"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &audit))
	assert.True(t, audit.Balanced)

	rr = doJSONRequest(r, http.MethodGet, "/api/v1/admin/wallet", nil, 0)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestConfirmPayment_ErrorCodes(t *testing.T) {
	r, env := setupTestRouter(t)
	b := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusPending)

	rr := doJSONRequest(r, http.MethodPost, "/internal/v1/payments/confirm",
		map[string]any{"booking_id": b.ID, "amount": 10, "external_ref": "pi_1"}, 0)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "AMOUNT_MISMATCH", decode(t, rr).Error.Code)

	rr = doJSONRequest(r, http.MethodPost, "/internal/v1/payments/confirm",
		map[string]any{"booking_id": 999, "amount": 10, "external_ref": "pi_2"}, 0)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSONRequest(r, http.MethodPost, "/internal/v1/payments/confirm",
		map[string]any{"booking_id": b.ID, "amount": 1000}, 0)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCashPayment_OverHTTP(t *testing.T) {
	r, env := setupTestRouter(t)
	b := env.createBooking(t, 500, booking.PaymentMethodCOD, booking.StatusAccepted)

	rr := doJSONRequest(r, http.MethodPost, "/internal/v1/payments/cash", map[string]any{"booking_id": b.ID}, 0)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		Payment struct {
			ID string `json:"id"`
		} `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &created))

	path := "/internal/v1/payments/" + created.Payment.ID + "/reconcile"
	rr = doJSONRequest(r, http.MethodPost, path, map[string]any{}, 0)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSONRequest(r, http.MethodPost, path, map[string]any{"collected": false}, 0)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSONRequest(r, http.MethodPost, path, map[string]any{"collected": true}, 0)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "PAYMENT_NOT_PENDING", decode(t, rr).Error.Code)

	rr = doJSONRequest(r, http.MethodPost, "/internal/v1/payments/not-a-uuid/reconcile", map[string]any{"collected": true}, 0)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
