package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/01moynul/foodhub-golang/internal/events"
	"github.com/01moynul/foodhub-golang/internal/ledger"
	"github.com/01moynul/foodhub-golang/internal/ratelimit"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.OrderStatusChanged
}

func (p *fakePublisher) PublishOrderStatus(_ context.Context, evt events.OrderStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestHandlers wires Handlers to sqlmock with a fixed clock and a
// 1.5/item fee split 1.0 platform, 0.5 supervisor.
func newTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock, *fakePublisher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pub := &fakePublisher{}
	h := &Handlers{
		DB:        db,
		JWTSecret: []byte("test-secret-at-least-16"),
		JWTTTL:    time.Hour,
		Fees: ledger.FeeSchedule{
			PerItem:         dec("1.5"),
			PlatformShare:   dec("1"),
			SupervisorShare: dec("0.5"),
		},
		RateLimit: ratelimit.DefaultPolicy(),
		Events:    pub,
		Now:       func() time.Time { return testNow },
	}
	return h, mock, pub
}

// serve runs one request through handler with the identity AuthMiddleware
// would have set. userID 0 leaves the context anonymous.
func serve(handler gin.HandlerFunc, method, pattern, target string, body interface{}, userID int64, role string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, pattern, func(c *gin.Context) {
		if userID != 0 {
			c.Set("userID", userID)
			c.Set("userRole", role)
		}
		c.Next()
	}, handler)

	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, w, &body)
	return body.Error
}

// expectWalletRow expects AddWalletTransaction: the locked SUM, then the insert.
func expectWalletRow(mock sqlmock.Sqlmock, walletType string, ownerID int64, balance, amount, after string) {
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM wallet_transactions WHERE wallet_type = \? AND wallet_owner_id = \? FOR UPDATE`).
		WithArgs(walletType, ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(balance))
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WithArgs(walletType, ownerID, sqlmock.AnyArg(), sqlmock.AnyArg(), dec(amount), dec(after), sqlmock.AnyArg(), testNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func expectNotification(mock sqlmock.Sqlmock, recipientID int64, title string) {
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(recipientID, title, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), testNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func expectAudit(mock sqlmock.Sqlmock, action string) {
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(action, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), testNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
}
