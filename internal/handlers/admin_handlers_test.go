package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/01moynul/foodhub-golang/internal/notify"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastNotification_ReportsPartialFailure(t *testing.T) {
	h, mock, _ := newTestHandlers(t)
	// Dispatch runs concurrently; one connection keeps sqlmock calls serialized.
	h.DB.SetMaxOpenConns(1)
	mock.MatchExpectationsInOrder(false)

	for _, id := range []int64{2, 4} {
		mock.ExpectExec("INSERT INTO notifications").
			WithArgs(id, "Maintenance", sqlmock.AnyArg(), models.NotifyBroadcast, sqlmock.AnyArg(), testNow).
			WillReturnResult(sqlmock.NewResult(id, 1))
	}
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(int64(3), "Maintenance", sqlmock.AnyArg(), models.NotifyBroadcast, sqlmock.AnyArg(), testNow).
		WillReturnError(errors.New("deadlock found"))
	expectAudit(mock, models.AuditBroadcastSent)

	w := serve(h.BroadcastNotification, http.MethodPost, "/v1/admin/notifications/broadcast", "/v1/admin/notifications/broadcast",
		BroadcastInput{Title: "Maintenance", Message: "Back at 2am", RecipientIDs: []int64{2, 3, 4}}, 1, "admin")
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())

	var result notify.BatchResult
	decodeBody(t, w, &result)
	assert.ElementsMatch(t, []int64{2, 4}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(3), result.Failed[0].RecipientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBroadcastNotification_ByRole(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE role = ? AND is_deactivated = 0")).WithArgs("owner").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	expectNotification(mock, 11, "New fees")
	expectAudit(mock, models.AuditBroadcastSent)

	w := serve(h.BroadcastNotification, http.MethodPost, "/v1/admin/notifications/broadcast", "/v1/admin/notifications/broadcast",
		BroadcastInput{Title: "New fees", Message: "From next month", Role: "owner"}, 1, "admin")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBroadcastNotification_NeedsRecipients(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	w := serve(h.BroadcastNotification, http.MethodPost, "/v1/admin/notifications/broadcast", "/v1/admin/notifications/broadcast",
		BroadcastInput{Title: "x", Message: "y"}, 1, "admin")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockUser(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET failed_attempts = 0, locked_until = NULL, attempts_reset_at = ?, updated_at = ? WHERE id = ?")).
		WithArgs(testNow, testNow, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(models.AuditUserUnlocked, int64(1), int64(5), sqlmock.AnyArg(), testNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := serve(h.UnlockUser, http.MethodPatch, "/v1/admin/users/:id/unlock", "/v1/admin/users/5/unlock", nil, 1, "admin")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockUser_NotFound(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET failed_attempts = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	w := serve(h.UnlockUser, http.MethodPatch, "/v1/admin/users/:id/unlock", "/v1/admin/users/404/unlock", nil, 1, "admin")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateUser(t *testing.T) {
	t.Run("reason is required", func(t *testing.T) {
		h, mock, _ := newTestHandlers(t)
		w := serve(h.DeactivateUser, http.MethodPatch, "/v1/admin/users/:id/deactivate", "/v1/admin/users/5/deactivate",
			DeactivateUserInput{Reason: "   "}, 1, "admin")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not yourself", func(t *testing.T) {
		h, mock, _ := newTestHandlers(t)
		w := serve(h.DeactivateUser, http.MethodPatch, "/v1/admin/users/:id/deactivate", "/v1/admin/users/1/deactivate",
			DeactivateUserInput{Reason: "test"}, 1, "admin")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deactivates with audit", func(t *testing.T) {
		h, mock, _ := newTestHandlers(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_deactivated = 1")).
			WithArgs(testNow, int64(1), "Chargeback fraud", testNow, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").
			WithArgs(models.AuditUserDeactivated, int64(1), int64(5), []byte(`{"reason":"Chargeback fraud"}`), testNow).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		w := serve(h.DeactivateUser, http.MethodPatch, "/v1/admin/users/:id/deactivate", "/v1/admin/users/5/deactivate",
			DeactivateUserInput{Reason: "Chargeback fraud"}, 1, "admin")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
