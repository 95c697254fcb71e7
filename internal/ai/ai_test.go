package ai

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsReadOnlyQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT COUNT(*) FROM orders", true},
		{"  select id from users where role = 'owner';  ", true},
		{"WITH d AS (SELECT * FROM orders) SELECT COUNT(*) FROM d", true},
		{"UPDATE users SET role = 'admin'", false},
		{"SELECT 1; DROP TABLE users", false},
		{"SELECT * FROM orders FOR UPDATE", false},
		{"SELECT * FROM users INTO OUTFILE '/tmp/x'", false},
		{"DELETE FROM notifications", false},
		{"SHOW TABLES", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsReadOnlyQuery(tt.query), tt.query)
	}
}

func TestRunReadOnlyQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &AIService{DB: db}

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).
			AddRow([]byte("delivered"), int64(4)).
			AddRow([]byte("pending"), int64(1)))

	out, err := s.runReadOnlyQuery(context.Background(), "SELECT status, COUNT(*) AS n FROM orders GROUP BY status")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"status":"delivered","n":4},{"status":"pending","n":1}]`, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunReadOnlyQuery_RejectsWrites(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &AIService{DB: db}
	_, err = s.runReadOnlyQuery(context.Background(), "UPDATE orders SET status = 'delivered'")
	assert.ErrorIs(t, err, ErrWriteQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}
