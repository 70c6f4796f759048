package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyEmployeeTargetsLinkedAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs("t1", "emp-1", TypePayslipPaid, "Payslip paid", "Your payslip for 2026-01 was paid.", "ps-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := New(NewStore(mock), nil)
	svc.NotifyEmployee(context.Background(), "t1", "emp-1", TypePayslipPaid, "Payslip paid", "Your payslip for 2026-01 was paid.", "ps-1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifyEmployeeSwallowsFailures(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	svc := New(NewStore(mock), nil)
	svc.NotifyEmployee(context.Background(), "t1", "emp-1", TypeOvertimeDecided, "t", "b", "ot-1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReturnsPageAndTotal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("t1", "u1", true).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id::text, type, title, body, entity_id, read_at, created_at").
		WithArgs("t1", "u1", true, 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "type", "title", "body", "entity_id", "read_at", "created_at"}).
			AddRow("n1", TypePayslipPaid, "Payslip paid", "body", "ps-1", (*time.Time)(nil), created))

	svc := New(NewStore(mock), nil)
	items, total, err := svc.List(context.Background(), "t1", "u1", true, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "ps-1", items[0].EntityID)
	assert.Nil(t, items[0].ReadAt)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE notifications SET read_at").
		WithArgs("t1", "u1", "n9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	svc := New(NewStore(mock), nil)
	err = svc.MarkRead(context.Background(), "t1", "u1", "n9")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}
