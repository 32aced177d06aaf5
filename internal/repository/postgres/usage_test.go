package postgres

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"switchboard/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestUsageRepo_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUsageRepo(db, "test-bot")

	mock.ExpectExec("INSERT INTO usage_logs").
		WithArgs("test-bot", "U1", "echo", "message", "hi", []byte(`{"length":2}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Append(context.Background(), domain.UsageEntry{
		UserID:         "U1",
		FunctionName:   "echo",
		Event:          domain.EventMessage,
		MessagePreview: "hi",
		Metadata:       map[string]any{"length": 2},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepo_Append_TruncatesPreview(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUsageRepo(db, "test-bot")

	long := strings.Repeat("x", 250)
	mock.ExpectExec("INSERT INTO usage_logs").
		WithArgs("test-bot", "U1", "echo", "message", strings.Repeat("x", 100), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Append(context.Background(), domain.UsageEntry{
		UserID:         "U1",
		FunctionName:   "echo",
		Event:          domain.EventMessage,
		MessagePreview: long,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepo_Append_TruncatesPreviewOnRuneBoundary(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUsageRepo(db, "test-bot")

	// 120 three-byte runes; a byte-based cap would split a rune and hand the
	// driver invalid UTF-8.
	long := strings.Repeat("世", 120)
	want := strings.Repeat("世", 100)
	assert.True(t, utf8.ValidString(want))
	mock.ExpectExec("INSERT INTO usage_logs").
		WithArgs("test-bot", "U1", "echo", "message", want, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Append(context.Background(), domain.UsageEntry{
		UserID:         "U1",
		FunctionName:   "echo",
		Event:          domain.EventMessage,
		MessagePreview: long,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepo_Append_NoPreviewNoMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUsageRepo(db, "test-bot")

	mock.ExpectExec("INSERT INTO usage_logs").
		WithArgs("test-bot", "U1", "echo", "denial", nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Append(context.Background(), domain.UsageEntry{
		UserID:       "U1",
		FunctionName: "echo",
		Event:        domain.EventDenial,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepo_UserStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUsageRepo(db, "test-bot")

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM usage_logs").
		WithArgs("test-bot", "U1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	mock.ExpectQuery("SELECT function_name, COUNT\\(\\*\\) FROM usage_logs").
		WithArgs("test-bot", "U1").
		WillReturnRows(sqlmock.NewRows([]string{"function_name", "count"}).
			AddRow("echo", 9).
			AddRow("whoami", 3))

	lastActive := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT MAX\\(created_at\\) FROM usage_logs").
		WithArgs("test-bot", "U1").
		WillReturnRows(sqlmock.NewRows([]string{"last"}).AddRow(lastActive))

	stats, err := repo.UserStats(context.Background(), "U1")

	assert.NoError(t, err)
	assert.Equal(t, 12, stats.MessageCount)
	assert.Equal(t, map[string]int{"echo": 9, "whoami": 3}, stats.ByFunction)
	assert.NotNil(t, stats.LastActive)
	assert.Equal(t, lastActive, *stats.LastActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRepo_FunctionStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUsageRepo(db, "test-bot")

	rows := sqlmock.NewRows([]string{"messages", "users", "errors"}).AddRow(40, 5, 2)
	mock.ExpectQuery("FROM usage_logs").
		WithArgs("test-bot", "echo").
		WillReturnRows(rows)

	stats, err := repo.FunctionStats(context.Background(), "echo")

	assert.NoError(t, err)
	assert.Equal(t, 40, stats.MessageCount)
	assert.Equal(t, 5, stats.UniqueUsers)
	assert.Equal(t, 2, stats.ErrorCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
