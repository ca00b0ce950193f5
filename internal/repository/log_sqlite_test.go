package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"enclosure_gateway/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockLogRepo(t *testing.T) (*LogSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("mock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewLogSQLite(db), mock
}

var sampleState = models.DeviceState{Flame: "detected", Rain: "none", Gas: 120, Door: "open", Canopy: "closed"}

const sampleStateJSON = `{"flame":"detected","rain":"none","gas":120,"door":"open","canopy":"closed"}`

func TestLogSQLite_Append(t *testing.T) {
	repo, mock := newMockLogRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(insertLogEntrySQL)).
		WithArgs(sqlmock.AnyArg(), "Flame detected", "10:00:00 19/10/2026", sampleStateJSON, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), models.LogEntry{
		Message: "Flame detected",
		Time:    "10:00:00 19/10/2026",
		Data:    sampleState,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestLogSQLite_Append_DBError(t *testing.T) {
	repo, mock := newMockLogRepo(t)

	mock.ExpectExec("INSERT INTO log_entries").WillReturnError(errors.New("disk full"))

	if err := repo.Append(context.Background(), models.LogEntry{Message: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLogSQLite_ReadAll_PreservesOrder(t *testing.T) {
	repo, mock := newMockLogRepo(t)

	rows := sqlmock.NewRows([]string{"message", "time_text", "data"}).
		AddRow("Executed: Open door", "10:00:00 19/10/2026", sampleStateJSON).
		AddRow("Rain detected", "10:00:05 19/10/2026", sampleStateJSON)
	mock.ExpectQuery(regexp.QuoteMeta(selectLogEntriesSQL)).WillReturnRows(rows)

	got, err := repo.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 entries, got %d", len(got))
	}
	if got[0].Message != "Executed: Open door" || got[1].Message != "Rain detected" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].Data != sampleState {
		t.Fatalf("data not decoded: %+v", got[1].Data)
	}
}

func TestLogSQLite_ReadAll_CorruptData(t *testing.T) {
	repo, mock := newMockLogRepo(t)

	rows := sqlmock.NewRows([]string{"message", "time_text", "data"}).
		AddRow("Rain detected", "10:00:05 19/10/2026", "{not json")
	mock.ExpectQuery(regexp.QuoteMeta(selectLogEntriesSQL)).WillReturnRows(rows)

	if _, err := repo.ReadAll(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLogSQLite_Last(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		repo, mock := newMockLogRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectLastLogEntrySQL)).
			WillReturnRows(sqlmock.NewRows([]string{"message", "time_text", "data"}))

		last, err := repo.Last(context.Background())
		if err != nil {
			t.Fatalf("Last: %v", err)
		}
		if last != nil {
			t.Fatalf("expected nil, got %+v", last)
		}
	})

	t.Run("newest row", func(t *testing.T) {
		repo, mock := newMockLogRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectLastLogEntrySQL)).
			WillReturnRows(sqlmock.NewRows([]string{"message", "time_text", "data"}).
				AddRow("Gas leak detected", "10:01:00 19/10/2026", sampleStateJSON))

		last, err := repo.Last(context.Background())
		if err != nil {
			t.Fatalf("Last: %v", err)
		}
		if last == nil || last.Message != "Gas leak detected" {
			t.Fatalf("unexpected last: %+v", last)
		}
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newMockLogRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectLastLogEntrySQL)).WillReturnError(errors.New("locked"))

		if _, err := repo.Last(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	})
}
