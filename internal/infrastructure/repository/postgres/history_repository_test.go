package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/stigtools/stig-rag/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*HistoryRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewHistoryRepository(db), mock
}

func TestEnsureSchemaLocksBeforeDDL(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(int64(2026082501)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS query_history`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordQueryInsertsAllFields(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rec := domain.QueryRecord{
		ID:            "b67c8f2e-1111-4222-8333-abcdefabcdef",
		Question:      "how do I disable root ssh login?",
		VersionFilter: "9",
		TopControlID:  "V-230296",
		TopScore:      63.5,
		ResultCount:   4,
		AnsweredBy:    domain.AnsweredByGenerator,
		DurationMs:    412,
	}

	mock.ExpectExec(`INSERT INTO query_history`).
		WithArgs(rec.ID, rec.Question, rec.VersionFilter, rec.TopControlID, rec.TopScore,
			rec.ResultCount, rec.AnsweredBy, rec.DurationMs, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RecordQuery(context.Background(), rec); err != nil {
		t.Fatalf("RecordQuery() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecentQueriesScansRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{
		"id", "question", "version_filter", "top_control_id",
		"top_score", "result_count", "answered_by", "duration_ms",
	}).
		AddRow("id-2", "audit rules?", "", "V-230555", 41.2, 3, domain.AnsweredByFallback, int64(12)).
		AddRow("id-1", "ssh keys?", "8", "V-230296", 63.5, 5, domain.AnsweredByGenerator, int64(380))

	mock.ExpectQuery(`SELECT id, question, version_filter`).
		WithArgs(2).
		WillReturnRows(rows)

	got, err := repo.RecentQueries(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentQueries() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentQueries() returned %d records, want 2", len(got))
	}
	if got[0].ID != "id-2" || got[1].TopControlID != "V-230296" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
