package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/repository"
)

func newRegistration(now time.Time) domain.EventRegistration {
	team := "Falcons"
	return domain.EventRegistration{
		ID:          "reg-1",
		EventID:     "event-1",
		UserID:      "user-1",
		Status:      domain.RegistrationStatusRegistered,
		TeamName:    &team,
		TeamMembers: []domain.TeamMember{{Name: "Ravi"}},
		CreatedAt:   now,
	}
}

func TestRegistrationRepository_CreateLocksEventAndInserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRegistrationRepository(mock)
	now := time.Now().UTC()
	limit := 10

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM society\.events WHERE id = \$1 FOR UPDATE`).
		WithArgs("event-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("event-1"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM society\.event_registrations`).
		WithArgs("event-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(9))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("event-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO society\.event_registrations`).
		WithArgs("reg-1", "event-1", "user-1", "REGISTERED", "Falcons", []byte(`[{"name":"Ravi"}]`), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := repo.Create(context.Background(), newRegistration(now), &limit); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegistrationRepository_CreateRejectsWhenFull(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRegistrationRepository(mock)
	limit := 2

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("event-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("event-1"))
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("event-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err = repo.Create(context.Background(), newRegistration(time.Now().UTC()), &limit)
	if !errors.Is(err, repository.ErrCapacityReached) {
		t.Fatalf("expected ErrCapacityReached, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegistrationRepository_CreateRejectsDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRegistrationRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("event-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("event-1"))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("event-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err = repo.Create(context.Background(), newRegistration(time.Now().UTC()), nil)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if got := repository.ConstraintOf(err); got != ConstraintRegistrationUnique {
		t.Fatalf("expected constraint %s, got %q", ConstraintRegistrationUnique, got)
	}
}

func TestRegistrationRepository_CreateMissingEventRollsBackOnce(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRegistrationRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("event-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err = repo.Create(context.Background(), newRegistration(time.Now().UTC()), nil)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegistrationRepository_CreateReportsCommitFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRegistrationRepository(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("event-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("event-1"))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("event-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO society\.event_registrations`).
		WithArgs("reg-1", "event-1", "user-1", "REGISTERED", "Falcons", []byte(`[{"name":"Ravi"}]`), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	if err := repo.Create(context.Background(), newRegistration(now), nil); err == nil {
		t.Fatalf("expected commit failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegistrationRepository_DeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRegistrationRepository(mock)

	mock.ExpectExec(`DELETE FROM society\.event_registrations`).
		WithArgs("event-1", "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.DeleteByEventAndUser(context.Background(), "event-1", "user-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistrationRepository_ListByEventDecodesTeam(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRegistrationRepository(mock)
	now := time.Now().UTC()
	team := "Falcons"

	rows := pgxmock.NewRows([]string{
		"id", "event_id", "user_id", "status", "team_name", "team_members", "created_at", "name", "email", "phone",
	}).AddRow(
		"reg-1", "event-1", "user-1", "REGISTERED", &team, []byte(`[{"name":"Ravi"},{"name":"Meera"}]`), now, "Asha", "asha@example.com", "9999999999",
	).AddRow(
		"reg-2", "event-1", "user-2", "REGISTERED", nil, []byte(`[]`), now, "Kiran", "kiran@example.com", "8888888888",
	)

	mock.ExpectQuery(`SELECT .*FROM society\.event_registrations r JOIN society\.users u`).
		WithArgs("event-1").
		WillReturnRows(rows)

	details, err := repo.ListByEvent(context.Background(), "event-1")
	if err != nil {
		t.Fatalf("ListByEvent returned error: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 registrations, got %d", len(details))
	}
	if len(details[0].TeamMembers) != 2 || details[0].TeamMembers[1].Name != "Meera" {
		t.Fatalf("expected team members decoded, got %+v", details[0].TeamMembers)
	}
	if details[1].TeamName != nil || details[1].TeamMembers != nil {
		t.Fatalf("expected individual registration without team data")
	}
	if details[0].UserEmail != "asha@example.com" {
		t.Fatalf("expected registrant email, got %s", details[0].UserEmail)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
