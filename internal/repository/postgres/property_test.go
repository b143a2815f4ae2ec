package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

func TestFlatRepository_GetOrCreateReturnsStoredRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewFlatRepository(mock)
	now := time.Now().UTC()
	flat := domain.Flat{
		ID:         "flat-new",
		BuildingID: "building-1",
		FlatNumber: "1101",
		Floor:      11,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	owner := "owner-1"
	mock.ExpectQuery(`INSERT INTO society\.flats .*ON CONFLICT \(building_id, flat_number\) DO UPDATE .*RETURNING`).
		WithArgs("flat-new", "building-1", "1101", 11, "", nil, nil, now, now).
		WillReturnRows(pgxmock.NewRows(flatColumns).AddRow(
			"flat-existing", "building-1", "1101", 11, "2BHK", &owner, nil, now, now,
		))

	stored, err := repo.GetOrCreate(context.Background(), flat)
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if stored.ID != "flat-existing" {
		t.Fatalf("expected existing flat id, got %s", stored.ID)
	}
	if stored.OwnerID == nil || *stored.OwnerID != "owner-1" {
		t.Fatalf("expected owner to be preserved")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFlatRepository_AssignTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewFlatRepository(mock)

	mock.ExpectExec(`UPDATE society\.flats SET tenant_id = \$1`).
		WithArgs("user-9", pgxmock.AnyArg(), "flat-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.AssignResident(context.Background(), "flat-1", domain.UserTypeTenant, "user-9"); err != nil {
		t.Fatalf("AssignResident returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBuildingRepository_DeleteReferenced(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewBuildingRepository(mock)

	mock.ExpectExec(`DELETE FROM society\.buildings`).
		WithArgs("building-1").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "flats_building_id_fkey"})

	if err := repo.Delete(context.Background(), "building-1"); !errors.Is(err, repository.ErrReferenced) {
		t.Fatalf("expected ErrReferenced, got %v", err)
	}
}

func TestBuildingRepository_ListVisibleOnly(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewBuildingRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .*FROM society\.buildings WHERE visible_for_registration = \$1 ORDER BY code ASC`).
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows(buildingColumns).AddRow("building-1", "Tower A", "A", 20, true, now, now))

	buildings, err := repo.List(context.Background(), true)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(buildings) != 1 || buildings[0].Code != "A" {
		t.Fatalf("unexpected buildings %+v", buildings)
	}
}

func TestNoticeRepository_ListRestrictsVisibility(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewNoticeRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .*FROM society\.notices WHERE published = \$1 AND visibility IN \(\$2,\$3\)`).
		WithArgs(true, "PUBLIC", "REGISTERED").
		WillReturnRows(pgxmock.NewRows(noticeColumns).AddRow(
			"notice-1", "Water cut", "No water on Sunday", "MAINTENANCE", "REGISTERED", true, &now, "admin-1", []string{}, now, now,
		))

	notices, err := repo.List(context.Background(), port.NoticeFilter{
		PublishedOnly: true,
		Visibilities:  []domain.Visibility{domain.VisibilityPublic, domain.VisibilityRegistered},
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(notices) != 1 || notices[0].Visibility != domain.VisibilityRegistered {
		t.Fatalf("unexpected notices %+v", notices)
	}
	if notices[0].PublishedAt == nil {
		t.Fatalf("expected published_at to be populated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVehicleRepository_CreateNormalizesNumber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewVehicleRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO society\.vehicles`).
		WithArgs("vehicle-1", "user-1", "MH12AB1234", "CAR", nil, nil, nil, nil, now, now).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "vehicles_number_key"})

	err = repo.Create(context.Background(), domain.Vehicle{
		ID:        "vehicle-1",
		OwnerID:   "user-1",
		Number:    "mh 12 ab 1234",
		Type:      domain.VehicleTypeCar,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if repository.ConstraintOf(err) != "vehicles_number_key" {
		t.Fatalf("expected duplicate vehicle number, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
