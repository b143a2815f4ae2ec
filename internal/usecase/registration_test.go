package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

type registrationFixture struct {
	service   *RegistrationService
	users     *memoryUsers
	flats     *memoryFlats
	activity  *memoryActivity
	publisher *recordingPublisher
}

func newRegistrationFixture(users ...domain.User) *registrationFixture {
	f := &registrationFixture{
		users:     newMemoryUsers(users...),
		flats:     newMemoryFlats(domain.Flat{ID: "f-existing", BuildingID: "b-1", FlatNumber: "0704", Floor: 7}),
		activity:  &memoryActivity{},
		publisher: &recordingPublisher{},
	}
	buildings := newMemoryBuildings(
		domain.Building{ID: "b-1", Name: "Tower A", Code: "A", TotalFloors: 20, VisibleForRegistration: true},
		domain.Building{ID: "b-hidden", Name: "Tower Z", Code: "Z", TotalFloors: 5},
	)
	f.service = NewRegistrationService(f.users, buildings, f.flats, plainHasher{}, lengthPolicy{min: 8}, f.activity, testDeps(f.publisher, nil))
	return f
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Name:            "Asha Rao",
		Email:           "Asha@Example.com",
		Phone:           "9876543210",
		Password:        "long-enough-pass",
		ConfirmPassword: "long-enough-pass",
		BuildingID:      "b-1",
		FlatNumber:      "1101",
		UserType:        domain.UserTypeOwner,
	}
}

func TestRegisterCreatesPendingUserAndFlat(t *testing.T) {
	f := newRegistrationFixture()

	result, err := f.service.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Status != domain.UserStatusPending {
		t.Fatalf("expected PENDING, got %s", result.Status)
	}
	if result.PasswordStrength != 4 {
		t.Fatalf("expected strength hint 4, got %d", result.PasswordStrength)
	}

	user, err := f.users.GetByID(context.Background(), result.UserID)
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if user.Email != "asha@example.com" {
		t.Fatalf("email not normalised: %q", user.Email)
	}
	if user.Role != domain.RolePublic || user.Status != domain.UserStatusPending {
		t.Fatalf("unexpected role/status %s/%s", user.Role, user.Status)
	}
	if user.PasswordHash != "hash:long-enough-pass" {
		t.Fatalf("password not hashed through the hasher: %q", user.PasswordHash)
	}
	if user.FlatID == nil || *user.FlatID != result.FlatID {
		t.Fatalf("user not linked to flat %s", result.FlatID)
	}

	flat, err := f.flats.GetByID(context.Background(), result.FlatID)
	if err != nil {
		t.Fatalf("flat not created: %v", err)
	}
	if flat.Floor != 11 {
		t.Fatalf("expected floor 11 derived from 1101, got %d", flat.Floor)
	}
	if got := f.activity.actions(); len(got) != 1 || got[0] != domain.ActivityUserRegistered {
		t.Fatalf("unexpected activity %v", got)
	}
	if len(f.publisher.published) != 1 || f.publisher.published[0] != "user.registered" {
		t.Fatalf("unexpected events %v", f.publisher.published)
	}
}

func TestRegisterReusesExistingFlat(t *testing.T) {
	f := newRegistrationFixture()
	input := validRegistration()
	input.FlatNumber = "0704"

	result, err := f.service.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.FlatID != "f-existing" {
		t.Fatalf("expected existing flat to be reused, got %s", result.FlatID)
	}
}

func TestRegisterExplicitFloor(t *testing.T) {
	f := newRegistrationFixture()
	input := validRegistration()
	input.FlatNumber = "G-03"
	input.Floor = intPtr(0)

	result, err := f.service.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	flat, _ := f.flats.GetByID(context.Background(), result.FlatID)
	if flat.Floor != 0 {
		t.Fatalf("expected explicit floor 0, got %d", flat.Floor)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newRegistrationFixture(domain.User{ID: "u-1", Email: "asha@example.com"})

	_, err := f.service.Register(context.Background(), validRegistration())
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict kind, got %s", KindOf(err))
	}
	if len(f.users.users) != 1 {
		t.Fatal("no user should be created")
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{name: "bad email", mutate: func(in *RegisterInput) { in.Email = "not-an-email" }, field: "email"},
		{name: "email without domain dot", mutate: func(in *RegisterInput) { in.Email = "a@localhost" }, field: "email"},
		{name: "short password", mutate: func(in *RegisterInput) { in.Password, in.ConfirmPassword = "short", "short" }, field: "password"},
		{name: "confirm mismatch", mutate: func(in *RegisterInput) { in.ConfirmPassword = "something-else" }, field: "confirmPassword"},
		{name: "missing phone", mutate: func(in *RegisterInput) { in.Phone = " " }, field: "phone"},
		{name: "user type", mutate: func(in *RegisterInput) { in.UserType = "LANDLORD" }, field: "userType"},
		{name: "flat number length", mutate: func(in *RegisterInput) { in.FlatNumber = "101" }, field: "flatNumber"},
		{name: "flat number counted in characters", mutate: func(in *RegisterInput) { in.FlatNumber, in.Floor = "é12", intPtr(1) }, field: "flatNumber"},
		{name: "underivable floor", mutate: func(in *RegisterInput) { in.FlatNumber = "A301" }, field: "flatNumber"},
		{name: "negative floor", mutate: func(in *RegisterInput) { in.Floor = intPtr(-1) }, field: "floor"},
		{name: "floor above building", mutate: func(in *RegisterInput) { in.Floor = intPtr(21) }, field: "floor"},
		{name: "unknown building", mutate: func(in *RegisterInput) { in.BuildingID = "b-404" }, field: "buildingId"},
		{name: "hidden building", mutate: func(in *RegisterInput) { in.BuildingID = "b-hidden" }, field: "buildingId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRegistrationFixture()
			input := validRegistration()
			tc.mutate(&input)

			_, err := f.service.Register(context.Background(), input)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.Fields[tc.field]; !ok {
				t.Fatalf("expected field %q in %v", tc.field, vErr.Fields)
			}
			if len(f.users.users) != 0 {
				t.Fatal("no user should be created on validation failure")
			}
		})
	}
}
