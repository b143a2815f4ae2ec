package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	uuid "github.com/google/uuid"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

const workflowRegistration = "registration"

// RegisterInput carries the self-registration form.
type RegisterInput struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	BuildingID      string
	FlatNumber      string
	// Floor is optional. When nil it is derived from the first two characters
	// of FlatNumber.
	Floor    *int
	UserType domain.UserType
}

// RegisterResult describes the PENDING account created by Register.
type RegisterResult struct {
	UserID           string
	FlatID           string
	Status           domain.UserStatus
	PasswordStrength int
}

// RegistrationService onboards residents as PENDING users awaiting approval.
type RegistrationService struct {
	workflowBase
	users     port.UserRepository
	buildings port.BuildingRepository
	flats     port.FlatRepository
	hasher    port.PasswordHasher
	policy    port.PasswordPolicy
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	users port.UserRepository,
	buildings port.BuildingRepository,
	flats port.FlatRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicy,
	activity port.ActivityRepository,
	deps Dependencies,
) *RegistrationService {
	return &RegistrationService{
		workflowBase: newWorkflowBase(deps, activity),
		users:        users,
		buildings:    buildings,
		flats:        flats,
		hasher:       hasher,
		policy:       policy,
	}
}

// Register validates input, resolves or creates the flat and persists a PENDING
// user with role PUBLIC.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (result RegisterResult, err error) {
	defer func() { s.record(workflowRegistration, err) }()

	input = normalizeRegisterInput(input)

	floor, err := s.validate(ctx, input)
	if err != nil {
		return RegisterResult{}, err
	}

	exists, err := s.users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return RegisterResult{}, ErrDuplicateEmail
	}

	flat, err := s.flats.GetOrCreate(ctx, domain.Flat{
		ID:         uuid.NewString(),
		BuildingID: input.BuildingID,
		FlatNumber: input.FlatNumber,
		Floor:      floor,
		CreatedAt:  s.clock(),
		UpdatedAt:  s.clock(),
	})
	if err != nil {
		return RegisterResult{}, fmt.Errorf("resolve flat: %w", err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock()
	buildingID := input.BuildingID
	flatID := flat.ID
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		Phone:        input.Phone,
		PasswordHash: passwordHash,
		Role:         domain.RolePublic,
		Status:       domain.UserStatusPending,
		UserType:     input.UserType,
		BuildingID:   &buildingID,
		FlatID:       &flatID,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return RegisterResult{}, ErrDuplicateEmail
		}
		return RegisterResult{}, fmt.Errorf("create user: %w", err)
	}

	s.audit(ctx, user.ID, domain.ActivityUserRegistered, domain.EntityUser, user.ID, map[string]any{
		"building_id": buildingID,
		"flat_id":     flatID,
		"user_type":   string(user.UserType),
	})
	s.publish(ctx, "user.registered", func(p port.EventPublisher) error {
		return p.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			Email:        user.Email,
			BuildingID:   buildingID,
			FlatID:       flatID,
			UserType:     user.UserType,
			RegisteredAt: now,
		})
	})

	return RegisterResult{
		UserID:           user.ID,
		FlatID:           flatID,
		Status:           user.Status,
		PasswordStrength: s.policy.Strength(input.Password, input.Name, input.Email, input.Phone),
	}, nil
}

func normalizeRegisterInput(input RegisterInput) RegisterInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	input.BuildingID = strings.TrimSpace(input.BuildingID)
	input.FlatNumber = strings.ToUpper(strings.TrimSpace(input.FlatNumber))
	input.UserType = domain.UserType(strings.ToUpper(strings.TrimSpace(string(input.UserType))))
	return input
}

// validate returns the floor to store for the flat.
func (s *RegistrationService) validate(ctx context.Context, input RegisterInput) (int, error) {
	fields := fieldErrors{}

	if input.Name == "" {
		fields.add("name", "name is required")
	}
	if input.Email == "" {
		fields.add("email", "email is required")
	} else if !validEmail(input.Email) {
		fields.add("email", "email is not a valid address")
	}
	if input.Phone == "" {
		fields.add("phone", "phone is required")
	}
	if input.Password == "" {
		fields.add("password", "password is required")
	} else if err := s.policy.Validate(input.Password, input.Name, input.Email, input.Phone); err != nil {
		fields.add("password", err.Error())
	}
	if input.Password != input.ConfirmPassword {
		fields.add("confirmPassword", "passwords do not match")
	}
	if !input.UserType.Valid() {
		fields.add("userType", "user type must be OWNER or TENANT")
	}

	floor := 0
	if utf8.RuneCountInString(input.FlatNumber) != domain.FlatNumberLength {
		fields.add("flatNumber", fmt.Sprintf("flat number must be exactly %d characters", domain.FlatNumberLength))
	} else if input.Floor != nil {
		floor = *input.Floor
		if floor < 0 {
			fields.add("floor", "floor cannot be negative")
		}
	} else {
		derived, err := domain.FloorFromFlatNumber(input.FlatNumber)
		if err != nil {
			fields.add("flatNumber", err.Error())
		}
		floor = derived
	}

	if input.BuildingID == "" {
		fields.add("buildingId", "building is required")
	} else {
		building, err := s.buildings.GetByID(ctx, input.BuildingID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			fields.add("buildingId", "building does not exist")
		case err != nil:
			return 0, fmt.Errorf("lookup building: %w", err)
		case !building.VisibleForRegistration:
			fields.add("buildingId", "building is not open for registration")
		case input.Floor != nil && building.TotalFloors > 0 && floor > building.TotalFloors:
			fields.add("floor", fmt.Sprintf("building has only %d floors", building.TotalFloors))
		}
	}

	return floor, fields.err()
}

// validEmail accepts a bare address such as "a@x.com" and nothing else.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}
