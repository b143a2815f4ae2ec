package database

import "time"

// The models below describe table layout for migrations only. Runtime reads and
// writes go through the pgx repositories.

type userModel struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	Email           string  `gorm:"type:varchar(320);not null;uniqueIndex:users_email_key"`
	Name            string  `gorm:"type:varchar(200);not null"`
	Phone           string  `gorm:"type:varchar(32);not null"`
	PasswordHash    string  `gorm:"type:text;not null"`
	Role            string  `gorm:"type:varchar(16);not null;default:PUBLIC;index:users_role_idx"`
	Status          string  `gorm:"type:varchar(16);not null;default:PENDING;index:users_status_idx"`
	UserType        string  `gorm:"type:varchar(16);not null"`
	BuildingID      *string `gorm:"type:uuid;index:users_building_idx"`
	FlatID          *string `gorm:"type:uuid"`
	IsProfilePublic bool    `gorm:"not null;default:false"`
	ApprovedBy      *string `gorm:"type:uuid"`
	ApprovedAt      *time.Time
	Version         int64     `gorm:"not null;default:1"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return Schema + ".users" }

type buildingModel struct {
	ID                     string    `gorm:"type:uuid;primaryKey"`
	Name                   string    `gorm:"type:varchar(120);not null"`
	Code                   string    `gorm:"type:varchar(16);not null;uniqueIndex:buildings_code_key"`
	TotalFloors            int       `gorm:"not null;default:0"`
	VisibleForRegistration bool      `gorm:"not null;default:true"`
	CreatedAt              time.Time `gorm:"not null"`
	UpdatedAt              time.Time `gorm:"not null"`
}

func (buildingModel) TableName() string { return Schema + ".buildings" }

type flatModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	BuildingID string    `gorm:"type:uuid;not null;uniqueIndex:flats_building_number_key,priority:1"`
	FlatNumber string    `gorm:"type:varchar(8);not null;uniqueIndex:flats_building_number_key,priority:2"`
	Floor      int       `gorm:"not null"`
	BHKType    string    `gorm:"column:bhk_type;type:varchar(16);not null;default:''"`
	OwnerID    *string   `gorm:"type:uuid"`
	TenantID   *string   `gorm:"type:uuid"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (flatModel) TableName() string { return Schema + ".flats" }

type noticeModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Title       string `gorm:"type:varchar(200);not null"`
	Content     string `gorm:"type:text;not null"`
	Type        string `gorm:"type:varchar(16);not null"`
	Visibility  string `gorm:"type:varchar(16);not null;index:notices_visibility_idx"`
	Published   bool   `gorm:"not null;default:false"`
	PublishedAt *time.Time
	CreatedBy   string    `gorm:"type:uuid;not null"`
	Attachments string    `gorm:"type:text[];not null;default:'{}'"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (noticeModel) TableName() string { return Schema + ".notices" }

type eventModel struct {
	ID                    string    `gorm:"type:uuid;primaryKey"`
	Title                 string    `gorm:"type:varchar(200);not null"`
	Description           string    `gorm:"type:text;not null"`
	Type                  string    `gorm:"type:varchar(16);not null"`
	StartDate             time.Time `gorm:"not null;index:events_start_idx"`
	EndDate               time.Time `gorm:"not null"`
	Venue                 string    `gorm:"type:varchar(200);not null"`
	ImageURL              *string   `gorm:"type:text"`
	RegistrationRequired  bool      `gorm:"not null;default:false"`
	RegistrationStartDate *time.Time
	RegistrationEndDate   *time.Time
	ParticipationType     string    `gorm:"type:varchar(16);not null;default:INDIVIDUAL"`
	MaxParticipants       *int      `gorm:"check:events_max_participants_check,max_participants IS NULL OR max_participants > 0"`
	Published             bool      `gorm:"not null;default:false"`
	CreatedBy             string    `gorm:"type:uuid;not null"`
	CreatedAt             time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

func (eventModel) TableName() string { return Schema + ".events" }

type registrationModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	EventID     string    `gorm:"type:uuid;not null;uniqueIndex:event_registrations_event_user_key,priority:1"`
	UserID      string    `gorm:"type:uuid;not null;uniqueIndex:event_registrations_event_user_key,priority:2;index:event_registrations_user_idx"`
	Status      string    `gorm:"type:varchar(16);not null;default:REGISTERED"`
	TeamName    *string   `gorm:"type:varchar(120)"`
	TeamMembers string    `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (registrationModel) TableName() string { return Schema + ".event_registrations" }

type vehicleModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	OwnerID     string    `gorm:"type:uuid;not null;index:vehicles_owner_idx"`
	Number      string    `gorm:"type:varchar(20);not null;uniqueIndex:vehicles_number_key"`
	Type        string    `gorm:"type:varchar(16);not null"`
	Brand       *string   `gorm:"type:varchar(60)"`
	Model       *string   `gorm:"type:varchar(60)"`
	Color       *string   `gorm:"type:varchar(30)"`
	ParkingSlot *string   `gorm:"type:varchar(20)"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (vehicleModel) TableName() string { return Schema + ".vehicles" }

type activityLogModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	ActorID    *string   `gorm:"type:uuid;index:activity_logs_actor_idx"`
	Action     string    `gorm:"type:varchar(64);not null"`
	EntityType string    `gorm:"type:varchar(32);not null"`
	EntityID   string    `gorm:"type:varchar(64);not null"`
	Details    string    `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time `gorm:"not null;index:activity_logs_created_idx,sort:desc"`
}

func (activityLogModel) TableName() string { return Schema + ".activity_logs" }

func models() []any {
	return []any{
		&buildingModel{},
		&userModel{},
		&flatModel{},
		&noticeModel{},
		&eventModel{},
		&registrationModel{},
		&vehicleModel{},
		&activityLogModel{},
	}
}

type foreignKey struct {
	model any
	name  string
	ddl   string
}

// Foreign keys are added after AutoMigrate because users and flats reference each other.
var foreignKeys = []foreignKey{
	{&userModel{}, "users_building_id_fkey", "ALTER TABLE society.users ADD CONSTRAINT users_building_id_fkey FOREIGN KEY (building_id) REFERENCES society.buildings(id) ON DELETE RESTRICT"},
	{&userModel{}, "users_flat_id_fkey", "ALTER TABLE society.users ADD CONSTRAINT users_flat_id_fkey FOREIGN KEY (flat_id) REFERENCES society.flats(id) ON DELETE SET NULL"},
	{&flatModel{}, "flats_building_id_fkey", "ALTER TABLE society.flats ADD CONSTRAINT flats_building_id_fkey FOREIGN KEY (building_id) REFERENCES society.buildings(id) ON DELETE RESTRICT"},
	{&flatModel{}, "flats_owner_id_fkey", "ALTER TABLE society.flats ADD CONSTRAINT flats_owner_id_fkey FOREIGN KEY (owner_id) REFERENCES society.users(id) ON DELETE SET NULL"},
	{&flatModel{}, "flats_tenant_id_fkey", "ALTER TABLE society.flats ADD CONSTRAINT flats_tenant_id_fkey FOREIGN KEY (tenant_id) REFERENCES society.users(id) ON DELETE SET NULL"},
	{&noticeModel{}, "notices_created_by_fkey", "ALTER TABLE society.notices ADD CONSTRAINT notices_created_by_fkey FOREIGN KEY (created_by) REFERENCES society.users(id) ON DELETE RESTRICT"},
	{&eventModel{}, "events_created_by_fkey", "ALTER TABLE society.events ADD CONSTRAINT events_created_by_fkey FOREIGN KEY (created_by) REFERENCES society.users(id) ON DELETE RESTRICT"},
	{&registrationModel{}, "event_registrations_event_id_fkey", "ALTER TABLE society.event_registrations ADD CONSTRAINT event_registrations_event_id_fkey FOREIGN KEY (event_id) REFERENCES society.events(id) ON DELETE CASCADE"},
	{&registrationModel{}, "event_registrations_user_id_fkey", "ALTER TABLE society.event_registrations ADD CONSTRAINT event_registrations_user_id_fkey FOREIGN KEY (user_id) REFERENCES society.users(id) ON DELETE CASCADE"},
	{&vehicleModel{}, "vehicles_owner_id_fkey", "ALTER TABLE society.vehicles ADD CONSTRAINT vehicles_owner_id_fkey FOREIGN KEY (owner_id) REFERENCES society.users(id) ON DELETE CASCADE"},
	{&activityLogModel{}, "activity_logs_actor_id_fkey", "ALTER TABLE society.activity_logs ADD CONSTRAINT activity_logs_actor_id_fkey FOREIGN KEY (actor_id) REFERENCES society.users(id) ON DELETE CASCADE"},
}
