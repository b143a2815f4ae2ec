package postgres

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users         *UserRepository
	Buildings     *BuildingRepository
	Flats         *FlatRepository
	Notices       *NoticeRepository
	Events        *EventRepository
	Registrations *RegistrationRepository
	Vehicles      *VehicleRepository
	Activity      *ActivityRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		Buildings:     NewBuildingRepository(db),
		Flats:         NewFlatRepository(db),
		Notices:       NewNoticeRepository(db),
		Events:        NewEventRepository(db),
		Registrations: NewRegistrationRepository(db),
		Vehicles:      NewVehicleRepository(db),
		Activity:      NewActivityRepository(db),
	}
}
