package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

func adminSession() *domain.Session {
	return &domain.Session{UserID: "admin-1", Role: domain.RoleAdmin}
}

func residentSession(id string) *domain.Session {
	return &domain.Session{UserID: id, Role: domain.RoleOwner, BuildingID: "b-1", FlatID: "f-1"}
}

// memoryUsers is an in-memory UserRepository honouring the version lock.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
	// staleOnce makes the next UpdateState fail as if another writer won.
	staleOnce bool
	// afterGet runs once, after the next GetByID has read its row.
	afterGet func()
}

func newMemoryUsers(users ...domain.User) *memoryUsers {
	r := &memoryUsers{users: map[string]domain.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryUsers) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return &repository.DuplicateError{Constraint: "users_email_key"}
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	u, ok := r.users[id]
	hook := r.afterGet
	r.afterGet = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryUsers) UpdateState(_ context.Context, id string, expectedVersion int64, change domain.UserStateChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if r.staleOnce || u.Version != expectedVersion {
		r.staleOnce = false
		return repository.ErrStaleVersion
	}
	u.Status = change.Status
	u.Role = change.Role
	if change.ApprovedAt != nil {
		u.ApprovedAt = change.ApprovedAt
	}
	if change.ApprovedBy != nil {
		u.ApprovedBy = change.ApprovedBy
	}
	u.Version++
	r.users[id] = u
	return nil
}

func (r *memoryUsers) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	r.users[id] = u
	return nil
}

func (r *memoryUsers) UpdateProfile(_ context.Context, id string, profile domain.ProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Name = profile.Name
	u.Phone = profile.Phone
	u.IsProfilePublic = profile.IsProfilePublic
	r.users[id] = u
	return nil
}

func (r *memoryUsers) List(_ context.Context, filter port.UserFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListDirectory deliberately skips the status and opt-in filters so the service
// filtering is observable.
func (r *memoryUsers) ListDirectory(_ context.Context, filter port.DirectoryFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memoryStates struct {
	states  map[string]domain.UserState
	floors  map[string]int64
	deleted []string
}

func newMemoryStates() *memoryStates {
	return &memoryStates{states: map[string]domain.UserState{}, floors: map[string]int64{}}
}

func (c *memoryStates) GetUserState(_ context.Context, userID string) (domain.UserState, error) {
	state, ok := c.states[userID]
	if !ok {
		return domain.UserState{}, repository.ErrNotFound
	}
	return state, nil
}

func (c *memoryStates) SetUserState(_ context.Context, userID string, state domain.UserState, _ time.Duration) error {
	if state.Version < c.floors[userID] {
		return nil
	}
	if cached, ok := c.states[userID]; ok && cached.Version > state.Version {
		return nil
	}
	c.states[userID] = state
	return nil
}

func (c *memoryStates) InvalidateUserState(_ context.Context, userID string, version int64) error {
	delete(c.states, userID)
	if version > c.floors[userID] {
		c.floors[userID] = version
	}
	c.deleted = append(c.deleted, userID)
	return nil
}

type memoryBuildings struct {
	buildings map[string]domain.Building
	flats     map[string]int
}

func newMemoryBuildings(buildings ...domain.Building) *memoryBuildings {
	r := &memoryBuildings{buildings: map[string]domain.Building{}, flats: map[string]int{}}
	for _, b := range buildings {
		r.buildings[b.ID] = b
	}
	return r
}

func (r *memoryBuildings) Create(_ context.Context, building domain.Building) error {
	for _, b := range r.buildings {
		if b.Code == building.Code {
			return &repository.DuplicateError{Constraint: "buildings_code_key"}
		}
	}
	r.buildings[building.ID] = building
	return nil
}

func (r *memoryBuildings) Update(_ context.Context, building domain.Building) error {
	if _, ok := r.buildings[building.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, b := range r.buildings {
		if b.ID != building.ID && b.Code == building.Code {
			return &repository.DuplicateError{Constraint: "buildings_code_key"}
		}
	}
	r.buildings[building.ID] = building
	return nil
}

func (r *memoryBuildings) Delete(_ context.Context, id string) error {
	if _, ok := r.buildings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.buildings, id)
	return nil
}

func (r *memoryBuildings) GetByID(_ context.Context, id string) (*domain.Building, error) {
	b, ok := r.buildings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *memoryBuildings) List(_ context.Context, visibleOnly bool) ([]domain.Building, error) {
	var out []domain.Building
	for _, b := range r.buildings {
		if visibleOnly && !b.VisibleForRegistration {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memoryBuildings) CountFlats(_ context.Context, buildingID string) (int, error) {
	return r.flats[buildingID], nil
}

type memoryFlats struct {
	flats    map[string]domain.Flat
	assigned map[string]string
}

func newMemoryFlats(flats ...domain.Flat) *memoryFlats {
	r := &memoryFlats{flats: map[string]domain.Flat{}, assigned: map[string]string{}}
	for _, f := range flats {
		r.flats[f.ID] = f
	}
	return r
}

func (r *memoryFlats) find(buildingID, number string) (domain.Flat, bool) {
	for _, f := range r.flats {
		if f.BuildingID == buildingID && f.FlatNumber == number {
			return f, true
		}
	}
	return domain.Flat{}, false
}

func (r *memoryFlats) Create(_ context.Context, flat domain.Flat) error {
	if _, ok := r.find(flat.BuildingID, flat.FlatNumber); ok {
		return &repository.DuplicateError{Constraint: "flats_building_id_flat_number_key"}
	}
	r.flats[flat.ID] = flat
	return nil
}

func (r *memoryFlats) GetOrCreate(_ context.Context, flat domain.Flat) (*domain.Flat, error) {
	if existing, ok := r.find(flat.BuildingID, flat.FlatNumber); ok {
		return &existing, nil
	}
	r.flats[flat.ID] = flat
	return &flat, nil
}

func (r *memoryFlats) Update(_ context.Context, flat domain.Flat) error {
	if _, ok := r.flats[flat.ID]; !ok {
		return repository.ErrNotFound
	}
	if existing, ok := r.find(flat.BuildingID, flat.FlatNumber); ok && existing.ID != flat.ID {
		return &repository.DuplicateError{Constraint: "flats_building_id_flat_number_key"}
	}
	r.flats[flat.ID] = flat
	return nil
}

func (r *memoryFlats) Delete(_ context.Context, id string) error {
	if _, ok := r.flats[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.flats, id)
	return nil
}

func (r *memoryFlats) GetByID(_ context.Context, id string) (*domain.Flat, error) {
	f, ok := r.flats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

func (r *memoryFlats) ListByBuilding(_ context.Context, buildingID string) ([]domain.Flat, error) {
	var out []domain.Flat
	for _, f := range r.flats {
		if f.BuildingID == buildingID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlatNumber < out[j].FlatNumber })
	return out, nil
}

func (r *memoryFlats) AssignResident(_ context.Context, flatID string, userType domain.UserType, userID string) error {
	f, ok := r.flats[flatID]
	if !ok {
		return repository.ErrNotFound
	}
	if userType == domain.UserTypeTenant {
		f.TenantID = &userID
	} else {
		f.OwnerID = &userID
	}
	r.flats[flatID] = f
	r.assigned[flatID] = userID
	return nil
}

type memoryNotices struct {
	notices map[string]domain.Notice
}

func newMemoryNotices(notices ...domain.Notice) *memoryNotices {
	r := &memoryNotices{notices: map[string]domain.Notice{}}
	for _, n := range notices {
		r.notices[n.ID] = n
	}
	return r
}

func (r *memoryNotices) Create(_ context.Context, notice domain.Notice) error {
	r.notices[notice.ID] = notice
	return nil
}

func (r *memoryNotices) Update(_ context.Context, notice domain.Notice) error {
	if _, ok := r.notices[notice.ID]; !ok {
		return repository.ErrNotFound
	}
	r.notices[notice.ID] = notice
	return nil
}

func (r *memoryNotices) Delete(_ context.Context, id string) error {
	if _, ok := r.notices[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.notices, id)
	return nil
}

func (r *memoryNotices) GetByID(_ context.Context, id string) (*domain.Notice, error) {
	n, ok := r.notices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (r *memoryNotices) List(_ context.Context, filter port.NoticeFilter) ([]domain.Notice, error) {
	allowed := map[domain.Visibility]bool{}
	for _, v := range filter.Visibilities {
		allowed[v] = true
	}
	var out []domain.Notice
	for _, n := range r.notices {
		if filter.PublishedOnly && !n.Published {
			continue
		}
		if len(allowed) > 0 && !allowed[n.Visibility] {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memoryEvents struct {
	events map[string]domain.Event
}

func newMemoryEvents(events ...domain.Event) *memoryEvents {
	r := &memoryEvents{events: map[string]domain.Event{}}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *memoryEvents) Create(_ context.Context, event domain.Event) error {
	r.events[event.ID] = event
	return nil
}

func (r *memoryEvents) Update(_ context.Context, event domain.Event) error {
	if _, ok := r.events[event.ID]; !ok {
		return repository.ErrNotFound
	}
	r.events[event.ID] = event
	return nil
}

func (r *memoryEvents) Delete(_ context.Context, id string) error {
	if _, ok := r.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *memoryEvents) GetByID(_ context.Context, id string) (*domain.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *memoryEvents) List(_ context.Context, filter port.EventFilter) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range r.events {
		if filter.PublishedOnly && !e.Published {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

// memoryRegistrations serialises Create with a mutex, standing in for the row
// lock taken by the Postgres repository.
type memoryRegistrations struct {
	mu    sync.Mutex
	regs  map[string]domain.EventRegistration
	users map[string]domain.User
	// countOverride, when set, is returned by Count to simulate a racing insert
	// between the pre-check and the locked insert.
	countOverride *int
}

func newMemoryRegistrations(regs ...domain.EventRegistration) *memoryRegistrations {
	r := &memoryRegistrations{regs: map[string]domain.EventRegistration{}, users: map[string]domain.User{}}
	for _, reg := range regs {
		r.regs[reg.ID] = reg
	}
	return r
}

func (r *memoryRegistrations) Create(_ context.Context, reg domain.EventRegistration, maxParticipants *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, existing := range r.regs {
		if existing.EventID != reg.EventID {
			continue
		}
		if existing.UserID == reg.UserID {
			return &repository.DuplicateError{Constraint: "event_registrations_event_id_user_id_key"}
		}
		count++
	}
	if maxParticipants != nil && count >= *maxParticipants {
		return repository.ErrCapacityReached
	}
	r.regs[reg.ID] = reg
	return nil
}

func (r *memoryRegistrations) Count(_ context.Context, eventID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countOverride != nil {
		return *r.countOverride, nil
	}
	count := 0
	for _, reg := range r.regs {
		if reg.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (r *memoryRegistrations) GetByEventAndUser(_ context.Context, eventID, userID string) (*domain.EventRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.regs {
		if reg.EventID == eventID && reg.UserID == userID {
			reg := reg
			return &reg, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryRegistrations) DeleteByEventAndUser(_ context.Context, eventID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, reg := range r.regs {
		if reg.EventID == eventID && reg.UserID == userID {
			delete(r.regs, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memoryRegistrations) ListByEvent(_ context.Context, eventID string) ([]domain.RegistrationDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RegistrationDetail
	for _, reg := range r.regs {
		if reg.EventID != eventID {
			continue
		}
		u := r.users[reg.UserID]
		out = append(out, domain.RegistrationDetail{
			EventRegistration: reg,
			UserName:          u.Name,
			UserEmail:         u.Email,
			UserPhone:         u.Phone,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRegistrations) ListByUser(_ context.Context, userID string) ([]domain.EventRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EventRegistration
	for _, reg := range r.regs {
		if reg.UserID == userID {
			out = append(out, reg)
		}
	}
	return out, nil
}

type memoryVehicles struct {
	vehicles map[string]domain.Vehicle
}

func newMemoryVehicles(vehicles ...domain.Vehicle) *memoryVehicles {
	r := &memoryVehicles{vehicles: map[string]domain.Vehicle{}}
	for _, v := range vehicles {
		r.vehicles[v.ID] = v
	}
	return r
}

func (r *memoryVehicles) conflict(vehicle domain.Vehicle) bool {
	for _, v := range r.vehicles {
		if v.ID != vehicle.ID && v.Number == vehicle.Number {
			return true
		}
	}
	return false
}

func (r *memoryVehicles) Create(_ context.Context, vehicle domain.Vehicle) error {
	if r.conflict(vehicle) {
		return &repository.DuplicateError{Constraint: "vehicles_vehicle_number_key"}
	}
	r.vehicles[vehicle.ID] = vehicle
	return nil
}

func (r *memoryVehicles) Update(_ context.Context, vehicle domain.Vehicle) error {
	if _, ok := r.vehicles[vehicle.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.conflict(vehicle) {
		return &repository.DuplicateError{Constraint: "vehicles_vehicle_number_key"}
	}
	r.vehicles[vehicle.ID] = vehicle
	return nil
}

func (r *memoryVehicles) Delete(_ context.Context, id string) error {
	if _, ok := r.vehicles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.vehicles, id)
	return nil
}

func (r *memoryVehicles) GetByID(_ context.Context, id string) (*domain.Vehicle, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (r *memoryVehicles) ListByOwner(_ context.Context, ownerID string) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	for _, v := range r.vehicles {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memoryVehicles) List(_ context.Context, search string, _, _ int) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	for _, v := range r.vehicles {
		if search != "" && !strings.Contains(v.Number, search) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

type memoryActivity struct {
	entries []domain.ActivityLog
	err     error
}

func (r *memoryActivity) Append(_ context.Context, entry domain.ActivityLog) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryActivity) List(_ context.Context, limit, offset int) ([]domain.ActivityLog, error) {
	if offset >= len(r.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.entries) {
		end = len(r.entries)
	}
	return r.entries[offset:end], nil
}

func (r *memoryActivity) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingPublisher struct {
	published []string
	err       error
}

func (p *recordingPublisher) record(name string) error {
	p.published = append(p.published, name)
	return p.err
}

func (p *recordingPublisher) PublishUserRegistered(context.Context, domain.UserRegisteredEvent) error {
	return p.record("user.registered")
}

func (p *recordingPublisher) PublishUserLoggedIn(context.Context, domain.UserLoggedInEvent) error {
	return p.record("user.logged_in")
}

func (p *recordingPublisher) PublishUserStatusChanged(context.Context, domain.UserStatusChangedEvent) error {
	return p.record("user.status_changed")
}

func (p *recordingPublisher) PublishUserRoleChanged(context.Context, domain.UserRoleChangedEvent) error {
	return p.record("user.role_changed")
}

func (p *recordingPublisher) PublishPasswordReset(context.Context, domain.PasswordResetEvent) error {
	return p.record("user.password_reset")
}

func (p *recordingPublisher) PublishEventRegistrationChanged(_ context.Context, event domain.EventRegistrationChangedEvent) error {
	if event.Cancelled {
		return p.record("event.registration_cancelled")
	}
	return p.record("event.registration_created")
}

func (p *recordingPublisher) PublishNoticePublished(context.Context, domain.NoticePublishedEvent) error {
	return p.record("notice.published")
}

type recordingMetrics struct {
	outcomes map[string][]string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: map[string][]string{}}
}

func (m *recordingMetrics) RecordOutcome(workflow, outcome string) {
	m.outcomes[workflow] = append(m.outcomes[workflow], outcome)
}

// plainHasher stores "hash:" + password. It keeps tests independent of Argon2 cost.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (plainHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hash:"+password, nil
}

type lengthPolicy struct{ min int }

func (p lengthPolicy) Validate(password string, _ ...string) error {
	if len(password) < p.min {
		return errors.New("password is too short")
	}
	return nil
}

func (lengthPolicy) Strength(password string, _ ...string) int {
	if len(password) >= 12 {
		return 4
	}
	return 2
}

type staticPasswords struct{ value string }

func (g staticPasswords) Generate() (string, error) { return g.value, nil }

// fakeTokens encodes the session as "token:<userID>:<role>".
type fakeTokens struct {
	issued []domain.Session
}

func (f *fakeTokens) Issue(session domain.Session) (string, time.Time, error) {
	f.issued = append(f.issued, session)
	return "token:" + session.UserID + ":" + string(session.Role), testNow.Add(time.Hour), nil
}

func (f *fakeTokens) Parse(token string) (domain.Session, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] != "token" {
		return domain.Session{}, errors.New("malformed token")
	}
	return domain.Session{UserID: parts[1], Role: domain.Role(parts[2])}, nil
}

func testDeps(events port.EventPublisher, metrics port.WorkflowMetrics) Dependencies {
	return Dependencies{Events: events, Metrics: metrics, Now: fixedClock}
}
