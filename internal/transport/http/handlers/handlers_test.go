package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/transport/http/middleware"
	"github.com/greenvalley/society-portal/internal/usecase"
)

var testCookie = middleware.CookieOptions{Name: "society_session"}

type stubAuth struct {
	result usecase.LoginResult
	err    error
	ip     string
}

func (s *stubAuth) Authenticate(_ context.Context, email, password, ip string) (usecase.LoginResult, error) {
	s.ip = ip
	if s.err != nil {
		return usecase.LoginResult{}, s.err
	}
	return s.result, nil
}

type stubRegistrar struct {
	input usecase.RegisterInput
	err   error
}

func (s *stubRegistrar) Register(_ context.Context, input usecase.RegisterInput) (usecase.RegisterResult, error) {
	s.input = input
	if s.err != nil {
		return usecase.RegisterResult{}, s.err
	}
	return usecase.RegisterResult{UserID: "u-new", FlatID: "f-1", Status: domain.UserStatusPending, PasswordStrength: 3}, nil
}

type stubBuildings struct{}

func (stubBuildings) ListForRegistration(context.Context) ([]domain.Building, error) {
	return []domain.Building{{ID: "b-1", Name: "Tower A", Code: "A", TotalFloors: 12, VisibleForRegistration: true}}, nil
}

type stubEventRegistrations struct {
	err      error
	caller   *domain.Session
	input    usecase.RegisterForEventInput
	csv      string
	canceled string
}

func (s *stubEventRegistrations) Register(_ context.Context, caller *domain.Session, eventID string, input usecase.RegisterForEventInput) (domain.EventRegistration, error) {
	s.caller = caller
	s.input = input
	if s.err != nil {
		return domain.EventRegistration{}, s.err
	}
	return domain.EventRegistration{ID: "r-1", EventID: eventID, UserID: caller.UserID, Status: domain.RegistrationStatusRegistered}, nil
}

func (s *stubEventRegistrations) Cancel(_ context.Context, _ *domain.Session, eventID string) error {
	s.canceled = eventID
	return s.err
}

func (s *stubEventRegistrations) ListMine(context.Context, *domain.Session) ([]domain.EventRegistration, error) {
	return nil, s.err
}

func (s *stubEventRegistrations) ListForEvent(context.Context, *domain.Session, string) ([]domain.RegistrationDetail, error) {
	return nil, s.err
}

func (s *stubEventRegistrations) ExportCSV(_ context.Context, _ *domain.Session, _ string, w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	_, err := io.WriteString(w, s.csv)
	return err
}

type stubUserAdmin struct {
	calls  []string
	err    error
	filter port.UserFilter
}

func (s *stubUserAdmin) do(action, userID string) (domain.User, error) {
	s.calls = append(s.calls, action+":"+userID)
	if s.err != nil {
		return domain.User{}, s.err
	}
	return domain.User{ID: userID, PasswordHash: "secret-hash", Status: domain.UserStatusApproved, Role: domain.RoleOwner}, nil
}

func (s *stubUserAdmin) Approve(_ context.Context, _ *domain.Session, id string) (domain.User, error) {
	return s.do("approve", id)
}

func (s *stubUserAdmin) Reject(_ context.Context, _ *domain.Session, id string) (domain.User, error) {
	return s.do("reject", id)
}

func (s *stubUserAdmin) Suspend(_ context.Context, _ *domain.Session, id string) (domain.User, error) {
	return s.do("suspend", id)
}

func (s *stubUserAdmin) Reactivate(_ context.Context, _ *domain.Session, id string) (domain.User, error) {
	return s.do("reactivate", id)
}

func (s *stubUserAdmin) MakeAdmin(_ context.Context, _ *domain.Session, id string) (domain.User, error) {
	return s.do("make-admin", id)
}

func (s *stubUserAdmin) RemoveAdmin(_ context.Context, _ *domain.Session, id string) (domain.User, error) {
	return s.do("remove-admin", id)
}

func (s *stubUserAdmin) ResetPassword(_ context.Context, _ *domain.Session, id string) (string, error) {
	if _, err := s.do("reset-password", id); err != nil {
		return "", err
	}
	return "Temp-Pass-123", nil
}

func (s *stubUserAdmin) ListUsers(_ context.Context, _ *domain.Session, filter port.UserFilter) ([]domain.User, error) {
	s.filter = filter
	return []domain.User{{ID: "u-1", PasswordHash: "secret-hash"}}, s.err
}

func (s *stubUserAdmin) GetUser(_ context.Context, _ *domain.Session, id string) (domain.User, error) {
	return s.do("get", id)
}

func withSession(session *domain.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if session != nil {
			c.Set(middleware.SessionKey, session)
		}
		c.Next()
	}
}

func newTestRouter(session *domain.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.EnrichContext(), withSession(session))
	return router
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rr.Body.String())
	}
	return env
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestLoginSetsSessionCookie(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	auth := &stubAuth{result: usecase.LoginResult{
		Token:     "signed-token",
		ExpiresAt: expires,
		Session:   domain.Session{UserID: "u-1", Role: domain.RoleOwner, BuildingID: "b-1", FlatID: "f-1", ExpiresAt: expires},
		User:      domain.User{ID: "u-1", Email: "asha@example.com", PasswordHash: "secret-hash"},
	}}
	router := newTestRouter(nil)
	NewAuthHandler(auth, &stubRegistrar{}, stubBuildings{}, testCookie, nil).RegisterRoutes(router.Group("/api/v1/auth"), nil, nil)

	rr := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"email":" asha@example.com ","password":"pw"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "secret-hash") {
		t.Fatal("password hash leaked into the response")
	}

	var found bool
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == testCookie.Name && cookie.Value == "signed-token" && cookie.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("expected HttpOnly session cookie")
	}

	env := decodeEnvelope(t, rr)
	data := env.Data.(map[string]any)
	session := data["session"].(map[string]any)
	if !env.Success || session["userId"] != "u-1" || session["flatId"] != "f-1" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestLoginErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{err: usecase.ErrInvalidCredentials, status: http.StatusUnauthorized, code: "invalid_credentials"},
		{err: usecase.ErrAccountPending, status: http.StatusUnprocessableEntity, code: "account_pending"},
		{err: usecase.ErrAccountSuspended, status: http.StatusUnprocessableEntity, code: "account_suspended"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			router := newTestRouter(nil)
			NewAuthHandler(&stubAuth{err: tc.err}, &stubRegistrar{}, stubBuildings{}, testCookie, nil).RegisterRoutes(router.Group("/auth"), nil, nil)

			rr := doJSON(router, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"pw"}`)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			env := decodeEnvelope(t, rr)
			if env.Success || env.Error == nil || env.Error.Code != tc.code {
				t.Fatalf("unexpected envelope %+v", env)
			}
			if len(rr.Result().Cookies()) != 0 {
				t.Fatal("failed login must not set a cookie")
			}
		})
	}
}

func TestLoginMiddlewareRunsFirst(t *testing.T) {
	router := newTestRouter(nil)
	auth := &stubAuth{}
	blocked := func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) }
	NewAuthHandler(auth, &stubRegistrar{}, stubBuildings{}, testCookie, nil).RegisterRoutes(router.Group("/auth"), []gin.HandlerFunc{blocked}, nil)

	rr := doJSON(router, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"pw"}`)
	if rr.Code != http.StatusTooManyRequests || auth.ip != "" {
		t.Fatalf("expected login to be blocked before authentication, got %d", rr.Code)
	}
}

func TestRegister(t *testing.T) {
	registrar := &stubRegistrar{}
	router := newTestRouter(nil)
	NewAuthHandler(&stubAuth{}, registrar, stubBuildings{}, testCookie, nil).RegisterRoutes(router.Group("/auth"), nil, nil)

	rr := doJSON(router, http.MethodPost, "/auth/register", `{"name":"Asha","email":"asha@example.com","password":"pw","confirmPassword":"pw","buildingId":"b-1","flatNumber":"1204","floor":12,"userType":"OWNER"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if registrar.input.Floor == nil || *registrar.input.Floor != 12 || registrar.input.UserType != domain.UserTypeOwner {
		t.Fatalf("input not forwarded: %+v", registrar.input)
	}

	rr = doJSON(router, http.MethodPost, "/auth/register", `{"name":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rr.Code)
	}

	registrar.err = &usecase.ValidationError{Fields: map[string]string{"email": "required"}}
	rr = doJSON(router, http.MethodPost, "/auth/register", `{}`)
	env := decodeEnvelope(t, rr)
	if rr.Code != http.StatusBadRequest || env.Error.Kind != string(usecase.KindValidation) || env.Error.Fields["email"] != "required" {
		t.Fatalf("unexpected validation response %d %+v", rr.Code, env.Error)
	}

	registrar.err = usecase.ErrDuplicateEmail
	rr = doJSON(router, http.MethodPost, "/auth/register", `{}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestSessionEndpointRequiresSession(t *testing.T) {
	router := newTestRouter(nil)
	NewAuthHandler(&stubAuth{}, &stubRegistrar{}, stubBuildings{}, testCookie, nil).RegisterRoutes(router.Group("/auth"), nil, nil)
	if rr := doJSON(router, http.MethodGet, "/auth/session", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	router = newTestRouter(&domain.Session{UserID: "u-1", Role: domain.RoleAdmin})
	NewAuthHandler(&stubAuth{}, &stubRegistrar{}, stubBuildings{}, testCookie, nil).RegisterRoutes(router.Group("/auth"), nil, nil)
	rr := doJSON(router, http.MethodGet, "/auth/session", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"role":"ADMIN"`) {
		t.Fatalf("unexpected session response %d %s", rr.Code, rr.Body.String())
	}
}

func TestAdminUserActions(t *testing.T) {
	users := &stubUserAdmin{}
	router := newTestRouter(&domain.Session{UserID: "admin-1", Role: domain.RoleAdmin})
	NewAdminUserHandler(users, nil).RegisterRoutes(router.Group("/admin"))

	for _, action := range []string{"approve", "reject", "suspend", "reactivate", "make-admin", "remove-admin"} {
		rr := doJSON(router, http.MethodPost, "/admin/users/u-9/"+action, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", action, rr.Code)
		}
		if strings.Contains(rr.Body.String(), "secret-hash") {
			t.Fatalf("%s: password hash leaked", action)
		}
	}
	if len(users.calls) != 6 || users.calls[0] != "approve:u-9" || users.calls[5] != "remove-admin:u-9" {
		t.Fatalf("unexpected calls %v", users.calls)
	}

	rr := doJSON(router, http.MethodPost, "/admin/users/u-9/reset-password", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Cache-Control") != "no-store" || !strings.Contains(rr.Body.String(), "Temp-Pass-123") {
		t.Fatalf("unexpected reset response %d %s", rr.Code, rr.Body.String())
	}

	doJSON(router, http.MethodGet, "/admin/users?status=pending&limit=500&offset=-3", "")
	if users.filter.Status != domain.UserStatusPending || users.filter.Limit != maxPageSize || users.filter.Offset != 0 {
		t.Fatalf("unexpected filter %+v", users.filter)
	}

	users.err = usecase.ErrConcurrentUpdate
	if rr := doJSON(router, http.MethodPost, "/admin/users/u-9/approve", ""); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	users.err = usecase.ErrInvalidTransition
	if rr := doJSON(router, http.MethodPost, "/admin/users/u-9/suspend", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestEventRegistrationEndpoints(t *testing.T) {
	regs := &stubEventRegistrations{}
	caller := &domain.Session{UserID: "u-1", Role: domain.RoleOwner}
	router := newTestRouter(caller)
	handler := NewEventHandler(nil, regs, nil)
	handler.RegisterDashboardRoutes(router.Group("/dashboard"))

	rr := doJSON(router, http.MethodPost, "/dashboard/events/e-1/registration", "")
	if rr.Code != http.StatusCreated || regs.caller != caller {
		t.Fatalf("expected 201 with caller forwarded, got %d", rr.Code)
	}

	rr = doJSON(router, http.MethodPost, "/dashboard/events/e-1/registration", `{"teamName":"Blue","teamMembers":[{"name":"Asha"},{"name":"Bala"}]}`)
	if rr.Code != http.StatusCreated || regs.input.TeamName != "Blue" || len(regs.input.TeamMembers) != 2 {
		t.Fatalf("team payload not forwarded: %d %+v", rr.Code, regs.input)
	}

	cases := []struct {
		err    error
		status int
	}{
		{err: usecase.ErrEventNotFound, status: http.StatusNotFound},
		{err: usecase.ErrEventFull, status: http.StatusUnprocessableEntity},
		{err: usecase.ErrAlreadyRegistered, status: http.StatusUnprocessableEntity},
		{err: usecase.ErrUnauthorized, status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		regs.err = tc.err
		if rr := doJSON(router, http.MethodPost, "/dashboard/events/e-1/registration", ""); rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
	}

	regs.err = usecase.ErrEventAlreadyStarted
	if rr := doJSON(router, http.MethodDelete, "/dashboard/events/e-1/registration", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for started event, got %d", rr.Code)
	}
}

func TestExportRegistrationsCSV(t *testing.T) {
	regs := &stubEventRegistrations{csv: "registration_id,registrant\nr-1,Asha\n"}
	router := newTestRouter(&domain.Session{UserID: "admin-1", Role: domain.RoleAdmin})
	NewEventHandler(nil, regs, nil).RegisterAdminRoutes(router.Group("/admin"))

	rr := doJSON(router, http.MethodGet, "/admin/events/e-1/registrations/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "event-e-1-registrations.csv") {
		t.Fatalf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
	if rr.Body.String() != regs.csv {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}

	regs.err = usecase.ErrEventNotFound
	rr = doJSON(router, http.MethodGet, "/admin/events/e-404/registrations/export", "")
	if rr.Code != http.StatusNotFound || decodeEnvelope(t, rr).Error.Code != "event_not_found" {
		t.Fatalf("expected not-found envelope, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestInternalErrorsAreNotExposed(t *testing.T) {
	router := newTestRouter(&domain.Session{UserID: "admin-1", Role: domain.RoleAdmin})
	users := &stubUserAdmin{err: fmt.Errorf("update user: %w", errors.New(`pq: relation "society.users" does not exist`))}
	NewAdminUserHandler(users, nil).RegisterRoutes(router.Group("/admin"))

	rr := doJSON(router, http.MethodGet, "/admin/users/u-1", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env.Error.Kind != string(usecase.KindInternal) || strings.Contains(rr.Body.String(), "society.users") {
		t.Fatalf("internal detail leaked: %s", rr.Body.String())
	}
	if env.Error.TraceID == "" {
		t.Fatal("expected trace id in error body")
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: usecase.ErrUnauthorized, want: http.StatusUnauthorized},
		{err: &usecase.ValidationError{}, want: http.StatusBadRequest},
		{err: usecase.ErrNoticeNotFound, want: http.StatusNotFound},
		{err: usecase.ErrDuplicateVehicle, want: http.StatusConflict},
		{err: usecase.ErrBuildingInUse, want: http.StatusUnprocessableEntity},
		{err: fmt.Errorf("wrap: %w", usecase.ErrEventFull), want: http.StatusUnprocessableEntity},
		{err: errors.New("connection reset by peer"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusForError(tc.err); got != tc.want {
			t.Fatalf("StatusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
