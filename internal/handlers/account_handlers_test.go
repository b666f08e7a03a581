package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/findmymua/fmm-backend/internal/domain"
	"github.com/findmymua/fmm-backend/internal/handlers"
	"github.com/findmymua/fmm-backend/internal/repository"
	"github.com/findmymua/fmm-backend/internal/service"
	"github.com/findmymua/fmm-backend/pkg/config"
	"github.com/findmymua/fmm-backend/pkg/events"
)

// ---------- Mocks ----------

type mockAccountRepo struct {
	nextID   int64
	accounts map[int64]*domain.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{nextID: 1, accounts: make(map[int64]*domain.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, kind string, req *domain.RegisterRequest, role, bio, passwordHash string) (*domain.Account, error) {
	id := m.nextID
	m.nextID++
	a := &domain.Account{
		ID:           id,
		Kind:         kind,
		Role:         role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Bio:          bio,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.accounts[id] = a
	return a, nil
}

func (m *mockAccountRepo) FindByEmail(_ context.Context, kind, email string) (*domain.Account, error) {
	for _, a := range m.accounts {
		if a.Kind == kind && a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAccountRepo) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	return m.accounts[id], nil
}

func (m *mockAccountRepo) UpdateProfile(_ context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	if req.FirstName != nil {
		a.FirstName = *req.FirstName
	}
	if req.Bio != nil {
		a.Bio = *req.Bio
	}
	if req.Location != nil {
		a.Location = *req.Location
	}
	return a, nil
}

func (m *mockAccountRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	a, ok := m.accounts[id]
	if !ok {
		return errors.New("no rows")
	}
	a.PasswordHash = passwordHash
	return nil
}

func (m *mockAccountRepo) SetResetToken(_ context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	a, ok := m.accounts[id]
	if !ok {
		return errors.New("no rows")
	}
	a.ResetPasswordTokenHash = &tokenHash
	a.ResetPasswordExpiry = &expiresAt
	return nil
}

func (m *mockAccountRepo) ClearResetToken(_ context.Context, id int64) error {
	a, ok := m.accounts[id]
	if !ok {
		return errors.New("no rows")
	}
	a.ResetPasswordTokenHash = nil
	a.ResetPasswordExpiry = nil
	return nil
}

func (m *mockAccountRepo) ConsumeResetToken(_ context.Context, kind, tokenHash, newPasswordHash string) (*domain.Account, error) {
	for _, a := range m.accounts {
		if a.Kind != kind || a.ResetPasswordTokenHash == nil || *a.ResetPasswordTokenHash != tokenHash {
			continue
		}
		if a.ResetPasswordExpiry == nil || !a.ResetPasswordExpiry.After(time.Now()) {
			continue
		}
		a.PasswordHash = newPasswordHash
		a.ResetPasswordTokenHash = nil
		a.ResetPasswordExpiry = nil
		return a, nil
	}
	return nil, nil
}

func (m *mockAccountRepo) List(_ context.Context, limit, offset int) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAccountRepo) UpdateRole(_ context.Context, id int64, role string) error {
	a, ok := m.accounts[id]
	if !ok {
		return errors.New("no rows")
	}
	a.Role = role
	return nil
}

type mockOrderRepo struct {
	nextID int64
}

func (m *mockOrderRepo) Create(_ context.Context, accountID int64, req *domain.CreateOrderRequest) (*domain.Order, error) {
	m.nextID++
	return &domain.Order{
		ID:          m.nextID,
		AccountID:   accountID,
		ArtistID:    req.ArtistID,
		ServiceName: req.ServiceName,
		Notes:       req.Notes,
		Status:      domain.OrderPending,
		CreatedAt:   time.Now(),
	}, nil
}

type mockMailer struct {
	lastTo  string
	lastURL string
	sendErr error
}

func (m *mockMailer) SendPasswordResetEmail(toEmail, toName, resetURL string) error {
	m.lastTo = toEmail
	m.lastURL = resetURL
	return m.sendErr
}

type allowAllRateLimit struct{}

func (allowAllRateLimit) CheckRateLimit(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

var _ repository.RateLimitRepository = allowAllRateLimit{}

// ---------- Test server ----------

type testEnv struct {
	router *chi.Mux
	repo   *mockAccountRepo
	mail   *mockMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Load()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.SessionTTL = time.Hour
	cfg.Auth.ResetTokenTTL = 15 * time.Minute

	repo := newMockAccountRepo()
	mail := &mockMailer{}
	accountService := service.NewAccountService(repo, mail, events.NoopPublisher{}, cfg)
	orderService := service.NewOrderService(&mockOrderRepo{}, repo, events.NoopPublisher{})
	h := handlers.New(accountService, orderService, repo, allowAllRateLimit{}, cfg)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/registerArtist", h.Register(domain.KindArtist))
		r.Post("/loginArtist", h.Login(domain.KindArtist))
		r.Get("/logoutArtist", h.Logout)
		r.Post("/artistPassword/forgot", h.ForgotPassword(domain.KindArtist))
		r.Put("/artistPassword/reset/{token}", h.ResetPassword(domain.KindArtist))

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Get("/artist", h.GetMe)
			r.Put("/artistPassword/update", h.UpdatePassword)
			r.Put("/artist/update", h.UpdateProfile)
			r.Post("/order/new", h.CreateOrder)

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.RequireRoles(domain.RoleAdmin))
				r.Get("/accounts", h.ListAccounts)
			})
		})
	})

	return &testEnv{router: r, repo: repo, mail: mail}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) registerArtist(t *testing.T, email string) (*http.Cookie, int64) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/v1/registerArtist", map[string]string{
		"fname":    "Jane",
		"lname":    "Doess",
		"email":    email,
		"password": "secret123",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}

	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("no session cookie set on register")
	}

	var body struct {
		Account struct {
			ID int64 `json:"id"`
		} `json:"account"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode register body: %v", err)
	}
	return cookie, body.Account.ID
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
	return body.Success, body.Message
}

// ---------- Tests ----------

func TestRegisterArtistSetsCookieAndHashesPassword(t *testing.T) {
	env := newTestEnv(t)

	cookie, id := env.registerArtist(t, "j@x.com")
	if !cookie.HttpOnly {
		t.Fatal("session cookie is not HTTP-only")
	}

	stored := env.repo.accounts[id]
	if stored == nil {
		t.Fatal("account not persisted")
	}
	if stored.PasswordHash == "secret123" {
		t.Fatal("password stored in plaintext")
	}
}

func TestLoginUnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	env := newTestEnv(t)
	env.registerArtist(t, "j@x.com")

	recUnknown := env.do(t, http.MethodPost, "/api/v1/loginArtist", map[string]string{
		"email": "nobody@x.com", "password": "secret123",
	}, nil)
	recWrong := env.do(t, http.MethodPost, "/api/v1/loginArtist", map[string]string{
		"email": "j@x.com", "password": "wrong-password",
	}, nil)

	if recUnknown.Code != http.StatusUnauthorized || recWrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", recUnknown.Code, recWrong.Code)
	}
	if recUnknown.Body.String() != recWrong.Body.String() {
		t.Fatalf("enumeration signal: %q vs %q", recUnknown.Body.String(), recWrong.Body.String())
	}
}

func TestLoginMissingCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/loginArtist", map[string]string{"email": "j@x.com"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/logoutArtist", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("no cookie in logout response")
	}
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("cookie not expired: value=%q maxage=%d", cookie.Value, cookie.MaxAge)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/artistPassword/forgot", map[string]string{"email": "nobody@x.com"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	success, message := decodeError(t, rec)
	if success || message != "User not found" {
		t.Fatalf("unexpected body: success=%v message=%q", success, message)
	}
}

func TestResetPasswordMismatch(t *testing.T) {
	env := newTestEnv(t)
	_, id := env.registerArtist(t, "j@x.com")

	rec := env.do(t, http.MethodPost, "/api/v1/artistPassword/forgot", map[string]string{"email": "j@x.com"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot returned %d: %s", rec.Code, rec.Body.String())
	}
	before := env.repo.accounts[id].PasswordHash
	token := env.mail.lastURL[len("http://example.com/api/v1/password/reset/"):]

	rec = env.do(t, http.MethodPut, "/api/v1/artistPassword/reset/"+token, map[string]string{
		"password": "newpassword1", "confirmPassword": "different1",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env.repo.accounts[id].PasswordHash != before {
		t.Fatal("password hash changed despite mismatch")
	}
}

func TestResetPasswordFlow(t *testing.T) {
	env := newTestEnv(t)
	env.registerArtist(t, "j@x.com")

	rec := env.do(t, http.MethodPost, "/api/v1/artistPassword/forgot", map[string]string{"email": "j@x.com"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot returned %d", rec.Code)
	}
	token := env.mail.lastURL[len("http://example.com/api/v1/password/reset/"):]

	rec = env.do(t, http.MethodPut, "/api/v1/artistPassword/reset/"+token, map[string]string{
		"password": "newpassword1", "confirmPassword": "newpassword1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset returned %d: %s", rec.Code, rec.Body.String())
	}
	if sessionCookie(rec) == nil {
		t.Fatal("no session cookie on successful reset")
	}

	// Old password is gone, new one works.
	rec = env.do(t, http.MethodPost, "/api/v1/loginArtist", map[string]string{
		"email": "j@x.com", "password": "secret123",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password still accepted: %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/loginArtist", map[string]string{
		"email": "j@x.com", "password": "newpassword1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("new password rejected: %d %s", rec.Code, rec.Body.String())
	}

	// Token is single-use.
	rec = env.do(t, http.MethodPut, "/api/v1/artistPassword/reset/"+token, map[string]string{
		"password": "anotherpass1", "confirmPassword": "anotherpass1",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on reused token, got %d", rec.Code)
	}
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/artist", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	_, message := decodeError(t, rec)
	if message != "Please Login to access this resource" {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestProtectedRouteWithDeletedAccount(t *testing.T) {
	env := newTestEnv(t)
	cookie, id := env.registerArtist(t, "j@x.com")

	// Simulate the account disappearing after the token was issued.
	delete(env.repo.accounts, id)

	rec := env.do(t, http.MethodGet, "/api/v1/artist", nil, cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted account, got %d", rec.Code)
	}
}

func TestGetMeReturnsAccountWithoutPassword(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.registerArtist(t, "j@x.com")

	rec := env.do(t, http.MethodGet, "/api/v1/artist", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Fatalf("response leaks password material: %s", rec.Body.String())
	}
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.registerArtist(t, "j@x.com")

	rec := env.do(t, http.MethodPut, "/api/v1/artistPassword/update", map[string]string{
		"oldPassword": "secret123", "newPassword": "newpassword1", "confirmPassword": "newpassword1",
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/loginArtist", map[string]string{
		"email": "j@x.com", "password": "newpassword1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("new password rejected: %d", rec.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	cookie, id := env.registerArtist(t, "j@x.com")

	rec := env.do(t, http.MethodPut, "/api/v1/artist/update", map[string]string{
		"bio": "Bridal specialist", "location": "Mumbai",
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.repo.accounts[id].Bio != "Bridal specialist" {
		t.Fatalf("bio not updated: %q", env.repo.accounts[id].Bio)
	}
}

func TestRoleGateRejectsNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.registerArtist(t, "j@x.com")

	rec := env.do(t, http.MethodGet, "/api/v1/admin/accounts", nil, cookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	_, message := decodeError(t, rec)
	if message != "Role: artist is not allowed to access this resource" {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestRoleGateAllowsAdmin(t *testing.T) {
	env := newTestEnv(t)
	cookie, id := env.registerArtist(t, "j@x.com")
	env.repo.accounts[id].Role = domain.RoleAdmin

	rec := env.do(t, http.MethodGet, "/api/v1/admin/accounts", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)
	_, artistID := env.registerArtist(t, "artist@x.com")
	cookie, _ := env.registerArtist(t, "client@x.com")

	rec := env.do(t, http.MethodPost, "/api/v1/order/new", map[string]interface{}{
		"artist_id": artistID, "service_name": "Bridal makeup",
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}
