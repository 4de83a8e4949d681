package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/domain/user"
	"github.com/geocoder89/bookstore/internal/http/handlers"
	"github.com/geocoder89/bookstore/internal/http/middlewares"
	"github.com/geocoder89/bookstore/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

// Fake implementation of the handlers.AuthService interface

type fakeAuthService struct {
	signupFn       func(ctx context.Context, name, email, password, confirm string) (user.User, string, error)
	loginFn        func(ctx context.Context, email, password string) (user.User, string, error)
	logoutFn       func(ctx context.Context, raw string) error
	authenticateFn func(ctx context.Context, raw string) (user.User, error)
	forgotFn       func(ctx context.Context, email string) error
	resetFn        func(ctx context.Context, token, password, confirm string) (user.User, string, error)
	updateFn       func(ctx context.Context, userID, current, newPw, confirm string) (user.User, string, error)
}

func (f *fakeAuthService) Signup(ctx context.Context, name, email, password, confirm string) (user.User, string, error) {
	if f.signupFn != nil {
		return f.signupFn(ctx, name, email, password, confirm)
	}
	return user.User{}, "", nil
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (user.User, string, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password)
	}
	return user.User{}, "", nil
}

func (f *fakeAuthService) Logout(ctx context.Context, raw string) error {
	if f.logoutFn != nil {
		return f.logoutFn(ctx, raw)
	}
	return nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, raw string) (user.User, error) {
	if f.authenticateFn != nil {
		return f.authenticateFn(ctx, raw)
	}
	return user.User{}, auth.ErrNoSession
}

func (f *fakeAuthService) ForgotPassword(ctx context.Context, email string) error {
	if f.forgotFn != nil {
		return f.forgotFn(ctx, email)
	}
	return nil
}

func (f *fakeAuthService) ResetPassword(ctx context.Context, token, password, confirm string) (user.User, string, error) {
	if f.resetFn != nil {
		return f.resetFn(ctx, token, password, confirm)
	}
	return user.User{}, "", nil
}

func (f *fakeAuthService) UpdatePassword(ctx context.Context, userID, current, newPw, confirm string) (user.User, string, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, userID, current, newPw, confirm)
	}
	return user.User{}, "", nil
}

func testOpts() session.Options {
	return session.Options{
		CookieName: "sid",
		TTL:        24 * time.Hour,
	}
}

func testUser() user.User {
	return user.User{
		ID:           uuid.NewString(),
		Name:         "Test Reader",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhash",
		Role:         user.RoleUser,
	}
}

// small helper which returns the gin engine to mount one handler per test
func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func doJSON(r http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

func TestSignUpHandler(t *testing.T) {
	u := testUser()

	svc := &fakeAuthService{
		signupFn: func(ctx context.Context, name, email, password, confirm string) (user.User, string, error) {
			return u, "raw-session-id", nil
		},
	}

	h := handlers.NewAuthHandler(svc, testOpts(), nil)

	r := setupRouter(http.MethodPost, "/users/signup", h.SignUp)

	w := doJSON(r, http.MethodPost, "/users/signup",
		`{"name":"Test Reader","email":"a@x.com","password":"secret123","passwordConfirm":"secret123"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", w.Code, w.Body.String())
	}

	c := sessionCookie(t, w, "sid")

	if c == nil || c.Value != "raw-session-id" {
		t.Fatalf("session cookie missing or wrong: %+v", c)
	}

	if !c.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly")
	}

	// the password hash must never appear in the response
	body := w.Body.String()

	if strings.Contains(body, "notarealhash") || strings.Contains(body, "passwordHash") {
		t.Fatalf("response leaks password hash: %s", body)
	}
}

func TestSignUpHandlerValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"name":"n","password":"secret123","passwordConfirm":"secret123"}`},
		{"bad email", `{"name":"n","email":"nope","password":"secret123","passwordConfirm":"secret123"}`},
		{"short password", `{"name":"n","email":"a@x.com","password":"short","passwordConfirm":"short"}`},
		{"confirm mismatch", `{"name":"n","email":"a@x.com","password":"secret123","passwordConfirm":"different1"}`},
		{"not json", `{"name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false

			svc := &fakeAuthService{
				signupFn: func(ctx context.Context, name, email, password, confirm string) (user.User, string, error) {
					called = true
					return user.User{}, "", nil
				},
			}

			h := handlers.NewAuthHandler(svc, testOpts(), nil)
			r := setupRouter(http.MethodPost, "/users/signup", h.SignUp)

			w := doJSON(r, http.MethodPost, "/users/signup", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body=%s", w.Code, w.Body.String())
			}

			if called {
				t.Fatalf("service reached despite invalid input")
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	u := testUser()

	tests := []struct {
		name       string
		body       string
		loginFn    func(ctx context.Context, email, password string) (user.User, string, error)
		wantStatus int
		wantCookie bool
	}{
		{
			name: "success",
			body: `{"email":"a@x.com","password":"secret123"}`,
			loginFn: func(ctx context.Context, email, password string) (user.User, string, error) {
				return u, "raw-session-id", nil
			},
			wantStatus: http.StatusOK,
			wantCookie: true,
		},
		{
			name: "bad credentials",
			body: `{"email":"a@x.com","password":"wrongpass1"}`,
			loginFn: func(ctx context.Context, email, password string) (user.User, string, error) {
				return user.User{}, "", auth.ErrInvalidCredentials
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing fields",
			body:       `{"email":"a@x.com"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store down",
			body: `{"email":"a@x.com","password":"secret123"}`,
			loginFn: func(ctx context.Context, email, password string) (user.User, string, error) {
				return user.User{}, "", context.DeadlineExceeded
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{loginFn: tt.loginFn}

			h := handlers.NewAuthHandler(svc, testOpts(), nil)
			r := setupRouter(http.MethodPost, "/users/login", h.Login)

			w := doJSON(r, http.MethodPost, "/users/login", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			c := sessionCookie(t, w, "sid")

			if tt.wantCookie && (c == nil || c.Value == "") {
				t.Fatalf("expected session cookie, got none")
			}

			if !tt.wantCookie && c != nil && c.Value != "" {
				t.Fatalf("unexpected session cookie on failure")
			}
		})
	}
}

func TestLoginHandlerDoesNotRevealWhichFieldWasWrong(t *testing.T) {
	svc := &fakeAuthService{
		loginFn: func(ctx context.Context, email, password string) (user.User, string, error) {
			return user.User{}, "", auth.ErrInvalidCredentials
		},
	}

	h := handlers.NewAuthHandler(svc, testOpts(), nil)
	r := setupRouter(http.MethodPost, "/users/login", h.Login)

	w1 := doJSON(r, http.MethodPost, "/users/login", `{"email":"nobody@x.com","password":"secret123"}`)
	w2 := doJSON(r, http.MethodPost, "/users/login", `{"email":"a@x.com","password":"wrongpass1"}`)

	if w1.Body.String() != w2.Body.String() {
		t.Fatalf("login failure bodies differ: %s vs %s", w1.Body.String(), w2.Body.String())
	}
}

func TestMeHandler(t *testing.T) {
	u := testUser()

	svc := &fakeAuthService{
		authenticateFn: func(ctx context.Context, raw string) (user.User, error) {
			if raw == "live-session" {
				return u, nil
			}
			return user.User{}, auth.ErrSessionExpired
		},
	}

	h := handlers.NewAuthHandler(svc, testOpts(), nil)
	r := setupRouter(http.MethodGet, "/users/me", h.Me)

	// with a live session
	w := doJSON(r, http.MethodGet, "/users/me", "", &http.Cookie{Name: "sid", Value: "live-session"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Data struct {
			User *user.User `json:"user"`
		} `json:"data"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}

	if resp.Data.User == nil || resp.Data.User.ID != u.ID {
		t.Fatalf("me did not resolve the user: %s", w.Body.String())
	}

	// without a cookie the payload is null-shaped, not a 401
	w = doJSON(r, http.MethodGet, "/users/me", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp.Data.User = nil

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Data.User != nil {
		t.Fatalf("anonymous me should carry a null user: %s", w.Body.String())
	}
}

func TestMeHandlerStoreOutage(t *testing.T) {
	svc := &fakeAuthService{
		authenticateFn: func(ctx context.Context, raw string) (user.User, error) {
			return user.User{}, context.DeadlineExceeded
		},
	}

	h := handlers.NewAuthHandler(svc, testOpts(), nil)
	r := setupRouter(http.MethodGet, "/users/me", h.Me)

	w := doJSON(r, http.MethodGet, "/users/me", "", &http.Cookie{Name: "sid", Value: "live-session"})

	// an unreachable store must not masquerade as a logged-out caller
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500, body=%s", w.Code, w.Body.String())
	}
}

func TestLogoutHandlerClearsCookie(t *testing.T) {
	var loggedOut string

	svc := &fakeAuthService{
		logoutFn: func(ctx context.Context, raw string) error {
			loggedOut = raw
			return nil
		},
	}

	h := handlers.NewAuthHandler(svc, testOpts(), nil)
	r := setupRouter(http.MethodGet, "/users/logout", h.Logout)

	w := doJSON(r, http.MethodGet, "/users/logout", "", &http.Cookie{Name: "sid", Value: "raw-session-id"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	if loggedOut != "raw-session-id" {
		t.Fatalf("logout called with %q", loggedOut)
	}

	c := sessionCookie(t, w, "sid")

	if c == nil || c.Value != "" || c.MaxAge != -1 {
		t.Fatalf("cookie not cleared: %+v", c)
	}
}

func TestForgotPasswordHandler(t *testing.T) {
	t.Run("generic success", func(t *testing.T) {
		svc := &fakeAuthService{}

		h := handlers.NewAuthHandler(svc, testOpts(), nil)
		r := setupRouter(http.MethodPost, "/users/forgotPassword", h.ForgotPassword)

		w := doJSON(r, http.MethodPost, "/users/forgotPassword", `{"email":"a@x.com"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})

	t.Run("delivery failure", func(t *testing.T) {
		svc := &fakeAuthService{
			forgotFn: func(ctx context.Context, email string) error {
				return auth.ErrDelivery
			},
		}

		h := handlers.NewAuthHandler(svc, testOpts(), nil)
		r := setupRouter(http.MethodPost, "/users/forgotPassword", h.ForgotPassword)

		w := doJSON(r, http.MethodPost, "/users/forgotPassword", `{"email":"a@x.com"}`)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", w.Code)
		}
	})
}

func TestResetPasswordHandler(t *testing.T) {
	u := testUser()

	t.Run("success sets cookie", func(t *testing.T) {
		svc := &fakeAuthService{
			resetFn: func(ctx context.Context, token, password, confirm string) (user.User, string, error) {
				if token != "the-token" {
					t.Fatalf("token = %q", token)
				}
				return u, "raw-session-id", nil
			},
		}

		h := handlers.NewAuthHandler(svc, testOpts(), nil)
		r := setupRouter(http.MethodPatch, "/users/resetPassword/:token", h.ResetPassword)

		w := doJSON(r, http.MethodPatch, "/users/resetPassword/the-token",
			`{"password":"resetpass1","passwordConfirm":"resetpass1"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
		}

		if c := sessionCookie(t, w, "sid"); c == nil || c.Value == "" {
			t.Fatalf("reset should log the user in")
		}
	})

	t.Run("bad token", func(t *testing.T) {
		svc := &fakeAuthService{
			resetFn: func(ctx context.Context, token, password, confirm string) (user.User, string, error) {
				return user.User{}, "", auth.ErrBadResetToken
			},
		}

		h := handlers.NewAuthHandler(svc, testOpts(), nil)
		r := setupRouter(http.MethodPatch, "/users/resetPassword/:token", h.ResetPassword)

		w := doJSON(r, http.MethodPatch, "/users/resetPassword/expired",
			`{"password":"resetpass1","passwordConfirm":"resetpass1"}`)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestUpdateMyPasswordHandler(t *testing.T) {
	u := testUser()

	t.Run("wrong current password", func(t *testing.T) {
		svc := &fakeAuthService{
			authenticateFn: func(ctx context.Context, raw string) (user.User, error) {
				return u, nil
			},
			updateFn: func(ctx context.Context, userID, current, newPw, confirm string) (user.User, string, error) {
				return user.User{}, "", auth.ErrInvalidCredentials
			},
		}

		h := handlers.NewAuthHandler(svc, testOpts(), nil)

		r := gin.New()
		mw := middlewares.NewAuthMiddleware(svc, "sid")
		r.PATCH("/users/updateMyPassword", mw.RequireSession(), h.UpdateMyPassword)

		w := doJSON(r, http.MethodPatch, "/users/updateMyPassword",
			`{"passwordCurrent":"wrongpass1","password":"newsecret1","passwordConfirm":"newsecret1"}`,
			&http.Cookie{Name: "sid", Value: "live-session"})

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("success rotates session", func(t *testing.T) {
		svc := &fakeAuthService{
			authenticateFn: func(ctx context.Context, raw string) (user.User, error) {
				return u, nil
			},
			updateFn: func(ctx context.Context, userID, current, newPw, confirm string) (user.User, string, error) {
				if userID != u.ID {
					t.Fatalf("userID = %q, want %q", userID, u.ID)
				}
				return u, "fresh-session-id", nil
			},
		}

		h := handlers.NewAuthHandler(svc, testOpts(), nil)

		r := gin.New()
		mw := middlewares.NewAuthMiddleware(svc, "sid")
		r.PATCH("/users/updateMyPassword", mw.RequireSession(), h.UpdateMyPassword)

		w := doJSON(r, http.MethodPatch, "/users/updateMyPassword",
			`{"passwordCurrent":"secret123","password":"newsecret1","passwordConfirm":"newsecret1"}`,
			&http.Cookie{Name: "sid", Value: "live-session"})

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
		}

		if c := sessionCookie(t, w, "sid"); c == nil || c.Value != "fresh-session-id" {
			t.Fatalf("session cookie not rotated: %+v", c)
		}
	})
}
