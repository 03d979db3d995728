package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/streamhub/backend/internal/accounts"
	"github.com/streamhub/backend/internal/apperrors"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/config"
	"github.com/streamhub/backend/internal/models"
)

type stubAccounts struct {
	AccountService

	registerInput accounts.RegisterInput
	refreshToken  string
	loggedOut     string
	details       accounts.AccountDetails

	tokens models.SessionTokens
	err    error
}

func (s *stubAccounts) Register(_ context.Context, in accounts.RegisterInput) (models.PublicUser, error) {
	s.registerInput = in
	if s.err != nil {
		return models.PublicUser{}, s.err
	}
	return models.PublicUser{ID: "user-1", Username: in.Username}, nil
}

func (s *stubAccounts) Login(_ context.Context, in accounts.LoginInput) (accounts.LoginResult, error) {
	if s.err != nil {
		return accounts.LoginResult{}, s.err
	}
	return accounts.LoginResult{User: models.PublicUser{ID: "user-1", Username: in.Username}, Tokens: s.tokens}, nil
}

func (s *stubAccounts) Logout(_ context.Context, userID string) error {
	s.loggedOut = userID
	return s.err
}

func (s *stubAccounts) RefreshSession(_ context.Context, refreshToken string) (models.SessionTokens, error) {
	s.refreshToken = refreshToken
	if s.err != nil {
		return models.SessionTokens{}, s.err
	}
	return s.tokens, nil
}

func (s *stubAccounts) UpdateAccountDetails(_ context.Context, userID string, details accounts.AccountDetails) (models.PublicUser, error) {
	s.details = details
	return models.PublicUser{ID: userID, FullName: details.FullName}, s.err
}

func testCookies() *config.CookieConfig {
	return &config.CookieConfig{
		AccessName:  "accessToken",
		RefreshName: "refreshToken",
		Path:        "/",
		Secure:      true,
		SameSite:    "strict",
	}
}

func sampleTokens() models.SessionTokens {
	return models.SessionTokens{
		AccessToken:      "access-1",
		AccessExpiresAt:  time.Now().Add(time.Minute),
		RefreshToken:     "refresh-1",
		RefreshExpiresAt: time.Now().Add(time.Hour),
	}
}

func withUser(r *http.Request, id string) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), models.PublicUser{ID: id, Username: "alice"}))
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestLoginSetsSessionCookies(t *testing.T) {
	svc := &stubAccounts{tokens: sampleTokens()}
	handler := UserHandler{Accounts: svc, Cookies: testCookies()}

	body := strings.NewReader(`{"username":"alice","password":"pw"}`)
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	access := cookieByName(t, rec, "accessToken")
	if access.Value != "access-1" || !access.HttpOnly || !access.Secure || access.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected access cookie: %+v", access)
	}
	refresh := cookieByName(t, rec, "refreshToken")
	if refresh.Value != "refresh-1" || !refresh.HttpOnly {
		t.Fatalf("unexpected refresh cookie: %+v", refresh)
	}

	var resp struct {
		Data    loginResponse `json:"data"`
		Success bool          `json:"success"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Data.AccessToken != "access-1" || resp.Data.User.Username != "alice" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestLoginRejectsMalformedJSON(t *testing.T) {
	handler := UserHandler{Accounts: &stubAccounts{}, Cookies: testCookies()}

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader("{")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestLoginPropagatesServiceError(t *testing.T) {
	svc := &stubAccounts{err: apperrors.Unauthorized("Invalid user credentials")}
	handler := UserHandler{Accounts: svc, Cookies: testCookies()}

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("expected no cookies on failed login")
	}
}

func TestRefreshTokenPrefersCookie(t *testing.T) {
	svc := &stubAccounts{tokens: sampleTokens()}
	handler := UserHandler{Accounts: svc, Cookies: testCookies()}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", strings.NewReader(`{"refreshToken":"from-body"}`))
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "from-cookie"})
	rec := httptest.NewRecorder()
	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.refreshToken != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", svc.refreshToken)
	}
	if cookieByName(t, rec, "refreshToken").Value != "refresh-1" {
		t.Fatal("expected rotated refresh cookie")
	}
}

func TestRefreshTokenFallsBackToBody(t *testing.T) {
	svc := &stubAccounts{tokens: sampleTokens()}
	handler := UserHandler{Accounts: svc, Cookies: testCookies()}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", strings.NewReader(`{"refreshToken":"from-body"}`))
	rec := httptest.NewRecorder()
	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.refreshToken != "from-body" {
		t.Fatalf("expected body token, got %q", svc.refreshToken)
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	svc := &stubAccounts{}
	handler := UserHandler{Accounts: svc, Cookies: testCookies()}

	rec := httptest.NewRecorder()
	handler.Logout(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), "user-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.loggedOut != "user-1" {
		t.Fatalf("expected logout for user-1, got %q", svc.loggedOut)
	}
	for _, name := range []string{"accessToken", "refreshToken"} {
		cookie := cookieByName(t, rec, name)
		if cookie.Value != "" || cookie.MaxAge >= 0 {
			t.Fatalf("expected %s to be cleared: %+v", name, cookie)
		}
	}
}

func TestLogoutRequiresUser(t *testing.T) {
	handler := UserHandler{Accounts: &stubAccounts{}, Cookies: testCookies()}

	rec := httptest.NewRecorder()
	handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestRegisterReadsMultipartFields(t *testing.T) {
	svc := &stubAccounts{}
	handler := UserHandler{Accounts: svc, Cookies: testCookies()}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"fullname": "Alice Doe",
		"email":    "alice@example.com",
		"username": "Alice",
		"password": "secret",
	} {
		if err := form.WriteField(field, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	part, err := form.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := part.Write([]byte("png")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	in := svc.registerInput
	if in.FullName != "Alice Doe" || in.Username != "Alice" || in.Email != "alice@example.com" {
		t.Fatalf("unexpected register input: %+v", in)
	}
	if in.Avatar == nil || in.Avatar.Name != "me.png" {
		t.Fatalf("expected avatar upload, got %+v", in.Avatar)
	}
	if in.CoverImage != nil {
		t.Fatal("expected no cover image")
	}
}

func TestRegisterRejectsNonMultipart(t *testing.T) {
	handler := UserHandler{Accounts: &stubAccounts{}, Cookies: testCookies()}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(`{"username":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRegisterRejectsOversizedUpload(t *testing.T) {
	handler := UserHandler{Accounts: &stubAccounts{}, Cookies: testCookies(), MaxUploadBytes: 64}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("avatar", "big.png")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte("x"), 1024)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUpdateDetailsAcceptsEitherFullNameKey(t *testing.T) {
	for _, body := range []string{`{"fullname":"New Name"}`, `{"fullName":"New Name"}`} {
		svc := &stubAccounts{}
		handler := UserHandler{Accounts: svc, Cookies: testCookies()}

		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/update-details", strings.NewReader(body)), "user-1")
		rec := httptest.NewRecorder()
		handler.UpdateDetails(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", body, rec.Code)
		}
		if svc.details.FullName != "New Name" {
			t.Fatalf("%s: expected full name to be forwarded, got %+v", body, svc.details)
		}
	}
}
