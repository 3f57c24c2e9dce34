package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/heartnote/internal/line"
)

type meResponse struct {
	UserID             uint   `json:"userId"`
	Role               string `json:"role"`
	DisplayName        string `json:"displayName"`
	Source             string `json:"source"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

func newLineTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithOptions(t, func(options *Options) {
		options.LineClient = line.NewClient(line.Config{
			ChannelID:     testLineChannelID,
			ChannelSecret: testLineSecret,
		})
	})
}

func mintLineIDToken(t *testing.T, subject string, name string) string {
	t.Helper()

	claims := line.IDTokenClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    line.IDTokenIssuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{testLineChannelID},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testLineSecret))
	if err != nil {
		t.Fatalf("sign line id token: %v", err)
	}
	return raw
}

func (env *testEnv) me(t *testing.T, bearer string, lineToken string, want int) meResponse {
	t.Helper()

	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if bearer != "" {
		request.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	if lineToken != "" {
		request.Header.Set(lineIDTokenHeader, lineToken)
	}
	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("GET /api/auth/me failed: %v", err)
	}
	if response.StatusCode != want {
		t.Fatalf("GET /api/auth/me: expected status %d, got %d", want, response.StatusCode)
	}

	var payload meResponse
	if want == fiber.StatusOK {
		decodeJSON(t, response, &payload)
	}
	return payload
}

func TestLineLoginCreatesUserAndLineTokenAuthenticates(t *testing.T) {
	env := newLineTestEnv(t)
	idToken := mintLineIDToken(t, "U-line-patient", "山田 太郎")

	env.expectStatus(t, http.MethodPost, "/api/auth/line-login", map[string]string{"idToken": idToken}, "", fiber.StatusCreated)
	env.expectStatus(t, http.MethodPost, "/api/auth/line-login", map[string]string{"idToken": idToken}, "", fiber.StatusOK)

	me := env.me(t, "", idToken, fiber.StatusOK)
	if me.Source != "line" || me.DisplayName != "山田 太郎" || me.Role != "patient" {
		t.Fatalf("unexpected LINE identity: %+v", me)
	}
}

func TestLineLoginRejectsForgedToken(t *testing.T) {
	env := newLineTestEnv(t)

	response := env.expectStatus(t, http.MethodPost, "/api/auth/line-login", map[string]string{"idToken": "not-a-token"}, "", fiber.StatusUnauthorized)
	if apiErr := readAPIError(t, response); apiErr.Code != "line_token_invalid" {
		t.Fatalf("expected line_token_invalid, got %+v", apiErr)
	}
}

func TestLineLoginWithoutLineChannelIsRejected(t *testing.T) {
	env := newTestEnv(t)
	idToken := mintLineIDToken(t, "U-line-patient", "山田 太郎")

	response := env.expectStatus(t, http.MethodPost, "/api/auth/line-login", map[string]string{"idToken": idToken}, "", fiber.StatusUnauthorized)
	if apiErr := readAPIError(t, response); apiErr.Code != "line_token_invalid" {
		t.Fatalf("expected line_token_invalid, got %+v", apiErr)
	}
	env.me(t, "", idToken, fiber.StatusUnauthorized)
}

func TestSessionTokenWinsOverLineIdentity(t *testing.T) {
	env := newLineTestEnv(t)
	sessionUser := env.signup(t, "session@example.com", "Session User", "medical")
	lineToken := mintLineIDToken(t, "U-line-other", "LINE User")
	env.expectStatus(t, http.MethodPost, "/api/auth/line-login", map[string]string{"idToken": lineToken}, "", fiber.StatusCreated)

	both := env.me(t, sessionUser.Token, lineToken, fiber.StatusOK)
	if both.UserID != sessionUser.ID || both.Source != "session" {
		t.Fatalf("expected session identity to win, got %+v", both)
	}

	fallback := env.me(t, "garbage-token", lineToken, fiber.StatusOK)
	if fallback.UserID == sessionUser.ID || fallback.Source != "line" {
		t.Fatalf("expected fallback to LINE identity, got %+v", fallback)
	}

	env.me(t, "", "", fiber.StatusUnauthorized)
	env.me(t, "", mintLineIDToken(t, "U-never-logged-in", "Nobody"), fiber.StatusUnauthorized)
}

func TestUnauthenticatedResponseIsLocalized(t *testing.T) {
	env := newTestEnv(t)

	response := env.expectStatus(t, http.MethodGet, "/api/health-records", nil, "", fiber.StatusUnauthorized)
	apiErr := readAPIError(t, response)
	if apiErr.Code != "unauthenticated" || apiErr.Error != "Please sign in." {
		t.Fatalf("unexpected english error: %+v", apiErr)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/health-records", nil)
	request.Header.Set(fiber.HeaderAcceptLanguage, "ja-JP,ja;q=0.9")
	localized, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if apiErr := readAPIError(t, localized); apiErr.Error != "ログインが必要です。" {
		t.Fatalf("expected japanese message, got %+v", apiErr)
	}
}

func TestLoginCookieAuthenticatesAndLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "patient@example.com", "Patient", "patient")

	response := env.expectStatus(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    " PATIENT@example.com ",
		"password": testPassword,
	}, "", fiber.StatusOK)
	cookie := responseCookie(response.Cookies(), authCookieName)
	if cookie == nil || !strings.HasPrefix(cookie.Value, secureCookieVersion+".") || !cookie.HttpOnly {
		t.Fatalf("expected sealed http-only auth cookie, got %+v", cookie)
	}
	var session sessionResponse
	decodeJSON(t, response, &session)

	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	request.AddCookie(&http.Cookie{Name: authCookieName, Value: cookie.Value})
	cookieResponse, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("cookie request failed: %v", err)
	}
	if cookieResponse.StatusCode != fiber.StatusOK {
		t.Fatalf("expected cookie session to authenticate, got %d", cookieResponse.StatusCode)
	}

	env.expectStatus(t, http.MethodPost, "/api/auth/logout", nil, session.Token, fiber.StatusOK)
	env.me(t, session.Token, "", fiber.StatusUnauthorized)
}

func TestLoginLimiterBlocksAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "patient@example.com", "Patient", "patient")

	for attempt := 0; attempt < loginAttemptLimit; attempt++ {
		response := env.expectStatus(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "patient@example.com",
			"password": "WrongPass1",
		}, "", fiber.StatusUnauthorized)
		if apiErr := readAPIError(t, response); apiErr.Code != "invalid_credentials" {
			t.Fatalf("attempt %d: expected invalid_credentials, got %+v", attempt, apiErr)
		}
	}

	response := env.expectStatus(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "patient@example.com",
		"password": testPassword,
	}, "", fiber.StatusTooManyRequests)
	if apiErr := readAPIError(t, response); apiErr.Code != "too_many_attempts" {
		t.Fatalf("expected too_many_attempts, got %+v", apiErr)
	}
}

func TestSignupRejectsDuplicateEmailAndWeakPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "patient@example.com", "Patient", "patient")

	response := env.expectStatus(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":       "Patient@Example.com",
		"password":    testPassword,
		"displayName": "Again",
	}, "", fiber.StatusConflict)
	if apiErr := readAPIError(t, response); apiErr.Code != "email_taken" {
		t.Fatalf("expected email_taken, got %+v", apiErr)
	}

	response = env.expectStatus(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":       "weak@example.com",
		"password":    "weakpass",
		"displayName": "Weak",
	}, "", fiber.StatusBadRequest)
	if apiErr := readAPIError(t, response); apiErr.Code != "weak_password" {
		t.Fatalf("expected weak_password, got %+v", apiErr)
	}

	response = env.expectStatus(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":       "role@example.com",
		"password":    testPassword,
		"displayName": "Role",
		"role":        "admin",
	}, "", fiber.StatusBadRequest)
	if apiErr := readAPIError(t, response); apiErr.Code != "invalid_role" {
		t.Fatalf("expected invalid_role, got %+v", apiErr)
	}

	env.expectStatus(t, http.MethodPost, "/api/auth/signup", nil, "", fiber.StatusBadRequest)
}

func TestTemporaryPasswordForcesChangeBeforeOtherRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "patient@example.com", "Patient", "patient")

	temporary, err := env.handler.authService.IssueTemporaryPassword("patient@example.com")
	if err != nil {
		t.Fatalf("issue temporary password: %v", err)
	}

	response := env.expectStatus(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "patient@example.com",
		"password": temporary,
	}, "", fiber.StatusOK)
	var session sessionResponse
	decodeJSON(t, response, &session)
	if !session.MustChangePassword {
		t.Fatal("expected mustChangePassword after temporary password")
	}

	blocked := env.expectStatus(t, http.MethodGet, "/api/health-records", nil, session.Token, fiber.StatusForbidden)
	if apiErr := readAPIError(t, blocked); apiErr.Code != "password_change_required" {
		t.Fatalf("expected password_change_required, got %+v", apiErr)
	}

	env.expectStatus(t, http.MethodPost, "/api/auth/change-password", map[string]string{
		"currentPassword": temporary,
		"newPassword":     "NewStrong2",
	}, session.Token, fiber.StatusOK)
	env.expectStatus(t, http.MethodGet, "/api/health-records", nil, session.Token, fiber.StatusOK)
}

func TestUnknownRouteReturnsJSONNotFound(t *testing.T) {
	env := newTestEnv(t)

	response := env.expectStatus(t, http.MethodGet, "/api/does-not-exist", nil, "", fiber.StatusNotFound)
	if apiErr := readAPIError(t, response); apiErr.Code != "route_not_found" {
		t.Fatalf("expected route_not_found, got %+v", apiErr)
	}
}
