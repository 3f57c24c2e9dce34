package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/terraincognita07/heartnote/internal/db"
	"github.com/terraincognita07/heartnote/internal/i18n"
	"gorm.io/gorm"
)

const (
	testSecretKey     = "heartnote-test-secret-key-0123456789abcdef"
	testPassword      = "StrongPass1"
	testLineChannelID = "1650000000"
	testLineSecret    = "line-channel-secret-for-tests"
)

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	handler *Handler
}

type signedUpUser struct {
	ID    uint
	Token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithOptions(t, nil)
}

func newTestEnvWithOptions(t *testing.T, configure func(*Options)) *testEnv {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "heartnote-api-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	manager, err := i18n.NewEmbeddedManager(i18n.LangEN)
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	options := Options{
		Database:  database,
		SecretKey: testSecretKey,
		Location:  time.UTC,
		I18n:      manager,
		Logger:    zerolog.Nop(),
	}
	if configure != nil {
		configure(&options)
	}

	handler, err := NewHandler(options)
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}
	return &testEnv{app: NewApp(handler), db: database, handler: handler}
}

func (env *testEnv) request(t *testing.T, method string, path string, body any, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		request.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return response
}

func (env *testEnv) expectStatus(t *testing.T, method string, path string, body any, token string, want int) *http.Response {
	t.Helper()

	response := env.request(t, method, path, body, token)
	if response.StatusCode != want {
		raw, _ := io.ReadAll(response.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, want, response.StatusCode, string(raw))
	}
	return response
}

func (env *testEnv) signup(t *testing.T, email string, displayName string, role string) signedUpUser {
	t.Helper()

	response := env.expectStatus(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":       email,
		"password":    testPassword,
		"displayName": displayName,
		"role":        role,
	}, "", fiber.StatusCreated)

	var session struct {
		User struct {
			ID uint `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decodeJSON(t, response, &session)
	if session.Token == "" || session.User.ID == 0 {
		t.Fatalf("signup returned incomplete session: %+v", session)
	}
	return signedUpUser{ID: session.User.ID, Token: session.Token}
}

func decodeJSON(t *testing.T, response *http.Response, target any) {
	t.Helper()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		t.Fatalf("decode response body %q: %v", string(raw), err)
	}
}

func readAPIError(t *testing.T, response *http.Response) errorResponse {
	t.Helper()

	var payload errorResponse
	decodeJSON(t, response, &payload)
	return payload
}

func responseCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func countRows(t *testing.T, database *gorm.DB, table string) int64 {
	t.Helper()

	var count int64
	if err := database.Table(table).Count(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}
