package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"projecthub/config"
	"projecthub/models"
)

const adminEmail = "admin@example.com"

type testEnv struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
}

type account struct {
	ID    string
	Token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	config.AppConfig = config.Config{
		Environment:   "test",
		DBDriver:      "sqlite",
		SQLitePath:    ":memory:",
		JWTSecret:     "test-secret",
		JWTTTL:        time.Hour,
		AdminEmail:    adminEmail,
		RateLimitAuth: 0,
	}

	db, err := config.OpenDB(config.AppConfig)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return &testEnv{t: t, app: NewApp(db), db: db}
}

func (e *testEnv) do(method, path, token string, body interface{}) (int, []byte) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, data
}

// call performs the request, requires the status and decodes the body into out.
func (e *testEnv) call(method, path, token string, body interface{}, status int, out interface{}) {
	e.t.Helper()

	code, data := e.do(method, path, token, body)
	require.Equal(e.t, status, code, string(data))
	if out != nil {
		require.NoError(e.t, json.Unmarshal(data, out), string(data))
	}
}

// register creates an account through the API and sets its role directly.
func (e *testEnv) register(name, email, role string) account {
	e.t.Helper()

	var resp struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	e.call("POST", "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "password123",
	}, fiber.StatusCreated, &resp)

	if role != "" {
		require.NoError(e.t, e.db.Model(&models.User{}).Where("id = ?", resp.ID).Update("role", role).Error)
	}
	return account{ID: resp.ID, Token: resp.Token}
}

func errorBody(t *testing.T, data []byte) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(data, &body), string(data))
	return body
}
