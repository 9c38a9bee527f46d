package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-registration/internal/di"
	"github.com/prohmpiriya/event-registration/internal/handler"
	"github.com/prohmpiriya/event-registration/pkg/audit"
	"github.com/prohmpiriya/event-registration/pkg/config"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope mirrors response.Response with a raw payload
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Limit  int   `json:"limit"`
		Offset int   `json:"offset"`
		Total  int64 `json:"total"`
	} `json:"meta"`
}

type session struct {
	Token     string
	AccountID string
}

type testAPI struct {
	t         *testing.T
	router    *gin.Engine
	container *di.Container
	sink      *audit.MemorySink
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "event-registration-test", Environment: "test"},
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
		JWT: config.JWTConfig{
			Secret:         "handler-test-secret",
			AccessTokenTTL: time.Hour,
			Issuer:         "test",
		},
		Registration: config.RegistrationConfig{
			Backend:          config.BackendMemory,
			OperationTimeout: time.Second,
		},
		Auth: config.AuthConfig{BcryptCost: 4},
		RateLimit: config.RateLimitConfig{
			Enabled:        true,
			LoginPerMinute: 600,
			LoginBurst:     100,
		},
		Audit: config.AuditConfig{
			Enabled:       true,
			BufferSize:    100,
			FlushInterval: 10 * time.Millisecond,
		},
	}
}

func newTestAPI(t *testing.T, mutate ...func(*config.Config)) *testAPI {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	sink := audit.NewMemorySink()
	container, err := di.NewContainer(context.Background(), &di.ContainerConfig{
		Config:    cfg,
		AuditSink: sink,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	require.NoError(t, container.AuthService.Bootstrap(context.Background(), adminEmail, adminPassword))

	return &testAPI{
		t:         t,
		router:    handler.NewRouter(container.Handlers, container.RouterConfig(cfg)),
		container: container,
		sink:      sink,
	}
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "192.0.2.10:4000"

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), w.Body.String())
	}
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, w, nil)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

type authData struct {
	AccessToken string `json:"access_token"`
	Account     struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"account"`
}

func (a *testAPI) register(email, role string) session {
	a.t.Helper()

	w := a.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":        email,
		"password":     "password123",
		"display_name": "Test User",
		"role":         role,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var data authData
	decode(a.t, w, &data)
	return session{Token: data.AccessToken, AccountID: data.Account.ID}
}

func (a *testAPI) login(email, password string) *httptest.ResponseRecorder {
	a.t.Helper()
	return a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
}

func (a *testAPI) admin() session {
	a.t.Helper()

	w := a.login(adminEmail, adminPassword)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var data authData
	decode(a.t, w, &data)
	return session{Token: data.AccessToken, AccountID: data.Account.ID}
}

type eventData struct {
	ID            string `json:"id"`
	OwnerID       string `json:"owner_id"`
	Name          string `json:"name"`
	Capacity      int    `json:"capacity"`
	AttendeeCount int    `json:"attendee_count"`
	Remaining     int    `json:"remaining"`
}

func (a *testAPI) createEvent(owner session, capacity int) eventData {
	a.t.Helper()

	w := a.do(http.MethodPost, "/api/v1/events", owner.Token, gin.H{
		"name":     "Go Meetup",
		"venue":    "Hall A",
		"capacity": capacity,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var event eventData
	decode(a.t, w, &event)
	return event
}
