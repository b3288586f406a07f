package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-patient-monitor/internal/application/alert"
	"github.com/go-patient-monitor/internal/application/auth"
	"github.com/go-patient-monitor/internal/application/device"
	"github.com/go-patient-monitor/internal/application/generator"
	"github.com/go-patient-monitor/internal/application/vitals"
	"github.com/go-patient-monitor/internal/config"
	"github.com/go-patient-monitor/internal/domain"
	jwtinfra "github.com/go-patient-monitor/internal/infrastructure/jwt"
	"github.com/go-patient-monitor/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	handler  http.Handler
	provider *jwtinfra.Provider
	alerts   *alert.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	p := newTestProvider(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	logger := discardLogger()
	store := alert.NewStore(memory.NewBlobStore(), "@alerts", logger)
	unread := alert.NewUnreadCounter(ctx, store, nil)
	t.Cleanup(unread.Close)
	gen := generator.New(logger)
	t.Cleanup(gen.Stop)

	deps := &Deps{
		Logger:    logger,
		Alerts:    store,
		Unread:    unread,
		Generator: gen,
		Devices:   device.NewService(memory.NewDeviceRepo(memory.MockDevices(time.Now())...), logger),
		Vitals:    vitals.NewService("Home"),
		Auth: auth.NewService(auth.Account{
			UserID: "u1", Email: "test@example.com", PasswordHash: string(hash), Role: domain.RoleCaregiver,
		}, p, logger),
		Verifier: p,
		Hub:      NewHub(p, logger),
	}
	cfg := &config.Config{AllowedOrigins: []string{"*"}, GeneratorInterval: time.Hour}
	return &testApp{handler: NewRouter(ctx, cfg, deps), provider: p, alerts: store}
}

func (a *testApp) do(t *testing.T, method, target, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	if role != "" {
		tok, err := a.provider.Sign("u1", "test@example.com", role)
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, r)
	return rr
}

func TestRouter_HealthAndMetricsArePublic(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/v1/health-check/ping", "", nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestRouter_LoginThenListAlerts(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodPost, "/v1/sessions/login", "", auth.LoginRequest{Email: "test@example.com", Password: "password"})
	require.Equal(t, http.StatusOK, rr.Code)
	var login struct {
		Bearer string `json:"Bearer"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&login))
	require.NotEmpty(t, login.Bearer)

	r := httptest.NewRequest(http.MethodGet, "/v1/alerts", nil)
	r.Header.Set("Authorization", "Bearer "+login.Bearer)
	rr = httptest.NewRecorder()
	app.handler.ServeHTTP(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestRouter_AlertsRequireAuth(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/v1/alerts", "", nil).Code)
}

func TestRouter_AlertLifecycle(t *testing.T) {
	app := newTestApp(t)
	role := domain.RoleCaregiver

	rr := app.do(t, http.MethodPost, "/v1/alerts", role, domain.NewAlert{DeviceID: "RADAR-001", Message: "Door opened", Type: domain.AlertDoorOpened})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created domain.Alert
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))

	rr = app.do(t, http.MethodGet, "/v1/alerts/unread-count", role, nil)
	assert.JSONEq(t, `{"count":1}`, rr.Body.String())

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/v1/alerts/"+created.ID+"/read", role, nil).Code)
	rr = app.do(t, http.MethodGet, "/v1/alerts/unread-count", role, nil)
	assert.JSONEq(t, `{"count":0}`, rr.Body.String())

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, "/v1/alerts/"+created.ID, role, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodPut, "/v1/alerts/"+created.ID+"/resolve", role, nil).Code)
}

func TestRouter_AdminOnlyRoutes(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodDelete, "/v1/alerts", domain.RoleCaregiver, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodPost, "/v1/demo/seed", domain.RoleCaregiver, nil).Code)

	rr := app.do(t, http.MethodPost, "/v1/demo/seed", domain.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	all, err := app.alerts.List(context.Background(), domain.AlertFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 7)

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, "/v1/alerts", domain.RoleAdmin, nil).Code)
	all, err = app.alerts.List(context.Background(), domain.AlertFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRouter_DevicesAndVitals(t *testing.T) {
	app := newTestApp(t)
	role := domain.RoleCaregiver

	rr := app.do(t, http.MethodGet, "/v1/devices/stats", role, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats domain.DeviceStats
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&stats))
	assert.Equal(t, 3, stats.Total)

	rr = app.do(t, http.MethodPut, "/v1/vitals/location", role, map[string]string{"location": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = app.do(t, http.MethodPut, "/v1/vitals/location", role, map[string]string{"location": "Garden"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_ReadingsNotMountedWithoutSource(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/v1/readings/current", domain.RoleCaregiver, nil).Code)
}
