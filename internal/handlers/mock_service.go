package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"climate_guard/internal/models"
	"climate_guard/internal/service"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastGenUsername    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, _ string) (int, error) {
	m.lastSignUpUsername = username
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, _ string) (string, error) {
	m.lastGenUsername = username
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockGuard struct {
	armErr       error
	disarmErr    error
	setLimitsErr error

	armCalls      []string
	disarmCalls   []string
	lastLimitsID  string
	lastOverrides service.OverrideParams
}

func (m *mockGuard) Arm(_ context.Context, deviceID string) error {
	m.armCalls = append(m.armCalls, deviceID)
	return m.armErr
}
func (m *mockGuard) Disarm(_ context.Context, deviceID string) error {
	m.disarmCalls = append(m.disarmCalls, deviceID)
	return m.disarmErr
}
func (m *mockGuard) SetLimits(_ context.Context, deviceID string, p service.OverrideParams) error {
	m.lastLimitsID = deviceID
	m.lastOverrides = p
	return m.setLimitsErr
}

type mockMonitoring struct {
	snap      models.GuardStatus
	statusErr error
	list      []models.GuardStatus
	listErr   error
}

func (m *mockMonitoring) Status(_ context.Context, _ string) (models.GuardStatus, error) {
	return m.snap, m.statusErr
}
func (m *mockMonitoring) List(_ context.Context) ([]models.GuardStatus, error) {
	return m.list, m.listErr
}

type mockEventLog struct {
	resp       []models.GuardEvent
	err        error
	lastFilter service.LogFilter
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.GuardEvent, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func timePtr(t time.Time) *time.Time { return &t }
