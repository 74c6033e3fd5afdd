package handlers

import (
	"context"
	"net/http"
	"time"

	"weather_station/internal/models"
	"weather_station/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpOp      models.Operator
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseRole     models.Role
	parseErr      error

	lastSignUpUsername string
	lastGenUsername    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (models.Operator, error) {
	m.lastSignUpUsername = username
	return m.signUpOp, m.signUpErr
}

func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	return m.genTokenToken, m.genTokenErr
}

// ParseToken resolves every token to the configured operator; an unset
// role means a viewer.
func (m *mockAuth) ParseToken(token string) (service.Principal, error) {
	m.lastParseToken = token
	if m.parseErr != nil {
		return service.Principal{}, m.parseErr
	}
	role := m.parseRole
	if role == "" {
		role = models.RoleViewer
	}
	return service.Principal{OperatorID: m.parseID, Role: role}, nil
}

type mockMonitoring struct {
	state    models.DeviceSnapshot
	slots    []models.SlotSummary
	err      error
	slotsErr error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.DeviceSnapshot, error) {
	return m.state, m.err
}

func (m *mockMonitoring) SavedNetworks(ctx context.Context) ([]models.SlotSummary, error) {
	return m.slots, m.slotsErr
}

type mockEventLog struct {
	resp     []models.DeviceEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.DeviceEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockPortal struct {
	active    bool
	submitErr error
	calls     int
	last      models.CredentialRecord
}

func (m *mockPortal) Active() bool { return m.active }

func (m *mockPortal) SubmitCredentials(ctx context.Context, rec models.CredentialRecord) error {
	m.calls++
	m.last = rec
	return m.submitErr
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
