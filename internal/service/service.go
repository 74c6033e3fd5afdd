package service

import (
	"context"
	"time"

	"weather_station/internal/models"
	"weather_station/internal/repository"
)

// Authorization signs operators in and resolves bearer tokens.
type Authorization interface {
	SignUp(ctx context.Context, username, password string) (models.Operator, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (Principal, error)
}

// Monitoring exposes the read-only device view.
type Monitoring interface {
	GetState(ctx context.Context) (models.DeviceSnapshot, error)
	SavedNetworks(ctx context.Context) ([]models.SlotSummary, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.DeviceEvent, error)
}

// Portal accepts network credentials while the configuration portal is up.
type Portal interface {
	Active() bool
	SubmitCredentials(ctx context.Context, rec models.CredentialRecord) error
}

// Service aggregates what the HTTP layer needs.
type Service struct {
	Monitoring
	EventLog
	Portal
	Authorization
}

// NewService wires the repositories and the long-lived device endpoints
// into the HTTP-facing services.
func NewService(repos *repository.Repository, board *StateBoard, portal *PortalGateway, signingKey string, tokenTTL time.Duration) *Service {
	return &Service{
		Monitoring:    board,
		EventLog:      NewEventLogService(repos.EventRepo),
		Portal:        portal,
		Authorization: NewAuthService(repos.Operators, signingKey, tokenTTL),
	}
}
