// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/medreport/analyzer/internal/models"
)

// SessionHandler handles analyzer session operations
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleSelectFile(c echo.Context) error
	HandleGetPreview(c echo.Context) error
	HandleStartAnalysis(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	CreateSession() *models.AnalysisSession
	GetSession(id string) (*models.AnalysisSession, bool)
	TouchSession(id string) bool
	DeleteSession(id string) bool
	SelectUpload(id, name, mimeType string, size int64, content []byte) (*models.AnalysisSession, error)
	Preview(id string) (*models.Preview, error)
	StartAnalysis(ctx context.Context, id string) (*models.AnalysisSession, error)
	Count() int
}
