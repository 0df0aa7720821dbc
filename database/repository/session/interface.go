package sessionRepo

import (
	"context"
	"errors"

	"mealdesk/models"
)

// ErrNoSession is returned by Load when nothing was persisted.
var ErrNoSession = errors.New("no persisted session")

// SessionRepository persists the session slice between process runs.
type SessionRepository interface {
	// Load returns the persisted session, or ErrNoSession.
	Load(ctx context.Context) (*models.PersistedSession, error)
	// Save replaces the persisted session.
	Save(ctx context.Context, session models.PersistedSession) error
	// Delete removes the persisted session.
	Delete(ctx context.Context) error
}
