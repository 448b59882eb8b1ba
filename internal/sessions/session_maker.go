package sessions

import (
	"log/slog"
	"time"

	"github.com/bugreporter/bugreporter-gateway/internal/models"
)

type SessionMaker interface {
	NewSession() (models.Session, error)
}

type SessionMakerImpl struct {
	idleSessionTTLSeconds int
	maxSessionTTLSeconds  int
	ids                   models.IDGenerator
}

func (sm *SessionMakerImpl) NewSession() (models.Session, error) {
	id, err := sm.ids.ID()
	if err != nil {
		return models.Session{}, err
	}
	session := models.Session{
		ID:             id,
		CreatedAt:      time.Now().UTC(),
		IdleTTLSeconds: models.SerializableInt(sm.idleSessionTTLSeconds),
		MaxTTLSeconds:  models.SerializableInt(sm.maxSessionTTLSeconds),
	}
	session.Touch()
	slog.Debug("NEW SESSION", "session", session)
	return session, nil
}

type SessionMakerOption func(*SessionMakerImpl)

func WithIdleSessionTTLSeconds(s int) SessionMakerOption {
	return func(sm *SessionMakerImpl) {
		sm.idleSessionTTLSeconds = s
	}
}

func WithMaxSessionTTLSeconds(s int) SessionMakerOption {
	return func(sm *SessionMakerImpl) {
		sm.maxSessionTTLSeconds = s
	}
}

func WithSessionIDGenerator(ids models.IDGenerator) SessionMakerOption {
	return func(sm *SessionMakerImpl) {
		sm.ids = ids
	}
}

func NewSessionMaker(options ...SessionMakerOption) SessionMaker {
	sm := SessionMakerImpl{ids: models.NewRandomGenerator(24)}
	for _, opt := range options {
		opt(&sm)
	}
	return &sm
}
