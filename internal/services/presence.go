package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/permissions"
	"github.com/framepoint/framepoint-backend/internal/platform/apierr"
	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/presence"
	"github.com/framepoint/framepoint-backend/internal/realtime/bus"
)

type PresenceService interface {
	Join(ctx context.Context, assetID uuid.UUID) ([]presence.Entry, error)
	Viewers(ctx context.Context, assetID uuid.UUID) ([]presence.Entry, error)
	Leave(ctx context.Context, assetID uuid.UUID) error
	Close(ctx context.Context) error
}

type presenceKey struct {
	assetID uuid.UUID
	userID  uuid.UUID
}

// presenceService holds one coordinator per (asset, user) pair. The
// coordinator owns heartbeating, sweeping and reconnects; this layer only
// maps authenticated requests onto it.
type presenceService struct {
	log *logger.Logger
	bus bus.Bus

	mu           sync.Mutex
	coordinators map[presenceKey]*presence.Coordinator
}

func NewPresenceService(log *logger.Logger, b bus.Bus) PresenceService {
	return &presenceService{
		log:          log.With("service", "PresenceService"),
		bus:          b,
		coordinators: make(map[presenceKey]*presence.Coordinator),
	}
}

func (s *presenceService) Join(ctx context.Context, assetID uuid.UUID) ([]presence.Entry, error) {
	rd, err := requirePermission(ctx, permissions.ActionPresenceJoin)
	if err != nil {
		return nil, err
	}
	key := presenceKey{assetID: assetID, userID: rd.UserID}

	s.mu.Lock()
	if _, ok := s.coordinators[key]; ok {
		s.mu.Unlock()
		return nil, apierr.Conflict("already_joined", fmt.Errorf("user %s is already present on asset %s", rd.UserID, assetID))
	}
	c := presence.NewCoordinator(s.log, s.bus, assetID, rd.UserID, rd.UserName)
	s.coordinators[key] = c
	s.mu.Unlock()

	if err := c.Join(ctx); err != nil {
		s.mu.Lock()
		delete(s.coordinators, key)
		s.mu.Unlock()
		return nil, fmt.Errorf("join presence channel: %w", err)
	}
	s.log.Info("presence joined", "asset_id", assetID, "user_id", rd.UserID)
	return c.Viewers(), nil
}

func (s *presenceService) Viewers(ctx context.Context, assetID uuid.UUID) ([]presence.Entry, error) {
	rd, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	c, ok := s.coordinators[presenceKey{assetID: assetID, userID: rd.UserID}]
	s.mu.Unlock()
	if !ok {
		return nil, apierr.NotFound("not_joined", fmt.Errorf("user %s has no presence session on asset %s", rd.UserID, assetID))
	}
	return c.Viewers(), nil
}

func (s *presenceService) Leave(ctx context.Context, assetID uuid.UUID) error {
	rd, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	key := presenceKey{assetID: assetID, userID: rd.UserID}
	s.mu.Lock()
	c, ok := s.coordinators[key]
	delete(s.coordinators, key)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := c.Leave(ctx); err != nil {
		return fmt.Errorf("leave presence channel: %w", err)
	}
	s.log.Info("presence left", "asset_id", assetID, "user_id", rd.UserID)
	return nil
}

// Close tears down every live coordinator, announcing each leave so peers
// do not have to wait out the staleness window during a shutdown.
func (s *presenceService) Close(ctx context.Context) error {
	s.mu.Lock()
	remaining := make([]*presence.Coordinator, 0, len(s.coordinators))
	for key, c := range s.coordinators {
		remaining = append(remaining, c)
		delete(s.coordinators, key)
	}
	s.mu.Unlock()

	var firstErr error
	for _, c := range remaining {
		if err := c.Leave(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
