// Package services holds the technician feature's domain services.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
	coreServices "github.com/resqnow/dispatch-core/core/services"
)

// presenceTTL is how long a heartbeat keeps a technician "online". The
// websocket heartbeat ticks every 15s, so one TTL tolerates a few missed
// beats before the flag drops.
const presenceTTL = 90 * time.Second

// PresenceService tracks which technicians currently have a live
// connection or a recent location/availability write, via TTL'd Redis
// keys. Presence is a UI hint layered over the persisted is_available
// flag; dispatch eligibility never depends on it.
type PresenceService interface {
	// Heartbeat refreshes the technician's presence key.
	Heartbeat(ctx context.Context, technicianID uuid.UUID) *coreErrors.AppError
	// IsOnline reports whether a presence key is currently live.
	IsOnline(ctx context.Context, technicianID uuid.UUID) (bool, *coreErrors.AppError)
}

type presenceServiceImpl struct {
	redis  *coreServices.RedisService
	logger logger.Logger
}

// NewPresenceService builds a PresenceService atop the shared RedisService.
func NewPresenceService(redis *coreServices.RedisService, logger logger.Logger) PresenceService {
	return &presenceServiceImpl{redis: redis, logger: logger}
}

func presenceKey(technicianID uuid.UUID) string {
	return "presence:technician:" + technicianID.String()
}

func (s *presenceServiceImpl) Heartbeat(ctx context.Context, technicianID uuid.UUID) *coreErrors.AppError {
	if s.redis.GetClient() == nil {
		return nil
	}
	return s.redis.Set(ctx, presenceKey(technicianID), "1", presenceTTL)
}

func (s *presenceServiceImpl) IsOnline(ctx context.Context, technicianID uuid.UUID) (bool, *coreErrors.AppError) {
	if s.redis.GetClient() == nil {
		return false, nil
	}
	return s.redis.Exists(ctx, presenceKey(technicianID))
}
