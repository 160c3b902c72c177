// Package services implements the Real-time Notifier: a room-based
// pub/sub abstraction over Redis that pushes best-effort UI hints to
// users, technicians, and request watchers. Delivery is at-most-once;
// the core never relies on these pushes for correctness.
package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/core/services"
	"github.com/resqnow/dispatch-core/features/notifier/domain/entities"
)

// RoomSubscription is a live subscription to a notifier room. Callers
// read Messages() until the context is cancelled or Close is called.
type RoomSubscription interface {
	Messages() <-chan *entities.Message
	Close() error
}

// NotifierService is the pub/sub abstraction described by the Real-time
// Notifier: join rooms, push events to them.
type NotifierService interface {
	JoinUser(ctx context.Context, userID uuid.UUID) RoomSubscription
	JoinTechnician(ctx context.Context, technicianID uuid.UUID) RoomSubscription
	JoinRequest(ctx context.Context, requestID uuid.UUID) RoomSubscription
	JoinBroadcast(ctx context.Context) RoomSubscription

	// NotifyUser delivers to user_{id}; if requestID is non-nil it also
	// delivers to request_{id}, per the Notifier's requestId fan-out rule.
	NotifyUser(ctx context.Context, userID uuid.UUID, event entities.Event, payload interface{}, requestID *uuid.UUID) *errors.AppError
	NotifyTechnician(ctx context.Context, technicianID uuid.UUID, event entities.Event, payload interface{}) *errors.AppError
	NotifyRequest(ctx context.Context, requestID uuid.UUID, event entities.Event, payload interface{}) *errors.AppError
	Broadcast(ctx context.Context, event entities.Event, payload interface{}) *errors.AppError
}

type notifierServiceImpl struct {
	redis  *services.RedisService
	events *services.AmqpService
	logger logger.Logger
}

// NewNotifierService builds a NotifierService atop the shared RedisService,
// mirroring offer and payment events onto AMQP for the delivery workers.
func NewNotifierService(redis *services.RedisService, events *services.AmqpService, logger logger.Logger) NotifierService {
	return &notifierServiceImpl{redis: redis, events: events, logger: logger}
}

func (s *notifierServiceImpl) JoinUser(ctx context.Context, userID uuid.UUID) RoomSubscription {
	return s.join(ctx, entities.UserRoom(userID))
}

func (s *notifierServiceImpl) JoinTechnician(ctx context.Context, technicianID uuid.UUID) RoomSubscription {
	return s.join(ctx, entities.TechnicianRoom(technicianID))
}

func (s *notifierServiceImpl) JoinRequest(ctx context.Context, requestID uuid.UUID) RoomSubscription {
	return s.join(ctx, entities.RequestRoom(requestID))
}

func (s *notifierServiceImpl) JoinBroadcast(ctx context.Context) RoomSubscription {
	return s.join(ctx, entities.BroadcastRoom)
}

func (s *notifierServiceImpl) join(ctx context.Context, room string) RoomSubscription {
	pubsub := s.redis.SubscribeRoom(ctx, room)
	sub := &roomSubscription{pubsub: pubsub, messages: make(chan *entities.Message, 16)}

	go func() {
		defer close(sub.messages)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var msg entities.Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					s.logger.Error(ctx, "failed to decode room message", logger.Fields{"room": room, "error": err.Error()})
					continue
				}
				select {
				case sub.messages <- &msg:
				default:
					// Slow consumer: drop rather than block the pub/sub
					// reader, matching the at-most-once delivery contract.
				}
			}
		}
	}()

	return sub
}

type roomSubscription struct {
	pubsub   interface{ Close() error }
	messages chan *entities.Message
}

func (s *roomSubscription) Messages() <-chan *entities.Message { return s.messages }
func (s *roomSubscription) Close() error                       { return s.pubsub.Close() }

func (s *notifierServiceImpl) publish(ctx context.Context, room string, event entities.Event, payload interface{}) *errors.AppError {
	return s.redis.PublishRoom(ctx, room, entities.Message{Event: event, Payload: payload})
}

// mirrorToQueue enqueues offer and payment events for the SMS/push
// delivery workers. Queue failures are logged and swallowed: the queues
// ride along with the realtime push, they never gate it.
func (s *notifierServiceImpl) mirrorToQueue(ctx context.Context, event entities.Event, payload interface{}) {
	var queue string
	switch event {
	case entities.EventJobOffer:
		queue = services.QueueJobOffers
	case entities.EventPaymentCompleted:
		queue = services.QueuePaymentsCompleted
	default:
		return
	}

	body, err := json.Marshal(entities.Message{Event: event, Payload: payload})
	if err != nil {
		s.logger.Error(ctx, "failed to encode event for queue", logger.Fields{"event": string(event), "error": err.Error()})
		return
	}
	if appErr := s.events.Publish(ctx, queue, body); appErr != nil {
		s.logger.Error(ctx, "failed to enqueue event", logger.Fields{"event": string(event), "queue": queue, "error": appErr.Error()})
	}
}

func (s *notifierServiceImpl) NotifyUser(ctx context.Context, userID uuid.UUID, event entities.Event, payload interface{}, requestID *uuid.UUID) *errors.AppError {
	s.mirrorToQueue(ctx, event, payload)
	if appErr := s.publish(ctx, entities.UserRoom(userID), event, payload); appErr != nil {
		return appErr
	}
	if requestID != nil {
		return s.publish(ctx, entities.RequestRoom(*requestID), event, payload)
	}
	return nil
}

func (s *notifierServiceImpl) NotifyTechnician(ctx context.Context, technicianID uuid.UUID, event entities.Event, payload interface{}) *errors.AppError {
	s.mirrorToQueue(ctx, event, payload)
	return s.publish(ctx, entities.TechnicianRoom(technicianID), event, payload)
}

func (s *notifierServiceImpl) NotifyRequest(ctx context.Context, requestID uuid.UUID, event entities.Event, payload interface{}) *errors.AppError {
	return s.publish(ctx, entities.RequestRoom(requestID), event, payload)
}

func (s *notifierServiceImpl) Broadcast(ctx context.Context, event entities.Event, payload interface{}) *errors.AppError {
	return s.publish(ctx, entities.BroadcastRoom, event, payload)
}
