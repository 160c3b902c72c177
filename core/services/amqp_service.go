package services

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/resqnow/dispatch-core/core/config"
	"github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
)

// Queues downstream delivery workers (SMS, mobile push) consume from.
// Realtime websocket fan-out is Redis; these queues decouple the slower
// delivery rails from the request path.
const (
	QueueJobOffers         = "dispatch.job_offers"
	QueuePaymentsCompleted = "payments.completed"
)

// AmqpService publishes domain events to RabbitMQ. The connection and
// channel are opened lazily on first publish and reused; a failed publish
// drops the connection so the next attempt redials.
type AmqpService struct {
	logger logger.Logger
	cfg    *config.AppConfig

	mu         sync.Mutex
	connection *amqp.Connection
	channel    *amqp.Channel
	declared   map[string]bool
}

// NewAmqpService creates a new AmqpService instance.
func NewAmqpService(logger logger.Logger, cfg *config.AppConfig) *AmqpService {
	return &AmqpService{logger: logger, cfg: cfg, declared: map[string]bool{}}
}

// ensureChannel dials and opens a channel if none is live. Caller must
// hold s.mu.
func (s *AmqpService) ensureChannel() error {
	if s.channel != nil && !s.connection.IsClosed() {
		return nil
	}

	connection, err := amqp.Dial(s.cfg.AmqpConnection)
	if err != nil {
		return err
	}
	channel, err := connection.Channel()
	if err != nil {
		_ = connection.Close()
		return err
	}

	s.connection = connection
	s.channel = channel
	s.declared = map[string]bool{}
	return nil
}

// dropChannel closes the connection so the next publish redials. Caller
// must hold s.mu.
func (s *AmqpService) dropChannel() {
	if s.connection != nil {
		_ = s.connection.Close()
	}
	s.connection = nil
	s.channel = nil
}

// Publish sends payload to the named queue, declaring it on first use.
func (s *AmqpService) Publish(ctx context.Context, queue string, payload []byte) *errors.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureChannel(); err != nil {
		appErr := errors.NewAppError(entities.ErrService, err.Error(), map[string]interface{}{"queue": queue}, err)
		s.logger.LogError(ctx, "failed to connect to RabbitMQ", appErr)
		return appErr
	}

	if !s.declared[queue] {
		if _, err := s.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			s.dropChannel()
			appErr := errors.NewAppError(entities.ErrService, err.Error(), map[string]interface{}{"queue": queue}, err)
			s.logger.LogError(ctx, "failed to declare queue", appErr)
			return appErr
		}
		s.declared[queue] = true
	}

	err := s.channel.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
		})
	if err != nil {
		s.dropChannel()
		appErr := errors.NewAppError(entities.ErrService, err.Error(), map[string]interface{}{"queue": queue}, err)
		s.logger.LogError(ctx, "failed to publish message", appErr)
		return appErr
	}

	return nil
}

// ConsumeQueue consumes messages from the named queue; used by the
// downstream delivery workers, not by the request path.
func (s *AmqpService) ConsumeQueue(ctx context.Context, queue string) (<-chan amqp.Delivery, *errors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureChannel(); err != nil {
		appErr := errors.NewAppError(entities.ErrService, err.Error(), map[string]interface{}{"queue": queue}, err)
		s.logger.LogError(ctx, "failed to connect to RabbitMQ", appErr)
		return nil, appErr
	}

	if _, err := s.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		s.dropChannel()
		appErr := errors.NewAppError(entities.ErrService, err.Error(), map[string]interface{}{"queue": queue}, err)
		s.logger.LogError(ctx, "failed to declare queue for consume", appErr)
		return nil, appErr
	}

	msgs, err := s.channel.Consume(queue, "", true, false, false, false, nil)
	if err != nil {
		s.dropChannel()
		appErr := errors.NewAppError(entities.ErrService, err.Error(), map[string]interface{}{"queue": queue}, err)
		s.logger.LogError(ctx, "failed to start consuming queue", appErr)
		return nil, appErr
	}

	return msgs, nil
}

// Close shuts the connection down; registered as an fx OnStop hook.
func (s *AmqpService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropChannel()
}
