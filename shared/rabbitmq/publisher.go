package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/alexcherry/audiocast/internal/domain"
)

// Config holds RabbitMQ connection and exchange configuration
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	VHost      string
	Exchange   string
	RoutingKey string
	Heartbeat  time.Duration
}

// Publisher mirrors job lifecycle events onto a durable topic exchange so
// delivery consumers can react without polling the jobs table.
type Publisher struct {
	config  *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// eventMessage is the wire shape of one published lifecycle event.
type eventMessage struct {
	JobID     string    `json:"job_id"`
	ItemID    *string   `json:"item_id,omitempty"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPublisher connects to RabbitMQ and declares the event exchange.
func NewPublisher(config *Config, logger *slog.Logger) (*Publisher, error) {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		config.User,
		config.Password,
		config.Host,
		config.Port,
		config.VHost,
	)

	conn, err := amqp.DialConfig(dsn, amqp.Config{
		Heartbeat: config.Heartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		config.Exchange, // name
		"topic",         // type
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info("RabbitMQ event publisher initialized",
		slog.String("exchange", config.Exchange),
		slog.String("routing_key", config.RoutingKey),
	)

	return &Publisher{
		config:  config,
		conn:    conn,
		channel: channel,
		logger:  logger,
	}, nil
}

// PublishEvent sends one lifecycle event as a persistent JSON message.
func (p *Publisher) PublishEvent(ctx context.Context, event domain.JobEvent) error {
	body, err := json.Marshal(eventMessage{
		JobID:     event.JobID,
		ItemID:    event.ItemID,
		Level:     event.Level,
		Message:   event.Message,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.config.Exchange,
		p.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Lifecycle event published",
		slog.String("job_id", event.JobID),
		slog.String("level", event.Level),
	)
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Error("Failed to close RabbitMQ channel",
				slog.String("error", err.Error()),
			)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("failed to close RabbitMQ connection: %w", err)
		}
	}
	return nil
}
