package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"hotel-concierge/internal/model"
)

// ArchivePublisher sends transcript and escalation events to the archive queue.
type ArchivePublisher struct {
	conn      *amqp.Connection
	queueName string

	mu       sync.Mutex
	declared bool
}

func NewArchivePublisher(conn *amqp.Connection, queueName string) *ArchivePublisher {
	return &ArchivePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *ArchivePublisher) Publish(ctx context.Context, event model.ArchiveEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := p.declare(ch); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal archive event failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(event.Kind),
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish archive event failed: %w", err)
	}
	return nil
}

func (p *ArchivePublisher) declare(ch *amqp.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declared {
		return nil
	}
	if _, err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}
	p.declared = true
	return nil
}
