package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"hotel-concierge/internal/model"
	rabbitmqClient "hotel-concierge/internal/platform/rabbitmq"
)

var errUnknownEvent = errors.New("unknown archive event")

type ArchiveStore interface {
	CreateTranscriptEntry(ctx context.Context, entry *model.TranscriptEntry) error
	CreateEscalation(ctx context.Context, record *model.EscalationRecord) error
}

// ArchiveWorker drains the archive queue into the archive store.
type ArchiveWorker struct {
	conn      *amqp.Connection
	store     ArchiveStore
	queueName string
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewArchiveWorker(conn *amqp.Connection, store ArchiveStore, queueName string, log *zap.Logger) *ArchiveWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArchiveWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		log:       log.Named("archive_worker"),
	}
}

func (w *ArchiveWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmqClient.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("archive deliveries channel closed")
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					w.log.Error("archive event dropped", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("archive worker started", zap.String("queue", w.queueName))
	return nil
}

// Handle decodes one queue payload and writes it to the store.
func (w *ArchiveWorker) Handle(ctx context.Context, body []byte) error {
	var event model.ArchiveEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode archive event failed: %w", err)
	}

	switch {
	case event.Kind == model.ArchiveKindMessage && event.Message != nil:
		return w.store.CreateTranscriptEntry(ctx, event.Message)
	case event.Kind == model.ArchiveKindEscalation && event.Escalation != nil:
		return w.store.CreateEscalation(ctx, event.Escalation)
	default:
		return fmt.Errorf("%w: kind %q", errUnknownEvent, event.Kind)
	}
}

func (w *ArchiveWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
