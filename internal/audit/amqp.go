package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cwrk-planet/liar-service/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSink публикует записи аудита в durable-очередь RabbitMQ.
type AMQPSink struct {
	conn  *amqp.Connection
	mu    sync.Mutex // amqp.Channel не потокобезопасен на публикацию
	ch    *amqp.Channel
	queue string
}

func DialAMQP(url, queue string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queue, err)
	}

	return &AMQPSink{conn: conn, ch: ch, queue: q.Name}, nil
}

func (s *AMQPSink) Write(ctx context.Context, e domain.AuditEntry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.PublishWithContext(ctx,
		"",
		s.queue,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    e.ID,
			Timestamp:    e.At,
			Type:         e.Action,
			Body:         body,
		})
}

func (s *AMQPSink) Close() error {
	_ = s.ch.Close()
	return s.conn.Close()
}
