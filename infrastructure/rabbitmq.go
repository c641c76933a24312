package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"staffable/domain"
)

const generationQueue = "generation_queue"

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	log     *logrus.Logger
}

func NewRabbitMQ(url string, log *logrus.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		generationQueue, // queue name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	// one unacknowledged generation per worker
	if err := ch.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	log.WithField("queue", q.Name).Info("connected to RabbitMQ")
	return &RabbitMQ{conn: conn, channel: ch, queue: q, log: log}, nil
}

func (r *RabbitMQ) PublishJob(ctx context.Context, job domain.GenerationJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.channel.PublishWithContext(
		ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// ConsumeJobs hands queued jobs to handler until ctx is cancelled. The
// returned channel is closed once the last delivery has been settled.
func (r *RabbitMQ) ConsumeJobs(ctx context.Context, handler func(context.Context, domain.GenerationJob) error) (<-chan struct{}, error) {
	msgs, err := r.channel.ConsumeWithContext(
		ctx,
		r.queue.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("register consumer: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.process(ctx, msgs, handler)
	}()
	return done, nil
}

// process settles each delivery: malformed messages are dropped, handler
// errors and deliveries that arrive after cancellation are requeued.
func (r *RabbitMQ) process(ctx context.Context, msgs <-chan amqp.Delivery, handler func(context.Context, domain.GenerationJob) error) {
	for d := range msgs {
		var job domain.GenerationJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			r.log.WithError(err).Warn("invalid generation job format")
			_ = d.Nack(false, false)
			continue
		}
		log := r.log.WithField("generation_id", job.GenerationID)

		if ctx.Err() != nil {
			if err := d.Nack(false, true); err != nil {
				log.WithError(err).Warn("requeue generation job")
			}
			continue
		}
		if err := handler(ctx, job); err != nil {
			log.WithError(err).Error("generation job failed, requeueing")
			if err := d.Nack(false, true); err != nil {
				log.WithError(err).Warn("requeue generation job")
			}
			continue
		}
		if err := d.Ack(false); err != nil {
			log.WithError(err).Warn("ack generation job")
		}
	}
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		r.log.WithError(err).Warn("close RabbitMQ channel")
	}
	return r.conn.Close()
}
