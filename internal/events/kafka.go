package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageWriter is the slice of kafka.Writer the producer needs.
// Narrowed to an interface so tests can capture messages without a broker.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type queuedEvent struct {
	eventType string
	key       string
	payload   any
}

// KafkaProducer publishes occupancy events to a Kafka topic through a
// buffered channel drained by a small worker pool, so the allocation
// path never blocks on the broker.
type KafkaProducer struct {
	writer      messageWriter
	topic       string
	queue       chan queuedEvent
	workerCount int
	shutdown    chan struct{}
	wg          sync.WaitGroup
	log         *logrus.Logger
}

// NewKafkaProducer connects a producer to the given brokers and starts
// its workers.
func NewKafkaProducer(brokers []string, topic string, workerCount int, log *logrus.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	if workerCount <= 0 {
		workerCount = 2
	}

	p := &KafkaProducer{
		writer:      writer,
		topic:       topic,
		queue:       make(chan queuedEvent, 1000),
		workerCount: workerCount,
		shutdown:    make(chan struct{}),
		log:         log,
	}
	p.startWorkers()
	return p
}

func (p *KafkaProducer) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *KafkaProducer) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case ev := <-p.queue:
			if err := p.send(ev); err != nil {
				p.log.WithError(err).WithField("worker", id).Warn("failed to publish occupancy event")
			}
		case <-p.shutdown:
			return
		}
	}
}

func (p *KafkaProducer) enqueue(ev queuedEvent) error {
	select {
	case p.queue <- ev:
		return nil
	default:
		return fmt.Errorf("event queue full, %s event for key %s dropped", ev.eventType, ev.key)
	}
}

func (p *KafkaProducer) send(ev queuedEvent) error {
	value, err := json.Marshal(ev.payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.eventType, err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(ev.key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.eventType)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", ev.eventType, err)
	}
	return nil
}

func (p *KafkaProducer) PublishAssigned(_ context.Context, ev BedAssigned) error {
	return p.enqueue(queuedEvent{
		eventType: "bed_assigned",
		key:       strconv.FormatInt(ev.TenantID, 10),
		payload:   ev,
	})
}

func (p *KafkaProducer) PublishVacated(_ context.Context, ev BedVacated) error {
	return p.enqueue(queuedEvent{
		eventType: "bed_vacated",
		key:       strconv.FormatInt(ev.TenantID, 10),
		payload:   ev,
	})
}

// Close stops the workers and closes the underlying writer.
func (p *KafkaProducer) Close() error {
	close(p.shutdown)
	p.wg.Wait()
	return p.writer.Close()
}
