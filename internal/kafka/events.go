package kafka

import (
	"fmt"
	"time"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
)

// Topic constants for the application
const (
	// TopicJobEvents carries optimization job lifecycle events
	TopicJobEvents = "optimization-job-events"
)

// Job event types
const (
	JobEventCreated   = "job_created"
	JobEventProgress  = "job_progress"
	JobEventCompleted = "job_completed"
	JobEventFailed    = "job_failed"
)

// JobEvent is the payload published for every job lifecycle transition
type JobEvent struct {
	Type      string           `json:"type"`
	JobID     uint             `json:"job_id"`
	DatasetID uint             `json:"dataset_id"`
	BatchID   string           `json:"batch_id,omitempty"`
	SKU       string           `json:"sku"`
	ModelID   string           `json:"model_id"`
	Method    models.JobMethod `json:"method"`
	Status    models.JobStatus `json:"status"`
	Progress  int              `json:"progress"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Publisher owns the producer used for job lifecycle events. A nil
// Publisher is valid and publishes nothing, which keeps Kafka optional.
type Publisher struct {
	producer *Producer
	logger   *utils.Logger
}

// NewPublisher creates a job event publisher, or nil when Kafka is disabled
func NewPublisher(cfg *config.KafkaConfig, logger *utils.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	producer, err := NewProducer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create job event producer: %w", err)
	}

	return &Publisher{
		producer: producer,
		logger:   logger.Named("kafka_publisher"),
	}, nil
}

// PublishJobEvent sends a job lifecycle event. Publishing is fire-and-forget;
// a delivery failure is logged by the producer and never fails the job.
func (p *Publisher) PublishJobEvent(event *JobEvent) error {
	if p == nil {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	return p.producer.Produce(TopicJobEvents, &Message{
		Key:       fmt.Sprintf("%d", event.JobID),
		Value:     event,
		Timestamp: event.Timestamp,
	})
}

// Close shuts down the underlying producer
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.producer.Close()
}
