// Package ingest owns the telemetry ingestion pipeline: it receives raw
// sensor messages from the MQTT transport, validates them and appends the
// accepted readings to the store. Any failure drops the message and keeps
// the subscription alive.
package ingest

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"garden-monitor/internal/observability/metrics"
	"garden-monitor/internal/storage"
	"garden-monitor/pkg/dedup"
	mqttpkg "garden-monitor/pkg/mqtt"
)

const defaultWriteTimeout = 5 * time.Second

// Service consumes one fixed sensor topic and writes validated readings to
// the store.
type Service struct {
	consumer     mqttpkg.IConsumer
	store        storage.SensorStore
	topic        string
	writeTimeout time.Duration
	deduper      *dedup.Deduper
}

// NewService wires the subscriber. writeTimeout bounds each store append so
// a stalled backend cannot stall message processing indefinitely.
func NewService(consumer mqttpkg.IConsumer, store storage.SensorStore, topic string, writeTimeout time.Duration) *Service {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	s := &Service{
		consumer:     consumer,
		store:        store,
		topic:        topic,
		writeTimeout: writeTimeout,
		deduper:      dedup.New(10*time.Minute, 20000),
	}
	consumer.SetHandler(s.handleMessage)
	return s
}

// Start runs the consume loop. It blocks until ctx is cancelled; the
// consumer unsubscribes and the connection is released on exit.
func (s *Service) Start(ctx context.Context) {
	s.consumer.ConsumeMessage(ctx)
}

// handleMessage processes one delivered message. It always returns nil:
// malformed payloads, validation failures and store errors are logged and
// the message discarded, since one bad message must never terminate the
// subscription.
func (s *Service) handleMessage(_ string, msg mqtt.Message) error {
	if msg.Topic() != s.topic {
		// Delivery for a topic this pipeline does not own; no side effects.
		return nil
	}

	// QoS1 redeliveries arrive with the DUP flag and the original message
	// id. Identical payloads alone are normal in steady state (quantized
	// sensors repeat values) and every one of them must be stored, so the
	// guard keys on the redelivery metadata, never on payload content.
	msgID := strconv.FormatUint(uint64(msg.MessageID()), 10)
	firstDelivery := s.deduper.ShouldProcess(msgID)
	if msg.Duplicate() && !firstDelivery {
		metrics.IncIngestDropped(metrics.DropReasonDuplicate)
		return nil
	}

	reading, err := ParsePayload(msg.Payload())
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			log.Printf("ingest: dropped message on %s: %v", msg.Topic(), verr)
		} else {
			log.Printf("ingest: dropped message on %s: %v", msg.Topic(), err)
		}
		metrics.IncIngestDropped(metrics.DropReasonValidation)
		metrics.ObserveIngest(metrics.ResultError, 0)
		return nil
	}

	// Detached from the consume context: an append already in flight is
	// allowed to complete during shutdown, bounded by writeTimeout.
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	start := time.Now()
	logID, err := s.store.Append(ctx, reading)
	if err != nil {
		log.Printf("ingest: store append failed for user %d: %v", reading.UserID, err)
		metrics.IncIngestDropped(metrics.DropReasonStore)
		metrics.ObserveIngest(metrics.ResultError, 0)
		return nil
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	log.Printf("ingest: stored reading %d for user %d (soil=%.1f%%)", logID, reading.UserID, reading.SoilMoisture)
	return nil
}
