// Package publisher ships operations-grade audit traces to Kafka.
//
// Compliance entries go through the transactional store; this path is the
// documented weaker mode for request traces, where losing a record under
// broker pressure is acceptable.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"passtrack/pkg/platform/audit"
	"passtrack/pkg/platform/circuit"
)

const (
	// brokerFailureThreshold is how many consecutive delivery failures open
	// the breaker and stop produce attempts.
	brokerFailureThreshold = 10
	// probeInterval lets one trace through per this many drops while the
	// breaker is open, so a recovered broker closes it again.
	probeInterval = 100
)

// Kafka publishes audit entries fire-and-forget. Publish never returns an
// error to the caller; delivery failures are logged and dropped. A circuit
// breaker sheds produce attempts entirely while the broker is down so a
// Kafka outage cannot pile up buffered records.
type Kafka struct {
	client  *kgo.Client
	topic   string
	breaker *circuit.Breaker
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewKafka connects to the brokers and ensures the trace topic exists.
// Topic creation is idempotent; an already-exists response is not an error.
func NewKafka(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("ensure topic %q: %w", topic, res.Err)
		}
	}

	return &Kafka{
		client:  client,
		topic:   topic,
		breaker: circuit.New("audit-traces", circuit.WithFailureThreshold(brokerFailureThreshold)),
		logger:  logger,
	}, nil
}

// Publish serializes the entry and hands it to the producer. The callback
// runs on the client's internal goroutine; the HTTP request that produced
// the trace is never blocked on broker acknowledgement.
func (k *Kafka) Publish(ctx context.Context, entry *audit.Entry) {
	// While the breaker is open most traces are dropped on the floor, but
	// one in every probeInterval still goes out so a recovered broker can
	// close the circuit again.
	if k.breaker.IsOpen() && k.dropped.Add(1)%probeInterval != 0 {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		k.logger.Error("audit trace marshal failed",
			slog.String("action", string(entry.Action)),
			slog.String("error", err.Error()))
		return
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(entry.ActorID.String()),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			if _, change := k.breaker.RecordFailure(); change.Opened {
				k.logger.Warn("audit trace broker unhealthy, shedding traces",
					slog.String("error", err.Error()))
			}
			k.logger.Warn("audit trace dropped",
				slog.String("action", string(entry.Action)),
				slog.String("error", err.Error()))
			return
		}
		if _, change := k.breaker.RecordSuccess(); change.Closed {
			k.logger.Info("audit trace broker recovered",
				slog.Int64("traces_shed", k.dropped.Swap(0)))
		}
	})
}

// Close flushes buffered records and releases the client.
func (k *Kafka) Close(ctx context.Context) error {
	if err := k.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	k.client.Close()
	return nil
}
