// Package broadcaster drains the trade outbox into Kafka. Entries are
// marked SENT before the publish attempt and deleted once the broker
// acknowledges, so a crash between the two replays the event rather
// than losing it (at-least-once).
package broadcaster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"matchbook/domain/orderbook"
	"matchbook/infra/outbox"
)

// Event is the wire envelope for one trade.
type Event struct {
	V     int             `json:"v"`
	Type  string          `json:"type"`
	Trade orderbook.Trade `json:"trade"`
}

type Broadcaster struct {
	box      *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.SugaredLogger
}

// New connects a synchronous producer requiring full-ISR acks.
func New(box *outbox.Outbox, brokers []string, topic string, log *zap.SugaredLogger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{
		box:      box,
		producer: producer,
		topic:    topic,
		interval: 250 * time.Millisecond,
		log:      log,
	}, nil
}

// Enqueue records a trade for delivery. Wired as an engine trade
// callback, so it must stay cheap and non-blocking.
func (b *Broadcaster) Enqueue(t orderbook.Trade) {
	payload, err := json.Marshal(Event{V: 1, Type: "trade", Trade: t})
	if err != nil {
		b.log.Warnw("trade event marshal failed", "trade_id", t.ID, "err", err)
		return
	}
	if _, err := b.box.Append(payload); err != nil {
		b.log.Warnw("outbox append failed", "trade_id", t.ID, "err", err)
	}
}

// Start launches the replay loop until ctx is done.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Infow("broadcaster started", "topic", b.topic)
	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.replayOnce()
			}
		}
	}()
}

func (b *Broadcaster) replayOnce() {
	err := b.box.ScanPending(func(rec *outbox.Record) error {
		if err := b.box.MarkSent(rec.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			// leave the record SENT; the next tick retries it
			b.log.Warnw("publish failed", "seq", rec.Seq, "err", err)
			return nil
		}

		return b.box.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.Warnw("outbox scan failed", "err", err)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
