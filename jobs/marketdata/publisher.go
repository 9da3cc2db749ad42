// Package marketdata publishes depth snapshots to the market-data
// topic. The engine callback enqueues without blocking; when the
// queue is full the snapshot is dropped, since a newer one follows
// every mutation anyway.
package marketdata

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"matchbook/domain/orderbook"
	"matchbook/infra/kafka"
)

type Publisher struct {
	producer *kafka.Producer
	queue    chan orderbook.DepthSnapshot
	log      *zap.SugaredLogger
}

func New(producer *kafka.Producer, buffer int, log *zap.SugaredLogger) *Publisher {
	return &Publisher{
		producer: producer,
		queue:    make(chan orderbook.DepthSnapshot, buffer),
		log:      log,
	}
}

// Enqueue hands a snapshot to the publish loop. Wired as an engine
// book-update callback.
func (p *Publisher) Enqueue(d orderbook.DepthSnapshot) {
	select {
	case p.queue <- d:
	default:
	}
}

// Start launches the publish loop until ctx is done.
func (p *Publisher) Start(ctx context.Context) {
	p.log.Infow("market data publisher started")
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-p.queue:
				payload, err := json.Marshal(d)
				if err != nil {
					p.log.Warnw("depth marshal failed", "symbol", d.Symbol, "err", err)
					continue
				}
				if err := p.producer.Send(ctx, []byte(d.Symbol), payload); err != nil {
					p.log.Warnw("depth publish failed", "symbol", d.Symbol, "err", err)
				}
			}
		}
	}()
}
