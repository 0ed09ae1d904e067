package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/aq2208/settlement-api/internal/adapter/repo"
)

// OutboxStore is what the poller needs from the outbox repository.
type OutboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]*repo.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, delay time.Duration) error
}

// OutboxPoller drains staged settled-order events to rabbit. Publishing after
// the ledger commit (instead of inside it) means a broker outage delays the
// event but can never roll back a settlement.
type OutboxPoller struct {
	store      OutboxStore
	producer   *RabbitProducer
	log        *slog.Logger
	tick       time.Duration
	batchSize  int
	retryDelay time.Duration
}

func NewOutboxPoller(store OutboxStore, producer *RabbitProducer, log *slog.Logger, tick time.Duration, batchSize int) *OutboxPoller {
	if tick <= 0 {
		tick = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxPoller{
		store:      store,
		producer:   producer,
		log:        log,
		tick:       tick,
		batchSize:  batchSize,
		retryDelay: 30 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) drain(ctx context.Context) {
	events, err := p.store.FetchPending(ctx, p.batchSize)
	if err != nil {
		p.log.Error("fetch outbox events", "err", err)
		return
	}

	for _, ev := range events {
		if err := p.producer.PublishSettled(ctx, ev.Payload); err != nil {
			p.log.Error("publish outbox event", "id", ev.ID, "channel", ev.Channel, "err", err)
			if err := p.store.Reschedule(ctx, ev.ID, p.retryDelay); err != nil {
				p.log.Error("reschedule outbox event", "id", ev.ID, "err", err)
			}
			continue
		}
		if err := p.store.MarkProcessed(ctx, ev.ID); err != nil {
			// The event may go out twice on the next tick; consumers are
			// expected to dedupe on event id.
			p.log.Error("mark outbox event processed", "id", ev.ID, "err", err)
		}
	}
}
