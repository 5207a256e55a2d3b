package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/observability"
)

// Delivery retry schedule for a single item.
const (
	deliverAttempts = 3
	deliverBackoff  = 200 * time.Millisecond
	deliverTimeout  = 5 * time.Second
)

// Item is one queued session signal.
type Item struct {
	WorkflowID string
	Signal     string
	Arg        any
	// Seed recreates the session if delivery finds it gone.
	Seed Seed
}

// Outbox is a bounded queue with a single drainer goroutine. Enqueue never
// blocks: when the queue is full the oldest item is dropped to make room,
// and the drop is counted. Losing a bookkeeping signal costs an accuracy
// blip in the durable message count; blocking a chat turn would cost the
// user.
type Outbox struct {
	ch      chan Item
	deliver func(ctx context.Context, it Item) error
	logger  *zap.Logger
	metrics *observability.Metrics

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	drained   chan struct{}
}

// NewOutbox creates an Outbox with the given capacity.
func NewOutbox(capacity int, deliver func(ctx context.Context, it Item) error, logger *zap.Logger, metrics *observability.Metrics) *Outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &Outbox{
		ch:      make(chan Item, capacity),
		deliver: deliver,
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// Start launches the drainer. The drainer stops once Close has been called
// and the queue is empty, or immediately when ctx is cancelled.
func (o *Outbox) Start(ctx context.Context) {
	o.startOnce.Do(func() {
		go o.drain(ctx)
	})
}

// Close stops accepting new items and waits for queued items to be
// delivered (or given up on).
func (o *Outbox) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
	})
	<-o.drained
}

// Enqueue adds an item, dropping the oldest queued item if the queue is
// full. Items arriving after Close are dropped outright.
func (o *Outbox) Enqueue(it Item) {
	select {
	case <-o.done:
		o.countDrop(it)
		return
	default:
	}

	for {
		select {
		case o.ch <- it:
			o.metrics.SessionOutboxDepth.Set(float64(len(o.ch)))
			return
		default:
		}
		// Full: evict the oldest and retry. The drainer may race us for
		// the eviction, which is fine — either way a slot opens.
		select {
		case old := <-o.ch:
			o.countDrop(old)
		default:
		}
	}
}

func (o *Outbox) drain(ctx context.Context) {
	defer close(o.drained)

	for {
		select {
		case it := <-o.ch:
			o.metrics.SessionOutboxDepth.Set(float64(len(o.ch)))
			o.deliverWithRetry(ctx, it)
		case <-ctx.Done():
			return
		case <-o.done:
			// Flush what is already queued, then stop.
			for {
				select {
				case it := <-o.ch:
					o.deliverWithRetry(ctx, it)
				default:
					o.metrics.SessionOutboxDepth.Set(0)
					return
				}
			}
		}
	}
}

func (o *Outbox) deliverWithRetry(ctx context.Context, it Item) {
	var err error
	for attempt := 1; attempt <= deliverAttempts; attempt++ {
		dctx, cancel := context.WithTimeout(ctx, deliverTimeout)
		err = o.deliver(dctx, it)
		cancel()
		if err == nil {
			o.metrics.SessionSignalsTotal.WithLabelValues(it.Signal, "ok").Inc()
			return
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(deliverBackoff * time.Duration(attempt))
	}

	o.metrics.SessionSignalsTotal.WithLabelValues(it.Signal, "error").Inc()
	o.logger.Warn("session signal delivery failed",
		zap.String("workflow_id", it.WorkflowID),
		zap.String("signal", it.Signal),
		zap.Error(err),
	)
}

func (o *Outbox) countDrop(it Item) {
	o.metrics.SessionOutboxDrops.Inc()
	o.metrics.SessionSignalsTotal.WithLabelValues(it.Signal, "dropped").Inc()
	o.logger.Warn("session signal dropped, outbox full",
		zap.String("workflow_id", it.WorkflowID),
		zap.String("signal", it.Signal),
	)
}
