package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/pkg/breaker"
)

type feedOp int

const (
	feedSetQuantity feedOp = iota
	feedDeleteKey
	feedResetNamespace
	feedSetTotalPrice
)

func (o feedOp) String() string {
	switch o {
	case feedSetQuantity:
		return "set_quantity"
	case feedDeleteKey:
		return "delete_key"
	case feedResetNamespace:
		return "reset_namespace"
	case feedSetTotalPrice:
		return "set_total_price"
	default:
		return fmt.Sprintf("feed_op(%d)", int(o))
	}
}

// feedWrite is one mirrored write to the trolley feed.
type feedWrite struct {
	op       feedOp
	key      string
	quantity int
	total    float64
}

func (w feedWrite) apply(ctx context.Context, m FeedMirror) error {
	switch w.op {
	case feedSetQuantity:
		return m.SetQuantity(ctx, w.key, w.quantity)
	case feedDeleteKey:
		return m.DeleteKey(ctx, w.key)
	case feedResetNamespace:
		return m.ResetNamespace(ctx)
	case feedSetTotalPrice:
		return m.SetTotalPrice(ctx, w.total)
	default:
		return fmt.Errorf("unknown feed op %d", int(w.op))
	}
}

// sinkWorker carries the lifecycle shared by both sinks. ctx is canceled when
// the drain deadline passes so in-flight writes give up.
type sinkWorker struct {
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	timeout time.Duration
	logger  *slog.Logger
}

func newSinkWorker(timeout time.Duration, logger *slog.Logger) sinkWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return sinkWorker{
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		timeout: timeout,
		logger:  logger,
	}
}

// feedSink sends feed writes in order through a circuit breaker. When its
// queue is full new writes are dropped.
type feedSink struct {
	sinkWorker
	mirror  FeedMirror
	breaker *gobreaker.CircuitBreaker[struct{}]
	queue   chan feedWrite
}

func newFeedSink(mirror FeedMirror, opts Options, logger *slog.Logger) *feedSink {
	return &feedSink{
		sinkWorker: newSinkWorker(opts.WriteTimeout, logger),
		mirror:     mirror,
		breaker:    breaker.New[struct{}](opts.Breaker, logger),
		queue:      make(chan feedWrite, opts.FeedQueueSize),
	}
}

func (s *feedSink) enqueue(w feedWrite) {
	select {
	case s.queue <- w:
	default:
		mirrorDroppedTotal.WithLabelValues(sinkFeed).Inc()
		s.logger.Warn("feed mirror queue full, dropping write",
			slog.String("op", w.op.String()),
			slog.String("key", w.key),
		)
	}
}

func (s *feedSink) closeQueue() { close(s.queue) }

func (s *feedSink) run() {
	defer close(s.done)
	for w := range s.queue {
		if s.ctx.Err() != nil {
			mirrorDroppedTotal.WithLabelValues(sinkFeed).Inc()
			continue
		}
		s.write(w)
	}
}

func (s *feedSink) write(w feedWrite) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "feed."+w.op.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("feed.key", w.key)),
	)
	defer span.End()

	start := time.Now()
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, w.apply(ctx, s.mirror)
	})
	mirrorWriteDuration.WithLabelValues(sinkFeed).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		mirrorWritesTotal.WithLabelValues(sinkFeed, resultOK).Inc()
	case breaker.IsRejection(err):
		mirrorWritesTotal.WithLabelValues(sinkFeed, resultRejected).Inc()
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("feed mirror write skipped, breaker open",
			slog.String("op", w.op.String()),
			slog.String("key", w.key),
		)
	default:
		mirrorWritesTotal.WithLabelValues(sinkFeed, resultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("feed mirror write failed",
			slog.String("op", w.op.String()),
			slog.String("key", w.key),
			slog.String("error", err.Error()),
		)
	}
}

// storeSink persists the latest state. A state still waiting when a newer one
// arrives is superseded, since every save carries the whole cart.
type storeSink struct {
	sinkWorker
	store   StateStore
	pending chan domain.CartState
}

func newStoreSink(store StateStore, opts Options, logger *slog.Logger) *storeSink {
	return &storeSink{
		sinkWorker: newSinkWorker(opts.WriteTimeout, logger),
		store:      store,
		pending:    make(chan domain.CartState, 1),
	}
}

// enqueue must only be called from the engine loop.
func (s *storeSink) enqueue(state domain.CartState) {
	for {
		select {
		case s.pending <- state:
			return
		default:
		}
		select {
		case <-s.pending:
			mirrorDroppedTotal.WithLabelValues(sinkStore).Inc()
		default:
		}
	}
}

func (s *storeSink) closeQueue() { close(s.pending) }

func (s *storeSink) run() {
	defer close(s.done)
	for state := range s.pending {
		if s.ctx.Err() != nil {
			mirrorDroppedTotal.WithLabelValues(sinkStore).Inc()
			continue
		}
		s.write(state)
	}
}

func (s *storeSink) write(state domain.CartState) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "store.save",
		trace.WithAttributes(attribute.Int("cart.total_items", state.TotalItems)),
	)
	defer span.End()

	start := time.Now()
	err := s.store.Save(ctx, state)
	mirrorWriteDuration.WithLabelValues(sinkStore).Observe(time.Since(start).Seconds())

	if err != nil {
		mirrorWritesTotal.WithLabelValues(sinkStore, resultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("failed to persist cart",
			slog.Int("total_items", state.TotalItems),
			slog.String("error", err.Error()),
		)
		return
	}
	mirrorWritesTotal.WithLabelValues(sinkStore, resultOK).Inc()
}
