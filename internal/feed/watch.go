package feed

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultMinInterval   = 100 * time.Millisecond
	defaultBurst         = 1
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 30 * time.Second
	defaultErrorBuffer   = 8
)

// Snapshot is the complete, authoritative result set at one point in time.
// Consumers replace their state with Items; nothing is incremental.
type Snapshot[T any] struct {
	Items    []T
	Seq      uint64
	LoadedAt time.Time
}

// Loader runs the subscription's query against the store.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Options tunes reload throttling and error retry for a subscription.
type Options struct {
	// MinInterval is the minimum spacing between reloads; zero disables throttling.
	MinInterval time.Duration
	Burst       int
	// RetryDelay is the first delay after a failed load; it doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// ErrorBuffer bounds the Errors channel; the oldest error is dropped on overflow.
	ErrorBuffer int
	Logger      *zap.Logger
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MinInterval:   defaultMinInterval,
		Burst:         defaultBurst,
		RetryDelay:    defaultRetryDelay,
		MaxRetryDelay: defaultMaxRetryDelay,
		ErrorBuffer:   defaultErrorBuffer,
	}
}

func (o Options) withDefaults() Options {
	if o.Burst <= 0 {
		o.Burst = defaultBurst
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.MaxRetryDelay < o.RetryDelay {
		o.MaxRetryDelay = o.RetryDelay
	}
	if o.ErrorBuffer <= 0 {
		o.ErrorBuffer = defaultErrorBuffer
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) limiter() *rate.Limiter {
	if o.MinInterval <= 0 {
		return rate.NewLimiter(rate.Inf, o.Burst)
	}
	return rate.NewLimiter(rate.Every(o.MinInterval), o.Burst)
}

// Subscription is a live query. Snapshots holds only the latest undelivered
// snapshot; a slow consumer skips intermediate states but never sees a
// partial one. Both channels close after Close or context cancellation.
type Subscription[T any] struct {
	Snapshots <-chan Snapshot[T]
	Errors    <-chan error

	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops the subscription and waits for its goroutine to exit.
// It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the subscription has fully stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Watch loads an initial snapshot and reloads whenever topic changes.
// A failed load is reported on Errors and retried; it never ends the stream
// or withdraws the last delivered snapshot.
func Watch[T any](ctx context.Context, hub *Hub, topic Topic, load Loader[T], opts Options) *Subscription[T] {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	snapshots := make(chan Snapshot[T], 1)
	errs := make(chan error, opts.ErrorBuffer)
	sub := &Subscription[T]{
		Snapshots: snapshots,
		Errors:    errs,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	// Register before the first load so no write between load and listen is missed.
	l, unlisten := hub.listen(topic)

	w := &watcher[T]{
		topic:     topic,
		load:      load,
		opts:      opts,
		limiter:   opts.limiter(),
		signal:    l.signal,
		snapshots: snapshots,
		errs:      errs,
	}
	go func() {
		defer close(sub.done)
		defer close(errs)
		defer close(snapshots)
		defer unlisten()
		w.run(ctx)
	}()
	return sub
}

type watcher[T any] struct {
	topic     Topic
	load      Loader[T]
	opts      Options
	limiter   *rate.Limiter
	signal    <-chan struct{}
	snapshots chan Snapshot[T]
	errs      chan error
	seq       uint64
}

func (w *watcher[T]) run(ctx context.Context) {
	var (
		retry      *time.Timer
		retryC     <-chan time.Time
		retryDelay time.Duration
	)
	defer func() {
		if retry != nil {
			retry.Stop()
		}
	}()

	pending := true
	for {
		if pending {
			pending = false
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			items, err := w.load(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				retryDelay = w.nextDelay(retryDelay)
				w.opts.Logger.Warn("feed reload failed",
					zap.String("topic", string(w.topic)),
					zap.Duration("retry_in", retryDelay),
					zap.Error(err))
				w.deliverError(err)
				if retry != nil {
					retry.Stop()
				}
				retry = time.NewTimer(retryDelay)
				retryC = retry.C
			} else {
				retryDelay = 0
				retryC = nil
				w.seq++
				w.deliverSnapshot(Snapshot[T]{Items: items, Seq: w.seq, LoadedAt: time.Now()})
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-w.signal:
			pending = true
		case <-retryC:
			retryC = nil
			pending = true
		}
	}
}

func (w *watcher[T]) nextDelay(prev time.Duration) time.Duration {
	if prev <= 0 {
		return w.opts.RetryDelay
	}
	next := prev * 2
	if next > w.opts.MaxRetryDelay {
		next = w.opts.MaxRetryDelay
	}
	return next
}

// deliverSnapshot replaces any undelivered snapshot with s.
func (w *watcher[T]) deliverSnapshot(s Snapshot[T]) {
	for {
		select {
		case w.snapshots <- s:
			return
		default:
		}
		select {
		case <-w.snapshots:
		default:
		}
	}
}

// deliverError enqueues err, dropping the oldest queued error on overflow.
func (w *watcher[T]) deliverError(err error) {
	for {
		select {
		case w.errs <- err:
			return
		default:
		}
		select {
		case old := <-w.errs:
			w.opts.Logger.Warn("feed error dropped",
				zap.String("topic", string(w.topic)),
				zap.String("reason", "queue overflow"),
				zap.Error(old))
		default:
		}
	}
}
