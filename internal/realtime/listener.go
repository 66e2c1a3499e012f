// Package realtime delivers row-change notifications from Postgres to
// in-process subscribers. Triggers publish the changed table's name on a
// single NOTIFY channel; subscribers register per table.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/metrics"
	"github.com/jackc/pgx/v5"
	goretry "github.com/sethvargo/go-retry"
)

const Channel = "table_changes"

type Listener struct {
	dsn     string
	channel string

	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func()
}

func NewListener(dsn string) *Listener {
	return &Listener{
		dsn:     dsn,
		channel: Channel,
		subs:    make(map[string]map[int]func()),
	}
}

// Subscribe registers fn for changes on collection. Handlers run on the
// listener goroutine and must not block.
func (l *Listener) Subscribe(collection string, fn func()) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	if l.subs[collection] == nil {
		l.subs[collection] = make(map[int]func())
	}
	l.subs[collection][id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs[collection], id)
			if len(l.subs[collection]) == 0 {
				delete(l.subs, collection)
			}
			l.mu.Unlock()
		})
	}
}

func (l *Listener) dispatch(collection string) {
	l.mu.RLock()
	fns := make([]func(), 0, len(l.subs[collection]))
	for _, fn := range l.subs[collection] {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	metrics.RealtimeNotificationsTotal.WithLabelValues(collection).Inc()
	for _, fn := range fns {
		fn()
	}
}

// Run listens until ctx is cancelled, reconnecting with capped exponential
// backoff when the connection drops.
func (l *Listener) Run(ctx context.Context) error {
	backoff := goretry.WithCappedDuration(30*time.Second, goretry.NewExponential(500*time.Millisecond))

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("realtime listener disconnected, reconnecting", "error", err)
		return goretry.RetryableError(err)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("failed to connect realtime listener: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	slog.Info("realtime listener connected", "channel", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(n.Payload)
	}
}
