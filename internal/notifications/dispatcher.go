package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"oap/internal/logging"
)

// Dispatcher delivers payloads on detached goroutines.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher wraps notifier. A nil notifier discards payloads.
func NewDispatcher(notifier Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if notifier == nil {
		notifier = Noop{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "notifications"),
	}
}

// Dispatch starts delivery and returns immediately. The delivery keeps the
// values of ctx (correlation id) but not its cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, payload Payload) {
	if _, ok := d.notifier.(Noop); ok {
		return
	}
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		logger := logging.WithContext(detached, d.logger)
		if err := d.notifier.Notify(sendCtx, payload); err != nil {
			logging.WarnWithContext(logger, "stage notification failed", "notification_failed",
				logging.String("request_id", payload.RequestID),
				logging.String("new_status", payload.NewStatus),
				logging.String(logging.FieldErrorHint, "check notifications settings and relay reachability"),
				logging.String(logging.FieldImpact, "requester was not told about the stage change"),
				logging.Error(err),
			)
			return
		}
		logger.Debug("stage notification sent",
			logging.String("request_id", payload.RequestID),
			logging.String("new_status", payload.NewStatus),
		)
	}()
}

// Wait blocks until in-flight deliveries finish or ctx ends. It reports
// whether everything drained.
func (d *Dispatcher) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
