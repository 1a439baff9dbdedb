// Package notify delivers push notifications raised by tools and handoff
// callbacks (contact requests, supervisor escalations).
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentrelay/logging"
)

// Notification is a single push message.
type Notification struct {
	Title   string
	Message string
}

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// LogNotifier writes notifications to a logger. It is the fallback when no
// push provider is configured.
type LogNotifier struct {
	Logger logging.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	logger.Info("notify.push", "title", n.Title, "message", n.Message)
	return nil
}

// PushoverOptions configures a PushoverNotifier.
type PushoverOptions struct {
	Endpoint   string
	HTTPClient *http.Client
}

// PushoverNotifier posts notifications to the Pushover messages API.
type PushoverNotifier struct {
	token, user string
	opts        PushoverOptions
}

// NewPushoverNotifier creates a notifier for the given application token and user key.
func NewPushoverNotifier(token, user string, optFns ...func(o *PushoverOptions)) *PushoverNotifier {
	opts := PushoverOptions{
		Endpoint:   "https://api.pushover.net/1/messages.json",
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &PushoverNotifier{token: token, user: user, opts: opts}
}

// Notify implements Notifier.
func (p *PushoverNotifier) Notify(ctx context.Context, n Notification) error {
	form := url.Values{}
	form.Set("token", p.token)
	form.Set("user", p.user)
	form.Set("message", n.Message)
	if n.Title != "" {
		form.Set("title", n.Title)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("pushover request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("pushover: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// ErrClosed is returned by Async.Notify after Close.
var ErrClosed = errors.New("notifier closed")

// AsyncOptions configures an Async notifier.
type AsyncOptions struct {
	QueueSize int
	Timeout   time.Duration // per delivery
	Logger    logging.Logger
}

// Async queues notifications and delivers them on a background goroutine so
// callers (e.g. synchronous handoff callbacks) never block on network I/O.
// A full queue drops the notification with a warning.
type Async struct {
	next   Notifier
	opts   AsyncOptions
	queue  chan Notification
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the delivery goroutine.
func NewAsync(next Notifier, optFns ...func(o *AsyncOptions)) *Async {
	opts := AsyncOptions{QueueSize: 64, Timeout: 15 * time.Second, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	a := &Async{
		next:  next,
		opts:  opts,
		queue: make(chan Notification, opts.QueueSize),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer close(a.done)
	for n := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.opts.Timeout)
		if err := a.next.Notify(ctx, n); err != nil {
			a.opts.Logger.Error("notify.deliver.error", "title", n.Title, "error", err)
		}
		cancel()
	}
}

// Notify enqueues n without waiting for delivery.
func (a *Async) Notify(_ context.Context, n Notification) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- n:
		return nil
	default:
		a.opts.Logger.Warn("notify.queue.full", "title", n.Title)
		return nil
	}
}

// Close stops accepting notifications and waits for the queue to drain or
// ctx to expire.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
