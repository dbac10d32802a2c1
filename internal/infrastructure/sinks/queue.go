// Package sinks delivers tracked events to the web-analytics and ad-pixel
// platforms through a bounded asynchronous queue.
package sinks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

// Sender delivers one payload.
type Sender func(ctx context.Context, payload []byte) error

// DeliveryObserver is told the outcome of every payload: sent, failed or dropped.
type DeliveryObserver func(sink, outcome string)

// NewHTTPSender posts JSON payloads to endpoint and expects a 2xx answer.
func NewHTTPSender(client *http.Client, endpoint string) Sender {
	return func(ctx context.Context, payload []byte) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	}
}

// Queue buffers payloads for a pool of workers. Push never blocks: a full
// queue drops the payload.
type Queue struct {
	name    string
	ch      chan []byte
	send    Sender
	timeout time.Duration
	observe DeliveryObserver
	logger  *logging.ChanneledLogger
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// QueueOptions configures a Queue.
type QueueOptions struct {
	Size    int
	Workers int
	Timeout time.Duration
}

// NewQueue starts the workers. observe may be nil.
func NewQueue(name string, send Sender, opts QueueOptions, observe DeliveryObserver, logger *logging.ChanneledLogger) *Queue {
	if opts.Size < 1 {
		opts.Size = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if observe == nil {
		observe = func(string, string) {}
	}

	q := &Queue{
		name:    name,
		ch:      make(chan []byte, opts.Size),
		send:    send,
		timeout: opts.Timeout,
		observe: observe,
		logger:  logger,
	}
	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Push enqueues payload and reports whether it was accepted.
func (q *Queue) Push(payload []byte) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.observe(q.name, "dropped")
		return false
	}
	select {
	case q.ch <- payload:
		return true
	default:
		q.observe(q.name, "dropped")
		q.logger.Analytics().Warn("Sink queue full, dropping payload", "sink", q.name)
		return false
	}
}

// Close stops accepting payloads and waits for queued ones to drain or ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sink %s did not drain: %w", q.name, ctx.Err())
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for payload := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.send(ctx, payload)
		cancel()

		if err != nil {
			q.observe(q.name, "failed")
			q.logger.Analytics().Error("Sink delivery failed", "sink", q.name, "error", err.Error())
			continue
		}
		q.observe(q.name, "sent")
	}
}
