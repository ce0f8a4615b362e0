// Package queue moves search audit writes off the request path.
package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/api/metrics"
	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// AuditDispatcher routes search audit records to a fixed set of workers
// using consistent hashing on the query, so records for one query are
// written in order. It satisfies ports.SearchAudit.
type AuditDispatcher struct {
	workers []chan domain.SearchRecord
	sink    ports.SearchAudit
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewAuditDispatcher creates a dispatcher with numWorkers sharded workers
// writing to sink. If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, sink ports.SearchAudit, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan domain.SearchRecord, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SearchRecord, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. They run until Stop.
func (d *AuditDispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Record enqueues rec without blocking. A full shard drops the record;
// audit entries are never worth slowing a search down.
func (d *AuditDispatcher) Record(_ context.Context, rec domain.SearchRecord) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		metrics.SearchAuditTotal.WithLabelValues("dropped").Inc()
		return nil
	}

	select {
	case d.workers[d.shardIndex(rec.Query)] <- rec:
		metrics.SearchAuditTotal.WithLabelValues("queued").Inc()
	default:
		metrics.SearchAuditTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("query", rec.Query).Msg("search audit queue full, record dropped")
	}
	return nil
}

// Stop closes the queues and waits until every queued record is written.
func (d *AuditDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// shardIndex maps a query deterministically to a worker index.
func (d *AuditDispatcher) shardIndex(query string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(query))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *AuditDispatcher) runWorker(id int, ch <-chan domain.SearchRecord) {
	defer d.wg.Done()
	for rec := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := d.sink.Record(ctx, rec)
		cancel()
		if err != nil {
			metrics.SearchAuditTotal.WithLabelValues("failed").Inc()
			d.log.Error().Err(err).
				Str("query", rec.Query).
				Int("worker_id", id).
				Msg("search audit write failed")
		}
	}
}
