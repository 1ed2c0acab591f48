package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventSink accepts analytics events without blocking the caller. Errors are
// never reported back.
type EventSink interface {
	Record(userID *uuid.UUID, eventType string, data map[string]interface{})
}

const (
	defaultAnalyticsBuffer = 50
	flushTimeout           = 10 * time.Second
	// pendingFactor bounds the buffer at size*pendingFactor while a flush is
	// in flight; events past that are dropped.
	pendingFactor = 4
)

// AnalyticsRecorder buffers events in memory and writes them in batches,
// either when the buffer fills or on every tick.
type AnalyticsRecorder struct {
	events repository.EventRepository
	size   int
	now    func() time.Time

	mu       sync.Mutex
	buffer   []models.AnalyticsEvent
	flushing bool
	dropped  atomic.Int64
	ticker   *time.Ticker
	done     chan struct{}
	loopDone chan struct{}
	stopped  sync.Once
	flushes  sync.WaitGroup
}

func NewAnalyticsRecorder(events repository.EventRepository, size int, interval time.Duration) *AnalyticsRecorder {
	if size <= 0 {
		size = defaultAnalyticsBuffer
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	r := &AnalyticsRecorder{
		events:   events,
		size:     size,
		now:      time.Now,
		buffer:   make([]models.AnalyticsEvent, 0, size),
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go r.flushLoop()
	return r
}

func (r *AnalyticsRecorder) flushLoop() {
	defer close(r.loopDone)
	for {
		select {
		case <-r.ticker.C:
			r.Flush()
		case <-r.done:
			r.Flush()
			return
		}
	}
}

// Record stamps the payload with the capture time and queues the event.
func (r *AnalyticsRecorder) Record(userID *uuid.UUID, eventType string, data map[string]interface{}) {
	now := r.now().UTC()
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["timestamp"] = now.Format(time.RFC3339Nano)

	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("analytics payload dropped", "event_type", eventType, "error", err)
		r.drop(1)
		return
	}

	event := models.AnalyticsEvent{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: eventType,
		EventData: datatypes.JSON(raw),
		CreatedAt: now,
	}

	r.mu.Lock()
	if len(r.buffer) >= r.size*pendingFactor {
		r.mu.Unlock()
		r.drop(1)
		return
	}
	r.buffer = append(r.buffer, event)
	needFlush := len(r.buffer) >= r.size && !r.flushing
	if needFlush {
		r.flushing = true
		r.flushes.Add(1)
	}
	r.mu.Unlock()

	if needFlush {
		go func() {
			defer r.flushes.Done()
			r.Flush()
			r.mu.Lock()
			r.flushing = false
			r.mu.Unlock()
		}()
	}
}

// Dropped counts events discarded because the buffer was full or a batch
// write failed.
func (r *AnalyticsRecorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *AnalyticsRecorder) drop(n int) {
	r.dropped.Add(int64(n))
	metrics.AnalyticsEvents.WithLabelValues("dropped").Add(float64(n))
}

// Flush writes whatever is buffered. A failed batch is logged and dropped.
func (r *AnalyticsRecorder) Flush() {
	r.mu.Lock()
	if len(r.buffer) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.buffer
	r.buffer = make([]models.AnalyticsEvent, 0, r.size)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := r.events.CreateBatch(ctx, batch); err != nil {
		slog.Error("failed to flush analytics events", "error", err, "count", len(batch))
		r.drop(len(batch))
		return
	}
	metrics.AnalyticsEvents.WithLabelValues("stored").Add(float64(len(batch)))
}

// Stop flushes the buffer and ends the background loop.
func (r *AnalyticsRecorder) Stop() {
	r.stopped.Do(func() {
		r.ticker.Stop()
		close(r.done)
	})
	<-r.loopDone
	r.flushes.Wait()
	r.Flush()
}
