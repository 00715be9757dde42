package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"notes-saas/internal/metrics"
)

// Task is one unit of tenant work.
type Task struct {
	TenantID string
	Run      func(ctx context.Context) error
}

// WorkerPool runs tasks on a fixed number of goroutines. Submit blocks while
// the queue is full.
type WorkerPool struct {
	workers int
	tasks   chan Task
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWorkerPool(workerCount, queueSize int, log *zap.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workers: workerCount,
		tasks:   make(chan Task, queueSize),
		log:     log.Named("worker"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (wp *WorkerPool) Start() {
	wp.log.Info("starting pool", zap.Int("workers", wp.workers))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.run()
	}
}

func (wp *WorkerPool) run() {
	defer wp.wg.Done()

	metrics.WorkerActive.Inc()
	defer metrics.WorkerActive.Dec()

	for task := range wp.tasks {
		if err := task.Run(wp.ctx); err != nil {
			wp.log.Error("task failed", zap.String("tenant_id", task.TenantID), zap.Error(err))
			metrics.WorkerProcessed.WithLabelValues(task.TenantID, "error").Inc()
			continue
		}
		metrics.WorkerProcessed.WithLabelValues(task.TenantID, "ok").Inc()
	}
}

// Submit queues t. It returns false once the pool has been stopped.
func (wp *WorkerPool) Submit(t Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}
	wp.tasks <- t
	return true
}

// Stop drains queued tasks and waits for the workers to exit.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.tasks)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.cancel()
	wp.log.Info("stopped pool")
}
