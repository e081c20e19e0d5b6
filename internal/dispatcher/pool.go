package dispatcher

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

// handlerBatch is one trigger's ordered handler invocations. Batches run in
// parallel across the pool; handlers within a batch run serially, in
// order, to preserve per-trigger causality.
type handlerBatch struct {
	eventFullName string
	ctx           abi.ApplicationContext
	args          string
	handlers      []registry.HandlerRef
}

// workerPool is the Dispatcher's bounded pool, narrowed from the teacher's
// generic WorkerPool[T, R] in internal/infra/workers.go down to the one job
// shape the Dispatcher actually needs: submit a batch, run its handlers
// serially, many batches in flight at once.
type workerPool struct {
	jobs      chan handlerBatch
	wg        sync.WaitGroup
	closeOnce sync.Once
	logger    *slog.Logger
	metrics   *Metrics
}

func newWorkerPool(size int, logger *slog.Logger, metrics *Metrics) *workerPool {
	if size < 1 {
		size = runtime.GOMAXPROCS(0)
	}
	if size < 1 {
		size = 1
	}
	p := &workerPool{
		jobs:    make(chan handlerBatch, 4*size),
		logger:  logger,
		metrics: metrics,
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.run()
	}
	return p
}

func (p *workerPool) run() {
	defer p.wg.Done()
	for batch := range p.jobs {
		p.execute(batch)
	}
}

// execute runs a batch's handlers serially in order. A handler error is
// logged and swallowed: one handler's failure must not prevent its peers
// from running.
func (p *workerPool) execute(batch handlerBatch) {
	for _, h := range batch.handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.metrics.observeHandlerError()
					p.logger.Error("event handler panicked",
						"event", batch.eventFullName,
						"plugin_id", h.RegisteringPluginID.String(),
						"handler_id", h.HandlerID.String(),
						"panic", r,
					)
				}
			}()
			code := h.HandlerFP(batch.ctx, abi.NewForeignString(batch.args))
			if code != abi.Success {
				p.metrics.observeHandlerError()
				p.logger.Warn("event handler returned an error",
					"event", batch.eventFullName,
					"plugin_id", h.RegisteringPluginID.String(),
					"handler_id", h.HandlerID.String(),
					"error", code.String(),
				)
			}
		}()
	}
}

// submit enqueues a batch. Submission itself never blocks on execution;
// it only blocks if the bounded queue is momentarily full, providing
// natural backpressure.
func (p *workerPool) submit(batch handlerBatch) {
	p.jobs <- batch
}

// shutdown closes the queue and waits for every in-flight and queued batch
// to finish, matching the spec's "shutdown waits for the pool to quiesce."
func (p *workerPool) shutdown() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
