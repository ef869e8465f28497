package scheduler

import (
	"context"
	"fmt"

	"salesops_backend/internal/config"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// QuotationExpirer moves a sent quotation past its deadline to Expired.
type QuotationExpirer interface {
	Expire(ctx context.Context, id uuid.UUID) error
}

// Worker consumes delayed tasks.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	expirer QuotationExpirer
	log     *logger.Logger
}

// NewWorker creates the asynq worker.
func NewWorker(cfg *config.Config, expirer QuotationExpirer, log *logger.Logger) (*Worker, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.AsynqQueue
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.AsynqConcurrency
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		expirer: expirer,
		log:     log,
	}

	mux.HandleFunc(TaskQuotationExpire, w.handleQuotationExpire)

	return w, nil
}

// Run serves tasks until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleQuotationExpire(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseQuotationExpirePayload(task)
	if err != nil {
		return err
	}

	quotationID, err := uuid.Parse(payload.QuotationID)
	if err != nil {
		return err
	}

	return w.expirer.Expire(ctx, quotationID)
}
