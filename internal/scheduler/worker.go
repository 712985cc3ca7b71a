package scheduler

import (
	"context"
	"fmt"

	"attribution_backend/platform/apperr"
	"attribution_backend/platform/config"
	"attribution_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// CorrectionRetrier re-runs the attribution correction for one contact.
// Implemented by the correction service.
type CorrectionRetrier interface {
	RetryCorrection(ctx context.Context, contactID, email string) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	retrier CorrectionRetrier
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, retrier CorrectionRetrier, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
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
		retrier: retrier,
		log:     log,
	}

	mux.HandleFunc(TaskCorrectionRetry, w.handleCorrectionRetry)

	return w, nil
}

func (w *Worker) handleCorrectionRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCorrectionRetryPayload(task)
	if err != nil {
		return err
	}

	err = w.retrier.RetryCorrection(ctx, payload.ContactID, payload.Email)
	switch apperr.GetKind(err) {
	case apperr.KindNotFound:
		// Contact or attribution data is gone for good. Retrying cannot
		// change that, so drop the task.
		w.log.Warn("correction retry abandoned",
			"contactId", payload.ContactID,
			"error", err)
		return nil
	default:
		return err
	}
}

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
