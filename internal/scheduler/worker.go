package scheduler

import (
	"context"
	"fmt"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs Jobs, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	return &Worker{
		server: server,
		mux:    newMux(jobs),
		log:    log,
	}, nil
}

func newMux(jobs Jobs) *asynq.ServeMux {
	h := tickHandlers{jobs: jobs}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSequenceEvaluate, h.sequenceEvaluate)
	mux.HandleFunc(TaskEscalationScan, h.escalationScan)
	mux.HandleFunc(TaskExportSnapshot, h.exportSnapshot)
	return mux
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

type tickHandlers struct {
	jobs Jobs
}

func (h tickHandlers) sequenceEvaluate(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseTickPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return h.jobs.EvaluateSequences(ctx, payload.Tick)
}

func (h tickHandlers) escalationScan(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseTickPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return h.jobs.ScanEscalations(ctx, payload.Tick, payload.Window())
}

func (h tickHandlers) exportSnapshot(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseTickPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return h.jobs.SnapshotExports(ctx, payload.Tick)
}
