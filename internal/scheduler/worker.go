package scheduler

import (
	"context"
	"fmt"

	"lead_router_backend/internal/events"
	"lead_router_backend/internal/followupboss"
	"lead_router_backend/internal/lead"
	"lead_router_backend/platform/config"
	"lead_router_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	leads       *lead.Repository
	crm         *followupboss.Client
	client      *Client
	bus         events.Bus
	maxAttempts int
	log         *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, crmCfg config.CRMConfig, pool *pgxpool.Pool, client *Client, bus events.Bus, log *logger.Logger) (*Worker, error) {
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
		server:      server,
		mux:         mux,
		leads:       lead.NewRepository(pool),
		crm:         followupboss.New(crmCfg, log),
		client:      client,
		bus:         bus,
		maxAttempts: crmCfg.GetCRMMaxRetryAttempts(),
		log:         log,
	}

	mux.HandleFunc(TaskCRMPushRetry, w.handleCRMPushRetry)

	return w, nil
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

// handleCRMPushRetry re-reads the lead and pushes it to the CRM again.
// Exhausted tasks are dropped: the lead is already persisted, CRM sync
// is best-effort.
func (w *Worker) handleCRMPushRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCRMPushRetryPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return err
	}

	rec, err := w.leads.Get(ctx, leadID, orgID)
	if err != nil {
		w.log.Error("crm retry: lead lookup failed", "error", err, "lead_id", payload.LeadID)
		return err
	}

	pushErr := w.crm.Push(ctx, rec, payload.Source, payload.Tags)
	if pushErr == nil {
		w.log.Info("crm retry succeeded", "lead_id", payload.LeadID, "attempt", payload.Attempt)
		return nil
	}

	if payload.Attempt+1 >= w.maxAttempts || !followupboss.IsRetryable(pushErr) {
		w.log.Warn("crm retry exhausted, dropping",
			"lead_id", payload.LeadID, "attempt", payload.Attempt, "error", pushErr)
		if w.bus != nil {
			w.bus.Publish(ctx, events.CRMPushFailed{
				BaseEvent:      events.NewBaseEvent(),
				SubmissionID:   rec.SubmissionID,
				OrganizationID: orgID,
				LeadID:         leadID,
				Reason:         pushErr.Error(),
			})
		}
		return nil
	}

	payload.Attempt++
	if err := w.client.ScheduleCRMPushRetry(ctx, payload); err != nil {
		w.log.Error("crm retry reschedule failed", "error", err, "lead_id", payload.LeadID)
		return err
	}
	return nil
}
