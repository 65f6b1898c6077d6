package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/config"
	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/observability"
)

const (
	TaskOutboxRelay   = "outbox:relay"
	TaskContractSweep = "organization:contract_sweep"
)

type sweepPayload struct {
	Limit int `json:"limit"`
}

// ContractSweeper expires organizations whose contract has ended.
type ContractSweeper interface {
	SweepExpiredContracts(ctx context.Context, limit int) (int, error)
}

// Handlers exposes the background jobs as asynq task handlers.
type Handlers struct {
	relay   *OutboxRelay
	sweeper ContractSweeper
	logger  *zap.Logger
	batch   int
}

// NewHandlers wires the task handlers.
func NewHandlers(relay *OutboxRelay, sweeper ContractSweeper, logger *zap.Logger, sweepBatch int) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{relay: relay, sweeper: sweeper, logger: logger, batch: sweepBatch}
}

// Mux routes every task type this package knows.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskOutboxRelay, h.HandleOutboxRelay)
	mux.HandleFunc(TaskContractSweep, h.HandleContractSweep)
	return mux
}

// HandleOutboxRelay runs one relay pass. Delivery failures are tracked in the outbox, not retried by asynq.
func (h *Handlers) HandleOutboxRelay(ctx context.Context, t *asynq.Task) error {
	if h.relay == nil {
		return fmt.Errorf("%s: relay not configured: %w", TaskOutboxRelay, asynq.SkipRetry)
	}
	_, err := h.relay.RunOnce(ctx)
	return err
}

// HandleContractSweep expires ended contracts. An empty payload uses the configured batch size.
func (h *Handlers) HandleContractSweep(ctx context.Context, t *asynq.Task) error {
	if h.sweeper == nil {
		return fmt.Errorf("%s: sweeper not configured: %w", TaskContractSweep, asynq.SkipRetry)
	}
	limit := h.batch
	if len(t.Payload()) > 0 {
		var payload sweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("%s: decode payload: %v: %w", TaskContractSweep, err, asynq.SkipRetry)
		}
		if payload.Limit > 0 {
			limit = payload.Limit
		}
	}
	expired, err := h.sweeper.SweepExpiredContracts(ctx, limit)
	if err != nil {
		return err
	}
	if expired > 0 {
		h.logger.Info("contracts expired", zap.Int("count", expired))
	}
	return nil
}

// NewContractSweepTask builds an on-demand sweep task.
func NewContractSweepTask(queue string, limit int) (*asynq.Task, error) {
	payload, err := json.Marshal(sweepPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskContractSweep, payload, asynq.Queue(queue), asynq.MaxRetry(3)), nil
}

type scheduleRegistrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// RegisterSchedules installs the periodic relay and sweep tasks.
func RegisterSchedules(scheduler scheduleRegistrar, cfg config.WorkerConfig) error {
	interval := max(cfg.OutboxScanInterval(), time.Second)
	relaySpec := "@every " + interval.String()
	relayTask := asynq.NewTask(TaskOutboxRelay, nil, asynq.Queue(cfg.Queue), asynq.MaxRetry(0), asynq.Unique(interval))
	if _, err := scheduler.Register(relaySpec, relayTask); err != nil {
		return fmt.Errorf("register %s: %w", TaskOutboxRelay, err)
	}
	if cfg.ContractSweepCron == "" {
		return nil
	}
	sweepTask := asynq.NewTask(TaskContractSweep, nil, asynq.Queue(cfg.Queue), asynq.MaxRetry(3))
	if _, err := scheduler.Register(cfg.ContractSweepCron, sweepTask); err != nil {
		return fmt.Errorf("register %s: %w", TaskContractSweep, err)
	}
	return nil
}

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// MonitorQueueDepth publishes the queue size every interval until ctx is done.
func MonitorQueueDepth(ctx context.Context, inspector queueInspector, queue string, metrics *observability.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := inspector.GetQueueInfo(queue)
			if err != nil {
				continue
			}
			metrics.SetQueueDepth(queue, info.Size)
		}
	}
}
