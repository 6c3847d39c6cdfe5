// internal/workers/qualification/validate-plan/handler.go
package validateplan

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"qualification-workers/internal/common/camunda"
	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/validation"
	"qualification-workers/internal/tenants"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "validate-plan"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["tenantId"],
	"properties": {
		"tenantId": {"type": "string", "minLength": 1}
	}
}`)

type Handler struct {
	config  *Config
	tenants tenants.Reader
	errors  *errors.ErrorHandler
	logger  logger.Logger
	now     func() time.Time
}

func NewHandler(config *Config, tenantReader tenants.Reader, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		tenants: tenantReader,
		errors:  errors.NewErrorHandler(l),
		logger:  l,
		now:     time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := inputSchema.Validate(job.Variables); err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	cfg, err := h.tenants.GetTenantConfig(ctx, input.TenantID, "")
	if err != nil {
		if stderrors.Is(err, tenants.ErrTenantNotFound) {
			return nil, errors.NewPlanNotEntitledError("unknown").
				WithMetadata("tenantId", input.TenantID)
		}
		return nil, errors.NewTenantConfigFailedError(input.TenantID, err)
	}

	if err := tenants.CheckMatchingEntitlement(*cfg, h.now()); err != nil {
		h.logger.Info("tenant not entitled to inventory matching", map[string]interface{}{
			"tenantId": input.TenantID,
			"plan":     string(cfg.Plan),
			"reason":   err.Error(),
		})
		return nil, err
	}

	return &Output{
		IsEntitled:    true,
		Plan:          string(cfg.Plan),
		PlanExpiresAt: cfg.PlanExpiresAt,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
