// internal/workers/qualification/resolve-document-requirements/handler.go
package resolvedocumentrequirements

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"qualification-workers/internal/common/camunda"
	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/validation"
	"qualification-workers/internal/models"
	"qualification-workers/internal/qualification/requirements"
	"qualification-workers/internal/tenants"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "resolve-document-requirements"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["tenantId"],
	"properties": {
		"tenantId": {"type": "string", "minLength": 1},
		"formId":   {"type": "string"}
	}
}`)

type Handler struct {
	config  *Config
	tenants tenants.Reader
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, tenantReader tenants.Reader, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		tenants: tenantReader,
		errors:  errors.NewErrorHandler(l),
		logger:  l,
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

// execute treats an unknown tenant as "require everything". Any other read
// failure is transient and retried by the engine.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	var resolved requirements.Resolved
	defaulted := false

	cfg, err := h.tenants.GetTenantConfig(ctx, input.TenantID, input.FormID)
	switch {
	case stderrors.Is(err, tenants.ErrTenantNotFound):
		h.logger.Warn("tenant not found, requiring every document", map[string]interface{}{
			"tenantId": input.TenantID,
		})
		resolved = requirements.Resolve(models.DocumentRequirements{}, nil)
		defaulted = true
	case err != nil:
		return nil, errors.NewTenantConfigFailedError(input.TenantID, err)
	default:
		resolved = requirements.ForTenant(*cfg)
	}

	slots := resolved.Required()
	names := make([]string, len(slots))
	for i, slot := range slots {
		names[i] = string(slot)
	}

	return &Output{
		Requirements:  resolved,
		RequiredSlots: names,
		Defaulted:     defaulted,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
