// internal/workers/prospect/create-prospect/handler.go
package createprospect

import (
	"context"
	"encoding/json"
	"fmt"

	"qualification-workers/internal/common/camunda"
	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/validation"
	"qualification-workers/internal/models"
	"qualification-workers/internal/prospects"
	"qualification-workers/internal/qualification/affordability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-prospect"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["tenantId", "sessionId", "contact"],
	"properties": {
		"tenantId":  {"type": "string", "minLength": 1},
		"sessionId": {"type": "string", "minLength": 1},
		"contact": {
			"type": "object",
			"required": ["name", "email", "phone"],
			"properties": {
				"name":  {"type": "string", "minLength": 1},
				"email": {"type": "string", "pattern": "^[^@\\s]+@[^@\\s]+$"},
				"phone": {"type": "string", "minLength": 7}
			}
		},
		"monthlyIncome": {"type": "number", "minimum": 0},
		"preferences": {
			"type": "object",
			"properties": {
				"zones": {"type": "array", "items": {"type": "string"}}
			}
		}
	}
}`)

type Handler struct {
	config    *Config
	prospects prospects.Store
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, store prospects.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		prospects: store,
		errors:    errors.NewErrorHandler(l),
		logger:    l,
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

// execute upserts by session, so an engine retry after a lost completion
// returns the same prospect instead of creating a second one.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	capacity := affordability.Estimate(input.MonthlyIncome)
	if input.Capacity != nil {
		capacity = *input.Capacity
	}

	id, err := h.prospects.CreateProspect(ctx, prospects.NewProspect{
		TenantID:      input.TenantID,
		SessionID:     input.SessionID,
		Contact:       input.Contact,
		MonthlyIncome: input.MonthlyIncome,
		Preferences:   input.Preferences,
		Capacity:      capacity,
	})
	if err != nil {
		return nil, errors.NewProspectSaveFailedError(err).
			WithMetadata("sessionId", input.SessionID)
	}

	h.logger.Info("prospect created", map[string]interface{}{
		"prospectId": id,
		"tenantId":   input.TenantID,
		"sessionId":  input.SessionID,
	})

	return &Output{
		ProspectID: id,
		Status:     string(models.ProspectContacted),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
