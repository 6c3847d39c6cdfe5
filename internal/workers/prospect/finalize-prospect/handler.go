// internal/workers/prospect/finalize-prospect/handler.go
package finalizeprospect

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"qualification-workers/internal/common/camunda"
	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/validation"
	"qualification-workers/internal/prospects"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "finalize-prospect"

	EventProspectFinalized = "prospect.finalized"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["tenantId", "prospectId", "capacity", "wantsValidation"],
	"properties": {
		"tenantId":        {"type": "string", "minLength": 1},
		"prospectId":      {"type": "string", "minLength": 1},
		"capacity":        {"type": "object"},
		"wantsValidation": {"type": "boolean"},
		"documents":       {"type": "object"}
	}
}`)

// EventPublisher is satisfied by the SNS client.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, tenantID string, data interface{}) (string, error)
}

type Handler struct {
	config    *Config
	prospects prospects.Store
	events    EventPublisher
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

// NewHandler accepts a nil publisher when events are disabled.
func NewHandler(config *Config, store prospects.Store, events EventPublisher, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		prospects: store,
		events:    events,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	for slot := range input.Documents {
		if !slot.Valid() {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown document slot %q", slot))
		}
	}

	req := prospects.FinalizeRequest{
		Capacity:        input.Capacity,
		WantsValidation: input.WantsValidation,
	}
	// A prospect who declined validation has no documents on record.
	if input.WantsValidation {
		req.Documents = input.Documents
	}

	if err := h.prospects.FinalizeProspect(ctx, input.ProspectID, req); err != nil {
		if stderrors.Is(err, prospects.ErrProspectNotFound) {
			return nil, errors.NewInvalidInputError(err.Error()).
				WithMetadata("prospectId", input.ProspectID)
		}
		return nil, errors.NewProspectSaveFailedError(err).
			WithMetadata("prospectId", input.ProspectID)
	}

	status := string(req.Status())
	h.publish(ctx, input, status, len(req.Documents))

	h.logger.Info("prospect finalized", map[string]interface{}{
		"prospectId": input.ProspectID,
		"status":     status,
		"documents":  len(req.Documents),
	})

	return &Output{
		ProspectID: input.ProspectID,
		Status:     status,
		Finalized:  true,
	}, nil
}

func (h *Handler) publish(ctx context.Context, input *Input, status string, documents int) {
	if h.events == nil {
		return
	}
	_, err := h.events.Publish(ctx, EventProspectFinalized, input.TenantID, map[string]interface{}{
		"prospectId":      input.ProspectID,
		"status":          status,
		"wantsValidation": input.WantsValidation,
		"capacity":        input.Capacity,
		"documents":       documents,
	})
	if err != nil {
		h.logger.Warn("failed to publish prospect event", map[string]interface{}{
			"prospectId": input.ProspectID,
			"error":      err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
