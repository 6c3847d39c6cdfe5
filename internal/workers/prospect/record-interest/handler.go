// internal/workers/prospect/record-interest/handler.go
package recordinterest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"qualification-workers/internal/common/camunda"
	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/validation"
	"qualification-workers/internal/inventory"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "record-interest"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["prospectId", "itemIds"],
	"properties": {
		"prospectId": {"type": "string", "minLength": 1},
		"itemIds": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1}
		}
	}
}`)

type Handler struct {
	config *Config
	writer inventory.InterestWriter
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, writer inventory.InterestWriter, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		writer: writer,
		errors: errors.NewErrorHandler(l),
		logger: l,
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

// execute is safe to retry: pairs already on record are counted, not duplicated.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{}
	seen := make(map[string]bool, len(input.ItemIDs))

	for _, itemID := range input.ItemIDs {
		itemID = strings.TrimSpace(itemID)
		if itemID == "" || seen[itemID] {
			continue
		}
		seen[itemID] = true

		created, err := h.writer.RecordInterest(ctx, input.ProspectID, itemID)
		if err != nil {
			return nil, errors.NewExternalServiceError("postgres", err).
				WithMetadata("prospectId", input.ProspectID).
				WithMetadata("itemId", itemID)
		}
		if created {
			out.Recorded++
		} else {
			out.AlreadyRecorded++
		}
	}

	h.logger.Info("interest recorded", map[string]interface{}{
		"prospectId":      input.ProspectID,
		"recorded":        out.Recorded,
		"alreadyRecorded": out.AlreadyRecorded,
	})
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
