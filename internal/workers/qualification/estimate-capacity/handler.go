// internal/workers/qualification/estimate-capacity/handler.go
package estimatecapacity

import (
	"context"
	"encoding/json"
	"fmt"

	"qualification-workers/internal/common/camunda"
	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/validation"
	"qualification-workers/internal/qualification/affordability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "estimate-capacity"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["monthlyIncome"],
	"properties": {
		"monthlyIncome": {"type": "number"}
	}
}`)

type Handler struct {
	config *Config
	table  *affordability.Table
	errors *errors.ErrorHandler
	logger logger.Logger
}

// NewHandler uses the default bracket table when table is nil.
func NewHandler(config *Config, table *affordability.Table, log logger.Logger) *Handler {
	if table == nil {
		table = affordability.Default
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		table:  table,
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

// execute never fails on a valid income: a zero estimate is a result, not an error.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.MonthlyIncome < 0 {
		return nil, errors.NewInvalidInputError("monthlyIncome must not be negative")
	}

	capacity := h.table.Estimate(input.MonthlyIncome)

	h.logger.Debug("capacity estimated", map[string]interface{}{
		"monthlyIncome":    input.MonthlyIncome,
		"maxPropertyPrice": capacity.MaxPropertyPrice,
	})

	return &Output{
		Capacity: capacity,
		Eligible: capacity.Eligible(),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
